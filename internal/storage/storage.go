// Package storage provides pluggable SQL sinks for extracted records, as an
// alternative destination to sharded JSONL files.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"doctxt/pkg/records"
)

// Config selects and configures a sink backend.
type Config struct {
	// Kind must match a registered backend kind ("sqlite", "postgres",
	// "mssql").
	Kind string

	// DSN is passed through to the backend driver; validation is
	// backend-specific.
	DSN string

	// Table receives the records. Created if missing.
	Table string
}

// RecordSink persists extracted records into a database table.
//
// Implementations buffer inserts internally and write them in batches; Flush
// forces buffered rows out, and Close flushes before releasing connections.
// Close is safe to call more than once.
type RecordSink interface {
	// EnsureTable creates the destination table if needed (idempotent).
	EnsureTable(ctx context.Context) error

	// Insert queues one record, flushing a full batch transparently.
	Insert(ctx context.Context, rec records.Record) error

	// Flush writes any buffered rows.
	Flush(ctx context.Context) error

	// Close flushes and releases backend resources.
	Close(ctx context.Context) error
}

type factory func(ctx context.Context, cfg Config) (RecordSink, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a sink backend under a kind. Backend packages call it
// from an init() function; the kind string becomes the lookup key used by
// New.
//
// Panics:
//   - If kind is empty.
//   - If f is nil.
//   - If kind is already registered; failing fast avoids ambiguous backend
//     selection.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs the sink registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (RecordSink, error) {
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, fmt.Errorf("storage: table name is empty")
	}

	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("storage: unknown sink kind %q (registered: %s)",
			cfg.Kind, strings.Join(Kinds(), ", "))
	}
	return f(ctx, cfg)
}

// Kinds lists registered backend kinds, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
