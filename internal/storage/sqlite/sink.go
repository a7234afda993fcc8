// Package sqlite implements storage.RecordSink on SQLite via
// modernc.org/sqlite (pure Go driver, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"doctxt/internal/storage"
	"doctxt/pkg/records"
)

const batchSize = 500

func init() {
	storage.Register("sqlite", New)
}

// Sink buffers records and writes them with multi-row INSERTs.
type Sink struct {
	db    *sql.DB
	table string
	buf   []records.Record
}

// New opens (or creates) the SQLite database at cfg.DSN.
func New(ctx context.Context, cfg storage.Config) (storage.RecordSink, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", cfg.DSN, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", cfg.DSN, err)
	}
	return &Sink{db: db, table: cfg.Table}, nil
}

func (s *Sink) EnsureTable(ctx context.Context) error {
	q := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (title TEXT NOT NULL, summary TEXT NOT NULL, source_file TEXT NOT NULL)",
		ident(s.table),
	)
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

func (s *Sink) Insert(ctx context.Context, rec records.Record) error {
	s.buf = append(s.buf, rec)
	if len(s.buf) >= batchSize {
		return s.Flush(ctx)
	}
	return nil
}

func (s *Sink) Flush(ctx context.Context) error {
	if len(s.buf) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(ident(s.table))
	b.WriteString(" (title, summary, source_file) VALUES ")

	args := make([]any, 0, len(s.buf)*3)
	for i, rec := range s.buf {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?)")
		args = append(args, rec.Title, rec.Summary, rec.Source)
	}

	if _, err := s.db.ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("insert into %s: %w", s.table, err)
	}
	s.buf = s.buf[:0]
	return nil
}

func (s *Sink) Close(ctx context.Context) error {
	err := s.Flush(ctx)
	if cerr := s.db.Close(); err == nil {
		err = cerr
	}
	return err
}

// ident quotes a SQLite identifier.
func ident(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

var _ storage.RecordSink = (*Sink)(nil)
