// Package postgres implements storage.RecordSink on Postgres via pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"doctxt/internal/storage"
	"doctxt/pkg/records"
)

const batchSize = 500

func init() {
	storage.Register("postgres", New)
}

// Sink buffers records and writes them with COPY, which is the cheapest bulk
// path pgx offers.
type Sink struct {
	pool  *pgxpool.Pool
	table string
	buf   []records.Record
}

// New creates a connection pool for cfg.DSN.
func New(ctx context.Context, cfg storage.Config) (storage.RecordSink, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Sink{pool: pool, table: cfg.Table}, nil
}

func (s *Sink) EnsureTable(ctx context.Context) error {
	q := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (title TEXT NOT NULL, summary TEXT NOT NULL, source_file TEXT NOT NULL)",
		pgx.Identifier{s.table}.Sanitize(),
	)
	if _, err := s.pool.Exec(ctx, q); err != nil {
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

	rows := pgx.CopyFromSlice(len(s.buf), func(i int) ([]any, error) {
		rec := s.buf[i]
		return []any{rec.Title, rec.Summary, rec.Source}, nil
	})

	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{s.table},
		[]string{"title", "summary", "source_file"}, rows)
	if err != nil {
		return fmt.Errorf("copy into %s: %w", s.table, err)
	}
	if n != int64(len(s.buf)) {
		return fmt.Errorf("copy into %s: wrote %d of %d rows", s.table, n, len(s.buf))
	}
	s.buf = s.buf[:0]
	return nil
}

// Close flushes buffered rows and closes the pool. Pool close is idempotent.
func (s *Sink) Close(ctx context.Context) error {
	err := s.Flush(ctx)
	s.pool.Close()
	return err
}

var _ storage.RecordSink = (*Sink)(nil)
