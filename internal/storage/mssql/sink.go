// Package mssql implements storage.RecordSink on Microsoft SQL Server.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"doctxt/internal/storage"
	"doctxt/pkg/records"
)

// batchSize keeps multi-row inserts well under the 2100-parameter limit of
// SQL Server (3 parameters per row).
const batchSize = 500

func init() {
	storage.Register("mssql", New)
}

// Sink buffers records and writes them with multi-row INSERTs.
type Sink struct {
	db    *sql.DB
	table string
	buf   []records.Record
}

// New opens a SQL Server connection for cfg.DSN.
func New(ctx context.Context, cfg storage.Config) (storage.RecordSink, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open sqlserver: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlserver: %w", err)
	}
	return &Sink{db: db, table: cfg.Table}, nil
}

func (s *Sink) EnsureTable(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, ensureTableSQL(s.table)); err != nil {
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

	args := make([]any, 0, len(s.buf)*3)
	for _, rec := range s.buf {
		args = append(args, rec.Title, rec.Summary, rec.Source)
	}

	if _, err := s.db.ExecContext(ctx, insertSQL(s.table, len(s.buf)), args...); err != nil {
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

// ensureTableSQL creates the destination table when it does not exist yet.
// OBJECT_ID is the portable "IF NOT EXISTS" idiom across SQL Server versions.
func ensureTableSQL(table string) string {
	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (title NVARCHAR(MAX) NOT NULL, summary NVARCHAR(MAX) NOT NULL, source_file NVARCHAR(400) NOT NULL)",
		strings.ReplaceAll(table, "'", "''"), ident(table),
	)
}

// insertSQL builds a multi-row INSERT with @pN placeholders, 3 per row.
func insertSQL(table string, rows int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(ident(table))
	b.WriteString(" (title, summary, source_file) VALUES ")

	for i := 0; i < rows; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "(@p%d, @p%d, @p%d)", i*3+1, i*3+2, i*3+3)
	}
	return b.String()
}

// ident quotes a SQL Server identifier with brackets.
func ident(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}

var _ storage.RecordSink = (*Sink)(nil)
