// Package shard writes records as line-delimited JSON across record-count
// bounded output files.
package shard

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"doctxt/pkg/records"
)

// ErrClosed is returned by Write after the writer has been closed.
var ErrClosed = errors.New("shard: writer is closed")

// Writer persists records one JSON object per line, rotating to a new shard
// file once maxRecords have been written to the current one.
//
// Shards are named {prefix}_{00001}.jsonl, numbered from 1. Pre-existing
// files of the same name are truncated without warning. Shard 1 is opened
// eagerly, so a run that produces zero records still leaves an empty shard
// on disk.
type Writer struct {
	dir        string
	prefix     string
	maxRecords int

	file    *os.File
	enc     *json.Encoder
	index   int
	inShard int
	total   int64
	closed  bool
}

// NewWriter creates dir (and missing parents) if needed and opens shard 1.
func NewWriter(dir, prefix string, maxRecords int) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	w := &Writer{dir: dir, prefix: prefix, maxRecords: maxRecords}
	if err := w.openShard(1); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) openShard(idx int) error {
	name := fmt.Sprintf("%s_%05d.jsonl", w.prefix, idx)
	f, err := os.Create(filepath.Join(w.dir, name))
	if err != nil {
		return fmt.Errorf("open shard %s: %w", name, err)
	}

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)

	w.file = f
	w.enc = enc
	w.index = idx
	w.inShard = 0
	return nil
}

// Write appends rec to the current shard, rotating to the next shard first
// when the current one is full. A non-positive maxRecords disables rotation:
// every record lands in shard 1.
func (w *Writer) Write(rec records.Record) error {
	if w.closed {
		return ErrClosed
	}

	if w.maxRecords > 0 && w.inShard >= w.maxRecords {
		if err := w.file.Close(); err != nil {
			return fmt.Errorf("close shard %d: %w", w.index, err)
		}
		if err := w.openShard(w.index + 1); err != nil {
			return err
		}
	}

	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	w.inShard++
	w.total++
	return nil
}

// Total returns the number of records written across all shards.
func (w *Writer) Total() int64 { return w.total }

// Shards returns the index of the current (newest) shard.
func (w *Writer) Shards() int { return w.index }

// Close closes the open shard file. It is safe to call more than once, so
// callers can defer it for failure paths and still close explicitly to check
// the error on success.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close shard %d: %w", w.index, err)
	}
	return nil
}
