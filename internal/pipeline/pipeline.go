// Package pipeline wires file discovery output, block extraction, record
// building and the configured sink into one sequential run.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"doctxt/internal/docblock"
	"doctxt/internal/metrics"
	"doctxt/internal/shard"
	"doctxt/internal/storage"
	"doctxt/pkg/records"
)

// StoreJSONL selects the sharded JSONL writer; any other Store value names a
// registered storage backend kind.
const StoreJSONL = "jsonl"

// Config is built once from flags and treated as immutable afterwards.
type Config struct {
	// Files are the resolved input files, already deduplicated and sorted.
	Files []string

	// Sharded JSONL output.
	OutputDir         string
	Prefix            string
	MaxRecordsPerFile int

	// Record building.
	Build docblock.BuildOptions

	// Store selects the sink: StoreJSONL or a storage backend kind.
	Store string
	DSN   string
	Table string
}

// Stats summarizes a completed run.
type Stats struct {
	Files   int
	Blocks  int64
	Records int64
	Shards  int // 0 when a SQL sink was used
}

// Run processes every configured file in order and persists the resulting
// records. Any I/O error is fatal to the whole run; nothing is retried and no
// file is skipped.
func Run(ctx context.Context, cfg Config) (Stats, error) {
	start := time.Now()

	var st Stats
	var err error
	switch cfg.Store {
	case "", StoreJSONL:
		st, err = runShards(ctx, cfg)
	default:
		st, err = runSink(ctx, cfg)
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.ObserveHistogram("doctxt_run_duration_seconds",
		time.Since(start).Seconds(), metrics.Labels{"status": status})
	return st, err
}

func runShards(ctx context.Context, cfg Config) (Stats, error) {
	w, err := shard.NewWriter(cfg.OutputDir, cfg.Prefix, cfg.MaxRecordsPerFile)
	if err != nil {
		return Stats{}, err
	}
	// The deferred Close covers failure paths; the happy path closes
	// explicitly below to surface the error.
	defer w.Close()

	st, err := extractAll(ctx, cfg, w.Write)
	if err != nil {
		return st, err
	}
	if err := w.Close(); err != nil {
		return st, err
	}

	st.Shards = w.Shards()
	metrics.IncCounter("doctxt_shards_total", float64(st.Shards), nil)
	return st, nil
}

func runSink(ctx context.Context, cfg Config) (Stats, error) {
	sink, err := storage.New(ctx, storage.Config{Kind: cfg.Store, DSN: cfg.DSN, Table: cfg.Table})
	if err != nil {
		return Stats{}, err
	}
	defer sink.Close(ctx)

	if err := sink.EnsureTable(ctx); err != nil {
		return Stats{}, err
	}

	st, err := extractAll(ctx, cfg, func(rec records.Record) error {
		return sink.Insert(ctx, rec)
	})
	if err != nil {
		return st, err
	}
	return st, sink.Close(ctx)
}

// extractAll runs the extractor over every input file in order, mapping each
// block to a record and handing it to write.
func extractAll(ctx context.Context, cfg Config, write func(records.Record) error) (Stats, error) {
	var st Stats
	for _, path := range cfg.Files {
		if err := ctx.Err(); err != nil {
			return st, err
		}

		fileStart := time.Now()
		err := docblock.ScanFile(path, func(b docblock.Block) error {
			st.Blocks++
			if err := write(docblock.BuildRecord(b, path, cfg.Build)); err != nil {
				return err
			}
			st.Records++
			return nil
		})

		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.IncCounter("doctxt_files_total", 1, metrics.Labels{"status": status})
		metrics.ObserveHistogram("doctxt_file_duration_seconds",
			time.Since(fileStart).Seconds(), metrics.Labels{"status": status})

		if err != nil {
			return st, fmt.Errorf("extract %s: %w", path, err)
		}
		st.Files++
	}

	metrics.IncCounter("doctxt_blocks_total", float64(st.Blocks), nil)
	metrics.IncCounter("doctxt_records_total", float64(st.Records),
		metrics.Labels{"sink": sinkLabel(cfg.Store)})
	return st, nil
}

func sinkLabel(store string) string {
	if store == "" {
		return StoreJSONL
	}
	return store
}

// errSampleDone stops the scan early once the dry-run sample is full.
var errSampleDone = errors.New("sample complete")

// DryRun prints up to two records from the first input file as JSON lines to
// out. Nothing is written to disk and no sink is opened.
func DryRun(cfg Config, out io.Writer) error {
	if len(cfg.Files) == 0 {
		return errors.New("no input files")
	}

	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)

	const sampleSize = 2
	printed := 0
	first := cfg.Files[0]

	err := docblock.ScanFile(first, func(b docblock.Block) error {
		if err := enc.Encode(docblock.BuildRecord(b, first, cfg.Build)); err != nil {
			return err
		}
		printed++
		if printed >= sampleSize {
			return errSampleDone
		}
		return nil
	})
	if err != nil && !errors.Is(err, errSampleDone) {
		return err
	}
	return nil
}
