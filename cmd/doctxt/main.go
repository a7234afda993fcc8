// Command doctxt extracts <doc ...>...</doc> blocks from plain-text corpora
// and writes {title, summary} records as sharded JSONL files or into a SQL
// table.
//
// Usage (single file):
//
//	doctxt -input-file dump.txt -output-dir out
//
// Usage (directory scan):
//
//	doctxt -input-dirs "corpus/a,corpus/b" -glob "*.txt" -output-dir out
//
// Preview without writing:
//
//	doctxt -input-file dump.txt -dry-run
//
// Load into SQLite instead of shard files:
//
//	doctxt -input-file dump.txt -store sqlite -dsn corpus.db -table documents
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"doctxt/internal/discover"
	"doctxt/internal/docblock"
	"doctxt/internal/metrics"
	"doctxt/internal/metrics/datadog"
	"doctxt/internal/pipeline"

	// sink backends register themselves with internal/storage
	_ "doctxt/internal/storage/mssql"
	_ "doctxt/internal/storage/postgres"
	_ "doctxt/internal/storage/sqlite"
)

// backendCloser is the minimal interface used by this command to manage a
// metrics backend.
type backendCloser interface {
	metrics.Backend
	Close() error
}

// deps are external seams for testability.
//
// Unit tests inject fake writers and a fake backend factory; main wires the
// real ones.
type deps struct {
	Stdout io.Writer
	Stderr io.Writer

	BackendFactory func(ctx context.Context, jobName string, tags []string, flushEvery time.Duration) (backendCloser, error)
}

// runConfig holds the parsed flags for a run.
type runConfig struct {
	InputFile string
	InputDirs []string
	Glob      string
	NoSubdirs bool

	OutputDir         string
	Prefix            string
	MaxRecordsPerFile int

	SummaryChars  int
	TitleMaxChars int
	TitleFallback string

	DryRun bool

	Store string
	DSN   string
	Table string

	JobName    string
	Metrics    bool
	DDTagsCSV  string
	FlushEvery time.Duration
}

// main is intentionally small: it wires real dependencies and exits with a code.
func main() {
	code := run(context.Background(), os.Args[1:], deps{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		BackendFactory: func(ctx context.Context, jobName string, tags []string, flushEvery time.Duration) (backendCloser, error) {
			return datadog.NewBackend(ctx, datadog.Options{
				JobName:    jobName,
				Tags:       tags,
				FlushEvery: flushEvery,
			})
		},
	})
	os.Exit(code)
}

// run executes the command and returns a Unix-style exit code:
//   - 0 for success
//   - 1 for operational/runtime errors
//   - 2 for usage/config errors
func run(ctx context.Context, args []string, d deps) int {
	if d.Stdout == nil {
		d.Stdout = io.Discard
	}
	if d.Stderr == nil {
		d.Stderr = io.Discard
	}

	cfg, err := parseFlags(args)
	if err != nil {
		fmt.Fprintln(d.Stderr, err.Error())
		return 2
	}

	files, err := resolveInputs(cfg)
	if err != nil {
		fmt.Fprintln(d.Stderr, err.Error())
		return 2
	}

	if cfg.Metrics {
		if d.BackendFactory == nil {
			fmt.Fprintln(d.Stderr, "internal error: BackendFactory is nil")
			return 2
		}
		tags := append(datadog.ParseTagsCSV(cfg.DDTagsCSV), "tool:doctxt")
		backend, err := d.BackendFactory(ctx, cfg.JobName, tags, cfg.FlushEvery)
		if err != nil {
			fmt.Fprintf(d.Stderr, "metrics backend init failed: %v\n", err)
			return 2
		}
		metrics.SetBackend(backend)
		defer func() {
			_ = metrics.Flush()
			_ = backend.Close()
			metrics.SetBackend(nil)
		}()
	}

	pcfg := pipeline.Config{
		Files:             files,
		OutputDir:         cfg.OutputDir,
		Prefix:            cfg.Prefix,
		MaxRecordsPerFile: cfg.MaxRecordsPerFile,
		Build: docblock.BuildOptions{
			SummaryChars:  cfg.SummaryChars,
			TitleMaxChars: cfg.TitleMaxChars,
			TitleFallback: cfg.TitleFallback,
		},
		Store: cfg.Store,
		DSN:   cfg.DSN,
		Table: cfg.Table,
	}

	if cfg.DryRun {
		if err := pipeline.DryRun(pcfg, d.Stdout); err != nil {
			fmt.Fprintf(d.Stderr, "dry run: %v\n", err)
			return 1
		}
		return 0
	}

	st, err := pipeline.Run(ctx, pcfg)
	if err != nil {
		fmt.Fprintf(d.Stderr, "run: %v\n", err)
		return 1
	}

	if cfg.Store == pipeline.StoreJSONL {
		fmt.Fprintf(d.Stdout, "wrote %d records from %d files to %s (prefix %q, %d shards)\n",
			st.Records, st.Files, cfg.OutputDir, cfg.Prefix, st.Shards)
	} else {
		fmt.Fprintf(d.Stdout, "wrote %d records from %d files to %s table %q\n",
			st.Records, st.Files, cfg.Store, cfg.Table)
	}
	return 0
}

// parseFlags parses command arguments into a validated runConfig.
//
// Errors:
//   - Returns an error for invalid/missing required flags.
//   - Does not exit the process (caller decides exit code).
func parseFlags(args []string) (runConfig, error) {
	fs := flag.NewFlagSet("doctxt", flag.ContinueOnError)

	// Capture help/usage text instead of writing to stdout.
	var usageBuf strings.Builder
	fs.SetOutput(&usageBuf)
	fs.Usage = func() {
		fmt.Fprintf(&usageBuf, "Usage of %s:\n", fs.Name())
		fs.PrintDefaults()
	}

	var cfg runConfig
	var inputDirsCSV string

	fs.StringVar(&cfg.InputFile, "input-file", "", "Path to a file containing <doc>...</doc> blocks")
	fs.StringVar(&inputDirsCSV, "input-dirs", "", "Comma-separated directories to scan for input files")
	fs.StringVar(&cfg.Glob, "glob", "*.txt", "File name pattern used with -input-dirs (shell glob; * matches everything)")
	fs.BoolVar(&cfg.NoSubdirs, "no-subdirs", false, "Do not descend into subdirectories when scanning -input-dirs")

	fs.StringVar(&cfg.OutputDir, "output-dir", "", "Directory for output shard files")
	fs.StringVar(&cfg.Prefix, "prefix", "doctxt", "Shard file name prefix")
	fs.IntVar(&cfg.MaxRecordsPerFile, "max-records-per-file", 50000, "Max records per shard before rotating (<=0 means a single unbounded shard)")

	fs.IntVar(&cfg.SummaryChars, "summary-chars", 1024, "Leading content characters kept as summary (<=0 means empty summaries)")
	fs.IntVar(&cfg.TitleMaxChars, "title-max-chars", 120, "Max title length (<=0 disables truncation)")
	fs.StringVar(&cfg.TitleFallback, "title-fallback", docblock.TitleFallbackFilename,
		`Title for blocks without a title attribute: "filename" uses the source file's base name, any other value is used literally`)

	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Print a sample of records to stdout instead of writing output")

	fs.StringVar(&cfg.Store, "store", pipeline.StoreJSONL, "Output sink: jsonl, sqlite, postgres or mssql")
	fs.StringVar(&cfg.DSN, "dsn", "", "Database DSN (required for SQL sinks)")
	fs.StringVar(&cfg.Table, "table", "documents", "Destination table for SQL sinks")

	fs.StringVar(&cfg.JobName, "name", "doctxt", "Logical job name used in metrics tags")
	fs.BoolVar(&cfg.Metrics, "metrics", false, "Submit run metrics to Datadog")
	fs.StringVar(&cfg.DDTagsCSV, "dd_tags", "", "Extra Datadog tags CSV (e.g. env:prod,corpus:viwiki)")
	fs.DurationVar(&cfg.FlushEvery, "metrics_flush", 1*time.Minute, "Datadog flush interval")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return runConfig{}, errors.New(usageBuf.String())
		}
		return runConfig{}, fmt.Errorf("%v\n\n%s", err, usageBuf.String())
	}

	if inputDirsCSV != "" {
		for _, dir := range strings.Split(inputDirsCSV, ",") {
			if dir = strings.TrimSpace(dir); dir != "" {
				cfg.InputDirs = append(cfg.InputDirs, dir)
			}
		}
	}

	switch {
	case cfg.InputFile == "" && len(cfg.InputDirs) == 0:
		return runConfig{}, errors.New("one of -input-file or -input-dirs is required")
	case cfg.InputFile != "" && len(cfg.InputDirs) > 0:
		return runConfig{}, errors.New("-input-file and -input-dirs are mutually exclusive")
	}

	switch cfg.Store {
	case pipeline.StoreJSONL:
		if cfg.OutputDir == "" && !cfg.DryRun {
			return runConfig{}, errors.New("missing required -output-dir")
		}
	case "sqlite", "postgres", "mssql":
		if cfg.DSN == "" {
			return runConfig{}, fmt.Errorf("-store %s requires -dsn", cfg.Store)
		}
	default:
		return runConfig{}, fmt.Errorf("unknown -store %q (want jsonl, sqlite, postgres or mssql)", cfg.Store)
	}

	return cfg, nil
}

// resolveInputs turns the configured source into a sorted list of input
// files. Finding none is a configuration error: the run fails before any
// output is produced.
func resolveInputs(cfg runConfig) ([]string, error) {
	if cfg.InputFile != "" {
		info, err := os.Stat(cfg.InputFile)
		if err != nil {
			return nil, fmt.Errorf("input file %s: %w", cfg.InputFile, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("input file %s is a directory", cfg.InputFile)
		}
		return []string{cfg.InputFile}, nil
	}

	files, err := discover.CollectFiles(cfg.InputDirs, cfg.Glob, !cfg.NoSubdirs)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matching %q under %s",
			cfg.Glob, strings.Join(cfg.InputDirs, ", "))
	}
	return files, nil
}
