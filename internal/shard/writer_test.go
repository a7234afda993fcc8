package shard

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"doctxt/pkg/records"
)

func readShard(t *testing.T, dir, prefix string, idx int) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(dir, fmt.Sprintf("%s_%05d.jsonl", prefix, idx)))
	if err != nil {
		t.Fatalf("read shard %d: %v", idx, err)
	}
	return string(b)
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n")
}

// TestWriter_Rotation verifies 5 records with max 2 per shard land as
// [2, 2, 1] across shards 1..3.
func TestWriter_Rotation(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	w, err := NewWriter(tmp, "part", 2)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	for i := 0; i < 5; i++ {
		if err := w.Write(records.Record{Title: fmt.Sprintf("t%d", i)}); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if w.Total() != 5 {
		t.Fatalf("Total=%d, want 5", w.Total())
	}
	if w.Shards() != 3 {
		t.Fatalf("Shards=%d, want 3", w.Shards())
	}

	for idx, want := range map[int]int{1: 2, 2: 2, 3: 1} {
		if got := countLines(readShard(t, tmp, "part", idx)); got != want {
			t.Fatalf("shard %d has %d lines, want %d", idx, got, want)
		}
	}
}

// TestWriter_UnboundedSingleShard verifies a non-positive max keeps every
// record in shard 1.
func TestWriter_UnboundedSingleShard(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	w, err := NewWriter(tmp, "all", 0)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	for i := 0; i < 20; i++ {
		if err := w.Write(records.Record{Title: "x"}); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if w.Shards() != 1 {
		t.Fatalf("Shards=%d, want 1", w.Shards())
	}
	if got := countLines(readShard(t, tmp, "all", 1)); got != 20 {
		t.Fatalf("shard 1 has %d lines, want 20", got)
	}
	if _, err := os.Stat(filepath.Join(tmp, "all_00002.jsonl")); !os.IsNotExist(err) {
		t.Fatalf("unexpected second shard (stat err=%v)", err)
	}
}

// TestWriter_EmptyInputLeavesEmptyShard verifies shard 1 is opened eagerly,
// so zero records still produce an empty file.
func TestWriter_EmptyInputLeavesEmptyShard(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	w, err := NewWriter(tmp, "empty", 100)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if got := readShard(t, tmp, "empty", 1); got != "" {
		t.Fatalf("shard 1 not empty: %q", got)
	}
}

// TestWriter_LineShapeAndEncoding verifies one JSON object per line, title
// before summary, and non-ASCII characters left unescaped.
func TestWriter_LineShapeAndEncoding(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	w, err := NewWriter(tmp, "enc", 0)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Write(records.Record{Title: "Tiếng Việt", Summary: "xin chào & <hi>"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got := readShard(t, tmp, "enc", 1)
	want := `{"title":"Tiếng Việt","summary":"xin chào & <hi>"}` + "\n"
	if got != want {
		t.Fatalf("line=%q, want %q", got, want)
	}
}

// TestWriter_OverwritesExistingShard verifies truncate-on-open semantics for
// re-runs into the same output directory.
func TestWriter_OverwritesExistingShard(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	stale := filepath.Join(tmp, "re_00001.jsonl")
	if err := os.WriteFile(stale, []byte("stale content\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	w, err := NewWriter(tmp, "re", 0)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Write(records.Record{Title: "fresh"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got := readShard(t, tmp, "re", 1)
	if strings.Contains(got, "stale") {
		t.Fatalf("stale content survived: %q", got)
	}
}

// TestWriter_CloseIdempotentAndRejectsWrites verifies Close can be deferred
// and called again, and that Write after Close fails.
func TestWriter_CloseIdempotentAndRejectsWrites(t *testing.T) {
	t.Parallel()

	w, err := NewWriter(t.TempDir(), "c", 0)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := w.Write(records.Record{}); err != ErrClosed {
		t.Fatalf("Write after Close: err=%v, want ErrClosed", err)
	}
}

// TestWriter_PartialContentRetainedOnAbort verifies records written before a
// producer failure stay on disk once the writer is closed.
func TestWriter_PartialContentRetainedOnAbort(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	w, err := NewWriter(tmp, "partial", 10)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Write(records.Record{Title: "kept"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	// Producer fails here; the caller's deferred Close still runs.
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got := readShard(t, tmp, "partial", 1)
	if !strings.Contains(got, "kept") {
		t.Fatalf("partial content missing: %q", got)
	}
}

// TestWriter_CreatesNestedOutputDir verifies missing parent directories are
// created.
func TestWriter_CreatesNestedOutputDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	w, err := NewWriter(dir, "n", 0)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "n_00001.jsonl")); err != nil {
		t.Fatalf("shard missing: %v", err)
	}
}
