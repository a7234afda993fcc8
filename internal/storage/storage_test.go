package storage

import (
	"context"
	"strings"
	"testing"

	"doctxt/pkg/records"
)

type stubSink struct{}

func (stubSink) EnsureTable(context.Context) error            { return nil }
func (stubSink) Insert(context.Context, records.Record) error { return nil }
func (stubSink) Flush(context.Context) error                  { return nil }
func (stubSink) Close(context.Context) error                  { return nil }

func stubFactory(context.Context, Config) (RecordSink, error) {
	return stubSink{}, nil
}

// TestNew_UnknownKind verifies the error names the bad kind so the CLI
// message is actionable.
func TestNew_UnknownKind(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Kind: "oracle", Table: "documents"})
	if err == nil || !strings.Contains(err.Error(), `"oracle"`) {
		t.Fatalf("err=%v, want unknown kind naming oracle", err)
	}
}

// TestNew_EmptyTable verifies a blank table name is rejected before any
// backend work.
func TestNew_EmptyTable(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Kind: "sqlite", Table: "  "})
	if err == nil || !strings.Contains(err.Error(), "table name is empty") {
		t.Fatalf("err=%v, want empty table error", err)
	}
}

// TestRegister_Guards verifies the fail-fast panics on bad registrations.
func TestRegister_Guards(t *testing.T) {
	mustPanic := func(name string, fn func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Fatalf("%s: expected panic", name)
			}
		}()
		fn()
	}

	mustPanic("empty kind", func() { Register("", stubFactory) })
	mustPanic("nil factory", func() { Register("stub-nil", nil) })

	Register("stub-dup", stubFactory)
	mustPanic("duplicate kind", func() { Register("stub-dup", stubFactory) })
}

// TestKinds verifies registered kinds come back sorted.
func TestKinds(t *testing.T) {
	Register("stub-b", stubFactory)
	Register("stub-a", stubFactory)

	kinds := Kinds()
	idxA, idxB := -1, -1
	for i, k := range kinds {
		switch k {
		case "stub-a":
			idxA = i
		case "stub-b":
			idxB = i
		}
	}
	if idxA == -1 || idxB == -1 || idxA > idxB {
		t.Fatalf("kinds=%v, want stub-a before stub-b", kinds)
	}
}
