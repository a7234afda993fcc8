// Package records defines the output record shared by every pipeline stage.
package records

// Record is the unit persisted by shard files and SQL sinks.
//
// Field order matters: downstream consumers expect "title" before "summary"
// on every JSONL line.
type Record struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`

	// Source is the base name of the originating file. SQL sinks store it for
	// attribution; it is never serialized onto shard lines.
	Source string `json:"-"`
}
