package docblock

import (
	"path/filepath"
	"strings"

	"doctxt/pkg/records"
)

// TitleFallbackFilename selects the source file's base name (extension
// stripped) as the title for blocks without a usable title attribute. Any
// other fallback value is used literally.
const TitleFallbackFilename = "filename"

// BuildOptions control how blocks become records. The zero value produces
// empty summaries and untruncated titles.
type BuildOptions struct {
	// SummaryChars is the number of leading content characters kept as the
	// summary. Zero or negative means an empty summary.
	SummaryChars int

	// TitleMaxChars caps the resolved title length. Zero or negative disables
	// truncation.
	TitleMaxChars int

	// TitleFallback is either TitleFallbackFilename or a fixed literal, used
	// when a block's title attribute is absent or whitespace-only.
	TitleFallback string
}

// BuildRecord resolves a block extracted from sourcePath into its output
// record. It is total: any block maps to a record, never an error.
func BuildRecord(b Block, sourcePath string, opts BuildOptions) records.Record {
	title := strings.TrimSpace(b.Title)
	if title == "" {
		if opts.TitleFallback == TitleFallbackFilename {
			title = stem(sourcePath)
		} else {
			title = opts.TitleFallback
		}
	}
	if opts.TitleMaxChars > 0 {
		title = firstNChars(title, opts.TitleMaxChars)
	}

	summary := ""
	if opts.SummaryChars > 0 {
		summary = firstNChars(b.Content, opts.SummaryChars)
	}

	return records.Record{
		Title:   title,
		Summary: summary,
		Source:  filepath.Base(sourcePath),
	}
}

// firstNChars truncates s to at most n characters (runes, not bytes), so
// multi-byte text is never cut mid-sequence.
func firstNChars(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// stem returns the file name without directory or extension.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
