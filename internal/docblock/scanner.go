// Package docblock extracts <doc ...>...</doc> blocks from plain-text corpora
// and maps them to output records.
//
// The input convention is the Wikipedia-extractor dump style: an opening tag
// line (optionally carrying a title attribute), content lines, and a closing
// tag line. The scanner is a best-effort line scanner, not an XML parser:
// nesting is not supported and malformed markup silently merges or drops
// content.
package docblock

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

const (
	openMarker  = "<doc"
	closeMarker = "</doc>"
)

// titleRe captures the title attribute value non-greedily: the first double
// quote after the opening one ends the value.
var titleRe = regexp.MustCompile(`title="(.*?)"`)

// Block is one delimited unit of source text.
//
// Title is the raw value of the opening tag's title attribute ("" when the
// attribute is absent). Content preserves the lines between the opening and
// closing marker lines verbatim, terminators included.
type Block struct {
	Title   string
	Content string
}

type scanState int

const (
	stateOutside scanState = iota
	stateInside
)

// ScanBlocks streams blocks from r in source order, calling emit once per
// complete block. The scan is a single forward pass; emit must not retain
// the block's strings if it needs them after mutating them elsewhere.
//
// Invalid UTF-8 byte sequences are replaced with U+FFFD rather than failing
// the scan.
//
// Edge cases:
//   - An opening marker seen while inside a block is treated as content; the
//     current block keeps accumulating until its closing marker.
//   - A block still open at EOF is dropped, not flushed.
//
// A non-nil error from emit aborts the scan and is returned unwrapped.
func ScanBlocks(r io.Reader, emit func(Block) error) error {
	br := bufio.NewReader(unicode.UTF8.NewDecoder().Reader(r))

	state := stateOutside
	var buf strings.Builder
	title := ""

	for {
		line, rerr := br.ReadString('\n')
		if line != "" {
			switch state {
			case stateOutside:
				if strings.Contains(line, openMarker) {
					state = stateInside
					buf.Reset()
					title = titleFromOpeningTag(line)
				}
			case stateInside:
				if strings.Contains(line, closeMarker) {
					if err := emit(Block{Title: title, Content: buf.String()}); err != nil {
						return err
					}
					buf.Reset()
					title = ""
					state = stateOutside
				} else {
					buf.WriteString(line)
				}
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return fmt.Errorf("read line: %w", rerr)
		}
	}
}

// ScanFile opens path and streams its blocks. See ScanBlocks.
func ScanFile(path string, emit func(Block) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ScanBlocks(f, emit)
}

// titleFromOpeningTag pulls the title attribute value off an opening tag
// line, or "" when the attribute is absent.
func titleFromOpeningTag(line string) string {
	m := titleRe.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return m[1]
}
