// Package pathnorm collapses URL paths that differ only in their numeric
// segments and drops the repeats from a line stream.
package pathnorm

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/httpseal/trafficsift/pkg/textutil"
)

const (
	// DefaultPlaceholder replaces each run of digits
	DefaultPlaceholder = "{id}"

	// DefaultMaxLineSize bounds a single input line
	DefaultMaxLineSize = 16 * 1024 * 1024
)

// digits matches decimal digits in any script, not only ASCII
var digits = regexp.MustCompile(`\p{Nd}+`)

// Normalize replaces every maximal run of digits in path with placeholder
func Normalize(path, placeholder string) string {
	return digits.ReplaceAllLiteralString(path, placeholder)
}

// Deduper remembers the normalized form of every line it has accepted
type Deduper struct {
	placeholder string
	seen        mapset.Set[string]
}

// NewDeduper returns an empty Deduper
func NewDeduper(placeholder string) *Deduper {
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}
	return &Deduper{
		placeholder: placeholder,
		seen:        mapset.NewThreadUnsafeSet[string](),
	}
}

// Add trims line and reports whether it is the first non-empty line with
// its normalized form. The trimmed line is returned as received.
func (d *Deduper) Add(line string) (string, bool) {
	line = textutil.TrimSpace(line)
	if line == "" {
		return "", false
	}
	if !d.seen.Add(Normalize(line, d.placeholder)) {
		return "", false
	}
	return line, true
}

// Len returns the number of distinct normalized forms seen
func (d *Deduper) Len() int {
	return d.seen.Cardinality()
}

// Options configures Run
type Options struct {
	Placeholder string
	MaxLineSize int
}

// Run copies the first line of each normalized form from r to w, one per
// line, until EOF or until ctx is cancelled. Each kept line is written as
// soon as it is read.
func Run(ctx context.Context, r io.Reader, w io.Writer, opts Options) error {
	maxLine := opts.MaxLineSize
	if maxLine <= 0 {
		maxLine = DefaultMaxLineSize
	}

	d := NewDeduper(opts.Placeholder)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, min(64*1024, maxLine)), maxLine)
	sc.Split(scanUniversalLines)

	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}

		line, ok := d.Add(string(sc.Bytes()))
		if !ok {
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return fmt.Errorf("failed to write line: %w", err)
		}
	}

	if err := sc.Err(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to read input: %w", err)
	}
	return nil
}

// scanUniversalLines splits on \n, \r\n or a lone \r
func scanUniversalLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		// A \r at the end of the buffer may be the first half of \r\n
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		return 0, nil, nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
