// Package extract aggregates decoded Base64 strings across every record of a
// traffic export and writes them out as a report.
package extract

import (
	"iter"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/exp/slices"

	"github.com/httpseal/trafficsift/pkg/decode"
	"github.com/httpseal/trafficsift/pkg/logger"
	"github.com/httpseal/trafficsift/pkg/scanner"
	"github.com/httpseal/trafficsift/pkg/traffic"
)

// Options controls how fields are scanned
type Options struct {
	Decompress     bool // Also scan de-chunked and decompressed HTTP bodies
	MinTokenLength int
}

// Source locates one field a value was found in
type Source struct {
	Index int               `json:"index"`
	URL   string            `json:"url,omitempty"`
	Field traffic.FieldName `json:"field"`
}

// Finding is a distinct decoded value with every place it was seen
type Finding struct {
	Value   string   `json:"value"`
	Sources []Source `json:"sources"`
}

// Stats summarizes one extraction run
type Stats struct {
	Records       int
	Fields        int // Present fields that decoded to raw content
	SkippedFields int // Fields whose Base64 encoding was invalid
	Candidates    int
	Rejected      int // Candidates that failed to decode or were not printable
	Findings      int
}

// Extractor collects values from records in document order
type Extractor struct {
	opts    Options
	log     logger.Logger
	scanner *scanner.Scanner

	values  mapset.Set[string]
	sources map[string][]Source
	stats   Stats
}

// New creates an empty Extractor
func New(opts Options, log logger.Logger) *Extractor {
	if log == nil {
		log = logger.Nop()
	}
	return &Extractor{
		opts:    opts,
		log:     log,
		scanner: scanner.New(opts.MinTokenLength),
		values:  mapset.NewThreadUnsafeSet[string](),
		sources: make(map[string][]Source),
	}
}

// AddAll consumes every record of seq
func (e *Extractor) AddAll(seq iter.Seq[traffic.Record]) {
	for rec := range seq {
		e.Add(rec)
	}
}

// Add scans the request and response of a single record
func (e *Extractor) Add(rec traffic.Record) {
	e.stats.Records++

	for _, f := range rec.Fields() {
		content, err := decode.Field(f.Field)
		if err != nil {
			e.stats.SkippedFields++
			e.log.Debug("Skipping %s of item %d (%s): %v", f.Name, rec.Index, rec.URL, err)
			continue
		}
		e.stats.Fields++

		found := e.scanField(content)
		found.Each(func(value string) bool {
			if e.values.Add(value) {
				e.stats.Findings++
			}
			e.sources[value] = append(e.sources[value], Source{Index: rec.Index, URL: rec.URL, Field: f.Name})
			return false
		})
	}
}

// scanField returns the union of values found in content and, with
// decompression enabled, in its decoded body
func (e *Extractor) scanField(content []byte) mapset.Set[string] {
	blobs := [][]byte{content}
	if e.opts.Decompress {
		blobs = decode.Expand(content)
	}

	found := mapset.NewThreadUnsafeSet[string]()
	for _, blob := range blobs {
		values, counts := e.scanner.Scan(blob)
		e.stats.Candidates += counts.Candidates
		e.stats.Rejected += counts.Undecodable + counts.Unprintable
		found = found.Union(values)
	}
	return found
}

// Values returns the distinct values in ascending byte order
func (e *Extractor) Values() []string {
	values := e.values.ToSlice()
	slices.Sort(values)
	return values
}

// Findings returns the distinct values with their sources, sorted by value
func (e *Extractor) Findings() []Finding {
	values := e.Values()
	findings := make([]Finding, 0, len(values))
	for _, v := range values {
		findings = append(findings, Finding{Value: v, Sources: slices.Clone(e.sources[v])})
	}
	return findings
}

// Stats returns the counters accumulated so far
func (e *Extractor) Stats() Stats {
	return e.stats
}
