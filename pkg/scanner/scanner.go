// Package scanner finds quoted Base64 tokens inside captured content and
// keeps the ones that decode to printable text.
package scanner

import (
	"bytes"
	"fmt"
	"regexp"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/httpseal/trafficsift/pkg/decode"
	"github.com/httpseal/trafficsift/pkg/textutil"
)

const (
	// DefaultMinLength is the shortest quoted run treated as a candidate
	DefaultMinLength = 20

	// MaxMinLength is the largest repeat count RE2 accepts
	MaxMinLength = 1000
)

// Counts tallies what happened to the candidates of one scan
type Counts struct {
	Candidates  int // Quoted runs matched by the pattern
	Undecodable int // Candidates that were not valid Base64
	Unprintable int // Decoded to empty or non-printable text
	Kept        int
}

// Add accumulates other into c
func (c *Counts) Add(other Counts) {
	c.Candidates += other.Candidates
	c.Undecodable += other.Undecodable
	c.Unprintable += other.Unprintable
	c.Kept += other.Kept
}

// Scanner matches quoted runs of the Base64 alphabet. The pattern
// over-matches on purpose: padding and length are only checked on decode.
type Scanner struct {
	pattern *regexp.Regexp
}

// New returns a Scanner for quoted runs of at least minLength characters.
// Values above MaxMinLength are clamped to it.
func New(minLength int) *Scanner {
	if minLength < 1 {
		minLength = DefaultMinLength
	}
	minLength = min(minLength, MaxMinLength)
	return &Scanner{
		pattern: regexp.MustCompile(fmt.Sprintf(`"([A-Za-z0-9+/=]{%d,})"`, minLength)),
	}
}

var defaultScanner = New(DefaultMinLength)

// Scan returns the printable strings decoded from tokens in content using
// the default minimum length
func Scan(content []byte) mapset.Set[string] {
	found, _ := defaultScanner.Scan(content)
	return found
}

// Tokens returns the candidate tokens in content, without their quotes
func (s *Scanner) Tokens(content []byte) [][]byte {
	matches := s.pattern.FindAllSubmatch(content, -1)
	tokens := make([][]byte, 0, len(matches))
	for _, m := range matches {
		tokens = append(tokens, m[1])
	}
	return tokens
}

// Scan returns the set of printable strings decoded from content
func (s *Scanner) Scan(content []byte) (mapset.Set[string], Counts) {
	found := mapset.NewThreadUnsafeSet[string]()
	var counts Counts

	for _, token := range s.Tokens(content) {
		counts.Candidates++

		text, err := DecodeToken(token)
		if err != nil {
			counts.Undecodable++
			continue
		}
		if !Acceptable(text) {
			counts.Unprintable++
			continue
		}

		counts.Kept++
		found.Add(text)
	}
	return found, counts
}

// DecodeToken right-pads token with '=' to a multiple of four, decodes it
// and returns the trimmed, lossily decoded text
func DecodeToken(token []byte) (string, error) {
	padded := token
	if rem := len(token) % 4; rem != 0 {
		padded = append(bytes.Clone(token), bytes.Repeat([]byte{'='}, 4-rem)...)
	}

	raw, err := decode.Base64Bytes(padded)
	if err != nil {
		return "", err
	}
	return textutil.TrimSpace(decode.LossyText(raw)), nil
}

// Acceptable reports whether decoded text is worth reporting
func Acceptable(text string) bool {
	return text != "" && textutil.IsPrintable(text)
}
