// Package textutil holds the character classes shared by both filters.
package textutil

import (
	"strings"
	"unicode"
)

// printable is digits, ASCII letters, ASCII punctuation and the six ASCII
// whitespace characters
var printable = func() [128]bool {
	var table [128]bool
	for c := '0'; c <= '9'; c++ {
		table[c] = true
	}
	for c := 'a'; c <= 'z'; c++ {
		table[c] = true
		table[c-'a'+'A'] = true
	}
	for _, c := range "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~ \t\n\r\v\f" {
		table[c] = true
	}
	return table
}()

// IsPrintable reports whether every rune of s is printable ASCII
func IsPrintable(s string) bool {
	for _, r := range s {
		if r >= 128 || !printable[r] {
			return false
		}
	}
	return true
}

// IsSpace reports Unicode white space plus the ASCII information separators
// (0x1c-0x1f), which line-oriented tools also treat as blanks
func IsSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

// TrimSpace removes leading and trailing runes matching IsSpace
func TrimSpace(s string) string {
	return strings.TrimFunc(s, IsSpace)
}
