// Package decode turns captured fields into raw bytes and bytes into text.
//
// Each step is a separate fallible transformation. A failure (a field that
// is not really Base64, a body that does not decompress) drops only the unit
// of content it was applied to.
package decode

import (
	"errors"
	"fmt"
	"strings"

	"github.com/httpseal/trafficsift/pkg/traffic"
)

var (
	ErrIncorrectPadding = errors.New("incorrect padding")
	ErrDanglingChar     = errors.New("number of data characters cannot be 1 more than a multiple of 4")
	ErrNonASCII         = errors.New("base64 text should contain only ASCII characters")
)

const base64Pad = '='

var base64Alphabet = func() [256]byte {
	var table [256]byte
	for i := range table {
		table[i] = 0xff
	}
	const std = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
	for i := 0; i < len(std); i++ {
		table[std[i]] = byte(i)
	}
	return table
}()

// Base64Bytes decodes standard Base64 leniently: bytes outside the alphabet
// (line breaks, spaces) are skipped and decoding stops at the first padding
// that completes a quantum. Trailing data after that point is ignored.
func Base64Bytes(src []byte) ([]byte, error) {
	out := make([]byte, 0, len(src)*3/4)

	var (
		quadPos  int
		leftChar byte
		pads     int
	)

	for _, c := range src {
		if c == base64Pad {
			if quadPos >= 2 {
				pads++
				if quadPos+pads >= 4 {
					return out, nil
				}
			}
			continue
		}

		v := base64Alphabet[c]
		if v == 0xff {
			continue
		}
		pads = 0

		switch quadPos {
		case 0:
			quadPos = 1
			leftChar = v
		case 1:
			quadPos = 2
			out = append(out, leftChar<<2|v>>4)
			leftChar = v & 0x0f
		case 2:
			quadPos = 3
			out = append(out, leftChar<<4|v>>2)
			leftChar = v & 0x03
		case 3:
			quadPos = 0
			out = append(out, leftChar<<6|v)
			leftChar = 0
		}
	}

	switch quadPos {
	case 0:
		return out, nil
	case 1:
		return nil, ErrDanglingChar
	default:
		return nil, ErrIncorrectPadding
	}
}

// LossyText converts bytes to a string, dropping invalid UTF-8 sequences
func LossyText(b []byte) string {
	return strings.ToValidUTF8(string(b), "")
}

// Field returns the raw bytes of a captured field. An absent field yields
// nil content and no error; a field flagged Base64 that does not decode
// yields an error and should be skipped.
func Field(f traffic.Field) ([]byte, error) {
	if !f.Present {
		return nil, nil
	}
	if f.Base64 {
		if !isASCII(f.Text) {
			return nil, fmt.Errorf("field is not valid base64: %w", ErrNonASCII)
		}
		raw, err := Base64Bytes([]byte(f.Text))
		if err != nil {
			return nil, fmt.Errorf("field is not valid base64: %w", err)
		}
		return raw, nil
	}
	return []byte(LossyText([]byte(f.Text))), nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
