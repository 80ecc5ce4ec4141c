package traffic

import (
	"bytes"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/httpseal/trafficsift/internal/config"
)

// ErrUnknownFormat is returned for input formats other than burp and har
var ErrUnknownFormat = errors.New("unknown input format")

var utf8BOM = []byte("\xef\xbb\xbf")

// DetectFormat resolves auto to burp or har from the file extension and the
// first non-blank byte
func DetectFormat(path string, data []byte, format config.InputFormat) config.InputFormat {
	if format != "" && format != config.InputAuto {
		return format
	}
	if strings.EqualFold(filepath.Ext(path), ".har") {
		return config.InputHAR
	}
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(data, utf8BOM), " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return config.InputHAR
	}
	return config.InputBurp
}

// Parse decodes a whole export held in memory
func Parse(data []byte, format config.InputFormat) (iter.Seq[Record], error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	switch format {
	case config.InputBurp:
		return ParseBurp(bytes.NewReader(data))
	case config.InputHAR:
		return ParseHAR(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

// ReadFile loads and parses an export. It is fail-soft: the returned
// sequence is never nil and is empty whenever err is non-nil, so callers may
// range over it and only use err for diagnostics.
func ReadFile(path string, format config.InputFormat) (iter.Seq[Record], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Empty(), fmt.Errorf("failed to read %s: %w", path, err)
	}

	records, err := Parse(data, DetectFormat(path, data, format))
	if err != nil {
		return Empty(), err
	}
	return records, nil
}
