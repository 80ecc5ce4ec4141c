package decode

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// CompressionType represents the type of compression used
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionGzip
	CompressionDeflate
	CompressionBrotli
	CompressionZstd
	CompressionUnknown
)

// maxDecompressedSize caps a single decompressed body
const maxDecompressedSize = 64 << 20

// String returns the string representation of compression type
func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionDeflate:
		return "deflate"
	case CompressionBrotli:
		return "br"
	case CompressionZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// DetectCompressionType maps a single Content-Encoding token to a type
func DetectCompressionType(encoding string) CompressionType {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return CompressionNone
	case "gzip", "x-gzip":
		return CompressionGzip
	case "deflate":
		return CompressionDeflate
	case "br", "brotli":
		return CompressionBrotli
	case "zstd":
		return CompressionZstd
	default:
		return CompressionUnknown
	}
}

// DecompressBody undoes a Content-Encoding header value. Codings are listed
// in the order they were applied, so they are removed right to left.
func DecompressBody(body []byte, contentEncoding string) ([]byte, error) {
	codings := strings.Split(contentEncoding, ",")
	for i := len(codings) - 1; i >= 0; i-- {
		var err error
		switch t := DetectCompressionType(codings[i]); t {
		case CompressionNone:
			continue
		case CompressionGzip:
			body, err = decompressGzip(body)
		case CompressionDeflate:
			body, err = decompressDeflate(body)
		case CompressionBrotli:
			body, err = decompressBrotli(body)
		case CompressionZstd:
			body, err = decompressZstd(body)
		default:
			return nil, fmt.Errorf("unknown compression type: %s", strings.TrimSpace(codings[i]))
		}
		if err != nil {
			return nil, err
		}
	}
	return body, nil
}

func decompressGzip(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer reader.Close()

	return readLimited(reader, "gzip")
}

// decompressDeflate accepts both zlib-wrapped and raw deflate streams;
// servers send either for "deflate"
func decompressDeflate(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	if reader, err := zlib.NewReader(bytes.NewReader(data)); err == nil {
		defer reader.Close()
		if result, err := readLimited(reader, "deflate"); err == nil {
			return result, nil
		}
	}

	reader := flate.NewReader(bytes.NewReader(data))
	defer reader.Close()

	return readLimited(reader, "deflate")
}

func decompressBrotli(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	return readLimited(brotli.NewReader(bytes.NewReader(data)), "brotli")
}

func decompressZstd(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	decoder, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer decoder.Close()

	return readLimited(decoder, "zstd")
}

func readLimited(r io.Reader, kind string) ([]byte, error) {
	result, err := io.ReadAll(io.LimitReader(r, maxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s data: %w", kind, err)
	}
	if len(result) > maxDecompressedSize {
		return nil, fmt.Errorf("decompressed %s data exceeds %d bytes", kind, maxDecompressedSize)
	}
	return result, nil
}
