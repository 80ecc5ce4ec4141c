package decode

import (
	"bytes"
	"io"
	"net/http/httputil"
	"strings"
)

// Message is a captured HTTP message split into its head and body
type Message struct {
	StartLine        string
	ContentEncoding  string
	TransferEncoding string
	Body             []byte
}

var httpMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS", "TRACE", "CONNECT"}

// SplitMessage parses the head of a raw HTTP request or response. ok is
// false when content does not start with a status or request line followed
// by a blank line.
func SplitMessage(content []byte) (msg Message, ok bool) {
	head, body, found := cutHead(content)
	if !found {
		return Message{}, false
	}

	lines := strings.Split(string(head), "\n")
	start := strings.TrimRight(lines[0], "\r")
	if !isStartLine(start) {
		return Message{}, false
	}
	msg.StartLine = start

	for _, line := range lines[1:] {
		name, value, found := strings.Cut(strings.TrimRight(line, "\r"), ":")
		if !found {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "content-encoding":
			msg.ContentEncoding = strings.TrimSpace(value)
		case "transfer-encoding":
			msg.TransferEncoding = strings.TrimSpace(value)
		}
	}
	msg.Body = body
	return msg, true
}

func cutHead(content []byte) (head, body []byte, found bool) {
	if i := bytes.Index(content, []byte("\r\n\r\n")); i >= 0 {
		return content[:i], content[i+4:], true
	}
	if i := bytes.Index(content, []byte("\n\n")); i >= 0 {
		return content[:i], content[i+2:], true
	}
	return nil, nil, false
}

func isStartLine(line string) bool {
	if strings.HasPrefix(line, "HTTP/") {
		return true
	}
	method, rest, found := strings.Cut(line, " ")
	if !found || !strings.Contains(rest, " HTTP/") {
		return false
	}
	for _, m := range httpMethods {
		if method == m {
			return true
		}
	}
	return false
}

// DecodedBody removes chunked framing and content codings from the body.
// ok is false when the message carries neither or when decoding fails.
func (m Message) DecodedBody() ([]byte, bool) {
	body := m.Body
	changed := false

	if strings.Contains(strings.ToLower(m.TransferEncoding), "chunked") {
		dechunked, err := io.ReadAll(httputil.NewChunkedReader(bytes.NewReader(body)))
		if err != nil {
			return nil, false
		}
		body = dechunked
		changed = true
	}

	if DetectCompressionType(m.ContentEncoding) != CompressionNone {
		decompressed, err := DecompressBody(body, m.ContentEncoding)
		if err != nil {
			return nil, false
		}
		body = decompressed
		changed = true
	}

	return body, changed
}

// Expand returns content followed by its decoded body when content is an
// HTTP message with chunked or compressed framing
func Expand(content []byte) [][]byte {
	blobs := [][]byte{content}

	msg, ok := SplitMessage(content)
	if !ok {
		return blobs
	}
	if body, ok := msg.DecodedBody(); ok {
		blobs = append(blobs, body)
	}
	return blobs
}
