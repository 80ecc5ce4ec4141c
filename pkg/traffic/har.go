package traffic

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	errInvalidJSON = errors.New("invalid JSON")
	errNoEntries   = errors.New("missing log.entries array")
)

// ParseHAR reads a HAR 1.2 document. Requests are rebuilt as raw HTTP
// messages; responses keep their Base64 flag from content.encoding.
func ParseHAR(data []byte) (iter.Seq[Record], error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("failed to parse har: %w", errInvalidJSON)
	}

	entries := gjson.GetBytes(data, "log.entries")
	if !entries.IsArray() {
		return nil, fmt.Errorf("failed to parse har: %w", errNoEntries)
	}

	var records []Record
	entries.ForEach(func(_, entry gjson.Result) bool {
		records = append(records, harRecord(len(records), entry))
		return true
	})
	return sequence(records), nil
}

func harRecord(index int, entry gjson.Result) Record {
	req := entry.Get("request")
	resp := entry.Get("response")

	rec := Record{
		Index:  index,
		URL:    req.Get("url").String(),
		Method: req.Get("method").String(),
	}
	if req.IsObject() {
		rec.Request = Field{Text: rawRequest(req), Present: true}
	}
	if resp.IsObject() {
		rec.Status = resp.Get("status").String()
		rec.Response = responseField(resp)
	}
	return rec
}

// rawRequest rebuilds "METHOD URL PROTO", the headers and the post body
func rawRequest(req gjson.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\r\n",
		req.Get("method").String(),
		req.Get("url").String(),
		convertVersionToProto(req.Get("httpVersion").String()),
	)
	writeHeaders(&b, req.Get("headers"))
	b.WriteString("\r\n")
	b.WriteString(req.Get("postData.text").String())
	return b.String()
}

func responseField(resp gjson.Result) Field {
	content := resp.Get("content")
	text := content.Get("text").String()

	if content.Get("encoding").String() == "base64" {
		if text == "" {
			return Field{}
		}
		return Field{Text: text, Base64: true, Present: true}
	}

	var b strings.Builder
	statusLine := fmt.Sprintf("%s %s %s",
		convertVersionToProto(resp.Get("httpVersion").String()),
		resp.Get("status").String(),
		resp.Get("statusText").String(),
	)
	b.WriteString(strings.TrimSpace(statusLine))
	b.WriteString("\r\n")
	writeHeaders(&b, resp.Get("headers"))
	b.WriteString("\r\n")
	b.WriteString(text)
	return Field{Text: b.String(), Present: true}
}

func writeHeaders(b *strings.Builder, headers gjson.Result) {
	headers.ForEach(func(_, h gjson.Result) bool {
		name := h.Get("name").String()
		if name != "" {
			fmt.Fprintf(b, "%s: %s\r\n", name, h.Get("value").String())
		}
		return true
	})
}

// convertVersionToProto maps HAR httpVersion values to a status-line protocol
func convertVersionToProto(version string) string {
	switch strings.ToLower(version) {
	case "", "1.1", "http/1.1":
		return "HTTP/1.1"
	case "1.0", "http/1.0":
		return "HTTP/1.0"
	case "2", "2.0", "h2", "http/2", "http/2.0":
		return "HTTP/2.0"
	case "h3", "http/3", "http/3.0":
		return "HTTP/3.0"
	default:
		return version
	}
}
