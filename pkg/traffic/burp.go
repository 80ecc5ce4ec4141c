package traffic

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
)

// burpExport mirrors a Burp Suite "Save items" XML export. The root element
// name is not checked; only its direct item children are read.
type burpExport struct {
	Items []burpItem `xml:"item"`
}

type burpItem struct {
	URL      string     `xml:"url"`
	Method   string     `xml:"method"`
	Status   string     `xml:"status"`
	Request  []burpField `xml:"request"`
	Response []burpField `xml:"response"`
}

type burpField struct {
	Base64 string `xml:"base64,attr"`
	Text   string `xml:",chardata"`
}

// firstField converts the first of possibly repeated elements
func firstField(fields []burpField) Field {
	if len(fields) == 0 {
		return Field{}
	}
	return fields[0].field()
}

func (f burpField) field() Field {
	if f.Text == "" {
		return Field{}
	}
	return Field{
		Text:    f.Text,
		Base64:  f.Base64 == "true",
		Present: true,
	}
}

var errTrailingData = errors.New("junk after document element")

// ParseBurp parses a whole Burp XML export and returns its items in document
// order. Nothing is yielded unless the entire document is well formed.
func ParseBurp(r io.Reader) (iter.Seq[Record], error) {
	d := xml.NewDecoder(r)
	d.CharsetReader = charsetReader

	var export burpExport
	if err := d.Decode(&export); err != nil {
		return nil, fmt.Errorf("failed to parse burp export: %w", err)
	}
	if err := ensureEOF(d); err != nil {
		return nil, fmt.Errorf("failed to parse burp export: %w", err)
	}

	records := make([]Record, 0, len(export.Items))
	for i, item := range export.Items {
		records = append(records, Record{
			Index:    i,
			URL:      strings.TrimSpace(item.URL),
			Method:   strings.TrimSpace(item.Method),
			Status:   strings.TrimSpace(item.Status),
			Request:  firstField(item.Request),
			Response: firstField(item.Response),
		})
	}
	return sequence(records), nil
}

// ensureEOF rejects elements or text after the root element
func ensureEOF(d *xml.Decoder) error {
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return errTrailingData
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return errTrailingData
			}
		}
	}
}

// charsetReader decodes documents declaring a non UTF-8 encoding
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(label) {
	case "us-ascii", "ascii":
		return input, nil
	}

	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}
