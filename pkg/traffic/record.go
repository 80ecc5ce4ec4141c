package traffic

import "iter"

// Field is the captured text of one side of an exchange
type Field struct {
	Text    string
	Base64  bool // Text is the Base64 encoding of the raw bytes
	Present bool // Element existed and carried text
}

// Record represents a single HTTP request/response pair from an export
type Record struct {
	Index    int // Position in document order
	URL      string
	Method   string
	Status   string
	Request  Field
	Response Field
}

// FieldName identifies the side of a record a value came from
type FieldName string

const (
	FieldRequest  FieldName = "request"
	FieldResponse FieldName = "response"
)

// Fields returns the record's present fields in request, response order
func (r Record) Fields() []NamedField {
	fields := make([]NamedField, 0, 2)
	if r.Request.Present {
		fields = append(fields, NamedField{Name: FieldRequest, Field: r.Request})
	}
	if r.Response.Present {
		fields = append(fields, NamedField{Name: FieldResponse, Field: r.Response})
	}
	return fields
}

// NamedField pairs a field with its side
type NamedField struct {
	Name FieldName
	Field
}

// Empty is a sequence with no records
func Empty() iter.Seq[Record] {
	return func(yield func(Record) bool) {}
}

func sequence(records []Record) iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for _, r := range records {
			if !yield(r) {
				return
			}
		}
	}
}
