package models

import (
	"encoding/json"
	"regexp"
)

// Field is one logical product field extracted in DOM mode.
type Field string

const (
	FieldPrice       Field = "price"
	FieldPriceOld    Field = "priceOld"
	FieldRating      Field = "rating"
	FieldReviewCount Field = "reviewCount"
)

// FieldOrder is the fixed order in which fields are reported.
var FieldOrder = []Field{FieldPrice, FieldPriceOld, FieldRating, FieldReviewCount}

var fieldFormats = map[Field]*regexp.Regexp{
	FieldPrice:       regexp.MustCompile(`^[0-9.,]+$`),
	FieldPriceOld:    regexp.MustCompile(`^[0-9.,]+$`),
	FieldRating:      regexp.MustCompile(`^[0-9]\.[0-9]$`),
	FieldReviewCount: regexp.MustCompile(`^[0-9]+$`),
}

// ValidFieldValue reports whether v satisfies the format of field f.
func ValidFieldValue(f Field, v string) bool {
	re, ok := fieldFormats[f]
	return ok && re.MatchString(v)
}

// PartialRecord holds whichever product fields could be recovered from a
// page. A missing key means the field is absent; a present key always
// satisfies its field format.
type PartialRecord struct {
	values map[Field]string
}

// NewPartialRecord returns an empty record.
func NewPartialRecord() PartialRecord {
	return PartialRecord{values: make(map[Field]string, len(FieldOrder))}
}

// Set stores v for f. Values that violate the field format are rejected and
// leave the field absent.
func (r *PartialRecord) Set(f Field, v string) bool {
	if !ValidFieldValue(f, v) {
		return false
	}
	if r.values == nil {
		r.values = make(map[Field]string, len(FieldOrder))
	}
	r.values[f] = v
	return true
}

// Get returns the value for f and whether it is present.
func (r PartialRecord) Get(f Field) (string, bool) {
	v, ok := r.values[f]
	return v, ok
}

// Len is the number of present fields.
func (r PartialRecord) Len() int { return len(r.values) }

// MarshalJSON emits present fields only.
func (r PartialRecord) MarshalJSON() ([]byte, error) {
	m := make(map[string]string, len(r.values))
	for f, v := range r.values {
		m[string(f)] = v
	}
	return json.Marshal(m)
}

// UnmarshalJSON accepts the MarshalJSON form, dropping unknown fields and
// values that break their format.
func (r *PartialRecord) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*r = NewPartialRecord()
	for k, v := range m {
		r.Set(Field(k), v)
	}
	return nil
}
