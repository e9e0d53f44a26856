// Package function scores documents by per-document values, such as numeric
// fields read through the field cache, optionally combined with the score of
// a regular query.
package function

import (
	"fmt"
	"strconv"

	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/search"
)

// ValueSource produces a value for every document of a segment.
type ValueSource interface {
	// Values returns the values of r's documents.
	Values(r index.Reader) (DocValues, error)
	// Description names the source, for example "int(price)".
	Description() string
	Equal(other ValueSource) bool
	Hash() uint64
}

// DocValues are the values of one segment, addressed by segment-local doc id.
type DocValues interface {
	Float(doc int) float64
	Int(doc int) int
	Str(doc int) string
	// Describe renders the value of doc, for example "int(price)=12".
	Describe(doc int) string
}

// explainValue describes the value of doc as an explanation leaf.
func explainValue(v DocValues, doc int) *search.Explanation {
	return search.NewExplanation(v.Float(doc), v.Describe(doc))
}

// IntFieldSource reads an integer field through the field cache.
type IntFieldSource struct {
	field  string
	parser search.IntParser
	fc     *search.FieldCache
}

// NewIntFieldSource returns a source for field. A nil parser parses decimal
// text and a nil cache un-inverts the field on every call.
func NewIntFieldSource(field string, parser search.IntParser, fc *search.FieldCache) *IntFieldSource {
	if parser == nil {
		parser = search.DecimalIntParser{}
	}
	return &IntFieldSource{field: field, parser: parser, fc: fc}
}

func (s *IntFieldSource) Description() string { return "int(" + s.field + ")" }

func (s *IntFieldSource) Values(r index.Reader) (DocValues, error) {
	vals, err := s.fc.Ints(r, s.field, s.parser)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Description(), err)
	}
	return intValues{desc: s.Description(), vals: vals}, nil
}

func (s *IntFieldSource) Equal(other ValueSource) bool {
	o, ok := other.(*IntFieldSource)
	return ok && s.field == o.field && s.parser == o.parser
}

func (s *IntFieldSource) Hash() uint64 {
	return search.NewQueryHasher("intsource").Str(s.field).Str(fmt.Sprintf("%T", s.parser)).Sum()
}

type intValues struct {
	desc string
	vals []int
}

func (v intValues) Float(doc int) float64   { return float64(v.vals[doc]) }
func (v intValues) Int(doc int) int         { return v.vals[doc] }
func (v intValues) Str(doc int) string      { return strconv.Itoa(v.vals[doc]) }
func (v intValues) Describe(doc int) string { return v.desc + "=" + v.Str(doc) }

// FloatFieldSource reads a floating point field through the field cache.
type FloatFieldSource struct {
	field  string
	parser search.FloatParser
	fc     *search.FieldCache
}

// NewFloatFieldSource returns a source for field. A nil parser parses
// decimal text and a nil cache un-inverts the field on every call.
func NewFloatFieldSource(field string, parser search.FloatParser, fc *search.FieldCache) *FloatFieldSource {
	if parser == nil {
		parser = search.DecimalFloatParser{}
	}
	return &FloatFieldSource{field: field, parser: parser, fc: fc}
}

func (s *FloatFieldSource) Description() string { return "float(" + s.field + ")" }

func (s *FloatFieldSource) Values(r index.Reader) (DocValues, error) {
	vals, err := s.fc.Floats(r, s.field, s.parser)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Description(), err)
	}
	return floatValues{desc: s.Description(), vals: vals}, nil
}

func (s *FloatFieldSource) Equal(other ValueSource) bool {
	o, ok := other.(*FloatFieldSource)
	return ok && s.field == o.field && s.parser == o.parser
}

func (s *FloatFieldSource) Hash() uint64 {
	return search.NewQueryHasher("floatsource").Str(s.field).Str(fmt.Sprintf("%T", s.parser)).Sum()
}

type floatValues struct {
	desc string
	vals []float64
}

func (v floatValues) Float(doc int) float64 { return v.vals[doc] }
func (v floatValues) Int(doc int) int       { return int(v.vals[doc]) }

func (v floatValues) Str(doc int) string {
	return strconv.FormatFloat(v.vals[doc], 'g', -1, 64)
}

func (v floatValues) Describe(doc int) string { return v.desc + "=" + v.Str(doc) }

// OrdFieldSource uses the rank of a document's term among all terms of the
// field as its value: 1 for the smallest term, 0 for documents without one.
//
// Ranks are per segment, so values of different segments are not
// comparable.
type OrdFieldSource struct {
	field   string
	reverse bool
	fc      *search.FieldCache
}

// NewOrdFieldSource returns an ord source over field.
func NewOrdFieldSource(field string, fc *search.FieldCache) *OrdFieldSource {
	return &OrdFieldSource{field: field, fc: fc}
}

// NewReverseOrdFieldSource is NewOrdFieldSource counting from the largest
// term: n - ord, where n is the number of distinct terms plus one.
func NewReverseOrdFieldSource(field string, fc *search.FieldCache) *OrdFieldSource {
	return &OrdFieldSource{field: field, reverse: true, fc: fc}
}

func (s *OrdFieldSource) Description() string {
	if s.reverse {
		return "rord(" + s.field + ")"
	}
	return "ord(" + s.field + ")"
}

func (s *OrdFieldSource) Values(r index.Reader) (DocValues, error) {
	si, err := s.fc.StringIndex(r, s.field)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Description(), err)
	}
	return ordValues{desc: s.Description(), si: si, reverse: s.reverse}, nil
}

func (s *OrdFieldSource) Equal(other ValueSource) bool {
	o, ok := other.(*OrdFieldSource)
	return ok && s.field == o.field && s.reverse == o.reverse
}

func (s *OrdFieldSource) Hash() uint64 {
	return search.NewQueryHasher("ordsource").Str(s.field).Bool(s.reverse).Sum()
}

type ordValues struct {
	desc    string
	si      *search.StringIndex
	reverse bool
}

func (v ordValues) Int(doc int) int {
	if v.reverse {
		return len(v.si.Lookup) - v.si.Order[doc]
	}
	return v.si.Order[doc]
}

func (v ordValues) Float(doc int) float64   { return float64(v.Int(doc)) }
func (v ordValues) Str(doc int) string      { return strconv.Itoa(v.Int(doc)) }
func (v ordValues) Describe(doc int) string { return v.desc + "=" + v.Str(doc) }

// ConstValueSource gives every document the same value.
type ConstValueSource struct {
	value float64
}

// NewConstValueSource returns a source of v.
func NewConstValueSource(v float64) *ConstValueSource { return &ConstValueSource{value: v} }

func (s *ConstValueSource) Description() string {
	return "const(" + strconv.FormatFloat(s.value, 'g', -1, 64) + ")"
}

func (s *ConstValueSource) Values(index.Reader) (DocValues, error) {
	return constValues{desc: s.Description(), value: s.value}, nil
}

func (s *ConstValueSource) Equal(other ValueSource) bool {
	o, ok := other.(*ConstValueSource)
	return ok && s.value == o.value
}

func (s *ConstValueSource) Hash() uint64 {
	return search.NewQueryHasher("constsource").Float(s.value).Sum()
}

type constValues struct {
	desc  string
	value float64
}

func (v constValues) Float(int) float64   { return v.value }
func (v constValues) Int(int) int         { return int(v.value) }
func (v constValues) Str(int) string      { return strconv.FormatFloat(v.value, 'g', -1, 64) }
func (v constValues) Describe(int) string { return v.desc }
