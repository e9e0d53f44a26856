package search

import (
	"cmp"
	"strings"
)

// SortType selects how a SortField orders documents.
type SortType int

const (
	// SortScore orders by relevance, best first.
	SortScore SortType = iota
	// SortDoc orders by global doc id, lowest first.
	SortDoc
	// SortString orders by the field's term.
	SortString
	// SortInt orders by the field's term parsed as an int.
	SortInt
	// SortFloat orders by the field's term parsed as a float64.
	SortFloat
)

func (t SortType) String() string {
	switch t {
	case SortScore:
		return "score"
	case SortDoc:
		return "doc"
	case SortString:
		return "string"
	case SortInt:
		return "int"
	case SortFloat:
		return "float"
	default:
		return "unknown"
	}
}

// SortField is one key of a Sort.
type SortField struct {
	Field   string
	Type    SortType
	Reverse bool
}

var (
	// FieldScore sorts by relevance.
	FieldScore = SortField{Type: SortScore}
	// FieldDocOrder sorts by index order.
	FieldDocOrder = SortField{Type: SortDoc}
)

// NewSortField returns a sort key on field. Field-valued types need a field.
func NewSortField(field string, t SortType, reverse bool) (SortField, error) {
	switch t {
	case SortScore, SortDoc:
	case SortString, SortInt, SortFloat:
		if field == "" {
			return SortField{}, invalidArg("field", "required for %s sort", t)
		}
	default:
		return SortField{}, invalidArg("type", "unknown sort type %d", int(t))
	}
	return SortField{Field: field, Type: t, Reverse: reverse}, nil
}

func (f SortField) String() string {
	var s string
	switch f.Type {
	case SortScore:
		s = "<score>"
	case SortDoc:
		s = "<doc>"
	default:
		s = "<" + f.Type.String() + ": \"" + f.Field + "\">"
	}
	if f.Reverse {
		s += "!"
	}
	return s
}

// compareValues orders two values produced by this field's comparator,
// before the reverse flag is applied. Scores compare best first.
func (f SortField) compareValues(a, b any) int {
	switch f.Type {
	case SortScore:
		return cmp.Compare(b.(float64), a.(float64))
	case SortDoc, SortInt:
		return cmp.Compare(a.(int), b.(int))
	case SortFloat:
		return cmp.Compare(a.(float64), b.(float64))
	default:
		return strings.Compare(a.(string), b.(string))
	}
}

// Sort is an ordered list of sort keys.
type Sort struct {
	fields []SortField
}

// NewSort returns a sort over fields. With no fields it sorts by relevance.
func NewSort(fields ...SortField) *Sort {
	if len(fields) == 0 {
		fields = []SortField{FieldScore}
	}
	return &Sort{fields: append([]SortField(nil), fields...)}
}

// RelevanceSort orders by score, best first.
func RelevanceSort() *Sort { return NewSort(FieldScore) }

// IndexOrderSort orders by doc id.
func IndexOrderSort() *Sort { return NewSort(FieldDocOrder) }

// Fields returns a copy of the sort keys.
func (s *Sort) Fields() []SortField { return append([]SortField(nil), s.fields...) }

func (s *Sort) String() string {
	parts := make([]string, len(s.fields))
	for i, f := range s.fields {
		parts[i] = f.String()
	}
	return strings.Join(parts, ",")
}

// FieldDoc is a hit of a sorted search with its sort values, one per
// SortField. SortDoc values are global doc ids.
type FieldDoc struct {
	ScoreDoc
	Fields []any
}

// TopFieldDocs is the result of a sorted search.
type TopFieldDocs struct {
	TotalHits  int
	FieldDocs  []FieldDoc
	SortFields []SortField
	// MaxScore is NaN unless max score tracking was requested and something matched.
	MaxScore float64
}

// fieldDocLess orders merged hits worst first by their sort values; equal
// values put the higher doc first so the lower doc wins.
func fieldDocLess(fields []SortField) func(a, b FieldDoc) bool {
	return func(a, b FieldDoc) bool {
		if c := compareFieldDocs(fields, a, b); c != 0 {
			return c > 0
		}
		return a.Doc > b.Doc
	}
}

func compareFieldDocs(fields []SortField, a, b FieldDoc) int {
	for i, f := range fields {
		c := f.compareValues(a.Fields[i], b.Fields[i])
		if f.Reverse {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}
