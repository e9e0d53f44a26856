package spans

import (
	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/search"
)

// FieldMaskingSpanQuery reports the spans of a query on another field as if
// they came from field, so that near and or queries can combine positions
// of parallel fields. Scoring and norms stay those of the masked query.
type FieldMaskingSpanQuery struct {
	boost
	masked SpanQuery
	field  string
}

// NewFieldMaskingSpanQuery masks q as field.
func NewFieldMaskingSpanQuery(q SpanQuery, field string) (*FieldMaskingSpanQuery, error) {
	if q == nil {
		return nil, &search.ConfigError{Field: "query", Reason: "query is required"}
	}
	if err := search.CheckBoost(q.Boost()); err != nil {
		return nil, err
	}
	return &FieldMaskingSpanQuery{boost: boost{value: 1}, masked: q, field: field}, nil
}

// Masked returns the wrapped query.
func (q *FieldMaskingSpanQuery) Masked() SpanQuery { return q.masked }

func (q *FieldMaskingSpanQuery) Field() string { return q.field }

func (q *FieldMaskingSpanQuery) WithBoost(b float64) search.Query {
	c := *q
	c.value = b
	return &c
}

func (q *FieldMaskingSpanQuery) Spans(r index.Reader) (Spans, error) { return q.masked.Spans(r) }

func (q *FieldMaskingSpanQuery) ExtractTerms(terms search.TermSet) error {
	return q.masked.ExtractTerms(terms)
}

func (q *FieldMaskingSpanQuery) CreateWeight(s search.Searcher) (search.Weight, error) {
	return q.masked.CreateWeight(s)
}

func (q *FieldMaskingSpanQuery) Rewrite(r index.Reader) (search.Query, error) {
	rw, changed, err := rewriteClauses(r, []SpanQuery{q.masked})
	if err != nil || !changed {
		return q, err
	}
	c := *q
	c.masked = rw[0]
	return &c, nil
}

func (q *FieldMaskingSpanQuery) Equal(other search.Query) bool {
	o, ok := other.(*FieldMaskingSpanQuery)
	return ok && q.value == o.value && q.field == o.field && q.masked.Equal(o.masked)
}

func (q *FieldMaskingSpanQuery) Hash() uint64 {
	return search.NewQueryHasher("fieldmask").Float(q.value).Str(q.field).U64(q.masked.Hash()).Sum()
}

func (q *FieldMaskingSpanQuery) String(field string) string {
	return "mask(" + q.masked.String(field) + ")" + search.FormatBoost(q.value) + " as " + q.field
}
