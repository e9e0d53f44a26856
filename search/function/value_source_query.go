package function

import (
	"fmt"

	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/search"
)

// ValueSourceQuery matches every live document and scores it by the value
// of a ValueSource times the query weight.
type ValueSourceQuery struct {
	source ValueSource
	boost  float64
}

// NewValueSourceQuery returns a query scoring by src.
func NewValueSourceQuery(src ValueSource) (*ValueSourceQuery, error) {
	if src == nil {
		return nil, &search.ConfigError{Field: "source", Reason: "value source is required"}
	}
	return &ValueSourceQuery{source: src, boost: 1}, nil
}

// FieldType selects how NewFieldScoreQuery parses the field.
type FieldType int

const (
	// IntField parses decimal integers.
	IntField FieldType = iota
	// FloatField parses decimal floating point numbers.
	FloatField
)

func (t FieldType) String() string {
	switch t {
	case IntField:
		return "int"
	case FloatField:
		return "float"
	default:
		return fmt.Sprintf("FieldType(%d)", int(t))
	}
}

// NewFieldScoreQuery scores every document by the numeric value of field,
// read through the field cache fc (nil to read uncached).
func NewFieldScoreQuery(field string, t FieldType, fc *search.FieldCache) (*ValueSourceQuery, error) {
	switch t {
	case IntField:
		return NewValueSourceQuery(NewIntFieldSource(field, nil, fc))
	case FloatField:
		return NewValueSourceQuery(NewFloatFieldSource(field, nil, fc))
	default:
		return nil, &search.ConfigError{Field: "type", Reason: fmt.Sprintf("%s is not a numeric field type", t)}
	}
}

// Source returns the value source.
func (q *ValueSourceQuery) Source() ValueSource { return q.source }

func (q *ValueSourceQuery) Boost() float64 { return q.boost }

func (q *ValueSourceQuery) WithBoost(b float64) search.Query {
	c := *q
	c.boost = b
	return &c
}

func (q *ValueSourceQuery) Rewrite(index.Reader) (search.Query, error) { return q, nil }
func (q *ValueSourceQuery) ExtractTerms(search.TermSet) error          { return nil }

func (q *ValueSourceQuery) Equal(other search.Query) bool {
	o, ok := other.(*ValueSourceQuery)
	return ok && q.boost == o.boost && q.source.Equal(o.source)
}

func (q *ValueSourceQuery) Hash() uint64 {
	return search.NewQueryHasher("valuesource").Float(q.boost).U64(q.source.Hash()).Sum()
}

func (q *ValueSourceQuery) String(string) string {
	return q.source.Description() + search.FormatBoost(q.boost)
}

func (q *ValueSourceQuery) CreateWeight(search.Searcher) (search.Weight, error) {
	return &valueSourceWeight{q: q}, nil
}

type valueSourceWeight struct {
	q           *ValueSourceQuery
	queryNorm   float64
	queryWeight float64
}

func (w *valueSourceWeight) Query() search.Query        { return w.q }
func (w *valueSourceWeight) Value() float64             { return w.queryWeight }
func (w *valueSourceWeight) ScoresDocsOutOfOrder() bool { return false }

func (w *valueSourceWeight) SumOfSquaredWeights() (float64, error) {
	w.queryWeight = w.q.boost
	return w.queryWeight * w.queryWeight, nil
}

func (w *valueSourceWeight) Normalize(norm float64) {
	w.queryNorm = norm
	w.queryWeight *= norm
}

func (w *valueSourceWeight) Scorer(r index.Reader, _, _ bool) (search.Scorer, error) {
	vals, err := w.q.source.Values(r)
	if err != nil {
		return nil, err
	}
	return &valueSourceScorer{r: r, vals: vals, weight: w.queryWeight, doc: -1}, nil
}

func (w *valueSourceWeight) Explain(r index.Reader, doc int) (*search.Explanation, error) {
	vals, err := w.q.source.Values(r)
	if err != nil {
		return nil, err
	}
	result := search.NewComplexExplanation(true, w.queryWeight*vals.Float(doc), w.q.String("")+", product of:")
	result.AddDetail(explainValue(vals, doc))
	result.AddDetail(search.NewExplanation(w.q.boost, "boost"))
	result.AddDetail(search.NewExplanation(w.queryNorm, "queryNorm"))
	return result, nil
}

// valueSourceScorer walks every live document.
type valueSourceScorer struct {
	r      index.Reader
	vals   DocValues
	weight float64
	doc    int
}

func (s *valueSourceScorer) DocID() int    { return s.doc }
func (s *valueSourceScorer) Freq() float64 { return 1 }

func (s *valueSourceScorer) NextDoc() (int, error) {
	return s.settle(s.doc + 1), nil
}

func (s *valueSourceScorer) Advance(target int) (int, error) {
	search.CheckAdvance(s.doc, target)
	return s.settle(target), nil
}

func (s *valueSourceScorer) settle(doc int) int {
	if s.doc == search.NoMoreDocs {
		return s.doc
	}
	maxDoc := s.r.MaxDoc()
	for doc < maxDoc && s.r.IsDeleted(doc) {
		doc++
	}
	if doc >= maxDoc {
		doc = search.NoMoreDocs
	}
	s.doc = doc
	return doc
}

func (s *valueSourceScorer) Score() float64 {
	search.CheckPositioned(s.doc)
	return s.weight * s.vals.Float(s.doc)
}
