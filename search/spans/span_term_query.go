package spans

import (
	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/search"
)

// SpanTermQuery matches every occurrence of a term.
type SpanTermQuery struct {
	boost
	term index.Term
}

// NewSpanTermQuery returns a span query for t.
func NewSpanTermQuery(t index.Term) *SpanTermQuery {
	return &SpanTermQuery{boost: boost{value: 1}, term: t}
}

func (q *SpanTermQuery) WithBoost(b float64) search.Query {
	c := *q
	c.value = b
	return &c
}

// Term returns the query term.
func (q *SpanTermQuery) Term() index.Term { return q.term }

func (q *SpanTermQuery) Field() string { return q.term.Field }

func (q *SpanTermQuery) Spans(r index.Reader) (Spans, error) {
	tp, err := r.TermPositions(q.term)
	if err != nil {
		return nil, err
	}
	return newTermSpans(tp), nil
}

func (q *SpanTermQuery) Rewrite(index.Reader) (search.Query, error) { return q, nil }

func (q *SpanTermQuery) ExtractTerms(terms search.TermSet) error {
	terms.Add(q.term)
	return nil
}

func (q *SpanTermQuery) CreateWeight(s search.Searcher) (search.Weight, error) {
	return newSpanWeight(q, s)
}

func (q *SpanTermQuery) Equal(other search.Query) bool {
	o, ok := other.(*SpanTermQuery)
	return ok && q.term == o.term && q.value == o.value
}

func (q *SpanTermQuery) Hash() uint64 {
	return search.NewQueryHasher("spanterm").Term(q.term).Float(q.value).Sum()
}

func (q *SpanTermQuery) String(field string) string {
	s := q.term.Text
	if q.term.Field != field {
		s = q.term.String()
	}
	return s + search.FormatBoost(q.value)
}
