package search

import (
	"github.com/hupe1980/lexis/index"
)

// MatchAllDocsQuery matches every live document.
type MatchAllDocsQuery struct {
	boost
}

// NewMatchAllDocsQuery returns a query matching every document.
func NewMatchAllDocsQuery() *MatchAllDocsQuery {
	return &MatchAllDocsQuery{boost: defaultBoost()}
}

func (q *MatchAllDocsQuery) WithBoost(b float64) Query {
	c := *q
	c.boost.value = b
	return &c
}

func (q *MatchAllDocsQuery) Rewrite(index.Reader) (Query, error) { return q, nil }
func (q *MatchAllDocsQuery) ExtractTerms(TermSet) error          { return nil }

func (q *MatchAllDocsQuery) Equal(other Query) bool {
	o, ok := other.(*MatchAllDocsQuery)
	return ok && q.value == o.value
}

func (q *MatchAllDocsQuery) Hash() uint64 {
	return NewQueryHasher("matchall").Float(q.value).Sum()
}

func (q *MatchAllDocsQuery) String(string) string { return "*:*" + q.boostString() }

func (q *MatchAllDocsQuery) CreateWeight(Searcher) (Weight, error) {
	return &matchAllWeight{q: q}, nil
}

type matchAllWeight struct {
	q           *MatchAllDocsQuery
	queryWeight float64
	queryNorm   float64
}

func (w *matchAllWeight) Query() Query               { return w.q }
func (w *matchAllWeight) Value() float64             { return w.queryWeight }
func (w *matchAllWeight) ScoresDocsOutOfOrder() bool { return false }

func (w *matchAllWeight) SumOfSquaredWeights() (float64, error) {
	w.queryWeight = w.q.value
	return w.queryWeight * w.queryWeight, nil
}

func (w *matchAllWeight) Normalize(norm float64) {
	w.queryNorm = norm
	w.queryWeight *= norm
}

func (w *matchAllWeight) Scorer(r index.Reader, _, _ bool) (Scorer, error) {
	return newConstantScorer(newTermDocsIterator(index.AllDocs(r)), w.queryWeight), nil
}

func (w *matchAllWeight) Explain(r index.Reader, doc int) (*Explanation, error) {
	match := doc >= 0 && doc < r.MaxDoc() && !r.IsDeleted(doc)
	result := NewComplexExplanation(match, w.queryWeight, "MatchAllDocsQuery, product of:")
	if !match {
		result.Value = 0
	}
	if w.q.value != 1 {
		result.AddDetail(NewExplanation(w.q.value, "boost"))
	}
	result.AddDetail(NewExplanation(w.queryNorm, "queryNorm"))
	return result, nil
}
