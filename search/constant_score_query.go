package search

import (
	"fmt"

	"github.com/hupe1980/lexis/index"
)

// ConstantScoreQuery gives every document accepted by a filter, or matched
// by a query, the query's boost as its score.
type ConstantScoreQuery struct {
	boost
	filter Filter
	query  Query
}

// NewConstantScoreQuery scores the documents of f.
func NewConstantScoreQuery(f Filter) (*ConstantScoreQuery, error) {
	if f == nil {
		return nil, invalidArg("filter", "must not be nil")
	}
	return &ConstantScoreQuery{boost: defaultBoost(), filter: f}, nil
}

// NewConstantScoreQueryFromQuery scores the documents matched by q,
// discarding q's own scores.
func NewConstantScoreQueryFromQuery(q Query) (*ConstantScoreQuery, error) {
	if q == nil {
		return nil, invalidArg("query", "must not be nil")
	}
	if err := CheckBoost(q.Boost()); err != nil {
		return nil, err
	}
	return &ConstantScoreQuery{boost: defaultBoost(), query: q}, nil
}

func (q *ConstantScoreQuery) WithBoost(b float64) Query {
	c := *q
	c.boost.value = b
	return &c
}

// Filter returns the wrapped filter, nil when a query is wrapped.
func (q *ConstantScoreQuery) Filter() Filter { return q.filter }

// Query returns the wrapped query, nil when a filter is wrapped.
func (q *ConstantScoreQuery) Query() Query { return q.query }

func (q *ConstantScoreQuery) Rewrite(r index.Reader) (Query, error) {
	if q.query == nil {
		return q, nil
	}
	rewritten, err := q.query.Rewrite(r)
	if err != nil {
		return nil, err
	}
	if rewritten == q.query {
		return q, nil
	}
	c := *q
	c.query = rewritten
	return &c, nil
}

func (q *ConstantScoreQuery) ExtractTerms(terms TermSet) error {
	if q.query != nil {
		return q.query.ExtractTerms(terms)
	}
	return nil
}

func (q *ConstantScoreQuery) Equal(other Query) bool {
	o, ok := other.(*ConstantScoreQuery)
	if !ok || q.value != o.value {
		return false
	}
	if q.filter != nil {
		return o.filter != nil && q.filter.Equal(o.filter)
	}
	return o.query != nil && q.query.Equal(o.query)
}

func (q *ConstantScoreQuery) Hash() uint64 {
	h := NewQueryHasher("constant").Float(q.value)
	if q.filter != nil {
		h.U64(q.filter.Hash())
	} else {
		h.U64(q.query.Hash())
	}
	return h.Sum()
}

func (q *ConstantScoreQuery) inner(field string) string {
	if q.filter != nil {
		return q.filter.String()
	}
	return q.query.String(field)
}

func (q *ConstantScoreQuery) String(field string) string {
	return "ConstantScore(" + q.inner(field) + ")" + q.boostString()
}

func (q *ConstantScoreQuery) CreateWeight(s Searcher) (Weight, error) {
	w := &constantWeight{q: q}
	if q.query != nil {
		inner, err := q.query.CreateWeight(s)
		if err != nil {
			return nil, err
		}
		w.inner = inner
	}
	return w, nil
}

// constantWeight takes part in query normalization like any other weight
// but never applies the norm: documents score exactly the boost.
type constantWeight struct {
	q         *ConstantScoreQuery
	inner     Weight
	queryNorm float64
}

func (w *constantWeight) Query() Query   { return w.q }
func (w *constantWeight) Value() float64 { return w.q.value }

func (w *constantWeight) SumOfSquaredWeights() (float64, error) {
	if w.inner != nil {
		// initializes the inner weight; its value is not used
		if _, err := w.inner.SumOfSquaredWeights(); err != nil {
			return 0, err
		}
	}
	return w.q.value * w.q.value, nil
}

func (w *constantWeight) Normalize(norm float64) {
	w.queryNorm = norm
	if w.inner != nil {
		w.inner.Normalize(1)
	}
}

func (w *constantWeight) ScoresDocsOutOfOrder() bool {
	return w.inner != nil && w.inner.ScoresDocsOutOfOrder()
}

func (w *constantWeight) iterator(r index.Reader, scoreDocsInOrder bool) (DocIDSetIterator, error) {
	if w.inner != nil {
		s, err := w.inner.Scorer(r, scoreDocsInOrder, false)
		if err != nil || s == nil {
			return nil, err
		}
		return s, nil
	}
	return filterIterator(w.q.filter, r)
}

func (w *constantWeight) Scorer(r index.Reader, scoreDocsInOrder, _ bool) (Scorer, error) {
	it, err := w.iterator(r, scoreDocsInOrder)
	if err != nil || it == nil {
		return nil, err
	}
	return newConstantScorer(it, w.q.value), nil
}

func (w *constantWeight) Explain(r index.Reader, doc int) (*Explanation, error) {
	it, err := w.iterator(r, true)
	if err != nil {
		return nil, err
	}
	exists := false
	if it != nil {
		got, err := it.Advance(doc)
		if err != nil {
			return nil, err
		}
		exists = got == doc
	}
	if !exists {
		return NewComplexExplanation(false, 0,
			fmt.Sprintf("ConstantScoreQuery(%s) doesn't match id %d", w.q.inner(""), doc)), nil
	}
	result := NewComplexExplanation(true, w.q.value, fmt.Sprintf("ConstantScoreQuery(%s), constant score:", w.q.inner("")))
	result.AddDetail(NewExplanation(w.q.value, "boost"))
	return result, nil
}

// constantScorer bulk path: the wrapped iterator is drained directly.
func (s *constantScorer) ScoreAll(c Collector) error {
	if err := c.SetScorer(s); err != nil {
		return err
	}
	for {
		doc, err := s.it.NextDoc()
		if err != nil {
			return err
		}
		if doc == NoMoreDocs {
			return nil
		}
		if err := c.Collect(doc); err != nil {
			return err
		}
	}
}

func (s *constantScorer) ScoreRange(c Collector, max, firstDoc int) (bool, error) {
	return scoreRange(s, c, max, firstDoc)
}
