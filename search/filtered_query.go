package search

import (
	"fmt"

	"github.com/hupe1980/lexis/index"
)

// FilteredQuery restricts a query to the documents accepted by a filter.
type FilteredQuery struct {
	boost
	query  Query
	filter Filter
}

// NewFilteredQuery returns q restricted to f.
func NewFilteredQuery(q Query, f Filter) (*FilteredQuery, error) {
	if q == nil {
		return nil, invalidArg("query", "must not be nil")
	}
	if f == nil {
		return nil, invalidArg("filter", "must not be nil")
	}
	if err := CheckBoost(q.Boost()); err != nil {
		return nil, err
	}
	return &FilteredQuery{boost: defaultBoost(), query: q, filter: f}, nil
}

func (q *FilteredQuery) WithBoost(b float64) Query {
	c := *q
	c.boost.value = b
	return &c
}

// Query returns the wrapped query.
func (q *FilteredQuery) Query() Query { return q.query }

// Filter returns the filter.
func (q *FilteredQuery) Filter() Filter { return q.filter }

func (q *FilteredQuery) Rewrite(r index.Reader) (Query, error) {
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

func (q *FilteredQuery) ExtractTerms(terms TermSet) error {
	return q.query.ExtractTerms(terms)
}

func (q *FilteredQuery) Equal(other Query) bool {
	o, ok := other.(*FilteredQuery)
	return ok && q.value == o.value && q.query.Equal(o.query) && q.filter.Equal(o.filter)
}

func (q *FilteredQuery) Hash() uint64 {
	return NewQueryHasher("filtered").Float(q.value).U64(q.query.Hash()).U64(q.filter.Hash()).Sum()
}

func (q *FilteredQuery) String(field string) string {
	return "filtered(" + q.query.String(field) + ")->" + q.filter.String() + q.boostString()
}

func (q *FilteredQuery) CreateWeight(s Searcher) (Weight, error) {
	inner, err := q.query.CreateWeight(s)
	if err != nil {
		return nil, err
	}
	return &filteredWeight{q: q, inner: inner}, nil
}

type filteredWeight struct {
	q     *FilteredQuery
	inner Weight
	value float64
}

func (w *filteredWeight) Query() Query               { return w.q }
func (w *filteredWeight) Value() float64             { return w.value }
func (w *filteredWeight) ScoresDocsOutOfOrder() bool { return false }

func (w *filteredWeight) SumOfSquaredWeights() (float64, error) {
	sum, err := w.inner.SumOfSquaredWeights()
	if err != nil {
		return 0, err
	}
	return sum * w.q.value * w.q.value, nil
}

func (w *filteredWeight) Normalize(norm float64) {
	w.inner.Normalize(norm)
	w.value = w.inner.Value() * w.q.value
}

func (w *filteredWeight) Scorer(r index.Reader, _, _ bool) (Scorer, error) {
	inner, err := w.inner.Scorer(r, true, false)
	if err != nil || inner == nil {
		return nil, err
	}
	it, err := filterIterator(w.q.filter, r)
	if err != nil || it == nil {
		return nil, err
	}
	return newFilteredScorer(inner, it, w.q.value), nil
}

func (w *filteredWeight) Explain(r index.Reader, doc int) (*Explanation, error) {
	inner, err := w.inner.Explain(r, doc)
	if err != nil {
		return nil, err
	}
	if w.q.value != 1 {
		pre := inner
		inner = NewExplanation(pre.Value*w.q.value, "product of:")
		inner.AddDetail(NewExplanation(w.q.value, "boost"))
		inner.AddDetail(pre)
	}
	it, err := filterIterator(w.q.filter, r)
	if err != nil {
		return nil, err
	}
	if it != nil {
		got, err := it.Advance(doc)
		if err != nil {
			return nil, err
		}
		if got == doc {
			return inner, nil
		}
	}
	result := NewExplanation(0, fmt.Sprintf("failure to match filter: %s", w.q.filter))
	result.AddDetail(inner)
	return result, nil
}

// filteredScorer intersects a scorer with a filter iterator.
type filteredScorer struct {
	scorer Scorer
	filter DocIDSetIterator
	boost  float64
	doc    int
}

func newFilteredScorer(s Scorer, filter DocIDSetIterator, boost float64) *filteredScorer {
	return &filteredScorer{scorer: s, filter: filter, boost: boost, doc: -1}
}

// advanceToCommon moves the lagging side until both agree.
func (s *filteredScorer) advanceToCommon(scorerDoc, filterDoc int) (int, error) {
	var err error
	for scorerDoc != filterDoc {
		if scorerDoc < filterDoc {
			scorerDoc, err = s.scorer.Advance(filterDoc)
		} else {
			filterDoc, err = s.filter.Advance(scorerDoc)
		}
		if err != nil {
			return scorerDoc, err
		}
	}
	return scorerDoc, nil
}

func (s *filteredScorer) DocID() int { return s.doc }

func (s *filteredScorer) NextDoc() (int, error) {
	if s.doc == NoMoreDocs {
		return NoMoreDocs, nil
	}
	filterDoc, err := s.filter.NextDoc()
	if err != nil {
		return s.doc, err
	}
	if filterDoc == NoMoreDocs {
		s.doc = NoMoreDocs
		return NoMoreDocs, nil
	}
	scorerDoc, err := s.scorer.NextDoc()
	if err != nil {
		return s.doc, err
	}
	return s.settle(scorerDoc, filterDoc)
}

func (s *filteredScorer) Advance(target int) (int, error) {
	CheckAdvance(s.doc, target)
	if s.doc == NoMoreDocs {
		return NoMoreDocs, nil
	}
	filterDoc, err := s.filter.Advance(target)
	if err != nil {
		return s.doc, err
	}
	if filterDoc == NoMoreDocs {
		s.doc = NoMoreDocs
		return NoMoreDocs, nil
	}
	scorerDoc, err := s.scorer.Advance(filterDoc)
	if err != nil {
		return s.doc, err
	}
	return s.settle(scorerDoc, filterDoc)
}

func (s *filteredScorer) settle(scorerDoc, filterDoc int) (int, error) {
	if scorerDoc == NoMoreDocs {
		s.doc = NoMoreDocs
		return NoMoreDocs, nil
	}
	doc, err := s.advanceToCommon(scorerDoc, filterDoc)
	if err != nil {
		return s.doc, err
	}
	s.doc = doc
	return doc, nil
}

func (s *filteredScorer) Score() float64 {
	CheckPositioned(s.doc)
	return s.boost * s.scorer.Score()
}

func (s *filteredScorer) Freq() float64 { return s.scorer.Freq() }
