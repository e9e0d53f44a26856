package search

import (
	"math"

	"github.com/hupe1980/lexis/index"
)

// Weight is a query bound to a searcher. It holds the normalization state
// and creates one Scorer per segment.
//
// Weights are created per search. After Normalize they are read-only and
// may be shared by concurrent segment searches.
type Weight interface {
	// Query returns the query this weight was created from.
	Query() Query
	// Value is the weight's contribution to scores.
	Value() float64
	// SumOfSquaredWeights feeds the query norm.
	SumOfSquaredWeights() (float64, error)
	// Normalize applies the query norm.
	Normalize(norm float64)
	// Scorer returns a scorer for r, or nil when nothing can match.
	// scoreDocsInOrder requests increasing doc order; topScorer tells whether
	// the scorer will be driven by ScoreAll rather than nested in another scorer.
	Scorer(r index.Reader, scoreDocsInOrder, topScorer bool) (Scorer, error)
	// Explain describes the score of doc in r.
	Explain(r index.Reader, doc int) (*Explanation, error)
	// ScoresDocsOutOfOrder reports whether Scorer may return documents out
	// of order when scoreDocsInOrder is false.
	ScoresDocsOutOfOrder() bool
}

// CreateNormalizedWeight rewrites q against s, creates its weight and
// normalizes it with the searcher's similarity.
func CreateNormalizedWeight(q Query, s Searcher) (Weight, error) {
	if err := CheckBoost(q.Boost()); err != nil {
		return nil, err
	}
	rewritten, err := s.Rewrite(q)
	if err != nil {
		return nil, err
	}
	w, err := rewritten.CreateWeight(s)
	if err != nil {
		return nil, err
	}
	sum, err := w.SumOfSquaredWeights()
	if err != nil {
		return nil, err
	}
	norm := s.Similarity().QueryNorm(sum)
	if math.IsInf(norm, 0) || math.IsNaN(norm) {
		norm = 1
	}
	w.Normalize(norm)
	return w, nil
}

// scorerOrEmpty replaces a nil scorer with one matching nothing.
func scorerOrEmpty(s Scorer) Scorer {
	if s == nil {
		return newConstantScorer(newEmptyIterator(), 0)
	}
	return s
}
