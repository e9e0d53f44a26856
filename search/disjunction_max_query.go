package search

import (
	"strconv"
	"strings"

	"github.com/hupe1980/lexis/index"
)

// DisjunctionMaxQuery scores a document by its best matching disjunct,
// plus tieBreaker times the scores of the other matching disjuncts.
type DisjunctionMaxQuery struct {
	boost
	disjuncts  []Query
	tieBreaker float64
}

// NewDisjunctionMaxQuery returns a query over disjuncts.
func NewDisjunctionMaxQuery(tieBreaker float64, disjuncts ...Query) (*DisjunctionMaxQuery, error) {
	if len(disjuncts) == 0 {
		return nil, invalidArg("disjuncts", "need at least one disjunct")
	}
	if tieBreaker < 0 || tieBreaker > 1 {
		return nil, invalidArg("tieBreaker", "must be in [0, 1], got %g", tieBreaker)
	}
	for i, d := range disjuncts {
		if d == nil {
			return nil, invalidArg("disjuncts", "disjunct %d is nil", i)
		}
		if err := CheckBoost(d.Boost()); err != nil {
			return nil, err
		}
	}
	return &DisjunctionMaxQuery{
		boost:      defaultBoost(),
		disjuncts:  append([]Query(nil), disjuncts...),
		tieBreaker: tieBreaker,
	}, nil
}

func (q *DisjunctionMaxQuery) WithBoost(b float64) Query {
	c := *q
	c.boost.value = b
	return &c
}

// Disjuncts returns a copy of the disjuncts.
func (q *DisjunctionMaxQuery) Disjuncts() []Query { return append([]Query(nil), q.disjuncts...) }

func (q *DisjunctionMaxQuery) Rewrite(r index.Reader) (Query, error) {
	if len(q.disjuncts) == 1 {
		rewritten, err := q.disjuncts[0].Rewrite(r)
		if err != nil {
			return nil, err
		}
		if q.value != 1 {
			rewritten = rewritten.WithBoost(q.value * rewritten.Boost())
		}
		return rewritten, nil
	}
	var clone *DisjunctionMaxQuery
	for i, d := range q.disjuncts {
		rewritten, err := d.Rewrite(r)
		if err != nil {
			return nil, err
		}
		if rewritten != d {
			if clone == nil {
				cp := *q
				cp.disjuncts = append([]Query(nil), q.disjuncts...)
				clone = &cp
			}
			clone.disjuncts[i] = rewritten
		}
	}
	if clone != nil {
		return clone, nil
	}
	return q, nil
}

func (q *DisjunctionMaxQuery) ExtractTerms(terms TermSet) error {
	for _, d := range q.disjuncts {
		if err := d.ExtractTerms(terms); err != nil {
			return err
		}
	}
	return nil
}

func (q *DisjunctionMaxQuery) Equal(other Query) bool {
	o, ok := other.(*DisjunctionMaxQuery)
	if !ok || q.value != o.value || q.tieBreaker != o.tieBreaker || len(q.disjuncts) != len(o.disjuncts) {
		return false
	}
	for i, d := range q.disjuncts {
		if !d.Equal(o.disjuncts[i]) {
			return false
		}
	}
	return true
}

func (q *DisjunctionMaxQuery) Hash() uint64 {
	h := NewQueryHasher("dismax").Float(q.value).Float(q.tieBreaker)
	for _, d := range q.disjuncts {
		h.U64(d.Hash())
	}
	return h.Sum()
}

func (q *DisjunctionMaxQuery) String(field string) string {
	parts := make([]string, len(q.disjuncts))
	for i, d := range q.disjuncts {
		if _, ok := d.(*BooleanQuery); ok {
			parts[i] = "(" + d.String(field) + ")"
		} else {
			parts[i] = d.String(field)
		}
	}
	s := "(" + strings.Join(parts, " | ") + ")"
	if q.tieBreaker != 0 {
		s += "~" + strconv.FormatFloat(q.tieBreaker, 'g', -1, 64)
	}
	return s + q.boostString()
}

func (q *DisjunctionMaxQuery) CreateWeight(s Searcher) (Weight, error) {
	w := &disjunctionMaxWeight{q: q, weights: make([]Weight, len(q.disjuncts))}
	for i, d := range q.disjuncts {
		sub, err := d.CreateWeight(s)
		if err != nil {
			return nil, err
		}
		w.weights[i] = sub
	}
	return w, nil
}

type disjunctionMaxWeight struct {
	q       *DisjunctionMaxQuery
	weights []Weight
}

func (w *disjunctionMaxWeight) Query() Query               { return w.q }
func (w *disjunctionMaxWeight) Value() float64             { return w.q.value }
func (w *disjunctionMaxWeight) ScoresDocsOutOfOrder() bool { return false }

func (w *disjunctionMaxWeight) SumOfSquaredWeights() (float64, error) {
	var sum, best float64
	for _, sub := range w.weights {
		s, err := sub.SumOfSquaredWeights()
		if err != nil {
			return 0, err
		}
		sum += s
		best = max(best, s)
	}
	tb := w.q.tieBreaker
	return ((sum-best)*tb*tb + best) * w.q.value * w.q.value, nil
}

func (w *disjunctionMaxWeight) Normalize(norm float64) {
	norm *= w.q.value
	for _, sub := range w.weights {
		sub.Normalize(norm)
	}
}

func (w *disjunctionMaxWeight) Scorer(r index.Reader, _, _ bool) (Scorer, error) {
	var scorers []Scorer
	for _, sub := range w.weights {
		s, err := sub.Scorer(r, true, false)
		if err != nil {
			return nil, err
		}
		if s != nil {
			scorers = append(scorers, s)
		}
	}
	if len(scorers) == 0 {
		return nil, nil
	}
	return newDisjunctionMaxScorer(w.q.tieBreaker, scorers), nil
}

func (w *disjunctionMaxWeight) Explain(r index.Reader, doc int) (*Explanation, error) {
	if len(w.weights) == 1 {
		return w.weights[0].Explain(r, doc)
	}
	desc := "max of:"
	if w.q.tieBreaker != 0 {
		desc = "max plus " + strconv.FormatFloat(w.q.tieBreaker, 'g', -1, 64) + " times others of:"
	}
	result := NewComplexExplanation(false, 0, desc)
	var sum, best float64
	for _, sub := range w.weights {
		e, err := sub.Explain(r, doc)
		if err != nil {
			return nil, err
		}
		if e.IsMatch() {
			result.SetMatch(true)
			result.AddDetail(e)
			sum += e.Value
			best = max(best, e.Value)
		}
	}
	result.Value = best + (sum-best)*w.q.tieBreaker
	return result, nil
}
