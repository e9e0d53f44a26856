package search

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/lexis/index"
)

// Occur says how a clause takes part in a BooleanQuery.
type Occur int

const (
	// Must clauses have to match.
	Must Occur = iota
	// Should clauses may match and add to the score.
	Should
	// MustNot clauses exclude documents.
	MustNot
)

func (o Occur) String() string {
	switch o {
	case Must:
		return "+"
	case MustNot:
		return "-"
	default:
		return ""
	}
}

// MaxClauseCount bounds the clauses a rewrite may expand into.
const MaxClauseCount = 1024

// ErrTooManyClauses is returned when a query expands beyond MaxClauseCount.
var ErrTooManyClauses = errors.New("too many boolean clauses")

// maxBucketClauses is the clause limit of the bucket scorer's bit sets.
const maxBucketClauses = 64

// BooleanClause is a sub-query with its occurrence.
type BooleanClause struct {
	Query Query
	Occur Occur
}

// MustClause returns a required clause.
func MustClause(q Query) BooleanClause { return BooleanClause{Query: q, Occur: Must} }

// ShouldClause returns an optional clause.
func ShouldClause(q Query) BooleanClause { return BooleanClause{Query: q, Occur: Should} }

// MustNotClause returns a prohibited clause.
func MustNotClause(q Query) BooleanClause { return BooleanClause{Query: q, Occur: MustNot} }

// BooleanQuery combines clauses.
type BooleanQuery struct {
	boost
	clauses            []BooleanClause
	minimumShouldMatch int
	disableCoord       bool
}

// BooleanOption configures a BooleanQuery.
type BooleanOption func(*BooleanQuery)

// WithMinimumShouldMatch requires at least n SHOULD clauses to match.
func WithMinimumShouldMatch(n int) BooleanOption {
	return func(q *BooleanQuery) { q.minimumShouldMatch = n }
}

// WithCoordDisabled turns off the coordination factor.
func WithCoordDisabled() BooleanOption {
	return func(q *BooleanQuery) { q.disableCoord = true }
}

// NewBooleanQuery returns a query over clauses.
func NewBooleanQuery(clauses []BooleanClause, opts ...BooleanOption) (*BooleanQuery, error) {
	if len(clauses) == 0 {
		return nil, invalidArg("clauses", "boolean query needs at least one clause")
	}
	if len(clauses) > MaxClauseCount {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyClauses, len(clauses), MaxClauseCount)
	}
	for i, c := range clauses {
		if c.Query == nil {
			return nil, invalidArg("clauses", "clause %d has no query", i)
		}
		if c.Occur < Must || c.Occur > MustNot {
			return nil, invalidArg("clauses", "clause %d has unknown occur %d", i, c.Occur)
		}
		if err := CheckBoost(c.Query.Boost()); err != nil {
			return nil, fmt.Errorf("clause %d: %w", i, err)
		}
	}
	q := &BooleanQuery{boost: defaultBoost(), clauses: append([]BooleanClause(nil), clauses...)}
	for _, opt := range opts {
		opt(q)
	}
	if q.minimumShouldMatch < 0 || q.minimumShouldMatch > len(clauses) {
		return nil, invalidArg("minimumShouldMatch", "must be in [0, %d], got %d", len(clauses), q.minimumShouldMatch)
	}
	return q, nil
}

// newBooleanQuery builds a query without validation, for rewrites that may
// legitimately produce no clauses.
func newBooleanQuery(clauses []BooleanClause, disableCoord bool) *BooleanQuery {
	return &BooleanQuery{boost: defaultBoost(), clauses: clauses, disableCoord: disableCoord}
}

func (q *BooleanQuery) WithBoost(b float64) Query {
	c := *q
	c.boost.value = b
	return &c
}

// Clauses returns a copy of the clauses.
func (q *BooleanQuery) Clauses() []BooleanClause {
	return append([]BooleanClause(nil), q.clauses...)
}

// MinimumShouldMatch returns the configured minimum.
func (q *BooleanQuery) MinimumShouldMatch() int { return q.minimumShouldMatch }

// CoordDisabled reports whether coordination is off.
func (q *BooleanQuery) CoordDisabled() bool { return q.disableCoord }

func (q *BooleanQuery) allShould() bool {
	for _, c := range q.clauses {
		if c.Occur != Should {
			return false
		}
	}
	return true
}

func (q *BooleanQuery) Rewrite(r index.Reader) (Query, error) {
	if q.minimumShouldMatch == 0 && len(q.clauses) == 1 {
		c := q.clauses[0]
		if c.Occur != MustNot {
			rewritten, err := c.Query.Rewrite(r)
			if err != nil {
				return nil, err
			}
			if q.value != 1 {
				rewritten = rewritten.WithBoost(q.value * rewritten.Boost())
			}
			return rewritten, nil
		}
	}

	var clone *BooleanQuery
	for i, c := range q.clauses {
		rewritten, err := c.Query.Rewrite(r)
		if err != nil {
			return nil, err
		}
		if rewritten != c.Query {
			if clone == nil {
				cp := *q
				cp.clauses = append([]BooleanClause(nil), q.clauses...)
				clone = &cp
			}
			clone.clauses[i] = BooleanClause{Query: rewritten, Occur: c.Occur}
		}
	}
	if clone != nil {
		return clone, nil
	}
	return q, nil
}

func (q *BooleanQuery) ExtractTerms(terms TermSet) error {
	for _, c := range q.clauses {
		if err := c.Query.ExtractTerms(terms); err != nil {
			return err
		}
	}
	return nil
}

func (q *BooleanQuery) Equal(other Query) bool {
	o, ok := other.(*BooleanQuery)
	if !ok || q.value != o.value || q.minimumShouldMatch != o.minimumShouldMatch ||
		q.disableCoord != o.disableCoord || len(q.clauses) != len(o.clauses) {
		return false
	}
	for i, c := range q.clauses {
		if c.Occur != o.clauses[i].Occur || !c.Query.Equal(o.clauses[i].Query) {
			return false
		}
	}
	return true
}

func (q *BooleanQuery) Hash() uint64 {
	h := NewQueryHasher("boolean").Float(q.value).Int(q.minimumShouldMatch).Bool(q.disableCoord)
	for _, c := range q.clauses {
		h.Int(int(c.Occur)).U64(c.Query.Hash())
	}
	return h.Sum()
}

func (q *BooleanQuery) String(field string) string {
	var sb strings.Builder
	nested := q.value != 1 || q.minimumShouldMatch > 0
	if nested {
		sb.WriteByte('(')
	}
	for i, c := range q.clauses {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(c.Occur.String())
		if sub, ok := c.Query.(*BooleanQuery); ok {
			sb.WriteString("(" + sub.String(field) + ")")
		} else {
			sb.WriteString(c.Query.String(field))
		}
	}
	if nested {
		sb.WriteByte(')')
	}
	if q.minimumShouldMatch > 0 {
		sb.WriteString("~" + strconv.Itoa(q.minimumShouldMatch))
	}
	sb.WriteString(q.boostString())
	return sb.String()
}

func (q *BooleanQuery) CreateWeight(s Searcher) (Weight, error) {
	w := &booleanWeight{q: q, sim: s.Similarity(), weights: make([]Weight, len(q.clauses))}
	for i, c := range q.clauses {
		sub, err := c.Query.CreateWeight(s)
		if err != nil {
			return nil, err
		}
		w.weights[i] = sub
		if c.Occur != MustNot {
			w.maxCoord++
		}
	}
	return w, nil
}

type booleanWeight struct {
	q        *BooleanQuery
	sim      Similarity
	weights  []Weight
	maxCoord int
}

func (w *booleanWeight) Query() Query   { return w.q }
func (w *booleanWeight) Value() float64 { return w.q.value }

func (w *booleanWeight) SumOfSquaredWeights() (float64, error) {
	var sum float64
	for i, sub := range w.weights {
		s, err := sub.SumOfSquaredWeights()
		if err != nil {
			return 0, err
		}
		if w.q.clauses[i].Occur != MustNot {
			sum += s
		}
	}
	return sum * w.q.value * w.q.value, nil
}

func (w *booleanWeight) Normalize(norm float64) {
	norm *= w.q.value
	for _, sub := range w.weights {
		sub.Normalize(norm)
	}
}

func (w *booleanWeight) coordFactors(n int) []float64 {
	factors := make([]float64, n+1)
	for i := range factors {
		if w.q.disableCoord {
			factors[i] = 1
		} else {
			factors[i] = w.sim.Coord(i, w.maxCoord)
		}
	}
	return factors
}

func (w *booleanWeight) Scorer(r index.Reader, scoreDocsInOrder, topScorer bool) (Scorer, error) {
	var required, prohibited, optional []Scorer
	var occurs []Occur
	var all []Scorer
	for i, sub := range w.weights {
		c := w.q.clauses[i]
		s, err := sub.Scorer(r, true, false)
		if err != nil {
			return nil, err
		}
		if s == nil {
			if c.Occur == Must {
				return nil, nil
			}
			continue
		}
		switch c.Occur {
		case Must:
			required = append(required, s)
		case MustNot:
			prohibited = append(prohibited, s)
		default:
			optional = append(optional, s)
		}
		all = append(all, s)
		occurs = append(occurs, c.Occur)
	}

	if len(required) == 0 && len(optional) == 0 {
		return nil, nil
	}
	if len(optional) < w.q.minimumShouldMatch {
		return nil, nil
	}

	if !scoreDocsInOrder && topScorer && len(all) <= maxBucketClauses {
		return newBooleanScorer(all, occurs, w.q.minimumShouldMatch, w.coordFactors(w.maxCoord)), nil
	}
	return newBooleanScorer2(required, prohibited, optional, w.q.minimumShouldMatch, w.coordFactors(w.maxCoord)), nil
}

func (w *booleanWeight) ScoresDocsOutOfOrder() bool {
	return len(w.q.clauses) <= maxBucketClauses
}

func (w *booleanWeight) Explain(r index.Reader, doc int) (*Explanation, error) {
	sumExpl := NewComplexExplanation(false, 0, "sum of:")
	var (
		coord, maxCoord, shouldMatches int
		sum                            float64
		fail                           bool
	)
	for i, sub := range w.weights {
		c := w.q.clauses[i]
		e, err := sub.Explain(r, doc)
		if err != nil {
			return nil, err
		}
		if c.Occur != MustNot {
			maxCoord++
		}
		switch {
		case e.IsMatch() && c.Occur != MustNot:
			sumExpl.AddDetail(e)
			sum += e.Value
			coord++
			if c.Occur == Should {
				shouldMatches++
			}
		case e.IsMatch():
			pe := NewExplanation(0, "match on prohibited clause ("+c.Query.String("")+")")
			pe.AddDetail(e)
			sumExpl.AddDetail(pe)
			fail = true
		case c.Occur == Must:
			re := NewExplanation(0, "no match on required clause ("+c.Query.String("")+")")
			re.AddDetail(e)
			sumExpl.AddDetail(re)
			fail = true
		}
	}
	if fail {
		sumExpl.SetMatch(false)
		sumExpl.Value = 0
		sumExpl.Description = "Failure to meet condition(s) of required/prohibited clause(s)"
		return sumExpl, nil
	}
	if shouldMatches < w.q.minimumShouldMatch {
		sumExpl.SetMatch(false)
		sumExpl.Value = 0
		sumExpl.Description = "Failure to match minimum number of optional clauses: " + strconv.Itoa(w.q.minimumShouldMatch)
		return sumExpl, nil
	}

	sumExpl.SetMatch(coord > 0)
	sumExpl.Value = sum

	coordFactor := 1.0
	if !w.q.disableCoord {
		coordFactor = w.sim.Coord(coord, maxCoord)
	}
	if coordFactor == 1 {
		return sumExpl, nil
	}
	result := NewComplexExplanation(sumExpl.IsMatch(), sum*coordFactor, "product of:")
	result.AddDetail(sumExpl)
	result.AddDetail(NewExplanation(coordFactor, fmt.Sprintf("coord(%d/%d)", coord, maxCoord)))
	return result, nil
}
