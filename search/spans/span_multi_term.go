package spans

import (
	"fmt"

	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/search"
)

// SpanRewriteMethod turns a multi-term query into a span query.
type SpanRewriteMethod interface {
	Rewrite(r index.Reader, q search.MultiTermQuery) (search.Query, error)
	String() string
}

// ScoringSpanRewrite rewrites to a SpanOrQuery with one SpanTermQuery per
// accepted term, each carrying the boost of the multi-term query.
var ScoringSpanRewrite SpanRewriteMethod = topTermsSpanRewrite{}

// NewTopTermsSpanRewrite is ScoringSpanRewrite limited to the size
// smallest terms.
func NewTopTermsSpanRewrite(size int) SpanRewriteMethod { return topTermsSpanRewrite{size: size} }

type topTermsSpanRewrite struct{ size int }

func (m topTermsSpanRewrite) String() string {
	if m.size > 0 {
		return "top_terms_span"
	}
	return "scoring_span"
}

func (m topTermsSpanRewrite) Rewrite(r index.Reader, q search.MultiTermQuery) (search.Query, error) {
	terms, err := search.CollectTopTerms(r, q, m.size)
	if err != nil {
		return nil, err
	}
	if m.size <= 0 && len(terms) > search.MaxClauseCount {
		return nil, search.ErrTooManyClauses
	}
	clauses := make([]SpanQuery, len(terms))
	for i, t := range terms {
		clauses[i] = &SpanTermQuery{boost: boost{value: q.Boost()}, term: t}
	}
	return newSpanOrQuery(q.Field(), clauses), nil
}

// SpanMultiTermQueryWrapper lets a prefix, wildcard or range query take part
// in span queries. It rewrites to a SpanOrQuery over the matching terms.
type SpanMultiTermQueryWrapper struct {
	q       search.MultiTermQuery
	rewrite SpanRewriteMethod
}

// NewSpanMultiTermQueryWrapper wraps q. A top-terms rewrite on q keeps its
// size limit; any other rewrite method becomes ScoringSpanRewrite.
func NewSpanMultiTermQueryWrapper(q search.MultiTermQuery) (*SpanMultiTermQueryWrapper, error) {
	if q == nil {
		return nil, &search.ConfigError{Field: "query", Reason: "query is required"}
	}
	if err := search.CheckBoost(q.Boost()); err != nil {
		return nil, err
	}
	m := ScoringSpanRewrite
	if size, ok := search.TopTermsSize(q.RewriteMethod()); ok {
		m = NewTopTermsSpanRewrite(size)
	}
	return &SpanMultiTermQueryWrapper{q: q, rewrite: m}, nil
}

// WithSpanRewrite returns a copy using m.
func (w *SpanMultiTermQueryWrapper) WithSpanRewrite(m SpanRewriteMethod) *SpanMultiTermQueryWrapper {
	c := *w
	c.rewrite = m
	return &c
}

// Wrapped returns the multi-term query.
func (w *SpanMultiTermQueryWrapper) Wrapped() search.MultiTermQuery { return w.q }

func (w *SpanMultiTermQueryWrapper) SpanRewrite() SpanRewriteMethod { return w.rewrite }

func (w *SpanMultiTermQueryWrapper) Field() string  { return w.q.Field() }
func (w *SpanMultiTermQueryWrapper) Boost() float64 { return w.q.Boost() }

func (w *SpanMultiTermQueryWrapper) WithBoost(b float64) search.Query {
	c := *w
	c.q = w.q.WithBoost(b).(search.MultiTermQuery)
	return &c
}

func (w *SpanMultiTermQueryWrapper) Spans(index.Reader) (Spans, error) {
	return nil, fmt.Errorf("%w: %s must be rewritten", search.ErrUnsupported, w.String(""))
}

func (w *SpanMultiTermQueryWrapper) Rewrite(r index.Reader) (search.Query, error) {
	rw, err := w.rewrite.Rewrite(r, w.q)
	if err != nil {
		return nil, err
	}
	if _, ok := rw.(SpanQuery); !ok {
		return nil, fmt.Errorf("%w: span rewrite %s produced %s", search.ErrUnsupported, w.rewrite, rw.String(""))
	}
	return rw, nil
}

func (w *SpanMultiTermQueryWrapper) ExtractTerms(search.TermSet) error {
	return fmt.Errorf("%w: %s must be rewritten", search.ErrUnsupported, w.String(""))
}

func (w *SpanMultiTermQueryWrapper) CreateWeight(search.Searcher) (search.Weight, error) {
	return nil, fmt.Errorf("%w: %s must be rewritten", search.ErrUnsupported, w.String(""))
}

func (w *SpanMultiTermQueryWrapper) Equal(other search.Query) bool {
	o, ok := other.(*SpanMultiTermQueryWrapper)
	return ok && w.rewrite == o.rewrite && w.q.Equal(o.q)
}

func (w *SpanMultiTermQueryWrapper) Hash() uint64 {
	return search.NewQueryHasher("spanmultiterm").Str(w.rewrite.String()).U64(w.q.Hash()).Sum()
}

func (w *SpanMultiTermQueryWrapper) String(field string) string {
	return "SpanMultiTermQueryWrapper(" + w.q.String(field) + ")"
}
