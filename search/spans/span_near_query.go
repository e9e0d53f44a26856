package spans

import (
	"strconv"
	"strings"

	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/search"
)

// NearOption configures a SpanNearQuery.
type NearOption func(*SpanNearQuery)

// WithPayloadCollection controls whether ordered matches gather the payloads
// of their sub-spans. It is enabled by default.
func WithPayloadCollection(collect bool) NearOption {
	return func(q *SpanNearQuery) { q.collectPayloads = collect }
}

// SpanNearQuery matches spans of all clauses lying within slop positions of
// each other, optionally in clause order.
type SpanNearQuery struct {
	boost
	clauses         []SpanQuery
	field           string
	slop            int
	inOrder         bool
	collectPayloads bool
}

// NewSpanNearQuery returns a near query. All clauses must share a field and
// slop must not be negative.
func NewSpanNearQuery(clauses []SpanQuery, slop int, inOrder bool, opts ...NearOption) (*SpanNearQuery, error) {
	if slop < 0 {
		return nil, &search.ConfigError{Field: "slop", Reason: "must be >= 0, got " + strconv.Itoa(slop)}
	}
	field, err := checkField(clauses)
	if err != nil {
		return nil, err
	}
	q := &SpanNearQuery{
		boost:           boost{value: 1},
		clauses:         append([]SpanQuery(nil), clauses...),
		field:           field,
		slop:            slop,
		inOrder:         inOrder,
		collectPayloads: true,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

func (q *SpanNearQuery) WithBoost(b float64) search.Query {
	c := *q
	c.value = b
	return &c
}

// Clauses returns the sub-queries.
func (q *SpanNearQuery) Clauses() []SpanQuery { return append([]SpanQuery(nil), q.clauses...) }

func (q *SpanNearQuery) Slop() int              { return q.slop }
func (q *SpanNearQuery) InOrder() bool          { return q.inOrder }
func (q *SpanNearQuery) CollectsPayloads() bool { return q.collectPayloads }
func (q *SpanNearQuery) Field() string          { return q.field }

func (q *SpanNearQuery) Spans(r index.Reader) (Spans, error) {
	switch len(q.clauses) {
	case 0:
		return emptySpans{}, nil
	case 1:
		return q.clauses[0].Spans(r)
	}
	subs := make([]Spans, len(q.clauses))
	for i, c := range q.clauses {
		sp, err := c.Spans(r)
		if err != nil {
			return nil, err
		}
		subs[i] = sp
	}
	if q.inOrder {
		return newNearSpansOrdered(subs, q.slop, q.collectPayloads), nil
	}
	return newNearSpansUnordered(subs, q.slop), nil
}

func (q *SpanNearQuery) Rewrite(r index.Reader) (search.Query, error) {
	clauses, changed, err := rewriteClauses(r, q.clauses)
	if err != nil || !changed {
		return q, err
	}
	c := *q
	c.clauses = clauses
	return &c, nil
}

func (q *SpanNearQuery) ExtractTerms(terms search.TermSet) error {
	for _, c := range q.clauses {
		if err := c.ExtractTerms(terms); err != nil {
			return err
		}
	}
	return nil
}

func (q *SpanNearQuery) CreateWeight(s search.Searcher) (search.Weight, error) {
	return newSpanWeight(q, s)
}

func (q *SpanNearQuery) Equal(other search.Query) bool {
	o, ok := other.(*SpanNearQuery)
	return ok && q.value == o.value && q.slop == o.slop && q.inOrder == o.inOrder &&
		q.collectPayloads == o.collectPayloads && clausesEqual(q.clauses, o.clauses)
}

func (q *SpanNearQuery) Hash() uint64 {
	h := search.NewQueryHasher("spannear").Float(q.value).Int(q.slop).Bool(q.inOrder).Bool(q.collectPayloads)
	for _, c := range q.clauses {
		h.U64(c.Hash())
	}
	return h.Sum()
}

func (q *SpanNearQuery) String(field string) string {
	var sb strings.Builder
	sb.WriteString("spanNear([")
	for i, c := range q.clauses {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.String(field))
	}
	sb.WriteString("], ")
	sb.WriteString(strconv.Itoa(q.slop))
	sb.WriteString(", ")
	sb.WriteString(strconv.FormatBool(q.inOrder))
	sb.WriteString(")")
	sb.WriteString(search.FormatBoost(q.value))
	return sb.String()
}
