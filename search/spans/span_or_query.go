package spans

import (
	"slices"
	"strings"

	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/internal/queue"
	"github.com/hupe1980/lexis/search"
)

// SpanOrQuery matches the union of its clauses' spans. Identical spans of
// different clauses are all reported.
type SpanOrQuery struct {
	boost
	clauses []SpanQuery
	field   string
}

// NewSpanOrQuery returns the union of clauses, which must share a field.
func NewSpanOrQuery(clauses ...SpanQuery) (*SpanOrQuery, error) {
	field, err := checkField(clauses)
	if err != nil {
		return nil, err
	}
	return newSpanOrQuery(field, clauses), nil
}

func newSpanOrQuery(field string, clauses []SpanQuery) *SpanOrQuery {
	return &SpanOrQuery{boost: boost{value: 1}, clauses: slices.Clone(clauses), field: field}
}

func (q *SpanOrQuery) WithBoost(b float64) search.Query {
	c := *q
	c.value = b
	return &c
}

// Clauses returns the sub-queries.
func (q *SpanOrQuery) Clauses() []SpanQuery { return slices.Clone(q.clauses) }

func (q *SpanOrQuery) Field() string { return q.field }

func (q *SpanOrQuery) Spans(r index.Reader) (Spans, error) {
	if len(q.clauses) == 1 {
		return q.clauses[0].Spans(r)
	}
	return &orSpans{r: r, clauses: q.clauses}, nil
}

func (q *SpanOrQuery) Rewrite(r index.Reader) (search.Query, error) {
	clauses, changed, err := rewriteClauses(r, q.clauses)
	if err != nil || !changed {
		return q, err
	}
	c := *q
	c.clauses = clauses
	return &c, nil
}

func (q *SpanOrQuery) ExtractTerms(terms search.TermSet) error {
	for _, c := range q.clauses {
		if err := c.ExtractTerms(terms); err != nil {
			return err
		}
	}
	return nil
}

func (q *SpanOrQuery) CreateWeight(s search.Searcher) (search.Weight, error) {
	return newSpanWeight(q, s)
}

func (q *SpanOrQuery) Equal(other search.Query) bool {
	o, ok := other.(*SpanOrQuery)
	return ok && q.value == o.value && clausesEqual(q.clauses, o.clauses)
}

func (q *SpanOrQuery) Hash() uint64 {
	h := search.NewQueryHasher("spanor").Float(q.value)
	for _, c := range q.clauses {
		h.U64(c.Hash())
	}
	return h.Sum()
}

func (q *SpanOrQuery) String(field string) string {
	parts := make([]string, len(q.clauses))
	for i, c := range q.clauses {
		parts[i] = c.String(field)
	}
	return "spanOr([" + strings.Join(parts, ", ") + "])" + search.FormatBoost(q.value)
}

// orSpans merges sub-spans in (doc, start, end) order. Sub-spans are opened
// lazily on the first move.
type orSpans struct {
	r       index.Reader
	clauses []SpanQuery
	pq      *queue.PriorityQueue[Spans]
}

func (s *orSpans) init(target int) (bool, error) {
	s.pq = queue.New(len(s.clauses), lessSpans)
	for _, c := range s.clauses {
		sp, err := c.Spans(s.r)
		if err != nil {
			return false, err
		}
		var ok bool
		if target == -1 {
			ok, err = sp.Next()
		} else {
			ok, err = sp.SkipTo(target)
		}
		if err != nil {
			return false, err
		}
		if ok {
			s.pq.Push(sp)
		}
	}
	return s.pq.Len() != 0, nil
}

func (s *orSpans) top() Spans {
	sp, _ := s.pq.Top()
	return sp
}

func (s *orSpans) Next() (bool, error) {
	if s.pq == nil {
		return s.init(-1)
	}
	if s.pq.Len() == 0 {
		return false, nil
	}
	ok, err := s.top().Next()
	if err != nil {
		return false, err
	}
	if ok {
		s.pq.FixTop()
		return true, nil
	}
	s.pq.Pop()
	return s.pq.Len() != 0, nil
}

func (s *orSpans) SkipTo(target int) (bool, error) {
	if s.pq == nil {
		return s.init(target)
	}
	skipped := false
	for s.pq.Len() != 0 && s.top().Doc() < target {
		ok, err := s.top().SkipTo(target)
		if err != nil {
			return false, err
		}
		if ok {
			s.pq.FixTop()
		} else {
			s.pq.Pop()
		}
		skipped = true
	}
	if skipped {
		return s.pq.Len() != 0, nil
	}
	return s.Next()
}

func (s *orSpans) Doc() int   { return s.top().Doc() }
func (s *orSpans) Start() int { return s.top().Start() }
func (s *orSpans) End() int   { return s.top().End() }

func (s *orSpans) Payload() ([][]byte, error) {
	if !s.IsPayloadAvailable() {
		return nil, noPayload()
	}
	return s.top().Payload()
}

func (s *orSpans) IsPayloadAvailable() bool {
	return s.pq != nil && s.pq.Len() != 0 && s.top().IsPayloadAvailable()
}
