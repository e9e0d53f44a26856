package spans

import (
	"fmt"
	"strconv"

	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/search"
)

// SpanNotQuery removes the spans of include that overlap a span of
// exclude. The exclude span is widened by pre positions before and post
// positions after the include span.
type SpanNotQuery struct {
	boost
	include SpanQuery
	exclude SpanQuery
	pre     int
	post    int
}

// NewSpanNotQuery returns include minus the spans overlapping exclude.
func NewSpanNotQuery(include, exclude SpanQuery) (*SpanNotQuery, error) {
	return NewSpanNotQueryWithDistance(include, exclude, 0, 0)
}

// NewSpanNotQueryWithDistance also drops include spans with an exclude span
// fewer than pre positions before or post positions after them.
func NewSpanNotQueryWithDistance(include, exclude SpanQuery, pre, post int) (*SpanNotQuery, error) {
	if include == nil || exclude == nil {
		return nil, &search.ConfigError{Field: "clauses", Reason: "include and exclude are required"}
	}
	if include.Field() != exclude.Field() {
		return nil, &search.ConfigError{Field: "clauses",
			Reason: fmt.Sprintf("clauses must have the same field, got %q and %q", include.Field(), exclude.Field())}
	}
	if err := search.CheckBoost(include.Boost()); err != nil {
		return nil, err
	}
	if pre < 0 || post < 0 {
		return nil, &search.ConfigError{Field: "distance", Reason: fmt.Sprintf("pre and post must be >= 0, got %d and %d", pre, post)}
	}
	return &SpanNotQuery{boost: boost{value: 1}, include: include, exclude: exclude, pre: pre, post: post}, nil
}

func (q *SpanNotQuery) WithBoost(b float64) search.Query {
	c := *q
	c.value = b
	return &c
}

func (q *SpanNotQuery) Include() SpanQuery { return q.include }
func (q *SpanNotQuery) Exclude() SpanQuery { return q.exclude }
func (q *SpanNotQuery) Field() string      { return q.include.Field() }

func (q *SpanNotQuery) Spans(r index.Reader) (Spans, error) {
	inc, err := q.include.Spans(r)
	if err != nil {
		return nil, err
	}
	exc, err := q.exclude.Spans(r)
	if err != nil {
		return nil, err
	}
	moreExclude, err := exc.Next()
	if err != nil {
		return nil, err
	}
	return &notSpans{include: inc, exclude: exc, moreInclude: true, moreExclude: moreExclude, pre: q.pre, post: q.post}, nil
}

func (q *SpanNotQuery) Rewrite(r index.Reader) (search.Query, error) {
	rw, changed, err := rewriteClauses(r, []SpanQuery{q.include, q.exclude})
	if err != nil || !changed {
		return q, err
	}
	c := *q
	c.include, c.exclude = rw[0], rw[1]
	return &c, nil
}

// ExtractTerms reports the include terms only; excluded spans never score.
func (q *SpanNotQuery) ExtractTerms(terms search.TermSet) error {
	return q.include.ExtractTerms(terms)
}

func (q *SpanNotQuery) CreateWeight(s search.Searcher) (search.Weight, error) {
	return newSpanWeight(q, s)
}

func (q *SpanNotQuery) Equal(other search.Query) bool {
	o, ok := other.(*SpanNotQuery)
	return ok && q.value == o.value && q.pre == o.pre && q.post == o.post &&
		q.include.Equal(o.include) && q.exclude.Equal(o.exclude)
}

func (q *SpanNotQuery) Hash() uint64 {
	return search.NewQueryHasher("spannot").Float(q.value).Int(q.pre).Int(q.post).
		U64(q.include.Hash()).U64(q.exclude.Hash()).Sum()
}

func (q *SpanNotQuery) String(field string) string {
	s := "spanNot(" + q.include.String(field) + ", " + q.exclude.String(field)
	if q.pre != 0 || q.post != 0 {
		s += ", " + strconv.Itoa(q.pre) + ", " + strconv.Itoa(q.post)
	}
	return s + ")" + search.FormatBoost(q.value)
}

type notSpans struct {
	include, exclude         Spans
	moreInclude, moreExclude bool
	pre, post                int
}

func (s *notSpans) Next() (bool, error) {
	if s.moreInclude {
		ok, err := s.include.Next()
		if err != nil {
			return false, err
		}
		s.moreInclude = ok
	}
	for s.moreInclude && s.moreExclude {
		if err := s.syncExclude(); err != nil {
			return false, err
		}
		if !s.overlaps() {
			break
		}
		ok, err := s.include.Next()
		if err != nil {
			return false, err
		}
		s.moreInclude = ok
	}
	return s.moreInclude, nil
}

func (s *notSpans) SkipTo(target int) (bool, error) {
	if s.moreInclude {
		ok, err := s.include.SkipTo(target)
		if err != nil {
			return false, err
		}
		s.moreInclude = ok
	}
	if !s.moreInclude {
		return false, nil
	}
	if s.moreExclude {
		if err := s.syncExclude(); err != nil {
			return false, err
		}
	}
	if !s.overlaps() {
		return true, nil
	}
	return s.Next()
}

// syncExclude moves exclude to the include doc and past the exclude spans
// ending before the widened include span.
func (s *notSpans) syncExclude() error {
	if s.include.Doc() > s.exclude.Doc() {
		ok, err := s.exclude.SkipTo(s.include.Doc())
		if err != nil {
			return err
		}
		s.moreExclude = ok
	}
	for s.moreExclude && s.include.Doc() == s.exclude.Doc() && s.exclude.End() <= s.include.Start()-s.pre {
		ok, err := s.exclude.Next()
		if err != nil {
			return err
		}
		s.moreExclude = ok
	}
	return nil
}

func (s *notSpans) overlaps() bool {
	return s.moreExclude && s.include.Doc() == s.exclude.Doc() && s.include.End()+s.post > s.exclude.Start()
}

func (s *notSpans) Doc() int   { return s.include.Doc() }
func (s *notSpans) Start() int { return s.include.Start() }
func (s *notSpans) End() int   { return s.include.End() }

func (s *notSpans) Payload() ([][]byte, error) {
	if !s.include.IsPayloadAvailable() {
		return nil, noPayload()
	}
	return s.include.Payload()
}

func (s *notSpans) IsPayloadAvailable() bool { return s.include.IsPayloadAvailable() }
