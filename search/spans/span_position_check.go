package spans

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/search"
)

// AcceptStatus is the verdict of a position check on one span.
type AcceptStatus int

const (
	// Yes keeps the span.
	Yes AcceptStatus = iota
	// No drops the span and moves to the next one.
	No
	// NoAndAdvance drops the span and the rest of its doc.
	NoAndAdvance
)

type acceptFunc func(Spans) (AcceptStatus, error)

// positionCheckSpans filters spans through an accept function.
type positionCheckSpans struct {
	Spans
	accept acceptFunc
}

func (s *positionCheckSpans) Next() (bool, error) {
	ok, err := s.Spans.Next()
	if err != nil || !ok {
		return false, err
	}
	return s.doNext()
}

func (s *positionCheckSpans) SkipTo(target int) (bool, error) {
	ok, err := s.Spans.SkipTo(target)
	if err != nil || !ok {
		return false, err
	}
	return s.doNext()
}

func (s *positionCheckSpans) doNext() (bool, error) {
	for {
		status, err := s.accept(s.Spans)
		if err != nil {
			return false, err
		}
		var ok bool
		switch status {
		case Yes:
			return true, nil
		case No:
			ok, err = s.Spans.Next()
		case NoAndAdvance:
			ok, err = s.Spans.SkipTo(s.Spans.Doc() + 1)
		}
		if err != nil || !ok {
			return false, err
		}
	}
}

func (s *positionCheckSpans) Payload() ([][]byte, error) {
	if !s.Spans.IsPayloadAvailable() {
		return nil, noPayload()
	}
	return s.Spans.Payload()
}

// positionCheck holds the wrapped query of a position-filtering query.
type positionCheck struct {
	boost
	match SpanQuery
}

// Match returns the wrapped query.
func (p *positionCheck) Match() SpanQuery { return p.match }

func (p *positionCheck) Field() string { return p.match.Field() }

func (p *positionCheck) ExtractTerms(terms search.TermSet) error {
	return p.match.ExtractTerms(terms)
}

func (p *positionCheck) spans(r index.Reader, accept acceptFunc) (Spans, error) {
	sp, err := p.match.Spans(r)
	if err != nil {
		return nil, err
	}
	return &positionCheckSpans{Spans: sp, accept: accept}, nil
}

// rewriteMatch returns the rewritten match, or nil when it did not change.
func (p *positionCheck) rewriteMatch(r index.Reader) (SpanQuery, error) {
	rw, changed, err := rewriteClauses(r, []SpanQuery{p.match})
	if err != nil || !changed {
		return nil, err
	}
	return rw[0], nil
}

func newPositionCheck(match SpanQuery) (positionCheck, error) {
	if match == nil {
		return positionCheck{}, &search.ConfigError{Field: "match", Reason: "query is required"}
	}
	if err := search.CheckBoost(match.Boost()); err != nil {
		return positionCheck{}, err
	}
	return positionCheck{boost: boost{value: 1}, match: match}, nil
}

// SpanFirstQuery matches spans of match ending at or before end.
type SpanFirstQuery struct {
	positionCheck
	end int
}

// NewSpanFirstQuery returns a query for the spans of match within the first
// end positions of the field.
func NewSpanFirstQuery(match SpanQuery, end int) (*SpanFirstQuery, error) {
	pc, err := newPositionCheck(match)
	if err != nil {
		return nil, err
	}
	if end < 0 {
		return nil, &search.ConfigError{Field: "end", Reason: "must be >= 0, got " + strconv.Itoa(end)}
	}
	return &SpanFirstQuery{positionCheck: pc, end: end}, nil
}

// End returns the largest accepted span end.
func (q *SpanFirstQuery) End() int { return q.end }

func (q *SpanFirstQuery) accept(sp Spans) (AcceptStatus, error) {
	switch {
	case sp.Start() >= q.end:
		return NoAndAdvance, nil
	case sp.End() <= q.end:
		return Yes, nil
	default:
		return No, nil
	}
}

func (q *SpanFirstQuery) Spans(r index.Reader) (Spans, error) { return q.spans(r, q.accept) }

func (q *SpanFirstQuery) WithBoost(b float64) search.Query {
	c := *q
	c.value = b
	return &c
}

func (q *SpanFirstQuery) Rewrite(r index.Reader) (search.Query, error) {
	m, err := q.rewriteMatch(r)
	if err != nil || m == nil {
		return q, err
	}
	c := *q
	c.match = m
	return &c, nil
}

func (q *SpanFirstQuery) CreateWeight(s search.Searcher) (search.Weight, error) {
	return newSpanWeight(q, s)
}

func (q *SpanFirstQuery) Equal(other search.Query) bool {
	o, ok := other.(*SpanFirstQuery)
	return ok && q.value == o.value && q.end == o.end && q.match.Equal(o.match)
}

func (q *SpanFirstQuery) Hash() uint64 {
	return search.NewQueryHasher("spanfirst").Float(q.value).Int(q.end).U64(q.match.Hash()).Sum()
}

func (q *SpanFirstQuery) String(field string) string {
	return "spanFirst(" + q.match.String(field) + ", " + strconv.Itoa(q.end) + ")" + search.FormatBoost(q.value)
}

// SpanPositionRangeQuery matches spans of match lying within [start, end).
type SpanPositionRangeQuery struct {
	positionCheck
	start int
	end   int
}

// NewSpanPositionRangeQuery returns a query for the spans of match starting
// at or after start and ending at or before end.
func NewSpanPositionRangeQuery(match SpanQuery, start, end int) (*SpanPositionRangeQuery, error) {
	pc, err := newPositionCheck(match)
	if err != nil {
		return nil, err
	}
	if start < 0 || end < start {
		return nil, &search.ConfigError{Field: "range", Reason: fmt.Sprintf("need 0 <= start <= end, got [%d, %d)", start, end)}
	}
	return &SpanPositionRangeQuery{positionCheck: pc, start: start, end: end}, nil
}

func (q *SpanPositionRangeQuery) Start() int { return q.start }
func (q *SpanPositionRangeQuery) End() int   { return q.end }

func (q *SpanPositionRangeQuery) accept(sp Spans) (AcceptStatus, error) {
	switch {
	case sp.Start() >= q.end:
		return NoAndAdvance, nil
	case sp.Start() >= q.start && sp.End() <= q.end:
		return Yes, nil
	default:
		return No, nil
	}
}

func (q *SpanPositionRangeQuery) Spans(r index.Reader) (Spans, error) { return q.spans(r, q.accept) }

func (q *SpanPositionRangeQuery) WithBoost(b float64) search.Query {
	c := *q
	c.value = b
	return &c
}

func (q *SpanPositionRangeQuery) Rewrite(r index.Reader) (search.Query, error) {
	m, err := q.rewriteMatch(r)
	if err != nil || m == nil {
		return q, err
	}
	c := *q
	c.match = m
	return &c, nil
}

func (q *SpanPositionRangeQuery) CreateWeight(s search.Searcher) (search.Weight, error) {
	return newSpanWeight(q, s)
}

func (q *SpanPositionRangeQuery) Equal(other search.Query) bool {
	o, ok := other.(*SpanPositionRangeQuery)
	return ok && q.value == o.value && q.start == o.start && q.end == o.end && q.match.Equal(o.match)
}

func (q *SpanPositionRangeQuery) Hash() uint64 {
	return search.NewQueryHasher("spanposrange").Float(q.value).Int(q.start).Int(q.end).U64(q.match.Hash()).Sum()
}

func (q *SpanPositionRangeQuery) String(field string) string {
	return fmt.Sprintf("spanPosRange(%s, %d, %d)%s", q.match.String(field), q.start, q.end, search.FormatBoost(q.value))
}

// SpanPayloadCheckQuery matches spans of match whose payloads equal the
// expected ones, in order.
type SpanPayloadCheckQuery struct {
	positionCheck
	payloads [][]byte
}

// NewSpanPayloadCheckQuery returns a payload check over match. Near queries
// do not report payloads in a stable order; use
// NewSpanNearPayloadCheckQuery for them.
func NewSpanPayloadCheckQuery(match SpanQuery, payloads [][]byte) (*SpanPayloadCheckQuery, error) {
	pc, err := newPositionCheck(match)
	if err != nil {
		return nil, err
	}
	if _, ok := match.(*SpanNearQuery); ok {
		return nil, &search.ConfigError{Field: "match", Reason: "span near queries need NewSpanNearPayloadCheckQuery"}
	}
	return &SpanPayloadCheckQuery{positionCheck: pc, payloads: clonePayloads(payloads)}, nil
}

// Payloads returns the expected payloads.
func (q *SpanPayloadCheckQuery) Payloads() [][]byte { return clonePayloads(q.payloads) }

func (q *SpanPayloadCheckQuery) accept(sp Spans) (AcceptStatus, error) {
	if !sp.IsPayloadAvailable() {
		return No, nil
	}
	candidate, err := sp.Payload()
	if err != nil {
		return No, err
	}
	if len(candidate) != len(q.payloads) {
		return No, nil
	}
	for i, c := range candidate {
		if !bytes.Equal(c, q.payloads[i]) {
			return No, nil
		}
	}
	return Yes, nil
}

func (q *SpanPayloadCheckQuery) Spans(r index.Reader) (Spans, error) { return q.spans(r, q.accept) }

func (q *SpanPayloadCheckQuery) WithBoost(b float64) search.Query {
	c := *q
	c.value = b
	return &c
}

func (q *SpanPayloadCheckQuery) Rewrite(r index.Reader) (search.Query, error) {
	m, err := q.rewriteMatch(r)
	if err != nil || m == nil {
		return q, err
	}
	c := *q
	c.match = m
	return &c, nil
}

func (q *SpanPayloadCheckQuery) CreateWeight(s search.Searcher) (search.Weight, error) {
	return newSpanWeight(q, s)
}

func (q *SpanPayloadCheckQuery) Equal(other search.Query) bool {
	o, ok := other.(*SpanPayloadCheckQuery)
	return ok && q.value == o.value && payloadsEqual(q.payloads, o.payloads) && q.match.Equal(o.match)
}

func (q *SpanPayloadCheckQuery) Hash() uint64 {
	return hashPayloads(search.NewQueryHasher("spanpaycheck").Float(q.value).U64(q.match.Hash()), q.payloads)
}

func (q *SpanPayloadCheckQuery) String(field string) string {
	return payloadCheckString(q.match.String(field), q.payloads, q.value)
}

// SpanNearPayloadCheckQuery matches spans of a near query whose payloads
// equal the expected ones in any order.
type SpanNearPayloadCheckQuery struct {
	positionCheck
	payloads [][]byte
}

// NewSpanNearPayloadCheckQuery returns a payload check over a near query.
func NewSpanNearPayloadCheckQuery(match *SpanNearQuery, payloads [][]byte) (*SpanNearPayloadCheckQuery, error) {
	if match == nil {
		return nil, &search.ConfigError{Field: "match", Reason: "query is required"}
	}
	pc, err := newPositionCheck(match)
	if err != nil {
		return nil, err
	}
	return &SpanNearPayloadCheckQuery{positionCheck: pc, payloads: clonePayloads(payloads)}, nil
}

// Payloads returns the expected payloads.
func (q *SpanNearPayloadCheckQuery) Payloads() [][]byte { return clonePayloads(q.payloads) }

func (q *SpanNearPayloadCheckQuery) accept(sp Spans) (AcceptStatus, error) {
	if !sp.IsPayloadAvailable() {
		return No, nil
	}
	candidate, err := sp.Payload()
	if err != nil {
		return No, err
	}
	if len(candidate) != len(q.payloads) {
		return No, nil
	}
	matches := 0
	for _, c := range candidate {
		for _, p := range q.payloads {
			if bytes.Equal(c, p) {
				matches++
				break
			}
		}
	}
	if matches == len(q.payloads) {
		return Yes, nil
	}
	return No, nil
}

func (q *SpanNearPayloadCheckQuery) Spans(r index.Reader) (Spans, error) { return q.spans(r, q.accept) }

func (q *SpanNearPayloadCheckQuery) WithBoost(b float64) search.Query {
	c := *q
	c.value = b
	return &c
}

func (q *SpanNearPayloadCheckQuery) Rewrite(r index.Reader) (search.Query, error) {
	m, err := q.rewriteMatch(r)
	if err != nil || m == nil {
		return q, err
	}
	c := *q
	c.match = m
	return &c, nil
}

func (q *SpanNearPayloadCheckQuery) CreateWeight(s search.Searcher) (search.Weight, error) {
	return newSpanWeight(q, s)
}

func (q *SpanNearPayloadCheckQuery) Equal(other search.Query) bool {
	o, ok := other.(*SpanNearPayloadCheckQuery)
	return ok && q.value == o.value && payloadsEqual(q.payloads, o.payloads) && q.match.Equal(o.match)
}

func (q *SpanNearPayloadCheckQuery) Hash() uint64 {
	return hashPayloads(search.NewQueryHasher("spannearpaycheck").Float(q.value).U64(q.match.Hash()), q.payloads)
}

func (q *SpanNearPayloadCheckQuery) String(field string) string {
	return payloadCheckString(q.match.String(field), q.payloads, q.value)
}

func clonePayloads(p [][]byte) [][]byte {
	out := make([][]byte, len(p))
	for i, b := range p {
		out[i] = bytes.Clone(b)
	}
	return out
}

func payloadsEqual(a, b [][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !bytes.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func hashPayloads(h *search.QueryHasher, payloads [][]byte) uint64 {
	for _, p := range payloads {
		h.Str(string(p))
	}
	return h.Sum()
}

func payloadCheckString(match string, payloads [][]byte, b float64) string {
	var sb strings.Builder
	sb.WriteString("spanPayCheck(")
	sb.WriteString(match)
	sb.WriteString(", payloadRef: ")
	for _, p := range payloads {
		sb.WriteString(strconv.Itoa(len(p)))
		sb.WriteByte(';')
	}
	sb.WriteString(")")
	sb.WriteString(search.FormatBoost(b))
	return sb.String()
}
