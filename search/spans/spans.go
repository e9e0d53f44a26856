// Package spans implements positional queries.
//
// A span is a (doc, start, end) match over token positions, end exclusive.
// Span iterators yield spans ordered by doc and, within a doc, by start then
// end. Every combinator in this package preserves that order, which the
// near, or and not algorithms rely on.
//
// Span queries score like sloppy phrases: each span contributes
// SloppyFreq(end-start) to the document frequency.
package spans

import (
	"fmt"

	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/search"
)

// Spans is an iterator over span matches.
//
// A fresh Spans is unpositioned; Next or SkipTo must be called before Doc.
type Spans interface {
	// Next moves to the next span. It reports false when exhausted.
	Next() (bool, error)
	// SkipTo moves to the first span in a doc >= target. Like TermDocs.SkipTo
	// it always moves at least one span forward.
	SkipTo(target int) (bool, error)
	// Doc returns the doc of the current span.
	Doc() int
	// Start returns the first position of the current span.
	Start() int
	// End returns one past the last position of the current span.
	End() int
	// Payload returns the payloads of the current span. It may be read once
	// per span and fails with index.ErrUnsupported when there are none.
	Payload() ([][]byte, error)
	// IsPayloadAvailable reports whether Payload would return data.
	IsPayloadAvailable() bool
}

// SpanQuery is a query that matches spans of a single field.
type SpanQuery interface {
	search.Query
	// Field is the field all spans are taken from.
	Field() string
	// Spans returns the matches of the query in r.
	Spans(r index.Reader) (Spans, error)
}

type boost struct {
	value float64
}

func (b boost) Boost() float64 { return b.value }

// ordered reports whether span (s1, e1) sorts before (s2, e2).
func ordered(s1, e1, s2, e2 int) bool {
	if s1 == s2 {
		return e1 < e2
	}
	return s1 < s2
}

func spansOrdered(a, b Spans) bool { return ordered(a.Start(), a.End(), b.Start(), b.End()) }

// lessSpans orders spans by doc, start and end.
func lessSpans(a, b Spans) bool {
	if a.Doc() != b.Doc() {
		return a.Doc() < b.Doc()
	}
	return spansOrdered(a, b)
}

func noPayload() error {
	return fmt.Errorf("%w: span carries no payload", index.ErrUnsupported)
}

// rewriteClauses rewrites each clause and reports whether any changed.
func rewriteClauses(r index.Reader, clauses []SpanQuery) ([]SpanQuery, bool, error) {
	out := make([]SpanQuery, len(clauses))
	changed := false
	for i, c := range clauses {
		rw, err := c.Rewrite(r)
		if err != nil {
			return nil, false, err
		}
		sq, ok := rw.(SpanQuery)
		if !ok {
			return nil, false, fmt.Errorf("%w: clause %s rewrote to non-span query %s",
				search.ErrUnsupported, c.String(""), rw.String(""))
		}
		if sq != c {
			changed = true
		}
		out[i] = sq
	}
	return out, changed, nil
}

func clausesEqual(a, b []SpanQuery) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// checkField validates that every clause targets the same field.
func checkField(clauses []SpanQuery) (string, error) {
	field := ""
	for i, c := range clauses {
		if c == nil {
			return "", &search.ConfigError{Field: "clauses", Reason: fmt.Sprintf("clause %d is nil", i)}
		}
		if err := search.CheckBoost(c.Boost()); err != nil {
			return "", fmt.Errorf("clause %d: %w", i, err)
		}
		if i == 0 {
			field = c.Field()
			continue
		}
		if c.Field() != field {
			return "", &search.ConfigError{Field: "clauses",
				Reason: fmt.Sprintf("clauses must have the same field, got %q and %q", field, c.Field())}
		}
	}
	return field, nil
}
