package search

import (
	"strconv"
	"strings"
)

// Explanation describes how a score was computed.
type Explanation struct {
	Value       float64
	Description string
	Details     []*Explanation

	// match is set only for explanations that record an explicit match flag.
	match *bool
}

// NewExplanation returns a leaf explanation.
func NewExplanation(value float64, description string) *Explanation {
	return &Explanation{Value: value, Description: description}
}

// NewComplexExplanation returns an explanation with an explicit match flag.
func NewComplexExplanation(match bool, value float64, description string) *Explanation {
	return &Explanation{Value: value, Description: description, match: &match}
}

// AddDetail appends a sub-explanation.
func (e *Explanation) AddDetail(d *Explanation) {
	e.Details = append(e.Details, d)
}

// SetMatch records an explicit match flag.
func (e *Explanation) SetMatch(match bool) {
	e.match = &match
}

// IsMatch reports whether the document matched. Without an explicit flag a
// positive value means a match.
func (e *Explanation) IsMatch() bool {
	if e.match != nil {
		return *e.match
	}
	return e.Value > 0
}

func (e *Explanation) summary() string {
	v := strconv.FormatFloat(e.Value, 'g', -1, 64)
	if e.match == nil {
		return v + " = " + e.Description
	}
	if *e.match {
		return v + " = (MATCH) " + e.Description
	}
	return v + " = (NON-MATCH) " + e.Description
}

// String renders the explanation tree, one node per line.
func (e *Explanation) String() string {
	var sb strings.Builder
	e.write(&sb, 0)
	return sb.String()
}

func (e *Explanation) write(sb *strings.Builder, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(e.summary())
	sb.WriteByte('\n')
	for _, d := range e.Details {
		d.write(sb, depth+1)
	}
}

// IDFExplanation is an idf value and a description of its inputs.
type IDFExplanation struct {
	Idf     float64
	Explain string
}
