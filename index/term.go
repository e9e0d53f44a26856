package index

import (
	"cmp"
	"math"
)

// NoMoreDocs is the sentinel doc id of an exhausted iterator.
const NoMoreDocs = math.MaxInt32

// Term is a (field, text) pair, the unit of indexing and search.
type Term struct {
	Field string
	Text  string
}

// NewTerm returns the term field:text.
func NewTerm(field, text string) Term {
	return Term{Field: field, Text: text}
}

// Compare orders terms by field, then by text.
func (t Term) Compare(o Term) int {
	if c := cmp.Compare(t.Field, o.Field); c != 0 {
		return c
	}
	return cmp.Compare(t.Text, o.Text)
}

// WithText returns a term in the same field with different text.
func (t Term) WithText(text string) Term {
	return Term{Field: t.Field, Text: text}
}

func (t Term) String() string {
	return t.Field + ":" + t.Text
}
