package search

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/internal/docset"
	"github.com/hupe1980/lexis/internal/queue"
)

// MultiTermQuery matches the documents of every index term accepted by an
// enumeration. It must be rewritten before it can be weighted; how is decided
// by its RewriteMethod.
type MultiTermQuery interface {
	Query
	// Field is the single field whose terms are enumerated.
	Field() string
	// VisitTerms calls fn for each accepted term of r in term order until fn
	// reports false.
	VisitTerms(r index.Reader, fn func(t index.Term, docFreq int) (bool, error)) error
	// RewriteMethod returns the strategy used by Rewrite.
	RewriteMethod() RewriteMethod
}

// termMatcher drives a term enumeration: seek is the first term to look at,
// match classifies each enumerated term.
type termMatcher interface {
	seek() index.Term
	match(t index.Term) (accept, stop bool)
}

// MultiTermOption configures a MultiTermQuery.
type MultiTermOption func(*multiTerm)

// WithRewrite selects the rewrite method. The default is ConstantScoreAutoRewrite.
func WithRewrite(m RewriteMethod) MultiTermOption {
	return func(mt *multiTerm) {
		if m != nil {
			mt.rewrite = m
		}
	}
}

type multiTerm struct {
	boost
	field   string
	rewrite RewriteMethod
}

func newMultiTerm(field string, opts []MultiTermOption) multiTerm {
	mt := multiTerm{boost: defaultBoost(), field: field, rewrite: ConstantScoreAutoRewrite}
	for _, opt := range opts {
		opt(&mt)
	}
	return mt
}

func (mt *multiTerm) Field() string                { return mt.field }
func (mt *multiTerm) RewriteMethod() RewriteMethod { return mt.rewrite }

func (mt *multiTerm) equal(o *multiTerm) bool {
	return mt.value == o.value && mt.field == o.field && mt.rewrite == o.rewrite
}

func (mt *multiTerm) CreateWeight(Searcher) (Weight, error) {
	return nil, fmt.Errorf("%w: multi-term query %s must be rewritten before weighting", ErrUnsupported, mt.field)
}

func (mt *multiTerm) ExtractTerms(TermSet) error { return ErrUnsupported }

func visitTerms(r index.Reader, m termMatcher, fn func(t index.Term, docFreq int) (bool, error)) error {
	te, err := r.Terms(m.seek())
	if err != nil {
		return err
	}
	for {
		ok, err := te.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		accept, stop := m.match(te.Term())
		if stop {
			return nil
		}
		if !accept {
			continue
		}
		more, err := fn(te.Term(), te.DocFreq())
		if err != nil || !more {
			return err
		}
	}
}

// PrefixQuery matches terms starting with a prefix.
type PrefixQuery struct {
	multiTerm
	prefix index.Term
}

// NewPrefixQuery returns a query for terms of prefix.Field starting with prefix.Text.
func NewPrefixQuery(prefix index.Term, opts ...MultiTermOption) *PrefixQuery {
	return &PrefixQuery{multiTerm: newMultiTerm(prefix.Field, opts), prefix: prefix}
}

// Prefix returns the prefix term.
func (q *PrefixQuery) Prefix() index.Term { return q.prefix }

func (q *PrefixQuery) seek() index.Term { return q.prefix }

func (q *PrefixQuery) match(t index.Term) (bool, bool) {
	if t.Field != q.prefix.Field || !strings.HasPrefix(t.Text, q.prefix.Text) {
		return false, true
	}
	return true, false
}

func (q *PrefixQuery) VisitTerms(r index.Reader, fn func(index.Term, int) (bool, error)) error {
	return visitTerms(r, q, fn)
}

func (q *PrefixQuery) Rewrite(r index.Reader) (Query, error) { return q.rewrite.Rewrite(r, q) }

func (q *PrefixQuery) WithBoost(b float64) Query {
	c := *q
	c.boost.value = b
	return &c
}

func (q *PrefixQuery) Equal(other Query) bool {
	o, ok := other.(*PrefixQuery)
	return ok && q.prefix == o.prefix && q.multiTerm.equal(&o.multiTerm)
}

func (q *PrefixQuery) Hash() uint64 {
	return NewQueryHasher("prefix").Term(q.prefix).Float(q.value).Str(q.rewrite.String()).Sum()
}

func (q *PrefixQuery) String(field string) string {
	var sb strings.Builder
	if q.field != field {
		sb.WriteString(q.field + ":")
	}
	sb.WriteString(q.prefix.Text + "*")
	return sb.String() + q.boostString()
}

// WildcardQuery matches terms against a pattern where '*' matches any
// sequence of characters and '?' exactly one.
type WildcardQuery struct {
	multiTerm
	pattern  index.Term
	preWild  string
	runes    []rune
	hasWild  bool
	onlyStar bool
}

// NewWildcardQuery returns a query for terms of pattern.Field matching pattern.Text.
func NewWildcardQuery(pattern index.Term, opts ...MultiTermOption) *WildcardQuery {
	q := &WildcardQuery{multiTerm: newMultiTerm(pattern.Field, opts), pattern: pattern}
	first := strings.IndexAny(pattern.Text, "*?")
	q.hasWild = first >= 0
	if q.hasWild {
		q.preWild = pattern.Text[:first]
		q.onlyStar = first == len(pattern.Text)-1 && pattern.Text[first] == '*'
	} else {
		q.preWild = pattern.Text
	}
	q.runes = []rune(pattern.Text)
	return q
}

// Pattern returns the pattern term.
func (q *WildcardQuery) Pattern() index.Term { return q.pattern }

func (q *WildcardQuery) seek() index.Term { return q.pattern.WithText(q.preWild) }

func (q *WildcardQuery) match(t index.Term) (bool, bool) {
	if t.Field != q.pattern.Field || !strings.HasPrefix(t.Text, q.preWild) {
		return false, true
	}
	return wildcardEquals(q.runes, t.Text), false
}

func (q *WildcardQuery) VisitTerms(r index.Reader, fn func(index.Term, int) (bool, error)) error {
	return visitTerms(r, q, fn)
}

// Rewrite turns a pattern without wildcards into a TermQuery and a trailing
// '*' into a PrefixQuery before applying the rewrite method.
func (q *WildcardQuery) Rewrite(r index.Reader) (Query, error) {
	switch {
	case !q.hasWild:
		return NewTermQuery(q.pattern).WithBoost(q.value), nil
	case q.onlyStar:
		p := NewPrefixQuery(q.pattern.WithText(q.preWild), WithRewrite(q.rewrite))
		return p.WithBoost(q.value), nil
	}
	return q.rewrite.Rewrite(r, q)
}

func (q *WildcardQuery) WithBoost(b float64) Query {
	c := *q
	c.boost.value = b
	return &c
}

func (q *WildcardQuery) Equal(other Query) bool {
	o, ok := other.(*WildcardQuery)
	return ok && q.pattern == o.pattern && q.multiTerm.equal(&o.multiTerm)
}

func (q *WildcardQuery) Hash() uint64 {
	return NewQueryHasher("wildcard").Term(q.pattern).Float(q.value).Str(q.rewrite.String()).Sum()
}

func (q *WildcardQuery) String(field string) string {
	s := q.pattern.Text
	if q.field != field {
		s = q.field + ":" + s
	}
	return s + q.boostString()
}

// wildcardEquals matches text against pattern with single-star backtracking.
func wildcardEquals(pattern []rune, text string) bool {
	var (
		p, star = 0, -1
		t, mark = 0, 0
	)
	for t < len(text) {
		r, size := utf8.DecodeRuneInString(text[t:])
		switch {
		case p < len(pattern) && (pattern[p] == '?' || pattern[p] == r):
			p++
			t += size
		case p < len(pattern) && pattern[p] == '*':
			star, mark = p, t
			p++
		case star >= 0:
			p = star + 1
			_, skip := utf8.DecodeRuneInString(text[mark:])
			mark += skip
			t = mark
		default:
			return false
		}
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}

// TermRangeQuery matches terms between lower and upper. An empty lower is
// open; an empty upper is open.
type TermRangeQuery struct {
	multiTerm
	lower, upper               string
	includeLower, includeUpper bool
}

// NewTermRangeQuery returns a range query on field.
func NewTermRangeQuery(field, lower, upper string, includeLower, includeUpper bool, opts ...MultiTermOption) *TermRangeQuery {
	return &TermRangeQuery{
		multiTerm:    newMultiTerm(field, opts),
		lower:        lower,
		upper:        upper,
		includeLower: includeLower,
		includeUpper: includeUpper,
	}
}

// Bounds returns the range bounds and whether they are inclusive.
func (q *TermRangeQuery) Bounds() (lower, upper string, includeLower, includeUpper bool) {
	return q.lower, q.upper, q.includeLower, q.includeUpper
}

func (q *TermRangeQuery) seek() index.Term { return index.NewTerm(q.field, q.lower) }

func (q *TermRangeQuery) match(t index.Term) (bool, bool) {
	if t.Field != q.field {
		return false, true
	}
	if q.lower != "" && !q.includeLower && t.Text == q.lower {
		return false, false
	}
	if q.upper != "" {
		if c := strings.Compare(t.Text, q.upper); c > 0 || (c == 0 && !q.includeUpper) {
			return false, true
		}
	}
	return true, false
}

func (q *TermRangeQuery) VisitTerms(r index.Reader, fn func(index.Term, int) (bool, error)) error {
	return visitTerms(r, q, fn)
}

func (q *TermRangeQuery) Rewrite(r index.Reader) (Query, error) { return q.rewrite.Rewrite(r, q) }

func (q *TermRangeQuery) WithBoost(b float64) Query {
	c := *q
	c.boost.value = b
	return &c
}

func (q *TermRangeQuery) Equal(other Query) bool {
	o, ok := other.(*TermRangeQuery)
	return ok && q.lower == o.lower && q.upper == o.upper &&
		q.includeLower == o.includeLower && q.includeUpper == o.includeUpper &&
		q.multiTerm.equal(&o.multiTerm)
}

func (q *TermRangeQuery) Hash() uint64 {
	return NewQueryHasher("range").Str(q.field).Str(q.lower).Str(q.upper).
		Bool(q.includeLower).Bool(q.includeUpper).Float(q.value).Str(q.rewrite.String()).Sum()
}

func (q *TermRangeQuery) String(field string) string {
	var sb strings.Builder
	if q.field != field {
		sb.WriteString(q.field + ":")
	}
	if q.includeLower {
		sb.WriteByte('[')
	} else {
		sb.WriteByte('{')
	}
	if q.lower == "" {
		sb.WriteByte('*')
	} else {
		sb.WriteString(q.lower)
	}
	sb.WriteString(" TO ")
	if q.upper == "" {
		sb.WriteByte('*')
	} else {
		sb.WriteString(q.upper)
	}
	if q.includeUpper {
		sb.WriteByte(']')
	} else {
		sb.WriteByte('}')
	}
	return sb.String() + q.boostString()
}

// RewriteMethod turns a MultiTermQuery into primitive queries for a reader.
// Implementations are comparable values so queries can compare them with ==.
type RewriteMethod interface {
	Rewrite(r index.Reader, q MultiTermQuery) (Query, error)
	String() string
}

var (
	// ScoringBooleanRewrite produces a coord-disabled BooleanQuery with one
	// SHOULD TermQuery per term, scored normally. It fails with
	// ErrTooManyClauses past MaxClauseCount terms.
	ScoringBooleanRewrite RewriteMethod = scoringBooleanRewrite{}
	// ConstantScoreBooleanRewrite is ScoringBooleanRewrite wrapped in a
	// ConstantScoreQuery.
	ConstantScoreBooleanRewrite RewriteMethod = scoringBooleanRewrite{constant: true}
	// ConstantScoreFilterRewrite collects the documents of all terms into a
	// filter scored by a ConstantScoreQuery.
	ConstantScoreFilterRewrite RewriteMethod = constantScoreFilterRewrite{}
	// ConstantScoreAutoRewrite uses the boolean form for few terms over few
	// documents, otherwise the filter form.
	ConstantScoreAutoRewrite RewriteMethod = NewConstantScoreAutoRewrite(DefaultTermCountCutoff, DefaultDocCountPercent)
)

// Cutoffs of ConstantScoreAutoRewrite.
const (
	DefaultTermCountCutoff = 350
	DefaultDocCountPercent = 0.1
)

type scoringBooleanRewrite struct{ constant bool }

func (m scoringBooleanRewrite) String() string {
	if m.constant {
		return "constant_score_boolean"
	}
	return "scoring_boolean"
}

func (m scoringBooleanRewrite) Rewrite(r index.Reader, q MultiTermQuery) (Query, error) {
	var clauses []BooleanClause
	termBoost := q.Boost()
	if m.constant {
		termBoost = 1
	}
	err := q.VisitTerms(r, func(t index.Term, _ int) (bool, error) {
		if len(clauses) >= MaxClauseCount {
			return false, ErrTooManyClauses
		}
		clauses = append(clauses, ShouldClause(NewTermQuery(t).WithBoost(termBoost)))
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	bq := newBooleanQuery(clauses, true)
	if !m.constant || len(clauses) == 0 {
		return bq, nil
	}
	return &ConstantScoreQuery{boost: boost{value: q.Boost()}, query: bq}, nil
}

type constantScoreFilterRewrite struct{}

func (constantScoreFilterRewrite) String() string { return "constant_score_filter" }

func (constantScoreFilterRewrite) Rewrite(_ index.Reader, q MultiTermQuery) (Query, error) {
	return &ConstantScoreQuery{boost: boost{value: q.Boost()}, filter: NewMultiTermQueryWrapperFilter(q)}, nil
}

type constantScoreAutoRewrite struct {
	termCountCutoff int
	docCountPercent float64
}

// NewConstantScoreAutoRewrite returns an auto rewrite with custom cutoffs.
// termCountCutoff is capped at MaxClauseCount.
func NewConstantScoreAutoRewrite(termCountCutoff int, docCountPercent float64) RewriteMethod {
	return constantScoreAutoRewrite{termCountCutoff: termCountCutoff, docCountPercent: docCountPercent}
}

func (m constantScoreAutoRewrite) String() string { return "constant_score_auto" }

func (m constantScoreAutoRewrite) Rewrite(r index.Reader, q MultiTermQuery) (Query, error) {
	termCutoff := min(m.termCountCutoff, MaxClauseCount)
	docCutoff := int(m.docCountPercent / 100 * float64(r.MaxDoc()))
	var (
		terms    []index.Term
		visited  int
		overflow bool
	)
	err := q.VisitTerms(r, func(t index.Term, df int) (bool, error) {
		terms = append(terms, t)
		visited += df
		if len(terms) >= termCutoff || visited >= docCutoff {
			overflow = true
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if overflow {
		return ConstantScoreFilterRewrite.Rewrite(r, q)
	}
	if len(terms) == 0 {
		return newBooleanQuery(nil, true), nil
	}
	clauses := make([]BooleanClause, len(terms))
	for i, t := range terms {
		clauses[i] = ShouldClause(NewTermQuery(t))
	}
	return &ConstantScoreQuery{boost: boost{value: q.Boost()}, query: newBooleanQuery(clauses, true)}, nil
}

type topTermsRewrite struct{ size int }

// NewTopTermsRewrite keeps at most size terms, preferring the smallest in
// term order, scored like ScoringBooleanRewrite.
func NewTopTermsRewrite(size int) RewriteMethod { return topTermsRewrite{size: size} }

func (m topTermsRewrite) String() string { return "top_terms" }

func (m topTermsRewrite) Rewrite(r index.Reader, q MultiTermQuery) (Query, error) {
	terms, err := CollectTopTerms(r, q, min(m.size, MaxClauseCount))
	if err != nil {
		return nil, err
	}
	clauses := make([]BooleanClause, len(terms))
	for i, t := range terms {
		clauses[i] = ShouldClause(NewTermQuery(t).WithBoost(q.Boost()))
	}
	return newBooleanQuery(clauses, true), nil
}

// TopTermsSize reports the term limit of a rewrite method created by
// NewTopTermsRewrite.
func TopTermsSize(m RewriteMethod) (int, bool) {
	tt, ok := m.(topTermsRewrite)
	return tt.size, ok
}

// CollectTopTerms returns, in term order, the limit smallest terms q accepts
// in r. A limit <= 0 returns every term.
func CollectTopTerms(r index.Reader, q MultiTermQuery, limit int) ([]index.Term, error) {
	if limit <= 0 {
		var terms []index.Term
		err := q.VisitTerms(r, func(t index.Term, _ int) (bool, error) {
			terms = append(terms, t)
			return true, nil
		})
		return terms, err
	}
	// The top of the heap is the term to evict next: the largest one.
	pq := queue.New[index.Term](limit, func(a, b index.Term) bool { return a.Compare(b) > 0 })
	err := q.VisitTerms(r, func(t index.Term, _ int) (bool, error) {
		pq.PushBounded(t, limit)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	terms := pq.Items()
	sortTerms(terms)
	return terms, nil
}

func sortTerms(terms []index.Term) {
	for i := 1; i < len(terms); i++ {
		for j := i; j > 0 && terms[j].Compare(terms[j-1]) < 0; j-- {
			terms[j], terms[j-1] = terms[j-1], terms[j]
		}
	}
}

// MultiTermQueryWrapperFilter matches the union of the postings of every term
// a MultiTermQuery accepts.
type MultiTermQueryWrapperFilter struct {
	q MultiTermQuery
}

// NewMultiTermQueryWrapperFilter wraps q.
func NewMultiTermQueryWrapperFilter(q MultiTermQuery) *MultiTermQueryWrapperFilter {
	return &MultiTermQueryWrapperFilter{q: q}
}

func (f *MultiTermQueryWrapperFilter) DocIDSet(r index.Reader) (DocIDSet, error) {
	bm := docset.New()
	err := f.q.VisitTerms(r, func(t index.Term, _ int) (bool, error) {
		td, err := r.TermDocs(t)
		if err != nil {
			return false, err
		}
		for {
			ok, err := td.Next()
			if err != nil {
				return false, err
			}
			if !ok {
				return true, nil
			}
			bm.Add(td.Doc())
		}
	})
	if err != nil {
		return nil, err
	}
	return NewBitmapDocIDSet(bm), nil
}

func (f *MultiTermQueryWrapperFilter) Equal(other Filter) bool {
	o, ok := other.(*MultiTermQueryWrapperFilter)
	return ok && f.q.Equal(o.q)
}

func (f *MultiTermQueryWrapperFilter) Hash() uint64 { return NewQueryHasher("mtqfilter").U64(f.q.Hash()).Sum() }

func (f *MultiTermQueryWrapperFilter) String() string { return f.q.String("") }
