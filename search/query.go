package search

import (
	"encoding/binary"
	"hash"
	"math"
	"slices"
	"strconv"

	"github.com/hupe1980/lexis/index"
	lhash "github.com/hupe1980/lexis/internal/hash"
)

// Query is a node of a query tree.
//
// Queries are immutable after construction. Equal and Hash are structural
// and include the boost.
type Query interface {
	// CreateWeight binds the query to s. The query must already be rewritten.
	CreateWeight(s Searcher) (Weight, error)
	// Rewrite returns a more primitive equivalent query, or the query itself.
	Rewrite(r index.Reader) (Query, error)
	// ExtractTerms adds the leaf terms of a rewritten query to terms.
	ExtractTerms(terms TermSet) error
	// Boost is the score multiplier, 1 by default.
	Boost() float64
	// WithBoost returns a copy of the query with boost b.
	WithBoost(b float64) Query
	// Equal reports structural equality.
	Equal(other Query) bool
	// Hash is consistent with Equal.
	Hash() uint64
	// String renders the query, omitting field where it is the default.
	String(field string) string
}

// TermSet is a set of terms.
type TermSet map[index.Term]struct{}

// Add inserts t.
func (s TermSet) Add(t index.Term) { s[t] = struct{}{} }

// Contains reports whether t is in the set.
func (s TermSet) Contains(t index.Term) bool {
	_, ok := s[t]
	return ok
}

// Sorted returns the terms in Term.Compare order.
func (s TermSet) Sorted() []index.Term {
	out := make([]index.Term, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	slices.SortFunc(out, index.Term.Compare)
	return out
}

// boost holds the multiplier embedded in every concrete query.
type boost struct {
	value float64
}

func defaultBoost() boost { return boost{value: 1} }

// Boost returns the score multiplier.
func (b boost) Boost() float64 { return b.value }

func (b boost) boostString() string { return FormatBoost(b.value) }

// CheckBoost rejects NaN and infinite boosts with ErrInvalidArgument.
func CheckBoost(b float64) error {
	if math.IsNaN(b) || math.IsInf(b, 0) {
		return invalidArg("boost", "must be finite, got %v", b)
	}
	return nil
}

// FormatBoost renders a non-default boost as "^2.5" and the default as "".
func FormatBoost(b float64) string {
	if b == 1 {
		return ""
	}
	return "^" + strconv.FormatFloat(b, 'g', -1, 64)
}

// QueryHasher builds structural hashes for Query and Filter implementations,
// including those defined outside this package.
type QueryHasher struct {
	h   hash.Hash32
	buf [8]byte
}

// NewQueryHasher starts a hash tagged with the node kind.
func NewQueryHasher(kind string) *QueryHasher {
	qh := &QueryHasher{h: lhash.NewCRC32C()}
	qh.Str(kind)
	return qh
}

func (qh *QueryHasher) Str(s string) *QueryHasher {
	qh.U64(uint64(len(s)))
	_, _ = qh.h.Write([]byte(s))
	return qh
}

func (qh *QueryHasher) U64(v uint64) *QueryHasher {
	binary.LittleEndian.PutUint64(qh.buf[:], v)
	_, _ = qh.h.Write(qh.buf[:])
	return qh
}

func (qh *QueryHasher) Int(v int) *QueryHasher         { return qh.U64(uint64(v)) }
func (qh *QueryHasher) Float(v float64) *QueryHasher   { return qh.U64(math.Float64bits(v)) }
func (qh *QueryHasher) Term(t index.Term) *QueryHasher { return qh.Str(t.Field).Str(t.Text) }

func (qh *QueryHasher) Bool(v bool) *QueryHasher {
	if v {
		return qh.U64(1)
	}
	return qh.U64(0)
}

// Sum returns the hash.
func (qh *QueryHasher) Sum() uint64 { return uint64(qh.h.Sum32()) }

// Combine merges the rewrites of one query produced by several searchers
// into a single query. Identical rewrites collapse to one; otherwise the
// distinct queries become SHOULD clauses of a coord-disabled BooleanQuery.
func Combine(queries ...Query) Query {
	var uniques []Query
	add := func(q Query) {
		for _, u := range uniques {
			if u.Equal(q) {
				return
			}
		}
		uniques = append(uniques, q)
	}
	for _, q := range queries {
		if bq, ok := q.(*BooleanQuery); ok && bq.disableCoord && bq.allShould() {
			for _, c := range bq.clauses {
				add(c.Query)
			}
			continue
		}
		add(q)
	}
	if len(uniques) == 1 {
		return uniques[0]
	}
	clauses := make([]BooleanClause, len(uniques))
	for i, q := range uniques {
		clauses[i] = BooleanClause{Query: q, Occur: Should}
	}
	return &BooleanQuery{boost: defaultBoost(), clauses: clauses, disableCoord: true}
}
