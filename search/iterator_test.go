package search

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/lexis/index"
)

func scorerFor(t testing.TB, r index.Reader, q Query) Scorer {
	t.Helper()
	w, err := CreateNormalizedWeight(q, NewIndexSearcher(r))
	require.NoError(t, err)
	sc, err := w.Scorer(r, true, false)
	require.NoError(t, err)
	return scorerOrEmpty(sc)
}

// drainScores walks s with NextDoc and records doc -> score.
func drainScores(t testing.TB, s Scorer) ([]int, map[int]float64) {
	t.Helper()
	var docs []int
	scores := map[int]float64{}
	for {
		doc, err := s.NextDoc()
		require.NoError(t, err)
		if doc == NoMoreDocs {
			return docs, scores
		}
		if len(docs) > 0 {
			require.Greater(t, doc, docs[len(docs)-1])
		}
		docs = append(docs, doc)
		scores[doc] = s.Score()
	}
}

func firstAtLeast(docs []int, target int) int {
	for _, d := range docs {
		if d >= target {
			return d
		}
	}
	return NoMoreDocs
}

func requireMisuse(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		require.ErrorIs(t, err, ErrIteratorMisuse)
	}()
	fn()
}

func iteratorQueries(t testing.TB) map[string]Query {
	phrase, err := NewPhraseQuery(body("a"), body("b"))
	require.NoError(t, err)
	dismax, err := NewDisjunctionMaxQuery(0.3, termQ("a"), termQ("c"))
	require.NoError(t, err)
	filtered, err := NewFilteredQuery(termQ("b"), mustDocFilter(t, 2, 4, 6, 8, 10, 40, 41, 42, 77))
	require.NoError(t, err)
	constant, err := NewConstantScoreQuery(NewTermsFilter(body("d"), body("e")))
	require.NoError(t, err)
	return map[string]Query{
		"term": termQ("a"),
		"conjunction": mustBoolean(t, []BooleanClause{
			MustClause(termQ("a")), MustClause(termQ("b")),
		}),
		"disjunction": mustBoolean(t, []BooleanClause{
			ShouldClause(termQ("a")), ShouldClause(termQ("b")), ShouldClause(termQ("e")),
		}),
		"required excluded": mustBoolean(t, []BooleanClause{
			MustClause(termQ("c")), MustNotClause(termQ("d")),
		}),
		"required optional": mustBoolean(t, []BooleanClause{
			MustClause(termQ("b")), ShouldClause(termQ("c")),
		}),
		"minimum should match": mustBoolean(t, []BooleanClause{
			ShouldClause(termQ("a")), ShouldClause(termQ("b")), ShouldClause(termQ("c")),
		}, WithMinimumShouldMatch(2)),
		"phrase":        phrase,
		"sloppy phrase": phrase.WithSlop(2),
		"dismax":        dismax,
		"filtered":      filtered,
		"constant":      constant,
	}
}

func TestIteratorProtocol(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	seg := newSegment(t, randomTexts(rng, 120, []string{"a", "b", "c", "d", "e"}, 7)...)

	for name, q := range iteratorQueries(t) {
		t.Run(name, func(t *testing.T) {
			s := scorerFor(t, seg, q)
			assert.Equal(t, -1, s.DocID())
			docs, scores := drainScores(t, s)
			assert.NotEmpty(t, docs)

			// Exhaustion is terminal.
			for range 3 {
				doc, err := s.NextDoc()
				require.NoError(t, err)
				assert.Equal(t, NoMoreDocs, doc)
			}

			// Advance lands where NextDoc would, with the same score.
			for round := range 20 {
				s := scorerFor(t, seg, q)
				cur := -1
				for cur != NoMoreDocs {
					var (
						doc int
						err error
					)
					if round%2 == 1 && rng.IntN(3) == 0 {
						doc, err = s.NextDoc()
						require.NoError(t, err)
						assert.Equal(t, firstAtLeast(docs, cur+1), doc)
					} else {
						target := cur + 1 + rng.IntN(6)
						doc, err = s.Advance(target)
						require.NoError(t, err)
						assert.Equal(t, firstAtLeast(docs, target), doc, "advance(%d) from %d", target, cur)
					}
					if doc != NoMoreDocs {
						assert.InDelta(t, scores[doc], s.Score(), 1e-12)
					}
					cur = doc
				}
			}
		})
	}
}

func TestIteratorMisuse(t *testing.T) {
	seg := newSegment(t, "a", "b a", "a a", "c")
	for _, q := range []Query{
		termQ("a"),
		mustBoolean(t, []BooleanClause{MustClause(termQ("a")), ShouldClause(termQ("b"))}),
	} {
		s := scorerFor(t, seg, q)
		requireMisuse(t, func() { s.Score() })

		doc, err := s.Advance(2)
		require.NoError(t, err)
		require.Equal(t, 2, doc)
		requireMisuse(t, func() { _, _ = s.Advance(1) })
		requireMisuse(t, func() { _, _ = s.Advance(2) })
	}
}

func TestEmptyIterator(t *testing.T) {
	it := newEmptyIterator()
	assert.Equal(t, -1, it.DocID())
	doc, err := it.NextDoc()
	require.NoError(t, err)
	assert.Equal(t, NoMoreDocs, doc)
	doc, err = it.Advance(3)
	require.NoError(t, err)
	assert.Equal(t, NoMoreDocs, doc)
}

func TestScoreRangeStopsAtMax(t *testing.T) {
	seg := newSegment(t, "a", "a", "b", "a", "a")
	s := scorerFor(t, seg, termQ("a"))
	first, err := s.NextDoc()
	require.NoError(t, err)

	var got []int
	c := CollectorFunc(func(doc int, _ float64) error {
		got = append(got, doc)
		return nil
	})
	more, err := ScoreRange(s, c, 3, first)
	require.NoError(t, err)
	assert.True(t, more)
	assert.Equal(t, []int{0, 1}, got)
	assert.Equal(t, 3, s.DocID())

	more, err = ScoreRange(s, c, NoMoreDocs, s.DocID())
	require.NoError(t, err)
	assert.False(t, more)
	assert.Equal(t, []int{0, 1, 3, 4}, got)
}
