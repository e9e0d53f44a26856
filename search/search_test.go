package search

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/index/memindex"
	"github.com/hupe1980/lexis/internal/testutil"
)

func newSegment(t testing.TB, texts ...string) *memindex.Segment {
	t.Helper()
	return testutil.Segment(t, "body", texts...)
}

func randomTexts(rng *rand.Rand, n int, vocab []string, maxLen int) []string {
	texts := make([]string, n)
	for i := range texts {
		words := make([]string, 1+rng.IntN(maxLen))
		for j := range words {
			words[j] = vocab[rng.IntN(len(vocab))]
		}
		texts[i] = strings.Join(words, " ")
	}
	return texts
}

func body(text string) index.Term { return index.NewTerm("body", text) }

func termQ(text string) Query { return NewTermQuery(body(text)) }

type collectingSearcher interface {
	SearchCollector(ctx context.Context, q Query, filter Filter, c Collector) error
}

// matches returns every hit of q as global doc id -> score.
func matches(t testing.TB, s collectingSearcher, q Query, filter Filter) map[int]float64 {
	t.Helper()
	out := map[int]float64{}
	err := s.SearchCollector(context.Background(), q, filter, CollectorFunc(func(doc int, score float64) error {
		_, dup := out[doc]
		require.False(t, dup, "doc %d collected twice", doc)
		out[doc] = score
		return nil
	}))
	require.NoError(t, err)
	return out
}

func docIDs(hits map[int]float64) []int {
	docs := make([]int, 0, len(hits))
	for d := range hits {
		docs = append(docs, d)
	}
	slices.Sort(docs)
	return docs
}

func mustBoolean(t testing.TB, clauses []BooleanClause, opts ...BooleanOption) *BooleanQuery {
	t.Helper()
	q, err := NewBooleanQuery(clauses, opts...)
	require.NoError(t, err)
	return q
}

func mustDocFilter(t testing.TB, docs ...int) *DocIDFilter {
	t.Helper()
	f, err := NewDocIDFilter(docs...)
	require.NoError(t, err)
	return f
}

func TestBooleanScenario(t *testing.T) {
	s := NewIndexSearcher(newSegment(t, "a b c", "a c", "b c"))
	q := mustBoolean(t, []BooleanClause{MustClause(termQ("a")), MustClause(termQ("b"))})
	assert.Equal(t, []int{0}, docIDs(matches(t, s, q, nil)))

	td, err := s.Search(context.Background(), q, nil, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, td.TotalHits)
	require.Len(t, td.ScoreDocs, 1)
	assert.Equal(t, 0, td.ScoreDocs[0].Doc)
}

func TestConstantScoreScenario(t *testing.T) {
	s := NewIndexSearcher(newSegment(t, "a b c", "a c", "b c"))
	q, err := NewConstantScoreQuery(mustDocFilter(t, 1, 2))
	require.NoError(t, err)

	td, err := s.Search(context.Background(), q.WithBoost(5), nil, 10)
	require.NoError(t, err)
	require.Equal(t, 2, td.TotalHits)
	for _, sd := range td.ScoreDocs {
		assert.Equal(t, 5.0, sd.Score)
	}
	assert.Equal(t, 5.0, td.MaxScore)

	t.Run("inside a boolean query", func(t *testing.T) {
		bq := mustBoolean(t, []BooleanClause{MustClause(termQ("c")), ShouldClause(q.WithBoost(5))})
		hits := matches(t, s, bq, nil)
		assert.Equal(t, []int{0, 1, 2}, docIDs(hits))
		assert.Greater(t, hits[1], hits[0])
	})

	t.Run("wrapping a query", func(t *testing.T) {
		cq, err := NewConstantScoreQueryFromQuery(termQ("c"))
		require.NoError(t, err)
		hits := matches(t, s, cq.WithBoost(2), nil)
		assert.Equal(t, map[int]float64{0: 2, 1: 2, 2: 2}, hits)
	})

	t.Run("explain", func(t *testing.T) {
		expl, err := s.Explain(q.WithBoost(5), 1)
		require.NoError(t, err)
		assert.True(t, expl.IsMatch())
		assert.Equal(t, 5.0, expl.Value)
		expl, err = s.Explain(q.WithBoost(5), 0)
		require.NoError(t, err)
		assert.False(t, expl.IsMatch())
	})

	t.Run("nil filter", func(t *testing.T) {
		_, err := NewConstantScoreQuery(nil)
		require.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestFilteredQueryScenario(t *testing.T) {
	s := NewIndexSearcher(newSegment(t, "a b c", "a c", "b c"))

	q, err := NewFilteredQuery(termQ("a"), mustDocFilter(t, 0))
	require.NoError(t, err)
	assert.Equal(t, []int{0}, docIDs(matches(t, s, q, nil)))

	empty, err := NewFilteredQuery(termQ("a"), mustDocFilter(t, 2))
	require.NoError(t, err)
	assert.Empty(t, matches(t, s, empty, nil))

	td, err := s.Search(context.Background(), empty, nil, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, td.TotalHits)
	assert.True(t, math.IsNaN(td.MaxScore))
}

func TestFilteredQueryIdempotent(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	seg := newSegment(t, randomTexts(rng, 60, []string{"a", "b", "c", "d"}, 6)...)
	s := NewIndexSearcher(seg)
	f := mustDocFilter(t, 1, 3, 5, 8, 13, 21, 34, 55)

	for _, inner := range []Query{
		termQ("a"),
		mustBoolean(t, []BooleanClause{ShouldClause(termQ("b")), ShouldClause(termQ("c"))}),
	} {
		once, err := NewFilteredQuery(inner, f)
		require.NoError(t, err)
		twice, err := NewFilteredQuery(once, f)
		require.NoError(t, err)

		a := matches(t, s, once, nil)
		b := matches(t, s, twice, nil)
		assert.Equal(t, docIDs(a), docIDs(b))
		for doc, score := range a {
			assert.InDelta(t, score, b[doc], 1e-9)
		}
		// Same documents as searching with the filter directly.
		assert.Equal(t, docIDs(a), docIDs(matches(t, s, inner, f)))
	}
}

func TestSearchWithFilterMatchesFilteredQuery(t *testing.T) {
	s := NewIndexSearcher(newSegment(t, "a b", "a", "b", "a a", "c"))
	f := mustDocFilter(t, 0, 2, 3, 4)
	fq, err := NewFilteredQuery(termQ("a"), f)
	require.NoError(t, err)

	direct := matches(t, s, termQ("a"), f)
	wrapped := matches(t, s, fq, nil)
	assert.Equal(t, []int{0, 3}, docIDs(direct))
	assert.Equal(t, direct, wrapped)
}

func TestSearchTopDocs(t *testing.T) {
	s := NewIndexSearcher(newSegment(t, "a", "a a", "b", "a b", "a a a"))

	td, err := s.Search(context.Background(), termQ("a"), nil, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, td.TotalHits)
	require.Len(t, td.ScoreDocs, 2)
	assert.Equal(t, td.ScoreDocs[0].Score, td.MaxScore)
	assert.GreaterOrEqual(t, td.ScoreDocs[0].Score, td.ScoreDocs[1].Score)

	all := matches(t, s, termQ("a"), nil)
	var scores []float64
	for _, sc := range all {
		scores = append(scores, sc)
	}
	slices.Sort(scores)
	assert.InDelta(t, scores[len(scores)-1], td.ScoreDocs[0].Score, 1e-12)
	assert.InDelta(t, scores[len(scores)-2], td.ScoreDocs[1].Score, 1e-12)

	_, err = s.Search(context.Background(), termQ("a"), nil, 0)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSearchTieBreakPrefersHigherDoc(t *testing.T) {
	s := NewIndexSearcher(newSegment(t, "x", "x", "x", "x"))
	td, err := s.Search(context.Background(), termQ("x"), nil, 2)
	require.NoError(t, err)
	require.Len(t, td.ScoreDocs, 2)
	assert.Equal(t, []int{3, 2}, []int{td.ScoreDocs[0].Doc, td.ScoreDocs[1].Doc})
}

func TestSearchAcrossSegments(t *testing.T) {
	texts := []string{"a b", "b c", "a", "c c", "a c", "b"}
	single := NewIndexSearcher(newSegment(t, texts...))
	multi := NewIndexSearcher(index.NewMultiReader(
		newSegment(t, texts[:2]...),
		newSegment(t, texts[2:4]...),
		newSegment(t, texts[4:]...),
	))
	parallel := NewIndexSearcher(index.NewMultiReader(
		newSegment(t, texts[:2]...),
		newSegment(t, texts[2:4]...),
		newSegment(t, texts[4:]...),
	), WithParallel())

	q := mustBoolean(t, []BooleanClause{ShouldClause(termQ("a")), ShouldClause(termQ("c"))})
	want, err := single.Search(context.Background(), q, nil, 10)
	require.NoError(t, err)
	for _, s := range []*IndexSearcher{multi, parallel} {
		got, err := s.Search(context.Background(), q, nil, 10)
		require.NoError(t, err)
		assert.Equal(t, want.TotalHits, got.TotalHits)
		require.Len(t, got.ScoreDocs, len(want.ScoreDocs))
		for i := range want.ScoreDocs {
			assert.Equal(t, want.ScoreDocs[i].Doc, got.ScoreDocs[i].Doc)
			assert.InDelta(t, want.ScoreDocs[i].Score, got.ScoreDocs[i].Score, 1e-9)
		}
	}
}

func TestCollectorErrorsPropagate(t *testing.T) {
	s := NewIndexSearcher(index.NewMultiReader(newSegment(t, "a", "a"), newSegment(t, "a")))
	var seen int
	err := s.SearchCollector(context.Background(), termQ("a"), nil, CollectorFunc(func(int, float64) error {
		seen++
		return ErrCollectionTerminated
	}))
	require.ErrorIs(t, err, ErrCollectionTerminated)
	assert.Equal(t, 1, seen)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.SearchCollector(ctx, termQ("a"), nil, NewTotalHitCountCollector())
	require.ErrorIs(t, err, context.Canceled)
}

func TestTotalHitCountCollector(t *testing.T) {
	s := NewIndexSearcher(newSegment(t, "a", "b", "a b", "c"))
	c := NewTotalHitCountCollector()
	require.NoError(t, s.SearchCollector(context.Background(), termQ("a"), nil, c))
	assert.Equal(t, 2, c.TotalHits())
}

func TestPositiveScoresOnlyCollector(t *testing.T) {
	s := NewIndexSearcher(newSegment(t, "a", "b", "a b"))
	cq, err := NewConstantScoreQuery(mustDocFilter(t, 0, 1, 2))
	require.NoError(t, err)

	inner := NewTotalHitCountCollector()
	require.NoError(t, s.SearchCollector(context.Background(), cq.WithBoost(0), nil, NewPositiveScoresOnlyCollector(inner)))
	assert.Equal(t, 0, inner.TotalHits())

	inner = NewTotalHitCountCollector()
	require.NoError(t, s.SearchCollector(context.Background(), cq, nil, NewPositiveScoresOnlyCollector(inner)))
	assert.Equal(t, 3, inner.TotalHits())
}

func TestTimeLimitingCollector(t *testing.T) {
	_, err := NewTimeLimitingCollector(NewTotalHitCountCollector(), 0)
	require.ErrorIs(t, err, ErrInvalidArgument)

	const allowed = 10 * time.Millisecond
	inner := NewTotalHitCountCollector()
	c, err := NewTimeLimitingCollector(inner, allowed)
	require.NoError(t, err)
	c.now = func() time.Time { return c.start.Add(2 * allowed) }
	c.SetGreedy(true)

	s := NewIndexSearcher(newSegment(t, "a", "a"))
	err = s.SearchCollector(context.Background(), termQ("a"), nil, c)
	var te *TimeExceededError
	require.ErrorAs(t, err, &te)
	require.ErrorIs(t, err, ErrTimeExceeded)
	assert.Equal(t, 0, te.LastDoc)
	assert.Equal(t, 1, inner.TotalHits())
}

func TestRewriteFixedPoint(t *testing.T) {
	s := NewIndexSearcher(newSegment(t, "apple", "apricot", "banana"))
	q := NewWildcardQuery(body("ap*"), WithRewrite(ScoringBooleanRewrite))
	rewritten, err := s.Rewrite(q)
	require.NoError(t, err)
	again, err := s.Rewrite(rewritten)
	require.NoError(t, err)
	assert.True(t, again.Equal(rewritten))

	bq, ok := rewritten.(*BooleanQuery)
	require.True(t, ok, "got %T", rewritten)
	assert.Len(t, bq.Clauses(), 2)
}

func TestDocAndDocFreq(t *testing.T) {
	s := NewIndexSearcher(newSegment(t, "a b", "b"))
	df, err := s.DocFreq(body("b"))
	require.NoError(t, err)
	assert.Equal(t, 2, df)

	dfs, err := s.DocFreqs([]index.Term{body("a"), body("zz")})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, dfs)

	doc, err := s.Doc(1)
	require.NoError(t, err)
	assert.Equal(t, "b", doc.Get("body"))

	_, err = s.Explain(termQ("a"), 7)
	require.True(t, errors.Is(err, ErrInvalidArgument))
}
