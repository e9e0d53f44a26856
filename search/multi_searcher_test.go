package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/index/memindex"
	"github.com/hupe1980/lexis/internal/resource"
	"github.com/hupe1980/lexis/internal/testutil"
)

func shardSearchables(t testing.TB, texts []string, n int) []Searchable {
	t.Helper()
	shards := testutil.Shards(t, "body", texts, n)
	out := make([]Searchable, len(shards))
	for i, seg := range shards {
		out[i] = NewIndexSearcher(seg)
	}
	return out
}

// topSearcher is the query-level API shared by IndexSearcher and
// MultiSearcher.
type topSearcher interface {
	Search(ctx context.Context, q Query, filter Filter, n int) (*TopDocs, error)
	SearchSorted(ctx context.Context, q Query, filter Filter, n int, sort *Sort) (*TopFieldDocs, error)
}

func mustMulti(t testing.TB, subs []Searchable, opts ...Option) *MultiSearcher {
	t.Helper()
	ms, err := NewMultiSearcher(subs, opts...)
	require.NoError(t, err)
	return ms
}

func TestMultiSearcherScenario(t *testing.T) {
	single := NewIndexSearcher(newSegment(t, "x y", "x y"))
	multi := mustMulti(t, []Searchable{
		NewIndexSearcher(newSegment(t, "x y")),
		NewIndexSearcher(newSegment(t, "x y")),
	})

	want, err := single.Search(context.Background(), termQ("x"), nil, 10)
	require.NoError(t, err)
	got, err := multi.Search(context.Background(), termQ("x"), nil, 10)
	require.NoError(t, err)

	assert.Equal(t, want.TotalHits, got.TotalHits)
	assert.Equal(t, 2, got.TotalHits)
	assert.Equal(t, want.ScoreDocs, got.ScoreDocs)
	assert.Equal(t, want.MaxScore, got.MaxScore)
}

func equivalenceQueries(t testing.TB, vocab []string) map[string]Query {
	phrase, err := NewPhraseQuery(body(vocab[0]), body(vocab[1]))
	require.NoError(t, err)
	dismax, err := NewDisjunctionMaxQuery(0.1, termQ(vocab[2]), termQ(vocab[5]))
	require.NoError(t, err)
	return map[string]Query{
		"term": termQ(vocab[3]),
		"boolean": mustBoolean(t, []BooleanClause{
			ShouldClause(termQ(vocab[0])), ShouldClause(termQ(vocab[4])), MustNotClause(termQ(vocab[7])),
		}),
		"conjunction": mustBoolean(t, []BooleanClause{
			MustClause(termQ(vocab[0])), MustClause(termQ(vocab[1])),
		}),
		"phrase":        phrase,
		"sloppy phrase": phrase.WithSlop(3),
		"dismax":        dismax,
		"prefix":        NewPrefixQuery(body("w1"), WithRewrite(ScoringBooleanRewrite)),
		"range":         NewTermRangeQuery("body", "w2", "w5", true, false, WithRewrite(ScoringBooleanRewrite)),
	}
}

func TestMultiSearcherEquivalence(t *testing.T) {
	rng := testutil.NewRNG(42)
	vocab := testutil.Vocabulary(20)
	texts := rng.Corpus(300, vocab, 2, 10)

	single := NewIndexSearcher(newSegment(t, texts...))
	searchers := map[string]topSearcher{
		"sequential":   mustMulti(t, shardSearchables(t, texts, 2)),
		"parallel":     mustMulti(t, shardSearchables(t, texts, 3), WithParallel()),
		"bounded pool": mustMulti(t, shardSearchables(t, texts, 4), WithParallel(), WithResourceController(resource.NewController(resource.Config{MaxSearchWorkers: 2}))),
	}

	for qname, q := range equivalenceQueries(t, vocab) {
		want, err := single.Search(context.Background(), q, nil, len(texts))
		require.NoError(t, err)
		require.Positive(t, want.TotalHits, qname)

		for sname, s := range searchers {
			t.Run(qname+"/"+sname, func(t *testing.T) {
				got, err := s.Search(context.Background(), q, nil, len(texts))
				require.NoError(t, err)
				require.Equal(t, want.TotalHits, got.TotalHits)
				require.Len(t, got.ScoreDocs, len(want.ScoreDocs))

				wantScores := map[int]float64{}
				for _, sd := range want.ScoreDocs {
					wantScores[sd.Doc] = sd.Score
				}
				for i, sd := range got.ScoreDocs {
					require.Contains(t, wantScores, sd.Doc)
					assert.InDelta(t, wantScores[sd.Doc], sd.Score, 1e-6)
					assert.InDelta(t, want.ScoreDocs[i].Score, sd.Score, 1e-6, "rank %d", i)
				}
				assert.InDelta(t, want.MaxScore, got.MaxScore, 1e-6)
			})
		}
	}
}

func TestMultiSearcherExplain(t *testing.T) {
	rng := testutil.NewRNG(7)
	vocab := testutil.Vocabulary(10)
	texts := rng.Corpus(40, vocab, 2, 6)
	single := NewIndexSearcher(newSegment(t, texts...))
	multi := mustMulti(t, shardSearchables(t, texts, 3))

	q := mustBoolean(t, []BooleanClause{ShouldClause(termQ(vocab[0])), ShouldClause(termQ(vocab[3]))})
	td, err := multi.Search(context.Background(), q, nil, 40)
	require.NoError(t, err)
	for _, sd := range td.ScoreDocs {
		expl, err := multi.Explain(q, sd.Doc)
		require.NoError(t, err)
		assert.InDelta(t, sd.Score, expl.Value, 1e-9)

		want, err := single.Explain(q, sd.Doc)
		require.NoError(t, err)
		assert.InDelta(t, want.Value, expl.Value, 1e-6)
	}

	_, err = multi.Explain(q, 40)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestMultiSearcherCollector(t *testing.T) {
	texts := []string{"a b", "b", "a", "c a", "b b", "a a"}
	single := NewIndexSearcher(newSegment(t, texts...))
	multi := mustMulti(t, shardSearchables(t, texts, 3))

	want := matches(t, single, termQ("a"), nil)
	got := matches(t, multi, termQ("a"), nil)
	assert.Equal(t, docIDs(want), docIDs(got))
	for doc, score := range want {
		assert.InDelta(t, score, got[doc], 1e-9)
	}
}

func TestMultiSearcherDocs(t *testing.T) {
	multi := mustMulti(t, shardSearchables(t, []string{"a", "b", "c", "d", "e"}, 2))
	assert.Equal(t, 5, multi.MaxDoc())
	assert.Equal(t, []int{0, 3}, multi.Starts())
	assert.Equal(t, 1, multi.SubSearcher(4))
	assert.Equal(t, 1, multi.SubDoc(4))

	doc, err := multi.Doc(4)
	require.NoError(t, err)
	assert.Equal(t, "e", doc.Get("body"))

	_, err = multi.Doc(5)
	require.ErrorIs(t, err, index.ErrDocOutOfRange)

	df, err := multi.DocFreq(body("c"))
	require.NoError(t, err)
	assert.Equal(t, 1, df)
}

func TestMultiSearcherRewriteMergesVocabularies(t *testing.T) {
	multi := mustMulti(t, []Searchable{
		NewIndexSearcher(newSegment(t, "apple")),
		NewIndexSearcher(newSegment(t, "apricot", "apple")),
	})
	rewritten, err := multi.Rewrite(NewPrefixQuery(body("ap"), WithRewrite(ScoringBooleanRewrite)))
	require.NoError(t, err)
	bq, ok := rewritten.(*BooleanQuery)
	require.True(t, ok, "got %T", rewritten)

	terms := TermSet{}
	require.NoError(t, bq.ExtractTerms(terms))
	assert.Equal(t, []index.Term{body("apple"), body("apricot")}, terms.Sorted())
}

func TestNewMultiSearcherValidation(t *testing.T) {
	_, err := NewMultiSearcher(nil)
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewMultiSearcher([]Searchable{nil})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func keywordSegment(t testing.TB, docs ...[]index.Field) *memindex.Segment {
	t.Helper()
	b := memindex.NewBuilder()
	for _, fields := range docs {
		_, err := b.Add(index.NewDocument(fields...))
		require.NoError(t, err)
	}
	seg, err := b.Build()
	require.NoError(t, err)
	return seg
}

func priced(text, price string) []index.Field {
	return []index.Field{index.TextField("body", text), index.KeywordField("price", price)}
}

func TestMultiSearcherSorted(t *testing.T) {
	docs := [][]index.Field{
		priced("a", "30"), priced("a b", "10"), priced("b", "20"),
		priced("a", "5"), priced("a c", "10"), priced("c", "1"),
	}
	single := NewIndexSearcher(keywordSegment(t, docs...))
	subs := []Searchable{
		NewIndexSearcher(keywordSegment(t, docs[:3]...)),
		NewIndexSearcher(keywordSegment(t, docs[3:]...)),
	}

	byPrice, err := NewSortField("price", SortInt, false)
	require.NoError(t, err)

	for name, s := range map[string]topSearcher{
		"single":   single,
		"multi":    mustMulti(t, subs),
		"parallel": mustMulti(t, subs, WithParallel()),
	} {
		t.Run(name, func(t *testing.T) {
			got, err := s.SearchSorted(context.Background(), termQ("a"), nil, 3, NewSort(byPrice, FieldDocOrder))
			require.NoError(t, err)
			assert.Equal(t, 4, got.TotalHits)
			require.Len(t, got.FieldDocs, 3)
			assert.Equal(t, []int{3, 1, 4}, []int{got.FieldDocs[0].Doc, got.FieldDocs[1].Doc, got.FieldDocs[2].Doc})
			assert.Equal(t, []any{5, 3}, got.FieldDocs[0].Fields)
			assert.Equal(t, []any{10, 4}, got.FieldDocs[2].Fields)

			byDoc, err := s.SearchSorted(context.Background(), termQ("a"), nil, 10, NewSort(FieldDocOrder))
			require.NoError(t, err)
			var order []int
			for _, fd := range byDoc.FieldDocs {
				order = append(order, fd.Doc)
				assert.Equal(t, fd.Doc, fd.Fields[0])
			}
			assert.Equal(t, []int{0, 1, 3, 4}, order)
		})
	}
}

// assertSameTopDocs checks that got ranks and scores the hits of want.
func assertSameTopDocs(t *testing.T, want, got *TopDocs) {
	t.Helper()
	require.Equal(t, want.TotalHits, got.TotalHits)
	require.Len(t, got.ScoreDocs, len(want.ScoreDocs))
	wantScores := map[int]float64{}
	for _, sd := range want.ScoreDocs {
		wantScores[sd.Doc] = sd.Score
	}
	for i, sd := range got.ScoreDocs {
		require.Contains(t, wantScores, sd.Doc)
		assert.InDelta(t, wantScores[sd.Doc], sd.Score, 1e-6, "doc %d", sd.Doc)
		assert.InDelta(t, want.ScoreDocs[i].Score, sd.Score, 1e-6, "rank %d", i)
	}
	assert.InDelta(t, want.MaxScore, got.MaxScore, 1e-6)
}

func TestMultiSearcherDisjointShardVocabularies(t *testing.T) {
	texts := []string{"pa x", "pa pb x", "pb x", "pc x y"}
	single := NewIndexSearcher(newSegment(t, texts...))
	shards := []Searchable{
		NewIndexSearcher(newSegment(t, texts[:2]...)),
		NewIndexSearcher(newSegment(t, texts[2:]...)),
	}

	nested := func(mt Query) Query {
		return mustBoolean(t, []BooleanClause{MustClause(mt), ShouldClause(termQ("x"))})
	}
	filtered, err := NewFilteredQuery(
		NewPrefixQuery(body("p"), WithRewrite(ScoringBooleanRewrite)),
		NewTermsFilter(body("x")),
	)
	require.NoError(t, err)
	wrapped, err := NewQueryWrapperFilter(NewPrefixQuery(body("pb")))
	require.NoError(t, err)
	constant, err := NewConstantScoreQuery(wrapped)
	require.NoError(t, err)
	constantQ, err := NewConstantScoreQueryFromQuery(NewWildcardQuery(body("p?"), WithRewrite(ScoringBooleanRewrite)))
	require.NoError(t, err)

	queries := map[string]Query{
		"nested scoring prefix":  nested(NewPrefixQuery(body("p"), WithRewrite(ScoringBooleanRewrite))),
		"nested top terms":       nested(NewPrefixQuery(body("p"), WithRewrite(NewTopTermsRewrite(2)))),
		"nested constant prefix": nested(NewPrefixQuery(body("p"), WithRewrite(ConstantScoreBooleanRewrite))),
		"nested filter prefix":   nested(NewPrefixQuery(body("p"), WithRewrite(ConstantScoreFilterRewrite))),
		"nested wildcard":        nested(NewWildcardQuery(body("p?"), WithRewrite(ScoringBooleanRewrite))),
		"nested range":           nested(NewTermRangeQuery("body", "pa", "pc", true, true, WithRewrite(ScoringBooleanRewrite))),
		"filtered prefix":        filtered,
		"constant score filter":  constant,
		"constant score query":   constantQ,
	}

	for name, q := range queries {
		t.Run(name, func(t *testing.T) {
			want, err := single.Search(context.Background(), q, nil, 10)
			require.NoError(t, err)
			require.Positive(t, want.TotalHits)

			for _, opts := range [][]Option{nil, {WithParallel()}} {
				got, err := mustMulti(t, shards, opts...).Search(context.Background(), q, nil, 10)
				require.NoError(t, err)
				assertSameTopDocs(t, want, got)
			}
		})
	}
}

func TestMultiSearcherNestedMultiSearcher(t *testing.T) {
	texts := []string{"pa x", "pa pb x", "pb x", "pc x y", "pd x"}
	single := NewIndexSearcher(newSegment(t, texts...))
	inner := mustMulti(t, []Searchable{
		NewIndexSearcher(newSegment(t, texts[:2]...)),
		NewIndexSearcher(newSegment(t, texts[2:4]...)),
	})
	outer := mustMulti(t, []Searchable{inner, NewIndexSearcher(newSegment(t, texts[4:]...))})
	require.NotNil(t, outer.Reader())
	assert.Equal(t, len(texts), outer.Reader().MaxDoc())

	q := mustBoolean(t, []BooleanClause{
		MustClause(NewPrefixQuery(body("p"), WithRewrite(ScoringBooleanRewrite))),
		ShouldClause(termQ("y")),
	})
	want, err := single.Search(context.Background(), q, nil, 10)
	require.NoError(t, err)
	got, err := outer.Search(context.Background(), q, nil, 10)
	require.NoError(t, err)
	assertSameTopDocs(t, want, got)
}

// opaqueSearchable hides the reader of the wrapped searchable.
type opaqueSearchable struct{ Searchable }

func TestMultiSearcherRewriteWithoutReaders(t *testing.T) {
	multi := mustMulti(t, []Searchable{
		opaqueSearchable{NewIndexSearcher(newSegment(t, "apple"))},
		NewIndexSearcher(newSegment(t, "apricot")),
	})
	assert.Nil(t, multi.Reader())

	rewritten, err := multi.Rewrite(NewPrefixQuery(body("ap"), WithRewrite(ScoringBooleanRewrite)))
	require.NoError(t, err)
	terms := TermSet{}
	require.NoError(t, rewritten.ExtractTerms(terms))
	assert.Equal(t, []index.Term{body("apple"), body("apricot")}, terms.Sorted())
}
