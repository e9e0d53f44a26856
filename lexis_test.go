package lexis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/index/memindex"
	"github.com/hupe1980/lexis/internal/testutil"
	"github.com/hupe1980/lexis/querydsl"
	"github.com/hupe1980/lexis/search"
)

var animals = []struct{ body, price string }{
	{"the quick brown fox", "30"},
	{"the lazy dog", "10"},
	{"quick brown dogs and quick foxes", "20"},
	{"a brown cow", "40"},
	{"the quick fox jumps", "5"},
}

func animalSegment(t testing.TB) *memindex.Segment {
	t.Helper()
	b := memindex.NewBuilder()
	for _, a := range animals {
		_, err := b.Add(index.NewDocument(index.TextField("body", a.body), index.KeywordField("price", a.price)))
		require.NoError(t, err)
	}
	seg, err := b.Build()
	require.NoError(t, err)
	return seg
}

func newTestSearcher(t testing.TB, opts ...Option) *Searcher {
	t.Helper()
	s, err := New([]index.Reader{animalSegment(t)}, append([]Option{WithDefaultField("body")}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func term(text string) search.Query { return search.NewTermQuery(index.NewTerm("body", text)) }

func hitDocs(hits []Hit) []int {
	docs := make([]int, len(hits))
	for i, h := range hits {
		docs[i] = h.Doc
	}
	return docs
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = New([]index.Reader{animalSegment(t), nil})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, err.Error(), "reader 1")
}

func TestSearchBuilder(t *testing.T) {
	ctx := context.Background()
	metrics := &BasicMetricsCollector{}
	s := newTestSearcher(t, WithMetricsCollector(metrics))

	hits, err := s.Search(term("quick")).Top(10).WithDocuments().Execute(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{0, 2, 4}, hitDocs(hits))
	assert.Equal(t, 2, hits[0].Doc, "two occurrences rank first")
	for _, h := range hits {
		require.NotNil(t, h.Document)
		assert.Contains(t, h.Document.Get("body"), "quick")
		assert.Nil(t, h.Fields)
	}

	first, ok, err := s.Search(term("quick")).First(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, hits[0].Doc, first.Doc)
	assert.InDelta(t, hits[0].Score, first.Score, 1e-12)

	_, ok, err = s.Search(term("zebra")).First(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	count, err := s.Search(term("brown")).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	exists, err := s.Search(term("cow")).Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = s.Search(term("zebra")).Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	stats := metrics.GetStats()
	assert.Equal(t, int64(6), stats.SearchCount)
	assert.Zero(t, stats.SearchErrors, "terminated collections are not failures")
	assert.Equal(t, int64(3+3), stats.SearchHits)
}

func TestSearchBuilderSorted(t *testing.T) {
	s := newTestSearcher(t)
	price, err := search.NewSortField("price", search.SortInt, false)
	require.NoError(t, err)

	hits, err := s.Search(term("quick")).SortBy(search.NewSort(price)).Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{4, 2, 0}, hitDocs(hits))
	assert.Equal(t, []any{5}, hits[0].Fields)
	assert.Equal(t, []any{30}, hits[2].Fields)
	assert.Positive(t, s.FieldCache().Size())
}

func TestStream(t *testing.T) {
	ctx := context.Background()
	s := newTestSearcher(t)

	var docs []int
	for hit, err := range s.Search(term("brown")).Stream(ctx) {
		require.NoError(t, err)
		assert.Positive(t, hit.Score)
		docs = append(docs, hit.Doc)
	}
	assert.Equal(t, []int{0, 2, 3}, docs)

	docs = docs[:0]
	for hit, err := range s.Search(term("brown")).WithDocuments().Stream(ctx) {
		require.NoError(t, err)
		docs = append(docs, hit.Doc)
		assert.Equal(t, animals[hit.Doc].body, hit.Document.Get("body"))
		break
	}
	assert.Equal(t, []int{0}, docs)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	var errs []error
	for _, err := range s.Search(term("brown")).Stream(cancelled) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrTerminated)
	assert.ErrorIs(t, errs[0], context.Canceled)
}

func TestShardsScoreLikeOneIndex(t *testing.T) {
	ctx := context.Background()
	texts := testutil.NewRNG(7).Corpus(120, testutil.Vocabulary(15), 2, 12)
	single, err := New([]index.Reader{testutil.Segment(t, "body", texts...)})
	require.NoError(t, err)
	sharded, err := New(testutil.Readers(testutil.Shards(t, "body", texts, 3)), WithParallelism(4))
	require.NoError(t, err)
	assert.Equal(t, 3, sharded.Shards())
	assert.Equal(t, 3, sharded.Segments())
	assert.Equal(t, single.MaxDoc(), sharded.MaxDoc())

	vocab := testutil.Vocabulary(15)
	phrase, err := search.NewPhraseQuery(index.NewTerm("body", vocab[0]), index.NewTerm("body", vocab[1]))
	require.NoError(t, err)
	both, err := search.NewBooleanQuery([]search.BooleanClause{
		{Query: term(vocab[0]), Occur: search.Should},
		{Query: term(vocab[3]), Occur: search.Should},
	})
	require.NoError(t, err)

	for _, q := range []search.Query{term(vocab[2]), phrase.WithSlop(3), both} {
		t.Run(q.String(""), func(t *testing.T) {
			want, err := single.TopDocs(ctx, q, nil, single.MaxDoc())
			require.NoError(t, err)
			got, err := sharded.TopDocs(ctx, q, nil, sharded.MaxDoc())
			require.NoError(t, err)
			require.Equal(t, want.TotalHits, got.TotalHits)

			scores := map[int]float64{}
			for _, sd := range want.ScoreDocs {
				scores[sd.Doc] = sd.Score
			}
			for _, sd := range got.ScoreDocs {
				assert.InDelta(t, scores[sd.Doc], sd.Score, 1e-9, "doc %d", sd.Doc)
			}
		})
	}

	df, err := sharded.DocFreq(index.NewTerm("body", vocab[0]))
	require.NoError(t, err)
	wantDF, err := single.DocFreq(index.NewTerm("body", vocab[0]))
	require.NoError(t, err)
	assert.Equal(t, wantDF, df)
}

func TestExplain(t *testing.T) {
	ctx := context.Background()
	s := newTestSearcher(t)
	hits := s.Search(term("fox")).MustExecute(ctx)
	require.NotEmpty(t, hits)

	exp, err := s.Explain(ctx, term("fox"), hits[0].Doc)
	require.NoError(t, err)
	assert.InDelta(t, hits[0].Score, exp.Value, 1e-9)
	assert.True(t, exp.IsMatch())

	_, err = s.Explain(ctx, term("fox"), 99)
	var oor *ErrDocOutOfRange
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, 99, oor.Doc)
	assert.Equal(t, 5, oor.MaxDoc)
	assert.ErrorIs(t, err, index.ErrDocOutOfRange)

	_, err = s.Doc(-1)
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, -1, oor.Doc)
}

func TestRewrite(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	s := newTestSearcher(t, WithMetricsCollector(metrics))
	q, err := s.Build(querydsl.Spec{Type: querydsl.TypePrefix, Text: "qu", Rewrite: "scoring_boolean"})
	require.NoError(t, err)

	rewritten, err := s.Rewrite(context.Background(), q)
	require.NoError(t, err)
	assert.False(t, rewritten.Equal(q))
	again, err := s.Rewrite(context.Background(), rewritten)
	require.NoError(t, err)
	assert.True(t, again.Equal(rewritten))
	assert.Equal(t, int64(2), metrics.GetStats().RewriteCount)
}

func TestParseQuery(t *testing.T) {
	s := newTestSearcher(t)
	q, err := s.ParseQuery([]byte(`
type = "phrase"
terms = ["quick", "brown"]
`), nil)
	require.NoError(t, err)
	hits, err := s.Search(q).Execute(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{0, 2}, hitDocs(hits))

	_, err = s.ParseQuery([]byte(`type = "fuzzy"`), nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = s.ParseQuery([]byte(`type = `), nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSearchErrors(t *testing.T) {
	ctx := context.Background()
	metrics := &BasicMetricsCollector{}
	s := newTestSearcher(t, WithMetricsCollector(metrics))

	_, err := s.TopDocs(ctx, term("fox"), nil, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	var ce *search.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "n", ce.Field)
	assert.Equal(t, int64(1), metrics.GetStats().SearchErrors)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.TopDocs(cancelled, term("fox"), nil, 10)
	assert.ErrorIs(t, err, ErrTerminated)
}

func TestQueryRate(t *testing.T) {
	s := newTestSearcher(t, WithQueryRate(1, 1))
	_, err := s.TopDocs(context.Background(), term("fox"), nil, 10)
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.TopDocs(cancelled, term("fox"), nil, 10)
	assert.ErrorIs(t, err, ErrTerminated)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClose(t *testing.T) {
	s := newTestSearcher(t)
	price, err := search.NewSortField("price", search.SortInt, true)
	require.NoError(t, err)
	_, err = s.TopFieldDocs(context.Background(), term("quick"), nil, 2, search.NewSort(price))
	require.NoError(t, err)
	require.Positive(t, s.FieldCache().Size())

	require.NoError(t, s.Close())
	assert.Zero(t, s.FieldCache().Size())
	require.NoError(t, s.Close())

	_, err = s.TopDocs(context.Background(), term("quick"), nil, 2)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Doc(0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := newTestSearcher(t, WithLogger(logger))

	_, err := s.TopDocs(context.Background(), term("fox"), nil, 3)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"msg":"search completed"`)
	assert.Contains(t, buf.String(), `"query":"body:fox"`)
	assert.Contains(t, buf.String(), `"segments":1`)

	buf.Reset()
	_, _ = s.TopDocs(context.Background(), term("fox"), nil, -1)
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
}

func TestTranslateError(t *testing.T) {
	cause := fmt.Errorf("reading postings: %w", errors.New("disk"))
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"config", &search.ConfigError{Field: "n", Reason: "bad"}, ErrInvalidArgument},
		{"unsupported", fmt.Errorf("payloads: %w", search.ErrUnsupported), ErrUnsupported},
		{"terminated", search.ErrCollectionTerminated, ErrTerminated},
		{"time exceeded", &search.TimeExceededError{}, ErrTerminated},
		{"deadline", context.DeadlineExceeded, ErrTerminated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.err, 10)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err, "cause stays reachable")
		})
	}

	assert.Nil(t, translateError(nil, 10))
	assert.Same(t, cause, translateError(cause, 10))
}
