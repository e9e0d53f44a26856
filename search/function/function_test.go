package function

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/index/memindex"
	"github.com/hupe1980/lexis/search"
)

type testDoc struct {
	body, price, rating, name string
}

func buildSegment(t *testing.T, docs []testDoc, deleted ...int) *memindex.Segment {
	t.Helper()
	b := memindex.NewBuilder()
	for _, d := range docs {
		_, err := b.Add(index.NewDocument(
			index.TextField("body", d.body),
			index.KeywordField("price", d.price),
			index.KeywordField("rating", d.rating),
			index.KeywordField("name", d.name),
		))
		require.NoError(t, err)
	}
	for _, doc := range deleted {
		require.NoError(t, b.Delete(doc))
	}
	seg, err := b.Build()
	require.NoError(t, err)
	return seg
}

func corpus(t *testing.T, deleted ...int) *memindex.Segment {
	return buildSegment(t, []testDoc{
		{body: "a", price: "1", rating: "0.5", name: "c"},
		{body: "a b", price: "3", rating: "2.5", name: "a"},
		{body: "b", price: "2", rating: "1.5", name: "b"},
	}, deleted...)
}

type hit struct {
	doc   int
	score float64
}

func hits(t *testing.T, r index.Reader, q search.Query) []hit {
	t.Helper()
	td, err := search.NewIndexSearcher(r).Search(context.Background(), q, nil, 10)
	require.NoError(t, err)
	out := make([]hit, len(td.ScoreDocs))
	for i, sd := range td.ScoreDocs {
		out[i] = hit{doc: sd.Doc, score: sd.Score}
	}
	return out
}

func scoreOf(t *testing.T, hs []hit, doc int) float64 {
	t.Helper()
	for _, h := range hs {
		if h.doc == doc {
			return h.score
		}
	}
	t.Fatalf("doc %d not found", doc)
	return 0
}

func TestFieldScoreQuery(t *testing.T) {
	r := corpus(t)
	fc := search.NewFieldCache(0, nil)

	t.Run("int", func(t *testing.T) {
		q, err := NewFieldScoreQuery("price", IntField, fc)
		require.NoError(t, err)
		assert.Equal(t, []hit{{1, 3}, {2, 2}, {0, 1}}, hits(t, r, q))
	})

	t.Run("float", func(t *testing.T) {
		q, err := NewFieldScoreQuery("rating", FloatField, fc)
		require.NoError(t, err)
		assert.Equal(t, []hit{{1, 2.5}, {2, 1.5}, {0, 0.5}}, hits(t, r, q))
	})

	t.Run("boost does not change order", func(t *testing.T) {
		q, err := NewFieldScoreQuery("price", IntField, fc)
		require.NoError(t, err)
		got := hits(t, r, q.WithBoost(4))
		assert.Equal(t, []int{1, 2, 0}, []int{got[0].doc, got[1].doc, got[2].doc})
		assert.InDelta(t, 3.0, got[0].score, 1e-12)
	})

	t.Run("deleted docs are skipped", func(t *testing.T) {
		q, err := NewFieldScoreQuery("price", IntField, fc)
		require.NoError(t, err)
		assert.Equal(t, []hit{{2, 2}, {0, 1}}, hits(t, corpus(t, 1), q))
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := NewFieldScoreQuery("price", FieldType(7), fc)
		require.ErrorIs(t, err, search.ErrInvalidArgument)
	})

	t.Run("parse error", func(t *testing.T) {
		bad := buildSegment(t, []testDoc{{body: "a", price: "x", rating: "1", name: "a"}})
		q, err := NewFieldScoreQuery("price", IntField, fc)
		require.NoError(t, err)
		_, err = search.NewIndexSearcher(bad).Search(context.Background(), q, nil, 10)
		require.Error(t, err)
	})
}

func TestOrdFieldSource(t *testing.T) {
	r := corpus(t)
	fc := search.NewFieldCache(0, nil)

	ord, err := NewOrdFieldSource("name", fc).Values(r)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 2}, []int{ord.Int(0), ord.Int(1), ord.Int(2)})
	assert.Equal(t, "ord(name)=3", ord.Describe(0))

	rord, err := NewReverseOrdFieldSource("name", fc).Values(r)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 2}, []int{rord.Int(0), rord.Int(1), rord.Int(2)})
	assert.Equal(t, "rord(name)=1", rord.Describe(0))

	assert.False(t, NewOrdFieldSource("name", fc).Equal(NewReverseOrdFieldSource("name", fc)))
}

func TestConstValueSource(t *testing.T) {
	r := corpus(t)
	q, err := NewValueSourceQuery(NewConstValueSource(2.5))
	require.NoError(t, err)
	for _, h := range hits(t, r, q) {
		assert.InDelta(t, 2.5, h.score, 1e-12)
	}
	assert.Equal(t, "const(2.5)", q.String(""))
}

func TestValueSourceExplain(t *testing.T) {
	r := corpus(t)
	q, err := NewFieldScoreQuery("price", IntField, search.NewFieldCache(0, nil))
	require.NoError(t, err)
	s := search.NewIndexSearcher(r)
	for _, h := range hits(t, r, q) {
		expl, err := s.Explain(q, h.doc)
		require.NoError(t, err)
		assert.InDelta(t, h.score, expl.Value, 1e-9)
		assert.True(t, expl.IsMatch())
	}
}

func TestCustomScoreQuery(t *testing.T) {
	r := corpus(t)
	fc := search.NewFieldCache(0, nil)
	sub := search.NewTermQuery(index.NewTerm("body", "a"))
	price, err := NewFieldScoreQuery("price", IntField, fc)
	require.NoError(t, err)
	base := hits(t, r, sub)
	require.Len(t, base, 2)

	t.Run("strict multiply", func(t *testing.T) {
		q, err := NewCustomScoreQuery(sub, []*ValueSourceQuery{price}, WithStrict(true))
		require.NoError(t, err)
		got := hits(t, r, q)
		require.Len(t, got, 2)
		assert.InDelta(t, scoreOf(t, base, 0)*1, scoreOf(t, got, 0), 1e-9)
		assert.InDelta(t, scoreOf(t, base, 1)*3, scoreOf(t, got, 1), 1e-9)
		assert.Equal(t, 1, got[0].doc)
	})

	t.Run("strict add", func(t *testing.T) {
		q, err := NewCustomScoreQuery(sub, []*ValueSourceQuery{price}, WithStrict(true), WithCombine(Add))
		require.NoError(t, err)
		got := hits(t, r, q)
		assert.InDelta(t, scoreOf(t, base, 0)+1, scoreOf(t, got, 0), 1e-9)
		assert.InDelta(t, scoreOf(t, base, 1)+3, scoreOf(t, got, 1), 1e-9)
	})

	t.Run("no value sources keeps sub scores", func(t *testing.T) {
		q, err := NewCustomScoreQuery(sub, nil)
		require.NoError(t, err)
		got := hits(t, r, q)
		assert.InDelta(t, scoreOf(t, base, 0), scoreOf(t, got, 0), 1e-9)
		assert.InDelta(t, scoreOf(t, base, 1), scoreOf(t, got, 1), 1e-9)
	})

	t.Run("explain matches score", func(t *testing.T) {
		q, err := NewCustomScoreQuery(sub, []*ValueSourceQuery{price})
		require.NoError(t, err)
		s := search.NewIndexSearcher(r)
		for _, h := range hits(t, r, q) {
			expl, err := s.Explain(q, h.doc)
			require.NoError(t, err)
			assert.InDelta(t, h.score, expl.Value, 1e-9)
		}
		expl, err := s.Explain(q, 2)
		require.NoError(t, err)
		assert.False(t, expl.IsMatch())
	})

	t.Run("string and equality", func(t *testing.T) {
		q, err := NewCustomScoreQuery(sub, []*ValueSourceQuery{price}, WithStrict(true))
		require.NoError(t, err)
		assert.Equal(t, "custom(body:a, int(price)) STRICT", q.String(""))
		other, err := NewCustomScoreQuery(sub, []*ValueSourceQuery{price}, WithStrict(true))
		require.NoError(t, err)
		assert.True(t, q.Equal(other))
		assert.Equal(t, q.Hash(), other.Hash())
		assert.False(t, q.Equal(q.WithBoost(2)))
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := NewCustomScoreQuery(nil, nil)
		require.ErrorIs(t, err, search.ErrInvalidArgument)
		_, err = NewCustomScoreQuery(sub, []*ValueSourceQuery{nil})
		require.ErrorIs(t, err, search.ErrInvalidArgument)
	})
}
