package querydsl

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/lexis/codec"
	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/index/memindex"
	"github.com/hupe1980/lexis/search"
	"github.com/hupe1980/lexis/search/function"
	"github.com/hupe1980/lexis/search/spans"
)

const booleanTOML = `
type = "boolean"

[[must]]
type = "term"
text = "lucene"

[[should]]
type = "phrase"
terms = ["full", "text"]
slop = 2

[[must_not]]
type = "term"
text = "deprecated"
`

const booleanJSON = `{
  "type": "boolean",
  "must": [{"type": "term", "text": "lucene"}],
  "should": [{"type": "phrase", "terms": ["full", "text"], "slop": 2}],
  "must_not": [{"type": "term", "text": "deprecated"}]
}`

func library(t testing.TB) *memindex.Segment {
	t.Helper()
	b := memindex.NewBuilder()
	rows := []struct{ body, price string }{
		{"lucene full text search", "10"},
		{"full text indexing", "3"},
		{"lucene in action", "7"},
		{"text full reversed lucene", "20"},
		{"deprecated lucene search", "1"},
	}
	for _, row := range rows {
		_, err := b.Add(index.NewDocument(index.TextField("body", row.body), index.KeywordField("price", row.price)))
		require.NoError(t, err)
	}
	seg, err := b.Build()
	require.NoError(t, err)
	return seg
}

func hits(t testing.TB, r index.Reader, q search.Query, f search.Filter) []search.ScoreDoc {
	t.Helper()
	td, err := search.NewIndexSearcher(r).Search(context.Background(), q, f, 10)
	require.NoError(t, err)
	return td.ScoreDocs
}

func sortedDocs(sds []search.ScoreDoc) []int {
	docs := make([]int, len(sds))
	for i, sd := range sds {
		docs[i] = sd.Doc
	}
	slices.Sort(docs)
	return docs
}

func mustBuild(t testing.TB, b *Builder, s Spec) search.Query {
	t.Helper()
	q, err := b.Build(s)
	require.NoError(t, err)
	return q
}

func TestParseFormatsAgree(t *testing.T) {
	fromTOML, err := Parse([]byte(booleanTOML), nil)
	require.NoError(t, err)
	fromJSON, err := Parse([]byte(booleanJSON), codec.JSON{})
	require.NoError(t, err)
	fromMap, err := ParseMap(map[string]any{
		"type":     "boolean",
		"must":     []any{map[string]any{"type": "term", "text": "lucene"}},
		"should":   []any{map[string]any{"type": "phrase", "terms": []any{"full", "text"}, "slop": 2}},
		"must_not": []any{map[string]any{"type": "term", "text": "deprecated"}},
	})
	require.NoError(t, err)

	assert.Equal(t, fromTOML, fromJSON)
	assert.Equal(t, fromTOML, fromMap)
	assert.Equal(t, 2, fromTOML.Should[0].Slop)

	_, err = Parse([]byte("type = "), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode toml query")
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "query.json")
	require.NoError(t, os.WriteFile(path, []byte(booleanJSON), 0o600))

	s, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, TypeBoolean, s.Type)

	_, err = ParseFile(filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBuildBooleanSearch(t *testing.T) {
	r := library(t)
	s, err := Parse([]byte(booleanTOML), nil)
	require.NoError(t, err)
	q := mustBuild(t, NewBuilder(WithDefaultField("body")), s)

	phrase, err := search.NewPhraseQuery(index.NewTerm("body", "full"), index.NewTerm("body", "text"))
	require.NoError(t, err)
	want, err := search.NewBooleanQuery([]search.BooleanClause{
		{Query: search.NewTermQuery(index.NewTerm("body", "lucene")), Occur: search.Must},
		{Query: phrase.WithSlop(2), Occur: search.Should},
		{Query: search.NewTermQuery(index.NewTerm("body", "deprecated")), Occur: search.MustNot},
	})
	require.NoError(t, err)
	assert.True(t, q.Equal(want), q.String(""))
	assert.Equal(t, `+body:lucene body:"full text"~2 -body:deprecated`, q.String(""))

	got := hits(t, r, q, nil)
	assert.Equal(t, []int{0, 2, 3}, sortedDocs(got))
	assert.Equal(t, 2, got[len(got)-1].Doc, "only the required clause matches")
}

func TestBuildStrings(t *testing.T) {
	b := NewBuilder(WithDefaultField("body"))
	tests := []struct {
		name string
		spec Spec
		want string
	}{
		{"boosted term", Spec{Type: TypeTerm, Field: "title", Text: "go", Boost: 2}, "title:go^2"},
		{"prefix", Spec{Type: TypePrefix, Text: "luc"}, "body:luc*"},
		{"wildcard", Spec{Type: TypeWildcard, Text: "t?xt"}, "body:t?xt"},
		{"range", Spec{Type: TypeRange, Lower: "a", Upper: "c", IncludeLower: true}, "body:[a TO c}"},
		{"match all", Spec{Type: TypeMatchAll}, "*:*"},
		{"dismax", Spec{Type: TypeDisMax, TieBreaker: 0.5, Queries: []Spec{
			{Type: TypeTerm, Text: "a"}, {Type: TypeTerm, Text: "b"},
		}}, "(body:a | body:b)~0.5"},
		{"constant filter", Spec{Type: TypeConstant, Filter: &FilterSpec{Type: FilterTerms, Terms: []string{"d", "e"}}},
			"ConstantScore(TermsFilter(body:d body:e))"},
		{"filtered", Spec{Type: TypeFiltered, Query: &Spec{Type: TypeTerm, Text: "a"}, Filter: &FilterSpec{Type: FilterDocs, Docs: []int{1, 3}}},
			"filtered(body:a)->DocIDFilter(1,3)"},
		{"span near", Spec{Type: TypeSpanNear, InOrder: true, Queries: []Spec{
			{Type: TypeSpanTerm, Text: "full"}, {Type: TypeSpanTerm, Text: "text"},
		}}, "spanNear([body:full, body:text], 0, true)"},
		{"span first", Spec{Type: TypeSpanFirst, End: 1, Query: &Spec{Type: TypeSpanTerm, Text: "lucene"}}, "spanFirst(body:lucene, 1)"},
		{"span range", Spec{Type: TypeSpanRange, Start: 1, End: 3, Query: &Spec{Type: TypeSpanTerm, Text: "x"}}, "spanPosRange(body:x, 1, 3)"},
		{"field score", Spec{Type: TypeFieldScore, Field: "price"}, "int(price)"},
		{"custom score", Spec{Type: TypeCustomScore, Strict: true,
			Query:  &Spec{Type: TypeTerm, Text: "lucene"},
			Values: []Spec{{Type: TypeFieldScore, Field: "price"}},
		}, "custom(body:lucene, int(price)) STRICT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mustBuild(t, b, tt.spec).String(""))
		})
	}
}

func TestBuildRewriteMethods(t *testing.T) {
	b := NewBuilder(WithDefaultField("body"))
	tests := map[string]search.RewriteMethod{
		"":                       search.ConstantScoreAutoRewrite,
		"constant_score_auto":    search.ConstantScoreAutoRewrite,
		"scoring_boolean":        search.ScoringBooleanRewrite,
		"constant_score_boolean": search.ConstantScoreBooleanRewrite,
		"constant_score_filter":  search.ConstantScoreFilterRewrite,
	}
	for name, want := range tests {
		q := mustBuild(t, b, Spec{Type: TypePrefix, Text: "a", Rewrite: name})
		mtq, ok := q.(search.MultiTermQuery)
		require.True(t, ok)
		assert.Equal(t, want, mtq.RewriteMethod(), name)
	}

	q := mustBuild(t, b, Spec{Type: TypePrefix, Text: "a", Rewrite: "top_terms", Size: 5})
	assert.True(t, q.Equal(search.NewPrefixQuery(index.NewTerm("body", "a"), search.WithRewrite(search.NewTopTermsRewrite(5)))))
}

func TestBuildFilteredSearch(t *testing.T) {
	r := library(t)
	b := NewBuilder(WithDefaultField("body"), WithFieldCache(search.NewFieldCache(0, nil)))

	q := mustBuild(t, b, Spec{
		Type:   TypeFiltered,
		Query:  &Spec{Type: TypeTerm, Text: "lucene"},
		Filter: &FilterSpec{Type: FilterIntRange, Field: "price", Lower: "5", IncludeLower: true},
	})
	assert.Equal(t, []int{0, 2, 3}, sortedDocs(hits(t, r, q, nil)))

	f, err := b.BuildFilter(FilterSpec{Type: FilterTerms, Terms: []string{"indexing", "action"}, Cache: true})
	require.NoError(t, err)
	assert.IsType(t, &search.CachingWrapperFilter{}, f)
	all := mustBuild(t, b, Spec{Type: TypeMatchAll})
	assert.Equal(t, []int{1, 2}, sortedDocs(hits(t, r, all, f)))
	assert.Equal(t, []int{1, 2}, sortedDocs(hits(t, r, all, f)), "cached filter")

	f, err = b.BuildFilter(FilterSpec{Type: FilterFloatRange, Field: "price", Upper: "3", IncludeUpper: true})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4}, sortedDocs(hits(t, r, all, f)))

	f, err = b.BuildFilter(FilterSpec{Type: FilterTermRange, Lower: "action", Upper: "deprecated", IncludeLower: true, IncludeUpper: true})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, sortedDocs(hits(t, r, all, f)))

	f, err = b.BuildFilter(FilterSpec{Type: FilterQuery, Query: &Spec{Type: TypePrefix, Text: "index"}})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, sortedDocs(hits(t, r, all, f)))
}

func TestBuildSpanSearch(t *testing.T) {
	r := library(t)
	b := NewBuilder(WithDefaultField("body"))

	near := Spec{Type: TypeSpanNear, InOrder: true, Queries: []Spec{
		{Type: TypeSpanTerm, Text: "full"}, {Type: TypeSpanTerm, Text: "text"},
	}}
	assert.Equal(t, []int{0, 1}, sortedDocs(hits(t, r, mustBuild(t, b, near), nil)))

	near.InOrder = false
	near.Slop = 1
	assert.Equal(t, []int{0, 1, 3}, sortedDocs(hits(t, r, mustBuild(t, b, near), nil)))

	first := Spec{Type: TypeSpanFirst, End: 1, Query: &Spec{Type: TypeSpanTerm, Text: "lucene"}}
	assert.Equal(t, []int{0, 2}, sortedDocs(hits(t, r, mustBuild(t, b, first), nil)))

	multi := mustBuild(t, b, Spec{Type: TypeSpanMulti, Query: &Spec{Type: TypePrefix, Text: "inde"}})
	assert.IsType(t, &spans.SpanMultiTermQueryWrapper{}, multi)
	assert.Equal(t, []int{1}, sortedDocs(hits(t, r, multi, nil)))

	f, err := b.BuildFilter(FilterSpec{Type: FilterSpan, Query: &first})
	require.NoError(t, err)
	assert.IsType(t, &spans.SpanQueryFilter{}, f)
	assert.Equal(t, []int{0, 2}, sortedDocs(hits(t, r, mustBuild(t, b, Spec{Type: TypeMatchAll}), f)))

	boosted := mustBuild(t, b, Spec{Type: TypeSpanOr, Queries: []Spec{
		{Type: TypeSpanTerm, Text: "action", Boost: 2},
	}})
	assert.Equal(t, "spanOr([body:action^2])", boosted.String(""))
}

func TestBuildCustomScoreSearch(t *testing.T) {
	r := library(t)
	b := NewBuilder(WithDefaultField("body"), WithFieldCache(search.NewFieldCache(0, nil)))

	q := mustBuild(t, b, Spec{
		Type:   TypeCustomScore,
		Query:  &Spec{Type: TypeConstant, Query: &Spec{Type: TypeTerm, Text: "lucene"}},
		Values: []Spec{{Type: TypeFieldScore, Field: "price"}},
		Strict: true,
	})
	assert.IsType(t, &function.CustomScoreQuery{}, q)

	got := hits(t, r, q, nil)
	require.Len(t, got, 4)
	order := make([]int, len(got))
	for i, sd := range got {
		order[i] = sd.Doc
	}
	assert.Equal(t, []int{3, 0, 2, 4}, order, "price orders the constant-scored hits")
	assert.InDelta(t, 2.0, got[0].Score/got[1].Score, 1e-9)
}

func TestBuildErrors(t *testing.T) {
	b := NewBuilder(WithDefaultField("body"))

	t.Run("unknown type", func(t *testing.T) {
		_, err := b.Build(Spec{Type: TypeBoolean, Must: []Spec{{Type: TypeTerm, Text: "a"}, {Type: "fuzzy"}}})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownType)
		assert.ErrorIs(t, err, search.ErrInvalidArgument)
		var e *Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, "must[1]", e.Path)
		assert.Contains(t, err.Error(), `querydsl: must[1]:`)
	})

	t.Run("missing field", func(t *testing.T) {
		_, err := NewBuilder().Build(Spec{Type: TypeTerm, Text: "a"})
		var ce *search.ConfigError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "field", ce.Field)
		var e *Error
		require.ErrorAs(t, err, &e)
		assert.Empty(t, e.Path)
	})

	tests := []struct {
		name       string
		spec       Spec
		path       string
		errorField string
	}{
		{"missing type", Spec{}, "", "type"},
		{"top terms without size", Spec{Type: TypePrefix, Text: "a", Rewrite: "top_terms"}, "", "size"},
		{"unknown rewrite", Spec{Type: TypePrefix, Text: "a", Rewrite: "fancy"}, "", "rewrite"},
		{"bad int bound", Spec{Type: TypeFiltered, Query: &Spec{Type: TypeMatchAll},
			Filter: &FilterSpec{Type: FilterIntRange, Field: "price", Lower: "x"}}, "filter", "lower"},
		{"nested missing query", Spec{Type: TypeDisMax, Queries: []Spec{{Type: TypeConstant}}}, "queries[0]", "filter"},
		{"span not without exclude", Spec{Type: TypeSpanNot, Query: &Spec{Type: TypeSpanTerm, Text: "a"}}, "", "exclude"},
		{"unknown combine", Spec{Type: TypeCustomScore, Combine: "max", Query: &Spec{Type: TypeMatchAll}}, "", "combine"},
		{"unknown source", Spec{Type: TypeFieldScore, Field: "price", Source: "log"}, "", "source"},
		{"infinite boost", Spec{Type: TypeBoolean, Should: []Spec{{Type: TypeTerm, Text: "a", Boost: math.Inf(1)}}}, "should[0]", "boost"},
		{"nan span boost", Spec{Type: TypeSpanFirst, End: 2, Query: &Spec{Type: TypeSpanTerm, Text: "a", Boost: math.NaN()}}, "query", "boost"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Build(tt.spec)
			var ce *search.ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.errorField, ce.Field)
			var e *Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.path, e.Path)
			assert.True(t, errors.Is(err, search.ErrInvalidArgument))
		})
	}

	t.Run("custom score values", func(t *testing.T) {
		_, err := b.Build(Spec{Type: TypeCustomScore, Query: &Spec{Type: TypeMatchAll}, Values: []Spec{{Type: TypeTerm, Text: "a"}}})
		assert.ErrorIs(t, err, ErrUnknownType)
		var e *Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, "values[0]", e.Path)
	})

	t.Run("span clause must be a span", func(t *testing.T) {
		_, err := b.Build(Spec{Type: TypeSpanOr, Queries: []Spec{{Type: TypeTerm, Text: "a"}}})
		assert.ErrorIs(t, err, ErrUnknownType)
		var e *Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, "queries[0]", e.Path)
	})
}
