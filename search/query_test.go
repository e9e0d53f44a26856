package search

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/lexis/index"
)

func fruitSegment(t testing.TB) index.Reader {
	return newSegment(t, "apple", "apricot", "apt", "banana", "apple apt")
}

func TestMultiTermRewriteMethods(t *testing.T) {
	r := fruitSegment(t)
	s := NewIndexSearcher(r)
	methods := map[string]RewriteMethod{
		"scoring boolean":  ScoringBooleanRewrite,
		"constant boolean": ConstantScoreBooleanRewrite,
		"constant filter":  ConstantScoreFilterRewrite,
		"constant auto":    ConstantScoreAutoRewrite,
		"top terms":        NewTopTermsRewrite(10),
	}

	scoring := matches(t, s, NewPrefixQuery(body("ap"), WithRewrite(ScoringBooleanRewrite)), nil)
	require.Equal(t, []int{0, 1, 2, 4}, docIDs(scoring))

	for name, m := range methods {
		t.Run(name, func(t *testing.T) {
			got := matches(t, s, NewPrefixQuery(body("ap"), WithRewrite(m)).WithBoost(3), nil)
			assert.Equal(t, []int{0, 1, 2, 4}, docIDs(got))
			switch m {
			case ScoringBooleanRewrite, methods["top terms"]:
				plain := matches(t, s, NewPrefixQuery(body("ap"), WithRewrite(m)), nil)
				for doc, score := range scoring {
					assert.InDelta(t, score, plain[doc], 1e-9)
				}
			default:
				for doc, score := range got {
					assert.InDelta(t, 3.0, score, 1e-12, "doc %d", doc)
				}
			}
		})
	}
}

func TestTopTermsRewriteKeepsSmallestTerms(t *testing.T) {
	r := fruitSegment(t)
	s := NewIndexSearcher(r)
	q := NewPrefixQuery(body("ap"), WithRewrite(NewTopTermsRewrite(2)))
	assert.Equal(t, []int{0, 1, 4}, docIDs(matches(t, s, q, nil)))

	terms, err := CollectTopTerms(r, q, 2)
	require.NoError(t, err)
	assert.Equal(t, []index.Term{body("apple"), body("apricot")}, terms)

	all, err := CollectTopTerms(r, q, 0)
	require.NoError(t, err)
	assert.Equal(t, []index.Term{body("apple"), body("apricot"), body("apt")}, all)

	size, ok := TopTermsSize(q.RewriteMethod())
	assert.True(t, ok)
	assert.Equal(t, 2, size)
	_, ok = TopTermsSize(ScoringBooleanRewrite)
	assert.False(t, ok)
}

func TestConstantScoreAutoRewriteForms(t *testing.T) {
	r := fruitSegment(t)

	few := NewPrefixQuery(body("ap"), WithRewrite(NewConstantScoreAutoRewrite(350, 1000)))
	rewritten, err := few.Rewrite(r)
	require.NoError(t, err)
	csq, ok := rewritten.(*ConstantScoreQuery)
	require.True(t, ok, "got %T", rewritten)
	assert.Nil(t, csq.Filter())
	assert.IsType(t, &BooleanQuery{}, csq.Query())

	many := NewPrefixQuery(body("ap"), WithRewrite(NewConstantScoreAutoRewrite(1, 1000)))
	rewritten, err = many.Rewrite(r)
	require.NoError(t, err)
	csq, ok = rewritten.(*ConstantScoreQuery)
	require.True(t, ok, "got %T", rewritten)
	assert.IsType(t, &MultiTermQueryWrapperFilter{}, csq.Filter())

	none := NewPrefixQuery(body("zz"), WithRewrite(NewConstantScoreAutoRewrite(350, 1000)))
	assert.Empty(t, matches(t, NewIndexSearcher(r), none, nil))
}

func TestScoringBooleanRewriteTooManyClauses(t *testing.T) {
	texts := make([]string, MaxClauseCount+1)
	for i := range texts {
		texts[i] = "t" + string(rune('a'+i%26)) + string(rune('a'+i/26%26)) + string(rune('a'+i/676))
	}
	s := NewIndexSearcher(newSegment(t, texts...))
	_, err := s.Search(context.Background(), NewPrefixQuery(body("t"), WithRewrite(ScoringBooleanRewrite)), nil, 10)
	require.ErrorIs(t, err, ErrTooManyClauses)

	td, err := s.Search(context.Background(), NewPrefixQuery(body("t")), nil, 10)
	require.NoError(t, err)
	assert.Equal(t, len(texts), td.TotalHits)
}

func TestWildcardQuery(t *testing.T) {
	r := fruitSegment(t)
	s := NewIndexSearcher(r)

	assert.Equal(t, []int{1, 2, 4}, docIDs(matches(t, s, NewWildcardQuery(body("a*t")), nil)))
	assert.Equal(t, []int{0, 4}, docIDs(matches(t, s, NewWildcardQuery(body("ap?le")), nil)))
	assert.Equal(t, []int{3}, docIDs(matches(t, s, NewWildcardQuery(body("*n*")), nil)))

	rewritten, err := NewWildcardQuery(body("apple")).WithBoost(2).Rewrite(r)
	require.NoError(t, err)
	assert.True(t, rewritten.Equal(NewTermQuery(body("apple")).WithBoost(2)))

	rewritten, err = NewWildcardQuery(body("ap*"), WithRewrite(ScoringBooleanRewrite)).Rewrite(r)
	require.NoError(t, err)
	assert.True(t, rewritten.Equal(NewPrefixQuery(body("ap"), WithRewrite(ScoringBooleanRewrite))))
}

func TestWildcardEquals(t *testing.T) {
	tests := []struct {
		pattern, text string
		want          bool
	}{
		{"a*b", "ab", true},
		{"a*b", "axxb", true},
		{"a*b", "axxbc", false},
		{"a?c", "abc", true},
		{"a?c", "ac", false},
		{"*", "", true},
		{"a*", "", false},
		{"*b*", "abc", true},
		{"*a*a", "banana", true},
		{"é?", "éa", true},
		{"??", "é", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, wildcardEquals([]rune(tt.pattern), tt.text), "%q ~ %q", tt.pattern, tt.text)
	}
}

func TestTermRangeQuery(t *testing.T) {
	s := NewIndexSearcher(fruitSegment(t))
	tests := []struct {
		name         string
		lower, upper string
		incL, incU   bool
		want         []int
	}{
		{"half open", "apple", "apt", true, false, []int{0, 1, 4}},
		{"inclusive", "apple", "apt", true, true, []int{0, 1, 2, 4}},
		{"exclusive lower", "apple", "apt", false, true, []int{1, 2, 4}},
		{"open lower", "", "apricot", true, true, []int{0, 1, 4}},
		{"open upper", "apricot", "", false, true, []int{2, 3, 4}},
		{"nothing", "b", "ba", true, true, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewTermRangeQuery("body", tt.lower, tt.upper, tt.incL, tt.incU)
			assert.Equal(t, tt.want, docIDs(matches(t, s, q, nil)))
		})
	}
}

func TestPhraseQuery(t *testing.T) {
	s := NewIndexSearcher(newSegment(t, "a b c", "b a", "a x b", "a b a b", "c a b"))

	exact, err := NewPhraseQuery(body("a"), body("b"))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3, 4}, docIDs(matches(t, s, exact, nil)))
	assert.Equal(t, []int{0, 2, 3, 4}, docIDs(matches(t, s, exact.WithSlop(1), nil)))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, docIDs(matches(t, s, exact.WithSlop(2), nil)))

	sloppy := matches(t, s, exact.WithSlop(1), nil)
	assert.Greater(t, sloppy[0], sloppy[2], "closer matches score higher")

	expl, err := s.Explain(exact, 3)
	require.NoError(t, err)
	assert.Contains(t, expl.String(), "tf(phraseFreq=2)")

	gapped, err := NewPhraseQueryAt([]index.Term{body("a"), body("c")}, []int{0, 2})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, docIDs(matches(t, s, gapped, nil)))
	assert.Equal(t, `"a ? c"`, gapped.String("body"))
	assert.Equal(t, `body:"a b"~2^3`, exact.WithSlop(2).WithBoost(3).String(""))
}

func TestPhraseQuerySingleTermRewrites(t *testing.T) {
	q, err := NewPhraseQuery(body("a"))
	require.NoError(t, err)
	rewritten, err := q.WithBoost(2).Rewrite(nil)
	require.NoError(t, err)
	assert.True(t, rewritten.Equal(NewTermQuery(body("a")).WithBoost(2)))
}

func TestPhraseQueryValidation(t *testing.T) {
	_, err := NewPhraseQuery(body("a"), index.NewTerm("title", "b"))
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewPhraseQueryAt([]index.Term{body("a")}, []int{0, 1})
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = NewPhraseQueryAt([]index.Term{body("a")}, []int{-1})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDisjunctionMaxQuery(t *testing.T) {
	s := NewIndexSearcher(newSegment(t, "a", "c", "a c", "b"))
	q, err := NewDisjunctionMaxQuery(0.5, termQ("a"), termQ("c"))
	require.NoError(t, err)
	hits := matches(t, s, q, nil)
	assert.Equal(t, []int{0, 1, 2}, docIDs(hits))

	expl, err := s.Explain(q, 2)
	require.NoError(t, err)
	assert.Equal(t, "max plus 0.5 times others of:", expl.Description)
	require.Len(t, expl.Details, 2)
	a, c := expl.Details[0].Value, expl.Details[1].Value
	assert.InDelta(t, max(a, c)+0.5*min(a, c), expl.Value, 1e-12)
	assert.InDelta(t, hits[2], expl.Value, 1e-9)

	pure, err := NewDisjunctionMaxQuery(0, termQ("a"), termQ("c"))
	require.NoError(t, err)
	expl, err = s.Explain(pure, 2)
	require.NoError(t, err)
	assert.Equal(t, "max of:", expl.Description)

	_, err = NewDisjunctionMaxQuery(1.5, termQ("a"))
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestNonFiniteBoostRejected(t *testing.T) {
	s := NewIndexSearcher(newSegment(t, "a", "a b"))
	require.NoError(t, CheckBoost(2.5))
	require.NoError(t, CheckBoost(0))

	for _, b := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		bad := termQ("a").WithBoost(b)
		require.ErrorIs(t, CheckBoost(b), ErrInvalidArgument)

		_, err := NewBooleanQuery([]BooleanClause{MustClause(termQ("b")), ShouldClause(bad)})
		assert.ErrorIs(t, err, ErrInvalidArgument)
		assert.ErrorContains(t, err, "clause 1")

		_, err = NewFilteredQuery(bad, NewTermsFilter(body("a")))
		assert.ErrorIs(t, err, ErrInvalidArgument)

		_, err = NewConstantScoreQueryFromQuery(bad)
		assert.ErrorIs(t, err, ErrInvalidArgument)

		_, err = NewDisjunctionMaxQuery(0, termQ("b"), bad)
		assert.ErrorIs(t, err, ErrInvalidArgument)

		_, err = s.Search(context.Background(), bad, nil, 10)
		assert.ErrorIs(t, err, ErrInvalidArgument)

		_, err = s.Search(context.Background(), NewMatchAllDocsQuery().WithBoost(b), nil, 10)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	}
}

func TestMatchAllDocsQuery(t *testing.T) {
	b := newSegment(t, "a", "b", "c")
	s := NewIndexSearcher(b)
	hits := matches(t, s, NewMatchAllDocsQuery(), nil)
	assert.Equal(t, []int{0, 1, 2}, docIDs(hits))
	assert.InDelta(t, hits[0], hits[2], 1e-12)
	assert.Equal(t, "*:*^2", NewMatchAllDocsQuery().WithBoost(2).String(""))
}

func TestExplainMatchesScore(t *testing.T) {
	rng := rand.New(rand.NewPCG(8, 13))
	seg := newSegment(t, randomTexts(rng, 60, []string{"a", "b", "c", "d", "e"}, 6)...)
	s := NewIndexSearcher(seg)

	queries := iteratorQueries(t)
	queries["prefix"] = NewPrefixQuery(body("a"), WithRewrite(ScoringBooleanRewrite))
	queries["boosted"] = termQ("c").WithBoost(4)
	queries["nested"] = mustBoolean(t, []BooleanClause{
		MustClause(mustBoolean(t, []BooleanClause{ShouldClause(termQ("a")), ShouldClause(termQ("b"))})),
		ShouldClause(queries["dismax"]),
		MustNotClause(termQ("e")),
	})

	for name, q := range queries {
		t.Run(name, func(t *testing.T) {
			hits := matches(t, s, q, nil)
			for doc := range seg.MaxDoc() {
				expl, err := s.Explain(q, doc)
				require.NoError(t, err)
				score, hit := hits[doc]
				if !hit {
					assert.False(t, expl.IsMatch(), "doc %d:\n%s", doc, expl)
					continue
				}
				assert.True(t, expl.IsMatch(), "doc %d:\n%s", doc, expl)
				assert.InDelta(t, score, expl.Value, 1e-9, "doc %d:\n%s", doc, expl)
			}
		})
	}
}

func TestQueryEquality(t *testing.T) {
	phrase := func(slop int) Query {
		q, err := NewPhraseQuery(body("a"), body("b"))
		require.NoError(t, err)
		return q.WithSlop(slop)
	}
	dismax := func(tie float64) Query {
		q, err := NewDisjunctionMaxQuery(tie, termQ("a"), termQ("b"))
		require.NoError(t, err)
		return q
	}
	constant := func(terms ...index.Term) Query {
		q, err := NewConstantScoreQuery(NewTermsFilter(terms...))
		require.NoError(t, err)
		return q
	}

	tests := []struct {
		name           string
		a, same, other Query
	}{
		{"term", termQ("a"), termQ("a"), termQ("a").WithBoost(2)},
		{"phrase", phrase(1), phrase(1), phrase(2)},
		{"dismax", dismax(0.1), dismax(0.1), dismax(0.2)},
		{"prefix", NewPrefixQuery(body("a")), NewPrefixQuery(body("a")), NewPrefixQuery(body("a"), WithRewrite(ScoringBooleanRewrite))},
		{"wildcard", NewWildcardQuery(body("a*b")), NewWildcardQuery(body("a*b")), NewWildcardQuery(body("a?b"))},
		{"range", NewTermRangeQuery("body", "a", "c", true, true), NewTermRangeQuery("body", "a", "c", true, true), NewTermRangeQuery("body", "a", "c", true, false)},
		{"constant", constant(body("d")), constant(body("d")), constant(body("e"))},
		{"match all", NewMatchAllDocsQuery(), NewMatchAllDocsQuery(), NewMatchAllDocsQuery().WithBoost(0.5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.a.Equal(tt.same))
			assert.Equal(t, tt.a.Hash(), tt.same.Hash())
			assert.False(t, tt.a.Equal(tt.other))
			assert.False(t, tt.other.Equal(tt.a))
		})
	}
}

func TestQueryString(t *testing.T) {
	dismax, err := NewDisjunctionMaxQuery(0.5, termQ("a"), mustBoolean(t, []BooleanClause{MustClause(termQ("b")), MustClause(termQ("c"))}))
	require.NoError(t, err)
	constant, err := NewConstantScoreQuery(NewTermsFilter(body("d"), body("e")))
	require.NoError(t, err)
	filtered, err := NewFilteredQuery(termQ("a"), mustDocFilter(t, 1, 2))
	require.NoError(t, err)

	tests := []struct {
		q     Query
		field string
		want  string
	}{
		{termQ("a"), "body", "a"},
		{termQ("a").WithBoost(2), "", "body:a^2"},
		{NewPrefixQuery(body("ap")), "body", "ap*"},
		{NewPrefixQuery(body("ap")), "", "body:ap*"},
		{NewWildcardQuery(body("a*t")).WithBoost(2), "", "body:a*t^2"},
		{NewTermRangeQuery("body", "apple", "apt", true, false), "body", "[apple TO apt}"},
		{NewTermRangeQuery("body", "", "m", false, true), "", "body:{* TO m]"},
		{dismax, "body", "(a | (+b +c))~0.5"},
		{constant, "body", "ConstantScore(TermsFilter(body:d body:e))"},
		{filtered, "body", "filtered(a)->DocIDFilter(1,2)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.q.String(tt.field))
	}
}
