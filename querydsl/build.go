package querydsl

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/search"
	"github.com/hupe1980/lexis/search/function"
	"github.com/hupe1980/lexis/search/spans"
)

// ErrUnknownType is returned for a node whose type is not recognized.
var ErrUnknownType = fmt.Errorf("%w: unknown node type", search.ErrInvalidArgument)

// Error locates a build failure in the query tree.
type Error struct {
	// Path is the dotted location of the failing node, e.g. "must[1].query".
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return "querydsl: " + e.Err.Error()
	}
	return "querydsl: " + e.Path + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Option configures a Builder.
type Option func(*Builder)

// WithDefaultField sets the field used by nodes that leave theirs empty.
func WithDefaultField(field string) Option {
	return func(b *Builder) { b.defaultField = field }
}

// WithFieldCache sets the cache behind field_score nodes and field cache
// range filters. By default every Builder owns one.
func WithFieldCache(fc *search.FieldCache) Option {
	return func(b *Builder) {
		if fc != nil {
			b.fieldCache = fc
		}
	}
}

// WithFilterCacheCapacity sets the byte budget of each caching filter.
func WithFilterCacheCapacity(bytes int64) Option {
	return func(b *Builder) { b.filterCacheBytes = bytes }
}

// Builder turns Specs into queries.
type Builder struct {
	defaultField     string
	fieldCache       *search.FieldCache
	filterCacheBytes int64
}

// NewBuilder returns a builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{fieldCache: search.NewFieldCache(0, nil)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build converts s into a query.
func (b *Builder) Build(s Spec) (search.Query, error) {
	return b.build(s, "")
}

// BuildFilter converts s into a filter.
func (b *Builder) BuildFilter(s FilterSpec) (search.Filter, error) {
	return b.filter(s, "")
}

func child(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func elem(path string, i int) string { return path + "[" + strconv.Itoa(i) + "]" }

func wrap(path string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Path: path, Err: err}
}

func missing(field string) error {
	return &search.ConfigError{Field: field, Reason: "required"}
}

func (b *Builder) field(s Spec) (string, error) {
	if s.Field != "" {
		return s.Field, nil
	}
	if b.defaultField != "" {
		return b.defaultField, nil
	}
	return "", missing("field")
}

func (b *Builder) build(s Spec, path string) (search.Query, error) {
	if err := search.CheckBoost(s.Boost); err != nil {
		return nil, wrap(path, err)
	}
	q, err := b.node(s, path)
	if err != nil {
		return nil, wrap(path, err)
	}
	if s.Boost != 0 && s.Boost != 1 {
		q = q.WithBoost(s.Boost)
	}
	return q, nil
}

func (b *Builder) node(s Spec, path string) (search.Query, error) {
	switch s.Type {
	case TypeTerm:
		field, err := b.field(s)
		if err != nil {
			return nil, err
		}
		return search.NewTermQuery(index.NewTerm(field, s.Text)), nil
	case TypePhrase:
		return b.phrase(s)
	case TypeBoolean:
		return b.boolean(s, path)
	case TypeDisMax:
		disjuncts, err := b.list(s.Queries, child(path, "queries"))
		if err != nil {
			return nil, err
		}
		return search.NewDisjunctionMaxQuery(s.TieBreaker, disjuncts...)
	case TypePrefix, TypeWildcard, TypeRange:
		return b.multiTerm(s)
	case TypeMatchAll:
		return search.NewMatchAllDocsQuery(), nil
	case TypeConstant:
		if s.Filter != nil {
			f, err := b.filter(*s.Filter, child(path, "filter"))
			if err != nil {
				return nil, err
			}
			return search.NewConstantScoreQuery(f)
		}
		if s.Query == nil {
			return nil, missing("filter")
		}
		inner, err := b.build(*s.Query, child(path, "query"))
		if err != nil {
			return nil, err
		}
		return search.NewConstantScoreQueryFromQuery(inner)
	case TypeFiltered:
		if s.Query == nil {
			return nil, missing("query")
		}
		if s.Filter == nil {
			return nil, missing("filter")
		}
		inner, err := b.build(*s.Query, child(path, "query"))
		if err != nil {
			return nil, err
		}
		f, err := b.filter(*s.Filter, child(path, "filter"))
		if err != nil {
			return nil, err
		}
		return search.NewFilteredQuery(inner, f)
	case TypeSpanTerm, TypeSpanNear, TypeSpanOr, TypeSpanNot, TypeSpanFirst,
		TypeSpanRange, TypeSpanMulti, TypeFieldMasking:
		return b.spanNode(s, path)
	case TypeFieldScore:
		return b.valueSource(s)
	case TypeCustomScore:
		return b.customScore(s, path)
	case "":
		return nil, missing("type")
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownType, s.Type)
	}
}

func (b *Builder) list(specs []Spec, path string) ([]search.Query, error) {
	out := make([]search.Query, len(specs))
	for i, s := range specs {
		q, err := b.build(s, elem(path, i))
		if err != nil {
			return nil, err
		}
		out[i] = q
	}
	return out, nil
}

func (b *Builder) phrase(s Spec) (search.Query, error) {
	field, err := b.field(s)
	if err != nil {
		return nil, err
	}
	terms := make([]index.Term, len(s.Terms))
	for i, text := range s.Terms {
		terms[i] = index.NewTerm(field, text)
	}
	var pq *search.PhraseQuery
	if len(s.Positions) > 0 {
		pq, err = search.NewPhraseQueryAt(terms, s.Positions)
	} else {
		pq, err = search.NewPhraseQuery(terms...)
	}
	if err != nil {
		return nil, err
	}
	return pq.WithSlop(s.Slop), nil
}

func (b *Builder) boolean(s Spec, path string) (search.Query, error) {
	var clauses []search.BooleanClause
	groups := []struct {
		name  string
		specs []Spec
		occur search.Occur
	}{
		{"must", s.Must, search.Must},
		{"should", s.Should, search.Should},
		{"must_not", s.MustNot, search.MustNot},
	}
	for _, g := range groups {
		queries, err := b.list(g.specs, child(path, g.name))
		if err != nil {
			return nil, err
		}
		for _, q := range queries {
			clauses = append(clauses, search.BooleanClause{Query: q, Occur: g.occur})
		}
	}
	var opts []search.BooleanOption
	if s.MinimumShouldMatch > 0 {
		opts = append(opts, search.WithMinimumShouldMatch(s.MinimumShouldMatch))
	}
	if s.DisableCoord {
		opts = append(opts, search.WithCoordDisabled())
	}
	return search.NewBooleanQuery(clauses, opts...)
}

func (b *Builder) rewriteMethod(s Spec) (search.RewriteMethod, error) {
	switch s.Rewrite {
	case "", "constant_score_auto":
		return search.ConstantScoreAutoRewrite, nil
	case "scoring_boolean":
		return search.ScoringBooleanRewrite, nil
	case "constant_score_boolean":
		return search.ConstantScoreBooleanRewrite, nil
	case "constant_score_filter":
		return search.ConstantScoreFilterRewrite, nil
	case "top_terms":
		if s.Size <= 0 {
			return nil, &search.ConfigError{Field: "size", Reason: "top_terms needs a positive size"}
		}
		return search.NewTopTermsRewrite(s.Size), nil
	default:
		return nil, &search.ConfigError{Field: "rewrite", Reason: fmt.Sprintf("unknown method %q", s.Rewrite)}
	}
}

func (b *Builder) multiTerm(s Spec) (search.MultiTermQuery, error) {
	field, err := b.field(s)
	if err != nil {
		return nil, err
	}
	m, err := b.rewriteMethod(s)
	if err != nil {
		return nil, err
	}
	switch s.Type {
	case TypePrefix:
		return search.NewPrefixQuery(index.NewTerm(field, s.Text), search.WithRewrite(m)), nil
	case TypeWildcard:
		return search.NewWildcardQuery(index.NewTerm(field, s.Text), search.WithRewrite(m)), nil
	case TypeRange:
		return search.NewTermRangeQuery(field, s.Lower, s.Upper, s.IncludeLower, s.IncludeUpper, search.WithRewrite(m)), nil
	default:
		return nil, fmt.Errorf("%w %q: not a multi-term query", ErrUnknownType, s.Type)
	}
}

// span builds s as a span query. Boosts of nested span clauses are applied
// here so the clause keeps its span type.
func (b *Builder) span(s Spec, path string) (spans.SpanQuery, error) {
	if err := search.CheckBoost(s.Boost); err != nil {
		return nil, wrap(path, err)
	}
	q, err := b.spanNode(s, path)
	if err != nil {
		return nil, wrap(path, err)
	}
	if s.Boost != 0 && s.Boost != 1 {
		boosted, ok := q.WithBoost(s.Boost).(spans.SpanQuery)
		if !ok {
			return nil, wrap(path, fmt.Errorf("%w: boost changed the span type", search.ErrUnsupported))
		}
		q = boosted
	}
	return q, nil
}

func (b *Builder) spanList(specs []Spec, path string) ([]spans.SpanQuery, error) {
	out := make([]spans.SpanQuery, len(specs))
	for i, s := range specs {
		q, err := b.span(s, elem(path, i))
		if err != nil {
			return nil, err
		}
		out[i] = q
	}
	return out, nil
}

func (b *Builder) inner(s Spec, path string) (spans.SpanQuery, error) {
	if s.Query == nil {
		return nil, missing("query")
	}
	return b.span(*s.Query, child(path, "query"))
}

func (b *Builder) spanNode(s Spec, path string) (spans.SpanQuery, error) {
	switch s.Type {
	case TypeSpanTerm:
		field, err := b.field(s)
		if err != nil {
			return nil, err
		}
		return spans.NewSpanTermQuery(index.NewTerm(field, s.Text)), nil
	case TypeSpanNear:
		clauses, err := b.spanList(s.Queries, child(path, "queries"))
		if err != nil {
			return nil, err
		}
		return spans.NewSpanNearQuery(clauses, s.Slop, s.InOrder)
	case TypeSpanOr:
		clauses, err := b.spanList(s.Queries, child(path, "queries"))
		if err != nil {
			return nil, err
		}
		return spans.NewSpanOrQuery(clauses...)
	case TypeSpanNot:
		include, err := b.inner(s, path)
		if err != nil {
			return nil, err
		}
		if s.Exclude == nil {
			return nil, missing("exclude")
		}
		exclude, err := b.span(*s.Exclude, child(path, "exclude"))
		if err != nil {
			return nil, err
		}
		return spans.NewSpanNotQuery(include, exclude)
	case TypeSpanFirst:
		match, err := b.inner(s, path)
		if err != nil {
			return nil, err
		}
		return spans.NewSpanFirstQuery(match, s.End)
	case TypeSpanRange:
		match, err := b.inner(s, path)
		if err != nil {
			return nil, err
		}
		return spans.NewSpanPositionRangeQuery(match, s.Start, s.End)
	case TypeFieldMasking:
		match, err := b.inner(s, path)
		if err != nil {
			return nil, err
		}
		if s.Field == "" {
			return nil, missing("field")
		}
		return spans.NewFieldMaskingSpanQuery(match, s.Field)
	case TypeSpanMulti:
		if s.Query == nil {
			return nil, missing("query")
		}
		mtq, err := b.multiTerm(*s.Query)
		if err != nil {
			return nil, wrap(child(path, "query"), err)
		}
		if err := search.CheckBoost(s.Query.Boost); err != nil {
			return nil, wrap(child(path, "query"), err)
		}
		if s.Query.Boost != 0 && s.Query.Boost != 1 {
			mtq = mtq.WithBoost(s.Query.Boost).(search.MultiTermQuery)
		}
		return spans.NewSpanMultiTermQueryWrapper(mtq)
	default:
		return nil, fmt.Errorf("%w %q: not a span query", ErrUnknownType, s.Type)
	}
}

func (b *Builder) valueSource(s Spec) (*function.ValueSourceQuery, error) {
	var src function.ValueSource
	switch s.Source {
	case "const":
		src = function.NewConstValueSource(s.Value)
	case "", "int", "float", "ord", "rord":
		field, err := b.field(s)
		if err != nil {
			return nil, err
		}
		switch s.Source {
		case "", "int":
			src = function.NewIntFieldSource(field, nil, b.fieldCache)
		case "float":
			src = function.NewFloatFieldSource(field, nil, b.fieldCache)
		case "ord":
			src = function.NewOrdFieldSource(field, b.fieldCache)
		default:
			src = function.NewReverseOrdFieldSource(field, b.fieldCache)
		}
	default:
		return nil, &search.ConfigError{Field: "source", Reason: fmt.Sprintf("unknown value source %q", s.Source)}
	}
	return function.NewValueSourceQuery(src)
}

func (b *Builder) customScore(s Spec, path string) (search.Query, error) {
	if s.Query == nil {
		return nil, missing("query")
	}
	sub, err := b.build(*s.Query, child(path, "query"))
	if err != nil {
		return nil, err
	}
	values := make([]*function.ValueSourceQuery, len(s.Values))
	for i, vs := range s.Values {
		vpath := elem(child(path, "values"), i)
		if vs.Type != "" && vs.Type != TypeFieldScore {
			return nil, wrap(vpath, fmt.Errorf("%w %q: values must be field_score nodes", ErrUnknownType, vs.Type))
		}
		v, err := b.valueSource(vs)
		if err != nil {
			return nil, wrap(vpath, err)
		}
		if err := search.CheckBoost(vs.Boost); err != nil {
			return nil, wrap(vpath, err)
		}
		if vs.Boost != 0 && vs.Boost != 1 {
			v = v.WithBoost(vs.Boost).(*function.ValueSourceQuery)
		}
		values[i] = v
	}
	opts := []function.CustomOption{function.WithStrict(s.Strict)}
	switch s.Combine {
	case "", "multiply":
	case "add":
		opts = append(opts, function.WithCombine(function.Add))
	default:
		return nil, &search.ConfigError{Field: "combine", Reason: fmt.Sprintf("unknown combine function %q", s.Combine)}
	}
	return function.NewCustomScoreQuery(sub, values, opts...)
}

func (b *Builder) filter(s FilterSpec, path string) (search.Filter, error) {
	f, err := b.filterNode(s, path)
	if err != nil {
		return nil, wrap(path, err)
	}
	if s.Cache {
		f, err = search.NewCachingWrapperFilter(f, b.filterCacheBytes)
		if err != nil {
			return nil, wrap(path, err)
		}
	}
	return f, nil
}

func (b *Builder) filterField(s FilterSpec) (string, error) {
	if s.Field != "" {
		return s.Field, nil
	}
	if b.defaultField != "" {
		return b.defaultField, nil
	}
	return "", missing("field")
}

func (b *Builder) filterNode(s FilterSpec, path string) (search.Filter, error) {
	switch s.Type {
	case FilterDocs:
		return search.NewDocIDFilter(s.Docs...)
	case FilterQuery, FilterSpan:
		if s.Query == nil {
			return nil, missing("query")
		}
		if s.Type == FilterSpan {
			sq, err := b.span(*s.Query, child(path, "query"))
			if err != nil {
				return nil, err
			}
			return spans.NewSpanQueryFilter(sq)
		}
		q, err := b.build(*s.Query, child(path, "query"))
		if err != nil {
			return nil, err
		}
		return search.NewQueryWrapperFilter(q)
	case "":
		return nil, missing("type")
	}

	field, err := b.filterField(s)
	if err != nil {
		return nil, err
	}
	switch s.Type {
	case FilterTerms:
		terms := make([]index.Term, len(s.Terms))
		for i, text := range s.Terms {
			terms[i] = index.NewTerm(field, text)
		}
		return search.NewTermsFilter(terms...), nil
	case FilterTermRange:
		q := search.NewTermRangeQuery(field, s.Lower, s.Upper, s.IncludeLower, s.IncludeUpper)
		return search.NewMultiTermQueryWrapperFilter(q), nil
	case FilterStringRange:
		return search.NewFieldCacheStringRangeFilter(b.fieldCache, field, s.Lower, s.Upper, s.IncludeLower, s.IncludeUpper), nil
	case FilterIntRange:
		lower, err := parseBound(s.Lower, "lower", strconv.Atoi)
		if err != nil {
			return nil, err
		}
		upper, err := parseBound(s.Upper, "upper", strconv.Atoi)
		if err != nil {
			return nil, err
		}
		return search.NewFieldCacheIntRangeFilter(b.fieldCache, field, lower, upper, s.IncludeLower, s.IncludeUpper), nil
	case FilterFloatRange:
		parse := func(text string) (float64, error) { return strconv.ParseFloat(text, 64) }
		lower, err := parseBound(s.Lower, "lower", parse)
		if err != nil {
			return nil, err
		}
		upper, err := parseBound(s.Upper, "upper", parse)
		if err != nil {
			return nil, err
		}
		return search.NewFieldCacheFloatRangeFilter(b.fieldCache, field, lower, upper, s.IncludeLower, s.IncludeUpper), nil
	default:
		return nil, fmt.Errorf("%w %q: not a filter", ErrUnknownType, s.Type)
	}
}

// parseBound parses a numeric range bound; "" is an open bound.
func parseBound[T any](text, name string, parse func(string) (T, error)) (*T, error) {
	if text == "" {
		return nil, nil
	}
	v, err := parse(text)
	if err != nil {
		return nil, &search.ConfigError{Field: name, Reason: err.Error()}
	}
	return &v, nil
}
