// Package querydsl decodes query trees from TOML, JSON or generic maps and
// builds them into search.Query values.
//
// A query is a tree of Spec nodes selected by their Type:
//
//	type = "boolean"
//	minimum_should_match = 1
//
//	[[must]]
//	type = "term"
//	field = "body"
//	text = "lucene"
//
//	[[should]]
//	type = "phrase"
//	terms = ["full", "text"]
//	slop = 2
//
// Fields left empty fall back to the builder's default field.
package querydsl

// Query node types.
const (
	TypeTerm         = "term"
	TypePhrase       = "phrase"
	TypeBoolean      = "boolean"
	TypeDisMax       = "dismax"
	TypePrefix       = "prefix"
	TypeWildcard     = "wildcard"
	TypeRange        = "range"
	TypeMatchAll     = "match_all"
	TypeConstant     = "constant"
	TypeFiltered     = "filtered"
	TypeSpanTerm     = "span_term"
	TypeSpanNear     = "span_near"
	TypeSpanOr       = "span_or"
	TypeSpanNot      = "span_not"
	TypeSpanFirst    = "span_first"
	TypeSpanRange    = "span_position_range"
	TypeSpanMulti    = "span_multi"
	TypeFieldMasking = "field_masking"
	TypeFieldScore   = "field_score"
	TypeCustomScore  = "custom_score"
)

// Filter node types.
const (
	FilterTerms       = "terms"
	FilterQuery       = "query"
	FilterDocs        = "docs"
	FilterTermRange   = "term_range"
	FilterIntRange    = "int_range"
	FilterFloatRange  = "float_range"
	FilterStringRange = "string_range"
	FilterSpan        = "span"
)

// Spec is the serialized form of a query node. Which fields apply depends on
// Type.
type Spec struct {
	Type  string  `json:"type" toml:"type"`
	Field string  `json:"field,omitempty" toml:"field,omitempty"`
	Boost float64 `json:"boost,omitempty" toml:"boost,omitempty"`

	// term, prefix, wildcard, span_term
	Text string `json:"text,omitempty" toml:"text,omitempty"`

	// phrase, span_near
	Terms     []string `json:"terms,omitempty" toml:"terms,omitempty"`
	Positions []int    `json:"positions,omitempty" toml:"positions,omitempty"`
	Slop      int      `json:"slop,omitempty" toml:"slop,omitempty"`
	InOrder   bool     `json:"in_order,omitempty" toml:"in_order,omitempty"`

	// boolean
	Must               []Spec `json:"must,omitempty" toml:"must,omitempty"`
	Should             []Spec `json:"should,omitempty" toml:"should,omitempty"`
	MustNot            []Spec `json:"must_not,omitempty" toml:"must_not,omitempty"`
	MinimumShouldMatch int    `json:"minimum_should_match,omitempty" toml:"minimum_should_match,omitempty"`
	DisableCoord       bool   `json:"disable_coord,omitempty" toml:"disable_coord,omitempty"`

	// dismax disjuncts, span_near and span_or clauses
	Queries    []Spec  `json:"queries,omitempty" toml:"queries,omitempty"`
	TieBreaker float64 `json:"tie_breaker,omitempty" toml:"tie_breaker,omitempty"`

	// range, and the rewrite of every multi-term query
	Lower        string `json:"lower,omitempty" toml:"lower,omitempty"`
	Upper        string `json:"upper,omitempty" toml:"upper,omitempty"`
	IncludeLower bool   `json:"include_lower,omitempty" toml:"include_lower,omitempty"`
	IncludeUpper bool   `json:"include_upper,omitempty" toml:"include_upper,omitempty"`
	Rewrite      string `json:"rewrite,omitempty" toml:"rewrite,omitempty"`
	Size         int    `json:"size,omitempty" toml:"size,omitempty"`

	// wrapped query of constant, filtered, custom_score, span_first,
	// span_position_range, span_not (include), span_multi and field_masking
	Query   *Spec       `json:"query,omitempty" toml:"query,omitempty"`
	Exclude *Spec       `json:"exclude,omitempty" toml:"exclude,omitempty"`
	Filter  *FilterSpec `json:"filter,omitempty" toml:"filter,omitempty"`
	Start   int         `json:"start,omitempty" toml:"start,omitempty"`
	End     int         `json:"end,omitempty" toml:"end,omitempty"`

	// field_score and custom_score
	Source  string  `json:"source,omitempty" toml:"source,omitempty"`
	Value   float64 `json:"value,omitempty" toml:"value,omitempty"`
	Values  []Spec  `json:"values,omitempty" toml:"values,omitempty"`
	Combine string  `json:"combine,omitempty" toml:"combine,omitempty"`
	Strict  bool    `json:"strict,omitempty" toml:"strict,omitempty"`
}

// FilterSpec is the serialized form of a filter.
type FilterSpec struct {
	Type  string `json:"type" toml:"type"`
	Field string `json:"field,omitempty" toml:"field,omitempty"`

	Terms []string `json:"terms,omitempty" toml:"terms,omitempty"`
	Docs  []int    `json:"docs,omitempty" toml:"docs,omitempty"`
	Query *Spec    `json:"query,omitempty" toml:"query,omitempty"`

	// Range bounds; "" leaves a bound open. Numeric ranges parse them.
	Lower        string `json:"lower,omitempty" toml:"lower,omitempty"`
	Upper        string `json:"upper,omitempty" toml:"upper,omitempty"`
	IncludeLower bool   `json:"include_lower,omitempty" toml:"include_lower,omitempty"`
	IncludeUpper bool   `json:"include_upper,omitempty" toml:"include_upper,omitempty"`

	// Cache wraps the filter in a CachingWrapperFilter.
	Cache bool `json:"cache,omitempty" toml:"cache,omitempty"`
}
