package function

import (
	"slices"
	"strings"

	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/search"
)

// CombineFunc merges the score of the subquery with the scores of the value
// source queries for one document. Implementations must be comparable.
type CombineFunc interface {
	Combine(doc int, subScore float64, valueScores []float64) float64
	Explain(doc int, sub *search.Explanation, values []*search.Explanation) *search.Explanation
	Name() string
}

var (
	// Multiply scores subScore * v1 * v2 ...; it is the default.
	Multiply CombineFunc = multiply{}
	// Add scores subScore + v1 + v2 ...
	Add CombineFunc = add{}
)

type multiply struct{}

func (multiply) Name() string { return "custom" }

func (multiply) Combine(_ int, subScore float64, valueScores []float64) float64 {
	for _, v := range valueScores {
		subScore *= v
	}
	return subScore
}

func (multiply) Explain(_ int, sub *search.Explanation, values []*search.Explanation) *search.Explanation {
	if len(values) == 0 {
		return sub
	}
	v := 1.0
	for _, e := range values {
		v *= e.Value
	}
	exp := search.NewExplanation(v*sub.Value, "custom score: product of:")
	exp.AddDetail(sub)
	for _, e := range values {
		exp.AddDetail(e)
	}
	return exp
}

type add struct{}

func (add) Name() string { return "custom_add" }

func (add) Combine(_ int, subScore float64, valueScores []float64) float64 {
	for _, v := range valueScores {
		subScore += v
	}
	return subScore
}

func (add) Explain(_ int, sub *search.Explanation, values []*search.Explanation) *search.Explanation {
	if len(values) == 0 {
		return sub
	}
	v := sub.Value
	for _, e := range values {
		v += e.Value
	}
	exp := search.NewExplanation(v, "custom score: sum of:")
	exp.AddDetail(sub)
	for _, e := range values {
		exp.AddDetail(e)
	}
	return exp
}

// CustomOption configures a CustomScoreQuery.
type CustomOption func(*CustomScoreQuery)

// WithCombine sets how scores are merged. The default is Multiply.
func WithCombine(fn CombineFunc) CustomOption {
	return func(q *CustomScoreQuery) {
		if fn != nil {
			q.combine = fn
		}
	}
}

// WithStrict keeps the value source queries out of query normalization, so
// their scores are the raw source values times their own boost.
func WithStrict(strict bool) CustomOption {
	return func(q *CustomScoreQuery) { q.strict = strict }
}

// CustomScoreQuery matches the documents of a subquery and rescores them by
// combining the subquery score with value source scores.
type CustomScoreQuery struct {
	sub     search.Query
	values  []*ValueSourceQuery
	combine CombineFunc
	strict  bool
	boost   float64
}

// NewCustomScoreQuery returns a query matching sub, scored by the combine
// function over sub's score and the scores of values.
func NewCustomScoreQuery(sub search.Query, values []*ValueSourceQuery, opts ...CustomOption) (*CustomScoreQuery, error) {
	if sub == nil {
		return nil, &search.ConfigError{Field: "subquery", Reason: "query is required"}
	}
	if err := search.CheckBoost(sub.Boost()); err != nil {
		return nil, err
	}
	for _, v := range values {
		if v == nil {
			return nil, &search.ConfigError{Field: "values", Reason: "value source query is nil"}
		}
		if err := search.CheckBoost(v.Boost()); err != nil {
			return nil, err
		}
	}
	q := &CustomScoreQuery{sub: sub, values: slices.Clone(values), combine: Multiply, boost: 1}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// SubQuery returns the matching query.
func (q *CustomScoreQuery) SubQuery() search.Query { return q.sub }

func (q *CustomScoreQuery) IsStrict() bool { return q.strict }
func (q *CustomScoreQuery) Boost() float64 { return q.boost }

func (q *CustomScoreQuery) WithBoost(b float64) search.Query {
	c := *q
	c.boost = b
	return &c
}

func (q *CustomScoreQuery) Rewrite(r index.Reader) (search.Query, error) {
	sub, err := q.sub.Rewrite(r)
	if err != nil {
		return nil, err
	}
	if sub == q.sub {
		return q, nil
	}
	c := *q
	c.sub = sub
	return &c, nil
}

func (q *CustomScoreQuery) ExtractTerms(terms search.TermSet) error {
	return q.sub.ExtractTerms(terms)
}

func (q *CustomScoreQuery) Equal(other search.Query) bool {
	o, ok := other.(*CustomScoreQuery)
	if !ok || q.boost != o.boost || q.strict != o.strict || q.combine != o.combine ||
		len(q.values) != len(o.values) || !q.sub.Equal(o.sub) {
		return false
	}
	for i := range q.values {
		if !q.values[i].Equal(o.values[i]) {
			return false
		}
	}
	return true
}

func (q *CustomScoreQuery) Hash() uint64 {
	h := search.NewQueryHasher("customscore").Float(q.boost).Bool(q.strict).Str(q.combine.Name()).U64(q.sub.Hash())
	for _, v := range q.values {
		h.U64(v.Hash())
	}
	return h.Sum()
}

func (q *CustomScoreQuery) String(field string) string {
	var sb strings.Builder
	sb.WriteString(q.combine.Name())
	sb.WriteByte('(')
	sb.WriteString(q.sub.String(field))
	for _, v := range q.values {
		sb.WriteString(", ")
		sb.WriteString(v.String(field))
	}
	sb.WriteByte(')')
	if q.strict {
		sb.WriteString(" STRICT")
	}
	sb.WriteString(search.FormatBoost(q.boost))
	return sb.String()
}

func (q *CustomScoreQuery) CreateWeight(s search.Searcher) (search.Weight, error) {
	subWeight, err := q.sub.CreateWeight(s)
	if err != nil {
		return nil, err
	}
	valueWeights := make([]search.Weight, len(q.values))
	for i, v := range q.values {
		if valueWeights[i], err = v.CreateWeight(s); err != nil {
			return nil, err
		}
	}
	return &customWeight{q: q, sub: subWeight, values: valueWeights}, nil
}

type customWeight struct {
	q      *CustomScoreQuery
	sub    search.Weight
	values []search.Weight
}

func (w *customWeight) Query() search.Query        { return w.q }
func (w *customWeight) Value() float64             { return w.q.boost }
func (w *customWeight) ScoresDocsOutOfOrder() bool { return false }

func (w *customWeight) SumOfSquaredWeights() (float64, error) {
	sum, err := w.sub.SumOfSquaredWeights()
	if err != nil {
		return 0, err
	}
	for _, v := range w.values {
		s, err := v.SumOfSquaredWeights()
		if err != nil {
			return 0, err
		}
		if !w.q.strict {
			sum += s
		}
	}
	return sum * w.q.boost * w.q.boost, nil
}

func (w *customWeight) Normalize(norm float64) {
	norm *= w.q.boost
	w.sub.Normalize(norm)
	for _, v := range w.values {
		if w.q.strict {
			v.Normalize(1)
		} else {
			v.Normalize(norm)
		}
	}
}

func (w *customWeight) Scorer(r index.Reader, _, topScorer bool) (search.Scorer, error) {
	sub, err := w.sub.Scorer(r, true, false)
	if err != nil || sub == nil {
		return nil, err
	}
	values := make([]search.Scorer, len(w.values))
	for i, v := range w.values {
		if values[i], err = v.Scorer(r, true, topScorer); err != nil {
			return nil, err
		}
	}
	return &customScorer{
		sub:     sub,
		values:  values,
		scores:  make([]float64, len(values)),
		combine: w.q.combine,
		weight:  w.q.boost,
	}, nil
}

func (w *customWeight) Explain(r index.Reader, doc int) (*search.Explanation, error) {
	subExpl, err := w.sub.Explain(r, doc)
	if err != nil || !subExpl.IsMatch() {
		return subExpl, err
	}
	valueExpls := make([]*search.Explanation, len(w.values))
	for i, v := range w.values {
		if valueExpls[i], err = v.Explain(r, doc); err != nil {
			return nil, err
		}
	}
	custom := w.q.combine.Explain(doc, subExpl, valueExpls)
	res := search.NewComplexExplanation(true, w.q.boost*custom.Value, w.q.String("")+", product of:")
	res.AddDetail(custom)
	res.AddDetail(search.NewExplanation(w.q.boost, "queryBoost"))
	return res, nil
}

// customScorer follows the subquery scorer and positions the value scorers
// on each of its documents.
type customScorer struct {
	sub     search.Scorer
	values  []search.Scorer
	scores  []float64
	combine CombineFunc
	weight  float64
}

func (s *customScorer) DocID() int    { return s.sub.DocID() }
func (s *customScorer) Freq() float64 { return s.sub.Freq() }

func (s *customScorer) NextDoc() (int, error) {
	doc, err := s.sub.NextDoc()
	if err != nil {
		return doc, err
	}
	return doc, s.alignValues(doc)
}

func (s *customScorer) Advance(target int) (int, error) {
	doc, err := s.sub.Advance(target)
	if err != nil {
		return doc, err
	}
	return doc, s.alignValues(doc)
}

func (s *customScorer) alignValues(doc int) error {
	if doc == search.NoMoreDocs {
		return nil
	}
	for _, v := range s.values {
		if v.DocID() >= doc {
			continue
		}
		if _, err := v.Advance(doc); err != nil {
			return err
		}
	}
	return nil
}

func (s *customScorer) Score() float64 {
	doc := s.sub.DocID()
	search.CheckPositioned(doc)
	for i, v := range s.values {
		s.scores[i] = v.Score()
	}
	return s.weight * s.combine.Combine(doc, s.sub.Score(), s.scores)
}
