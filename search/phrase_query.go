package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/lexis/index"
)

// PhraseQuery matches documents containing terms at given relative
// positions. With a non-zero slop the terms may be moved up to slop
// positions in total, in any order.
type PhraseQuery struct {
	boost
	field     string
	terms     []index.Term
	positions []int
	slop      int
}

// NewPhraseQuery returns a phrase of consecutive terms.
func NewPhraseQuery(terms ...index.Term) (*PhraseQuery, error) {
	positions := make([]int, len(terms))
	for i := range positions {
		positions[i] = i
	}
	return NewPhraseQueryAt(terms, positions)
}

// NewPhraseQueryAt returns a phrase where terms[i] sits at positions[i].
// Several terms may share a position; unused positions act as gaps.
func NewPhraseQueryAt(terms []index.Term, positions []int) (*PhraseQuery, error) {
	if len(terms) != len(positions) {
		return nil, invalidArg("positions", "need %d positions, got %d", len(terms), len(positions))
	}
	q := &PhraseQuery{boost: defaultBoost()}
	for i, t := range terms {
		if i == 0 {
			q.field = t.Field
		} else if t.Field != q.field {
			return nil, invalidArg("terms", "all phrase terms must be in the same field: %s", t)
		}
		if positions[i] < 0 {
			return nil, invalidArg("positions", "position %d is negative", positions[i])
		}
	}
	q.terms = append([]index.Term(nil), terms...)
	q.positions = append([]int(nil), positions...)
	return q, nil
}

// WithSlop returns a copy with the given slop.
func (q *PhraseQuery) WithSlop(slop int) *PhraseQuery {
	c := *q
	c.slop = max(slop, 0)
	return &c
}

func (q *PhraseQuery) WithBoost(b float64) Query {
	c := *q
	c.boost.value = b
	return &c
}

// Slop returns the allowed positional distance.
func (q *PhraseQuery) Slop() int { return q.slop }

// Terms returns a copy of the phrase terms.
func (q *PhraseQuery) Terms() []index.Term { return append([]index.Term(nil), q.terms...) }

// Positions returns a copy of the term positions.
func (q *PhraseQuery) Positions() []int { return append([]int(nil), q.positions...) }

func (q *PhraseQuery) Rewrite(index.Reader) (Query, error) {
	if len(q.terms) == 1 {
		return NewTermQuery(q.terms[0]).WithBoost(q.value), nil
	}
	return q, nil
}

func (q *PhraseQuery) ExtractTerms(terms TermSet) error {
	for _, t := range q.terms {
		terms.Add(t)
	}
	return nil
}

func (q *PhraseQuery) Equal(other Query) bool {
	o, ok := other.(*PhraseQuery)
	if !ok || q.value != o.value || q.slop != o.slop || len(q.terms) != len(o.terms) {
		return false
	}
	for i, t := range q.terms {
		if t != o.terms[i] || q.positions[i] != o.positions[i] {
			return false
		}
	}
	return true
}

func (q *PhraseQuery) Hash() uint64 {
	h := NewQueryHasher("phrase").Float(q.value).Int(q.slop)
	for i, t := range q.terms {
		h.Term(t).Int(q.positions[i])
	}
	return h.Sum()
}

func (q *PhraseQuery) String(field string) string {
	var sb strings.Builder
	if q.field != field {
		sb.WriteString(q.field + ":")
	}
	sb.WriteString(`"`)
	sb.WriteString(q.phraseText())
	sb.WriteString(`"`)
	if q.slop != 0 {
		sb.WriteString("~" + strconv.Itoa(q.slop))
	}
	return sb.String() + q.boostString()
}

func (q *PhraseQuery) phraseText() string {
	maxPos := -1
	for _, p := range q.positions {
		maxPos = max(maxPos, p)
	}
	pieces := make([]string, maxPos+1)
	for i, t := range q.terms {
		p := q.positions[i]
		if pieces[p] != "" {
			pieces[p] += "|"
		}
		pieces[p] += t.Text
	}
	for i, p := range pieces {
		if p == "" {
			pieces[i] = "?"
		}
	}
	return strings.Join(pieces, " ")
}

func (q *PhraseQuery) CreateWeight(s Searcher) (Weight, error) {
	if len(q.terms) == 1 {
		return NewTermQuery(q.terms[0]).WithBoost(q.value).CreateWeight(s)
	}
	sim := s.Similarity()
	idfExp, err := IdfTerms(sim, q.terms, s)
	if err != nil {
		return nil, err
	}
	return &phraseWeight{q: q, sim: sim, idfExp: idfExp, idf: idfExp.Idf}, nil
}

type phraseWeight struct {
	q           *PhraseQuery
	sim         Similarity
	idfExp      IDFExplanation
	idf         float64
	queryNorm   float64
	queryWeight float64
	value       float64
}

func (w *phraseWeight) Query() Query               { return w.q }
func (w *phraseWeight) Value() float64             { return w.value }
func (w *phraseWeight) ScoresDocsOutOfOrder() bool { return false }

func (w *phraseWeight) SumOfSquaredWeights() (float64, error) {
	w.queryWeight = w.idf * w.q.value
	return w.queryWeight * w.queryWeight, nil
}

func (w *phraseWeight) Normalize(norm float64) {
	w.queryNorm = norm
	w.queryWeight *= norm
	w.value = w.queryWeight * w.idf
}

func (w *phraseWeight) Scorer(r index.Reader, _, _ bool) (Scorer, error) {
	if len(w.q.terms) == 0 {
		return nil, nil
	}
	pps := make([]*phrasePositions, len(w.q.terms))
	for i, t := range w.q.terms {
		df, err := r.DocFreq(t)
		if err != nil {
			return nil, err
		}
		if df == 0 {
			return nil, nil
		}
		tp, err := r.TermPositions(t)
		if err != nil {
			return nil, err
		}
		pps[i] = newPhrasePositions(tp, w.q.positions[i])
	}
	norms, err := r.Norms(w.q.field)
	if err != nil {
		return nil, err
	}
	var m phraseMatcher = exactPhraseMatcher{}
	if w.q.slop != 0 {
		m = sloppyPhraseMatcher{slop: w.q.slop, sim: w.sim}
	}
	return newPhraseScorer(pps, m, w.sim, w.value, norms), nil
}

func (w *phraseWeight) Explain(r index.Reader, doc int) (*Explanation, error) {
	q := w.q
	result := NewComplexExplanation(false, 0, fmt.Sprintf("weight(%s in %d), product of:", q.String(""), doc))
	idfExpl := NewExplanation(w.idf, fmt.Sprintf("idf(%s: %s)", q.field, w.idfExp.Explain))

	queryExpl := NewExplanation(0, fmt.Sprintf("queryWeight(%s), product of:", q.String("")))
	if q.value != 1 {
		queryExpl.AddDetail(NewExplanation(q.value, "boost"))
	}
	queryExpl.AddDetail(idfExpl)
	queryExpl.AddDetail(NewExplanation(w.queryNorm, "queryNorm"))
	queryExpl.Value = q.value * w.idf * w.queryNorm
	result.AddDetail(queryExpl)

	s, err := w.Scorer(r, true, false)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return NewExplanation(0, "no matching docs"), nil
	}
	var phraseFreq float64
	d, err := s.Advance(doc)
	if err != nil {
		return nil, err
	}
	if d == doc {
		phraseFreq = s.Freq()
	}
	tfExpl := NewExplanation(w.sim.Tf(phraseFreq), fmt.Sprintf("tf(phraseFreq=%g)", phraseFreq))

	norms, err := r.Norms(q.field)
	if err != nil {
		return nil, err
	}
	fieldNorm := decodeNorm(norms, doc)

	fieldExpl := NewExplanation(tfExpl.Value*w.idf*fieldNorm,
		fmt.Sprintf("fieldWeight(%s:%s in %d), product of:", q.field, q.String(""), doc))
	fieldExpl.AddDetail(tfExpl)
	fieldExpl.AddDetail(idfExpl)
	fieldExpl.AddDetail(NewExplanation(fieldNorm, fmt.Sprintf("fieldNorm(field=%s, doc=%d)", q.field, doc)))
	result.AddDetail(fieldExpl)

	result.Value = queryExpl.Value * fieldExpl.Value
	result.SetMatch(tfExpl.IsMatch())
	return result, nil
}
