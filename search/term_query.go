package search

import (
	"fmt"

	"github.com/hupe1980/lexis/index"
)

// TermQuery matches documents containing a term.
type TermQuery struct {
	boost
	term index.Term
}

// NewTermQuery returns a query for t.
func NewTermQuery(t index.Term) *TermQuery {
	return &TermQuery{boost: defaultBoost(), term: t}
}

// WithBoost returns a copy with boost b.
func (q *TermQuery) WithBoost(b float64) Query {
	c := *q
	c.boost.value = b
	return &c
}

// Term returns the query term.
func (q *TermQuery) Term() index.Term { return q.term }

func (q *TermQuery) Rewrite(index.Reader) (Query, error) { return q, nil }

func (q *TermQuery) ExtractTerms(terms TermSet) error {
	terms.Add(q.term)
	return nil
}

func (q *TermQuery) Equal(other Query) bool {
	o, ok := other.(*TermQuery)
	return ok && q.term == o.term && q.value == o.value
}

func (q *TermQuery) Hash() uint64 {
	return NewQueryHasher("term").Term(q.term).Float(q.value).Sum()
}

func (q *TermQuery) String(field string) string {
	s := q.term.Text
	if q.term.Field != field {
		s = q.term.Field + ":" + s
	}
	return s + q.boostString()
}

func (q *TermQuery) CreateWeight(s Searcher) (Weight, error) {
	sim := s.Similarity()
	idfExp, err := IdfTerm(sim, q.term, s)
	if err != nil {
		return nil, err
	}
	return &termWeight{q: q, sim: sim, idfExp: idfExp, idf: idfExp.Idf}, nil
}

type termWeight struct {
	q           *TermQuery
	sim         Similarity
	idfExp      IDFExplanation
	idf         float64
	queryNorm   float64
	queryWeight float64
	value       float64
}

func (w *termWeight) Query() Query               { return w.q }
func (w *termWeight) Value() float64             { return w.value }
func (w *termWeight) ScoresDocsOutOfOrder() bool { return false }

func (w *termWeight) SumOfSquaredWeights() (float64, error) {
	w.queryWeight = w.idf * w.q.value
	return w.queryWeight * w.queryWeight, nil
}

func (w *termWeight) Normalize(norm float64) {
	w.queryNorm = norm
	w.queryWeight *= norm
	w.value = w.queryWeight * w.idf
}

func (w *termWeight) Scorer(r index.Reader, _, _ bool) (Scorer, error) {
	td, err := r.TermDocs(w.q.term)
	if err != nil {
		return nil, err
	}
	norms, err := r.Norms(w.q.term.Field)
	if err != nil {
		return nil, err
	}
	return newTermScorer(td, w.sim, w.value, norms), nil
}

func (w *termWeight) Explain(r index.Reader, doc int) (*Explanation, error) {
	t := w.q.term
	result := NewComplexExplanation(false, 0, fmt.Sprintf("weight(%s in %d), product of:", w.q.String(""), doc))
	idfExpl := NewExplanation(w.idf, w.idfExp.Explain)

	queryExpl := NewExplanation(0, fmt.Sprintf("queryWeight(%s), product of:", w.q.String("")))
	if w.q.value != 1 {
		queryExpl.AddDetail(NewExplanation(w.q.value, "boost"))
	}
	queryExpl.AddDetail(idfExpl)
	queryExpl.AddDetail(NewExplanation(w.queryNorm, "queryNorm"))
	queryExpl.Value = w.q.value * w.idf * w.queryNorm
	result.AddDetail(queryExpl)

	freq, err := termFreqAt(r, t, doc)
	if err != nil {
		return nil, err
	}
	tfExpl := NewExplanation(TfInt(w.sim, freq), fmt.Sprintf("tf(termFreq(%s)=%d)", t, freq))

	norms, err := r.Norms(t.Field)
	if err != nil {
		return nil, err
	}
	fieldNorm := decodeNorm(norms, doc)

	fieldExpl := NewComplexExplanation(tfExpl.IsMatch(), tfExpl.Value*w.idf*fieldNorm,
		fmt.Sprintf("fieldWeight(%s in %d), product of:", t, doc))
	fieldExpl.AddDetail(tfExpl)
	fieldExpl.AddDetail(idfExpl)
	fieldExpl.AddDetail(NewExplanation(fieldNorm, fmt.Sprintf("fieldNorm(field=%s, doc=%d)", t.Field, doc)))

	result.AddDetail(fieldExpl)
	result.SetMatch(fieldExpl.IsMatch())
	result.Value = queryExpl.Value * fieldExpl.Value

	if queryExpl.Value == 1 {
		return fieldExpl, nil
	}
	return result, nil
}

// termFreqAt returns the frequency of t in doc, 0 when absent.
func termFreqAt(r index.Reader, t index.Term, doc int) (int, error) {
	td, err := r.TermDocs(t)
	if err != nil {
		return 0, err
	}
	ok, err := td.SkipTo(doc)
	if err != nil || !ok || td.Doc() != doc {
		return 0, err
	}
	return td.Freq(), nil
}

// termScorer scores the postings of one term.
type termScorer struct {
	td     index.TermDocs
	sim    Similarity
	weight float64
	norms  []byte
	doc    int
	freq   int
}

func newTermScorer(td index.TermDocs, sim Similarity, weight float64, norms []byte) *termScorer {
	return &termScorer{td: td, sim: sim, weight: weight, norms: norms, doc: -1}
}

func (s *termScorer) DocID() int    { return s.doc }
func (s *termScorer) Freq() float64 { return float64(s.freq) }

func (s *termScorer) NextDoc() (int, error) {
	if s.doc == NoMoreDocs {
		return NoMoreDocs, nil
	}
	ok, err := s.td.Next()
	return s.settle(ok, err)
}

func (s *termScorer) Advance(target int) (int, error) {
	CheckAdvance(s.doc, target)
	if s.doc == NoMoreDocs {
		return NoMoreDocs, nil
	}
	ok, err := s.td.SkipTo(target)
	return s.settle(ok, err)
}

func (s *termScorer) settle(ok bool, err error) (int, error) {
	if err != nil {
		return s.doc, err
	}
	if !ok {
		s.doc = NoMoreDocs
		s.freq = 0
		return s.doc, nil
	}
	s.doc = s.td.Doc()
	s.freq = s.td.Freq()
	return s.doc, nil
}

func (s *termScorer) Score() float64 {
	CheckPositioned(s.doc)
	return TfInt(s.sim, s.freq) * s.weight * decodeNorm(s.norms, s.doc)
}

func (s *termScorer) ScoreAll(c Collector) error {
	first, err := s.NextDoc()
	if err != nil {
		return err
	}
	_, err = s.ScoreRange(c, NoMoreDocs, first)
	return err
}

func (s *termScorer) ScoreRange(c Collector, max, firstDoc int) (bool, error) {
	return scoreRange(s, c, max, firstDoc)
}
