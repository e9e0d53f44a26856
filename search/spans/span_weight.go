package spans

import (
	"fmt"
	"strconv"

	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/search"
)

// spanWeight scores span queries with the idf sum of their terms.
type spanWeight struct {
	q           SpanQuery
	sim         search.Similarity
	idfExp      search.IDFExplanation
	idf         float64
	queryNorm   float64
	queryWeight float64
	value       float64
}

func newSpanWeight(q SpanQuery, s search.Searcher) (*spanWeight, error) {
	terms := search.TermSet{}
	if err := q.ExtractTerms(terms); err != nil {
		return nil, err
	}
	sim := s.Similarity()
	idfExp, err := search.IdfTerms(sim, terms.Sorted(), s)
	if err != nil {
		return nil, err
	}
	return &spanWeight{q: q, sim: sim, idfExp: idfExp, idf: idfExp.Idf}, nil
}

func (w *spanWeight) Query() search.Query        { return w.q }
func (w *spanWeight) Value() float64             { return w.value }
func (w *spanWeight) ScoresDocsOutOfOrder() bool { return false }

func (w *spanWeight) SumOfSquaredWeights() (float64, error) {
	w.queryWeight = w.idf * w.q.Boost()
	return w.queryWeight * w.queryWeight, nil
}

func (w *spanWeight) Normalize(norm float64) {
	w.queryNorm = norm
	w.queryWeight *= norm
	w.value = w.queryWeight * w.idf
}

func (w *spanWeight) Scorer(r index.Reader, _, _ bool) (search.Scorer, error) {
	return w.spanScorer(r)
}

func (w *spanWeight) spanScorer(r index.Reader) (*spanScorer, error) {
	sp, err := w.q.Spans(r)
	if err != nil {
		return nil, err
	}
	norms, err := r.Norms(w.q.Field())
	if err != nil {
		return nil, err
	}
	return newSpanScorer(sp, w.sim, w.value, norms)
}

func (w *spanWeight) Explain(r index.Reader, doc int) (*search.Explanation, error) {
	field := w.q.Field()
	result := search.NewComplexExplanation(false, 0,
		fmt.Sprintf("weight(%s in %d), product of:", w.q.String(""), doc))
	idfExpl := search.NewExplanation(w.idf, fmt.Sprintf("idf(%s: %s)", field, w.idfExp.Explain))

	boost := w.q.Boost()
	queryExpl := search.NewExplanation(boost*w.idf*w.queryNorm,
		fmt.Sprintf("queryWeight(%s), product of:", w.q.String("")))
	if boost != 1 {
		queryExpl.AddDetail(search.NewExplanation(boost, "boost"))
	}
	queryExpl.AddDetail(idfExpl)
	queryExpl.AddDetail(search.NewExplanation(w.queryNorm, "queryNorm"))
	result.AddDetail(queryExpl)

	sc, err := w.spanScorer(r)
	if err != nil {
		return nil, err
	}
	tfExpl, err := sc.explain(doc)
	if err != nil {
		return nil, err
	}
	norms, err := r.Norms(field)
	if err != nil {
		return nil, err
	}
	fieldNorm := decodeNorm(norms, doc)

	fieldExpl := search.NewComplexExplanation(tfExpl.IsMatch(), tfExpl.Value*w.idf*fieldNorm,
		fmt.Sprintf("fieldWeight(%s:%s in %d), product of:", field, w.q.String(field), doc))
	fieldExpl.AddDetail(tfExpl)
	fieldExpl.AddDetail(idfExpl)
	fieldExpl.AddDetail(search.NewExplanation(fieldNorm, fmt.Sprintf("fieldNorm(field=%s, doc=%d)", field, doc)))

	result.AddDetail(fieldExpl)
	result.SetMatch(fieldExpl.IsMatch())
	result.Value = queryExpl.Value * fieldExpl.Value

	if queryExpl.Value == 1 {
		return fieldExpl, nil
	}
	return result, nil
}

func decodeNorm(norms []byte, doc int) float64 {
	if norms == nil {
		return 1
	}
	return index.DecodeNorm(norms[doc])
}

// spanScorer sums the sloppy frequency of every span in a document.
type spanScorer struct {
	spans  Spans
	sim    search.Similarity
	weight float64
	norms  []byte
	more   bool
	doc    int
	freq   float64
}

func newSpanScorer(sp Spans, sim search.Similarity, weight float64, norms []byte) (*spanScorer, error) {
	more, err := sp.Next()
	if err != nil {
		return nil, err
	}
	s := &spanScorer{spans: sp, sim: sim, weight: weight, norms: norms, more: more, doc: -1}
	if !more {
		s.doc = search.NoMoreDocs
	}
	return s, nil
}

func (s *spanScorer) DocID() int    { return s.doc }
func (s *spanScorer) Freq() float64 { return s.freq }

func (s *spanScorer) NextDoc() (int, error) {
	return s.settle()
}

func (s *spanScorer) Advance(target int) (int, error) {
	search.CheckAdvance(s.doc, target)
	if !s.more {
		s.doc = search.NoMoreDocs
		return s.doc, nil
	}
	if s.spans.Doc() < target {
		more, err := s.spans.SkipTo(target)
		if err != nil {
			return s.doc, err
		}
		s.more = more
	}
	return s.settle()
}

// settle consumes every span of the next doc into freq.
func (s *spanScorer) settle() (int, error) {
	if !s.more {
		s.doc = search.NoMoreDocs
		return s.doc, nil
	}
	s.doc = s.spans.Doc()
	s.freq = 0
	for s.more && s.spans.Doc() == s.doc {
		s.freq += s.sim.SloppyFreq(s.spans.End() - s.spans.Start())
		more, err := s.spans.Next()
		if err != nil {
			return s.doc, err
		}
		s.more = more
	}
	return s.doc, nil
}

func (s *spanScorer) Score() float64 {
	search.CheckPositioned(s.doc)
	return s.sim.Tf(s.freq) * s.weight * decodeNorm(s.norms, s.doc)
}

func (s *spanScorer) explain(doc int) (*search.Explanation, error) {
	got := s.doc
	if got < doc {
		var err error
		if got, err = s.Advance(doc); err != nil {
			return nil, err
		}
	}
	freq := 0.0
	if got == doc {
		freq = s.freq
	}
	return search.NewExplanation(s.sim.Tf(freq),
		"tf(phraseFreq="+strconv.FormatFloat(freq, 'g', -1, 64)+")"), nil
}
