package search

// coordinator counts the clauses matching the current document of a
// booleanScorer2.
type coordinator struct {
	nrMatchers   int
	coordFactors []float64
}

// booleanScorer2 scores a boolean query in doc order by composing
// conjunction, disjunction, exclusion and required/optional scorers.
type booleanScorer2 struct {
	coord   *coordinator
	counted Scorer
	doc     int
}

func newBooleanScorer2(required, prohibited, optional []Scorer, minShould int, coordFactors []float64) *booleanScorer2 {
	s := &booleanScorer2{coord: &coordinator{coordFactors: coordFactors}, doc: -1}
	if len(required) == 0 {
		s.counted = s.noRequired(prohibited, optional, minShould)
	} else {
		s.counted = s.someRequired(required, prohibited, optional, minShould)
	}
	return s
}

func (s *booleanScorer2) noRequired(prohibited, optional []Scorer, minShould int) Scorer {
	nrOptRequired := max(1, minShould)
	var req Scorer
	switch {
	case len(optional) > nrOptRequired:
		req = s.countingDisjunction(optional, nrOptRequired)
	case len(optional) == 1:
		req = &singleMatchScorer{Scorer: optional[0], coord: s.coord, lastScoredDoc: -1}
	default:
		req = s.countingConjunction(optional)
	}
	return addProhibited(req, prohibited)
}

func (s *booleanScorer2) someRequired(required, prohibited, optional []Scorer, minShould int) Scorer {
	if len(optional) == minShould {
		all := append(append([]Scorer(nil), required...), optional...)
		return addProhibited(s.countingConjunction(all), prohibited)
	}
	var req Scorer
	if len(required) == 1 {
		req = &singleMatchScorer{Scorer: required[0], coord: s.coord, lastScoredDoc: -1}
	} else {
		req = s.countingConjunction(required)
	}
	if minShould > 0 {
		dual := newConjunctionScorer(1, []Scorer{req, s.countingDisjunction(optional, minShould)})
		return addProhibited(dual, prohibited)
	}
	var opt Scorer
	if len(optional) == 1 {
		opt = &singleMatchScorer{Scorer: optional[0], coord: s.coord, lastScoredDoc: -1}
	} else {
		opt = s.countingDisjunction(optional, 1)
	}
	return newReqOptSumScorer(addProhibited(req, prohibited), opt)
}

func (s *booleanScorer2) countingDisjunction(subs []Scorer, minMatchers int) Scorer {
	return &countingDisjunctionScorer{
		disjunctionSumScorer: newDisjunctionSumScorer(subs, minMatchers),
		coord:                s.coord,
		lastScoredDoc:        -1,
	}
}

func (s *booleanScorer2) countingConjunction(subs []Scorer) Scorer {
	return &countingConjunctionScorer{
		conjunctionScorer: newConjunctionScorer(1, subs),
		coord:             s.coord,
		lastScoredDoc:     -1,
	}
}

func addProhibited(req Scorer, prohibited []Scorer) Scorer {
	switch len(prohibited) {
	case 0:
		return req
	case 1:
		return newReqExclScorer(req, prohibited[0])
	default:
		return newReqExclScorer(req, newDisjunctionSumScorer(prohibited, 1))
	}
}

func (s *booleanScorer2) DocID() int { return s.doc }

func (s *booleanScorer2) NextDoc() (int, error) {
	doc, err := s.counted.NextDoc()
	if err != nil {
		return s.doc, err
	}
	s.doc = doc
	return doc, nil
}

func (s *booleanScorer2) Advance(target int) (int, error) {
	CheckAdvance(s.doc, target)
	doc, err := s.counted.Advance(target)
	if err != nil {
		return s.doc, err
	}
	s.doc = doc
	return doc, nil
}

func (s *booleanScorer2) Score() float64 {
	CheckPositioned(s.doc)
	s.coord.nrMatchers = 0
	sum := s.counted.Score()
	return sum * s.coord.coordFactors[s.coord.nrMatchers]
}

func (s *booleanScorer2) Freq() float64 { return float64(s.coord.nrMatchers) }

// singleMatchScorer counts one matcher per scored document.
type singleMatchScorer struct {
	Scorer
	coord         *coordinator
	lastScoredDoc int
	lastDocScore  float64
}

func (s *singleMatchScorer) Score() float64 {
	doc := s.DocID()
	if doc >= s.lastScoredDoc {
		if doc > s.lastScoredDoc {
			s.lastDocScore = s.Scorer.Score()
			s.lastScoredDoc = doc
		}
		s.coord.nrMatchers++
	}
	return s.lastDocScore
}

type countingDisjunctionScorer struct {
	*disjunctionSumScorer
	coord         *coordinator
	lastScoredDoc int
	lastDocScore  float64
}

func (s *countingDisjunctionScorer) Score() float64 {
	doc := s.DocID()
	if doc >= s.lastScoredDoc {
		if doc > s.lastScoredDoc {
			s.lastDocScore = s.disjunctionSumScorer.Score()
			s.lastScoredDoc = doc
		}
		s.coord.nrMatchers += s.nrMatchers
	}
	return s.lastDocScore
}

type countingConjunctionScorer struct {
	*conjunctionScorer
	coord         *coordinator
	lastScoredDoc int
	lastDocScore  float64
}

func (s *countingConjunctionScorer) Score() float64 {
	doc := s.DocID()
	if doc >= s.lastScoredDoc {
		if doc > s.lastScoredDoc {
			s.lastDocScore = s.conjunctionScorer.Score()
			s.lastScoredDoc = doc
		}
		s.coord.nrMatchers += len(s.scorers)
	}
	return s.lastDocScore
}

// reqExclScorer returns the documents of req that excl does not match.
type reqExclScorer struct {
	req  Scorer
	excl DocIDSetIterator
	doc  int
}

func newReqExclScorer(req Scorer, excl DocIDSetIterator) *reqExclScorer {
	return &reqExclScorer{req: req, excl: excl, doc: -1}
}

func (s *reqExclScorer) DocID() int { return s.doc }

func (s *reqExclScorer) NextDoc() (int, error) {
	if s.req == nil {
		return s.doc, nil
	}
	doc, err := s.req.NextDoc()
	if err != nil {
		return s.doc, err
	}
	if doc == NoMoreDocs {
		s.req = nil
		s.doc = NoMoreDocs
		return NoMoreDocs, nil
	}
	if s.excl == nil {
		s.doc = doc
		return doc, nil
	}
	return s.toNonExcluded()
}

func (s *reqExclScorer) toNonExcluded() (int, error) {
	exclDoc := s.excl.DocID()
	reqDoc := s.req.DocID()
	for {
		switch {
		case reqDoc < exclDoc:
			s.doc = reqDoc
			return reqDoc, nil
		case reqDoc > exclDoc:
			var err error
			if exclDoc, err = s.excl.Advance(reqDoc); err != nil {
				return s.doc, err
			}
			if exclDoc == NoMoreDocs {
				s.excl = nil
				s.doc = reqDoc
				return reqDoc, nil
			}
			if exclDoc > reqDoc {
				s.doc = reqDoc
				return reqDoc, nil
			}
		}
		var err error
		if reqDoc, err = s.req.NextDoc(); err != nil {
			return s.doc, err
		}
		if reqDoc == NoMoreDocs {
			s.req = nil
			s.doc = NoMoreDocs
			return NoMoreDocs, nil
		}
	}
}

func (s *reqExclScorer) Advance(target int) (int, error) {
	CheckAdvance(s.doc, target)
	if s.req == nil {
		s.doc = NoMoreDocs
		return NoMoreDocs, nil
	}
	doc, err := s.req.Advance(target)
	if err != nil {
		return s.doc, err
	}
	if doc == NoMoreDocs {
		s.req = nil
		s.doc = NoMoreDocs
		return NoMoreDocs, nil
	}
	if s.excl == nil {
		s.doc = doc
		return doc, nil
	}
	return s.toNonExcluded()
}

func (s *reqExclScorer) Score() float64 {
	CheckPositioned(s.doc)
	return s.req.Score()
}

func (s *reqExclScorer) Freq() float64 { return s.req.Freq() }

// reqOptSumScorer adds the score of an optional scorer to a required one
// on the documents both match.
type reqOptSumScorer struct {
	req Scorer
	opt Scorer
	// err holds a failure of opt found while scoring; it is returned by the
	// next move.
	err error
}

func newReqOptSumScorer(req, opt Scorer) *reqOptSumScorer {
	return &reqOptSumScorer{req: req, opt: opt}
}

func (s *reqOptSumScorer) DocID() int    { return s.req.DocID() }
func (s *reqOptSumScorer) Freq() float64 { return s.req.Freq() }

func (s *reqOptSumScorer) NextDoc() (int, error) {
	if s.err != nil {
		return s.req.DocID(), s.err
	}
	return s.req.NextDoc()
}

func (s *reqOptSumScorer) Advance(target int) (int, error) {
	if s.err != nil {
		return s.req.DocID(), s.err
	}
	return s.req.Advance(target)
}

func (s *reqOptSumScorer) Score() float64 {
	curDoc := s.req.DocID()
	CheckPositioned(curDoc)
	reqScore := s.req.Score()
	if s.opt == nil {
		return reqScore
	}
	optDoc := s.opt.DocID()
	if optDoc < curDoc {
		var err error
		optDoc, err = s.opt.Advance(curDoc)
		if err != nil {
			s.err = err
		}
		if err != nil || optDoc == NoMoreDocs {
			s.opt = nil
			return reqScore
		}
	}
	if optDoc == curDoc {
		return reqScore + s.opt.Score()
	}
	return reqScore
}
