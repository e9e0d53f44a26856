package search

// Scorer is a DocIDSetIterator that scores its current document.
type Scorer interface {
	DocIDSetIterator
	// Score returns the score of the current document. It panics when the
	// scorer is not positioned on a document.
	Score() float64
	// Freq returns the number of matches contributing to the current document.
	Freq() float64
}

// BulkScorer is implemented by scorers with a native collection loop.
type BulkScorer interface {
	// ScoreAll collects every matching document.
	ScoreAll(c Collector) error
	// ScoreRange collects documents below max, starting at firstDoc which the
	// caller already positioned the scorer on. It reports whether more
	// documents remain.
	ScoreRange(c Collector, max, firstDoc int) (bool, error)
}

// ScoreAll feeds every document of s to c.
func ScoreAll(s Scorer, c Collector) error {
	if b, ok := s.(BulkScorer); ok {
		return b.ScoreAll(c)
	}
	if err := c.SetScorer(s); err != nil {
		return err
	}
	for {
		doc, err := s.NextDoc()
		if err != nil {
			return err
		}
		if doc == NoMoreDocs {
			return nil
		}
		if err := c.Collect(doc); err != nil {
			return err
		}
	}
}

// ScoreRange feeds the documents of s below max to c, starting with firstDoc.
func ScoreRange(s Scorer, c Collector, max, firstDoc int) (bool, error) {
	if b, ok := s.(BulkScorer); ok {
		return b.ScoreRange(c, max, firstDoc)
	}
	return scoreRange(s, c, max, firstDoc)
}

func scoreRange(s Scorer, c Collector, max, firstDoc int) (bool, error) {
	if err := c.SetScorer(s); err != nil {
		return false, err
	}
	doc := firstDoc
	for doc < max {
		if err := c.Collect(doc); err != nil {
			return false, err
		}
		var err error
		if doc, err = s.NextDoc(); err != nil {
			return false, err
		}
	}
	return doc != NoMoreDocs, nil
}

// scoreCachingScorer caches the score of the current document so that
// several collectors can ask for it.
type scoreCachingScorer struct {
	Scorer
	curDoc   int
	curScore float64
}

// NewScoreCachingScorer wraps s so that Score is computed once per document.
func NewScoreCachingScorer(s Scorer) Scorer {
	return &scoreCachingScorer{Scorer: s, curDoc: -1}
}

func (s *scoreCachingScorer) Score() float64 {
	doc := s.Scorer.DocID()
	if doc != s.curDoc {
		s.curScore = s.Scorer.Score()
		s.curDoc = doc
	}
	return s.curScore
}

// constantScorer scores every document of an iterator with the same value.
type constantScorer struct {
	it    DocIDSetIterator
	score float64
}

func newConstantScorer(it DocIDSetIterator, score float64) *constantScorer {
	return &constantScorer{it: it, score: score}
}

func (s *constantScorer) DocID() int                      { return s.it.DocID() }
func (s *constantScorer) NextDoc() (int, error)           { return s.it.NextDoc() }
func (s *constantScorer) Advance(target int) (int, error) { return s.it.Advance(target) }
func (s *constantScorer) Freq() float64                   { return 1 }

func (s *constantScorer) Score() float64 {
	CheckPositioned(s.it.DocID())
	return s.score
}

// fakeScorer carries a score computed elsewhere into a collector.
type fakeScorer struct {
	doc   int
	score float64
	freq  float64
}

func (s *fakeScorer) DocID() int               { return s.doc }
func (s *fakeScorer) NextDoc() (int, error)    { return NoMoreDocs, ErrUnsupported }
func (s *fakeScorer) Advance(int) (int, error) { return NoMoreDocs, ErrUnsupported }
func (s *fakeScorer) Score() float64           { return s.score }
func (s *fakeScorer) Freq() float64            { return s.freq }
