package search

import (
	"slices"

	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/internal/queue"
)

// phrasePositions walks the postings of one phrase term. position is
// relative to the term's offset in the phrase, so aligned terms share it.
type phrasePositions struct {
	tp       index.TermPositions
	offset   int
	doc      int
	position int
	count    int
}

func newPhrasePositions(tp index.TermPositions, offset int) *phrasePositions {
	return &phrasePositions{tp: tp, offset: offset, doc: -1}
}

func (pp *phrasePositions) next() (bool, error) {
	ok, err := pp.tp.Next()
	return pp.settle(ok, err)
}

func (pp *phrasePositions) skipTo(target int) (bool, error) {
	ok, err := pp.tp.SkipTo(target)
	return pp.settle(ok, err)
}

func (pp *phrasePositions) settle(ok bool, err error) (bool, error) {
	if err != nil || !ok {
		pp.doc = NoMoreDocs
		return false, err
	}
	pp.doc = pp.tp.Doc()
	pp.position = 0
	return true, nil
}

func (pp *phrasePositions) firstPosition() error {
	pp.count = pp.tp.Freq()
	_, err := pp.nextPosition()
	return err
}

func (pp *phrasePositions) nextPosition() (bool, error) {
	if pp.count <= 0 {
		return false, nil
	}
	pp.count--
	p, err := pp.tp.NextPosition()
	if err != nil {
		return false, err
	}
	pp.position = p - pp.offset
	return true, nil
}

// comparePhrasePositions orders by doc, then position, then offset.
func comparePhrasePositions(a, b *phrasePositions) int {
	switch {
	case a.doc != b.doc:
		return a.doc - b.doc
	case a.position != b.position:
		return a.position - b.position
	}
	return a.offset - b.offset
}

// phraseMatcher computes the phrase frequency once every term is on the
// same document.
type phraseMatcher interface {
	phraseFreq(s *phraseScorer) (float64, error)
}

// phraseScorer keeps the term walkers in a ring; first and last are the
// walkers with the smallest and largest doc, or position inside phraseFreq.
type phraseScorer struct {
	ring    []*phrasePositions
	head    int
	matcher phraseMatcher
	sim     Similarity
	weight  float64
	norms   []byte

	firstTime bool
	more      bool
	doc       int
	freq      float64
}

func newPhraseScorer(pps []*phrasePositions, m phraseMatcher, sim Similarity, weight float64, norms []byte) *phraseScorer {
	return &phraseScorer{
		ring:      pps,
		matcher:   m,
		sim:       sim,
		weight:    weight,
		norms:     norms,
		firstTime: true,
		more:      true,
		doc:       -1,
	}
}

func (s *phraseScorer) first() *phrasePositions { return s.ring[s.head] }

func (s *phraseScorer) last() *phrasePositions {
	return s.ring[(s.head+len(s.ring)-1)%len(s.ring)]
}

func (s *phraseScorer) firstToLast() { s.head = (s.head + 1) % len(s.ring) }

// sortRing orders the ring by doc, position and offset with first at the head.
func (s *phraseScorer) sortRing() {
	slices.SortFunc(s.ring, comparePhrasePositions)
	s.head = 0
}

func (s *phraseScorer) DocID() int    { return s.doc }
func (s *phraseScorer) Freq() float64 { return s.freq }

func (s *phraseScorer) NextDoc() (int, error) {
	if s.doc == NoMoreDocs {
		return NoMoreDocs, nil
	}
	var err error
	if s.firstTime {
		s.firstTime = false
		for _, pp := range s.ring {
			if !s.more {
				break
			}
			if s.more, err = pp.next(); err != nil {
				return s.doc, err
			}
		}
		if s.more {
			s.sortRing()
		}
	} else if s.more {
		if s.more, err = s.last().next(); err != nil {
			return s.doc, err
		}
	}
	return s.settle()
}

func (s *phraseScorer) Advance(target int) (int, error) {
	CheckAdvance(s.doc, target)
	if s.doc == NoMoreDocs {
		return NoMoreDocs, nil
	}
	s.firstTime = false
	var err error
	for _, pp := range s.ring {
		if !s.more {
			break
		}
		if s.more, err = pp.skipTo(target); err != nil {
			return s.doc, err
		}
	}
	if s.more {
		s.sortRing()
	}
	return s.settle()
}

func (s *phraseScorer) settle() (int, error) {
	ok, err := s.doNext()
	if err != nil {
		return s.doc, err
	}
	if !ok {
		s.doc = NoMoreDocs
		s.freq = 0
		return s.doc, nil
	}
	s.doc = s.first().doc
	return s.doc, nil
}

// doNext moves the walkers until they agree on a doc containing the phrase.
func (s *phraseScorer) doNext() (bool, error) {
	var err error
	for s.more {
		for s.more && s.first().doc < s.last().doc {
			if s.more, err = s.first().skipTo(s.last().doc); err != nil {
				return false, err
			}
			s.firstToLast()
		}
		if !s.more {
			break
		}
		if s.freq, err = s.matcher.phraseFreq(s); err != nil {
			return false, err
		}
		if s.freq > 0 {
			return true, nil
		}
		if s.more, err = s.last().next(); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (s *phraseScorer) Score() float64 {
	CheckPositioned(s.doc)
	return s.sim.Tf(s.freq) * s.weight * decodeNorm(s.norms, s.doc)
}

// exactPhraseMatcher counts positions where every term lines up.
type exactPhraseMatcher struct{}

func (exactPhraseMatcher) phraseFreq(s *phraseScorer) (float64, error) {
	for _, pp := range s.ring {
		if err := pp.firstPosition(); err != nil {
			return 0, err
		}
	}
	s.sortRing()

	var freq float64
	for {
		for s.first().position < s.last().position {
			for {
				ok, err := s.first().nextPosition()
				if err != nil || !ok {
					return freq, err
				}
				if s.first().position >= s.last().position {
					break
				}
			}
			s.firstToLast()
		}
		freq++
		ok, err := s.last().nextPosition()
		if err != nil {
			return 0, err
		}
		if !ok {
			return freq, nil
		}
	}
}

// sloppyPhraseMatcher sums sloppyFreq(matchLength) over every minimal window
// of at most slop positions. Repeated terms in one phrase may share a position.
type sloppyPhraseMatcher struct {
	slop int
	sim  Similarity
}

func (m sloppyPhraseMatcher) phraseFreq(s *phraseScorer) (float64, error) {
	pq := queue.New[*phrasePositions](len(s.ring), func(a, b *phrasePositions) bool {
		return comparePhrasePositions(a, b) < 0
	})
	end := 0
	for _, pp := range s.ring {
		if err := pp.firstPosition(); err != nil {
			return 0, err
		}
		end = max(end, pp.position)
		pq.Push(pp)
	}

	var freq float64
	for done := false; !done; {
		pp, _ := pq.Pop()
		start := pp.position
		next := start
		if top, ok := pq.Top(); ok {
			next = top.position
		}
		for pos := start; pos <= next; pos = pp.position {
			start = pos
			ok, err := pp.nextPosition()
			if err != nil {
				return 0, err
			}
			if !ok {
				done = true
				break
			}
		}
		if matchLength := end - start; matchLength <= m.slop {
			freq += m.sim.SloppyFreq(matchLength)
		}
		end = max(end, pp.position)
		pq.Push(pp)
	}
	return freq, nil
}
