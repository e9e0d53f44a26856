package search

import (
	"math/bits"

	"github.com/hupe1980/lexis/index"
)

const (
	bucketWindowSize = 2048
	bucketMask       = bucketWindowSize - 1
	bucketWords      = bucketWindowSize / 64
)

// bucket accumulates the clause matches of one document in a window.
type bucket struct {
	doc   int
	score float64
	bits  uint64
}

// bucketTable holds one window of buckets. A bucket is valid while its
// occupancy bit is set; scanning the occupancy words visits buckets in
// increasing doc order.
type bucketTable struct {
	buckets  [bucketWindowSize]bucket
	occupied [bucketWords]uint64
}

func (t *bucketTable) next(from int) int {
	for w := from >> 6; w < bucketWords; w++ {
		word := t.occupied[w]
		if w == from>>6 {
			word &= ^uint64(0) << (uint(from) & 63)
		}
		if word != 0 {
			return w<<6 + bits.TrailingZeros64(word)
		}
	}
	return -1
}

// bucketCollector adds the hits of one clause to the table.
type bucketCollector struct {
	table  *bucketTable
	mask   uint64
	scored bool
	scorer Scorer
}

func (c *bucketCollector) SetScorer(s Scorer) error {
	c.scorer = s
	return nil
}

func (c *bucketCollector) Collect(doc int) error {
	i := doc & bucketMask
	w, bit := i>>6, uint64(1)<<(uint(i)&63)
	b := &c.table.buckets[i]
	var score float64
	if c.scored {
		score = c.scorer.Score()
	}
	if c.table.occupied[w]&bit == 0 {
		c.table.occupied[w] |= bit
		b.doc = doc
		b.score = score
		b.bits = c.mask
		return nil
	}
	b.score += score
	b.bits |= c.mask
	return nil
}

func (c *bucketCollector) SetNextReader(index.Reader, int) error { return nil }
func (c *bucketCollector) AcceptsDocsOutOfOrder() bool           { return true }

type bucketSub struct {
	scorer    Scorer
	collector *bucketCollector
}

// booleanScorer scores a boolean query window by window. Each sub-scorer
// is driven through the window with ScoreRange, filling the bucket table;
// the occupied buckets are then checked against the clause policy and
// emitted in doc order.
type booleanScorer struct {
	table        *bucketTable
	subs         []bucketSub
	required     uint64
	prohibited   uint64
	optional     uint64
	minShould    int
	coordFactors []float64

	end     int
	slot    int
	started bool
	doc     int
	cur     *bucket
}

func newBooleanScorer(scorers []Scorer, occurs []Occur, minShould int, coordFactors []float64) *booleanScorer {
	s := &booleanScorer{
		table:        &bucketTable{},
		subs:         make([]bucketSub, len(scorers)),
		minShould:    minShould,
		coordFactors: coordFactors,
		doc:          -1,
		slot:         bucketWindowSize,
	}
	for i, sc := range scorers {
		mask := uint64(1) << uint(i)
		switch occurs[i] {
		case Must:
			s.required |= mask
		case MustNot:
			s.prohibited |= mask
		default:
			s.optional |= mask
		}
		s.subs[i] = bucketSub{
			scorer:    sc,
			collector: &bucketCollector{table: s.table, mask: mask, scored: occurs[i] != MustNot},
		}
	}
	if s.required == 0 && s.minShould < 1 {
		s.minShould = 1
	}
	return s
}

func (s *booleanScorer) accept(b *bucket) bool {
	return b.bits&s.required == s.required &&
		b.bits&s.prohibited == 0 &&
		bits.OnesCount64(b.bits&s.optional) >= s.minShould
}

func (s *booleanScorer) coord(b *bucket) int {
	return bits.OnesCount64(b.bits &^ s.prohibited)
}

// fill scores the next window that contains a sub-scorer document. It
// reports false once every sub-scorer is exhausted.
func (s *booleanScorer) fill() (bool, error) {
	if !s.started {
		s.started = true
		for _, sub := range s.subs {
			if _, err := sub.scorer.NextDoc(); err != nil {
				return false, err
			}
		}
	}
	minDoc := NoMoreDocs
	for _, sub := range s.subs {
		minDoc = min(minDoc, sub.scorer.DocID())
	}
	if minDoc == NoMoreDocs {
		return false, nil
	}
	s.end = minDoc&^bucketMask + bucketWindowSize
	for _, sub := range s.subs {
		doc := sub.scorer.DocID()
		if doc >= s.end {
			continue
		}
		if _, err := ScoreRange(sub.scorer, sub.collector, s.end, doc); err != nil {
			return false, err
		}
	}
	s.slot = 0
	return true, nil
}

func (s *booleanScorer) DocID() int { return s.doc }

func (s *booleanScorer) NextDoc() (int, error) {
	if s.doc == NoMoreDocs {
		return NoMoreDocs, nil
	}
	for {
		for s.slot < bucketWindowSize {
			i := s.table.next(s.slot)
			if i < 0 {
				s.slot = bucketWindowSize
				break
			}
			s.slot = i + 1
			s.table.occupied[i>>6] &^= uint64(1) << (uint(i) & 63)
			b := &s.table.buckets[i]
			if s.accept(b) {
				s.cur = b
				s.doc = b.doc
				return s.doc, nil
			}
		}
		more, err := s.fill()
		if err != nil {
			return s.doc, err
		}
		if !more {
			s.doc = NoMoreDocs
			s.cur = nil
			return NoMoreDocs, nil
		}
	}
}

// Advance is not supported; the bucket scorer is only used top level.
func (s *booleanScorer) Advance(int) (int, error) {
	return s.doc, ErrUnsupported
}

func (s *booleanScorer) Score() float64 {
	CheckPositioned(s.doc)
	return s.cur.score * s.coordFactors[s.coord(s.cur)]
}

func (s *booleanScorer) Freq() float64 {
	CheckPositioned(s.doc)
	return float64(s.coord(s.cur))
}

// ScoreAll collects through a detached scorer so that collectors never
// see the bucket table itself.
func (s *booleanScorer) ScoreAll(c Collector) error {
	fs := &fakeScorer{doc: -1}
	if err := c.SetScorer(fs); err != nil {
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
		fs.doc, fs.score, fs.freq = doc, s.Score(), s.Freq()
		if err := c.Collect(doc); err != nil {
			return err
		}
	}
}

func (s *booleanScorer) ScoreRange(c Collector, max, firstDoc int) (bool, error) {
	return scoreRange(s, c, max, firstDoc)
}
