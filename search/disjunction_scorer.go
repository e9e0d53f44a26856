package search

import (
	"math"

	"github.com/hupe1980/lexis/internal/queue"
)

// scorerQueue orders sub-scorers by their current document.
type scorerQueue = queue.PriorityQueue[Scorer]

func newScorerQueue(n int) *scorerQueue {
	return queue.New(n, func(a, b Scorer) bool { return a.DocID() < b.DocID() })
}

// nextAndAdjustElsePop moves the top scorer forward; exhausted scorers leave
// the queue. It reports whether the queue is non-empty.
func nextAndAdjustElsePop(q *scorerQueue) (bool, error) {
	top, _ := q.Top()
	doc, err := top.NextDoc()
	if err != nil {
		return false, err
	}
	return adjustElsePop(q, doc), nil
}

func skipToAndAdjustElsePop(q *scorerQueue, target int) (bool, error) {
	top, _ := q.Top()
	doc, err := top.Advance(target)
	if err != nil {
		return false, err
	}
	return adjustElsePop(q, doc), nil
}

func adjustElsePop(q *scorerQueue, doc int) bool {
	if doc == NoMoreDocs {
		q.Pop()
	} else {
		q.FixTop()
	}
	return q.Len() > 0
}

func topDoc(q *scorerQueue) int {
	top, _ := q.Top()
	return top.DocID()
}

// disjunctionSumScorer matches documents matched by at least minMatchers
// sub-scorers and sums their scores.
type disjunctionSumScorer struct {
	subs         []Scorer
	minMatchers  int
	queue        *scorerQueue
	started      bool
	currentDoc   int
	currentScore float64
	nrMatchers   int
}

func newDisjunctionSumScorer(subs []Scorer, minMatchers int) *disjunctionSumScorer {
	if minMatchers < 1 {
		minMatchers = 1
	}
	return &disjunctionSumScorer{subs: subs, minMatchers: minMatchers, currentDoc: -1, nrMatchers: -1}
}

func (d *disjunctionSumScorer) init() error {
	d.started = true
	d.queue = newScorerQueue(len(d.subs))
	for _, s := range d.subs {
		doc, err := s.NextDoc()
		if err != nil {
			return err
		}
		if doc != NoMoreDocs {
			d.queue.Push(s)
		}
	}
	return nil
}

func (d *disjunctionSumScorer) DocID() int { return d.currentDoc }

func (d *disjunctionSumScorer) NextDoc() (int, error) {
	if d.currentDoc == NoMoreDocs {
		return NoMoreDocs, nil
	}
	if !d.started {
		if err := d.init(); err != nil {
			return d.currentDoc, err
		}
	}
	if d.queue.Len() < d.minMatchers {
		d.currentDoc = NoMoreDocs
		return NoMoreDocs, nil
	}
	ok, err := d.advanceAfterCurrent()
	if err != nil {
		return d.currentDoc, err
	}
	if !ok {
		d.currentDoc = NoMoreDocs
	}
	return d.currentDoc, nil
}

// advanceAfterCurrent gathers the scorers on the smallest queued document
// and moves them forward, repeating until enough of them matched.
func (d *disjunctionSumScorer) advanceAfterCurrent() (bool, error) {
	for {
		top, _ := d.queue.Top()
		d.currentDoc = top.DocID()
		d.currentScore = top.Score()
		d.nrMatchers = 1
		for {
			more, err := nextAndAdjustElsePop(d.queue)
			if err != nil {
				return false, err
			}
			if !more {
				break
			}
			top, _ = d.queue.Top()
			if top.DocID() != d.currentDoc {
				break
			}
			d.currentScore += top.Score()
			d.nrMatchers++
		}
		if d.nrMatchers >= d.minMatchers {
			return true, nil
		}
		if d.queue.Len() < d.minMatchers {
			return false, nil
		}
	}
}

func (d *disjunctionSumScorer) Advance(target int) (int, error) {
	CheckAdvance(d.currentDoc, target)
	if d.currentDoc == NoMoreDocs {
		return NoMoreDocs, nil
	}
	if !d.started {
		if err := d.init(); err != nil {
			return d.currentDoc, err
		}
	}
	for {
		if d.queue.Len() < d.minMatchers {
			d.currentDoc = NoMoreDocs
			return NoMoreDocs, nil
		}
		if topDoc(d.queue) >= target {
			ok, err := d.advanceAfterCurrent()
			if err != nil {
				return d.currentDoc, err
			}
			if !ok {
				d.currentDoc = NoMoreDocs
			}
			return d.currentDoc, nil
		}
		if _, err := skipToAndAdjustElsePop(d.queue, target); err != nil {
			return d.currentDoc, err
		}
	}
}

func (d *disjunctionSumScorer) Score() float64 {
	CheckPositioned(d.currentDoc)
	return d.currentScore
}

func (d *disjunctionSumScorer) Freq() float64 { return float64(d.nrMatchers) }

// disjunctionMaxScorer scores a document by its best sub-score plus
// tieBreaker times the other sub-scores.
type disjunctionMaxScorer struct {
	subs       []Scorer
	tieBreaker float64
	queue      *scorerQueue
	started    bool
	doc        int
}

func newDisjunctionMaxScorer(tieBreaker float64, subs []Scorer) *disjunctionMaxScorer {
	return &disjunctionMaxScorer{subs: subs, tieBreaker: tieBreaker, doc: -1}
}

func (d *disjunctionMaxScorer) init() error {
	d.started = true
	d.queue = newScorerQueue(len(d.subs))
	for _, s := range d.subs {
		doc, err := s.NextDoc()
		if err != nil {
			return err
		}
		if doc != NoMoreDocs {
			d.queue.Push(s)
		}
	}
	return nil
}

func (d *disjunctionMaxScorer) DocID() int { return d.doc }

func (d *disjunctionMaxScorer) NextDoc() (int, error) {
	if d.doc == NoMoreDocs {
		return NoMoreDocs, nil
	}
	if !d.started {
		if err := d.init(); err != nil {
			return d.doc, err
		}
	} else {
		for d.queue.Len() > 0 && topDoc(d.queue) == d.doc {
			if _, err := nextAndAdjustElsePop(d.queue); err != nil {
				return d.doc, err
			}
		}
	}
	return d.settle(), nil
}

func (d *disjunctionMaxScorer) Advance(target int) (int, error) {
	CheckAdvance(d.doc, target)
	if d.doc == NoMoreDocs {
		return NoMoreDocs, nil
	}
	if !d.started {
		if err := d.init(); err != nil {
			return d.doc, err
		}
	}
	for d.queue.Len() > 0 && topDoc(d.queue) < target {
		if _, err := skipToAndAdjustElsePop(d.queue, target); err != nil {
			return d.doc, err
		}
	}
	return d.settle(), nil
}

func (d *disjunctionMaxScorer) settle() int {
	if d.queue.Len() == 0 {
		d.doc = NoMoreDocs
	} else {
		d.doc = topDoc(d.queue)
	}
	return d.doc
}

func (d *disjunctionMaxScorer) Score() float64 {
	CheckPositioned(d.doc)
	sum, best := 0.0, math.Inf(-1)
	for _, s := range d.queue.Items() {
		if s.DocID() != d.doc {
			continue
		}
		sc := s.Score()
		sum += sc
		best = max(best, sc)
	}
	return best + (sum-best)*d.tieBreaker
}

func (d *disjunctionMaxScorer) Freq() float64 {
	CheckPositioned(d.doc)
	n := 0
	for _, s := range d.queue.Items() {
		if s.DocID() == d.doc {
			n++
		}
	}
	return float64(n)
}
