package spans

import (
	"github.com/hupe1980/lexis/internal/queue"
)

// spansCell wraps one sub-span of an unordered near match and keeps the
// window bookkeeping of its parent in sync as it moves.
type spansCell struct {
	Spans
	parent *nearSpansUnordered
	length int
	next   *spansCell
}

func (c *spansCell) Next() (bool, error) {
	ok, err := c.Spans.Next()
	if err != nil {
		return false, err
	}
	return c.adjust(ok), nil
}

func (c *spansCell) SkipTo(target int) (bool, error) {
	ok, err := c.Spans.SkipTo(target)
	if err != nil {
		return false, err
	}
	return c.adjust(ok), nil
}

func (c *spansCell) adjust(ok bool) bool {
	p := c.parent
	if c.length != -1 {
		p.totalLength -= c.length
	}
	if ok {
		c.length = c.End() - c.Start()
		p.totalLength += c.length
		if p.max == nil || c.Doc() > p.max.Doc() || (c.Doc() == p.max.Doc() && c.End() > p.max.End()) {
			p.max = c
		}
	}
	p.more = ok
	return ok
}

// nearSpansUnordered matches one span of every clause, in any order, inside
// a window whose unmatched positions do not exceed slop.
//
// Cells sit in a queue ordered by doc and start. The window runs from the
// queue minimum to the cell with the largest end; its slack is the window
// width minus the summed cell lengths. The minimum is moved until the
// slack fits or the doc changes.
type nearSpansUnordered struct {
	cells       []*spansCell
	slop        int
	first, last *spansCell
	totalLength int
	pq          *queue.PriorityQueue[*spansCell]
	max         *spansCell
	more        bool
	firstTime   bool
}

func newNearSpansUnordered(subs []Spans, slop int) *nearSpansUnordered {
	s := &nearSpansUnordered{slop: slop, more: true, firstTime: true}
	s.cells = make([]*spansCell, len(subs))
	for i, sp := range subs {
		s.cells[i] = &spansCell{Spans: sp, parent: s, length: -1}
	}
	s.pq = queue.New(len(subs), func(a, b *spansCell) bool { return lessSpans(a, b) })
	return s
}

func (s *nearSpansUnordered) min() *spansCell {
	c, _ := s.pq.Top()
	return c
}

func (s *nearSpansUnordered) Doc() int   { return s.min().Doc() }
func (s *nearSpansUnordered) Start() int { return s.min().Start() }
func (s *nearSpansUnordered) End() int   { return s.max.End() }

func (s *nearSpansUnordered) Next() (bool, error) {
	if s.firstTime {
		if err := s.initList(true); err != nil {
			return false, err
		}
		s.listToQueue()
		s.firstTime = false
	} else if s.more {
		if err := s.advanceMin(); err != nil {
			return false, err
		}
	}

	for s.more {
		queueStale := false
		if s.min().Doc() != s.max.Doc() {
			s.queueToList()
			queueStale = true
		}
		// Skip to a doc containing every clause.
		for s.more && s.first.Doc() < s.last.Doc() {
			if _, err := s.first.SkipTo(s.last.Doc()); err != nil {
				return false, err
			}
			s.firstToLast()
			queueStale = true
		}
		if !s.more {
			return false, nil
		}
		if queueStale {
			s.listToQueue()
		}
		if s.atMatch() {
			return true, nil
		}
		if err := s.advanceMin(); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (s *nearSpansUnordered) SkipTo(target int) (bool, error) {
	if s.firstTime {
		if err := s.initList(false); err != nil {
			return false, err
		}
		for c := s.first; s.more && c != nil; c = c.next {
			if _, err := c.SkipTo(target); err != nil {
				return false, err
			}
		}
		if s.more {
			s.listToQueue()
		}
		s.firstTime = false
	} else {
		for s.more && s.min().Doc() < target {
			ok, err := s.min().SkipTo(target)
			if err != nil {
				return false, err
			}
			if ok {
				s.pq.FixTop()
			}
		}
	}
	if !s.more {
		return false, nil
	}
	if s.atMatch() {
		return true, nil
	}
	return s.Next()
}

// advanceMin moves the queue minimum to its next span.
func (s *nearSpansUnordered) advanceMin() error {
	ok, err := s.min().Next()
	if err != nil {
		return err
	}
	if ok {
		s.pq.FixTop()
	}
	return nil
}

func (s *nearSpansUnordered) atMatch() bool {
	m := s.min()
	return m.Doc() == s.max.Doc() && s.max.End()-m.Start()-s.totalLength <= s.slop
}

func (s *nearSpansUnordered) initList(next bool) error {
	for i := 0; s.more && i < len(s.cells); i++ {
		c := s.cells[i]
		if next {
			if _, err := c.Next(); err != nil {
				return err
			}
		}
		if s.more {
			s.addToList(c)
		}
	}
	return nil
}

func (s *nearSpansUnordered) addToList(c *spansCell) {
	if s.last != nil {
		s.last.next = c
	} else {
		s.first = c
	}
	s.last = c
	c.next = nil
}

func (s *nearSpansUnordered) firstToLast() {
	s.last.next = s.first
	s.last = s.first
	s.first = s.first.next
	s.last.next = nil
}

func (s *nearSpansUnordered) queueToList() {
	s.first, s.last = nil, nil
	for s.pq.Len() > 0 {
		c, _ := s.pq.Pop()
		s.addToList(c)
	}
}

func (s *nearSpansUnordered) listToQueue() {
	s.pq.Reset()
	for c := s.first; c != nil; c = c.next {
		s.pq.Push(c)
	}
}

func (s *nearSpansUnordered) Payload() ([][]byte, error) {
	var out [][]byte
	for _, c := range s.cells {
		if !c.IsPayloadAvailable() {
			continue
		}
		p, err := c.Spans.Payload()
		if err != nil {
			return nil, err
		}
		out = append(out, p...)
	}
	if len(out) == 0 {
		return nil, noPayload()
	}
	return out, nil
}

func (s *nearSpansUnordered) IsPayloadAvailable() bool {
	for _, c := range s.cells {
		if c.IsPayloadAvailable() {
			return true
		}
	}
	return false
}
