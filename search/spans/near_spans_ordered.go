package spans

import (
	"cmp"
	"slices"
)

// nearSpansOrdered matches sub-spans that occur in clause order, each
// starting at or after the previous one and not overlapping it, with at
// most allowedSlop unmatched positions between them.
//
// Once all sub-spans are ordered in a doc, every sub-span but the last is
// moved forward as far as it stays before its successor. This yields the
// shortest match ending at the last sub-span, so matches never nest.
type nearSpansOrdered struct {
	subs            []Spans
	byDoc           []Spans
	allowedSlop     int
	collectPayloads bool

	firstTime  bool
	more       bool
	inSameDoc  bool
	matchDoc   int
	matchStart int
	matchEnd   int
	payload    [][]byte
}

func newNearSpansOrdered(subs []Spans, slop int, collectPayloads bool) *nearSpansOrdered {
	return &nearSpansOrdered{
		subs:            subs,
		byDoc:           slices.Clone(subs),
		allowedSlop:     slop,
		collectPayloads: collectPayloads,
		firstTime:       true,
		matchDoc:        -1,
		matchStart:      -1,
		matchEnd:        -1,
	}
}

func (s *nearSpansOrdered) Doc() int   { return s.matchDoc }
func (s *nearSpansOrdered) Start() int { return s.matchStart }
func (s *nearSpansOrdered) End() int   { return s.matchEnd }

func (s *nearSpansOrdered) Payload() ([][]byte, error) {
	if len(s.payload) == 0 {
		return nil, noPayload()
	}
	return slices.Clone(s.payload), nil
}

func (s *nearSpansOrdered) IsPayloadAvailable() bool { return len(s.payload) != 0 }

func (s *nearSpansOrdered) Next() (bool, error) {
	if s.firstTime {
		s.firstTime = false
		for _, sp := range s.subs {
			ok, err := sp.Next()
			if err != nil {
				return false, err
			}
			if !ok {
				s.more = false
				return false, nil
			}
		}
		s.more = true
	}
	s.payload = nil
	return s.advanceAfterOrdered()
}

func (s *nearSpansOrdered) SkipTo(target int) (bool, error) {
	if s.firstTime {
		s.firstTime = false
		for _, sp := range s.subs {
			ok, err := sp.SkipTo(target)
			if err != nil {
				return false, err
			}
			if !ok {
				s.more = false
				return false, nil
			}
		}
		s.more = true
	} else if s.more && s.subs[0].Doc() < target {
		ok, err := s.subs[0].SkipTo(target)
		if err != nil {
			return false, err
		}
		if !ok {
			s.more = false
			return false, nil
		}
		s.inSameDoc = false
	}
	s.payload = nil
	return s.advanceAfterOrdered()
}

func (s *nearSpansOrdered) advanceAfterOrdered() (bool, error) {
	for s.more {
		if !s.inSameDoc {
			ok, err := s.toSameDoc()
			if err != nil || !ok {
				return false, err
			}
		}
		ok, err := s.stretchToOrder()
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}
		match, err := s.shrinkToAfterShortestMatch()
		if err != nil {
			return false, err
		}
		if match {
			return true, nil
		}
	}
	return false, nil
}

// toSameDoc moves the sub-spans forward until they share a doc.
func (s *nearSpansOrdered) toSameDoc() (bool, error) {
	slices.SortFunc(s.byDoc, func(a, b Spans) int { return cmp.Compare(a.Doc(), b.Doc()) })
	first := 0
	maxDoc := s.byDoc[len(s.byDoc)-1].Doc()
	for s.byDoc[first].Doc() != maxDoc {
		ok, err := s.byDoc[first].SkipTo(maxDoc)
		if err != nil {
			return false, err
		}
		if !ok {
			s.more = false
			s.inSameDoc = false
			return false, nil
		}
		maxDoc = s.byDoc[first].Doc()
		if first++; first == len(s.byDoc) {
			first = 0
		}
	}
	s.inSameDoc = true
	return true, nil
}

// stretchToOrder moves each sub-span past its predecessor within matchDoc.
func (s *nearSpansOrdered) stretchToOrder() (bool, error) {
	s.matchDoc = s.subs[0].Doc()
	for i := 1; s.inSameDoc && i < len(s.subs); i++ {
		for !spansOrdered(s.subs[i-1], s.subs[i]) {
			ok, err := s.subs[i].Next()
			if err != nil {
				return false, err
			}
			if !ok {
				s.inSameDoc = false
				s.more = false
				break
			}
			if s.subs[i].Doc() != s.matchDoc {
				s.inSameDoc = false
				break
			}
		}
	}
	return s.inSameDoc, nil
}

// shrinkToAfterShortestMatch fixes the match end at the last sub-span and
// pulls every earlier sub-span as close to its successor as order allows.
// The sub-spans are left after the match, ready for the next search.
func (s *nearSpansOrdered) shrinkToAfterShortestMatch() (bool, error) {
	last := s.subs[len(s.subs)-1]
	s.matchStart = last.Start()
	s.matchEnd = last.End()

	var possible [][]byte
	if s.collectPayloads && last.IsPayloadAvailable() {
		p, err := last.Payload()
		if err != nil {
			return false, err
		}
		possible = append(possible, p...)
	}

	matchSlop := 0
	lastStart, lastEnd := s.matchStart, s.matchEnd
	for i := len(s.subs) - 2; i >= 0; i-- {
		prev := s.subs[i]
		var prevPayload [][]byte
		if s.collectPayloads && prev.IsPayloadAvailable() {
			p, err := prev.Payload()
			if err != nil {
				return false, err
			}
			prevPayload = p
		}
		prevStart, prevEnd := prev.Start(), prev.End()
		for {
			ok, err := prev.Next()
			if err != nil {
				return false, err
			}
			if !ok {
				s.inSameDoc = false
				s.more = false
				break
			}
			if prev.Doc() != s.matchDoc {
				s.inSameDoc = false
				break
			}
			if !ordered(prev.Start(), prev.End(), lastStart, lastEnd) {
				break
			}
			prevStart, prevEnd = prev.Start(), prev.End()
			if s.collectPayloads && prev.IsPayloadAvailable() {
				p, err := prev.Payload()
				if err != nil {
					return false, err
				}
				prevPayload = p
			}
		}
		possible = append(possible, prevPayload...)

		if s.matchStart > prevEnd {
			matchSlop += s.matchStart - prevEnd
		}
		s.matchStart = prevStart
		lastStart, lastEnd = prevStart, prevEnd
	}

	match := matchSlop <= s.allowedSlop
	if s.collectPayloads && match {
		s.payload = possible
	}
	return match, nil
}
