package spans

import (
	"github.com/hupe1980/lexis/index"
)

// termSpans yields one single-position span per occurrence of a term.
type termSpans struct {
	tp       index.TermPositions
	doc      int
	freq     int
	count    int
	position int
}

func newTermSpans(tp index.TermPositions) *termSpans {
	return &termSpans{tp: tp, doc: -1}
}

func (s *termSpans) Next() (bool, error) {
	if s.count == s.freq {
		ok, err := s.tp.Next()
		if err != nil {
			return false, err
		}
		if !ok {
			s.doc = index.NoMoreDocs
			return false, nil
		}
		s.doc = s.tp.Doc()
		s.freq = s.tp.Freq()
		s.count = 0
	}
	return s.nextPosition()
}

func (s *termSpans) SkipTo(target int) (bool, error) {
	ok, err := s.tp.SkipTo(target)
	if err != nil {
		return false, err
	}
	if !ok {
		s.doc = index.NoMoreDocs
		return false, nil
	}
	s.doc = s.tp.Doc()
	s.freq = s.tp.Freq()
	s.count = 0
	return s.nextPosition()
}

func (s *termSpans) nextPosition() (bool, error) {
	pos, err := s.tp.NextPosition()
	if err != nil {
		return false, err
	}
	s.position = pos
	s.count++
	return true, nil
}

func (s *termSpans) Doc() int   { return s.doc }
func (s *termSpans) Start() int { return s.position }
func (s *termSpans) End() int   { return s.position + 1 }

func (s *termSpans) Payload() ([][]byte, error) {
	p, err := s.tp.Payload()
	if err != nil {
		return nil, err
	}
	return [][]byte{p}, nil
}

func (s *termSpans) IsPayloadAvailable() bool { return s.tp.IsPayloadAvailable() }

// emptySpans matches nothing.
type emptySpans struct{}

func (emptySpans) Next() (bool, error)        { return false, nil }
func (emptySpans) SkipTo(int) (bool, error)   { return false, nil }
func (emptySpans) Doc() int                   { return index.NoMoreDocs }
func (emptySpans) Start() int                 { return -1 }
func (emptySpans) End() int                   { return -1 }
func (emptySpans) Payload() ([][]byte, error) { return nil, noPayload() }
func (emptySpans) IsPayloadAvailable() bool   { return false }
