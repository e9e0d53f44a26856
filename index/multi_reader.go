package index

import (
	"container/heap"
	"fmt"
)

// MultiReader presents several readers as one index. Document ids of the
// i-th reader are shifted by the sum of MaxDoc of the readers before it.
type MultiReader struct {
	subs   []Reader
	starts []int
	maxDoc int
	num    int
	del    bool
}

// NewMultiReader composes subs in order.
func NewMultiReader(subs ...Reader) *MultiReader {
	m := &MultiReader{subs: subs, starts: DocStarts(subs)}
	for _, s := range subs {
		m.maxDoc += s.MaxDoc()
		m.num += s.NumDocs()
		m.del = m.del || s.HasDeletions()
	}
	return m
}

// SubReaders returns the composed readers.
func (m *MultiReader) SubReaders() []Reader { return m.subs }

func (m *MultiReader) MaxDoc() int        { return m.maxDoc }
func (m *MultiReader) NumDocs() int       { return m.num }
func (m *MultiReader) HasDeletions() bool { return m.del }
func (m *MultiReader) CoreKey() any       { return m }

func (m *MultiReader) DocFreq(t Term) (int, error) {
	total := 0
	for _, s := range m.subs {
		df, err := s.DocFreq(t)
		if err != nil {
			return 0, err
		}
		total += df
	}
	return total, nil
}

func (m *MultiReader) IsDeleted(n int) bool {
	i := SubIndex(n, m.starts)
	return m.subs[i].IsDeleted(n - m.starts[i])
}

func (m *MultiReader) Document(n int) (*Document, error) {
	if n < 0 || n >= m.maxDoc {
		return nil, fmt.Errorf("document %d: %w", n, ErrDocOutOfRange)
	}
	i := SubIndex(n, m.starts)
	return m.subs[i].Document(n - m.starts[i])
}

func (m *MultiReader) Norms(field string) ([]byte, error) {
	var out []byte
	for _, s := range m.subs {
		n, err := s.Norms(field)
		if err != nil {
			return nil, err
		}
		if n == nil {
			n = make([]byte, s.MaxDoc())
		}
		out = append(out, n...)
	}
	return out, nil
}

func (m *MultiReader) TermDocs(t Term) (TermDocs, error) {
	return m.termPositions(t, false)
}

func (m *MultiReader) TermPositions(t Term) (TermPositions, error) {
	return m.termPositions(t, true)
}

func (m *MultiReader) termPositions(t Term, positions bool) (*multiTermPositions, error) {
	mtp := &multiTermPositions{starts: m.starts, subs: make([]TermPositions, len(m.subs)), cur: -1}
	for i, s := range m.subs {
		if positions {
			tp, err := s.TermPositions(t)
			if err != nil {
				return nil, err
			}
			mtp.subs[i] = tp
			continue
		}
		td, err := s.TermDocs(t)
		if err != nil {
			return nil, err
		}
		mtp.subs[i] = docsOnly{td}
	}
	return mtp, nil
}

func (m *MultiReader) Terms(from Term) (TermEnum, error) {
	q := make(termEnumHeap, 0, len(m.subs))
	for _, s := range m.subs {
		te, err := s.Terms(from)
		if err != nil {
			return nil, err
		}
		ok, err := te.Next()
		if err != nil {
			return nil, err
		}
		if ok {
			q = append(q, te)
		}
	}
	heap.Init(&q)
	return &multiTermEnum{queue: q}, nil
}

// docsOnly adapts a TermDocs to TermPositions for the shared multi iterator.
type docsOnly struct{ TermDocs }

func (docsOnly) NextPosition() (int, error) { return 0, ErrUnsupported }
func (docsOnly) PayloadLength() int         { return 0 }
func (docsOnly) Payload() ([]byte, error)   { return nil, ErrUnsupported }
func (docsOnly) IsPayloadAvailable() bool   { return false }

type multiTermPositions struct {
	starts []int
	subs   []TermPositions
	cur    int
}

func (p *multiTermPositions) Doc() int {
	return p.subs[p.cur].Doc() + p.starts[p.cur]
}

func (p *multiTermPositions) Freq() int { return p.subs[p.cur].Freq() }

func (p *multiTermPositions) Next() (bool, error) {
	if p.cur < 0 {
		p.cur = 0
	}
	for p.cur < len(p.subs) {
		ok, err := p.subs[p.cur].Next()
		if err != nil || ok {
			return ok, err
		}
		p.cur++
	}
	return false, nil
}

func (p *multiTermPositions) SkipTo(target int) (bool, error) {
	if p.cur < 0 {
		p.cur = 0
	}
	for p.cur < len(p.subs) {
		local := max(target-p.starts[p.cur], 0)
		ok, err := p.subs[p.cur].SkipTo(local)
		if err != nil || ok {
			return ok, err
		}
		p.cur++
	}
	return false, nil
}

func (p *multiTermPositions) NextPosition() (int, error) { return p.subs[p.cur].NextPosition() }
func (p *multiTermPositions) PayloadLength() int         { return p.subs[p.cur].PayloadLength() }
func (p *multiTermPositions) Payload() ([]byte, error)   { return p.subs[p.cur].Payload() }
func (p *multiTermPositions) IsPayloadAvailable() bool   { return p.subs[p.cur].IsPayloadAvailable() }

type termEnumHeap []TermEnum

func (h termEnumHeap) Len() int           { return len(h) }
func (h termEnumHeap) Less(i, j int) bool { return h[i].Term().Compare(h[j].Term()) < 0 }
func (h termEnumHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *termEnumHeap) Push(x any)        { *h = append(*h, x.(TermEnum)) }

func (h *termEnumHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// multiTermEnum merges sorted sub enumerations, summing doc freqs of equal terms.
type multiTermEnum struct {
	queue   termEnumHeap
	term    Term
	docFreq int
}

func (e *multiTermEnum) Term() Term   { return e.term }
func (e *multiTermEnum) DocFreq() int { return e.docFreq }

func (e *multiTermEnum) Next() (bool, error) {
	if len(e.queue) == 0 {
		return false, nil
	}
	e.term = e.queue[0].Term()
	e.docFreq = 0
	for len(e.queue) > 0 && e.queue[0].Term() == e.term {
		top := e.queue[0]
		e.docFreq += top.DocFreq()
		ok, err := top.Next()
		if err != nil {
			return false, err
		}
		if ok {
			heap.Fix(&e.queue, 0)
		} else {
			heap.Pop(&e.queue)
		}
	}
	return true, nil
}
