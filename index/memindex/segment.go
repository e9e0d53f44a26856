package memindex

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/hupe1980/lexis/codec"
	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/internal/docset"
)

var _ index.Reader = (*Segment)(nil)

var errNoMorePositions = errors.New("no more positions")

// Segment is an immutable in-memory index.
type Segment struct {
	id          uuid.UUID
	maxDoc      int
	terms       []index.Term
	postings    map[index.Term]*posting
	norms       map[string][]byte
	stored      [][]byte
	compression CompressionType
	codec       codec.Codec
	deleted     *docset.Bitmap
}

// ID returns the unique id assigned at build time.
func (s *Segment) ID() uuid.UUID { return s.id }

func (s *Segment) String() string {
	return fmt.Sprintf("segment(%s, maxDoc=%d, terms=%d)", s.id, s.maxDoc, len(s.terms))
}

// CoreKey returns the segment id.
func (s *Segment) CoreKey() any { return s.id }

func (s *Segment) MaxDoc() int        { return s.maxDoc }
func (s *Segment) NumDocs() int       { return s.maxDoc - s.deleted.Cardinality() }
func (s *Segment) HasDeletions() bool { return !s.deleted.IsEmpty() }
func (s *Segment) IsDeleted(n int) bool {
	return s.deleted.Contains(n)
}

// Deleted returns a copy of the deleted-document set.
func (s *Segment) Deleted() *docset.Bitmap { return s.deleted.Clone() }

// Delete always fails: built segments are read-only.
func (s *Segment) Delete(int) error {
	return fmt.Errorf("delete on built segment: %w", index.ErrUnsupported)
}

// DocFreq counts deleted documents too, like the postings it summarizes.
func (s *Segment) DocFreq(t index.Term) (int, error) {
	if p, ok := s.postings[t]; ok {
		return len(p.docs), nil
	}
	return 0, nil
}

func (s *Segment) TermDocs(t index.Term) (index.TermDocs, error) {
	return s.newPositions(t), nil
}

func (s *Segment) TermPositions(t index.Term) (index.TermPositions, error) {
	return s.newPositions(t), nil
}

func (s *Segment) newPositions(t index.Term) *termPositions {
	return &termPositions{p: s.postings[t], deleted: s.deleted, i: -1}
}

func (s *Segment) Terms(from index.Term) (index.TermEnum, error) {
	start := sort.Search(len(s.terms), func(i int) bool {
		return s.terms[i].Compare(from) >= 0
	})
	return &termEnum{s: s, i: start - 1}, nil
}

func (s *Segment) Norms(field string) ([]byte, error) {
	return s.norms[field], nil
}

func (s *Segment) Document(n int) (*index.Document, error) {
	if n < 0 || n >= s.maxDoc {
		return nil, fmt.Errorf("document %d: %w", n, index.ErrDocOutOfRange)
	}
	raw, err := decompressBlock(s.stored[n], s.compression)
	if err != nil {
		return nil, fmt.Errorf("document %d: %w", n, err)
	}
	var sd storedDoc
	if err := s.codec.Unmarshal(raw, &sd); err != nil {
		return nil, fmt.Errorf("document %d: %w", n, err)
	}
	doc := index.NewDocument()
	for _, f := range sd.Fields {
		doc.Add(index.StoredField(f.Name, f.Value))
	}
	return doc, nil
}

type termEnum struct {
	s *Segment
	i int
}

func (e *termEnum) Next() (bool, error) {
	if e.i >= len(e.s.terms) {
		return false, nil
	}
	e.i++
	return e.i < len(e.s.terms), nil
}

func (e *termEnum) Term() index.Term {
	if e.i < 0 || e.i >= len(e.s.terms) {
		return index.Term{}
	}
	return e.s.terms[e.i]
}

func (e *termEnum) DocFreq() int {
	if e.i < 0 || e.i >= len(e.s.terms) {
		return 0
	}
	return len(e.s.postings[e.s.terms[e.i]].docs)
}

type termPositions struct {
	p       *posting
	deleted *docset.Bitmap
	i       int
	pos     int
	read    bool
}

func (tp *termPositions) Doc() int {
	if tp.p == nil || tp.i < 0 {
		return -1
	}
	if tp.i >= len(tp.p.docs) {
		return index.NoMoreDocs
	}
	return tp.p.docs[tp.i]
}

func (tp *termPositions) Freq() int { return tp.p.freqs[tp.i] }

func (tp *termPositions) Next() (bool, error) {
	if tp.p == nil {
		return false, nil
	}
	return tp.settle(tp.i + 1), nil
}

func (tp *termPositions) SkipTo(target int) (bool, error) {
	if tp.p == nil {
		return false, nil
	}
	from := tp.i + 1
	docs := tp.p.docs
	j := from + sort.SearchInts(docs[min(from, len(docs)):], target)
	return tp.settle(j), nil
}

// settle positions on the first live posting at or after j.
func (tp *termPositions) settle(j int) bool {
	docs := tp.p.docs
	for j < len(docs) && tp.deleted.Contains(docs[j]) {
		j++
	}
	tp.i = j
	tp.pos = 0
	tp.read = false
	return j < len(docs)
}

func (tp *termPositions) NextPosition() (int, error) {
	positions := tp.p.positions[tp.i]
	if tp.pos >= len(positions) {
		return 0, fmt.Errorf("position %d of %d: %w", tp.pos+1, len(positions), errNoMorePositions)
	}
	p := positions[tp.pos]
	tp.pos++
	tp.read = false
	return p, nil
}

func (tp *termPositions) current() []byte {
	if tp.p.payloads == nil || tp.pos == 0 {
		return nil
	}
	per := tp.p.payloads[tp.i]
	if tp.pos-1 >= len(per) {
		return nil
	}
	return per[tp.pos-1]
}

func (tp *termPositions) PayloadLength() int { return len(tp.current()) }

func (tp *termPositions) IsPayloadAvailable() bool {
	return !tp.read && len(tp.current()) > 0
}

func (tp *termPositions) Payload() ([]byte, error) {
	if !tp.IsPayloadAvailable() {
		return nil, fmt.Errorf("payload: %w", index.ErrUnsupported)
	}
	tp.read = true
	return tp.current(), nil
}
