package index

// TermDocs iterates the documents containing a term, in increasing doc order.
//
// A fresh TermDocs is unpositioned; Next or SkipTo must be called before Doc.
type TermDocs interface {
	// Doc returns the current document id.
	Doc() int
	// Freq returns the number of occurrences in the current document.
	Freq() int
	// Next advances to the next document. It reports false when exhausted.
	Next() (bool, error)
	// SkipTo advances to the first document >= target. It reports false when exhausted.
	SkipTo(target int) (bool, error)
}

// TermPositions extends TermDocs with the positions of each occurrence.
type TermPositions interface {
	TermDocs
	// NextPosition returns the next position in the current document.
	// It may be called at most Freq times per document.
	NextPosition() (int, error)
	// PayloadLength is the payload size at the current position.
	PayloadLength() int
	// Payload returns the payload at the current position. It may only be read
	// once per position and returns ErrUnsupported when none is available.
	Payload() ([]byte, error)
	// IsPayloadAvailable reports whether the current position carries a payload
	// that has not been read yet.
	IsPayloadAvailable() bool
}

// TermEnum enumerates terms in Term.Compare order.
//
// A fresh TermEnum is unpositioned; Next moves it to the first term.
type TermEnum interface {
	Next() (bool, error)
	Term() Term
	DocFreq() int
}

// Reader is a read-only view of an inverted index.
type Reader interface {
	// MaxDoc is one greater than the largest document id, deletions included.
	MaxDoc() int
	// NumDocs is the number of live (non-deleted) documents.
	NumDocs() int
	// DocFreq is the number of documents containing t.
	DocFreq(t Term) (int, error)
	// TermDocs returns the postings of t. Deleted documents are skipped.
	TermDocs(t Term) (TermDocs, error)
	// TermPositions returns the positional postings of t. Deleted documents are skipped.
	TermPositions(t Term) (TermPositions, error)
	// Terms returns an enumeration starting at the first term >= from.
	Terms(from Term) (TermEnum, error)
	// Norms returns one encoded norm byte per document, or nil when the field
	// has no norms.
	Norms(field string) ([]byte, error)
	// Document loads the stored fields of document n.
	Document(n int) (*Document, error)
	// IsDeleted reports whether document n is deleted.
	IsDeleted(n int) bool
	// HasDeletions reports whether any document is deleted.
	HasDeletions() bool
	// CoreKey identifies the reader's immutable core for cache keys.
	CoreKey() any
}

// CompositeReader is a Reader made of other readers.
type CompositeReader interface {
	Reader
	SubReaders() []Reader
}

// GatherSubReaders flattens r into its leaf readers, in doc id order.
func GatherSubReaders(r Reader) []Reader {
	var leaves []Reader
	gather(&leaves, r)
	return leaves
}

func gather(dst *[]Reader, r Reader) {
	c, ok := r.(CompositeReader)
	if !ok {
		*dst = append(*dst, r)
		return
	}
	for _, sub := range c.SubReaders() {
		gather(dst, sub)
	}
}

// DocStarts returns the first global doc id of each reader.
func DocStarts(readers []Reader) []int {
	starts := make([]int, len(readers))
	maxDoc := 0
	for i, r := range readers {
		starts[i] = maxDoc
		maxDoc += r.MaxDoc()
	}
	return starts
}

// SubIndex returns the index of the reader containing global doc n, given the
// starts computed by DocStarts. Empty readers never own a document.
func SubIndex(n int, starts []int) int {
	lo, hi := 0, len(starts)-1
	for hi >= lo {
		mid := int(uint(lo+hi) >> 1)
		v := starts[mid]
		switch {
		case n < v:
			hi = mid - 1
		case n > v:
			lo = mid + 1
		default:
			// skip over empty readers sharing the same start
			for mid+1 < len(starts) && starts[mid+1] == v {
				mid++
			}
			return mid
		}
	}
	return hi
}

// AllDocs returns a TermDocs over every live document of r, each with freq 1.
func AllDocs(r Reader) TermDocs {
	return &allTermDocs{r: r, maxDoc: r.MaxDoc(), doc: -1}
}

type allTermDocs struct {
	r      Reader
	maxDoc int
	doc    int
}

func (a *allTermDocs) Doc() int  { return a.doc }
func (a *allTermDocs) Freq() int { return 1 }

func (a *allTermDocs) Next() (bool, error) {
	return a.SkipTo(a.doc + 1)
}

func (a *allTermDocs) SkipTo(target int) (bool, error) {
	for doc := max(target, a.doc+1); doc < a.maxDoc; doc++ {
		if !a.r.IsDeleted(doc) {
			a.doc = doc
			return true, nil
		}
	}
	a.doc = a.maxDoc
	return false, nil
}
