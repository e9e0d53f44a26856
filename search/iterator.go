package search

import (
	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/internal/docset"
)

// NoMoreDocs is returned by an exhausted iterator.
const NoMoreDocs = index.NoMoreDocs

// DocIDSetIterator is a forward-only cursor over increasing doc ids.
type DocIDSetIterator interface {
	// DocID returns -1 before the first move, NoMoreDocs once exhausted and
	// the current document otherwise.
	DocID() int
	// NextDoc moves to the next document.
	NextDoc() (int, error)
	// Advance moves to the first document >= target. Target must be greater
	// than the current document. Advancing an exhausted iterator returns
	// NoMoreDocs.
	Advance(target int) (int, error)
}

// CheckAdvance panics with ErrIteratorMisuse when target does not move an
// iterator positioned on current forward.
func CheckAdvance(current, target int) {
	if current >= 0 && current != NoMoreDocs && target <= current {
		misuse("advance(%d) from doc %d", target, current)
	}
}

// CheckPositioned panics with ErrIteratorMisuse when a scorer is asked for a
// score while not positioned on a document.
func CheckPositioned(doc int) {
	if doc < 0 || doc == NoMoreDocs {
		misuse("score requested at doc %d", doc)
	}
}

// emptyIterator matches nothing.
type emptyIterator struct {
	doc int
}

func newEmptyIterator() *emptyIterator { return &emptyIterator{doc: -1} }

func (e *emptyIterator) DocID() int { return e.doc }

func (e *emptyIterator) NextDoc() (int, error) {
	e.doc = NoMoreDocs
	return NoMoreDocs, nil
}

func (e *emptyIterator) Advance(int) (int, error) {
	e.doc = NoMoreDocs
	return NoMoreDocs, nil
}

// termDocsIterator adapts index.TermDocs to DocIDSetIterator.
type termDocsIterator struct {
	td  index.TermDocs
	doc int
}

func newTermDocsIterator(td index.TermDocs) *termDocsIterator {
	return &termDocsIterator{td: td, doc: -1}
}

func (it *termDocsIterator) DocID() int { return it.doc }

func (it *termDocsIterator) NextDoc() (int, error) {
	if it.doc == NoMoreDocs {
		return NoMoreDocs, nil
	}
	ok, err := it.td.Next()
	return it.settle(ok, err)
}

func (it *termDocsIterator) Advance(target int) (int, error) {
	CheckAdvance(it.doc, target)
	if it.doc == NoMoreDocs {
		return NoMoreDocs, nil
	}
	ok, err := it.td.SkipTo(target)
	return it.settle(ok, err)
}

func (it *termDocsIterator) settle(ok bool, err error) (int, error) {
	if err != nil {
		return it.doc, err
	}
	if !ok {
		it.doc = NoMoreDocs
	} else {
		it.doc = it.td.Doc()
	}
	return it.doc, nil
}

// bitmapIterator iterates a docset.Bitmap.
type bitmapIterator struct {
	c *docset.Cursor
}

func newBitmapIterator(b *docset.Bitmap) *bitmapIterator {
	return &bitmapIterator{c: b.Cursor()}
}

func (it *bitmapIterator) DocID() int { return it.c.DocID() }

func (it *bitmapIterator) NextDoc() (int, error) { return it.c.NextDoc() }

func (it *bitmapIterator) Advance(target int) (int, error) {
	CheckAdvance(it.c.DocID(), target)
	return it.c.Advance(target)
}

// collectDocs drains an iterator into a bitmap.
func collectDocs(it DocIDSetIterator) (*docset.Bitmap, error) {
	b := docset.New()
	for {
		doc, err := it.NextDoc()
		if err != nil {
			return nil, err
		}
		if doc == NoMoreDocs {
			return b, nil
		}
		b.Add(doc)
	}
}
