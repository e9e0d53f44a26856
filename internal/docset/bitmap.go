package docset

import (
	"iter"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
)

// NoMoreDocs mirrors index.NoMoreDocs without importing it.
const NoMoreDocs = math.MaxInt32

// Bitmap is a set of document ids.
type Bitmap struct {
	rb *roaring.Bitmap
}

// New returns an empty set.
func New() *Bitmap {
	return &Bitmap{rb: roaring.New()}
}

// Of returns a set holding docs.
func Of(docs ...int) *Bitmap {
	b := New()
	for _, d := range docs {
		b.Add(d)
	}
	return b
}

// Range returns the set [start, end).
func Range(start, end int) *Bitmap {
	b := New()
	if end > start {
		b.rb.AddRange(uint64(start), uint64(end))
	}
	return b
}

// Add inserts doc. Negative ids are ignored.
func (b *Bitmap) Add(doc int) {
	if doc < 0 {
		return
	}
	b.rb.Add(uint32(doc))
}

// Remove deletes doc.
func (b *Bitmap) Remove(doc int) {
	if doc < 0 {
		return
	}
	b.rb.Remove(uint32(doc))
}

// Contains reports whether doc is in the set.
func (b *Bitmap) Contains(doc int) bool {
	if b == nil || doc < 0 {
		return false
	}
	return b.rb.Contains(uint32(doc))
}

// IsEmpty reports whether the set is empty.
func (b *Bitmap) IsEmpty() bool {
	return b == nil || b.rb.IsEmpty()
}

// Cardinality returns the number of ids in the set.
func (b *Bitmap) Cardinality() int {
	if b == nil {
		return 0
	}
	return int(b.rb.GetCardinality())
}

// Clone returns a deep copy.
func (b *Bitmap) Clone() *Bitmap {
	return &Bitmap{rb: b.rb.Clone()}
}

// And keeps only ids also in other.
func (b *Bitmap) And(other *Bitmap) {
	b.rb.And(other.rb)
}

// Or adds all ids of other.
func (b *Bitmap) Or(other *Bitmap) {
	b.rb.Or(other.rb)
}

// AndNot removes all ids of other.
func (b *Bitmap) AndNot(other *Bitmap) {
	b.rb.AndNot(other.rb)
}

// Equals reports whether both sets hold the same ids.
func (b *Bitmap) Equals(other *Bitmap) bool {
	return b.rb.Equals(other.rb)
}

// SizeInBytes estimates the memory held by the set.
func (b *Bitmap) SizeInBytes() int64 {
	return int64(b.rb.GetSizeInBytes())
}

// ForEach calls fn for each id in increasing order until fn returns false.
func (b *Bitmap) ForEach(fn func(doc int) bool) {
	it := b.rb.Iterator()
	for it.HasNext() {
		if !fn(int(it.Next())) {
			return
		}
	}
}

// All returns an iterator over the ids in increasing order.
func (b *Bitmap) All() iter.Seq[int] {
	return func(yield func(int) bool) {
		b.ForEach(yield)
	}
}

// ToSlice returns the ids in increasing order.
func (b *Bitmap) ToSlice() []int {
	out := make([]int, 0, b.Cardinality())
	b.ForEach(func(doc int) bool {
		out = append(out, doc)
		return true
	})
	return out
}

// Cursor returns a forward iterator over the set.
func (b *Bitmap) Cursor() *Cursor {
	return &Cursor{it: b.rb.Iterator(), doc: -1}
}

// Cursor iterates a Bitmap in increasing id order.
type Cursor struct {
	it  roaring.IntPeekable
	doc int
}

// DocID returns the current id, -1 before the first move.
func (c *Cursor) DocID() int { return c.doc }

// NextDoc moves to the next id.
func (c *Cursor) NextDoc() (int, error) {
	if c.doc == NoMoreDocs {
		return NoMoreDocs, nil
	}
	if !c.it.HasNext() {
		c.doc = NoMoreDocs
		return c.doc, nil
	}
	c.doc = int(c.it.Next())
	return c.doc, nil
}

// Advance moves to the first id >= target.
func (c *Cursor) Advance(target int) (int, error) {
	if c.doc == NoMoreDocs {
		return NoMoreDocs, nil
	}
	if target > 0 {
		c.it.AdvanceIfNeeded(uint32(min(target, math.MaxUint32)))
	}
	return c.NextDoc()
}
