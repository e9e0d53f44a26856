package search

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/internal/cache"
	"github.com/hupe1980/lexis/internal/docset"
)

// DocIDSet is the set of documents a filter accepts in one segment.
type DocIDSet interface {
	// Iterator returns a fresh iterator over the set.
	Iterator() (DocIDSetIterator, error)
	// IsCacheable reports whether the set may be kept across searches
	// without copying it.
	IsCacheable() bool
}

// Filter restricts a search to a set of documents without scoring them.
type Filter interface {
	// DocIDSet returns the accepted segment-local documents of r, or nil
	// when none are accepted.
	DocIDSet(r index.Reader) (DocIDSet, error)
	Equal(other Filter) bool
	Hash() uint64
	String() string
}

// BitmapDocIDSet is a cacheable DocIDSet backed by a roaring bitmap.
type BitmapDocIDSet struct {
	bm *docset.Bitmap
}

// NewBitmapDocIDSet wraps bm.
func NewBitmapDocIDSet(bm *docset.Bitmap) *BitmapDocIDSet {
	return &BitmapDocIDSet{bm: bm}
}

// Bitmap returns the underlying bitmap.
func (s *BitmapDocIDSet) Bitmap() *docset.Bitmap { return s.bm }

func (s *BitmapDocIDSet) Iterator() (DocIDSetIterator, error) {
	return newBitmapIterator(s.bm), nil
}

func (s *BitmapDocIDSet) IsCacheable() bool { return true }

// iteratorDocIDSet produces iterators on demand; it is not cacheable.
type iteratorDocIDSet struct {
	fn func() (DocIDSetIterator, error)
}

func (s iteratorDocIDSet) Iterator() (DocIDSetIterator, error) { return s.fn() }
func (s iteratorDocIDSet) IsCacheable() bool                   { return false }

// filterIterator returns an iterator over f's set in r, or nil when empty.
func filterIterator(f Filter, r index.Reader) (DocIDSetIterator, error) {
	set, err := f.DocIDSet(r)
	if err != nil || set == nil {
		return nil, err
	}
	return set.Iterator()
}

// DocIDFilter accepts a fixed set of segment-local doc ids.
type DocIDFilter struct {
	docs *docset.Bitmap
}

// NewDocIDFilter returns a filter accepting docs.
func NewDocIDFilter(docs ...int) (*DocIDFilter, error) {
	for _, d := range docs {
		if d < 0 {
			return nil, invalidArg("docs", "negative doc id %d", d)
		}
	}
	return &DocIDFilter{docs: docset.Of(docs...)}, nil
}

func (f *DocIDFilter) DocIDSet(r index.Reader) (DocIDSet, error) {
	bm := f.docs.Clone()
	bm.And(docset.Range(0, r.MaxDoc()))
	if r.HasDeletions() {
		for _, doc := range bm.ToSlice() {
			if r.IsDeleted(doc) {
				bm.Remove(doc)
			}
		}
	}
	return NewBitmapDocIDSet(bm), nil
}

func (f *DocIDFilter) Equal(other Filter) bool {
	o, ok := other.(*DocIDFilter)
	return ok && f.docs.Equals(o.docs)
}

func (f *DocIDFilter) Hash() uint64 {
	h := NewQueryHasher("docids")
	f.docs.ForEach(func(doc int) bool {
		h.Int(doc)
		return true
	})
	return h.Sum()
}

func (f *DocIDFilter) String() string {
	docs := f.docs.ToSlice()
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = strconv.Itoa(d)
	}
	return "DocIDFilter(" + strings.Join(parts, ",") + ")"
}

// TermsFilter accepts documents containing any of its terms.
type TermsFilter struct {
	terms []index.Term
}

// NewTermsFilter returns a filter over terms.
func NewTermsFilter(terms ...index.Term) *TermsFilter {
	ts := make(TermSet, len(terms))
	for _, t := range terms {
		ts.Add(t)
	}
	return &TermsFilter{terms: ts.Sorted()}
}

func (f *TermsFilter) DocIDSet(r index.Reader) (DocIDSet, error) {
	bm := docset.New()
	for _, t := range f.terms {
		td, err := r.TermDocs(t)
		if err != nil {
			return nil, err
		}
		for {
			ok, err := td.Next()
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			bm.Add(td.Doc())
		}
	}
	return NewBitmapDocIDSet(bm), nil
}

func (f *TermsFilter) Equal(other Filter) bool {
	o, ok := other.(*TermsFilter)
	return ok && slices.Equal(f.terms, o.terms)
}

func (f *TermsFilter) Hash() uint64 {
	h := NewQueryHasher("terms")
	for _, t := range f.terms {
		h.Term(t)
	}
	return h.Sum()
}

func (f *TermsFilter) String() string {
	parts := make([]string, len(f.terms))
	for i, t := range f.terms {
		parts[i] = t.String()
	}
	return "TermsFilter(" + strings.Join(parts, " ") + ")"
}

// QueryWrapperFilter accepts the documents a query matches.
type QueryWrapperFilter struct {
	q Query
}

// NewQueryWrapperFilter wraps q.
func NewQueryWrapperFilter(q Query) (*QueryWrapperFilter, error) {
	if q == nil {
		return nil, invalidArg("query", "must not be nil")
	}
	return &QueryWrapperFilter{q: q}, nil
}

// Query returns the wrapped query.
func (f *QueryWrapperFilter) Query() Query { return f.q }

func (f *QueryWrapperFilter) DocIDSet(r index.Reader) (DocIDSet, error) {
	w, err := CreateNormalizedWeight(f.q, NewIndexSearcher(r))
	if err != nil {
		return nil, err
	}
	return iteratorDocIDSet{fn: func() (DocIDSetIterator, error) {
		s, err := w.Scorer(r, true, false)
		if err != nil {
			return nil, err
		}
		return scorerOrEmpty(s), nil
	}}, nil
}

func (f *QueryWrapperFilter) Equal(other Filter) bool {
	o, ok := other.(*QueryWrapperFilter)
	return ok && f.q.Equal(o.q)
}

func (f *QueryWrapperFilter) Hash() uint64 {
	return NewQueryHasher("querywrapper").U64(f.q.Hash()).Sum()
}

func (f *QueryWrapperFilter) String() string {
	return "QueryWrapperFilter(" + f.q.String("") + ")"
}

type filterCacheKey struct {
	core any
	hash uint64
}

// CachingWrapperFilter caches the doc id sets of another filter per reader
// core. Non-cacheable sets are copied into bitmaps before caching.
type CachingWrapperFilter struct {
	f     Filter
	cache *cache.LRU[filterCacheKey, *BitmapDocIDSet]
}

// NewCachingWrapperFilter wraps f with a cache of at most capacity bytes
// (0 for unbounded).
func NewCachingWrapperFilter(f Filter, capacity int64) (*CachingWrapperFilter, error) {
	if f == nil {
		return nil, invalidArg("filter", "must not be nil")
	}
	return &CachingWrapperFilter{f: f, cache: cache.NewLRU[filterCacheKey, *BitmapDocIDSet](capacity, nil)}, nil
}

func (f *CachingWrapperFilter) DocIDSet(r index.Reader) (DocIDSet, error) {
	key := filterCacheKey{core: r.CoreKey(), hash: f.f.Hash()}
	return f.cache.GetOrCompute(key, func() (*BitmapDocIDSet, int64, error) {
		set, err := f.f.DocIDSet(r)
		if err != nil {
			return nil, 0, err
		}
		if bs, ok := set.(*BitmapDocIDSet); ok {
			return bs, bs.bm.SizeInBytes(), nil
		}
		bm := docset.New()
		if set != nil {
			it, err := set.Iterator()
			if err != nil {
				return nil, 0, err
			}
			if bm, err = collectDocs(it); err != nil {
				return nil, 0, err
			}
		}
		return NewBitmapDocIDSet(bm), bm.SizeInBytes(), nil
	})
}

// Purge drops the cached sets of r.
func (f *CachingWrapperFilter) Purge(r index.Reader) {
	core := r.CoreKey()
	f.cache.Invalidate(func(k filterCacheKey) bool { return k.core == core })
}

// Stats returns the cache hit and miss counts.
func (f *CachingWrapperFilter) Stats() (hits, misses int64) { return f.cache.Stats() }

func (f *CachingWrapperFilter) Equal(other Filter) bool {
	o, ok := other.(*CachingWrapperFilter)
	return ok && f.f.Equal(o.f)
}

func (f *CachingWrapperFilter) Hash() uint64 {
	return NewQueryHasher("caching").U64(f.f.Hash()).Sum()
}

func (f *CachingWrapperFilter) String() string {
	return fmt.Sprintf("CachingWrapperFilter(%s)", f.f)
}
