package lexis

import (
	"context"
	"errors"
	"iter"

	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/search"
)

// Hit is one search result.
type Hit struct {
	Doc   int
	Score float64
	// Fields holds the sort values of a sorted search, nil otherwise.
	Fields []any
	// Document holds the stored fields when requested with WithDocuments.
	Document *index.Document
}

// Search creates a new fluent search builder for q.
//
// Example:
//
//	hits, err := s.Search(q).
//	    Top(10).
//	    Filter(f).
//	    Execute(ctx)
//
//	// Or with streaming, in index order:
//	for hit, err := range s.Search(q).Stream(ctx) {
//	    if err != nil { break }
//	    process(hit)
//	}
func (s *Searcher) Search(q search.Query) *SearchBuilder {
	return &SearchBuilder{s: s, q: q, n: 10}
}

// SearchBuilder is a fluent builder for a single search.
type SearchBuilder struct {
	s      *Searcher
	q      search.Query
	filter search.Filter
	sort   *search.Sort
	n      int
	docs   bool
}

// Top sets the number of hits to return.
func (sb *SearchBuilder) Top(n int) *SearchBuilder {
	sb.n = n
	return sb
}

// Filter restricts the search to documents accepted by f.
func (sb *SearchBuilder) Filter(f search.Filter) *SearchBuilder {
	sb.filter = f
	return sb
}

// SortBy orders hits by sort instead of by score.
func (sb *SearchBuilder) SortBy(sort *search.Sort) *SearchBuilder {
	sb.sort = sort
	return sb
}

// WithDocuments loads the stored fields of every returned hit.
func (sb *SearchBuilder) WithDocuments() *SearchBuilder {
	sb.docs = true
	return sb
}

// Execute runs the search and returns the hits, best first.
func (sb *SearchBuilder) Execute(ctx context.Context) ([]Hit, error) {
	var hits []Hit
	if sb.sort != nil {
		td, err := sb.s.TopFieldDocs(ctx, sb.q, sb.filter, sb.n, sb.sort)
		if err != nil {
			return nil, err
		}
		hits = make([]Hit, len(td.FieldDocs))
		for i, fd := range td.FieldDocs {
			hits[i] = Hit{Doc: fd.Doc, Score: fd.Score, Fields: fd.Fields}
		}
	} else {
		td, err := sb.s.TopDocs(ctx, sb.q, sb.filter, sb.n)
		if err != nil {
			return nil, err
		}
		hits = make([]Hit, len(td.ScoreDocs))
		for i, sd := range td.ScoreDocs {
			hits[i] = Hit{Doc: sd.Doc, Score: sd.Score}
		}
	}
	if sb.docs {
		for i := range hits {
			d, err := sb.s.Doc(hits[i].Doc)
			if err != nil {
				return nil, err
			}
			hits[i].Document = d
		}
	}
	return hits, nil
}

// MustExecute runs the search, panicking on error.
// Use this only in tests or when you're certain the query is valid.
func (sb *SearchBuilder) MustExecute(ctx context.Context) []Hit {
	hits, err := sb.Execute(ctx)
	if err != nil {
		panic(err)
	}
	return hits
}

// Stream returns an iterator over every hit in increasing doc id order,
// without ranking. Top and SortBy are ignored. Breaking from the loop stops
// the search.
func (sb *SearchBuilder) Stream(ctx context.Context) iter.Seq2[Hit, error] {
	return func(yield func(Hit, error) bool) {
		stopped := false
		c := &streamCollector{fn: func(doc int, score float64) error {
			hit := Hit{Doc: doc, Score: score}
			if sb.docs {
				d, err := sb.s.Doc(doc)
				if err != nil {
					return err
				}
				hit.Document = d
			}
			if !yield(hit, nil) {
				stopped = true
				return search.ErrCollectionTerminated
			}
			return nil
		}}
		err := sb.s.Collect(ctx, sb.q, sb.filter, c)
		if err != nil && !stopped {
			yield(Hit{}, err)
		}
	}
}

// First returns the best hit, or false if nothing matched.
func (sb *SearchBuilder) First(ctx context.Context) (Hit, bool, error) {
	sb.n = 1
	hits, err := sb.Execute(ctx)
	if err != nil || len(hits) == 0 {
		return Hit{}, false, err
	}
	return hits[0], true, nil
}

// Count returns the number of matching documents without scoring them.
func (sb *SearchBuilder) Count(ctx context.Context) (int, error) {
	c := search.NewTotalHitCountCollector()
	if err := sb.s.Collect(ctx, sb.q, sb.filter, c); err != nil {
		return 0, err
	}
	return c.TotalHits(), nil
}

// Exists reports whether at least one document matches.
func (sb *SearchBuilder) Exists(ctx context.Context) (bool, error) {
	found := false
	err := sb.s.Collect(ctx, sb.q, sb.filter, search.CollectorFunc(func(int, float64) error {
		found = true
		return search.ErrCollectionTerminated
	}))
	if err != nil && !errors.Is(err, search.ErrCollectionTerminated) {
		return false, err
	}
	return found, nil
}

// streamCollector delivers global doc ids in order.
type streamCollector struct {
	fn      func(doc int, score float64) error
	scorer  search.Scorer
	docBase int
}

func (c *streamCollector) SetScorer(s search.Scorer) error { c.scorer = s; return nil }
func (c *streamCollector) AcceptsDocsOutOfOrder() bool     { return false }

func (c *streamCollector) SetNextReader(_ index.Reader, docBase int) error {
	c.docBase = docBase
	return nil
}

func (c *streamCollector) Collect(doc int) error {
	return c.fn(c.docBase+doc, c.scorer.Score())
}
