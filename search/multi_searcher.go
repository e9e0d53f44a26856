package search

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/hupe1980/lexis/index"
)

// MultiSearcher searches several independent Searchables as one index.
// Term statistics are aggregated across all of them before weighting, so
// scores match those of a single index holding every document.
type MultiSearcher struct {
	config
	searchables []Searchable
	starts      []int
	maxDoc      int
	// reader merges the readers of all searchables; nil when one of them
	// does not expose a reader.
	reader index.Reader
}

// readerSearchable is a Searchable backed by one logical index.
type readerSearchable interface {
	Reader() index.Reader
}

// NewMultiSearcher returns a searcher over searchables, whose doc ids are
// concatenated in order.
func NewMultiSearcher(searchables []Searchable, opts ...Option) (*MultiSearcher, error) {
	if len(searchables) == 0 {
		return nil, invalidArg("searchables", "need at least one searchable")
	}
	ms := &MultiSearcher{
		config:      newConfig(opts),
		searchables: append([]Searchable(nil), searchables...),
		starts:      make([]int, len(searchables)),
	}
	for i, s := range searchables {
		if s == nil {
			return nil, invalidArg("searchables", "searchable %d is nil", i)
		}
		ms.starts[i] = ms.maxDoc
		ms.maxDoc += s.MaxDoc()
	}
	ms.reader = mergedReader(ms.searchables)
	return ms, nil
}

func mergedReader(searchables []Searchable) index.Reader {
	readers := make([]index.Reader, 0, len(searchables))
	for _, s := range searchables {
		rs, ok := s.(readerSearchable)
		if !ok {
			return nil
		}
		r := rs.Reader()
		if r == nil {
			return nil
		}
		readers = append(readers, r)
	}
	if len(readers) == 1 {
		return readers[0]
	}
	return index.NewMultiReader(readers...)
}

// Reader returns a reader over the documents of every sub-searcher, in
// global doc id order, or nil when a sub-searcher exposes no reader.
func (ms *MultiSearcher) Reader() index.Reader { return ms.reader }

// Searchables returns the sub-searchers.
func (ms *MultiSearcher) Searchables() []Searchable {
	return append([]Searchable(nil), ms.searchables...)
}

// Starts returns the first global doc id of each sub-searcher.
func (ms *MultiSearcher) Starts() []int { return append([]int(nil), ms.starts...) }

// SubSearcher returns the index of the sub-searcher holding global doc n.
func (ms *MultiSearcher) SubSearcher(n int) int { return index.SubIndex(n, ms.starts) }

// SubDoc returns the doc id of global doc n within its sub-searcher.
func (ms *MultiSearcher) SubDoc(n int) int { return n - ms.starts[ms.SubSearcher(n)] }

func (ms *MultiSearcher) Similarity() Similarity { return ms.sim }
func (ms *MultiSearcher) MaxDoc() int            { return ms.maxDoc }

func (ms *MultiSearcher) Doc(n int) (*index.Document, error) {
	if n < 0 || n >= ms.maxDoc {
		return nil, fmt.Errorf("document %d: %w", n, index.ErrDocOutOfRange)
	}
	i := ms.SubSearcher(n)
	return ms.searchables[i].Doc(n - ms.starts[i])
}

func (ms *MultiSearcher) DocFreq(t index.Term) (int, error) {
	total := 0
	for _, s := range ms.searchables {
		df, err := s.DocFreq(t)
		if err != nil {
			return 0, err
		}
		total += df
	}
	return total, nil
}

func (ms *MultiSearcher) DocFreqs(terms []index.Term) ([]int, error) {
	total := make([]int, len(terms))
	for _, s := range ms.searchables {
		dfs, err := s.DocFreqs(terms)
		if err != nil {
			return nil, err
		}
		for i, df := range dfs {
			total[i] += df
		}
	}
	return total, nil
}

// Rewrite rewrites q once against the merged term dictionary of all
// sub-searchers, so every shard scores the same expansion a single index
// would produce. Without a merged reader, q is rewritten on every
// sub-searcher and the results are combined.
func (ms *MultiSearcher) Rewrite(q Query) (Query, error) {
	if ms.reader != nil {
		return rewriteFully(q, ms.reader)
	}
	queries := make([]Query, len(ms.searchables))
	for i, s := range ms.searchables {
		rewritten, err := s.Rewrite(q)
		if err != nil {
			return nil, err
		}
		queries[i] = rewritten
	}
	return Combine(queries...), nil
}

// CreateWeight rewrites q, aggregates the document frequencies of its
// terms over all sub-searchers and returns a weight normalized against
// those global statistics.
func (ms *MultiSearcher) CreateWeight(q Query) (Weight, error) {
	rewritten, err := ms.Rewrite(q)
	if err != nil {
		return nil, err
	}
	terms := make(TermSet)
	if err := rewritten.ExtractTerms(terms); err != nil {
		return nil, fmt.Errorf("extract terms of %s: %w", rewritten.String(""), err)
	}
	all := terms.Sorted()
	dfs, err := ms.DocFreqs(all)
	if err != nil {
		return nil, err
	}
	dfMap := make(map[index.Term]int, len(all))
	for i, t := range all {
		dfMap[t] = dfs[i]
	}
	ms.logger.Debug("Aggregated document frequencies", "terms", len(all), "searchables", len(ms.searchables))
	src := &cachedDFSource{dfs: dfMap, maxDoc: ms.maxDoc, sim: ms.sim}
	return CreateNormalizedWeight(rewritten, src)
}

// SearchWeight feeds every hit to c with global doc ids.
func (ms *MultiSearcher) SearchWeight(ctx context.Context, w Weight, filter Filter, c Collector) error {
	for i, s := range ms.searchables {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.SearchWeight(ctx, w, filter, &offsetCollector{Collector: c, start: ms.starts[i]}); err != nil {
			return err
		}
	}
	return nil
}

// TopDocsWeight returns the n best hits over all sub-searchers.
func (ms *MultiSearcher) TopDocsWeight(ctx context.Context, w Weight, filter Filter, n int) (*TopDocs, error) {
	if n <= 0 {
		return nil, invalidArg("n", "must be > 0, got %d", n)
	}
	var (
		mu       sync.Mutex
		hq       = newHitQueue(n)
		total    int
		maxScore = math.Inf(-1)
	)
	task := func(ctx context.Context, i int) error {
		td, err := ms.searchables[i].TopDocsWeight(ctx, w, filter, n)
		if err != nil {
			ms.logger.Warn("Sub-search failed", "searchable", i, "error", err)
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		total += td.TotalHits
		if td.TotalHits > 0 {
			maxScore = max(maxScore, td.MaxScore)
		}
		for _, sd := range td.ScoreDocs {
			sd.Doc += ms.starts[i]
			if !hq.PushBounded(sd, n) {
				break
			}
		}
		return nil
	}
	if err := ms.dispatch(ctx, task); err != nil {
		return nil, err
	}
	ms.logger.Debug("Multi search completed", "searchables", len(ms.searchables), "parallel", ms.parallel, "hits", total)
	if total == 0 {
		return emptyTopDocs(), nil
	}
	return &TopDocs{TotalHits: total, ScoreDocs: drainHits(hq), MaxScore: maxScore}, nil
}

// TopFieldDocsWeight returns the first n hits in sort order over all
// sub-searchers. SortDoc values are translated to global doc ids.
func (ms *MultiSearcher) TopFieldDocsWeight(ctx context.Context, w Weight, filter Filter, n int, sort *Sort) (*TopFieldDocs, error) {
	if n <= 0 {
		return nil, invalidArg("n", "must be > 0, got %d", n)
	}
	if sort == nil {
		return nil, invalidArg("sort", "must not be nil")
	}
	merged := newFieldDocMerger(sort.Fields(), n)
	task := func(ctx context.Context, i int) error {
		docs, err := ms.searchables[i].TopFieldDocsWeight(ctx, w, filter, n, sort)
		if err != nil {
			ms.logger.Warn("Sorted sub-search failed", "searchable", i, "error", err)
			return err
		}
		merged.add(docs, ms.starts[i])
		return nil
	}
	if err := ms.dispatch(ctx, task); err != nil {
		return nil, err
	}
	return merged.result(), nil
}

// dispatch runs task for every sub-searcher, in order or concurrently.
func (ms *MultiSearcher) dispatch(ctx context.Context, task func(ctx context.Context, i int) error) error {
	if ms.parallel {
		return fanOut(ctx, ms.rc, len(ms.searchables), task)
	}
	for i := range ms.searchables {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := task(ctx, i); err != nil {
			return err
		}
	}
	return nil
}

// ExplainWeight explains global doc id doc.
func (ms *MultiSearcher) ExplainWeight(w Weight, doc int) (*Explanation, error) {
	if doc < 0 || doc >= ms.maxDoc {
		return nil, invalidArg("doc", "%d out of range [0, %d)", doc, ms.maxDoc)
	}
	i := ms.SubSearcher(doc)
	return ms.searchables[i].ExplainWeight(w, doc-ms.starts[i])
}

// Search returns the n best hits of q restricted by filter, which may be nil.
func (ms *MultiSearcher) Search(ctx context.Context, q Query, filter Filter, n int) (*TopDocs, error) {
	w, err := ms.CreateWeight(q)
	if err != nil {
		return nil, err
	}
	return ms.TopDocsWeight(ctx, w, filter, n)
}

// SearchCollector feeds every hit of q restricted by filter to c.
func (ms *MultiSearcher) SearchCollector(ctx context.Context, q Query, filter Filter, c Collector) error {
	w, err := ms.CreateWeight(q)
	if err != nil {
		return err
	}
	return ms.SearchWeight(ctx, w, filter, c)
}

// SearchSorted returns the first n hits of q in sort order.
func (ms *MultiSearcher) SearchSorted(ctx context.Context, q Query, filter Filter, n int, sort *Sort) (*TopFieldDocs, error) {
	w, err := ms.CreateWeight(q)
	if err != nil {
		return nil, err
	}
	return ms.TopFieldDocsWeight(ctx, w, filter, n, sort)
}

// Explain describes how global doc id doc scores against q.
func (ms *MultiSearcher) Explain(q Query, doc int) (*Explanation, error) {
	w, err := ms.CreateWeight(q)
	if err != nil {
		return nil, err
	}
	return ms.ExplainWeight(w, doc)
}

// offsetCollector shifts the doc bases reported to a collector by the
// start of a sub-searcher.
type offsetCollector struct {
	Collector
	start int
}

func (c *offsetCollector) SetNextReader(r index.Reader, docBase int) error {
	return c.Collector.SetNextReader(r, c.start+docBase)
}

// cachedDFSource is the Searcher weights are created against in a
// MultiSearcher: it answers document frequencies from the aggregated
// statistics and supports nothing else.
type cachedDFSource struct {
	dfs    map[index.Term]int
	maxDoc int
	sim    Similarity
}

func (s *cachedDFSource) Similarity() Similarity { return s.sim }
func (s *cachedDFSource) MaxDoc() int            { return s.maxDoc }

func (s *cachedDFSource) DocFreq(t index.Term) (int, error) {
	df, ok := s.dfs[t]
	if !ok {
		return 0, invalidArg("term", "document frequency for %s not available", t)
	}
	return df, nil
}

func (s *cachedDFSource) DocFreqs(terms []index.Term) ([]int, error) { return docFreqs(s, terms) }

// Rewrite returns q: queries reach the source already rewritten.
func (s *cachedDFSource) Rewrite(q Query) (Query, error) { return q, nil }

func (s *cachedDFSource) SearchWeight(context.Context, Weight, Filter, Collector) error {
	return ErrUnsupported
}

func (s *cachedDFSource) TopDocsWeight(context.Context, Weight, Filter, int) (*TopDocs, error) {
	return nil, ErrUnsupported
}

func (s *cachedDFSource) TopFieldDocsWeight(context.Context, Weight, Filter, int, *Sort) (*TopFieldDocs, error) {
	return nil, ErrUnsupported
}

func (s *cachedDFSource) ExplainWeight(Weight, int) (*Explanation, error) { return nil, ErrUnsupported }

func (s *cachedDFSource) Doc(int) (*index.Document, error) { return nil, ErrUnsupported }
