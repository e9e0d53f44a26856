package search

import (
	"context"
	"math"
	"sync"

	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/internal/queue"
)

// IndexSearcher searches one logical index, possibly made of several
// segments. Segment doc ids are offset by the segment's start.
type IndexSearcher struct {
	config
	reader index.Reader
	subs   []index.Reader
	starts []int
}

// NewIndexSearcher returns a searcher over r.
func NewIndexSearcher(r index.Reader, opts ...Option) *IndexSearcher {
	s := &IndexSearcher{
		config: newConfig(opts),
		reader: r,
		subs:   index.GatherSubReaders(r),
	}
	s.starts = index.DocStarts(s.subs)
	if s.fc == nil {
		s.fc = NewFieldCache(0, s.rc)
	}
	return s
}

// FieldCache returns the cache behind sorted searches.
func (s *IndexSearcher) FieldCache() *FieldCache { return s.fc }

// Close drops the field cache entries of the searched reader and its
// segments. The reader stays usable.
func (s *IndexSearcher) Close() error {
	s.fc.Purge(s.reader)
	for _, sub := range s.subs {
		s.fc.Purge(sub)
	}
	return nil
}

// Reader returns the searched index.
func (s *IndexSearcher) Reader() index.Reader { return s.reader }

// SubReaders returns the leaf segments in doc id order.
func (s *IndexSearcher) SubReaders() []index.Reader { return append([]index.Reader(nil), s.subs...) }

func (s *IndexSearcher) Similarity() Similarity { return s.sim }
func (s *IndexSearcher) MaxDoc() int            { return s.reader.MaxDoc() }

func (s *IndexSearcher) Doc(n int) (*index.Document, error) { return s.reader.Document(n) }

func (s *IndexSearcher) DocFreq(t index.Term) (int, error) { return s.reader.DocFreq(t) }

func (s *IndexSearcher) DocFreqs(terms []index.Term) ([]int, error) { return docFreqs(s, terms) }

func (s *IndexSearcher) Rewrite(q Query) (Query, error) { return rewriteFully(q, s.reader) }

// SearchWeight feeds every match to c, one segment after the other.
// An error returned by c, ErrCollectionTerminated included, stops the search
// and is returned.
func (s *IndexSearcher) SearchWeight(ctx context.Context, w Weight, filter Filter, c Collector) error {
	for i := range s.subs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.searchSegment(w, filter, c, i); err != nil {
			return err
		}
	}
	return nil
}

func (s *IndexSearcher) searchSegment(w Weight, filter Filter, c Collector, i int) error {
	sub := s.subs[i]
	if err := c.SetNextReader(sub, s.starts[i]); err != nil {
		return err
	}
	if filter != nil {
		return searchWithFilter(sub, w, filter, c)
	}
	sc, err := w.Scorer(sub, !c.AcceptsDocsOutOfOrder(), true)
	if err != nil || sc == nil {
		return err
	}
	return ScoreAll(sc, c)
}

// searchWithFilter intersects the scorer of w with the filter of r.
func searchWithFilter(r index.Reader, w Weight, filter Filter, c Collector) error {
	sc, err := w.Scorer(r, true, false)
	if err != nil || sc == nil {
		return err
	}
	fit, err := filterIterator(filter, r)
	if err != nil || fit == nil {
		return err
	}
	filterDoc, err := fit.NextDoc()
	if err != nil {
		return err
	}
	scorerDoc, err := sc.Advance(filterDoc)
	if err != nil {
		return err
	}
	if err := c.SetScorer(sc); err != nil {
		return err
	}
	for {
		switch {
		case scorerDoc == filterDoc:
			if scorerDoc == NoMoreDocs {
				return nil
			}
			if err := c.Collect(scorerDoc); err != nil {
				return err
			}
			if filterDoc, err = fit.NextDoc(); err != nil {
				return err
			}
			scorerDoc, err = sc.Advance(filterDoc)
		case scorerDoc > filterDoc:
			filterDoc, err = fit.Advance(scorerDoc)
		default:
			scorerDoc, err = sc.Advance(filterDoc)
		}
		if err != nil {
			return err
		}
	}
}

// hitLimit caps n at the index size, keeping at least one slot.
func (s *IndexSearcher) hitLimit(n int) int {
	return min(n, max(s.reader.MaxDoc(), 1))
}

// TopDocsWeight returns the n best hits.
func (s *IndexSearcher) TopDocsWeight(ctx context.Context, w Weight, filter Filter, n int) (*TopDocs, error) {
	if n <= 0 {
		return nil, invalidArg("n", "must be > 0, got %d", n)
	}
	n = s.hitLimit(n)
	if s.parallel && len(s.subs) > 1 {
		return s.parallelTopDocs(ctx, w, filter, n)
	}
	c, err := NewTopScoreDocCollector(n, !w.ScoresDocsOutOfOrder())
	if err != nil {
		return nil, err
	}
	if err := s.SearchWeight(ctx, w, filter, c); err != nil {
		return nil, err
	}
	s.logger.Debug("Search completed", "segments", len(s.subs), "hits", c.TotalHits())
	return c.TopDocs(), nil
}

func (s *IndexSearcher) parallelTopDocs(ctx context.Context, w Weight, filter Filter, n int) (*TopDocs, error) {
	var (
		mu       sync.Mutex
		hq       = newHitQueue(n)
		total    int
		maxScore = math.Inf(-1)
	)
	err := fanOut(ctx, s.rc, len(s.subs), func(_ context.Context, i int) error {
		c, err := NewTopScoreDocCollector(n, !w.ScoresDocsOutOfOrder())
		if err != nil {
			return err
		}
		if err := s.searchSegment(w, filter, c, i); err != nil {
			return err
		}
		td := c.TopDocs()

		mu.Lock()
		defer mu.Unlock()
		total += td.TotalHits
		if td.TotalHits > 0 {
			maxScore = max(maxScore, td.MaxScore)
		}
		for _, sd := range td.ScoreDocs {
			if !hq.PushBounded(sd, n) {
				break
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("Parallel search failed", "segments", len(s.subs), "error", err)
		return nil, err
	}
	s.logger.Debug("Parallel search completed", "segments", len(s.subs), "hits", total)
	if total == 0 {
		return emptyTopDocs(), nil
	}
	return &TopDocs{TotalHits: total, ScoreDocs: drainHits(hq), MaxScore: maxScore}, nil
}

func (s *IndexSearcher) newTopFieldCollector(sort *Sort, n int, w Weight) (*TopFieldCollector, error) {
	opts := []TopFieldOption{WithSortFieldCache(s.fc)}
	if s.fieldSortTrackScores {
		opts = append(opts, WithTrackScores())
	}
	if s.fieldSortTrackMaxScore {
		opts = append(opts, WithTrackMaxScore())
	}
	if w.ScoresDocsOutOfOrder() {
		opts = append(opts, WithOutOfOrder())
	}
	return NewTopFieldCollector(sort, n, opts...)
}

// TopFieldDocsWeight returns the first n hits in sort order.
func (s *IndexSearcher) TopFieldDocsWeight(ctx context.Context, w Weight, filter Filter, n int, sort *Sort) (*TopFieldDocs, error) {
	if n <= 0 {
		return nil, invalidArg("n", "must be > 0, got %d", n)
	}
	if sort == nil {
		return nil, invalidArg("sort", "must not be nil")
	}
	n = s.hitLimit(n)
	if s.parallel && len(s.subs) > 1 {
		return s.parallelTopFieldDocs(ctx, w, filter, n, sort)
	}
	c, err := s.newTopFieldCollector(sort, n, w)
	if err != nil {
		return nil, err
	}
	if err := s.SearchWeight(ctx, w, filter, c); err != nil {
		return nil, err
	}
	s.logger.Debug("Sorted search completed", "segments", len(s.subs), "sort", sort.String(), "hits", c.TotalHits())
	return c.TopFieldDocs(), nil
}

func (s *IndexSearcher) parallelTopFieldDocs(ctx context.Context, w Weight, filter Filter, n int, sort *Sort) (*TopFieldDocs, error) {
	merged := newFieldDocMerger(sort.Fields(), n)
	err := fanOut(ctx, s.rc, len(s.subs), func(_ context.Context, i int) error {
		c, err := s.newTopFieldCollector(sort, n, w)
		if err != nil {
			return err
		}
		if err := s.searchSegment(w, filter, c, i); err != nil {
			return err
		}
		merged.add(c.TopFieldDocs(), 0)
		return nil
	})
	if err != nil {
		s.logger.Warn("Parallel sorted search failed", "segments", len(s.subs), "error", err)
		return nil, err
	}
	return merged.result(), nil
}

// ExplainWeight explains global doc id doc.
func (s *IndexSearcher) ExplainWeight(w Weight, doc int) (*Explanation, error) {
	if doc < 0 || doc >= s.reader.MaxDoc() {
		return nil, invalidArg("doc", "%d out of range [0, %d)", doc, s.reader.MaxDoc())
	}
	i := index.SubIndex(doc, s.starts)
	return w.Explain(s.subs[i], doc-s.starts[i])
}

// Search returns the n best hits of q restricted by filter, which may be nil.
func (s *IndexSearcher) Search(ctx context.Context, q Query, filter Filter, n int) (*TopDocs, error) {
	return searchTopDocs(ctx, s, q, filter, n)
}

// SearchCollector feeds every hit of q restricted by filter to c.
func (s *IndexSearcher) SearchCollector(ctx context.Context, q Query, filter Filter, c Collector) error {
	return searchCollector(ctx, s, q, filter, c)
}

// SearchSorted returns the first n hits of q in sort order.
func (s *IndexSearcher) SearchSorted(ctx context.Context, q Query, filter Filter, n int, sort *Sort) (*TopFieldDocs, error) {
	return searchSorted(ctx, s, q, filter, n, sort)
}

// Explain describes how global doc id doc scores against q.
func (s *IndexSearcher) Explain(q Query, doc int) (*Explanation, error) {
	return explain(s, q, doc)
}

func searchTopDocs(ctx context.Context, s Searcher, q Query, filter Filter, n int) (*TopDocs, error) {
	w, err := CreateNormalizedWeight(q, s)
	if err != nil {
		return nil, err
	}
	return s.TopDocsWeight(ctx, w, filter, n)
}

func searchCollector(ctx context.Context, s Searcher, q Query, filter Filter, c Collector) error {
	w, err := CreateNormalizedWeight(q, s)
	if err != nil {
		return err
	}
	return s.SearchWeight(ctx, w, filter, c)
}

func searchSorted(ctx context.Context, s Searcher, q Query, filter Filter, n int, sort *Sort) (*TopFieldDocs, error) {
	w, err := CreateNormalizedWeight(q, s)
	if err != nil {
		return nil, err
	}
	return s.TopFieldDocsWeight(ctx, w, filter, n, sort)
}

func explain(s Searcher, q Query, doc int) (*Explanation, error) {
	w, err := CreateNormalizedWeight(q, s)
	if err != nil {
		return nil, err
	}
	return s.ExplainWeight(w, doc)
}

// fieldDocMerger merges sorted hits from several searches under a lock.
type fieldDocMerger struct {
	mu       sync.Mutex
	fields   []SortField
	n        int
	pq       *queue.PriorityQueue[FieldDoc]
	total    int
	maxScore float64
}

func newFieldDocMerger(fields []SortField, n int) *fieldDocMerger {
	return &fieldDocMerger{
		fields:   fields,
		n:        n,
		pq:       queue.New(n, fieldDocLess(fields)),
		maxScore: math.NaN(),
	}
}

// add merges docs whose ids are offset by start. SortDoc values are
// offset too.
func (m *fieldDocMerger) add(docs *TopFieldDocs, start int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total += docs.TotalHits
	if !math.IsNaN(docs.MaxScore) && (math.IsNaN(m.maxScore) || docs.MaxScore > m.maxScore) {
		m.maxScore = docs.MaxScore
	}
	for _, fd := range docs.FieldDocs {
		fd.Doc += start
		if start != 0 {
			fields := append([]any(nil), fd.Fields...)
			for i, f := range m.fields {
				if f.Type == SortDoc {
					fields[i] = fields[i].(int) + start
				}
			}
			fd.Fields = fields
		}
		if !m.pq.PushBounded(fd, m.n) {
			break
		}
	}
}

func (m *fieldDocMerger) result() *TopFieldDocs {
	m.mu.Lock()
	defer m.mu.Unlock()
	hits := m.pq.Drain()
	docs := make([]FieldDoc, len(hits))
	for i, h := range hits {
		docs[len(hits)-1-i] = h
	}
	return &TopFieldDocs{TotalHits: m.total, FieldDocs: docs, SortFields: m.fields, MaxScore: m.maxScore}
}
