package lexis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/hupe1980/lexis/codec"
	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/internal/resource"
	"github.com/hupe1980/lexis/querydsl"
	"github.com/hupe1980/lexis/search"
)

// engine is what both search.IndexSearcher and search.MultiSearcher offer.
type engine interface {
	search.Searcher
	Search(ctx context.Context, q search.Query, filter search.Filter, n int) (*search.TopDocs, error)
	SearchCollector(ctx context.Context, q search.Query, filter search.Filter, c search.Collector) error
	SearchSorted(ctx context.Context, q search.Query, filter search.Filter, n int, sort *search.Sort) (*search.TopFieldDocs, error)
	Explain(q search.Query, doc int) (*search.Explanation, error)
}

// Searcher evaluates queries over one or more index readers.
//
// A single reader is searched by a search.IndexSearcher. Several readers are
// treated as shards of one logical index: a search.MultiSearcher
// concatenates their doc ids and aggregates document frequencies so scores
// equal those of a single index holding every document.
//
// Searcher is safe for concurrent use.
type Searcher struct {
	engine   engine
	readers  []index.Reader
	segments int

	rc      *resource.Controller
	fc      *search.FieldCache
	builder *querydsl.Builder

	metrics MetricsCollector
	logger  *Logger
	closed  atomic.Bool
}

// New returns a Searcher over readers.
func New(readers []index.Reader, optFns ...Option) (*Searcher, error) {
	if len(readers) == 0 {
		return nil, fmt.Errorf("%w: need at least one reader", ErrInvalidArgument)
	}
	for i, r := range readers {
		if r == nil {
			return nil, fmt.Errorf("%w: reader %d is nil", ErrInvalidArgument, i)
		}
	}
	opts := applyOptions(optFns)

	rc := resource.NewController(resource.Config{
		MemoryLimitBytes: opts.memoryLimit,
		MaxSearchWorkers: opts.maxWorkers,
		QueriesPerSecond: opts.queriesPerSecond,
		QueryBurst:       opts.queryBurst,
	})
	fc := search.NewFieldCache(opts.fieldCacheBytes, rc)

	searchOpts := []search.Option{
		search.WithSimilarity(opts.similarity),
		search.WithLogger(opts.logger.Logger),
		search.WithResourceController(rc),
		search.WithFieldCache(fc),
		search.WithFieldSortScoring(opts.trackScores, opts.trackMaxScore),
	}
	if opts.parallel {
		searchOpts = append(searchOpts, search.WithParallel())
	}

	s := &Searcher{
		readers: append([]index.Reader(nil), readers...),
		rc:      rc,
		fc:      fc,
		builder: querydsl.NewBuilder(
			querydsl.WithDefaultField(opts.defaultField),
			querydsl.WithFieldCache(fc),
			querydsl.WithFilterCacheCapacity(opts.memoryLimit),
		),
		metrics: opts.metricsCollector,
	}

	subs := make([]search.Searchable, len(readers))
	for i, r := range readers {
		is := search.NewIndexSearcher(r, searchOpts...)
		s.segments += len(is.SubReaders())
		subs[i] = is
	}
	if len(subs) == 1 {
		s.engine = subs[0].(*search.IndexSearcher)
	} else {
		ms, err := search.NewMultiSearcher(subs, searchOpts...)
		if err != nil {
			return nil, translateError(err, 0)
		}
		s.engine = ms
	}
	s.logger = opts.logger.WithSearcher(s.segments, len(readers))
	return s, nil
}

// Engine exposes the underlying searcher, for callers that bind weights
// themselves.
func (s *Searcher) Engine() search.Searcher { return s.engine }

// MaxDoc is one more than the largest doc id across all readers.
func (s *Searcher) MaxDoc() int { return s.engine.MaxDoc() }

// Segments is the number of segments searched.
func (s *Searcher) Segments() int { return s.segments }

// Shards is the number of readers the searcher was created with.
func (s *Searcher) Shards() int { return len(s.readers) }

// Readers returns the shard readers in search order.
func (s *Searcher) Readers() []index.Reader { return slices.Clone(s.readers) }

// FieldCache returns the cache backing sorting, field cache filters and
// value sources built by this searcher.
func (s *Searcher) FieldCache() *search.FieldCache { return s.fc }

// begin checks the searcher is open and waits for query admission.
func (s *Searcher) begin(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := s.rc.AdmitQuery(ctx); err != nil {
		return s.translateError(err)
	}
	return nil
}

// Build converts a query spec into a query, resolving empty fields to the
// default field.
func (s *Searcher) Build(spec querydsl.Spec) (search.Query, error) {
	q, err := s.builder.Build(spec)
	return q, s.translateError(err)
}

// BuildFilter converts a filter spec into a filter.
func (s *Searcher) BuildFilter(spec querydsl.FilterSpec) (search.Filter, error) {
	f, err := s.builder.BuildFilter(spec)
	return f, s.translateError(err)
}

// ParseQuery decodes and builds a query. A nil codec means TOML.
func (s *Searcher) ParseQuery(data []byte, c codec.Codec) (search.Query, error) {
	spec, err := querydsl.Parse(data, c)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return s.Build(spec)
}

// TopDocs returns the n best hits of q, restricted by filter if not nil.
func (s *Searcher) TopDocs(ctx context.Context, q search.Query, filter search.Filter, n int) (*search.TopDocs, error) {
	start := time.Now()
	td, err := s.topDocs(ctx, q, filter, n)
	total := 0
	if td != nil {
		total = td.TotalHits
	}
	s.metrics.RecordSearch(n, total, time.Since(start), err)
	s.logger.LogSearch(ctx, queryString(q), n, total, time.Since(start), err)
	return td, err
}

func (s *Searcher) topDocs(ctx context.Context, q search.Query, filter search.Filter, n int) (*search.TopDocs, error) {
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	td, err := s.engine.Search(ctx, q, filter, n)
	return td, s.translateError(err)
}

// TopFieldDocs returns the first n hits of q in sort order.
func (s *Searcher) TopFieldDocs(ctx context.Context, q search.Query, filter search.Filter, n int, sort *search.Sort) (*search.TopFieldDocs, error) {
	start := time.Now()
	td, err := s.topFieldDocs(ctx, q, filter, n, sort)
	total := 0
	if td != nil {
		total = td.TotalHits
	}
	s.metrics.RecordSearch(n, total, time.Since(start), err)
	s.logger.LogSearch(ctx, queryString(q), n, total, time.Since(start), err)
	return td, err
}

func (s *Searcher) topFieldDocs(ctx context.Context, q search.Query, filter search.Filter, n int, sort *search.Sort) (*search.TopFieldDocs, error) {
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	td, err := s.engine.SearchSorted(ctx, q, filter, n, sort)
	return td, s.translateError(err)
}

// Collect feeds every hit of q to c. A collector returning
// search.ErrCollectionTerminated stops the search; the error is returned
// wrapped in ErrTerminated but not counted as a failure.
func (s *Searcher) Collect(ctx context.Context, q search.Query, filter search.Filter, c search.Collector) error {
	start := time.Now()
	err := s.begin(ctx)
	if err == nil {
		err = s.translateError(s.engine.SearchCollector(ctx, q, filter, c))
	}
	outcome := err
	if errors.Is(err, search.ErrCollectionTerminated) {
		outcome = nil
	}
	s.metrics.RecordSearch(0, 0, time.Since(start), outcome)
	s.logger.LogSearch(ctx, queryString(q), 0, 0, time.Since(start), outcome)
	return err
}

// Explain describes how doc scores against q.
func (s *Searcher) Explain(ctx context.Context, q search.Query, doc int) (*search.Explanation, error) {
	start := time.Now()
	exp, err := s.explain(ctx, q, doc)
	s.metrics.RecordExplain(time.Since(start), err)
	s.logger.LogExplain(ctx, queryString(q), doc, err)
	return exp, err
}

func (s *Searcher) explain(ctx context.Context, q search.Query, doc int) (*search.Explanation, error) {
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	if err := s.checkDoc(doc); err != nil {
		return nil, err
	}
	exp, err := s.engine.Explain(q, doc)
	return exp, s.translateError(err)
}

// Rewrite rewrites q to its primitive form against every reader.
func (s *Searcher) Rewrite(ctx context.Context, q search.Query) (search.Query, error) {
	start := time.Now()
	var rewritten search.Query
	err := s.begin(ctx)
	if err == nil {
		rewritten, err = s.engine.Rewrite(q)
		err = s.translateError(err)
	}
	s.metrics.RecordRewrite(time.Since(start), err)
	s.logger.LogRewrite(ctx, queryString(q), queryString(rewritten), err)
	return rewritten, err
}

// Doc loads the stored fields of doc.
func (s *Searcher) Doc(doc int) (*index.Document, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if err := s.checkDoc(doc); err != nil {
		return nil, err
	}
	d, err := s.engine.Doc(doc)
	return d, s.translateError(err)
}

// DocFreq is the number of documents containing t across all readers.
func (s *Searcher) DocFreq(t index.Term) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	df, err := s.engine.DocFreq(t)
	return df, s.translateError(err)
}

func (s *Searcher) checkDoc(doc int) error {
	if doc < 0 || doc >= s.MaxDoc() {
		return s.translateError(&docError{doc: doc, err: index.ErrDocOutOfRange})
	}
	return nil
}

func queryString(q search.Query) string {
	if q == nil {
		return ""
	}
	return q.String("")
}
