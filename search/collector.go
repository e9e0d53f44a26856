package search

import (
	"math"
	"time"

	"github.com/hupe1980/lexis/index"
)

// Collector receives the matching documents of a search.
//
// Returning an error from any method aborts the search; the error is
// returned to the caller. ErrCollectionTerminated is the conventional way
// to stop early.
type Collector interface {
	// SetScorer is called before documents are collected from a scorer.
	SetScorer(s Scorer) error
	// Collect is called once per matching segment-local document.
	Collect(doc int) error
	// SetNextReader is called before the documents of each segment.
	SetNextReader(r index.Reader, docBase int) error
	// AcceptsDocsOutOfOrder reports whether Collect may see documents out
	// of increasing order.
	AcceptsDocsOutOfOrder() bool
}

// TotalHitCountCollector counts matches without scoring.
type TotalHitCountCollector struct {
	total int
}

// NewTotalHitCountCollector returns a counting collector.
func NewTotalHitCountCollector() *TotalHitCountCollector {
	return &TotalHitCountCollector{}
}

// TotalHits returns the number of collected documents.
func (c *TotalHitCountCollector) TotalHits() int { return c.total }

func (c *TotalHitCountCollector) SetScorer(Scorer) error                { return nil }
func (c *TotalHitCountCollector) SetNextReader(index.Reader, int) error { return nil }
func (c *TotalHitCountCollector) AcceptsDocsOutOfOrder() bool           { return true }

func (c *TotalHitCountCollector) Collect(int) error {
	c.total++
	return nil
}

// PositiveScoresOnlyCollector forwards only documents scoring above zero.
type PositiveScoresOnlyCollector struct {
	c      Collector
	scorer Scorer
}

// NewPositiveScoresOnlyCollector wraps c.
func NewPositiveScoresOnlyCollector(c Collector) *PositiveScoresOnlyCollector {
	return &PositiveScoresOnlyCollector{c: c}
}

func (p *PositiveScoresOnlyCollector) SetScorer(s Scorer) error {
	p.scorer = NewScoreCachingScorer(s)
	return p.c.SetScorer(p.scorer)
}

func (p *PositiveScoresOnlyCollector) Collect(doc int) error {
	if p.scorer.Score() > 0 {
		return p.c.Collect(doc)
	}
	return nil
}

func (p *PositiveScoresOnlyCollector) SetNextReader(r index.Reader, docBase int) error {
	return p.c.SetNextReader(r, docBase)
}

func (p *PositiveScoresOnlyCollector) AcceptsDocsOutOfOrder() bool {
	return p.c.AcceptsDocsOutOfOrder()
}

// TimeExceededError is returned when a TimeLimitingCollector runs out of time.
type TimeExceededError struct {
	Allowed time.Duration
	Elapsed time.Duration
	// LastDoc is the last global doc id collected before the timeout.
	LastDoc int
}

func (e *TimeExceededError) Error() string {
	return "elapsed " + e.Elapsed.String() + " exceeds allowed " + e.Allowed.String()
}

// Unwrap returns ErrTimeExceeded.
func (e *TimeExceededError) Unwrap() error { return ErrTimeExceeded }

// TimeLimitingCollector aborts a search after a fixed duration.
type TimeLimitingCollector struct {
	c        Collector
	allowed  time.Duration
	start    time.Time
	deadline time.Time
	docBase  int
	greedy   bool
	now      func() time.Time
}

// NewTimeLimitingCollector wraps c with a time budget starting now.
func NewTimeLimitingCollector(c Collector, allowed time.Duration) (*TimeLimitingCollector, error) {
	if allowed <= 0 {
		return nil, invalidArg("allowed", "must be positive, got %s", allowed)
	}
	t := &TimeLimitingCollector{c: c, allowed: allowed, now: time.Now}
	t.start = t.now()
	t.deadline = t.start.Add(allowed)
	return t, nil
}

// SetGreedy controls whether the document that hits the timeout is still
// collected before the error is returned.
func (t *TimeLimitingCollector) SetGreedy(greedy bool) { t.greedy = greedy }

func (t *TimeLimitingCollector) Collect(doc int) error {
	if now := t.now(); now.After(t.deadline) {
		if t.greedy {
			if err := t.c.Collect(doc); err != nil {
				return err
			}
		}
		return &TimeExceededError{Allowed: t.allowed, Elapsed: now.Sub(t.start), LastDoc: t.docBase + doc}
	}
	return t.c.Collect(doc)
}

func (t *TimeLimitingCollector) SetScorer(s Scorer) error { return t.c.SetScorer(s) }

func (t *TimeLimitingCollector) SetNextReader(r index.Reader, docBase int) error {
	t.docBase = docBase
	return t.c.SetNextReader(r, docBase)
}

func (t *TimeLimitingCollector) AcceptsDocsOutOfOrder() bool { return t.c.AcceptsDocsOutOfOrder() }

// ScoreDoc is a hit: a global doc id and its score.
type ScoreDoc struct {
	Doc   int
	Score float64
}

// TopDocs is the result of a top-N search.
type TopDocs struct {
	TotalHits int
	ScoreDocs []ScoreDoc
	// MaxScore is the best score seen, NaN when nothing matched.
	MaxScore float64
}

func emptyTopDocs() *TopDocs {
	return &TopDocs{MaxScore: math.NaN()}
}

// collectorFunc adapts a function into an order-insensitive Collector.
type collectorFunc struct {
	fn      func(doc int, score float64) error
	scorer  Scorer
	docBase int
}

// CollectorFunc returns a Collector calling fn with global doc ids and scores.
func CollectorFunc(fn func(doc int, score float64) error) Collector {
	return &collectorFunc{fn: fn}
}

func (c *collectorFunc) SetScorer(s Scorer) error { c.scorer = s; return nil }

func (c *collectorFunc) Collect(doc int) error {
	return c.fn(c.docBase+doc, c.scorer.Score())
}

func (c *collectorFunc) SetNextReader(_ index.Reader, docBase int) error {
	c.docBase = docBase
	return nil
}

func (c *collectorFunc) AcceptsDocsOutOfOrder() bool { return true }
