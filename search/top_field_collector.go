package search

import (
	"cmp"
	"math"
	"strings"

	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/internal/queue"
)

// fieldComparator compares hits on one sort key. Competitive hits are copied
// into numbered slots; the bottom slot is the worst hit of a full queue.
type fieldComparator interface {
	compare(slot1, slot2 int) int
	// compareBottom compares the bottom slot with doc of the current reader.
	compareBottom(doc int) int
	copy(slot, doc int)
	setBottom(slot int)
	setNextReader(r index.Reader, docBase int) error
	setScorer(s Scorer)
	value(slot int) any
}

func newFieldComparator(f SortField, numHits int, fc *FieldCache) fieldComparator {
	switch f.Type {
	case SortScore:
		return &scoreComparator{scores: make([]float64, numHits)}
	case SortDoc:
		return &docComparator{docs: make([]int, numHits)}
	case SortInt:
		return &valueComparator[int]{values: make([]int, numHits), load: func(r index.Reader) ([]int, error) {
			return fc.Ints(r, f.Field, nil)
		}, compareFn: cmp.Compare[int]}
	case SortFloat:
		return &valueComparator[float64]{values: make([]float64, numHits), load: func(r index.Reader) ([]float64, error) {
			return fc.Floats(r, f.Field, nil)
		}, compareFn: cmp.Compare[float64]}
	default:
		return &valueComparator[string]{values: make([]string, numHits), load: func(r index.Reader) ([]string, error) {
			return fc.Strings(r, f.Field)
		}, compareFn: strings.Compare}
	}
}

type scoreComparator struct {
	scores []float64
	bottom float64
	scorer Scorer
}

func (c *scoreComparator) compare(slot1, slot2 int) int {
	return cmp.Compare(c.scores[slot2], c.scores[slot1])
}

func (c *scoreComparator) compareBottom(int) int {
	return cmp.Compare(c.scorer.Score(), c.bottom)
}

func (c *scoreComparator) copy(slot, _ int)                      { c.scores[slot] = c.scorer.Score() }
func (c *scoreComparator) setBottom(slot int)                    { c.bottom = c.scores[slot] }
func (c *scoreComparator) setNextReader(index.Reader, int) error { return nil }
func (c *scoreComparator) setScorer(s Scorer)                    { c.scorer = s }
func (c *scoreComparator) value(slot int) any                    { return c.scores[slot] }

type docComparator struct {
	docs    []int
	bottom  int
	docBase int
}

func (c *docComparator) compare(slot1, slot2 int) int { return cmp.Compare(c.docs[slot1], c.docs[slot2]) }
func (c *docComparator) compareBottom(doc int) int    { return cmp.Compare(c.bottom, c.docBase+doc) }
func (c *docComparator) copy(slot, doc int)           { c.docs[slot] = c.docBase + doc }
func (c *docComparator) setBottom(slot int)           { c.bottom = c.docs[slot] }
func (c *docComparator) setScorer(Scorer)             {}
func (c *docComparator) value(slot int) any           { return c.docs[slot] }

func (c *docComparator) setNextReader(_ index.Reader, docBase int) error {
	c.docBase = docBase
	return nil
}

// valueComparator orders by a per-document field cache array.
type valueComparator[T any] struct {
	values    []T
	current   []T
	bottom    T
	load      func(index.Reader) ([]T, error)
	compareFn func(a, b T) int
}

func (c *valueComparator[T]) compare(slot1, slot2 int) int {
	return c.compareFn(c.values[slot1], c.values[slot2])
}

func (c *valueComparator[T]) compareBottom(doc int) int { return c.compareFn(c.bottom, c.current[doc]) }
func (c *valueComparator[T]) copy(slot, doc int)        { c.values[slot] = c.current[doc] }
func (c *valueComparator[T]) setBottom(slot int)        { c.bottom = c.values[slot] }
func (c *valueComparator[T]) setScorer(Scorer)          {}
func (c *valueComparator[T]) value(slot int) any        { return c.values[slot] }

func (c *valueComparator[T]) setNextReader(r index.Reader, _ int) error {
	vals, err := c.load(r)
	if err != nil {
		return err
	}
	c.current = vals
	return nil
}

type fieldHit struct {
	slot  int
	doc   int
	score float64
}

// TopFieldOption configures a TopFieldCollector.
type TopFieldOption func(*TopFieldCollector)

// WithTrackScores records the score of every returned hit.
func WithTrackScores() TopFieldOption {
	return func(c *TopFieldCollector) { c.trackScores = true }
}

// WithTrackMaxScore records the best score over all hits.
func WithTrackMaxScore() TopFieldOption {
	return func(c *TopFieldCollector) { c.trackMaxScore = true }
}

// WithOutOfOrder lets the collector accept documents in any order.
func WithOutOfOrder() TopFieldOption {
	return func(c *TopFieldCollector) { c.inOrder = false }
}

// WithSortFieldCache sets the field cache comparators load values from.
// Without one, values are un-inverted for every segment and not kept.
func WithSortFieldCache(fc *FieldCache) TopFieldOption {
	return func(c *TopFieldCollector) {
		if fc != nil {
			c.fc = fc
		}
	}
}

// TopFieldCollector keeps the n best hits under a Sort. Equal sort values
// keep the lower doc id.
type TopFieldCollector struct {
	fields        []SortField
	comps         []fieldComparator
	reverse       []int
	n             int
	pq            *queue.PriorityQueue[*fieldHit]
	bottom        *fieldHit
	queueFull     bool
	totalHits     int
	docBase       int
	scorer        Scorer
	trackScores   bool
	trackMaxScore bool
	maxScore      float64
	inOrder       bool
	fc            *FieldCache
}

// NewTopFieldCollector returns a collector for the top n hits under s.
func NewTopFieldCollector(s *Sort, n int, opts ...TopFieldOption) (*TopFieldCollector, error) {
	if s == nil {
		return nil, invalidArg("sort", "must not be nil")
	}
	if n <= 0 {
		return nil, invalidArg("n", "must be > 0, got %d", n)
	}
	c := &TopFieldCollector{
		fields:   s.Fields(),
		n:        n,
		maxScore: math.Inf(-1),
		inOrder:  true,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.comps = make([]fieldComparator, len(c.fields))
	c.reverse = make([]int, len(c.fields))
	for i, f := range c.fields {
		c.comps[i] = newFieldComparator(f, n, c.fc)
		c.reverse[i] = 1
		if f.Reverse {
			c.reverse[i] = -1
		}
	}
	c.pq = queue.New(n, c.less)
	return c, nil
}

// less orders worst first; among equal values the higher doc is worse.
func (c *TopFieldCollector) less(a, b *fieldHit) bool {
	for i, comp := range c.comps {
		if v := c.reverse[i] * comp.compare(a.slot, b.slot); v != 0 {
			return v > 0
		}
	}
	return a.doc > b.doc
}

func (c *TopFieldCollector) SetScorer(s Scorer) error {
	c.scorer = NewScoreCachingScorer(s)
	for _, comp := range c.comps {
		comp.setScorer(c.scorer)
	}
	return nil
}

func (c *TopFieldCollector) SetNextReader(r index.Reader, docBase int) error {
	c.docBase = docBase
	for _, comp := range c.comps {
		if err := comp.setNextReader(r, docBase); err != nil {
			return err
		}
	}
	return nil
}

func (c *TopFieldCollector) AcceptsDocsOutOfOrder() bool { return !c.inOrder }

func (c *TopFieldCollector) Collect(doc int) error {
	c.totalHits++
	score := math.NaN()
	if c.trackMaxScore {
		score = c.scorer.Score()
		c.maxScore = max(c.maxScore, score)
	}
	if c.queueFull {
		if !c.competitive(doc) {
			return nil
		}
		for _, comp := range c.comps {
			comp.copy(c.bottom.slot, doc)
		}
		if c.trackScores && math.IsNaN(score) {
			score = c.scorer.Score()
		}
		c.bottom.doc = c.docBase + doc
		c.bottom.score = score
		c.pq.FixTop()
		c.updateBottom()
		return nil
	}
	slot := c.pq.Len()
	for _, comp := range c.comps {
		comp.copy(slot, doc)
	}
	if c.trackScores && math.IsNaN(score) {
		score = c.scorer.Score()
	}
	c.pq.Push(&fieldHit{slot: slot, doc: c.docBase + doc, score: score})
	if c.pq.Len() == c.n {
		c.queueFull = true
		c.updateBottom()
	}
	return nil
}

// competitive reports whether doc beats the bottom of the full queue.
func (c *TopFieldCollector) competitive(doc int) bool {
	for i, comp := range c.comps {
		if v := c.reverse[i] * comp.compareBottom(doc); v != 0 {
			return v > 0
		}
	}
	// All values tie: in order the new doc is always the higher one.
	return !c.inOrder && c.docBase+doc < c.bottom.doc
}

func (c *TopFieldCollector) updateBottom() {
	c.bottom, _ = c.pq.Top()
	for _, comp := range c.comps {
		comp.setBottom(c.bottom.slot)
	}
}

// TotalHits returns the number of collected documents.
func (c *TopFieldCollector) TotalHits() int { return c.totalHits }

// TopFieldDocs returns the hits best first. The collector is drained.
func (c *TopFieldCollector) TopFieldDocs() *TopFieldDocs {
	hits := c.pq.Drain()
	docs := make([]FieldDoc, len(hits))
	for i, h := range hits {
		fd := FieldDoc{ScoreDoc: ScoreDoc{Doc: h.doc, Score: h.score}, Fields: make([]any, len(c.comps))}
		for j, comp := range c.comps {
			fd.Fields[j] = comp.value(h.slot)
		}
		docs[len(hits)-1-i] = fd
	}
	maxScore := math.NaN()
	if c.trackMaxScore && c.totalHits > 0 {
		maxScore = c.maxScore
	}
	return &TopFieldDocs{
		TotalHits:  c.totalHits,
		FieldDocs:  docs,
		SortFields: c.Fields(),
		MaxScore:   maxScore,
	}
}

// Fields returns the sort keys.
func (c *TopFieldCollector) Fields() []SortField { return append([]SortField(nil), c.fields...) }
