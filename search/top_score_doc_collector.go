package search

import (
	"math"

	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/internal/queue"
)

// hitLess orders hits worst first: lower score, then lower doc id, so that
// on equal scores the higher doc id wins.
func hitLess(a, b ScoreDoc) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.Doc < b.Doc
}

// newHitQueue returns a bounded min-heap of hits.
func newHitQueue(n int) *queue.PriorityQueue[ScoreDoc] {
	return queue.New(n, hitLess)
}

// drainHits pops q and returns its hits best first.
func drainHits(q *queue.PriorityQueue[ScoreDoc]) []ScoreDoc {
	hits := q.Drain()
	for i, j := 0, len(hits)-1; i < j; i, j = i+1, j-1 {
		hits[i], hits[j] = hits[j], hits[i]
	}
	return hits
}

// TopScoreDocCollector keeps the n best-scoring documents.
type TopScoreDocCollector struct {
	n         int
	pq        *queue.PriorityQueue[ScoreDoc]
	inOrder   bool
	scorer    Scorer
	docBase   int
	totalHits int
	maxScore  float64
}

// NewTopScoreDocCollector returns a collector for the top n hits.
// docsScoredInOrder declares whether the scorer will deliver documents in
// increasing order; when false the collector accepts any order.
func NewTopScoreDocCollector(n int, docsScoredInOrder bool) (*TopScoreDocCollector, error) {
	if n <= 0 {
		return nil, invalidArg("n", "must be > 0, got %d", n)
	}
	return &TopScoreDocCollector{
		n:        n,
		pq:       newHitQueue(n),
		inOrder:  docsScoredInOrder,
		maxScore: math.Inf(-1),
	}, nil
}

func (c *TopScoreDocCollector) SetScorer(s Scorer) error {
	c.scorer = s
	return nil
}

func (c *TopScoreDocCollector) SetNextReader(_ index.Reader, docBase int) error {
	c.docBase = docBase
	return nil
}

func (c *TopScoreDocCollector) AcceptsDocsOutOfOrder() bool { return !c.inOrder }

func (c *TopScoreDocCollector) Collect(doc int) error {
	score := c.scorer.Score()
	c.totalHits++
	if score > c.maxScore {
		c.maxScore = score
	}
	c.pq.PushBounded(ScoreDoc{Doc: c.docBase + doc, Score: score}, c.n)
	return nil
}

// TotalHits returns the number of collected documents.
func (c *TopScoreDocCollector) TotalHits() int { return c.totalHits }

// TopDocs returns the collected hits best first. The collector is drained.
func (c *TopScoreDocCollector) TopDocs() *TopDocs {
	if c.totalHits == 0 {
		return emptyTopDocs()
	}
	return &TopDocs{
		TotalHits: c.totalHits,
		ScoreDocs: drainHits(c.pq),
		MaxScore:  c.maxScore,
	}
}
