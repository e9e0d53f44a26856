package search

import (
	"log/slog"

	"github.com/hupe1980/lexis/internal/resource"
)

// config is shared by IndexSearcher and MultiSearcher.
type config struct {
	sim      Similarity
	logger   *slog.Logger
	rc       *resource.Controller
	fc       *FieldCache
	parallel bool

	fieldSortTrackScores   bool
	fieldSortTrackMaxScore bool
}

func newConfig(opts []Option) config {
	c := config{
		sim:    DefaultSimilarity{},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Option configures an IndexSearcher or a MultiSearcher.
type Option func(*config)

// WithSimilarity sets the scoring model. The default is DefaultSimilarity.
func WithSimilarity(sim Similarity) Option {
	return func(c *config) {
		if sim != nil {
			c.sim = sim
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithResourceController bounds parallel searches by the controller's
// worker slots. Without a controller every task gets its own goroutine.
func WithResourceController(rc *resource.Controller) Option {
	return func(c *config) { c.rc = rc }
}

// WithParallel searches segments, or sub-searchers of a MultiSearcher,
// concurrently for top-N and sorted searches. Collector searches stay
// sequential.
func WithParallel() Option {
	return func(c *config) { c.parallel = true }
}

// WithFieldCache shares fc between searchers. By default every IndexSearcher
// owns a cache of its own.
func WithFieldCache(fc *FieldCache) Option {
	return func(c *config) {
		if fc != nil {
			c.fc = fc
		}
	}
}

// WithFieldSortScoring makes sorted searches compute the score of each
// returned hit and/or the maximum score.
func WithFieldSortScoring(trackScores, trackMaxScore bool) Option {
	return func(c *config) {
		c.fieldSortTrackScores = trackScores
		c.fieldSortTrackMaxScore = trackMaxScore
	}
}
