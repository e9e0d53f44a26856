package lexis

import (
	"log/slog"

	"github.com/hupe1980/lexis/search"
)

type options struct {
	similarity       search.Similarity
	metricsCollector MetricsCollector
	logger           *Logger
	parallel         bool
	maxWorkers       int64
	memoryLimit      int64
	fieldCacheBytes  int64
	queriesPerSecond float64
	queryBurst       int
	defaultField     string
	trackScores      bool
	trackMaxScore    bool
}

// Option configures a Searcher.
type Option func(*options)

// WithSimilarity sets the scoring model. If nil is passed,
// search.DefaultSimilarity is used.
func WithSimilarity(sim search.Similarity) Option {
	return func(o *options) {
		if sim == nil {
			sim = search.DefaultSimilarity{}
		}
		o.similarity = sim
	}
}

// WithParallelism searches segments and shards concurrently for top-N and
// sorted searches, with at most workers sub-searches running at once.
//
// workers <= 1 keeps searches sequential (the default). Results are
// identical either way; only latency changes.
func WithParallelism(workers int) Option {
	return func(o *options) {
		o.parallel = workers > 1
		o.maxWorkers = int64(workers)
	}
}

// WithMemoryLimit caps the bytes held by the field cache and cached filter
// results. Entries that would exceed it are evicted or not cached.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithFieldCacheCapacity bounds the searcher's own field cache by bytes.
// 0 means unbounded (within WithMemoryLimit).
func WithFieldCacheCapacity(bytes int64) Option {
	return func(o *options) {
		o.fieldCacheBytes = bytes
	}
}

// WithQueryRate throttles query admission to qps queries per second with
// the given burst. Searches wait for admission until their context ends.
func WithQueryRate(qps float64, burst int) Option {
	return func(o *options) {
		o.queriesPerSecond = qps
		o.queryBurst = burst
	}
}

// WithDefaultField sets the field used by query specs that leave theirs
// empty.
func WithDefaultField(field string) Option {
	return func(o *options) {
		o.defaultField = field
	}
}

// WithFieldSortScoring makes sorted searches compute the score of each
// returned hit and/or the maximum score.
func WithFieldSortScoring(trackScores, trackMaxScore bool) Option {
	return func(o *options) {
		o.trackScores = trackScores
		o.trackMaxScore = trackMaxScore
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &lexis.BasicMetricsCollector{}
//	s, _ := lexis.New(readers, lexis.WithMetricsCollector(metrics))
//	// ... use s ...
//	stats := metrics.GetStats()
//	fmt.Printf("Searches: %d, Avg latency: %dns\n", stats.SearchCount, stats.SearchAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := lexis.NewJSONLogger(slog.LevelInfo)
//	s, _ := lexis.New(readers, lexis.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		similarity:       search.DefaultSimilarity{},
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
