package lexis

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with lexis-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

// WithSearcher tags records with the searcher's segment and shard counts.
func (l *Logger) WithSearcher(segments, shards int) *Logger {
	return &Logger{Logger: l.Logger.With("segments", segments, "shards", shards)}
}

// WithQuery adds the rendered query to the logger.
func (l *Logger) WithQuery(query string) *Logger {
	return &Logger{Logger: l.Logger.With("query", query)}
}

// WithN adds the requested hit count.
func (l *Logger) WithN(n int) *Logger {
	return &Logger{Logger: l.Logger.With("n", n)}
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, query string, n, totalHits int, took time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"query", query,
			"n", n,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"query", query,
			"n", n,
			"total_hits", totalHits,
			"took", took,
		)
	}
}

// LogExplain logs an explain operation.
func (l *Logger) LogExplain(ctx context.Context, query string, doc int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "explain failed",
			"query", query,
			"doc", doc,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "explain completed",
			"query", query,
			"doc", doc,
		)
	}
}

// LogRewrite logs a query rewrite.
func (l *Logger) LogRewrite(ctx context.Context, query, rewritten string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "rewrite failed",
			"query", query,
			"error", err,
		)
	} else if query != rewritten {
		l.DebugContext(ctx, "query rewritten",
			"query", query,
			"rewritten", rewritten,
		)
	}
}

// LogClose logs the release of cached per-reader state.
func (l *Logger) LogClose(ctx context.Context, readers int, cacheBytes int64) {
	l.InfoContext(ctx, "searcher closed",
		"readers", readers,
		"field_cache_bytes", cacheBytes,
	)
}
