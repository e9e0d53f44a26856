package lexis

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    searchCounter   prometheus.Counter
//	    searchHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordSearch(n, totalHits int, duration time.Duration, err error) {
//	    p.searchCounter.Inc()
//	    p.searchHistogram.Observe(duration.Seconds())
//	}
type MetricsCollector interface {
	// RecordSearch is called after each search operation.
	// n is the number of hits requested (0 for collector searches),
	// totalHits the number of matches, err is nil if successful.
	RecordSearch(n, totalHits int, duration time.Duration, err error)

	// RecordExplain is called after each explain operation.
	RecordExplain(duration time.Duration, err error)

	// RecordRewrite is called after each rewrite, including the rewrite
	// step of a search.
	RecordRewrite(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSearch(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordExplain(time.Duration, error)          {}
func (NoopMetricsCollector) RecordRewrite(time.Duration, error)          {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchHits       atomic.Int64
	SearchTotalNanos atomic.Int64
	ExplainCount     atomic.Int64
	ExplainErrors    atomic.Int64
	RewriteCount     atomic.Int64
	RewriteErrors    atomic.Int64
	RewriteNanos     atomic.Int64
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(_, totalHits int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
		return
	}
	b.SearchHits.Add(int64(totalHits))
}

// RecordExplain implements MetricsCollector.
func (b *BasicMetricsCollector) RecordExplain(_ time.Duration, err error) {
	b.ExplainCount.Add(1)
	if err != nil {
		b.ExplainErrors.Add(1)
	}
}

// RecordRewrite implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRewrite(duration time.Duration, err error) {
	b.RewriteCount.Add(1)
	b.RewriteNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.RewriteErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		SearchCount:     b.SearchCount.Load(),
		SearchErrors:    b.SearchErrors.Load(),
		SearchHits:      b.SearchHits.Load(),
		SearchAvgNanos:  avg(b.SearchTotalNanos.Load(), b.SearchCount.Load()),
		ExplainCount:    b.ExplainCount.Load(),
		ExplainErrors:   b.ExplainErrors.Load(),
		RewriteCount:    b.RewriteCount.Load(),
		RewriteErrors:   b.RewriteErrors.Load(),
		RewriteAvgNanos: avg(b.RewriteNanos.Load(), b.RewriteCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	SearchCount     int64
	SearchErrors    int64
	SearchHits      int64
	SearchAvgNanos  int64
	ExplainCount    int64
	ExplainErrors   int64
	RewriteCount    int64
	RewriteErrors   int64
	RewriteAvgNanos int64
}
