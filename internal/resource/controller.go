package resource

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when memory limit would be exceeded.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes caps memory held by caches (field values, filter sets).
	// If 0, no hard limit is enforced (only tracking).
	MemoryLimitBytes int64

	// MaxSearchWorkers is the maximum number of sub-searches running at once
	// across all parallel searches sharing the controller.
	// If 0, defaults to 1.
	MaxSearchWorkers int64

	// QueriesPerSecond throttles query admission. If 0, unlimited.
	QueriesPerSecond float64

	// QueryBurst is the admission burst size. Defaults to 1 when throttled.
	QueryBurst int
}

// Controller manages shared resources (memory, search workers, query rate).
type Controller struct {
	cfg Config

	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	workers *semaphore.Weighted

	admission *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxSearchWorkers <= 0 {
		cfg.MaxSearchWorkers = 1
	}

	c := &Controller{
		cfg:     cfg,
		workers: semaphore.NewWeighted(cfg.MaxSearchWorkers),
	}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.QueriesPerSecond > 0 {
		burst := cfg.QueryBurst
		if burst <= 0 {
			burst = 1
		}
		c.admission = rate.NewLimiter(rate.Limit(cfg.QueriesPerSecond), burst)
	}

	return c
}

// AcquireMemory attempts to reserve memory.
// Returns ErrMemoryLimitExceeded if limit would be exceeded.
// Non-blocking - callers decide whether to skip caching.
func (c *Controller) AcquireMemory(bytes int64) error {
	if c == nil {
		return nil
	}
	if bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if !c.memSem.TryAcquire(bytes) {
			return ErrMemoryLimitExceeded
		}
	}

	c.memUsed.Add(bytes)
	return nil
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil {
		return
	}
	if bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the current memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// MemoryLimit returns the configured memory limit in bytes (0 if unlimited).
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes
}

// MaxSearchWorkers returns the worker limit.
func (c *Controller) MaxSearchWorkers() int {
	if c == nil {
		return 0
	}
	return int(c.cfg.MaxSearchWorkers)
}

// AcquireWorker reserves a search worker slot.
// Blocks if all slots are busy.
func (c *Controller) AcquireWorker(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.workers.Acquire(ctx, 1)
}

// TryAcquireWorker attempts to reserve a worker slot without blocking.
func (c *Controller) TryAcquireWorker() bool {
	if c == nil {
		return true
	}
	return c.workers.TryAcquire(1)
}

// ReleaseWorker releases a worker slot.
func (c *Controller) ReleaseWorker() {
	if c == nil {
		return
	}
	c.workers.Release(1)
}

// AdmitQuery waits until the query rate allows one more query.
func (c *Controller) AdmitQuery(ctx context.Context) error {
	if c == nil || c.admission == nil {
		return nil
	}
	return c.admission.Wait(ctx)
}

// TryAdmitQuery admits a query without waiting.
func (c *Controller) TryAdmitQuery() bool {
	if c == nil || c.admission == nil {
		return true
	}
	return c.admission.AllowN(time.Now(), 1)
}
