// Package resource implements the Controller for shared limits and governance.
//
// The Controller provides centralized management of three resource types:
//
//   - Memory: Track and limit memory held by caches (non-blocking, fail-fast)
//   - Search workers: Limit concurrently running sub-searches
//   - Query admission: Token-bucket throttling of incoming queries
//
// # Memory Management
//
// AcquireMemory is non-blocking and returns ErrMemoryLimitExceeded when the
// limit would be exceeded; caches react by not caching:
//
//	rc := resource.NewController(resource.Config{MemoryLimitBytes: 64 << 20})
//	if err := rc.AcquireMemory(size); err != nil {
//	    // compute without caching
//	}
//
// # Search Workers
//
// Parallel searchers acquire one slot per sub-search task:
//
//	if err := rc.AcquireWorker(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseWorker()
//
// # Nil Safety
//
// All methods handle nil Controller gracefully - they become no-ops.
package resource
