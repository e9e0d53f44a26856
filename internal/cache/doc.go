// Package cache provides a generic size-bounded LRU cache.
//
// It backs the per-reader caches used during search (field values,
// filter doc sets). Entries are charged against an optional
// resource.Controller so that all caches share one memory budget.
package cache
