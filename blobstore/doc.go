// Package blobstore reads and writes the files the engine is fed from:
// corpora, query specs and filter specs.
//
// Store is the interface every backend implements. Implementations must be
// safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, reads are memory mapped
//   - MemoryStore: in-memory, for tests
//   - CachingStore: keeps whole blobs of another store in a bounded LRU
//   - s3.Store: Amazon S3 with ranged reads and managed uploads
//   - minio.Store: MinIO and other S3-compatible services
package blobstore
