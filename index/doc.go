// Package index defines the reader contract the search core consumes.
//
// A Reader exposes one logical index: document counts, per-term postings
// (doc ids, term frequencies, positions and payloads), term enumeration, norms,
// stored documents and deletion state. The search packages never depend on a
// concrete storage layout; anything that satisfies Reader can be searched.
//
// # Document ids
//
// Document ids are dense, non-negative and local to a reader. Composite readers
// (MultiReader) expose their leaves through SubReaders so searchers can score
// each leaf separately and rebase hits by the leaf's starting id:
//
//	leaves := index.GatherSubReaders(r)
//	starts := index.DocStarts(leaves)
//	n := index.SubIndex(globalDoc, starts)
//
// # Errors
//
// ErrUnsupported marks operations a reader cannot perform (for example payload
// access on postings that carry none, or mutating a read-only reader). All other
// errors come from the storage layer and are returned unchanged.
package index
