// Package search evaluates queries against an index.Reader and ranks the
// matching documents.
//
// # Pipeline
//
// A Query is rewritten to its primitive form, bound to a Searcher as a
// Weight, normalized, and then asked for one Scorer per segment:
//
//	w, err := search.CreateNormalizedWeight(q, searcher)
//	sc, err := w.Scorer(segment, true, true)
//	for doc, err := sc.NextDoc(); doc != search.NoMoreDocs; doc, err = sc.NextDoc() {
//	    score := sc.Score()
//	}
//
// IndexSearcher and MultiSearcher wrap this loop and feed a Collector.
//
// # Iterators
//
// Every matcher implements DocIDSetIterator. Doc ids are strictly
// increasing, -1 means not started and NoMoreDocs means exhausted.
// Moving backwards or scoring an unpositioned scorer panics with an
// error wrapping ErrIteratorMisuse.
//
// # Boolean scoring
//
// BooleanQuery picks one of two algorithms. When the collector accepts
// out-of-order documents and the scorer is top level, a windowed bucket
// scorer accumulates clause scores in a table of 2048 slots. Otherwise the
// clauses are combined with conjunction, disjunction, exclusion and
// required/optional scorers. Both produce the same scores.
//
// # Concurrency
//
// Scorers and collectors are not safe for concurrent use. A normalized
// Weight may be shared by concurrent segment searches. IndexSearcher and
// MultiSearcher can search segments or sub-searchers in parallel; results
// are merged into one top-N queue under a mutex.
package search
