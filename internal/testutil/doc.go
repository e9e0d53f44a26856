// Package testutil provides testing utilities for lexis.
//
// This package is intended for use in tests and benchmarks only.
// It provides a thread-safe seeded RNG, random corpus generation with a
// Zipfian vocabulary, and helpers that build in-memory segments.
//
// # Random Corpora
//
//	rng := testutil.NewRNG(seed)
//	docs := rng.Corpus(200, testutil.Vocabulary(50), 3, 12)
//
// # Segments
//
//	seg := testutil.Segment(t, "body", "a b c", "a c")
//	shards := testutil.Shards(t, "body", docs, 3)
package testutil
