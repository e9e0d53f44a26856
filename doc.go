// Package lexis is an embeddable full-text query evaluation and scoring
// engine.
//
// Given one or more index readers and a tree of queries, lexis produces a
// ranked stream of matching documents using classic TF-IDF scoring. Boolean,
// phrase, span, range, filtered and custom-scored queries are supported, over
// one segment or many shards searched as one logical index.
//
// # Quick Start
//
//	b := memindex.NewBuilder()
//	b.Add(index.NewDocument(index.TextField("body", "full text search")))
//	seg, _ := b.Build()
//
//	s, _ := lexis.New([]index.Reader{seg}, lexis.WithDefaultField("body"))
//	defer s.Close()
//
//	q := search.NewTermQuery(index.NewTerm("body", "text"))
//	hits, _ := s.Search(q).Top(10).WithDocuments().Execute(ctx)
//	for _, h := range hits {
//	    fmt.Println(h.Doc, h.Score, h.Document.Get("body"))
//	}
//
// # Query files
//
// Queries can be written as TOML or JSON and built with ParseQuery:
//
//	q, _ := s.ParseQuery([]byte(`
//	type = "phrase"
//	terms = ["full", "text"]
//	slop = 1
//	`), nil)
//
// See package querydsl for the node types.
//
// # Shards
//
// Several readers passed to New are searched as shards: document ids are
// concatenated in order and document frequencies are summed across shards,
// so scores match a single index holding every document. WithParallelism
// searches shards and segments concurrently.
//
// # Packages
//
//   - index: the reader contract consumed by the engine, and index/memindex,
//     an in-memory segment implementation
//   - search: queries, weights, scorers, collectors, filters and searchers
//   - search/spans: positional span queries
//   - search/function: value sources and custom score queries
//   - querydsl: query trees decoded from TOML, JSON or maps
package lexis
