// Package memindex is an in-memory, read-only implementation of index.Reader.
//
// A Builder accepts documents, analyzes their indexed fields into positional
// postings (with optional payloads), computes per-field norms and stores the
// stored fields as compressed blocks. Build freezes the result into a Segment:
//
//	b := memindex.NewBuilder(memindex.WithCompression(memindex.CompressionLZ4))
//	b.Add(index.NewDocument(index.TextField("body", "quick brown fox")))
//	seg, err := b.Build()
//
// Segments are immutable and safe for concurrent readers. Mutating a built
// segment returns index.ErrUnsupported.
package memindex
