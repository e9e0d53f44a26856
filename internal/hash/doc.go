// Package hash provides CRC32-Castagnoli hashing.
//
// It backs two things: the structural hashes of query trees, which must be
// stable across processes so cached filters and rewritten queries compare
// by value, and the checksums of stored-field blocks.
//
//	h := hash.NewCRC32C()
//	h.Write([]byte(field))
//	h.Write([]byte(text))
//	sum := h.Sum32()
//
//	if err := hash.Verify(block, sum); err != nil { ... }
package hash
