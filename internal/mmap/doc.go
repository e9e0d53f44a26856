// Package mmap maps files read-only into memory.
//
//	m, err := mmap.Open("corpus.toml")
//	if err != nil { ... }
//	defer m.Close()
//
//	data := m.Bytes()
//
// Unix systems use mmap(2) with madvise(2) hints; Windows uses
// CreateFileMapping and MapViewOfFile and ignores hints.
//
// A Mapping is safe for concurrent reads. Close is idempotent, but slices
// returned by Bytes must not be used after it.
package mmap
