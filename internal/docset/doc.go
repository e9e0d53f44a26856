// Package docset provides compressed sets of document ids backed by roaring bitmaps.
//
// Sets are used for deletions, cached filter results and term-set filters. A
// Cursor walks a set with the search iterator protocol: it starts unpositioned
// at -1 and returns NoMoreDocs (math.MaxInt32) once exhausted.
package docset
