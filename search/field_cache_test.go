package search

import (
	"context"
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/index/memindex"
)

// catalog has four documents; doc 2 has neither price nor name.
func catalog(t testing.TB, deleted ...int) *memindex.Segment {
	t.Helper()
	b := memindex.NewBuilder()
	docs := []*index.Document{
		index.NewDocument(index.TextField("body", "lamp"), index.KeywordField("price", "10"), index.KeywordField("name", "b"), index.KeywordField("weight", "1.5")),
		index.NewDocument(index.TextField("body", "desk"), index.KeywordField("price", "3"), index.KeywordField("name", "a"), index.KeywordField("weight", "20")),
		index.NewDocument(index.TextField("body", "note")),
		index.NewDocument(index.TextField("body", "sofa"), index.KeywordField("price", "7"), index.KeywordField("name", "c"), index.KeywordField("weight", "35.25")),
	}
	for _, d := range docs {
		_, err := b.Add(d)
		require.NoError(t, err)
	}
	for _, doc := range deleted {
		require.NoError(t, b.Delete(doc))
	}
	seg, err := b.Build()
	require.NoError(t, err)
	return seg
}

type hexParser struct{}

func (hexParser) ParseInt(text string) (int, error) {
	n, err := strconv.ParseInt(text, 16, 64)
	return int(n), err
}

func TestFieldCacheInts(t *testing.T) {
	r := catalog(t)
	fc := NewFieldCache(0, nil)

	vals, err := fc.Ints(r, "price", nil)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 3, 0, 7}, vals)
	assert.Equal(t, int64(32), fc.Size())

	again, err := fc.Ints(r, "price", DecimalIntParser{})
	require.NoError(t, err)
	assert.Same(t, &vals[0], &again[0])

	hex, err := fc.Ints(r, "price", hexParser{})
	require.NoError(t, err)
	assert.Equal(t, []int{16, 3, 0, 7}, hex)
	assert.Equal(t, int64(64), fc.Size())

	_, err = fc.Ints(r, "name", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field cache name")
}

func TestFieldCacheFloatsAndStrings(t *testing.T) {
	r := catalog(t)
	fc := NewFieldCache(0, nil)

	weights, err := fc.Floats(r, "weight", nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 20, 0, 35.25}, weights)

	names, err := fc.Strings(r, "name")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "", "c"}, names)

	missing, err := fc.Strings(r, "nope")
	require.NoError(t, err)
	assert.Equal(t, []string{"", "", "", ""}, missing)
}

func TestFieldCacheStringIndex(t *testing.T) {
	r := catalog(t)
	si, err := NewFieldCache(0, nil).StringIndex(r, "name")
	require.NoError(t, err)
	assert.Equal(t, []string{"", "a", "b", "c"}, si.Lookup)
	assert.Equal(t, []int{2, 1, 0, 3}, si.Order)

	assert.Equal(t, 2, si.BinarySearchLookup("b"))
	assert.Equal(t, 1, si.BinarySearchLookup("a"))
	assert.Equal(t, -4, si.BinarySearchLookup("bb"))
	assert.Equal(t, -2, si.BinarySearchLookup("0"))
	assert.Equal(t, -5, si.BinarySearchLookup("z"))
}

func TestFieldCachePurge(t *testing.T) {
	r1, r2 := catalog(t), catalog(t)
	fc := NewFieldCache(0, nil)
	_, err := fc.Ints(r1, "price", nil)
	require.NoError(t, err)
	_, err = fc.Ints(r2, "price", nil)
	require.NoError(t, err)
	require.Equal(t, int64(64), fc.Size())

	fc.Purge(r1)
	assert.Equal(t, int64(32), fc.Size())
	fc.PurgeAll()
	assert.Zero(t, fc.Size())
}

func TestFieldCacheCapacity(t *testing.T) {
	r := catalog(t)
	fc := NewFieldCache(40, nil)
	_, err := fc.Ints(r, "price", nil)
	require.NoError(t, err)
	_, err = fc.Floats(r, "weight", nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, fc.Size(), int64(40))
}

func TestNilFieldCacheKeepsNothing(t *testing.T) {
	r := catalog(t)
	var fc *FieldCache

	vals, err := fc.Ints(r, "price", nil)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 3, 0, 7}, vals)
	names, err := fc.Strings(r, "name")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "", "c"}, names)

	assert.Zero(t, fc.Size())
	fc.Purge(r)
	fc.PurgeAll()

	f := NewFieldCacheIntRangeFilter(nil, "price", intp(5), nil, true, true)
	assert.Equal(t, []int{0, 3}, filterDocs(t, f, r))
}

func TestIndexSearcherOwnsFieldCache(t *testing.T) {
	r := catalog(t)
	s1, s2 := NewIndexSearcher(r), NewIndexSearcher(r)
	require.NotNil(t, s1.FieldCache())
	assert.NotSame(t, s1.FieldCache(), s2.FieldCache())

	price, err := NewSortField("price", SortInt, false)
	require.NoError(t, err)
	td, err := s1.SearchSorted(context.Background(), NewMatchAllDocsQuery(), nil, 4, NewSort(price))
	require.NoError(t, err)
	require.Len(t, td.FieldDocs, 4)
	assert.Positive(t, s1.FieldCache().Size())
	assert.Zero(t, s2.FieldCache().Size())

	require.NoError(t, s1.Close())
	assert.Zero(t, s1.FieldCache().Size())

	shared := NewFieldCache(0, nil)
	s3 := NewIndexSearcher(r, WithFieldCache(shared))
	assert.Same(t, shared, s3.FieldCache())
}

// filterDocs lists the docs a filter accepts on r.
func filterDocs(t testing.TB, f Filter, r index.Reader) []int {
	t.Helper()
	it, err := filterIterator(f, r)
	require.NoError(t, err)
	var out []int
	if it == nil {
		return out
	}
	for {
		doc, err := it.NextDoc()
		require.NoError(t, err)
		if doc == NoMoreDocs {
			return out
		}
		out = append(out, doc)
	}
}

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func TestFieldCacheIntRangeFilter(t *testing.T) {
	r := catalog(t)
	fc := NewFieldCache(0, nil)

	tests := []struct {
		name         string
		lower, upper *int
		incL, incU   bool
		want         []int
	}{
		{"inclusive", intp(3), intp(7), true, true, []int{1, 3}},
		{"exclusive", intp(3), intp(10), false, false, []int{3}},
		{"open lower counts missing as zero", nil, intp(5), true, true, []int{1, 2}},
		{"open upper", intp(7), nil, true, true, []int{0, 3}},
		{"fully open", nil, nil, true, true, []int{0, 1, 2, 3}},
		{"empty", intp(8), intp(9), true, true, nil},
		{"max exclusive", intp(math.MaxInt), nil, false, true, nil},
		{"inverted", intp(7), intp(3), true, true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFieldCacheIntRangeFilter(fc, "price", tt.lower, tt.upper, tt.incL, tt.incU)
			assert.Equal(t, tt.want, filterDocs(t, f, r))
		})
	}

	f := NewFieldCacheIntRangeFilter(fc, "price", intp(3), intp(7), true, false)
	assert.Equal(t, "price:[3 TO 7}", f.String())
	same := NewFieldCacheIntRangeFilter(nil, "price", intp(3), intp(7), true, false)
	assert.True(t, f.Equal(same))
	assert.Equal(t, f.Hash(), same.Hash())
	assert.False(t, f.Equal(NewFieldCacheIntRangeFilter(fc, "price", intp(3), intp(7), true, true)))
}

func TestFieldCacheStringRangeFilter(t *testing.T) {
	r := catalog(t)
	fc := NewFieldCache(0, nil)

	tests := []struct {
		name         string
		lower, upper string
		incL, incU   bool
		want         []int
	}{
		{"inclusive", "a", "b", true, true, []int{0, 1}},
		{"exclusive", "a", "c", false, false, []int{0}},
		{"open lower skips missing", "", "b", true, false, []int{1}},
		{"open upper", "b", "", true, true, []int{0, 3}},
		{"absent bounds", "aa", "bz", true, true, []int{0}},
		{"fully open", "", "", true, true, []int{0, 1, 3}},
		{"empty", "bb", "bc", true, true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFieldCacheStringRangeFilter(fc, "name", tt.lower, tt.upper, tt.incL, tt.incU)
			assert.Equal(t, tt.want, filterDocs(t, f, r))
		})
	}
	assert.Equal(t, "name:{* TO b]", NewFieldCacheStringRangeFilter(fc, "name", "", "b", false, true).String())
}

func TestFieldCacheFloatRangeFilter(t *testing.T) {
	r := catalog(t, 1)
	fc := NewFieldCache(0, nil)

	f := NewFieldCacheFloatRangeFilter(fc, "weight", floatp(1.5), floatp(35.25), false, true)
	assert.Equal(t, []int{3}, filterDocs(t, f, r), "deleted docs never match")

	f = NewFieldCacheFloatRangeFilter(fc, "weight", nil, floatp(1.5), true, true)
	assert.Equal(t, []int{0, 2}, filterDocs(t, f, r))
}
