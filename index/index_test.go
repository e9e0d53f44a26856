package index_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/index/memindex"
)

func segment(t *testing.T, texts ...string) *memindex.Segment {
	t.Helper()
	b := memindex.NewBuilder()
	for _, text := range texts {
		_, err := b.Add(index.NewDocument(index.TextField("f", text)))
		require.NoError(t, err)
	}
	s, err := b.Build()
	require.NoError(t, err)
	return s
}

func TestNormEncoding(t *testing.T) {
	assert.Equal(t, byte(0), index.EncodeNorm(0))
	assert.Equal(t, byte(0), index.EncodeNorm(-3))
	assert.Equal(t, byte(1), index.EncodeNorm(1e-30))
	assert.Equal(t, byte(0xFF), index.EncodeNorm(1e30))
	assert.Equal(t, 1.0, index.DecodeNorm(index.EncodeNorm(1)))

	for b := 1; b < 256; b++ {
		f := index.DecodeNorm(byte(b))
		assert.Equal(t, byte(b), index.EncodeNorm(f), "byte %d", b)
		assert.Greater(t, f, index.DecodeNorm(byte(b-1)))
	}
	assert.LessOrEqual(t, index.DecodeNorm(index.EncodeNorm(0.3)), 0.3)
}

func TestSubIndex(t *testing.T) {
	starts := []int{0, 3, 3, 10}
	cases := map[int]int{0: 0, 2: 0, 3: 2, 9: 2, 10: 3, 50: 3}
	for doc, want := range cases {
		assert.Equal(t, want, index.SubIndex(doc, starts), "doc %d", doc)
	}
}

func TestMultiReader(t *testing.T) {
	a := segment(t, "x y", "y")
	empty := segment(t)
	b := segment(t, "x", "z x")
	m := index.NewMultiReader(a, empty, b)

	assert.Equal(t, 4, m.MaxDoc())
	assert.Equal(t, 4, m.NumDocs())
	assert.Len(t, index.GatherSubReaders(m), 3)
	assert.Equal(t, []int{0, 2, 2}, index.DocStarts(index.GatherSubReaders(m)))

	df, err := m.DocFreq(index.NewTerm("f", "x"))
	require.NoError(t, err)
	assert.Equal(t, 3, df)

	td, err := m.TermDocs(index.NewTerm("f", "x"))
	require.NoError(t, err)
	var docs []int
	for {
		ok, err := td.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		docs = append(docs, td.Doc())
	}
	assert.Equal(t, []int{0, 2, 3}, docs)

	tp, err := m.TermPositions(index.NewTerm("f", "x"))
	require.NoError(t, err)
	ok, err := tp.SkipTo(3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, tp.Doc())
	pos, err := tp.NextPosition()
	require.NoError(t, err)
	assert.Equal(t, 1, pos)

	doc, err := m.Document(3)
	require.NoError(t, err)
	assert.Equal(t, "z x", doc.Get("f"))

	norms, err := m.Norms("f")
	require.NoError(t, err)
	assert.Len(t, norms, 4)
}

func TestMultiReaderTerms(t *testing.T) {
	m := index.NewMultiReader(segment(t, "b c"), segment(t, "a c d"))
	te, err := m.Terms(index.NewTerm("f", ""))
	require.NoError(t, err)

	got := map[string]int{}
	var order []string
	for {
		ok, err := te.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		order = append(order, te.Term().Text)
		got[te.Term().Text] = te.DocFreq()
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, order)
	assert.Equal(t, 2, got["c"])
}

func TestAllDocsSkipsDeleted(t *testing.T) {
	b := memindex.NewBuilder()
	for range 4 {
		_, err := b.Add(index.NewDocument(index.TextField("f", "x")))
		require.NoError(t, err)
	}
	require.NoError(t, b.Delete(2))
	s, err := b.Build()
	require.NoError(t, err)

	td := index.AllDocs(s)
	var docs []int
	for {
		ok, err := td.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		docs = append(docs, td.Doc())
	}
	assert.Equal(t, []int{0, 1, 3}, docs)
}

func TestTermCompare(t *testing.T) {
	assert.Negative(t, index.NewTerm("a", "z").Compare(index.NewTerm("b", "a")))
	assert.Positive(t, index.NewTerm("a", "b").Compare(index.NewTerm("a", "a")))
	assert.Zero(t, index.NewTerm("a", "b").Compare(index.NewTerm("a", "b")))
	assert.Equal(t, "f:x", index.NewTerm("f", "x").String())
}
