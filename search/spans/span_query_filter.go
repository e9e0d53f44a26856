package spans

import (
	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/internal/docset"
	"github.com/hupe1980/lexis/search"
)

// SpanPosition is one matched span of a document.
type SpanPosition struct {
	Start int
	End   int
}

// DocSpans lists the spans matched in one document.
type DocSpans struct {
	Doc   int
	Spans []SpanPosition
}

// SpanFilterResult is the outcome of SpanQueryFilter.BitSpans.
type SpanFilterResult struct {
	Docs      *search.BitmapDocIDSet
	Positions []DocSpans
}

// SpanQueryFilter accepts the documents a span query matches and can also
// report where it matched.
type SpanQueryFilter struct {
	q SpanQuery
}

// NewSpanQueryFilter wraps q.
func NewSpanQueryFilter(q SpanQuery) (*SpanQueryFilter, error) {
	if q == nil {
		return nil, &search.ConfigError{Field: "query", Reason: "query is required"}
	}
	return &SpanQueryFilter{q: q}, nil
}

// Query returns the wrapped span query.
func (f *SpanQueryFilter) Query() SpanQuery { return f.q }

func (f *SpanQueryFilter) DocIDSet(r index.Reader) (search.DocIDSet, error) {
	res, err := f.BitSpans(r)
	if err != nil {
		return nil, err
	}
	return res.Docs, nil
}

// BitSpans collects the matching documents of r with their spans.
func (f *SpanQueryFilter) BitSpans(r index.Reader) (*SpanFilterResult, error) {
	sp, err := f.q.Spans(r)
	if err != nil {
		return nil, err
	}
	bm := docset.New()
	var positions []DocSpans
	for {
		ok, err := sp.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		doc := sp.Doc()
		if len(positions) == 0 || positions[len(positions)-1].Doc != doc {
			bm.Add(doc)
			positions = append(positions, DocSpans{Doc: doc})
		}
		last := &positions[len(positions)-1]
		last.Spans = append(last.Spans, SpanPosition{Start: sp.Start(), End: sp.End()})
	}
	return &SpanFilterResult{Docs: search.NewBitmapDocIDSet(bm), Positions: positions}, nil
}

func (f *SpanQueryFilter) Equal(other search.Filter) bool {
	o, ok := other.(*SpanQueryFilter)
	return ok && f.q.Equal(o.q)
}

func (f *SpanQueryFilter) Hash() uint64 {
	return search.NewQueryHasher("spanfilter").U64(f.q.Hash()).Sum()
}

func (f *SpanQueryFilter) String() string { return "SpanQueryFilter(" + f.q.String("") + ")" }
