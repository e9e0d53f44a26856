package search

import (
	"context"

	"github.com/hupe1980/lexis/index"
)

// Searchable is the weight-level contract shared by IndexSearcher and
// MultiSearcher, and the unit a MultiSearcher fans out to.
type Searchable interface {
	// SearchWeight feeds every match of w, restricted by filter, to c.
	SearchWeight(ctx context.Context, w Weight, filter Filter, c Collector) error
	// TopDocsWeight returns the n best matches of w.
	TopDocsWeight(ctx context.Context, w Weight, filter Filter, n int) (*TopDocs, error)
	// TopFieldDocsWeight returns the n first matches of w in sort order.
	TopFieldDocsWeight(ctx context.Context, w Weight, filter Filter, n int, sort *Sort) (*TopFieldDocs, error)
	// ExplainWeight describes the score of global doc id doc.
	ExplainWeight(w Weight, doc int) (*Explanation, error)
	// Rewrite rewrites q until it no longer changes.
	Rewrite(q Query) (Query, error)
	// Doc loads the stored fields of global doc id n.
	Doc(n int) (*index.Document, error)
	// DocFreq is the number of documents containing t.
	DocFreq(t index.Term) (int, error)
	// DocFreqs is DocFreq for several terms.
	DocFreqs(terms []index.Term) ([]int, error)
	// MaxDoc is one more than the largest global doc id.
	MaxDoc() int
}

// Searcher is a Searchable with a similarity. Queries bind to a Searcher to
// create their weights.
type Searcher interface {
	Searchable
	Similarity() Similarity
}

// docFreqs is the default DocFreqs implementation.
func docFreqs(s interface {
	DocFreq(index.Term) (int, error)
}, terms []index.Term) ([]int, error) {
	out := make([]int, len(terms))
	for i, t := range terms {
		df, err := s.DocFreq(t)
		if err != nil {
			return nil, err
		}
		out[i] = df
	}
	return out, nil
}

// rewriteFully rewrites q against r until the result equals its input.
func rewriteFully(q Query, r index.Reader) (Query, error) {
	for {
		rewritten, err := q.Rewrite(r)
		if err != nil {
			return nil, err
		}
		if rewritten.Equal(q) {
			return q, nil
		}
		q = rewritten
	}
}
