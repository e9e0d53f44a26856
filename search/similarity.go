package search

import (
	"fmt"
	"math"
	"strings"

	"github.com/hupe1980/lexis/index"
)

// Similarity is the scoring model.
type Similarity interface {
	// LengthNorm is the index-time normalization for a field with numTerms tokens.
	LengthNorm(field string, numTerms int) float64
	// QueryNorm makes scores of different queries comparable.
	QueryNorm(sumOfSquaredWeights float64) float64
	// Tf scores a within-document frequency.
	Tf(freq float64) float64
	// SloppyFreq is the frequency contribution of a sloppy match of edit
	// distance distance.
	SloppyFreq(distance int) float64
	// Idf scores a term by its document frequency.
	Idf(docFreq, numDocs int) float64
	// Coord rewards documents matching more of a query's clauses.
	Coord(overlap, maxOverlap int) float64
	// ScorePayload scores a payload found at a span. Unused payloads score 1.
	ScorePayload(doc int, field string, start, end int, payload []byte) float64
}

// DefaultSimilarity is the classic tf-idf model.
type DefaultSimilarity struct{}

var _ Similarity = DefaultSimilarity{}

func (DefaultSimilarity) LengthNorm(_ string, numTerms int) float64 {
	return 1 / math.Sqrt(float64(numTerms))
}

func (DefaultSimilarity) QueryNorm(sumOfSquaredWeights float64) float64 {
	return 1 / math.Sqrt(sumOfSquaredWeights)
}

func (DefaultSimilarity) Tf(freq float64) float64 { return math.Sqrt(freq) }

func (DefaultSimilarity) SloppyFreq(distance int) float64 {
	return 1 / float64(distance+1)
}

func (DefaultSimilarity) Idf(docFreq, numDocs int) float64 {
	return math.Log(float64(numDocs)/float64(docFreq+1)) + 1
}

func (DefaultSimilarity) Coord(overlap, maxOverlap int) float64 {
	return float64(overlap) / float64(maxOverlap)
}

func (DefaultSimilarity) ScorePayload(int, string, int, int, []byte) float64 { return 1 }

// TfInt is Tf for integral frequencies.
func TfInt(sim Similarity, freq int) float64 { return sim.Tf(float64(freq)) }

// IdfTerm computes the idf of t against s and describes it.
func IdfTerm(sim Similarity, t index.Term, s Searcher) (IDFExplanation, error) {
	df, err := s.DocFreq(t)
	if err != nil {
		return IDFExplanation{}, err
	}
	maxDoc := s.MaxDoc()
	return IDFExplanation{
		Idf:     sim.Idf(df, maxDoc),
		Explain: fmt.Sprintf("idf(docFreq=%d, maxDocs=%d)", df, maxDoc),
	}, nil
}

// IdfTerms sums the idf of each term, as used by phrase queries.
func IdfTerms(sim Similarity, terms []index.Term, s Searcher) (IDFExplanation, error) {
	dfs, err := s.DocFreqs(terms)
	if err != nil {
		return IDFExplanation{}, err
	}
	maxDoc := s.MaxDoc()
	var (
		idf float64
		sb  strings.Builder
	)
	for i, t := range terms {
		idf += sim.Idf(dfs[i], maxDoc)
		fmt.Fprintf(&sb, " %s=%d", t.Text, dfs[i])
	}
	return IDFExplanation{Idf: idf, Explain: "idf(" + strings.TrimPrefix(sb.String(), " ") + ")"}, nil
}

// decodeNorm returns the norm factor of doc, 1 when the field has no norms.
func decodeNorm(norms []byte, doc int) float64 {
	if norms == nil {
		return 1
	}
	return index.DecodeNorm(norms[doc])
}
