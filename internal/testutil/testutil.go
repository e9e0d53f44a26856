package testutil

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/index/memindex"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Zipf returns a Zipfian-distributed value in [0, n).
// s=1.0 gives standard Zipf, larger s gives a heavier head.
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}
	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}
	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1
		}
	}
	return n - 1
}

// Vocabulary returns n distinct words w0..w(n-1).
func Vocabulary(n int) []string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return words
}

// Corpus generates num documents of minLen..maxLen words drawn from vocab with
// a Zipfian distribution, so low-index words are frequent.
func (r *RNG) Corpus(num int, vocab []string, minLen, maxLen int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	docs := make([]string, num)
	for i := range docs {
		n := minLen
		if maxLen > minLen {
			n += r.rand.Intn(maxLen - minLen + 1)
		}
		words := make([]string, n)
		for j := range words {
			words[j] = vocab[r.zipfLocked(len(vocab), 1.1)]
		}
		docs[i] = strings.Join(words, " ")
	}
	return docs
}

// Segment builds one in-memory segment with one text field per document.
func Segment(t testing.TB, field string, texts ...string) *memindex.Segment {
	t.Helper()
	b := memindex.NewBuilder()
	for _, text := range texts {
		_, err := b.Add(index.NewDocument(index.TextField(field, text)))
		require.NoError(t, err)
	}
	seg, err := b.Build()
	require.NoError(t, err)
	return seg
}

// Shards splits texts into n contiguous segments, preserving document order.
func Shards(t testing.TB, field string, texts []string, n int) []*memindex.Segment {
	t.Helper()
	size := (len(texts) + n - 1) / n
	shards := make([]*memindex.Segment, 0, n)
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		shards = append(shards, Segment(t, field, texts[start:end]...))
	}
	return shards
}

// Readers converts segments to readers.
func Readers(segs []*memindex.Segment) []index.Reader {
	out := make([]index.Reader, len(segs))
	for i, s := range segs {
		out[i] = s
	}
	return out
}
