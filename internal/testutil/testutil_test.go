package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCorpusIsDeterministic(t *testing.T) {
	vocab := Vocabulary(20)
	a := NewRNG(4711).Corpus(10, vocab, 2, 5)
	b := NewRNG(4711).Corpus(10, vocab, 2, 5)
	assert.Equal(t, a, b)
	for _, doc := range a {
		n := len(strings.Fields(doc))
		assert.GreaterOrEqual(t, n, 2)
		assert.LessOrEqual(t, n, 5)
	}
}

func TestZipfSkew(t *testing.T) {
	rng := NewRNG(1)
	counts := make([]int, 10)
	for range 2000 {
		counts[rng.Zipf(10, 1.5)]++
	}
	assert.Greater(t, counts[0], counts[9])
}

func TestShards(t *testing.T) {
	shards := Shards(t, "f", []string{"a", "b", "c", "d", "e"}, 2)
	assert.Len(t, shards, 2)
	assert.Equal(t, 3, shards[0].MaxDoc())
	assert.Equal(t, 2, shards[1].MaxDoc())
}
