package memindex

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/lexis/internal/hash"
)

func TestBlockRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("quick brown fox "), 64)

	for _, ct := range []CompressionType{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(ct.String(), func(t *testing.T) {
			block, err := compressBlock(data, ct)
			require.NoError(t, err)
			if ct != CompressionNone {
				assert.Less(t, len(block), len(data))
			}

			out, err := decompressBlock(block, ct)
			require.NoError(t, err)
			assert.Equal(t, data, out)
		})
	}
}

func TestBlockIncompressibleStoredRaw(t *testing.T) {
	data := []byte("abc")
	block, err := compressBlock(data, CompressionLZ4)
	require.NoError(t, err)
	assert.Len(t, block, blockHeaderSize+len(data))

	out, err := decompressBlock(block, CompressionLZ4)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestBlockCorruption(t *testing.T) {
	data := []byte("the lazy dog")
	block, err := compressBlock(data, CompressionNone)
	require.NoError(t, err)

	block[blockHeaderSize] ^= 0xff
	_, err = decompressBlock(block, CompressionNone)
	assert.ErrorIs(t, err, errCorruptBlock)
	assert.ErrorIs(t, err, hash.ErrChecksumMismatch)

	_, err = decompressBlock(block[:4], CompressionNone)
	assert.ErrorIs(t, err, errCorruptBlock)
}
