package memindex

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/lexis/internal/hash"
)

// CompressionType selects how stored-field blocks are compressed.
type CompressionType uint8

const (
	// CompressionNone stores blocks as-is.
	CompressionNone CompressionType = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 CompressionType = 1
	// CompressionZSTD uses ZSTD (better ratio).
	CompressionZSTD CompressionType = 2
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression maps a name ("none", "lz4", "zstd") to a CompressionType.
func ParseCompression(name string) (CompressionType, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", name)
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Block layout: [uncompressed uint32][compressed uint32][crc32c uint32][data].
// A compressed size of 0 marks a block stored raw. The checksum covers the
// uncompressed bytes.
const blockHeaderSize = 12

var errCorruptBlock = errors.New("corrupt stored-field block")

func compressBlock(data []byte, ct CompressionType) ([]byte, error) {
	var compressed []byte
	switch ct {
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		compressed = buf[:n]
	case CompressionZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	}

	// keep raw when compression does not pay off
	raw := len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9
	payload := compressed
	if raw {
		payload = data
	}
	out := make([]byte, blockHeaderSize+len(payload))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	if !raw {
		binary.LittleEndian.PutUint32(out[4:], uint32(len(compressed)))
	}
	binary.LittleEndian.PutUint32(out[8:], hash.CRC32C(data))
	copy(out[blockHeaderSize:], payload)
	return out, nil
}

func decompressBlock(block []byte, ct CompressionType) ([]byte, error) {
	if len(block) < blockHeaderSize {
		return nil, errCorruptBlock
	}
	data, err := decodeBlock(block, ct)
	if err != nil {
		return nil, err
	}
	if err := hash.Verify(data, binary.LittleEndian.Uint32(block[8:])); err != nil {
		return nil, fmt.Errorf("%w: %w", errCorruptBlock, err)
	}
	return data, nil
}

func decodeBlock(block []byte, ct CompressionType) ([]byte, error) {
	size := binary.LittleEndian.Uint32(block[0:])
	csize := binary.LittleEndian.Uint32(block[4:])
	if csize == 0 {
		if uint32(len(block)-blockHeaderSize) < size {
			return nil, errCorruptBlock
		}
		return block[blockHeaderSize : blockHeaderSize+size], nil
	}
	if uint32(len(block)-blockHeaderSize) < csize {
		return nil, errCorruptBlock
	}
	payload := block[blockHeaderSize : blockHeaderSize+csize]
	out := make([]byte, size)

	switch ct {
	case CompressionZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		decoded, err := dec.DecodeAll(payload, out[:0])
		if err != nil {
			return nil, err
		}
		if uint32(len(decoded)) != size {
			return nil, errCorruptBlock
		}
		return decoded, nil
	default:
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, err
		}
		if uint32(n) != size {
			return nil, errCorruptBlock
		}
		return out, nil
	}
}
