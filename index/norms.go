package index

import "math"

// Norms are stored as one byte per document: a float with a 3-bit mantissa and a
// 5-bit exponent (zero exponent point 15). The encoding is lossy; DecodeNorm of
// EncodeNorm(f) is the largest representable value <= f.

const (
	normMantissaBits = 3
	normZeroExp      = 15
	normFZero        = (63 - normZeroExp) << normMantissaBits
)

var normTable = func() [256]float64 {
	var t [256]float64
	for i := range t {
		t[i] = float64(byteToFloat(byte(i)))
	}
	return t
}()

// EncodeNorm encodes f into a single byte. Negative values and zero encode to 0,
// positive values too small to represent encode to 1, overflow saturates at 255.
func EncodeNorm(f float64) byte {
	bits := int32(math.Float32bits(float32(f)))
	small := bits >> (24 - normMantissaBits)
	if small <= normFZero {
		if bits <= 0 {
			return 0
		}
		return 1
	}
	if small >= normFZero+0x100 {
		return 0xFF
	}
	return byte(small - normFZero)
}

// DecodeNorm decodes a norm byte.
func DecodeNorm(b byte) float64 {
	return normTable[b]
}

func byteToFloat(b byte) float32 {
	if b == 0 {
		return 0
	}
	bits := uint32(b) << (24 - normMantissaBits)
	bits += (63 - normZeroExp) << 24
	return math.Float32frombits(bits)
}
