package memindex

import (
	"math"

	"github.com/hupe1980/lexis/codec"
	"github.com/hupe1980/lexis/index"
)

// Analyzer turns the text of a field into tokens.
type Analyzer func(field, text string) []index.Token

// LengthNormFunc computes the length factor of a field with numTerms tokens.
type LengthNormFunc func(field string, numTerms int) float64

// Option configures a Builder.
type Option func(*options)

type options struct {
	analyzer    Analyzer
	lengthNorm  LengthNormFunc
	compression CompressionType
	codec       codec.Codec
}

// WithAnalyzer replaces the default lower-casing letter/digit tokenizer.
func WithAnalyzer(a Analyzer) Option {
	return func(o *options) {
		o.analyzer = a
	}
}

// WithLengthNorm sets the norm length factor. Defaults to 1/sqrt(numTerms).
func WithLengthNorm(fn LengthNormFunc) Option {
	return func(o *options) {
		o.lengthNorm = fn
	}
}

// WithCompression sets the block compression of stored fields.
func WithCompression(c CompressionType) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithCodec sets the encoding of stored fields before compression.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		o.codec = c
	}
}

func applyOptions(opts []Option) options {
	o := options{
		analyzer:    SimpleAnalyzer,
		lengthNorm:  defaultLengthNorm,
		compression: CompressionLZ4,
		codec:       codec.Default,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func defaultLengthNorm(_ string, numTerms int) float64 {
	if numTerms <= 0 {
		return 1
	}
	return 1 / math.Sqrt(float64(numTerms))
}
