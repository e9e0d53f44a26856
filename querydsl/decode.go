package querydsl

import (
	"fmt"
	"os"

	"github.com/hupe1980/lexis/codec"
)

// Parse decodes a Spec from data encoded with c. A nil codec means TOML.
func Parse(data []byte, c codec.Codec) (Spec, error) {
	if c == nil {
		c = codec.TOML{}
	}
	var s Spec
	if err := c.Unmarshal(data, &s); err != nil {
		return Spec{}, fmt.Errorf("decode %s query: %w", c.Name(), err)
	}
	return s, nil
}

// ParseFile decodes a Spec from a file, choosing the codec by extension.
func ParseFile(path string) (Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, err
	}
	return Parse(data, codec.ForPath(path))
}

// ParseMap decodes a Spec from a generic map, as produced by decoding a
// larger document into map[string]any.
func ParseMap(m map[string]any) (Spec, error) {
	data, err := codec.JSON{}.Marshal(m)
	if err != nil {
		return Spec{}, fmt.Errorf("encode query map: %w", err)
	}
	return Parse(data, codec.JSON{})
}
