// Package codec centralizes the encodings used for stored documents and query files.
//
// Codecs are selected by a stable name so callers (the CLI, the query DSL) can
// pick one from a file extension or a flag.
package codec

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch strings.ToLower(name) {
	case "json":
		return JSON{}, true
	case "go-json", "gojson":
		return GoJSON{}, true
	case "toml":
		return TOML{}, true
	default:
		return nil, false
	}
}

// ForPath selects a codec from a file extension, falling back to Default.
func ForPath(path string) Codec {
	if c, ok := ByName(strings.TrimPrefix(filepath.Ext(path), ".")); ok {
		return c
	}
	return Default
}

// MustMarshal is a helper for tests.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}

// Default is the codec used for stored documents and for files whose
// extension names no codec.
var Default Codec = GoJSON{}
