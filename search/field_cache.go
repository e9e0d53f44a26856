package search

import (
	"fmt"
	"strconv"

	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/internal/cache"
	"github.com/hupe1980/lexis/internal/resource"
)

// IntParser converts indexed term text to an int. Implementations must be
// comparable; they are part of the cache key.
type IntParser interface {
	ParseInt(text string) (int, error)
}

// FloatParser converts indexed term text to a float64. Implementations
// must be comparable; they are part of the cache key.
type FloatParser interface {
	ParseFloat(text string) (float64, error)
}

// DecimalIntParser parses base-10 integers.
type DecimalIntParser struct{}

func (DecimalIntParser) ParseInt(text string) (int, error) { return strconv.Atoi(text) }

// DecimalFloatParser parses decimal floating point numbers.
type DecimalFloatParser struct{}

func (DecimalFloatParser) ParseFloat(text string) (float64, error) {
	return strconv.ParseFloat(text, 64)
}

// StringIndex holds, per document, the ordinal of its term in the sorted
// Lookup table. Ordinal 0 is reserved for documents without a term and
// Lookup[0] is "".
type StringIndex struct {
	Order  []int
	Lookup []string
}

// BinarySearchLookup returns the ordinal of key, or -(insertion point)-1
// when absent.
func (si *StringIndex) BinarySearchLookup(key string) int {
	lo, hi := 1, len(si.Lookup)-1
	for lo <= hi {
		mid := int(uint(lo+hi) >> 1)
		switch v := si.Lookup[mid]; {
		case v < key:
			lo = mid + 1
		case v > key:
			hi = mid - 1
		default:
			return mid
		}
	}
	return -(lo + 1)
}

type fieldCacheKey struct {
	core   any
	field  string
	kind   string
	parser any
}

// FieldCache un-inverts single-valued indexed fields into per-document
// arrays, one entry per (reader core, field, kind, parser). Entries live
// until evicted by the byte budget or purged.
//
// A nil *FieldCache is valid: it un-inverts on every call and keeps nothing.
type FieldCache struct {
	entries *cache.LRU[fieldCacheKey, any]
}

// NewFieldCache returns a cache holding at most capacity bytes (0 for
// unbounded). Entries are also charged to rc when it is non-nil.
func NewFieldCache(capacity int64, rc *resource.Controller) *FieldCache {
	return &FieldCache{entries: cache.NewLRU[fieldCacheKey, any](capacity, rc)}
}

func (fc *FieldCache) getOrCompute(k fieldCacheKey, compute func() (any, int64, error)) (any, error) {
	if fc == nil {
		v, _, err := compute()
		return v, err
	}
	return fc.entries.GetOrCompute(k, compute)
}

// Ints returns the int value of field for every document of r, 0 where absent.
func (fc *FieldCache) Ints(r index.Reader, field string, parser IntParser) ([]int, error) {
	if parser == nil {
		parser = DecimalIntParser{}
	}
	v, err := fc.getOrCompute(fieldCacheKey{r.CoreKey(), field, "int", parser}, func() (any, int64, error) {
		vals := make([]int, r.MaxDoc())
		err := uninvert(r, field, func(text string, doc int) error {
			n, err := parser.ParseInt(text)
			if err != nil {
				return err
			}
			vals[doc] = n
			return nil
		})
		return vals, int64(len(vals)) * 8, err
	})
	if err != nil {
		return nil, err
	}
	return v.([]int), nil
}

// Floats returns the float value of field for every document of r, 0 where absent.
func (fc *FieldCache) Floats(r index.Reader, field string, parser FloatParser) ([]float64, error) {
	if parser == nil {
		parser = DecimalFloatParser{}
	}
	v, err := fc.getOrCompute(fieldCacheKey{r.CoreKey(), field, "float", parser}, func() (any, int64, error) {
		vals := make([]float64, r.MaxDoc())
		err := uninvert(r, field, func(text string, doc int) error {
			f, err := parser.ParseFloat(text)
			if err != nil {
				return err
			}
			vals[doc] = f
			return nil
		})
		return vals, int64(len(vals)) * 8, err
	})
	if err != nil {
		return nil, err
	}
	return v.([]float64), nil
}

// Strings returns the term of field for every document of r, "" where absent.
func (fc *FieldCache) Strings(r index.Reader, field string) ([]string, error) {
	v, err := fc.getOrCompute(fieldCacheKey{r.CoreKey(), field, "string", nil}, func() (any, int64, error) {
		vals := make([]string, r.MaxDoc())
		size := int64(len(vals)) * 16
		err := uninvert(r, field, func(text string, doc int) error {
			vals[doc] = text
			return nil
		})
		for _, s := range vals {
			size += int64(len(s))
		}
		return vals, size, err
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// StringIndex returns the ordinal form of field for r.
func (fc *FieldCache) StringIndex(r index.Reader, field string) (*StringIndex, error) {
	v, err := fc.getOrCompute(fieldCacheKey{r.CoreKey(), field, "stringindex", nil}, func() (any, int64, error) {
		si := &StringIndex{Order: make([]int, r.MaxDoc()), Lookup: []string{""}}
		size := int64(len(si.Order)) * 8
		err := uninvert(r, field, func(text string, doc int) error {
			if si.Lookup[len(si.Lookup)-1] != text || len(si.Lookup) == 1 {
				si.Lookup = append(si.Lookup, text)
				size += int64(len(text)) + 16
			}
			si.Order[doc] = len(si.Lookup) - 1
			return nil
		})
		return si, size, err
	})
	if err != nil {
		return nil, err
	}
	return v.(*StringIndex), nil
}

// Purge drops every entry of r.
func (fc *FieldCache) Purge(r index.Reader) {
	if fc == nil {
		return
	}
	core := r.CoreKey()
	fc.entries.Invalidate(func(k fieldCacheKey) bool { return k.core == core })
}

// PurgeAll drops every entry.
func (fc *FieldCache) PurgeAll() {
	if fc != nil {
		fc.entries.Purge()
	}
}

// Size returns the bytes held.
func (fc *FieldCache) Size() int64 {
	if fc == nil {
		return 0
	}
	return fc.entries.Size()
}

// uninvert calls fn for every (term text, doc) posting of field, in term order.
func uninvert(r index.Reader, field string, fn func(text string, doc int) error) error {
	te, err := r.Terms(index.NewTerm(field, ""))
	if err != nil {
		return err
	}
	for {
		ok, err := te.Next()
		if err != nil {
			return err
		}
		if !ok || te.Term().Field != field {
			return nil
		}
		t := te.Term()
		td, err := r.TermDocs(t)
		if err != nil {
			return err
		}
		for {
			ok, err := td.Next()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			if err := fn(t.Text, td.Doc()); err != nil {
				return fmt.Errorf("field cache %s: term %q: %w", field, t.Text, err)
			}
		}
	}
}
