package search

import (
	"fmt"
	"math"

	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/internal/docset"
)

// FieldCacheRangeFilter accepts documents whose field cache value lies in a
// range. It reads the whole field into the cache on first use, which makes
// repeated ranges over the same field cheap.
type FieldCacheRangeFilter struct {
	field                      string
	kind                       string
	lower, upper               any
	includeLower, includeUpper bool
	fc                         *FieldCache
	matcher                    func(r index.Reader) (func(doc int) bool, error)
}

// NewFieldCacheStringRangeFilter accepts documents whose term lies between
// lower and upper; "" leaves a bound open. Documents without a term never match.
func NewFieldCacheStringRangeFilter(fc *FieldCache, field, lower, upper string, includeLower, includeUpper bool) *FieldCacheRangeFilter {
	f := newFieldCacheRangeFilter(fc, field, "string", lower, upper, includeLower, includeUpper)
	f.matcher = func(r index.Reader) (func(int) bool, error) {
		si, err := f.fc.StringIndex(r, field)
		if err != nil {
			return nil, err
		}
		lo, hi := 1, math.MaxInt
		if lower != "" {
			p := si.BinarySearchLookup(lower)
			switch {
			case p >= 0 && !includeLower:
				lo = p + 1
			case p >= 0:
				lo = p
			default:
				lo = -p - 1
			}
		}
		if upper != "" {
			p := si.BinarySearchLookup(upper)
			switch {
			case p >= 0 && !includeUpper:
				hi = p - 1
			case p >= 0:
				hi = p
			default:
				hi = -p - 2
			}
		}
		lo = max(lo, 1)
		return func(doc int) bool {
			ord := si.Order[doc]
			return ord >= lo && ord <= hi
		}, nil
	}
	return f
}

// NewFieldCacheIntRangeFilter accepts documents whose int value lies
// between lower and upper; nil leaves a bound open. Documents without a
// value read as 0.
func NewFieldCacheIntRangeFilter(fc *FieldCache, field string, lower, upper *int, includeLower, includeUpper bool) *FieldCacheRangeFilter {
	lo, hi := math.MinInt, math.MaxInt
	empty := false
	if lower != nil {
		lo = *lower
		if !includeLower {
			if lo == math.MaxInt {
				empty = true
			}
			lo++
		}
	}
	if upper != nil {
		hi = *upper
		if !includeUpper {
			if hi == math.MinInt {
				empty = true
			}
			hi--
		}
	}
	f := newFieldCacheRangeFilter(fc, field, "int", derefOrNil(lower), derefOrNil(upper), includeLower, includeUpper)
	f.matcher = func(r index.Reader) (func(int) bool, error) {
		if empty || lo > hi {
			return nil, nil
		}
		vals, err := f.fc.Ints(r, field, nil)
		if err != nil {
			return nil, err
		}
		return func(doc int) bool { return vals[doc] >= lo && vals[doc] <= hi }, nil
	}
	return f
}

// NewFieldCacheFloatRangeFilter is the float64 form of NewFieldCacheIntRangeFilter.
func NewFieldCacheFloatRangeFilter(fc *FieldCache, field string, lower, upper *float64, includeLower, includeUpper bool) *FieldCacheRangeFilter {
	f := newFieldCacheRangeFilter(fc, field, "float", derefOrNil(lower), derefOrNil(upper), includeLower, includeUpper)
	f.matcher = func(r index.Reader) (func(int) bool, error) {
		vals, err := f.fc.Floats(r, field, nil)
		if err != nil {
			return nil, err
		}
		return func(doc int) bool {
			v := vals[doc]
			if lower != nil && (v < *lower || (!includeLower && v == *lower)) {
				return false
			}
			if upper != nil && (v > *upper || (!includeUpper && v == *upper)) {
				return false
			}
			return true
		}, nil
	}
	return f
}

func newFieldCacheRangeFilter(fc *FieldCache, field, kind string, lower, upper any, includeLower, includeUpper bool) *FieldCacheRangeFilter {
	return &FieldCacheRangeFilter{
		field:        field,
		kind:         kind,
		lower:        lower,
		upper:        upper,
		includeLower: includeLower,
		includeUpper: includeUpper,
		fc:           fc,
	}
}

func derefOrNil[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func (f *FieldCacheRangeFilter) DocIDSet(r index.Reader) (DocIDSet, error) {
	match, err := f.matcher(r)
	if err != nil || match == nil {
		return nil, err
	}
	bm := docset.New()
	for doc := range r.MaxDoc() {
		if !r.IsDeleted(doc) && match(doc) {
			bm.Add(doc)
		}
	}
	return NewBitmapDocIDSet(bm), nil
}

func (f *FieldCacheRangeFilter) Equal(other Filter) bool {
	o, ok := other.(*FieldCacheRangeFilter)
	return ok && f.field == o.field && f.kind == o.kind &&
		f.lower == o.lower && f.upper == o.upper &&
		f.includeLower == o.includeLower && f.includeUpper == o.includeUpper
}

func (f *FieldCacheRangeFilter) Hash() uint64 {
	return NewQueryHasher("fcrange").Str(f.field).Str(f.kind).
		Str(fmt.Sprint(f.lower)).Str(fmt.Sprint(f.upper)).
		Bool(f.includeLower).Bool(f.includeUpper).Sum()
}

func (f *FieldCacheRangeFilter) String() string {
	open, closeB := "{", "}"
	if f.includeLower {
		open = "["
	}
	if f.includeUpper {
		closeB = "]"
	}
	bound := func(v any) string {
		if v == nil || v == "" {
			return "*"
		}
		return fmt.Sprint(v)
	}
	return fmt.Sprintf("%s:%s%s TO %s%s", f.field, open, bound(f.lower), bound(f.upper), closeB)
}
