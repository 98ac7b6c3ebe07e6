// Package facet implements the two-level facet-tree scan: a bounded,
// directional single-level range (Range / RevRange) and the
// multi-level descent built on top of it (LevelIterator).
package facet

import (
	"math"

	"github.com/RoaringBitmap/roaring"

	"github.com/kestrelsearch/kestrel"
)

// Ordered is the set of facet value types Range/RevRange/LevelIterator
// may scan over. Only one instantiation (int64, matching
// kestrel.FacetValue) is exercised today, but the scan logic itself
// does not depend on that choice.
type Ordered interface {
	~int64
}

// Bound is one endpoint of a facet value range, independent of the
// byte-level kestrel.Bound used to talk to the store.
type Bound[T Ordered] struct {
	Kind  kestrel.BoundKind
	Value T
}

// UnboundedBound is the open endpoint.
func UnboundedBound[T Ordered]() Bound[T] { return Bound[T]{Kind: kestrel.Unbounded} }

// IncludedBound returns an endpoint that includes v.
func IncludedBound[T Ordered](v T) Bound[T] { return Bound[T]{Kind: kestrel.Included, Value: v} }

// ExcludedBound returns an endpoint that excludes v.
func ExcludedBound[T Ordered](v T) Bound[T] { return Bound[T]{Kind: kestrel.Excluded, Value: v} }

func minValue[T Ordered]() T { return T(math.MinInt64) }
func maxValue[T Ordered]() T { return T(math.MaxInt64) }

// Entry is one facet-tree node reached by a scan: the (low, high) value
// range it covers at its level and the document bitmap stored there.
type Entry[T Ordered] struct {
	Low, High T
	Bitmap    *roaring.Bitmap
}

// Range scans TableFacets entries for one (field, level) in ascending
// value order starting at left, stopping as soon as an entry's high
// value passes right — since entries are visited in ascending order,
// once one entry fails the right bound every later one would too.
type Range[T Ordered] struct {
	it    kestrel.EntryIterator
	right Bound[T]
	done  bool
	err   error
}

// NewRange opens an ascending scan of field/level bounded by [left, right].
func NewRange[T Ordered](txn kestrel.StoreTxn, field, level uint8, left, right Bound[T]) (*Range[T], error) {
	lowKey := lowEndpointKey(field, level, left)
	highKey := kestrel.FacetKey(field, level, int64(maxValue[T]()), int64(maxValue[T]()))
	it, err := txn.RangeScan(kestrel.TableFacets, lowKeyBound(left, lowKey), kestrel.IncludedBound(highKey))
	if err != nil {
		return nil, err
	}
	return &Range[T]{it: it, right: right}, nil
}

// Next returns the next entry, or ok=false once the right bound is
// passed, the underlying scan is exhausted, or an error occurred (see Err).
func (r *Range[T]) Next() (Entry[T], bool) {
	if r.done {
		return Entry[T]{}, false
	}
	e, ok := r.it.Next()
	if !ok {
		r.done = true
		r.err = r.it.Err()
		return Entry[T]{}, false
	}
	_, _, low, high, parsed := kestrel.ParseFacetKey(e.Key)
	if !parsed {
		r.done = true
		r.err = kestrel.DecodeError("malformed facet key", nil)
		return Entry[T]{}, false
	}
	if !withinRight(r.right, T(high)) {
		r.done = true
		return Entry[T]{}, false
	}
	bm, err := e.Bitmap.Decode()
	if err != nil {
		r.done = true
		r.err = err
		return Entry[T]{}, false
	}
	return Entry[T]{Low: T(low), High: T(high), Bitmap: bm}, true
}

// Err returns the first error encountered, if any.
func (r *Range[T]) Err() error { return r.err }

// RevRange is Range in descending value order. Because entries are
// visited from the top down, an entry failing the right bound does not
// preclude a later (smaller) one from satisfying it, so failures are
// skipped rather than ending the scan.
type RevRange[T Ordered] struct {
	it    kestrel.EntryIterator
	right Bound[T]
	done  bool
	err   error
}

// NewRevRange opens a descending scan of field/level bounded by [left, right].
func NewRevRange[T Ordered](txn kestrel.StoreTxn, field, level uint8, left, right Bound[T]) (*RevRange[T], error) {
	lowKey := lowEndpointKey(field, level, left)
	highKey := kestrel.FacetKey(field, level, int64(maxValue[T]()), int64(maxValue[T]()))
	it, err := txn.ReverseRangeScan(kestrel.TableFacets, lowKeyBound(left, lowKey), kestrel.IncludedBound(highKey))
	if err != nil {
		return nil, err
	}
	return &RevRange[T]{it: it, right: right}, nil
}

// Next returns the next entry in descending order, skipping any whose
// high value does not satisfy the right bound, or ok=false once
// exhausted.
func (r *RevRange[T]) Next() (Entry[T], bool) {
	if r.done {
		return Entry[T]{}, false
	}
	for {
		e, ok := r.it.Next()
		if !ok {
			r.done = true
			r.err = r.it.Err()
			return Entry[T]{}, false
		}
		_, _, low, high, parsed := kestrel.ParseFacetKey(e.Key)
		if !parsed {
			r.done = true
			r.err = kestrel.DecodeError("malformed facet key", nil)
			return Entry[T]{}, false
		}
		if !withinRight(r.right, T(high)) {
			continue
		}
		bm, err := e.Bitmap.Decode()
		if err != nil {
			r.done = true
			r.err = err
			return Entry[T]{}, false
		}
		return Entry[T]{Low: T(low), High: T(high), Bitmap: bm}, true
	}
}

// Err returns the first error encountered, if any.
func (r *RevRange[T]) Err() error { return r.err }

func withinRight[T Ordered](right Bound[T], high T) bool {
	switch right.Kind {
	case kestrel.Included:
		return high <= right.Value
	case kestrel.Excluded:
		return high < right.Value
	default:
		return true
	}
}

func lowEndpointKey[T Ordered](field, level uint8, left Bound[T]) []byte {
	switch left.Kind {
	case kestrel.Included:
		return kestrel.FacetKey(field, level, int64(left.Value), int64(minValue[T]()))
	case kestrel.Excluded:
		// Keys sort by low then high, so (left.Value, maxValue) is
		// greater than or equal to every key with that exact low value
		// and less than every key with a larger one: requiring keys
		// strictly past it skips left.Value itself without skipping
		// anything above it.
		return kestrel.FacetKey(field, level, int64(left.Value), int64(maxValue[T]()))
	default:
		return kestrel.FacetKey(field, level, int64(minValue[T]()), int64(minValue[T]()))
	}
}

func lowKeyBound[T Ordered](left Bound[T], key []byte) kestrel.Bound {
	if left.Kind == kestrel.Excluded {
		return kestrel.ExcludedBound(key)
	}
	return kestrel.IncludedBound(key)
}
