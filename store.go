package kestrel

import "github.com/RoaringBitmap/roaring"

// BoundKind selects how a range scan endpoint is interpreted.
type BoundKind int

const (
	// Unbounded means the scan is open on this side.
	Unbounded BoundKind = iota
	// Included means the endpoint key itself is part of the scan.
	Included
	// Excluded means the endpoint key itself is not part of the scan.
	Excluded
)

// Bound is one endpoint of a range scan.
type Bound struct {
	Kind BoundKind
	Key  []byte
}

// UnboundedBound is the open endpoint.
func UnboundedBound() Bound { return Bound{Kind: Unbounded} }

// IncludedBound returns an endpoint that includes key.
func IncludedBound(key []byte) Bound { return Bound{Kind: Included, Key: key} }

// ExcludedBound returns an endpoint that excludes key.
func ExcludedBound(key []byte) Bound { return Bound{Kind: Excluded, Key: key} }

// LazyBitmap defers roaring decoding until Decode is called, so a
// caller that only needs the key (for example, to find the highest
// populated facet level) pays no decoding cost.
type LazyBitmap interface {
	// Bytes returns the raw serialized bitmap.
	Bytes() []byte
	// Decode deserializes the bitmap, caching the result.
	Decode() (*roaring.Bitmap, error)
}

// Entry is one (key, lazily-decoded bitmap) pair returned by a scan.
type Entry struct {
	Key    []byte
	Bitmap LazyBitmap
}

// StoreTxn is the read-only view of the posting-list store that the
// ranking core requires. All scans are in lexicographic key order (or
// reverse, for ReverseRangeScan); bitmap decoding is lazy.
//
// A StoreTxn is bound to a single point-in-time snapshot: concurrent
// search calls may each hold their own StoreTxn without blocking one
// another.
type StoreTxn interface {
	// GetBitmap returns the bitmap stored at key in table, or nil if
	// absent.
	GetBitmap(table Table, key []byte) (*roaring.Bitmap, error)
	// GetRaw returns the raw bytes stored at key in table, or nil if
	// absent. Used for the non-bitmap tables (TableMeta, TableDocuments).
	GetRaw(table Table, key []byte) ([]byte, error)
	// PrefixScan iterates entries of table whose key has the given
	// prefix, in ascending key order.
	PrefixScan(table Table, prefix []byte) (EntryIterator, error)
	// RangeScan iterates entries of table with low <= key <= high
	// (subject to the bounds' inclusion/exclusion), in ascending
	// key order.
	RangeScan(table Table, low, high Bound) (EntryIterator, error)
	// ReverseRangeScan is RangeScan in descending key order.
	ReverseRangeScan(table Table, low, high Bound) (EntryIterator, error)
}

// EntryIterator is a forward-only cursor over a sequence of Entry
// values. Next reports whether an entry is available; Err reports the
// first iteration error, surfaced once the iterator is exhausted.
type EntryIterator interface {
	Next() (Entry, bool)
	Err() error
}

// sliceIterator adapts a pre-materialized slice of entries to
// EntryIterator, used by in-memory store implementations and tests.
type sliceIterator struct {
	entries []Entry
	pos     int
}

// NewSliceIterator returns an EntryIterator over a fixed slice of
// entries, already in the order the caller wants to expose.
func NewSliceIterator(entries []Entry) EntryIterator {
	return &sliceIterator{entries: entries}
}

func (it *sliceIterator) Next() (Entry, bool) {
	if it.pos >= len(it.entries) {
		return Entry{}, false
	}
	e := it.entries[it.pos]
	it.pos++
	return e, true
}

func (it *sliceIterator) Err() error { return nil }

// eagerLazyBitmap is the LazyBitmap implementation behind both
// constructors: it either wraps an already-decoded bitmap (in-memory
// stores, NewEagerLazyBitmap) or holds a serialized payload that it
// decodes on the first Decode call (NewRawLazyBitmap).
type eagerLazyBitmap struct {
	raw     []byte
	bitmap  *roaring.Bitmap
	decoded bool
	err     error
}

// NewEagerLazyBitmap wraps an already-decoded bitmap so it satisfies
// LazyBitmap without re-serializing it.
func NewEagerLazyBitmap(bm *roaring.Bitmap) LazyBitmap {
	return &eagerLazyBitmap{bitmap: bm, decoded: true}
}

// NewRawLazyBitmap wraps a serialized bitmap payload, decoding it only
// when Decode is first called.
func NewRawLazyBitmap(raw []byte) LazyBitmap {
	return &eagerLazyBitmap{raw: raw}
}

func (l *eagerLazyBitmap) Bytes() []byte {
	if l.raw != nil {
		return l.raw
	}
	if l.bitmap == nil {
		return nil
	}
	buf, _ := l.bitmap.ToBytes()
	return buf
}

func (l *eagerLazyBitmap) Decode() (*roaring.Bitmap, error) {
	if l.decoded {
		return l.bitmap, l.err
	}
	l.decoded = true
	bm := roaring.New()
	if _, err := bm.FromBuffer(l.raw); err != nil {
		l.err = BitmapError("decode bitmap", err)
		return nil, l.err
	}
	l.bitmap = bm
	return bm, nil
}
