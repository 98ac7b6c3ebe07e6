package facet

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/kestrelsearch/kestrel"
)

// frame is one level of the descent: the set of documents still being
// searched for at this level, and the directional scan currently
// positioned within it.
type frame[T Ordered] struct {
	level       uint8
	documentIDs *roaring.Bitmap
	ascending   bool
	asc         *Range[T]
	desc        *RevRange[T]
}

// LevelIterator walks the facet tree top level down to level 0,
// descending into a sub-range only when it intersects the documents
// still being searched for. The descent is an explicit stack of
// frames rather than host-stack recursion, so depth is bounded by the
// number of tree levels, not by Go's call stack.
type LevelIterator[T Ordered] struct {
	txn        kestrel.StoreTxn
	field      uint8
	mustReduce bool
	stack      []*frame[T]
	err        error
}

func newLevelIterator[T Ordered](txn kestrel.StoreTxn, field uint8, documentIDs *roaring.Bitmap, ascending, mustReduce bool) (*LevelIterator[T], error) {
	level, err := highestLevel(txn, field)
	if err != nil {
		return nil, err
	}
	f := &frame[T]{level: level, documentIDs: documentIDs, ascending: ascending}
	if ascending {
		f.asc, err = NewRange[T](txn, field, level, UnboundedBound[T](), UnboundedBound[T]())
	} else {
		f.desc, err = NewRevRange[T](txn, field, level, UnboundedBound[T](), UnboundedBound[T]())
	}
	if err != nil {
		return nil, err
	}
	return &LevelIterator[T]{txn: txn, field: field, mustReduce: mustReduce, stack: []*frame[T]{f}}, nil
}

// NewAscendingReducing iterates facet values in ascending order,
// removing each returned document from documentIDs as it is emitted so
// every document is returned at most once (at the finest value it
// matches).
func NewAscendingReducing[T Ordered](txn kestrel.StoreTxn, field uint8, documentIDs *roaring.Bitmap) (*LevelIterator[T], error) {
	return newLevelIterator[T](txn, field, documentIDs, true, true)
}

// NewDescendingReducing is NewAscendingReducing in descending value order.
func NewDescendingReducing[T Ordered](txn kestrel.StoreTxn, field uint8, documentIDs *roaring.Bitmap) (*LevelIterator[T], error) {
	return newLevelIterator[T](txn, field, documentIDs, false, true)
}

// NewAscendingNonReducing iterates facet values in ascending order
// without removing documents from documentIDs, so a document present
// at more than one facet value is returned once per value.
func NewAscendingNonReducing[T Ordered](txn kestrel.StoreTxn, field uint8, documentIDs *roaring.Bitmap) (*LevelIterator[T], error) {
	return newLevelIterator[T](txn, field, documentIDs, true, false)
}

// Next returns the next (value, documents) pair at level 0, or
// ok=false once every level-0 value reachable from the seed document
// set has been visited.
func (it *LevelIterator[T]) Next() (T, *roaring.Bitmap, bool) {
	var zero T
	for len(it.stack) > 0 {
		top := it.stack[len(it.stack)-1]
		if top.documentIDs.IsEmpty() {
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}

		var entry Entry[T]
		var ok bool
		if top.ascending {
			entry, ok = top.asc.Next()
		} else {
			entry, ok = top.desc.Next()
		}
		if !ok {
			if err := frameErr(top); err != nil {
				it.err = err
				return zero, nil, false
			}
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}

		docids := entry.Bitmap.Clone()
		docids.And(top.documentIDs)
		if docids.IsEmpty() {
			continue
		}
		if it.mustReduce {
			top.documentIDs.AndNot(docids)
		}

		if top.level == 0 {
			return entry.Low, docids, true
		}

		nextLevel := top.level - 1
		low := IncludedBound(entry.Low)
		high := IncludedBound(entry.High)
		nf := &frame[T]{level: nextLevel, documentIDs: docids, ascending: top.ascending}
		var err error
		if top.ascending {
			nf.asc, err = NewRange[T](it.txn, it.field, nextLevel, low, high)
		} else {
			nf.desc, err = NewRevRange[T](it.txn, it.field, nextLevel, low, high)
		}
		if err != nil {
			it.err = err
			return zero, nil, false
		}
		it.stack = append(it.stack, nf)
	}
	return zero, nil, false
}

// Err returns the first error encountered, if any.
func (it *LevelIterator[T]) Err() error { return it.err }

func frameErr[T Ordered](f *frame[T]) error {
	if f.ascending {
		return f.asc.Err()
	}
	return f.desc.Err()
}

// highestLevel finds the highest populated level of field by reading
// the last entry of an ascending prefix scan (levels are the second
// key byte, so ascending key order is ascending level order).
func highestLevel(txn kestrel.StoreTxn, field uint8) (uint8, error) {
	it, err := txn.PrefixScan(kestrel.TableFacets, kestrel.FacetFieldPrefix(field))
	if err != nil {
		return 0, err
	}
	var level uint8
	found := false
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		_, lvl, _, _, parsed := kestrel.ParseFacetKey(e.Key)
		if !parsed {
			continue
		}
		level = lvl
		found = true
	}
	if err := it.Err(); err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	return level, nil
}
