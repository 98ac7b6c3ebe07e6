package search

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/kestrelsearch/kestrel"
	"github.com/kestrelsearch/kestrel/query"
	"github.com/kestrelsearch/kestrel/rank"
)

// Options carries the optional facet filter, and the offset/limit
// pagination window, of one search call.
type Options struct {
	// FacetFilter, if non-nil, restricts results to documents within
	// this bitmap. It is applied to each bucket the pipeline emits, so
	// the ranking criteria themselves run over unfiltered candidates.
	FacetFilter *roaring.Bitmap
	Offset      int
	Limit       int
}

// Search builds the criterion chain for tree and descriptors and
// returns an Iterator over the ranked, paginated results.
//
// descriptors is usually rank.DefaultDescriptors() or the result of
// rank.ParseDescriptors against the caller's faceted-field set.
func Search(ctx query.Context, wdcache *query.DerivationsCache, tree query.Operation, descriptors []rank.Descriptor, fields rank.FacetResolver, opts Options) (*Iterator, error) {
	chain := rank.Build(tree, descriptors, fields)
	final := rank.NewFinal(chain)
	return &Iterator{
		final:  final,
		params: &rank.Params{QueryCtx: ctx, WordDerivations: wdcache},
		filter: opts.FacetFilter,
		offset: opts.Offset,
		limit:  opts.Limit,
	}, nil
}

// Iterator drains the ranking pipeline one document at a time, in rank
// order, honoring the facet filter and the offset/limit window.
type Iterator struct {
	final  *rank.Final
	params *rank.Params
	filter *roaring.Bitmap

	offset  int
	limit   int
	yielded int

	bucket   *roaring.Bitmap
	bucketIt roaring.IntPeekable
	err      error
	done     bool
}

// Next returns the next matching document id and the bucket-sibling
// bitmap it was ranked alongside (documents tied at every applied
// criterion), or ok=false once the window is exhausted or the pipeline
// runs dry. Callers must check Err after a false return.
func (it *Iterator) Next() (kestrel.DocID, *roaring.Bitmap, bool) {
	if it.done || it.err != nil {
		return 0, nil, false
	}
	for it.limit <= 0 || it.yielded < it.limit {
		if it.bucketIt == nil || !it.bucketIt.HasNext() {
			bucket, ok, err := it.nextBucket()
			if err != nil {
				it.err = err
				it.done = true
				return 0, nil, false
			}
			if !ok {
				it.done = true
				return 0, nil, false
			}
			it.bucket = bucket
			it.bucketIt = bucket.Iterator()
			continue
		}
		id := it.bucketIt.Next()
		if it.offset > 0 {
			it.offset--
			continue
		}
		it.yielded++
		return kestrel.DocID(id), it.bucket, true
	}
	it.done = true
	return 0, nil, false
}

// Err returns the first error encountered while draining the pipeline.
func (it *Iterator) Err() error { return it.err }

func (it *Iterator) nextBucket() (*roaring.Bitmap, bool, error) {
	for {
		res, err := it.final.Next(it.params, nil)
		if err != nil {
			return nil, false, err
		}
		if res == nil {
			return nil, false, nil
		}
		bucket := res.BucketCandidates
		if it.filter != nil {
			bucket = bucket.Clone()
			bucket.And(it.filter)
			if bucket.IsEmpty() {
				continue
			}
		}
		return bucket, true, nil
	}
}
