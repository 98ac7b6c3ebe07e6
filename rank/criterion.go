// Package rank implements the ranking pipeline: the criterion
// interface, the seven built-in bucketing policies, the bottom-up
// pipeline builder, the finalizer, and the criterion descriptor
// grammar.
package rank

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/kestrelsearch/kestrel/query"
)

// Params carries the per-search-call state every criterion needs:
// where to resolve terms and facets, the shared word-derivations
// cache, and the set of documents already returned upstream.
type Params struct {
	QueryCtx        query.Context
	WordDerivations *query.DerivationsCache
	Excluded        *roaring.Bitmap
}

// Result is the bucket one criterion hands to its child: a query tree
// snapshot, the bucket's resolved candidates (nil means the child must
// materialize them by resolving QueryTree), and the bitmap
// contributed by the originating criterion.
type Result struct {
	QueryTree        query.Operation
	Candidates       *roaring.Bitmap
	BucketCandidates *roaring.Bitmap
}

// Criterion is a stateful bucket producer. Next returns nil, nil on
// exhaustion. A criterion pulls from its parent to refill its own
// internal queue; it never reorders what the parent emits.
type Criterion interface {
	Next(p *Params) (*Result, error)
}

// bucketEntry is one pending (ordering key, document set) pair queued
// by a criterion after it has sorted a parent bucket into sub-buckets.
type bucketEntry struct {
	cost int
	docs *roaring.Bitmap
}

// materialize returns res's candidates, resolving res.QueryTree if the
// parent left them unmaterialized.
func materialize(p *Params, res *Result) (*roaring.Bitmap, query.Operation, error) {
	if res.Candidates != nil {
		return res.Candidates, res.QueryTree, nil
	}
	bm, err := query.Resolve(p.QueryCtx, res.QueryTree, map[query.Operation]*roaring.Bitmap{}, p.WordDerivations)
	if err != nil {
		return nil, nil, err
	}
	return bm, res.QueryTree, nil
}

// excludeFrom returns a copy of candidates with every document in
// excluded removed, leaving candidates untouched.
func excludeFrom(candidates, excluded *roaring.Bitmap) *roaring.Bitmap {
	out := candidates.Clone()
	if excluded != nil {
		out.AndNot(excluded)
	}
	return out
}

// rootCriterion is the pipeline's true leaf: it has no parent and
// emits exactly one unmaterialized bucket wrapping the whole query
// tree, then is exhausted. Whichever descriptor comes first in the
// user's ordering becomes the first real bucketing stage on top of it.
type rootCriterion struct {
	tree query.Operation
	done bool
}

func (r *rootCriterion) Next(p *Params) (*Result, error) {
	if r.done {
		return nil, nil
	}
	r.done = true
	return &Result{QueryTree: r.tree}, nil
}
