package rank

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/kestrelsearch/kestrel/query"
)

// FinalResult is one emitted bucket of a drained search.
type FinalResult struct {
	QueryTree        query.Operation
	Candidates       *roaring.Bitmap
	BucketCandidates *roaring.Bitmap
}

// Final is the outermost pipeline stage. It tracks every document
// already returned across the whole drain so excluded_candidates seen
// by the parent always reflects the full history, not just what the
// caller passed to this particular Next call, and materializes
// candidates the parent left unresolved.
type Final struct {
	parent   Criterion
	returned *roaring.Bitmap
}

// NewFinal wraps the outermost criterion of a built pipeline.
func NewFinal(parent Criterion) *Final {
	return &Final{parent: parent, returned: roaring.New()}
}

// Next returns the next FinalResult, or nil once the pipeline is
// exhausted. excluded is unioned with everything already returned by
// prior calls before being passed down as the parent's excluded set.
func (f *Final) Next(p *Params, excluded *roaring.Bitmap) (*FinalResult, error) {
	union := f.returned.Clone()
	if excluded != nil {
		union.Or(excluded)
	}
	callParams := *p
	callParams.Excluded = union

	res, err := f.parent.Next(&callParams)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}

	candidates, tree, err := materialize(&callParams, res)
	if err != nil {
		return nil, err
	}
	bucket := res.BucketCandidates
	if bucket == nil {
		bucket = candidates
	}

	f.returned.Or(candidates)
	return &FinalResult{QueryTree: tree, Candidates: candidates, BucketCandidates: bucket}, nil
}
