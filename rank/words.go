package rank

// Words is the first real bucketing stage over rootCriterion: it
// materializes the whole query tree's candidates and emits them as a
// single bucket.
//
// The original source's Words criterion also relaxes optional words
// one at a time across successive buckets; that relaxation is a
// property of how the query tree is built (which leaf carries an
// "optional" marker), and the tree this core consumes (query.Operation)
// carries no such marker — building one is the query builder's
// concern, out of scope here. Words therefore always emits exactly one
// bucket: every document matching the tree as given.
type Words struct {
	parent Criterion
	done   bool
}

// NewWords wraps parent with the Words bucketing stage.
func NewWords(parent Criterion) *Words { return &Words{parent: parent} }

// Next returns the single materialized bucket, then nil thereafter.
func (w *Words) Next(p *Params) (*Result, error) {
	if w.done {
		return nil, nil
	}
	w.done = true

	res, err := w.parent.Next(p)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}

	candidates, tree, err := materialize(p, res)
	if err != nil {
		return nil, err
	}
	candidates = excludeFrom(candidates, p.Excluded)
	return &Result{QueryTree: tree, Candidates: candidates, BucketCandidates: candidates.Clone()}, nil
}
