package rank

import (
	"github.com/kestrelsearch/kestrel"
	"github.com/kestrelsearch/kestrel/query"
)

// Exactness buckets a parent's candidates by descending count of query
// words matched as exact terms: a Word leaf counts for every document
// containing its term, and a TolerantWord leaf counts only for
// documents it matches at distance 0.
type Exactness struct {
	parent Criterion
	queue  []bucketEntry
	tree   query.Operation
}

// NewExactness wraps parent with the Exactness bucketing stage.
func NewExactness(parent Criterion) *Exactness { return &Exactness{parent: parent} }

// Next returns the next descending-exact-count bucket.
func (c *Exactness) Next(p *Params) (*Result, error) {
	for len(c.queue) == 0 {
		res, err := c.parent.Next(p)
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
		if candidates.IsEmpty() {
			continue
		}

		counts := map[kestrel.DocID]int{}
		it := candidates.Iterator()
		for it.HasNext() {
			counts[kestrel.DocID(it.Next())] = 0
		}

		for _, w := range wordLeaves(tree) {
			bm, err := query.ResolveWord(p.QueryCtx, w.Term)
			if err != nil {
				return nil, err
			}
			wit := bm.Iterator()
			for wit.HasNext() {
				id := kestrel.DocID(wit.Next())
				if _, ok := counts[id]; ok {
					counts[id]++
				}
			}
		}
		for _, leaf := range tolerantLeaves(tree) {
			dist, err := leafMinDistances(p.QueryCtx, p.WordDerivations, leaf, candidates)
			if err != nil {
				return nil, err
			}
			for id, d := range dist {
				if d == 0 {
					if _, ok := counts[id]; ok {
						counts[id]++
					}
				}
			}
		}

		byCount := groupByKey(counts)
		c.tree = tree
		c.queue = append(c.queue, sortedEntries(byCount, descending)...)
	}
	entry := c.queue[0]
	c.queue = c.queue[1:]
	return &Result{QueryTree: c.tree, Candidates: entry.docs, BucketCandidates: entry.docs.Clone()}, nil
}
