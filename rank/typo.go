package rank

import (
	"sort"

	"github.com/RoaringBitmap/roaring"

	"github.com/kestrelsearch/kestrel"
	"github.com/kestrelsearch/kestrel/query"
)

// Typo buckets a parent's candidates by ascending total typo count:
// the sum, across every tolerant-word leaf of the bucket's query tree,
// of the smallest distance at which each leaf matches a given
// document. Exact (Word) leaves contribute zero.
type Typo struct {
	parent Criterion
	queue  []bucketEntry
	tree   query.Operation
}

// NewTypo wraps parent with the Typo bucketing stage.
func NewTypo(parent Criterion) *Typo { return &Typo{parent: parent} }

// Next returns the next ascending-typo-count bucket.
func (c *Typo) Next(p *Params) (*Result, error) {
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

		totals := map[kestrel.DocID]int{}
		it := candidates.Iterator()
		for it.HasNext() {
			totals[kestrel.DocID(it.Next())] = 0
		}
		for _, leaf := range tolerantLeaves(tree) {
			dist, err := leafMinDistances(p.QueryCtx, p.WordDerivations, leaf, candidates)
			if err != nil {
				return nil, err
			}
			for id := range totals {
				totals[id] += dist[id]
			}
		}

		byCost := groupByKey(totals)
		c.tree = tree
		c.queue = append(c.queue, sortedEntries(byCost, ascending)...)
	}
	entry := c.queue[0]
	c.queue = c.queue[1:]
	return &Result{QueryTree: c.tree, Candidates: entry.docs, BucketCandidates: entry.docs.Clone()}, nil
}

// leafMinDistances returns, for every document in scope that matches
// leaf's term family at all, the smallest typo distance at which it
// does so.
func leafMinDistances(ctx query.Context, wdcache *query.DerivationsCache, leaf *query.TolerantWord, scope *roaring.Bitmap) (map[kestrel.DocID]int, error) {
	derivations, err := wdcache.Derivations(leaf.Term, leaf.MaxTypos, leaf.Prefix)
	if err != nil {
		return nil, err
	}
	sorted := append([]query.Derivation(nil), derivations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Distance < sorted[j].Distance })

	best := make(map[kestrel.DocID]int)
	for _, d := range sorted {
		bm, err := query.ResolveWord(ctx, d.Term)
		if err != nil {
			return nil, err
		}
		it := bm.Iterator()
		for it.HasNext() {
			id := it.Next()
			if !scope.Contains(id) {
				continue
			}
			did := kestrel.DocID(id)
			if _, ok := best[did]; !ok {
				best[did] = d.Distance
			}
		}
	}
	return best, nil
}

type sortDirection int

const (
	ascending sortDirection = iota
	descending
)

// groupByKey partitions values keyed by document id into one bitmap
// per distinct value.
func groupByKey(values map[kestrel.DocID]int) map[int]*roaring.Bitmap {
	byKey := make(map[int]*roaring.Bitmap)
	for id, key := range values {
		bm, ok := byKey[key]
		if !ok {
			bm = roaring.New()
			byKey[key] = bm
		}
		bm.Add(uint32(id))
	}
	return byKey
}

// sortedEntries orders a key->bitmap grouping into bucketEntry values
// sorted by key, ascending or descending.
func sortedEntries(byKey map[int]*roaring.Bitmap, dir sortDirection) []bucketEntry {
	keys := make([]int, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	if dir == ascending {
		sort.Ints(keys)
	} else {
		sort.Sort(sort.Reverse(sort.IntSlice(keys)))
	}
	out := make([]bucketEntry, len(keys))
	for i, k := range keys {
		out[i] = bucketEntry{cost: k, docs: byKey[k]}
	}
	return out
}
