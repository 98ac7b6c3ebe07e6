package rank

import (
	"sort"

	"github.com/kestrelsearch/kestrel"
	"github.com/kestrelsearch/kestrel/query"
)

// Attribute buckets a parent's candidates by the importance (ascending
// attribute id) of the attribute in which the query's first matched
// word occurs. A document that never matches the first term directly
// (for example, it only satisfies the query through a later Or branch)
// is bucketed last, past every known attribute.
type Attribute struct {
	parent Criterion
	queue  []bucketEntry
	tree   query.Operation
}

// NewAttribute wraps parent with the Attribute bucketing stage.
func NewAttribute(parent Criterion) *Attribute { return &Attribute{parent: parent} }

// Next returns the next ascending-attribute-importance bucket.
func (c *Attribute) Next(p *Params) (*Result, error) {
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

		terms := leafTerms(tree)
		c.tree = tree
		if len(terms) == 0 {
			c.queue = append(c.queue, bucketEntry{cost: 0, docs: candidates})
			continue
		}

		attrs := append([]kestrel.AttributeID(nil), p.QueryCtx.Attributes()...)
		sort.Slice(attrs, func(i, j int) bool { return attrs[i] < attrs[j] })

		best := map[kestrel.DocID]int{}
		first := terms[0]
		for _, attr := range attrs {
			bm, err := p.QueryCtx.Store().GetBitmap(kestrel.TableTermDocs, kestrel.TermDocsKey(first, attr))
			if err != nil {
				return nil, err
			}
			if bm == nil {
				continue
			}
			it := bm.Iterator()
			for it.HasNext() {
				id := kestrel.DocID(it.Next())
				if !candidates.Contains(uint32(id)) {
					continue
				}
				if _, ok := best[id]; !ok {
					best[id] = int(attr)
				}
			}
		}
		it := candidates.Iterator()
		for it.HasNext() {
			id := kestrel.DocID(it.Next())
			if _, ok := best[id]; !ok {
				best[id] = len(attrs)
			}
		}

		byAttr := groupByKey(best)
		c.queue = append(c.queue, sortedEntries(byAttr, ascending)...)
	}
	entry := c.queue[0]
	c.queue = c.queue[1:]
	return &Result{QueryTree: c.tree, Candidates: entry.docs, BucketCandidates: entry.docs.Clone()}, nil
}
