package rank

import (
	"github.com/kestrelsearch/kestrel"
	"github.com/kestrelsearch/kestrel/proximity"
	"github.com/kestrelsearch/kestrel/query"
)

// Proximity buckets a parent's candidates by ascending total
// proximity cost of the best position assignment for the tree's
// leaf terms, computed per document via the proximity enumerator
// (package proximity).
type Proximity struct {
	parent Criterion
	queue  []bucketEntry
	tree   query.Operation
}

// NewProximity wraps parent with the Proximity bucketing stage.
func NewProximity(parent Criterion) *Proximity { return &Proximity{parent: parent} }

// Next returns the next ascending-proximity-cost bucket.
func (c *Proximity) Next(p *Params) (*Result, error) {
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
		costs := map[kestrel.DocID]int{}
		it := candidates.Iterator()
		for it.HasNext() {
			id := kestrel.DocID(it.Next())
			cost, err := documentProximityCost(p.QueryCtx, terms, id)
			if err != nil {
				return nil, err
			}
			costs[id] = cost
		}

		byCost := groupByKey(costs)
		c.tree = tree
		c.queue = append(c.queue, sortedEntries(byCost, ascending)...)
	}
	entry := c.queue[0]
	c.queue = c.queue[1:]
	return &Result{QueryTree: c.tree, Candidates: entry.docs, BucketCandidates: entry.docs.Clone()}, nil
}

// documentProximityCost finds the attribute in which every term of
// terms occurs, and returns the smallest total proximity cost the
// enumerator reports for that attribute, minimized across attributes.
// A document where no single attribute carries every term (for
// example, a multi-field And) is charged the worst possible cost, so
// it still sorts after every document with a real adjacency.
func documentProximityCost(ctx query.Context, terms []string, id kestrel.DocID) (int, error) {
	if len(terms) <= 1 {
		return 0, nil
	}
	best := -1
	for _, attr := range ctx.Attributes() {
		tokens, err := ctx.DocumentTokens(id, attr)
		if err != nil {
			return 0, err
		}
		if len(tokens) == 0 {
			continue
		}
		positions := make([][]kestrel.Position, len(terms))
		missing := false
		for i, term := range terms {
			for idx, tok := range tokens {
				if tok == term {
					positions[i] = append(positions[i], kestrel.NewPosition(attr, uint32(idx)))
				}
			}
			if len(positions[i]) == 0 {
				missing = true
				break
			}
		}
		if missing {
			continue
		}
		enum := proximity.New(positions)
		total, _, ok := enum.Next()
		if !ok {
			continue
		}
		if best == -1 || total < best {
			best = total
		}
	}
	if best == -1 {
		return (len(terms) - 1) * 8, nil
	}
	return best, nil
}
