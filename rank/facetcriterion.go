package rank

import (
	"github.com/kestrelsearch/kestrel"
	"github.com/kestrelsearch/kestrel/facet"
	"github.com/kestrelsearch/kestrel/query"
)

// FacetResolver maps a user-facing faceted field name to its stored
// numeric field id, so Asc/Desc can build facet.LevelIterator keys.
type FacetResolver interface {
	FieldID(name string) (uint8, bool)
}

// Asc buckets a parent's candidates by ascending facet value of field,
// via the facet level iterator in reducing mode.
type Asc struct {
	parent Criterion
	field  string
	fields FacetResolver
	tree   query.Operation
	it     *facet.LevelIterator[int64]
}

// NewAsc wraps parent with the Asc(field) bucketing stage.
func NewAsc(parent Criterion, field string, fields FacetResolver) *Asc {
	return &Asc{parent: parent, field: field, fields: fields}
}

// Next returns the next ascending-facet-value bucket.
func (c *Asc) Next(p *Params) (*Result, error) {
	for {
		if c.it == nil {
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
			fid, ok := c.fields.FieldID(c.field)
			if !ok {
				return nil, kestrel.InvalidCriterionError("field is not faceted: " + c.field)
			}
			it, err := facet.NewAscendingReducing[int64](p.QueryCtx.Store(), fid, candidates)
			if err != nil {
				return nil, err
			}
			c.it = it
			c.tree = tree
		}

		_, docs, ok := c.it.Next()
		if !ok {
			if err := c.it.Err(); err != nil {
				return nil, err
			}
			c.it = nil
			continue
		}
		return &Result{QueryTree: c.tree, Candidates: docs, BucketCandidates: docs.Clone()}, nil
	}
}

// Desc is Asc in descending facet value order.
type Desc struct {
	parent Criterion
	field  string
	fields FacetResolver
	tree   query.Operation
	it     *facet.LevelIterator[int64]
}

// NewDesc wraps parent with the Desc(field) bucketing stage.
func NewDesc(parent Criterion, field string, fields FacetResolver) *Desc {
	return &Desc{parent: parent, field: field, fields: fields}
}

// Next returns the next descending-facet-value bucket.
func (c *Desc) Next(p *Params) (*Result, error) {
	for {
		if c.it == nil {
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
			fid, ok := c.fields.FieldID(c.field)
			if !ok {
				return nil, kestrel.InvalidCriterionError("field is not faceted: " + c.field)
			}
			it, err := facet.NewDescendingReducing[int64](p.QueryCtx.Store(), fid, candidates)
			if err != nil {
				return nil, err
			}
			c.it = it
			c.tree = tree
		}

		_, docs, ok := c.it.Next()
		if !ok {
			if err := c.it.Err(); err != nil {
				return nil, err
			}
			c.it = nil
			continue
		}
		return &Result{QueryTree: c.tree, Candidates: docs, BucketCandidates: docs.Clone()}, nil
	}
}
