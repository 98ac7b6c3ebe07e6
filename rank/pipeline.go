package rank

import "github.com/kestrelsearch/kestrel/query"

// Build constructs the criterion chain for tree from an ordered list
// of descriptors: rootCriterion is wrapped by one stage per descriptor,
// in the order given, so the first descriptor becomes the innermost
// (first-applied) bucketing stage. The caller wraps the returned
// Criterion in a Final to drain it.
func Build(tree query.Operation, descriptors []Descriptor, fields FacetResolver) Criterion {
	var chain Criterion = &rootCriterion{tree: tree}
	for _, d := range descriptors {
		switch d.Kind {
		case KindWords:
			chain = NewWords(chain)
		case KindTypo:
			chain = NewTypo(chain)
		case KindProximity:
			chain = NewProximity(chain)
		case KindAttribute:
			chain = NewAttribute(chain)
		case KindExactness:
			chain = NewExactness(chain)
		case KindAsc:
			chain = NewAsc(chain, d.Field, fields)
		case KindDesc:
			chain = NewDesc(chain, d.Field, fields)
		}
	}
	return chain
}
