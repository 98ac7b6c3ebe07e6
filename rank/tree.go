package rank

import "github.com/kestrelsearch/kestrel/query"

// wordLeaves collects every exact-term Word leaf of tree, in
// left-to-right order.
func wordLeaves(tree query.Operation) []*query.Word {
	var out []*query.Word
	walkLeaves(tree, func(op query.Operation) {
		if w, ok := op.(*query.Word); ok {
			out = append(out, w)
		}
	})
	return out
}

// tolerantLeaves collects every TolerantWord leaf of tree, in
// left-to-right order.
func tolerantLeaves(tree query.Operation) []*query.TolerantWord {
	var out []*query.TolerantWord
	walkLeaves(tree, func(op query.Operation) {
		if w, ok := op.(*query.TolerantWord); ok {
			out = append(out, w)
		}
	})
	return out
}

// leafTerms flattens every term tree refers to, in left-to-right
// order: a Word or TolerantWord contributes its term, a Phrase
// contributes all of its terms in order.
func leafTerms(tree query.Operation) []string {
	var out []string
	walkLeaves(tree, func(op query.Operation) {
		switch v := op.(type) {
		case *query.Word:
			out = append(out, v.Term)
		case *query.TolerantWord:
			out = append(out, v.Term)
		case *query.Phrase:
			out = append(out, v.Terms...)
		}
	})
	return out
}

func walkLeaves(tree query.Operation, visit func(query.Operation)) {
	if tree == nil {
		return
	}
	switch v := tree.(type) {
	case *query.And:
		for _, c := range v.Children {
			walkLeaves(c, visit)
		}
	case *query.Or:
		for _, c := range v.Children {
			walkLeaves(c, visit)
		}
	default:
		visit(tree)
	}
}
