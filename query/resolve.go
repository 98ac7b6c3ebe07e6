package query

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"

	"github.com/kestrelsearch/kestrel"
	"github.com/kestrelsearch/kestrel/proximity"
)

// Context is everything Resolve needs beyond the tree itself: access
// to the posting-list store, the set of attributes documents may carry
// content in, and a way to re-tokenize one document's one attribute so
// Phrase resolution can verify exact adjacency on the (small) set of
// documents that pass the coarse per-term intersection.
type Context interface {
	Store() kestrel.StoreTxn
	Attributes() []kestrel.AttributeID
	AllDocuments() (*roaring.Bitmap, error)
	// DocumentTokens returns the case-folded tokens of one attribute
	// of one document, in positional order.
	DocumentTokens(id kestrel.DocID, attr kestrel.AttributeID) ([]string, error)
}

// Resolve computes the document bitmap an Operation refers to,
// memoizing per subtree (by node identity) within one call so the
// same subtree resolved twice performs the storage work only once.
func Resolve(ctx Context, tree Operation, memo map[Operation]*roaring.Bitmap, wdcache *DerivationsCache) (*roaring.Bitmap, error) {
	if tree == nil {
		return ctx.AllDocuments()
	}
	if bm, ok := memo[tree]; ok {
		return bm, nil
	}

	var result *roaring.Bitmap
	var err error
	switch n := tree.(type) {
	case *Word:
		result, err = resolveWord(ctx, n.Term)
	case *TolerantWord:
		result, err = resolveTolerantWord(ctx, wdcache, n)
	case *Phrase:
		result, err = resolvePhrase(ctx, n)
	case *And:
		result, err = resolveAnd(ctx, n, memo, wdcache)
	case *Or:
		result, err = resolveOr(ctx, n, memo, wdcache)
	default:
		return nil, fmt.Errorf("query: unresolvable operation %T", tree)
	}
	if err != nil {
		return nil, err
	}

	memo[tree] = result
	return result, nil
}

// ResolveWord resolves term to the union of document bitmaps across
// every configured attribute. Exported so ranking criteria that bucket
// by per-term, per-document facts (typo distance, exactness, attribute
// importance) can reuse term-level resolution without duplicating it.
func ResolveWord(ctx Context, term string) (*roaring.Bitmap, error) {
	return resolveWord(ctx, term)
}

func resolveWord(ctx Context, term string) (*roaring.Bitmap, error) {
	result := roaring.New()
	for _, attr := range ctx.Attributes() {
		bm, err := ctx.Store().GetBitmap(kestrel.TableTermDocs, kestrel.TermDocsKey(term, attr))
		if err != nil {
			return nil, err
		}
		if bm != nil {
			result.Or(bm)
		}
	}
	return result, nil
}

func resolveTolerantWord(ctx Context, wdcache *DerivationsCache, n *TolerantWord) (*roaring.Bitmap, error) {
	derivations, err := wdcache.Derivations(n.Term, n.MaxTypos, n.Prefix)
	if err != nil {
		return nil, err
	}
	result := roaring.New()
	for _, d := range derivations {
		bm, err := resolveWord(ctx, d.Term)
		if err != nil {
			return nil, err
		}
		result.Or(bm)
	}
	return result, nil
}

func resolveAnd(ctx Context, n *And, memo map[Operation]*roaring.Bitmap, wdcache *DerivationsCache) (*roaring.Bitmap, error) {
	if len(n.Children) == 0 {
		return roaring.New(), nil
	}
	result, err := Resolve(ctx, n.Children[0], memo, wdcache)
	if err != nil {
		return nil, err
	}
	result = result.Clone()
	for _, child := range n.Children[1:] {
		bm, err := Resolve(ctx, child, memo, wdcache)
		if err != nil {
			return nil, err
		}
		result.And(bm)
	}
	return result, nil
}

func resolveOr(ctx Context, n *Or, memo map[Operation]*roaring.Bitmap, wdcache *DerivationsCache) (*roaring.Bitmap, error) {
	result := roaring.New()
	for _, child := range n.Children {
		bm, err := Resolve(ctx, child, memo, wdcache)
		if err != nil {
			return nil, err
		}
		result.Or(bm)
	}
	return result, nil
}

// resolvePhrase intersects the per-term document sets, then verifies
// exact adjacency on each surviving document by re-tokenizing it: the
// aggregated corpus-wide position bitmaps (table 1/2) only tell us
// *that* a term occurs somewhere, not which document, so a phrase's
// exact positional requirement is checked against one document's own
// token stream at a time.
func resolvePhrase(ctx Context, p *Phrase) (*roaring.Bitmap, error) {
	if len(p.Terms) == 0 {
		return roaring.New(), nil
	}
	if len(p.Terms) == 1 {
		return resolveWord(ctx, p.Terms[0])
	}

	candidates, err := resolveWord(ctx, p.Terms[0])
	if err != nil {
		return nil, err
	}
	candidates = candidates.Clone()
	for _, term := range p.Terms[1:] {
		bm, err := resolveWord(ctx, term)
		if err != nil {
			return nil, err
		}
		candidates.And(bm)
	}

	result := roaring.New()
	it := candidates.Iterator()
	for it.HasNext() {
		id := it.Next()
		ok, err := phraseMatchesDocument(ctx, p.Terms, id)
		if err != nil {
			return nil, err
		}
		if ok {
			result.Add(id)
		}
	}
	return result, nil
}

// phraseMatchesDocument reports whether every consecutive pair of
// terms occurs adjacently (pairwise proximity cost 1) within the same
// attribute of document id.
func phraseMatchesDocument(ctx Context, terms []string, id kestrel.DocID) (bool, error) {
	for _, attr := range ctx.Attributes() {
		tokens, err := ctx.DocumentTokens(id, attr)
		if err != nil {
			return false, err
		}
		if len(tokens) == 0 {
			continue
		}
		positions := make([][]kestrel.Position, len(terms))
		for i, term := range terms {
			for idx, tok := range tokens {
				if tok == term {
					positions[i] = append(positions[i], kestrel.NewPosition(attr, uint32(idx)))
				}
			}
			if len(positions[i]) == 0 {
				positions[i] = nil
			}
		}
		if hasAdjacentChain(positions) {
			return true, nil
		}
	}
	return false, nil
}

// hasAdjacentChain reports whether some assignment emitted by the
// proximity enumerator for positions has pairwise cost 1 for every
// consecutive pair, i.e. the terms occur as a literal phrase.
func hasAdjacentChain(positions [][]kestrel.Position) bool {
	for _, p := range positions {
		if len(p) == 0 {
			return false
		}
	}
	enum := proximity.New(positions)
	for {
		total, chosen, ok := enum.Next()
		if !ok || total > len(positions)-1 {
			return false
		}
		adjacent := true
		for i := 0; i+1 < len(chosen); i++ {
			if proximity.PairCost(chosen[i], chosen[i+1]) != 1 {
				adjacent = false
				break
			}
		}
		if adjacent {
			return true
		}
	}
}
