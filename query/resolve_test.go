package query_test

import (
	"testing"

	"github.com/RoaringBitmap/roaring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelsearch/kestrel"
	"github.com/kestrelsearch/kestrel/query"
)

// countingStore is a kestrel.StoreTxn over a fixed set of TableTermDocs
// bitmaps that records how many times each key was fetched, so tests
// can assert Resolve's memoization actually avoids repeat storage work.
type countingStore struct {
	termDocs map[string]*roaring.Bitmap
	calls    map[string]int
}

func newCountingStore(termDocs map[string]*roaring.Bitmap) *countingStore {
	return &countingStore{termDocs: termDocs, calls: make(map[string]int)}
}

func (s *countingStore) GetBitmap(table kestrel.Table, key []byte) (*roaring.Bitmap, error) {
	if table != kestrel.TableTermDocs {
		return nil, nil
	}
	s.calls[string(key)]++
	return s.termDocs[string(key)], nil
}

func (s *countingStore) GetRaw(kestrel.Table, []byte) ([]byte, error) { return nil, nil }
func (s *countingStore) PrefixScan(kestrel.Table, []byte) (kestrel.EntryIterator, error) {
	return kestrel.NewSliceIterator(nil), nil
}
func (s *countingStore) RangeScan(kestrel.Table, kestrel.Bound, kestrel.Bound) (kestrel.EntryIterator, error) {
	return kestrel.NewSliceIterator(nil), nil
}
func (s *countingStore) ReverseRangeScan(kestrel.Table, kestrel.Bound, kestrel.Bound) (kestrel.EntryIterator, error) {
	return kestrel.NewSliceIterator(nil), nil
}

// fakeContext implements query.Context over a countingStore, a fixed
// attribute set, and a map of per-document, per-attribute token
// streams (for Phrase's adjacency verification).
type fakeContext struct {
	store  *countingStore
	attrs  []kestrel.AttributeID
	all    *roaring.Bitmap
	tokens map[kestrel.DocID]map[kestrel.AttributeID][]string
}

func (c *fakeContext) Store() kestrel.StoreTxn                { return c.store }
func (c *fakeContext) Attributes() []kestrel.AttributeID      { return c.attrs }
func (c *fakeContext) AllDocuments() (*roaring.Bitmap, error) { return c.all.Clone(), nil }
func (c *fakeContext) DocumentTokens(id kestrel.DocID, attr kestrel.AttributeID) ([]string, error) {
	byAttr, ok := c.tokens[id]
	if !ok {
		return nil, nil
	}
	return byAttr[attr], nil
}

type fixedDerivations map[string][]query.Derivation

func (d fixedDerivations) Derive(term string, maxTypos int, prefix bool) ([]query.Derivation, error) {
	return d[term], nil
}

const attr0 kestrel.AttributeID = 0

func termKey(term string) string {
	return string(kestrel.TermDocsKey(term, attr0))
}

func TestResolveAndIntersects(t *testing.T) {
	store := newCountingStore(map[string]*roaring.Bitmap{
		termKey("red"): roaring.BitmapOf(1, 2, 3),
		termKey("fox"): roaring.BitmapOf(2, 3, 4),
	})
	ctx := &fakeContext{store: store, attrs: []kestrel.AttributeID{attr0}, all: roaring.New()}

	tree := &query.And{Children: []query.Operation{
		&query.Word{Term: "red"},
		&query.Word{Term: "fox"},
	}}

	bm, err := query.Resolve(ctx, tree, map[query.Operation]*roaring.Bitmap{}, query.NewDerivationsCache(fixedDerivations{}))
	require.NoError(t, err)
	assert.True(t, bm.Equals(roaring.BitmapOf(2, 3)))
}

func TestResolveOrUnions(t *testing.T) {
	store := newCountingStore(map[string]*roaring.Bitmap{
		termKey("red"): roaring.BitmapOf(1, 2),
		termKey("fox"): roaring.BitmapOf(2, 3),
	})
	ctx := &fakeContext{store: store, attrs: []kestrel.AttributeID{attr0}, all: roaring.New()}

	tree := &query.Or{Children: []query.Operation{
		&query.Word{Term: "red"},
		&query.Word{Term: "fox"},
	}}

	bm, err := query.Resolve(ctx, tree, map[query.Operation]*roaring.Bitmap{}, query.NewDerivationsCache(fixedDerivations{}))
	require.NoError(t, err)
	assert.True(t, bm.Equals(roaring.BitmapOf(1, 2, 3)))
}

func TestResolveAndEmptyChildrenYieldsEmpty(t *testing.T) {
	store := newCountingStore(nil)
	ctx := &fakeContext{store: store, attrs: []kestrel.AttributeID{attr0}, all: roaring.New()}

	tree := &query.And{}
	bm, err := query.Resolve(ctx, tree, map[query.Operation]*roaring.Bitmap{}, query.NewDerivationsCache(fixedDerivations{}))
	require.NoError(t, err)
	assert.True(t, bm.IsEmpty())
}

func TestResolveTolerantWordUnionsDerivations(t *testing.T) {
	store := newCountingStore(map[string]*roaring.Bitmap{
		termKey("color"):  roaring.BitmapOf(1, 2),
		termKey("colour"): roaring.BitmapOf(3),
	})
	ctx := &fakeContext{store: store, attrs: []kestrel.AttributeID{attr0}, all: roaring.New()}

	tree := &query.TolerantWord{Term: "color", MaxTypos: 1}
	wdcache := query.NewDerivationsCache(fixedDerivations{
		"color": {{Term: "color", Distance: 0}, {Term: "colour", Distance: 1}},
	})

	bm, err := query.Resolve(ctx, tree, map[query.Operation]*roaring.Bitmap{}, wdcache)
	require.NoError(t, err)
	assert.True(t, bm.Equals(roaring.BitmapOf(1, 2, 3)))
}

func TestResolvePhraseRequiresAdjacency(t *testing.T) {
	store := newCountingStore(map[string]*roaring.Bitmap{
		termKey("quick"): roaring.BitmapOf(1, 2),
		termKey("fox"):   roaring.BitmapOf(1, 2),
	})
	ctx := &fakeContext{
		store: store,
		attrs: []kestrel.AttributeID{attr0},
		all:   roaring.New(),
		tokens: map[kestrel.DocID]map[kestrel.AttributeID][]string{
			1: {attr0: []string{"the", "quick", "fox"}},
			2: {attr0: []string{"quick", "brown", "fox"}},
		},
	}

	tree := &query.Phrase{Terms: []string{"quick", "fox"}}
	bm, err := query.Resolve(ctx, tree, map[query.Operation]*roaring.Bitmap{}, query.NewDerivationsCache(fixedDerivations{}))
	require.NoError(t, err)
	assert.True(t, bm.Equals(roaring.BitmapOf(1)), "only document 1 has \"quick\" immediately followed by \"fox\"")
}

func TestResolveMemoizesSharedSubtree(t *testing.T) {
	store := newCountingStore(map[string]*roaring.Bitmap{
		termKey("red"):  roaring.BitmapOf(1, 2, 3),
		termKey("fox"):  roaring.BitmapOf(2, 3),
		termKey("slow"): roaring.BitmapOf(1, 4),
	})
	ctx := &fakeContext{store: store, attrs: []kestrel.AttributeID{attr0}, all: roaring.New()}

	// shared is referenced twice within the same tree (once directly
	// under the Or, once nested inside the And): a single Resolve call
	// over the whole tree must still only touch the store for "red"
	// once, since both references are the same *Word node identity.
	shared := &query.Word{Term: "red"}
	tree := &query.Or{Children: []query.Operation{
		shared,
		&query.And{Children: []query.Operation{
			shared,
			&query.Word{Term: "fox"},
		}},
	}}

	memo := map[query.Operation]*roaring.Bitmap{}
	bm, err := query.Resolve(ctx, tree, memo, query.NewDerivationsCache(fixedDerivations{}))
	require.NoError(t, err)
	assert.True(t, bm.Equals(roaring.BitmapOf(1, 2, 3)))
	assert.Equal(t, 1, store.calls[termKey("red")], "shared subtree must be resolved against the store only once")
	assert.Equal(t, 1, store.calls[termKey("fox")])

	// Resolving the same shared node again through the same memo, even
	// as a fresh top-level call, must not re-touch the store either:
	// memoization is keyed by node identity, not tree position.
	bm2, err := query.Resolve(ctx, shared, memo, query.NewDerivationsCache(fixedDerivations{}))
	require.NoError(t, err)
	assert.True(t, bm2.Equals(roaring.BitmapOf(1, 2, 3)))
	assert.Equal(t, 1, store.calls[termKey("red")], "resolving the same node through a shared memo must not repeat storage work")
}
