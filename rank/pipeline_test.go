package rank_test

import (
	"fmt"
	"testing"

	"github.com/RoaringBitmap/roaring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelsearch/kestrel"
	"github.com/kestrelsearch/kestrel/query"
	"github.com/kestrelsearch/kestrel/rank"
)

// fakeStore is a minimal kestrel.StoreTxn exposing only TableTermDocs,
// enough for the Words stage's term lookups in these tests.
type fakeStore struct {
	termDocs map[string]*roaring.Bitmap
}

func (s *fakeStore) GetBitmap(table kestrel.Table, key []byte) (*roaring.Bitmap, error) {
	if table != kestrel.TableTermDocs {
		return nil, nil
	}
	return s.termDocs[string(key)], nil
}

func (s *fakeStore) GetRaw(kestrel.Table, []byte) ([]byte, error) {
	return nil, nil
}

func (s *fakeStore) PrefixScan(kestrel.Table, []byte) (kestrel.EntryIterator, error) {
	return kestrel.NewSliceIterator(nil), nil
}

func (s *fakeStore) RangeScan(kestrel.Table, kestrel.Bound, kestrel.Bound) (kestrel.EntryIterator, error) {
	return kestrel.NewSliceIterator(nil), nil
}

func (s *fakeStore) ReverseRangeScan(kestrel.Table, kestrel.Bound, kestrel.Bound) (kestrel.EntryIterator, error) {
	return kestrel.NewSliceIterator(nil), nil
}

// fakeContext implements query.Context over fakeStore plus a fixed set
// of attributes and an "all documents" bitmap; DocumentTokens is
// unused by these tests since every query here resolves with a single
// leaf term (Proximity short-circuits for single-term trees).
type fakeContext struct {
	store *fakeStore
	attrs []kestrel.AttributeID
	all   *roaring.Bitmap
}

func (c *fakeContext) Store() kestrel.StoreTxn { return c.store }
func (c *fakeContext) Attributes() []kestrel.AttributeID { return c.attrs }
func (c *fakeContext) AllDocuments() (*roaring.Bitmap, error) { return c.all.Clone(), nil }
func (c *fakeContext) DocumentTokens(kestrel.DocID, kestrel.AttributeID) ([]string, error) {
	return nil, nil
}

type noopDerivationSource struct{}

func (noopDerivationSource) Derive(term string, maxTypos int, prefix bool) ([]query.Derivation, error) {
	return nil, fmt.Errorf("unexpected derivation request for %q", term)
}

func TestPipelineCompletenessOverMatchingSubset(t *testing.T) {
	const attr kestrel.AttributeID = 0
	matching := roaring.BitmapOf(1, 3, 5, 7, 9)

	store := &fakeStore{termDocs: map[string]*roaring.Bitmap{
		string(kestrel.TermDocsKey("ok", attr)): matching,
	}}
	ctx := &fakeContext{
		store: store,
		attrs: []kestrel.AttributeID{attr},
		all:   roaring.BitmapOf(0, 1, 2, 3, 4, 5, 6, 7, 8, 9),
	}

	tree := &query.Word{Term: "ok"}
	descriptors := []rank.Descriptor{
		{Kind: rank.KindWords},
		{Kind: rank.KindTypo},
		{Kind: rank.KindProximity},
	}

	chain := rank.Build(tree, descriptors, nil)
	final := rank.NewFinal(chain)
	params := &rank.Params{
		QueryCtx:        ctx,
		WordDerivations: query.NewDerivationsCache(noopDerivationSource{}),
	}

	union := roaring.New()
	var buckets []*roaring.Bitmap
	for {
		res, err := final.Next(params, nil)
		require.NoError(t, err)
		if res == nil {
			break
		}
		buckets = append(buckets, res.Candidates)
	}

	require.NotEmpty(t, buckets)
	for i := range buckets {
		for j := range buckets {
			if i == j {
				continue
			}
			overlap := buckets[i].Clone()
			overlap.And(buckets[j])
			assert.True(t, overlap.IsEmpty(), "buckets %d and %d must be disjoint", i, j)
		}
		union.Or(buckets[i])
	}
	assert.True(t, union.Equals(matching))
}
