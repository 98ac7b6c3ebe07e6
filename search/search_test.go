package search_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/RoaringBitmap/roaring"
	"github.com/stretchr/testify/require"

	"github.com/kestrelsearch/kestrel"
	"github.com/kestrelsearch/kestrel/boltstore"
	"github.com/kestrelsearch/kestrel/query"
	"github.com/kestrelsearch/kestrel/rank"
	"github.com/kestrelsearch/kestrel/search"
)

type noDerivations struct{}

func (noDerivations) Derive(term string, maxTypos int, prefix bool) ([]query.Derivation, error) {
	return nil, nil
}

// buildFixture writes a five-document corpus where three documents
// contain "river" in attribute 0 (the title) and two don't, spread
// across two facet buckets of a "year" field, mirroring spec scenario 6.
func buildFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.db")

	w, err := boltstore.NewWriter(path)
	require.NoError(t, err)
	defer w.Close()

	header, err := kestrel.EncodeFields([]string{"title"})
	require.NoError(t, err)
	require.NoError(t, w.PutRaw(kestrel.TableMeta, kestrel.MetaHeadersKey(), header))

	docs := map[uint32]string{
		1: "river bend trail",
		2: "mountain pass",
		3: "river delta survey",
		4: "canyon river run",
		5: "lake shore walk",
	}
	for id, title := range docs {
		rec, err := kestrel.EncodeFields([]string{title})
		require.NoError(t, err)
		require.NoError(t, w.PutRaw(kestrel.TableDocuments, kestrel.DocumentKey(id), rec))
	}

	require.NoError(t, w.PutBitmap(kestrel.TableTermDocs, kestrel.TermDocsKey("river", 0), roaring.BitmapOf(1, 3, 4)))

	require.NoError(t, w.PutBitmap(kestrel.TableFacets, kestrel.FacetKey(0, 0, 2020, 2020), roaring.BitmapOf(1, 2)))
	require.NoError(t, w.PutBitmap(kestrel.TableFacets, kestrel.FacetKey(0, 0, 2021, 2021), roaring.BitmapOf(3, 4, 5)))

	return path
}

func TestSearchRanksAndPaginates(t *testing.T) {
	path := buildFixture(t)
	defer os.Remove(path)

	store, err := boltstore.Open(path)
	require.NoError(t, err)
	defer store.Close()

	txn, err := store.Begin()
	require.NoError(t, err)
	defer txn.Rollback()

	ctx, err := search.NewStoreContext(txn, map[string]uint8{"year": 0})
	require.NoError(t, err)

	tree := &query.Word{Term: "river"}
	wdcache := query.NewDerivationsCache(noDerivations{})

	it, err := search.Search(ctx, wdcache, tree, rank.DefaultDescriptors(), ctx, search.Options{})
	require.NoError(t, err)

	var got []kestrel.DocID
	seen := roaring.New()
	for {
		id, _, ok := it.Next()
		if !ok {
			break
		}
		require.False(t, seen.Contains(id), "document %d returned twice", id)
		seen.Add(id)
		got = append(got, id)
	}
	require.NoError(t, it.Err())

	require.True(t, seen.Equals(roaring.BitmapOf(1, 3, 4)))
	require.Len(t, got, 3)
}

func TestSearchRespectsFacetFilter(t *testing.T) {
	path := buildFixture(t)
	defer os.Remove(path)

	store, err := boltstore.Open(path)
	require.NoError(t, err)
	defer store.Close()

	txn, err := store.Begin()
	require.NoError(t, err)
	defer txn.Rollback()

	ctx, err := search.NewStoreContext(txn, map[string]uint8{"year": 0})
	require.NoError(t, err)

	tree := &query.Word{Term: "river"}
	wdcache := query.NewDerivationsCache(noDerivations{})

	it, err := search.Search(ctx, wdcache, tree, rank.DefaultDescriptors(), ctx, search.Options{
		FacetFilter: roaring.BitmapOf(1, 2),
	})
	require.NoError(t, err)

	var got []kestrel.DocID
	for {
		id, _, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, id)
	}
	require.NoError(t, it.Err())
	require.Equal(t, []kestrel.DocID{1}, got)
}

func TestSearchLimitAndOffset(t *testing.T) {
	path := buildFixture(t)
	defer os.Remove(path)

	store, err := boltstore.Open(path)
	require.NoError(t, err)
	defer store.Close()

	txn, err := store.Begin()
	require.NoError(t, err)
	defer txn.Rollback()

	ctx, err := search.NewStoreContext(txn, nil)
	require.NoError(t, err)

	tree := &query.Word{Term: "river"}
	wdcache := query.NewDerivationsCache(noDerivations{})

	it, err := search.Search(ctx, wdcache, tree, rank.DefaultDescriptors(), ctx, search.Options{
		Offset: 1,
		Limit:  1,
	})
	require.NoError(t, err)

	id, _, ok := it.Next()
	require.True(t, ok)
	require.Contains(t, []kestrel.DocID{1, 3, 4}, id)

	_, _, ok = it.Next()
	require.False(t, ok)
	require.NoError(t, it.Err())
}
