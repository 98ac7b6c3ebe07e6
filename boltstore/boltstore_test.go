package boltstore_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrelsearch/kestrel"
	"github.com/kestrelsearch/kestrel/boltstore"
)

func TestDocumentCountMatchesTableDocumentsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	w, err := boltstore.NewWriter(path)
	require.NoError(t, err)
	for _, id := range []kestrel.DocID{1, 2, 3} {
		require.NoError(t, w.PutRaw(kestrel.TableDocuments, kestrel.DocumentKey(id), []byte("doc")))
	}
	require.NoError(t, w.Close())

	store, err := boltstore.Open(path)
	require.NoError(t, err)
	defer store.Close()

	txn, err := store.Begin()
	require.NoError(t, err)
	defer txn.Rollback()

	require.Equal(t, 3, txn.DocumentCount())
}

func TestDocumentCountEmptyIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	w, err := boltstore.NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	store, err := boltstore.Open(path)
	require.NoError(t, err)
	defer store.Close()

	txn, err := store.Begin()
	require.NoError(t, err)
	defer txn.Rollback()

	require.Equal(t, 0, txn.DocumentCount())
}
