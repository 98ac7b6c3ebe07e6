package boltstore

import (
	"go.etcd.io/bbolt"

	"github.com/RoaringBitmap/roaring"
	"github.com/kestrelsearch/kestrel"
)

// Writer is a minimal write path used by the fixture builder (and, in a
// complete system, by the indexer) to populate the on-disk layout the
// ranking core reads. It is intentionally narrow: the indexer itself
// (tokenization, FST construction) is out of scope for this module.
type Writer struct {
	db *bbolt.DB
}

// NewWriter opens path for writing, creating every table's bucket.
func NewWriter(path string) (*Writer, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, kestrel.StorageError("open for write", err)
	}
	tables := []kestrel.Table{
		kestrel.TableMeta, kestrel.TableTermPositions, kestrel.TablePrefixPositions,
		kestrel.TableTermDocs, kestrel.TablePrefixDocs, kestrel.TableDocuments, kestrel.TableFacets,
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, t := range tables {
			if _, err := tx.CreateBucketIfNotExists(bucketName(t)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, kestrel.StorageError("create buckets", err)
	}
	return &Writer{db: db}, nil
}

// Close closes the underlying file.
func (w *Writer) Close() error { return w.db.Close() }

// PutBitmap stores bm at key in table.
func (w *Writer) PutBitmap(table kestrel.Table, key []byte, bm *roaring.Bitmap) error {
	buf, err := bm.ToBytes()
	if err != nil {
		return kestrel.BitmapError("serialize bitmap", err)
	}
	return w.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName(table)).Put(key, buf)
	})
}

// PutRaw stores a raw byte payload at key in table (used for
// TableMeta and TableDocuments records, which are not bitmaps).
func (w *Writer) PutRaw(table kestrel.Table, key []byte, value []byte) error {
	return w.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName(table)).Put(key, value)
	})
}
