// Package boltstore implements kestrel.StoreTxn on top of go.etcd.io/bbolt,
// an embedded ordered key-value store whose read transactions never block
// each other or the single writer — the concrete backend the ranking core's
// storage contract (kestrel.StoreTxn) was written against.
package boltstore

import (
	"bytes"
	"fmt"

	"github.com/RoaringBitmap/roaring"
	"go.etcd.io/bbolt"

	"github.com/kestrelsearch/kestrel"
)

// bucketName maps a logical table to the bbolt bucket that backs it.
// Every table gets its own bucket rather than sharing one keyspace with
// a tag-byte prefix, since bbolt buckets already give us the ordered,
// isolated namespace the tag byte exists to fake in a single flat
// keyspace store.
func bucketName(table kestrel.Table) []byte {
	return []byte{byte(table)}
}

// Store wraps a *bbolt.DB, the durable file backing the index.
type Store struct {
	db *bbolt.DB
}

// Open opens (creating if absent) the bbolt file at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, kestrel.StorageError(fmt.Sprintf("open %s", path), err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying file.
func (s *Store) Close() error { return s.db.Close() }

// Begin starts a read-only transaction satisfying kestrel.StoreTxn.
func (s *Store) Begin() (*Txn, error) {
	tx, err := s.db.Begin(false)
	if err != nil {
		return nil, kestrel.StorageError("begin read transaction", err)
	}
	return &Txn{tx: tx}, nil
}

// View runs fn inside a read-only transaction, closing it afterwards
// regardless of fn's outcome.
func (s *Store) View(fn func(txn *Txn) error) error {
	txn, err := s.Begin()
	if err != nil {
		return err
	}
	defer txn.Rollback()
	return fn(txn)
}

// Txn is a read-only bbolt transaction implementing kestrel.StoreTxn.
type Txn struct {
	tx *bbolt.Tx
}

// Rollback releases the transaction. Read-only bbolt transactions are
// always "rolled back" (there is nothing to commit).
func (t *Txn) Rollback() error { return t.tx.Rollback() }

var _ kestrel.StoreTxn = (*Txn)(nil)

// DocumentCount returns the number of documents recorded in
// TableDocuments, using bbolt's own bucket statistics rather than a
// hand-maintained counter: KeyN is exact and free of the write-path
// bookkeeping a separate counter would need to stay in sync.
func (t *Txn) DocumentCount() int {
	b := t.tx.Bucket(bucketName(kestrel.TableDocuments))
	if b == nil {
		return 0
	}
	return b.Stats().KeyN
}

func (t *Txn) GetBitmap(table kestrel.Table, key []byte) (*roaring.Bitmap, error) {
	b := t.tx.Bucket(bucketName(table))
	if b == nil {
		return nil, nil
	}
	raw := b.Get(key)
	if raw == nil {
		return nil, nil
	}
	bm := roaring.New()
	if _, err := bm.FromBuffer(raw); err != nil {
		return nil, kestrel.BitmapError(fmt.Sprintf("decode bitmap at key %x", key), err)
	}
	return bm, nil
}

func (t *Txn) GetRaw(table kestrel.Table, key []byte) ([]byte, error) {
	b := t.tx.Bucket(bucketName(table))
	if b == nil {
		return nil, nil
	}
	raw := b.Get(key)
	if raw == nil {
		return nil, nil
	}
	return append([]byte(nil), raw...), nil
}

func (t *Txn) PrefixScan(table kestrel.Table, prefix []byte) (kestrel.EntryIterator, error) {
	b := t.tx.Bucket(bucketName(table))
	if b == nil {
		return kestrel.NewSliceIterator(nil), nil
	}
	var entries []kestrel.Entry
	c := b.Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		entries = append(entries, kestrel.Entry{
			Key:    append([]byte(nil), k...),
			Bitmap: kestrel.NewRawLazyBitmap(append([]byte(nil), v...)),
		})
	}
	return kestrel.NewSliceIterator(entries), nil
}

func (t *Txn) RangeScan(table kestrel.Table, low, high kestrel.Bound) (kestrel.EntryIterator, error) {
	b := t.tx.Bucket(bucketName(table))
	if b == nil {
		return kestrel.NewSliceIterator(nil), nil
	}
	var entries []kestrel.Entry
	c := b.Cursor()
	var k, v []byte
	if low.Kind == kestrel.Unbounded {
		k, v = c.First()
	} else {
		k, v = c.Seek(low.Key)
		if low.Kind == kestrel.Excluded && k != nil && bytes.Equal(k, low.Key) {
			k, v = c.Next()
		}
	}
	for ; k != nil; k, v = c.Next() {
		if !withinHigh(k, high) {
			break
		}
		entries = append(entries, kestrel.Entry{
			Key:    append([]byte(nil), k...),
			Bitmap: kestrel.NewRawLazyBitmap(append([]byte(nil), v...)),
		})
	}
	return kestrel.NewSliceIterator(entries), nil
}

func (t *Txn) ReverseRangeScan(table kestrel.Table, low, high kestrel.Bound) (kestrel.EntryIterator, error) {
	b := t.tx.Bucket(bucketName(table))
	if b == nil {
		return kestrel.NewSliceIterator(nil), nil
	}
	var entries []kestrel.Entry
	c := b.Cursor()
	var k, v []byte
	if high.Kind == kestrel.Unbounded {
		k, v = c.Last()
	} else {
		k, v = c.Seek(high.Key)
		if k == nil {
			k, v = c.Last()
		} else if high.Kind == kestrel.Excluded && bytes.Equal(k, high.Key) {
			k, v = c.Prev()
		} else if !bytes.Equal(k, high.Key) {
			k, v = c.Prev()
		}
	}
	for ; k != nil; k, v = c.Prev() {
		if !withinLow(k, low) {
			break
		}
		entries = append(entries, kestrel.Entry{
			Key:    append([]byte(nil), k...),
			Bitmap: kestrel.NewRawLazyBitmap(append([]byte(nil), v...)),
		})
	}
	return kestrel.NewSliceIterator(entries), nil
}

func withinHigh(key []byte, high kestrel.Bound) bool {
	switch high.Kind {
	case kestrel.Unbounded:
		return true
	case kestrel.Included:
		return bytes.Compare(key, high.Key) <= 0
	case kestrel.Excluded:
		return bytes.Compare(key, high.Key) < 0
	default:
		return true
	}
}

func withinLow(key []byte, low kestrel.Bound) bool {
	switch low.Kind {
	case kestrel.Unbounded:
		return true
	case kestrel.Included:
		return bytes.Compare(key, low.Key) >= 0
	case kestrel.Excluded:
		return bytes.Compare(key, low.Key) > 0
	default:
		return true
	}
}
