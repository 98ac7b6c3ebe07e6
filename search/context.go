// Package search wires the query tree, the word-derivations cache, and
// a criterion chain built by rank.Build into the single entry point a caller actually
// invokes: Search. It also supplies the one concrete query.Context
// implementation the ranking core runs against outside tests — backed
// directly by a kestrel.StoreTxn.
package search

import (
	"strings"

	"github.com/RoaringBitmap/roaring"

	"github.com/kestrelsearch/kestrel"
)

// StoreContext implements query.Context (and rank.FacetResolver) over
// a kestrel.StoreTxn and a fixed attribute/header layout. Tokenizing a
// document's attribute for phrase and proximity verification re-derives
// tokens from the stored record by case-folding and splitting on
// whitespace — the indexer's own tokenizer is out of scope, but a
// complete, runnable core needs some concrete stand-in to exercise
// Phrase and Proximity end-to-end.
type StoreContext struct {
	store  kestrel.StoreTxn
	header kestrel.DocumentHeader
	fields map[string]uint8
}

// NewStoreContext loads the document header from txn's TableMeta and
// builds a StoreContext over it. header[i] names AttributeID(i);
// fields maps a faceted field's name to its numeric field id for
// Asc/Desc.
func NewStoreContext(txn kestrel.StoreTxn, fields map[string]uint8) (*StoreContext, error) {
	raw, err := txn.GetRaw(kestrel.TableMeta, kestrel.MetaHeadersKey())
	if err != nil {
		return nil, err
	}
	var header kestrel.DocumentHeader
	if raw != nil {
		cols, err := kestrel.DecodeFields(raw)
		if err != nil {
			return nil, err
		}
		header = kestrel.DocumentHeader(cols)
	}
	return &StoreContext{store: txn, header: header, fields: fields}, nil
}

// Store returns the underlying transaction.
func (c *StoreContext) Store() kestrel.StoreTxn { return c.store }

// Attributes returns every attribute id named by the document header,
// in ascending (= declared, = importance) order.
func (c *StoreContext) Attributes() []kestrel.AttributeID {
	attrs := make([]kestrel.AttributeID, len(c.header))
	for i := range c.header {
		attrs[i] = kestrel.AttributeID(i)
	}
	return attrs
}

// AllDocuments scans TableDocuments for every stored document id.
func (c *StoreContext) AllDocuments() (*roaring.Bitmap, error) {
	it, err := c.store.PrefixScan(kestrel.TableDocuments, nil)
	if err != nil {
		return nil, err
	}
	all := roaring.New()
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		if len(e.Key) != 4 {
			continue
		}
		all.Add(uint32(e.Key[0])<<24 | uint32(e.Key[1])<<16 | uint32(e.Key[2])<<8 | uint32(e.Key[3]))
	}
	return all, it.Err()
}

// DocumentTokens returns the case-folded, whitespace-split tokens of
// one attribute of one document.
func (c *StoreContext) DocumentTokens(id kestrel.DocID, attr kestrel.AttributeID) ([]string, error) {
	raw, err := c.store.GetRaw(kestrel.TableDocuments, kestrel.DocumentKey(id))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	record, err := kestrel.DecodeFields(raw)
	if err != nil {
		return nil, err
	}
	if int(attr) >= len(record) {
		return nil, nil
	}
	return strings.Fields(strings.ToLower(record[attr])), nil
}

// FieldID resolves a faceted field name to its numeric field id,
// satisfying rank.FacetResolver.
func (c *StoreContext) FieldID(name string) (uint8, bool) {
	fid, ok := c.fields[name]
	return fid, ok
}
