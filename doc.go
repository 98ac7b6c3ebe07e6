// Package kestrel implements the ranked-retrieval core of a full-text
// search engine: a pipeline of ranking criteria that turns a query tree
// into an ordered sequence of document buckets, backed by compressed
// posting lists and hierarchical facet trees.
//
// The indexer (tokenization, FST construction, initial posting-list
// writes) and the storage engine are external collaborators. This
// package only assumes the contract described by StoreTxn; see
// package boltstore for a concrete implementation on top of bbolt.
package kestrel

// DocID identifies a document within the corpus.
type DocID = uint32

// AttributeID names a field of a document. Positions encode an
// AttributeID in their high-order digits, so the practical range is
// bounded by how many attributes a single corpus defines, not by the
// type's bit width.
type AttributeID = uint16

// attributeStride is the number of index slots reserved per attribute
// inside a Position. An attribute may hold at most attributeStride
// words (indices 0 through attributeStride-1) before index overflows
// into the next attribute's range.
const attributeStride = 1000

// Position encodes (attribute, index-within-attribute) as
// attribute*1000 + index, so positions from different attributes never
// compare as numerically adjacent.
type Position uint32

// NewPosition builds a Position from an attribute id and a zero-based
// index within that attribute.
func NewPosition(attr AttributeID, index uint32) Position {
	return Position(uint32(attr)*attributeStride + index)
}

// Attribute returns the attribute part of p.
func (p Position) Attribute() AttributeID {
	return AttributeID(uint32(p) / attributeStride)
}

// Index returns the within-attribute part of p.
func (p Position) Index() uint32 {
	return uint32(p) % attributeStride
}
