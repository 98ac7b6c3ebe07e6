package kestrel

import "encoding/binary"

// Table names one of the logical posting tables of the on-disk layout.
// Its value is the table's tag byte. The key builders below do not
// prefix keys with it: every StoreTxn call names the table separately,
// and boltstore keeps each table in its own bucket named by the tag.
type Table byte

const (
	// TableMeta holds the words FST and the original record headers,
	// keyed by the literal strings "words-fst" and "headers".
	TableMeta Table = 0
	// TableTermPositions maps a term to the bitmap of positions
	// (attribute*1000+index) at which it occurs across the corpus.
	TableTermPositions Table = 1
	// TablePrefixPositions is the same aggregation, keyed by prefix.
	TablePrefixPositions Table = 2
	// TableTermDocs maps (term, attribute) to the bitmap of documents
	// containing the term in that attribute.
	TableTermDocs Table = 3
	// TablePrefixDocs is the same aggregation, keyed by (prefix, attribute).
	TablePrefixDocs Table = 4
	// TableDocuments maps a document id to its serialized record.
	TableDocuments Table = 5
	// TableFacets holds the facet tree, keyed by
	// (field_id, level, range_low, range_high).
	TableFacets Table = 6
)

const metaKeyWordsFST = "words-fst"
const metaKeyHeaders = "headers"

// TermDocsKey builds the key for TableTermDocs / TablePrefixDocs:
// term (or prefix) bytes followed by the big-endian attribute id.
func TermDocsKey(term string, attr AttributeID) []byte {
	key := make([]byte, len(term)+2)
	copy(key, term)
	binary.BigEndian.PutUint16(key[len(term):], attr)
	return key
}

// DocumentKey builds the key for TableDocuments: the big-endian
// document id.
func DocumentKey(id DocID) []byte {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, id)
	return key
}

// FacetValue is a signed numeric facet value; Valid is false when no
// value is present. The facet range scans do not use it: they seed
// their open endpoints from the int64 extremes directly.
type FacetValue struct {
	Value int64
	Valid bool
}

// encodedFacetValue flips the sign bit of a two's-complement int64 so
// that big-endian byte ordering of the result matches numeric
// ordering of Value, mirroring heed's OwnedType<i64> trick used by
// the original facet codec.
func encodedFacetValue(v int64) [8]byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v)^(1<<63))
	return buf
}

func decodeFacetValue(buf []byte) int64 {
	return int64(binary.BigEndian.Uint64(buf) ^ (1 << 63))
}

// FacetKey builds the key for TableFacets:
// field_id(u8) ‖ level(u8) ‖ encoded(range_low) ‖ encoded(range_high).
func FacetKey(field uint8, level uint8, low, high int64) []byte {
	key := make([]byte, 0, 18)
	key = append(key, field, level)
	lowEnc := encodedFacetValue(low)
	highEnc := encodedFacetValue(high)
	key = append(key, lowEnc[:]...)
	key = append(key, highEnc[:]...)
	return key
}

// ParseFacetKey decodes a TableFacets key produced by FacetKey.
func ParseFacetKey(key []byte) (field uint8, level uint8, low, high int64, ok bool) {
	if len(key) != 18 {
		return 0, 0, 0, 0, false
	}
	field = key[0]
	level = key[1]
	low = decodeFacetValue(key[2:10])
	high = decodeFacetValue(key[10:18])
	return field, level, low, high, true
}

// FacetFieldPrefix returns the key prefix shared by every entry of one
// field, used to find the highest populated level via a prefix scan.
func FacetFieldPrefix(field uint8) []byte {
	return []byte{field}
}

// MetaWordsFSTKey is the TableMeta key holding the serialized terms
// automaton.
func MetaWordsFSTKey() []byte { return []byte(metaKeyWordsFST) }

// MetaHeadersKey is the TableMeta key holding the serialized original
// record header.
func MetaHeadersKey() []byte { return []byte(metaKeyHeaders) }
