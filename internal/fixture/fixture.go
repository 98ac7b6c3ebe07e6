// Package fixture builds a minimal on-disk kestrel index from plain
// rows of strings. It stands in for the indexer (tokenization, typo
// automaton construction, and the positions/prefix tables are all out
// of scope for this module) so that search, and the CLI built on top
// of it, have something concrete to run against.
package fixture

import (
	"sort"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring"

	"github.com/kestrelsearch/kestrel"
	"github.com/kestrelsearch/kestrel/boltstore"
)

// Row is one document: Fields[i] is the value of column Header[i].
type Row struct {
	ID     kestrel.DocID
	Fields []string
}

// Build writes header, rows, the per-(term,attribute) posting lists,
// and a facet tree over every column named in facetFields to a new
// bbolt file at path.
func Build(path string, header []string, rows []Row, facetFields map[string]bool) error {
	w, err := boltstore.NewWriter(path)
	if err != nil {
		return err
	}
	defer w.Close()

	headerBytes, err := kestrel.EncodeFields(header)
	if err != nil {
		return err
	}
	if err := w.PutRaw(kestrel.TableMeta, kestrel.MetaHeadersKey(), headerBytes); err != nil {
		return err
	}

	termDocs := make(map[string]*roaring.Bitmap)
	facetValues := make(map[uint8]map[int64]*roaring.Bitmap)

	for _, row := range rows {
		rec, err := kestrel.EncodeFields(row.Fields)
		if err != nil {
			return err
		}
		if err := w.PutRaw(kestrel.TableDocuments, kestrel.DocumentKey(row.ID), rec); err != nil {
			return err
		}

		for col, name := range header {
			if col >= len(row.Fields) {
				continue
			}
			value := row.Fields[col]

			if facetFields[name] {
				n, err := strconv.ParseInt(value, 10, 64)
				if err == nil {
					field := uint8(col)
					if facetValues[field] == nil {
						facetValues[field] = make(map[int64]*roaring.Bitmap)
					}
					if facetValues[field][n] == nil {
						facetValues[field][n] = roaring.New()
					}
					facetValues[field][n].Add(row.ID)
				}
				continue
			}

			for _, token := range strings.Fields(strings.ToLower(value)) {
				key := string(kestrel.TermDocsKey(token, kestrel.AttributeID(col)))
				if termDocs[key] == nil {
					termDocs[key] = roaring.New()
				}
				termDocs[key].Add(row.ID)
			}
		}
	}

	for key, bm := range termDocs {
		if err := w.PutBitmap(kestrel.TableTermDocs, []byte(key), bm); err != nil {
			return err
		}
	}

	for field, values := range facetValues {
		if err := writeFacetLevels(w, field, values); err != nil {
			return err
		}
	}

	return nil
}

// writeFacetLevels writes a single-level facet tree (level 0, one
// entry per distinct value) for field. A complete indexer would group
// level 0 into coarser ranges at higher levels once the value count
// passes some group size; with the small document counts this module
// targets, level 0 alone exercises the facet tree's search path fully
// (LevelIterator handles any highest_level uniformly, including 0).
func writeFacetLevels(w *boltstore.Writer, field uint8, values map[int64]*roaring.Bitmap) error {
	sorted := make([]int64, 0, len(values))
	for v := range values {
		sorted = append(sorted, v)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	for _, v := range sorted {
		if err := w.PutBitmap(kestrel.TableFacets, kestrel.FacetKey(field, 0, v, v), values[v]); err != nil {
			return err
		}
	}
	return nil
}
