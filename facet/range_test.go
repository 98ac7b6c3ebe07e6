package facet_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelsearch/kestrel"
	"github.com/kestrelsearch/kestrel/facet"
)

func buildLevelStore(field uint8) *memStore {
	store := newMemStore()
	store.put(kestrel.TableFacets, kestrel.FacetKey(field, 0, 10, 10), bitmapOf(1))
	store.put(kestrel.TableFacets, kestrel.FacetKey(field, 0, 20, 20), bitmapOf(2))
	store.put(kestrel.TableFacets, kestrel.FacetKey(field, 0, 30, 30), bitmapOf(3))
	return store
}

func TestRangeExcludedLeftBoundSkipsBoundaryValue(t *testing.T) {
	const field = 9
	store := buildLevelStore(field)

	r, err := facet.NewRange[int64](store, field, 0, facet.ExcludedBound[int64](10), facet.UnboundedBound[int64]())
	require.NoError(t, err)

	var values []int64
	for {
		e, ok := r.Next()
		if !ok {
			break
		}
		values = append(values, e.Low)
	}
	require.NoError(t, r.Err())
	assert.Equal(t, []int64{20, 30}, values, "an excluded left bound must not include the boundary value itself")
}

func TestRangeExcludedRightBoundStopsBeforeBoundaryValue(t *testing.T) {
	const field = 9
	store := buildLevelStore(field)

	r, err := facet.NewRange[int64](store, field, 0, facet.UnboundedBound[int64](), facet.ExcludedBound[int64](30))
	require.NoError(t, err)

	var values []int64
	for {
		e, ok := r.Next()
		if !ok {
			break
		}
		values = append(values, e.Low)
	}
	require.NoError(t, r.Err())
	assert.Equal(t, []int64{10, 20}, values, "an excluded right bound must not include the boundary value itself")
}

func TestRevRangeExcludedBoundsAreExclusiveBothEnds(t *testing.T) {
	const field = 9
	store := buildLevelStore(field)

	r, err := facet.NewRevRange[int64](store, field, 0, facet.ExcludedBound[int64](10), facet.ExcludedBound[int64](30))
	require.NoError(t, err)

	var values []int64
	for {
		e, ok := r.Next()
		if !ok {
			break
		}
		values = append(values, e.Low)
	}
	require.NoError(t, r.Err())
	assert.Equal(t, []int64{20}, values, "both boundary values must be excluded, leaving only the midpoint")
}
