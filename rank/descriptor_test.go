package rank_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelsearch/kestrel"
	"github.com/kestrelsearch/kestrel/rank"
)

func TestParseDescriptorFacetedField(t *testing.T) {
	d, err := rank.ParseDescriptor(map[string]bool{"price": true}, "asc(price)")
	require.NoError(t, err)
	assert.Equal(t, rank.Descriptor{Kind: rank.KindAsc, Field: "price"}, d)
	assert.Equal(t, "asc(price)", d.String())
}

func TestParseDescriptorFieldNotFaceted(t *testing.T) {
	_, err := rank.ParseDescriptor(map[string]bool{}, "asc(price)")
	require.Error(t, err)
	var kerr *kestrel.Error
	require.True(t, errors.As(err, &kerr))
	assert.Equal(t, kestrel.ErrInvalidCriterion, kerr.Kind)
}

func TestParseDescriptorUnknownName(t *testing.T) {
	_, err := rank.ParseDescriptor(nil, "bogus")
	require.Error(t, err)
	var kerr *kestrel.Error
	require.True(t, errors.As(err, &kerr))
	assert.Equal(t, kestrel.ErrInvalidCriterion, kerr.Kind)
}

func TestParseDescriptorRoundTrip(t *testing.T) {
	for _, text := range []string{"words", "typo", "proximity", "attribute", "exactness", "desc(size)"} {
		d, err := rank.ParseDescriptor(map[string]bool{"size": true}, text)
		require.NoError(t, err)
		assert.Equal(t, text, d.String())
	}
}

func TestDefaultDescriptors(t *testing.T) {
	got := rank.DefaultDescriptors()
	want := []rank.Descriptor{
		{Kind: rank.KindWords},
		{Kind: rank.KindTypo},
		{Kind: rank.KindProximity},
		{Kind: rank.KindAttribute},
		{Kind: rank.KindExactness},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("default descriptors mismatch (-want +got):\n%s", diff)
	}
}
