package geocode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeocodeDisabledReturnsNoResultWithoutError(t *testing.T) {
	c := NewClient("https://geocoder.example", true, 1.0)
	lat, lon, ok, err := c.Geocode(context.Background(), "Brussels")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, lat)
	assert.Zero(t, lon)
}

func TestGeocodeDisabledWhenBaseURLEmpty(t *testing.T) {
	c := NewClient("", false, 1.0)
	_, _, ok, err := c.Geocode(context.Background(), "Brussels")
	require.NoError(t, err)
	assert.False(t, ok, "an empty base URL must behave as disabled even if the disable flag is false")
}
