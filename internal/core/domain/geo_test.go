package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversine(t *testing.T) {
	// One degree of latitude at the equator is about 111.2 km.
	d := Haversine(Point{}, Point{Latitude: 1})
	assert.InDelta(t, 111.2, d, 0.5)

	// Identical points are zero distance.
	p := Point{Latitude: 25.0343, Longitude: -71.2847}
	assert.Zero(t, Haversine(p, p))

	// Symmetric.
	a := Point{Latitude: 40.7128, Longitude: -74.0060}
	b := Point{Latitude: 51.5074, Longitude: -0.1278}
	assert.InDelta(t, Haversine(a, b), Haversine(b, a), 1e-9)

	// New York to London is about 5570 km.
	assert.InDelta(t, 5570, Haversine(a, b), 20)
}

func TestPoint_Validate(t *testing.T) {
	require.NoError(t, Point{Latitude: 90, Longitude: -180}.Validate())
	assert.Error(t, Point{Latitude: 90.01}.Validate())
	assert.Error(t, Point{Longitude: -180.01}.Validate())
}
