package routefile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feralcreative/moto-rooter/server/internal/lib/geo"
)

func TestParseGPX_Fixture(t *testing.T) {
	doc, err := ParseGPX(loadFixture(t, "route-track.gpx"))
	require.NoError(t, err)

	assert.Equal(t, "Skyline loop", doc.Name)

	// The four point track beats the two point route; segments are joined
	require.Len(t, doc.Path, 4)
	assert.Equal(t, geo.Point{Latitude: 37.40, Longitude: -122.20}, doc.Path[0])
	assert.Equal(t, geo.Point{Latitude: 37.45, Longitude: -122.25}, doc.Path[3])

	require.Len(t, doc.Markers, 2)
	gas := doc.Markers[0]
	assert.Equal(t, "GAS - Chevron", gas.Label)
	assert.Equal(t, "Premium only", gas.Description)
	require.NotNil(t, gas.Elevation)
	assert.Equal(t, 120.0, *gas.Elevation)

	food := doc.Markers[1]
	assert.Equal(t, 1, food.Index)
	assert.Equal(t, "Open 8-3", food.Description, "cmt is used when desc is missing")
	assert.Nil(t, food.Elevation)
}

func TestParseGPX_Empty(t *testing.T) {
	_, err := ParseGPX(`<gpx version="1.1"><wpt lat="1" lon="2"/></gpx>`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyPath))
}

func TestParseGPX_Malformed(t *testing.T) {
	_, err := ParseGPX(`<gpx><trk>`)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrEmptyPath))
}
