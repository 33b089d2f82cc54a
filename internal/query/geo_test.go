package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMarkers() []Marker {
	return []Marker{
		{ID: "/ferrara", Latitude: 44.83, Longitude: 11.62, Title: "Mario"},
		{ID: "/paris", Latitude: 48.85, Longitude: 2.35, Title: "Jean"},
		{ID: "/boston", Latitude: 42.36, Longitude: -71.06, Title: "Pat"},
		{ID: "/sydney", Latitude: -33.87, Longitude: 151.21, Title: "Bruce"},
	}
}

func TestBounds(t *testing.T) {
	b := Bounds(testMarkers())
	require.NotNil(t, b)
	assert.InDelta(t, -33.87, b.MinLat, 1e-9)
	assert.InDelta(t, 48.85, b.MaxLat, 1e-9)
	assert.InDelta(t, -71.06, b.MinLon, 1e-9)
	assert.InDelta(t, 151.21, b.MaxLon, 1e-9)

	assert.Nil(t, Bounds(nil))
}

func TestBounds_SingleMarker(t *testing.T) {
	b := Bounds(testMarkers()[:1])
	require.NotNil(t, b)
	assert.Equal(t, b.MinLat, b.MaxLat)
	assert.True(t, b.Contains(44.83, 11.62))
}

func TestFeatureCollection(t *testing.T) {
	fc := FeatureCollection(testMarkers()[:2])
	data, err := json.Marshal(fc)
	require.NoError(t, err)

	var decoded struct {
		Type     string    `json:"type"`
		BBox     []float64 `json:"bbox"`
		Features []struct {
			Type     string `json:"type"`
			ID       string `json:"id"`
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]string `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "FeatureCollection", decoded.Type)
	require.Len(t, decoded.Features, 2)
	f := decoded.Features[0]
	assert.Equal(t, "Feature", f.Type)
	assert.Equal(t, "/ferrara", f.ID)
	assert.Equal(t, "Point", f.Geometry.Type)
	assert.Equal(t, []float64{11.62, 44.83}, f.Geometry.Coordinates)
	assert.Equal(t, "Mario", f.Properties["title"])
	assert.Len(t, decoded.BBox, 4)
}

func TestFeatureCollection_Empty(t *testing.T) {
	data, err := json.Marshal(FeatureCollection(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, string(data))
}

func TestParseBBox(t *testing.T) {
	b, err := ParseBBox("40, -80,50,20")
	require.NoError(t, err)
	assert.Equal(t, BBox{MinLat: 40, MinLon: -80, MaxLat: 50, MaxLon: 20}, b)

	for _, bad := range []string{
		"",
		"1,2,3",
		"a,b,c,d",
		"50,0,40,10",
		"0,10,10,0",
		"-91,0,0,10",
		"0,0,10,181",
		"NaN,0,1,1",
	} {
		_, err := ParseBBox(bad)
		assert.Error(t, err, bad)
	}
}
