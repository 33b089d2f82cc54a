package query

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// BBox is a latitude/longitude bounding box.
type BBox struct {
	MinLat float64 `json:"minLat"`
	MinLon float64 `json:"minLon"`
	MaxLat float64 `json:"maxLat"`
	MaxLon float64 `json:"maxLon"`
}

// Contains reports whether the point lies inside the box, edges included.
func (b BBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Bounds returns the smallest box holding every marker, or nil when there
// are none. The map view fits its viewport to it.
func Bounds(markers []Marker) *BBox {
	if len(markers) == 0 {
		return nil
	}
	b := geom.NewBounds(geom.XY)
	for _, m := range markers {
		b.Extend(markerPoint(m))
	}
	return &BBox{
		MinLat: b.Min(1),
		MinLon: b.Min(0),
		MaxLat: b.Max(1),
		MaxLon: b.Max(0),
	}
}

// FeatureCollection encodes the markers as GeoJSON points with the marker
// fields as properties.
func FeatureCollection(markers []Marker) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(markers))}
	if len(markers) == 0 {
		return fc
	}
	bounds := geom.NewBounds(geom.XY)
	for _, m := range markers {
		p := markerPoint(m)
		bounds.Extend(p)
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       m.ID,
			Geometry: p,
			Properties: map[string]any{
				"title":        m.Title,
				"popupContent": m.PopupContent,
			},
		})
	}
	fc.BBox = bounds
	return fc
}

// markerPoint places a marker in GeoJSON axis order (longitude, latitude).
func markerPoint(m Marker) *geom.Point {
	return geom.NewPoint(geom.XY).MustSetCoords(geom.Coord{m.Longitude, m.Latitude})
}

// ParseBBox reads "minLat,minLon,maxLat,maxLon".
func ParseBBox(s string) (BBox, error) {
	var vals [4]float64
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BBox{}, eris.Errorf("query: bbox needs 4 comma-separated numbers, got %q", s)
	}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BBox{}, eris.Wrapf(err, "query: bbox value %q", p)
		}
		if math.IsNaN(f) {
			return BBox{}, eris.Errorf("query: bbox value %q is not a number", p)
		}
		vals[i] = f
	}
	b := BBox{MinLat: vals[0], MinLon: vals[1], MaxLat: vals[2], MaxLon: vals[3]}
	switch {
	case b.MinLat > b.MaxLat || b.MinLon > b.MaxLon:
		return BBox{}, eris.Errorf("query: bbox minimum exceeds maximum in %q", s)
	case b.MinLat < -90 || b.MaxLat > 90 || b.MinLon < -180 || b.MaxLon > 180:
		return BBox{}, eris.Errorf("query: bbox out of range in %q", s)
	}
	return b, nil
}
