package query

import (
	"github.com/dhconnelly/rtreego"
	"github.com/rotisserie/eris"
)

const (
	dimensions  = 2
	minChildren = 4
	maxChildren = 16
	tolerance   = 1e-9
)

// spatialMarker wraps a marker for R-tree indexing.
type spatialMarker struct {
	pos  int
	rect rtreego.Rect
}

func (s *spatialMarker) Bounds() rtreego.Rect {
	return s.rect
}

// Index answers viewport queries over a fixed marker set. It is read-only
// after construction and safe for concurrent use.
type Index struct {
	tree    *rtreego.Rtree
	markers []Marker
}

// NewIndex bulk-loads the markers into an R-tree.
func NewIndex(markers []Marker) *Index {
	items := make([]rtreego.Spatial, 0, len(markers))
	for i, m := range markers {
		items = append(items, &spatialMarker{
			pos:  i,
			rect: rtreego.Point{m.Latitude, m.Longitude}.ToRect(tolerance),
		})
	}
	return &Index{
		tree:    rtreego.NewTree(dimensions, minChildren, maxChildren, items...),
		markers: markers,
	}
}

// Len returns the number of indexed markers.
func (idx *Index) Len() int {
	return idx.tree.Size()
}

// Within returns the markers inside the box, in insertion order.
func (idx *Index) Within(b BBox) ([]Marker, error) {
	rect, err := rtreego.NewRectFromPoints(
		rtreego.Point{b.MinLat - tolerance, b.MinLon - tolerance},
		rtreego.Point{b.MaxLat + tolerance, b.MaxLon + tolerance},
	)
	if err != nil {
		return nil, eris.Wrap(err, "query: invalid bounding box")
	}

	hits := idx.tree.SearchIntersect(rect)
	keep := make([]bool, len(idx.markers))
	for _, h := range hits {
		sm, ok := h.(*spatialMarker)
		if !ok {
			continue
		}
		m := idx.markers[sm.pos]
		if b.Contains(m.Latitude, m.Longitude) {
			keep[sm.pos] = true
		}
	}

	out := make([]Marker, 0, len(hits))
	for i, k := range keep {
		if k {
			out = append(out, idx.markers[i])
		}
	}
	return out, nil
}
