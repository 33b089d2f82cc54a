package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nzambello/plone-map/internal/model"
)

const prefix = "https://plone.org/foundation/members/active-members"

func TestMarkers_OnlyMembersWithCoordinates(t *testing.T) {
	members := []model.Member{
		{ID: "1", Venue: &model.Venue{Latitude: model.Float(45.0), Longitude: model.Float(9.0)}},
		{ID: "2", Venue: &model.Venue{}},
	}
	markers := Markers(members, prefix)
	require.Len(t, markers, 1)
	assert.Equal(t, "1", markers[0].ID)
	assert.InDelta(t, 45.0, markers[0].Latitude, 0.0001)
	assert.InDelta(t, 9.0, markers[0].Longitude, 0.0001)
}

func TestMarkers_ZeroCoordinatesArePlotted(t *testing.T) {
	members := []model.Member{{ID: "/null", Name: "Null", Venue: &model.Venue{Latitude: model.Float(0), Longitude: model.Float(0)}}}
	assert.Len(t, Markers(members, prefix), 1)
}

func TestMarkers_Content(t *testing.T) {
	markers := Markers(sampleMembers(), prefix)
	require.Len(t, markers, 3)

	m := markers[0]
	assert.Equal(t, "Mario Rossi", m.Title)
	assert.Equal(t, "Mario Rossi\nFerrara (Italy)\nCompany: RedTurtle\n"+prefix+"/mario", m.PopupContent)

	obrien := markers[2]
	assert.Equal(t, "O'Brien & Co\nBoston (United States)\n"+prefix+"/obrien", obrien.PopupContent)
}

func TestPopupContent_NoCountry(t *testing.T) {
	m := model.Member{ID: "/x", Name: "X", Venue: &model.Venue{Name: "Somewhere"}}
	assert.Equal(t, "X\nSomewhere\n"+prefix+"/x", popupContent(m, prefix))
}

func TestDefaultMarkerIcon(t *testing.T) {
	icon := DefaultMarkerIcon()
	assert.Equal(t, [2]float64{25, 41}, icon.IconSize)
	assert.Equal(t, [2]float64{12.5, 20.5}, icon.IconAnchor)
	assert.Equal(t, [2]float64{12.5, 20.5}, icon.ShadowAnchor)

	data, err := json.Marshal(icon)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"iconSize":[25,41]`)
}
