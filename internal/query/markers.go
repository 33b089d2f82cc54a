package query

import (
	"strings"

	"github.com/nzambello/plone-map/internal/model"
)

// Marker is one plottable member.
type Marker struct {
	ID           string  `json:"id"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Title        string  `json:"title"`
	PopupContent string  `json:"popupContent"`
}

// MarkerIcon describes the image drawn for every marker. Sizes and anchors
// are in pixels, [x, y].
type MarkerIcon struct {
	IconURL      string     `json:"iconUrl" mapstructure:"icon_url"`
	ShadowURL    string     `json:"shadowUrl" mapstructure:"shadow_url"`
	IconSize     [2]float64 `json:"iconSize" mapstructure:"icon_size"`
	IconAnchor   [2]float64 `json:"iconAnchor" mapstructure:"icon_anchor"`
	ShadowAnchor [2]float64 `json:"shadowAnchor" mapstructure:"shadow_anchor"`
}

// DefaultMarkerIcon returns the stock pin icon.
func DefaultMarkerIcon() MarkerIcon {
	return MarkerIcon{
		IconURL:      "https://unpkg.com/leaflet@1.6.0/dist/images/marker-icon.png",
		ShadowURL:    "https://unpkg.com/leaflet@1.6.0/dist/images/marker-shadow.png",
		IconSize:     [2]float64{25, 41},
		IconAnchor:   [2]float64{12.5, 20.5},
		ShadowAnchor: [2]float64{12.5, 20.5},
	}
}

// Markers builds a marker for every member with both coordinates, in
// dataset order. profilePrefix is joined with the member id for the popup
// link.
func Markers(members []model.Member, profilePrefix string) []Marker {
	out := make([]Marker, 0, len(members))
	for _, m := range members {
		if !m.HasCoordinates() {
			continue
		}
		out = append(out, Marker{
			ID:           m.ID,
			Latitude:     *m.Venue.Latitude,
			Longitude:    *m.Venue.Longitude,
			Title:        m.Name,
			PopupContent: popupContent(m, profilePrefix),
		})
	}
	return out
}

// popupContent renders the plain-text summary shown when a marker is opened.
func popupContent(m model.Member, profilePrefix string) string {
	var b strings.Builder
	b.WriteString(m.Name)

	venue := m.VenueName()
	if country := m.Country(); country != "" {
		venue += " (" + country + ")"
	}
	if venue != "" {
		b.WriteString("\n")
		b.WriteString(venue)
	}
	if m.Company != "" {
		b.WriteString("\nCompany: ")
		b.WriteString(m.Company)
	}
	b.WriteString("\n")
	b.WriteString(m.ProfileURL(profilePrefix))
	return b.String()
}
