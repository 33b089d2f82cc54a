package geocode

import "github.com/nzambello/plone-map/internal/model"

// ApplySuggestion builds the venue for a declared place name. Without a
// suggestion only the name is set; otherwise the suggestion's name (when it has one),
// coordinates and country replace it and the continent is taken from the
// timezone.
func ApplySuggestion(venueName string, s *Suggestion) model.Venue {
	if s == nil {
		return model.Venue{Name: venueName}
	}
	name := s.Name
	if name == "" {
		name = venueName
	}
	return model.Venue{
		Name:      name,
		Latitude:  model.Float(s.Latitude),
		Longitude: model.Float(s.Longitude),
		Country:   s.Country,
		Continent: model.ContinentFromTimezone(s.Timezone),
	}
}
