package model

import (
	"strings"
)

// Member is one entry of the foundation member directory.
type Member struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Company string `json:"company,omitempty" yaml:"company,omitempty"`
	Venue   *Venue `json:"venue,omitempty" yaml:"venue,omitempty"`
}

// Venue is the location a member declared on their profile, enriched with
// the first geocoder suggestion when there was one.
type Venue struct {
	Name      string   `json:"name" yaml:"name"`
	Latitude  *float64 `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty" yaml:"longitude,omitempty"`
	Country   string   `json:"country,omitempty" yaml:"country,omitempty"`
	Continent string   `json:"continent,omitempty" yaml:"continent,omitempty"`
}

// HasCoordinates reports whether the member can be plotted on the map.
func (m Member) HasCoordinates() bool {
	return m.Venue != nil && m.Venue.Latitude != nil && m.Venue.Longitude != nil
}

// VenueName returns the venue label or "" when the member has no venue.
func (m Member) VenueName() string {
	if m.Venue == nil {
		return ""
	}
	return m.Venue.Name
}

// Country returns the venue country or "".
func (m Member) Country() string {
	if m.Venue == nil {
		return ""
	}
	return m.Venue.Country
}

// Continent returns the venue continent or "".
func (m Member) Continent() string {
	if m.Venue == nil {
		return ""
	}
	return m.Venue.Continent
}

// SearchableText is the haystack used by free-text search: name, company and
// venue name concatenated, reduced to lower-case ASCII letters and digits.
func (m Member) SearchableText() string {
	return NormalizeSearchText(m.Name + m.Company + m.VenueName())
}

// ProfileURL joins the directory profile prefix with the member id.
func (m Member) ProfileURL(prefix string) string {
	return prefix + m.ID
}

// NormalizeSearchText drops every character outside [a-zA-Z0-9] and
// lower-cases the rest.
func NormalizeSearchText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case c >= 'A' && c <= 'Z':
			b.WriteByte(c + ('a' - 'A'))
		}
	}
	return b.String()
}

// ContinentFromTimezone returns the first path segment of an IANA timezone
// identifier ("Europe/Rome" -> "Europe"). It is a geographic heuristic, not a
// continent taxonomy.
func ContinentFromTimezone(tz string) string {
	if tz == "" {
		return ""
	}
	head, _, _ := strings.Cut(tz, "/")
	return head
}

// Float returns a pointer to f, for building venues in code.
func Float(f float64) *float64 {
	return &f
}
