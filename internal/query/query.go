// Package query filters the member dataset and derives the facet lists and
// map markers served to the view layer. Every function is pure: the dataset
// is never modified.
package query

import (
	"net/url"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/nzambello/plone-map/internal/model"
)

// Query parameter names.
const (
	ParamContinent      = "continent"
	ParamCountry        = "country"
	ParamCompany        = "company"
	ParamSearchableText = "searchableText"
)

// Params holds the optional filters of a request. A nil field was not
// supplied; an empty one was supplied blank. Neither constrains the result.
type Params struct {
	Continent      *string
	Country        *string
	Company        *string
	SearchableText *string
}

// ParamsFromValues reads the filters from URL query values.
func ParamsFromValues(v url.Values) Params {
	get := func(key string) *string {
		if !v.Has(key) {
			return nil
		}
		s := v.Get(key)
		return &s
	}
	return Params{
		Continent:      get(ParamContinent),
		Country:        get(ParamCountry),
		Company:        get(ParamCompany),
		SearchableText: get(ParamSearchableText),
	}
}

// Values encodes the supplied filters back into query values.
func (p Params) Values() url.Values {
	v := url.Values{}
	set := func(key string, s *string) {
		if s != nil {
			v.Set(key, *s)
		}
	}
	set(ParamContinent, p.Continent)
	set(ParamCountry, p.Country)
	set(ParamCompany, p.Company)
	set(ParamSearchableText, p.SearchableText)
	return v
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Filter returns the members matching every non-empty filter, in dataset
// order. Continent, country and company match exactly. The search text is
// normalized like Member.SearchableText and matched as a substring; a
// non-empty search that normalizes to nothing matches no member.
func Filter(members []model.Member, p Params) []model.Member {
	continent := value(p.Continent)
	country := value(p.Country)
	company := value(p.Company)
	rawSearch := value(p.SearchableText)
	search := model.NormalizeSearchText(rawSearch)

	out := make([]model.Member, 0, len(members))
	for _, m := range members {
		if continent != "" && m.Continent() != continent {
			continue
		}
		if country != "" && m.Country() != country {
			continue
		}
		if company != "" && m.Company != company {
			continue
		}
		if rawSearch != "" && (search == "" || !strings.Contains(m.SearchableText(), search)) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Facets lists the distinct values available for each filter.
type Facets struct {
	Continents []string `json:"continents"`
	Countries  []string `json:"countries"`
	Companies  []string `json:"companies"`
}

// ComputeFacets collects the distinct non-empty continents, countries and
// companies of the full dataset, sorted with locale-aware comparison.
func ComputeFacets(members []model.Member) Facets {
	return Facets{
		Continents: distinct(members, model.Member.Continent),
		Countries:  distinct(members, model.Member.Country),
		Companies:  distinct(members, func(m model.Member) string { return m.Company }),
	}
}

func distinct(members []model.Member, field func(model.Member) string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, m := range members {
		v := field(m)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	collate.New(language.Und).SortStrings(out)
	return out
}

// Result is the response of a member query.
type Result struct {
	Total          int            `json:"total"`
	Members        []model.Member `json:"members"`
	Continent      *string        `json:"continent"`
	Continents     []string       `json:"continents"`
	Country        *string        `json:"country"`
	Countries      []string       `json:"countries"`
	Company        *string        `json:"company"`
	Companies      []string       `json:"companies"`
	SearchableText *string        `json:"searchableText"`
}

// Run filters members and attaches the facets of the full dataset.
func Run(members []model.Member, p Params) Result {
	f := ComputeFacets(members)
	return Result{
		Total:          len(members),
		Members:        Filter(members, p),
		Continent:      p.Continent,
		Continents:     f.Continents,
		Country:        p.Country,
		Countries:      f.Countries,
		Company:        p.Company,
		Companies:      f.Companies,
		SearchableText: p.SearchableText,
	}
}
