package ingest

import (
	"reflect"

	"dario.cat/mergo"
	"github.com/rotisserie/eris"

	"github.com/nzambello/plone-map/internal/model"
)

// Merge combines freshly scraped members with the previous dataset. The
// result has exactly one entry per scraped member, in scraped order. When a
// previous record shares the id, the profile text (name, company, venue
// name) always comes from the scrape, even when empty. Geocoded venue fields
// are kept from the previous record unless the scrape has a value for them.
// Previous records without a scraped counterpart are dropped. Neither input
// is modified.
func Merge(existing, scraped []model.Member) ([]model.Member, error) {
	byID := make(map[string]model.Member, len(existing))
	for _, m := range existing {
		if _, dup := byID[m.ID]; !dup {
			byID[m.ID] = m
		}
	}

	out := make([]model.Member, 0, len(scraped))
	for _, m := range scraped {
		old, ok := byID[m.ID]
		if !ok {
			out = append(out, cloneMember(m))
			continue
		}
		merged, err := mergeMember(old, m)
		if err != nil {
			return nil, err
		}
		out = append(out, merged)
	}
	return out, nil
}

func mergeMember(old, fresh model.Member) (model.Member, error) {
	dst := cloneMember(old)
	src := cloneMember(fresh)
	if err := mergo.Merge(&dst, src,
		mergo.WithOverride,
		mergo.WithTransformers(coordinateTransformer{}),
	); err != nil {
		return model.Member{}, eris.Wrapf(err, "ingest: merge member %s", fresh.ID)
	}

	// Cleared profile fields must not fall back to stale values.
	dst.Name = src.Name
	dst.Company = src.Company
	if src.Venue != nil && dst.Venue != nil {
		dst.Venue.Name = src.Venue.Name
	}
	return dst, nil
}

// coordinateTransformer lets a present coordinate replace the old one even
// when it is zero.
type coordinateTransformer struct{}

var floatPtrType = reflect.TypeOf((*float64)(nil))

func (coordinateTransformer) Transformer(t reflect.Type) func(dst, src reflect.Value) error {
	if t != floatPtrType {
		return nil
	}
	return func(dst, src reflect.Value) error {
		if !src.IsNil() && dst.CanSet() {
			dst.Set(src)
		}
		return nil
	}
}

func cloneMember(m model.Member) model.Member {
	if m.Venue == nil {
		return m
	}
	v := *m.Venue
	if v.Latitude != nil {
		v.Latitude = model.Float(*v.Latitude)
	}
	if v.Longitude != nil {
		v.Longitude = model.Float(*v.Longitude)
	}
	m.Venue = &v
	return m
}
