package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nzambello/plone-map/internal/directory"
	"github.com/nzambello/plone-map/pkg/geocode"
)

func TestScrape_BuildsMembersInListingOrder(t *testing.T) {
	dir := newDirectory("jane", "bob")
	dir.profiles[profileURL("jane")] = &directory.Profile{Name: "Jane Doe", Company: "Acme", VenueName: "Rome"}
	geo := &fakeGeocoder{byPattern: map[string]*geocode.Suggestion{
		"Rome": {Name: "Rome", Latitude: 41.9, Longitude: 12.5, Country: "Italy", Timezone: "Europe/Rome"},
	}}

	members, err := NewScraper(dir, geo, 1).Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, members, 2)

	jane := members[0]
	assert.Equal(t, "/jane", jane.ID)
	assert.Equal(t, "Jane Doe", jane.Name)
	assert.Equal(t, "Acme", jane.Company)
	require.True(t, jane.HasCoordinates())
	assert.Equal(t, "Italy", jane.Venue.Country)
	assert.Equal(t, "Europe", jane.Venue.Continent)

	bob := members[1]
	assert.Equal(t, "/bob", bob.ID)
	assert.Equal(t, "Venue bob", bob.Venue.Name)
	assert.False(t, bob.HasCoordinates())

	assert.Equal(t, []string{"Rome", "Venue bob"}, geo.patterns)
}

func TestScrape_EmptyListing(t *testing.T) {
	members, err := NewScraper(&fakeDirectory{}, &fakeGeocoder{}, 1).Scrape(context.Background())
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestScrape_ListError(t *testing.T) {
	dir := &fakeDirectory{listErr: errors.New("directory: list profiles: http 503")}
	_, err := NewScraper(dir, &fakeGeocoder{}, 1).Scrape(context.Background())
	require.Error(t, err)
}

func TestScrape_ProfileErrorAborts(t *testing.T) {
	dir := newDirectory("a", "b", "c")
	dir.failOn = profileURL("b")

	members, err := NewScraper(dir, &fakeGeocoder{}, 1).Scrape(context.Background())
	require.Error(t, err)
	assert.Nil(t, members)
	assert.Equal(t, []string{profileURL("a"), profileURL("b")}, dir.fetched)
}

func TestScrape_GeocodeErrorAborts(t *testing.T) {
	dir := newDirectory("a")
	_, err := NewScraper(dir, &fakeGeocoder{err: errors.New("geocode: http 503")}, 1).Scrape(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingest: geocode")
}

func TestScrape_ConcurrentKeepsOrder(t *testing.T) {
	var slugs []string
	for i := 0; i < 20; i++ {
		slugs = append(slugs, fmt.Sprintf("m%02d", i))
	}
	dir := newDirectory(slugs...)
	// Later profiles answer faster.
	dir.delay = func(u string) time.Duration {
		for i, s := range slugs {
			if profileURL(s) == u {
				return time.Duration(len(slugs)-i) * time.Millisecond
			}
		}
		return 0
	}

	members, err := NewScraper(dir, &fakeGeocoder{}, 4).Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, members, len(slugs))
	for i, s := range slugs {
		assert.Equal(t, "/"+s, members[i].ID)
	}
}

func TestScrape_ConcurrentErrorAborts(t *testing.T) {
	dir := newDirectory("a", "b", "c", "d", "e")
	dir.failOn = profileURL("c")

	members, err := NewScraper(dir, &fakeGeocoder{}, 3).Scrape(context.Background())
	require.Error(t, err)
	assert.Nil(t, members)
	assert.Contains(t, err.Error(), "http 500")
}

func TestNewScraper_MinimumConcurrency(t *testing.T) {
	assert.Equal(t, 1, NewScraper(nil, nil, 0).concurrency)
	assert.Equal(t, 1, NewScraper(nil, nil, -4).concurrency)
}
