package main

import (
	"context"
	"time"

	"github.com/nzambello/plone-map/internal/config"
	"github.com/nzambello/plone-map/internal/directory"
	"github.com/nzambello/plone-map/internal/fetcher"
	"github.com/nzambello/plone-map/internal/ingest"
	"github.com/nzambello/plone-map/internal/model"
	"github.com/nzambello/plone-map/internal/query"
	"github.com/nzambello/plone-map/internal/store"
	"github.com/nzambello/plone-map/pkg/geocode"
)

// initStore opens the configured store. It returns nil when store.driver is
// none.
func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	return store.Open(ctx, c.Store.Driver, c.Store.DatabaseURL)
}

// newScraper wires the directory client and geocoder from config. The
// geocoder is wrapped with the store-backed cache when both are enabled.
func newScraper(c *config.Config, st store.Store) *ingest.Scraper {
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:         c.Scrape.UserAgent,
		Timeout:           time.Duration(c.Scrape.TimeoutSecs) * time.Second,
		MaxAttempts:       c.Scrape.MaxAttempts,
		RequestsPerSecond: c.Scrape.RequestsPerSecond,
	})
	dir := directory.NewClient(f,
		directory.WithListingURL(c.Scrape.ListingURL),
		directory.WithProfilePrefix(c.Scrape.ProfilePrefix),
	)

	geo := geocode.NewClient(
		geocode.WithBaseURL(c.Geocode.BaseURL),
		geocode.WithRateLimit(c.Geocode.RequestsPerSecond),
		geocode.WithTimeout(time.Duration(c.Geocode.TimeoutSecs)*time.Second),
		geocode.WithUserAgent(c.Scrape.UserAgent),
	)
	if c.Geocode.Cache && st != nil {
		geo = geocode.WithCache(geo, st)
	}

	return ingest.NewScraper(dir, geo, c.Scrape.Concurrency)
}

// loadMembers reads the dataset the read-side commands work on.
func loadMembers(path string) ([]model.Member, error) {
	return ingest.LoadDataset(path)
}

// markerIcon builds the icon configuration from the map settings, keeping the
// default geometry.
func markerIcon(m config.MapConfig) query.MarkerIcon {
	icon := query.DefaultMarkerIcon()
	if m.IconURL != "" {
		icon.IconURL = m.IconURL
	}
	if m.ShadowURL != "" {
		icon.ShadowURL = m.ShadowURL
	}
	return icon
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
