// Package ingest scrapes the member directory, geocodes every member and
// merges the result into the persisted dataset.
package ingest

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/sourcegraph/conc/stream"
	"go.uber.org/zap"

	"github.com/nzambello/plone-map/internal/directory"
	"github.com/nzambello/plone-map/internal/model"
	"github.com/nzambello/plone-map/pkg/geocode"
)

// Directory lists and reads member profiles.
type Directory interface {
	ListProfileURLs(ctx context.Context) ([]string, error)
	FetchProfile(ctx context.Context, profileURL string) (*directory.Profile, error)
	MemberID(profileURL string) string
}

// Scraper turns the directory into geocoded members.
type Scraper struct {
	dir         Directory
	geo         geocode.Client
	concurrency int
}

// NewScraper creates a Scraper. A concurrency below 2 processes members one
// at a time.
func NewScraper(dir Directory, geo geocode.Client, concurrency int) *Scraper {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Scraper{dir: dir, geo: geo, concurrency: concurrency}
}

// Scrape returns one member per listed profile, in listing order. The first
// failure aborts the scrape and no members are returned.
func (s *Scraper) Scrape(ctx context.Context) ([]model.Member, error) {
	urls, err := s.dir.ListProfileURLs(ctx)
	if err != nil {
		return nil, err
	}
	zap.L().Info("ingest: profiles listed", zap.Int("count", len(urls)))

	if s.concurrency == 1 {
		return s.scrapeSequential(ctx, urls)
	}
	return s.scrapeStream(ctx, urls)
}

func (s *Scraper) scrapeSequential(ctx context.Context, urls []string) ([]model.Member, error) {
	members := make([]model.Member, 0, len(urls))
	for i, u := range urls {
		m, err := s.scrapeOne(ctx, u)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
		logProgress(i+1, len(urls))
	}
	return members, nil
}

// scrapeStream runs up to s.concurrency members in flight; results are
// collected in submission order.
func (s *Scraper) scrapeStream(ctx context.Context, urls []string) ([]model.Member, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		once     sync.Once
		firstErr error
	)
	members := make([]model.Member, 0, len(urls))

	st := stream.New().WithMaxGoroutines(s.concurrency)
	for _, u := range urls {
		u := u
		st.Go(func() stream.Callback {
			if ctx.Err() != nil {
				return func() {}
			}
			m, err := s.scrapeOne(ctx, u)
			return func() {
				if err != nil {
					once.Do(func() {
						firstErr = err
						cancel()
					})
					return
				}
				if firstErr == nil {
					members = append(members, m)
					logProgress(len(members), len(urls))
				}
			}
		})
	}
	st.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil && len(members) < len(urls) {
		return nil, eris.Wrap(err, "ingest: scrape cancelled")
	}
	return members, nil
}

func (s *Scraper) scrapeOne(ctx context.Context, profileURL string) (model.Member, error) {
	p, err := s.dir.FetchProfile(ctx, profileURL)
	if err != nil {
		return model.Member{}, err
	}

	sg, err := s.geo.Suggest(ctx, p.VenueName)
	if err != nil {
		return model.Member{}, eris.Wrapf(err, "ingest: geocode %s", profileURL)
	}
	venue := geocode.ApplySuggestion(p.VenueName, sg)

	return model.Member{
		ID:      s.dir.MemberID(profileURL),
		Name:    p.Name,
		Company: p.Company,
		Venue:   &venue,
	}, nil
}

func logProgress(done, total int) {
	if done%25 == 0 || done == total {
		zap.L().Info("ingest: scrape progress", zap.Int("done", done), zap.Int("total", total))
	}
}
