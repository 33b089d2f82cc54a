package ingest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/nzambello/plone-map/internal/directory"
	"github.com/nzambello/plone-map/internal/model"
	"github.com/nzambello/plone-map/pkg/geocode"
)

const testPrefix = "https://plone.org/foundation/members/active-members"

type fakeDirectory struct {
	urls     []string
	profiles map[string]*directory.Profile
	listErr  error
	failOn   string
	delay    func(url string) time.Duration

	mu      sync.Mutex
	fetched []string
}

func (f *fakeDirectory) ListProfileURLs(context.Context) ([]string, error) {
	return f.urls, f.listErr
}

func (f *fakeDirectory) FetchProfile(ctx context.Context, u string) (*directory.Profile, error) {
	if f.delay != nil {
		select {
		case <-time.After(f.delay(u)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	f.fetched = append(f.fetched, u)
	f.mu.Unlock()
	if u == f.failOn {
		return nil, errors.New("directory: fetch profile " + u + ": http 500")
	}
	p, ok := f.profiles[u]
	if !ok {
		return &directory.Profile{URL: u}, nil
	}
	return p, nil
}

func (f *fakeDirectory) MemberID(u string) string {
	return directory.MemberID(u, testPrefix)
}

type fakeGeocoder struct {
	byPattern map[string]*geocode.Suggestion
	err       error

	mu       sync.Mutex
	patterns []string
}

func (g *fakeGeocoder) Suggest(_ context.Context, pattern string) (*geocode.Suggestion, error) {
	g.mu.Lock()
	g.patterns = append(g.patterns, pattern)
	g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	return g.byPattern[pattern], nil
}

type fakeRecorder struct {
	created   int
	completed *model.RunResult
	failed    string
	createErr error
}

func (r *fakeRecorder) CreateRun(_ context.Context, in, out string) (*model.Run, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.created++
	return &model.Run{ID: "run-1", Status: model.RunStatusRunning, InputPath: in, OutputPath: out}, nil
}

func (r *fakeRecorder) CompleteRun(_ context.Context, _ string, result model.RunResult) error {
	r.completed = &result
	return nil
}

func (r *fakeRecorder) FailRun(_ context.Context, _ string, reason string) error {
	r.failed = reason
	return nil
}

func profileURL(slug string) string {
	return testPrefix + "/" + slug
}

// newDirectory builds a directory whose profiles are named after their slugs.
func newDirectory(slugs ...string) *fakeDirectory {
	d := &fakeDirectory{profiles: map[string]*directory.Profile{}}
	for _, s := range slugs {
		u := profileURL(s)
		d.urls = append(d.urls, u)
		d.profiles[u] = &directory.Profile{
			URL:       u,
			Name:      strings.ToUpper(s[:1]) + s[1:],
			Company:   "Company " + s,
			VenueName: "Venue " + s,
		}
	}
	return d
}
