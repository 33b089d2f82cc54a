package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nzambello/plone-map/internal/directory"
	"github.com/nzambello/plone-map/internal/model"
	"github.com/nzambello/plone-map/pkg/geocode"
)

func writeDataset(t *testing.T, path string, members []model.Member) {
	t.Helper()
	require.NoError(t, SaveDataset(path, members))
}

func TestPipeline_Run(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "members.json")
	out := filepath.Join(dir, "newmembers.json")
	writeDataset(t, in, []model.Member{
		{ID: "/jane", Name: "Jane", Company: "Acme", Venue: &model.Venue{Name: "Rome", Latitude: model.Float(41.9), Longitude: model.Float(12.5), Country: "Italy", Continent: "Europe"}},
		{ID: "/left", Name: "Left the foundation"},
	})

	d := newDirectory("jane", "new")
	d.profiles[profileURL("jane")] = &directory.Profile{Name: "Jane Doe", VenueName: "Roma"}
	geo := &fakeGeocoder{byPattern: map[string]*geocode.Suggestion{
		"Venue new": {Name: "Paris", Latitude: 48.85, Longitude: 2.35, Country: "France", Timezone: "Europe/Paris"},
	}}
	rec := &fakeRecorder{}

	p := NewPipeline(NewScraper(d, geo, 1), rec, Options{InputPath: in, OutputPath: out})
	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.MembersScraped)
	assert.Equal(t, 2, result.MembersGeocoded)

	got, err := LoadDataset(out)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "/jane", got[0].ID)
	assert.Equal(t, "Jane Doe", got[0].Name)
	assert.Empty(t, got[0].Company)
	assert.Equal(t, "Roma", got[0].Venue.Name)
	assert.Equal(t, "Italy", got[0].Venue.Country)
	assert.Equal(t, "/new", got[1].ID)
	assert.Equal(t, "France", got[1].Venue.Country)

	assert.Equal(t, 1, rec.created)
	require.NotNil(t, rec.completed)
	assert.Equal(t, 2, rec.completed.MembersScraped)
	assert.Empty(t, rec.failed)
}

func TestPipeline_SamePathRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "members.json")
	rec := &fakeRecorder{}
	p := NewPipeline(NewScraper(newDirectory("a"), &fakeGeocoder{}, 1), rec, Options{InputPath: path, OutputPath: path})

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ from input")
	assert.Zero(t, rec.created)
}

func TestPipeline_MissingPaths(t *testing.T) {
	p := NewPipeline(NewScraper(newDirectory("a"), &fakeGeocoder{}, 1), nil, Options{})
	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "paths are required")
}

func TestPipeline_MissingInputAborts(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "newmembers.json")
	d := newDirectory("a")
	rec := &fakeRecorder{}

	p := NewPipeline(NewScraper(d, &fakeGeocoder{}, 1), rec, Options{
		InputPath:  filepath.Join(dir, "members.json"),
		OutputPath: out,
	})
	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, rec.failed, "dataset not found")
	assert.Empty(t, d.fetched)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestPipeline_AllowMissingInput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "newmembers.json")

	p := NewPipeline(NewScraper(newDirectory("a", "b"), &fakeGeocoder{}, 1), nil, Options{
		InputPath:         filepath.Join(dir, "members.json"),
		OutputPath:        out,
		AllowMissingInput: true,
	})
	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.MembersScraped)
	assert.Zero(t, result.MembersGeocoded)

	got, err := LoadDataset(out)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestPipeline_ScrapeFailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "members.json")
	out := filepath.Join(dir, "newmembers.json")
	writeDataset(t, in, nil)

	rec := &fakeRecorder{}
	geo := &fakeGeocoder{err: errors.New("geocode: http 503")}
	p := NewPipeline(NewScraper(newDirectory("a"), geo, 1), rec, Options{InputPath: in, OutputPath: out})

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, rec.failed, "http 503")
	assert.Nil(t, rec.completed)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestPipeline_RecorderError(t *testing.T) {
	dir := t.TempDir()
	rec := &fakeRecorder{createErr: errors.New("db down")}
	p := NewPipeline(NewScraper(newDirectory("a"), &fakeGeocoder{}, 1), rec, Options{
		InputPath:  filepath.Join(dir, "in.json"),
		OutputPath: filepath.Join(dir, "out.json"),
	})

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingest: record run")
}
