package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nzambello/plone-map/internal/model"
	"github.com/nzambello/plone-map/pkg/geocode"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// --- Runs ---

func TestSQLite_RunLifecycle_Complete(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "members.json", "newmembers.json")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusRunning, got.Status)
	assert.Equal(t, "members.json", got.InputPath)
	assert.Equal(t, "newmembers.json", got.OutputPath)
	assert.Nil(t, got.FinishedAt)

	require.NoError(t, st.CompleteRun(ctx, run.ID, model.RunResult{MembersScraped: 12, MembersGeocoded: 9}))

	got, err = st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	assert.Equal(t, 12, got.MembersScraped)
	assert.Equal(t, 9, got.MembersGeocoded)
	require.NotNil(t, got.FinishedAt)
	assert.Empty(t, got.Error)
}

func TestSQLite_RunLifecycle_Fail(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "a.json", "b.json")
	require.NoError(t, err)
	require.NoError(t, st.FailRun(ctx, run.ID, "geocode: http 503"))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "geocode: http 503", got.Error)
	assert.NotNil(t, got.FinishedAt)
}

func TestSQLite_UnknownRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.GetRun(ctx, "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")

	err = st.CompleteRun(ctx, "missing", model.RunResult{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found: missing")

	err = st.FailRun(ctx, "missing", "x")
	require.Error(t, err)
}

func TestSQLite_ListRuns_NewestFirst(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		r, err := st.CreateRun(ctx, "in.json", "out.json")
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}

	runs, err := st.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)

	all, err := st.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

// --- Geocode cache ---

func TestSQLite_Suggestion_SetAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	want := &geocode.Suggestion{Name: "Rome", Latitude: 41.89, Longitude: 12.48, Country: "Italy", Timezone: "Europe/Rome"}
	require.NoError(t, st.SetSuggestion(ctx, "k1", want))

	got, found, err := st.GetSuggestion(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)
}

func TestSQLite_Suggestion_CachedMiss(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetSuggestion(ctx, "atlantis", nil))

	got, found, err := st.GetSuggestion(ctx, "atlantis")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Nil(t, got)
}

func TestSQLite_Suggestion_Absent(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, found, err := st.GetSuggestion(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)
}

func TestSQLite_Suggestion_Overwrite(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetSuggestion(ctx, "k", nil))
	require.NoError(t, st.SetSuggestion(ctx, "k", &geocode.Suggestion{Name: "Milan"}))

	got, found, err := st.GetSuggestion(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	require.NotNil(t, got)
	assert.Equal(t, "Milan", got.Name)
}

func TestSQLite_ImplementsGeocodeCache(t *testing.T) {
	var _ geocode.Cache = newTestSQLiteStore(t)
}
