package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/nzambello/plone-map/internal/model"
	"github.com/nzambello/plone-map/pkg/geocode"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id               TEXT PRIMARY KEY,
	status           TEXT NOT NULL DEFAULT 'running',
	input_path       TEXT NOT NULL,
	output_path      TEXT NOT NULL,
	members_scraped  INTEGER NOT NULL DEFAULT 0,
	members_geocoded INTEGER NOT NULL DEFAULT 0,
	error            TEXT NOT NULL DEFAULT '',
	started_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at      DATETIME
);

CREATE TABLE IF NOT EXISTS geocode_cache (
	pattern_hash TEXT PRIMARY KEY,
	matched      INTEGER NOT NULL,
	name         TEXT NOT NULL DEFAULT '',
	latitude     REAL NOT NULL DEFAULT 0,
	longitude    REAL NOT NULL DEFAULT 0,
	country      TEXT NOT NULL DEFAULT '',
	timezone     TEXT NOT NULL DEFAULT '',
	cached_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, inputPath, outputPath string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, input_path, output_path, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(model.RunStatusRunning), inputPath, outputPath, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:         id,
		Status:     model.RunStatusRunning,
		InputPath:  inputPath,
		OutputPath: outputPath,
		StartedAt:  now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, result model.RunResult) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, members_scraped = ?, members_geocoded = ?, finished_at = ? WHERE id = ?`,
		string(model.RunStatusComplete), result.MembersScraped, result.MembersGeocoded, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), reason, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

const sqliteRunColumns = `id, status, input_path, output_path, members_scraped, members_geocoded, error, started_at, finished_at`

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRunColumns+` FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteRunColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`,
		listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) GetSuggestion(ctx context.Context, key string) (*geocode.Suggestion, bool, error) {
	var (
		matched bool
		sg      geocode.Suggestion
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT matched, name, latitude, longitude, country, timezone FROM geocode_cache WHERE pattern_hash = ?`,
		key,
	).Scan(&matched, &sg.Name, &sg.Latitude, &sg.Longitude, &sg.Country, &sg.Timezone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: get suggestion")
	}
	if !matched {
		return nil, true, nil
	}
	return &sg, true, nil
}

func (s *SQLiteStore) SetSuggestion(ctx context.Context, key string, sg *geocode.Suggestion) error {
	row := suggestionRow(sg)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO geocode_cache (pattern_hash, matched, name, latitude, longitude, country, timezone, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (pattern_hash) DO UPDATE SET
			matched = excluded.matched,
			name = excluded.name,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			country = excluded.country,
			timezone = excluded.timezone,
			cached_at = excluded.cached_at`,
		key, row.Matched, row.Name, row.Latitude, row.Longitude, row.Country, row.Timezone, time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: set suggestion")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var finished sql.NullTime

	err := row.Scan(&r.ID, &r.Status, &r.InputPath, &r.OutputPath,
		&r.MembersScraped, &r.MembersGeocoded, &r.Error, &r.StartedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return &r, nil
}

type cacheRow struct {
	Matched   bool
	Name      string
	Latitude  float64
	Longitude float64
	Country   string
	Timezone  string
}

func suggestionRow(sg *geocode.Suggestion) cacheRow {
	if sg == nil {
		return cacheRow{}
	}
	return cacheRow{
		Matched:   true,
		Name:      sg.Name,
		Latitude:  sg.Latitude,
		Longitude: sg.Longitude,
		Country:   sg.Country,
		Timezone:  sg.Timezone,
	}
}
