package model

import "time"

// RunStatus represents the current state of an ingestion run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run records one execution of the ingestion pipeline.
type Run struct {
	ID              string     `json:"id"`
	Status          RunStatus  `json:"status"`
	InputPath       string     `json:"input_path"`
	OutputPath      string     `json:"output_path"`
	MembersScraped  int        `json:"members_scraped"`
	MembersGeocoded int        `json:"members_geocoded"`
	Error           string     `json:"error,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

// RunResult holds the counters written when a run completes.
type RunResult struct {
	MembersScraped  int `json:"members_scraped"`
	MembersGeocoded int `json:"members_geocoded"`
}

// Duration returns how long the run took, or zero while it is still running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
