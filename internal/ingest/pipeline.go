package ingest

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nzambello/plone-map/internal/model"
)

// RunRecorder records pipeline runs. store.Store satisfies it.
type RunRecorder interface {
	CreateRun(ctx context.Context, inputPath, outputPath string) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, result model.RunResult) error
	FailRun(ctx context.Context, runID string, reason string) error
}

// Options controls where the pipeline reads and writes datasets.
type Options struct {
	InputPath  string
	OutputPath string
	// AllowMissingInput treats an absent input dataset as empty.
	AllowMissingInput bool
}

// Pipeline runs scrape, merge and save as one unit.
type Pipeline struct {
	scraper  *Scraper
	recorder RunRecorder
	opts     Options
}

// NewPipeline creates a Pipeline. recorder may be nil.
func NewPipeline(scraper *Scraper, recorder RunRecorder, opts Options) *Pipeline {
	return &Pipeline{scraper: scraper, recorder: recorder, opts: opts}
}

// Run executes the pipeline and returns the counters of the written dataset.
// On any error nothing is written.
func (p *Pipeline) Run(ctx context.Context) (*model.RunResult, error) {
	if p.opts.InputPath == "" || p.opts.OutputPath == "" {
		return nil, eris.New("ingest: input and output paths are required")
	}
	if SamePath(p.opts.InputPath, p.opts.OutputPath) {
		return nil, eris.Errorf("ingest: output %s must differ from input", p.opts.OutputPath)
	}

	var runID string
	if p.recorder != nil {
		run, err := p.recorder.CreateRun(ctx, p.opts.InputPath, p.opts.OutputPath)
		if err != nil {
			return nil, eris.Wrap(err, "ingest: record run")
		}
		runID = run.ID
	}

	start := time.Now()
	result, err := p.run(ctx)
	if err != nil {
		p.fail(runID, err)
		return nil, err
	}

	if p.recorder != nil {
		if err := p.recorder.CompleteRun(ctx, runID, *result); err != nil {
			zap.L().Warn("ingest: failed to record run completion", zap.String("run_id", runID), zap.Error(err))
		}
	}

	zap.L().Info("ingest: dataset written",
		zap.String("output", p.opts.OutputPath),
		zap.Int("members", result.MembersScraped),
		zap.Int("geocoded", result.MembersGeocoded),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

func (p *Pipeline) run(ctx context.Context) (*model.RunResult, error) {
	existing, err := LoadDataset(p.opts.InputPath)
	if eris.Is(err, ErrDatasetNotFound) && p.opts.AllowMissingInput {
		zap.L().Warn("ingest: input dataset missing, starting empty", zap.String("input", p.opts.InputPath))
		existing, err = []model.Member{}, nil
	}
	if err != nil {
		return nil, err
	}

	scraped, err := p.scraper.Scrape(ctx)
	if err != nil {
		return nil, err
	}

	merged, err := Merge(existing, scraped)
	if err != nil {
		return nil, err
	}

	if err := SaveDataset(p.opts.OutputPath, merged); err != nil {
		return nil, err
	}

	result := &model.RunResult{MembersScraped: len(merged)}
	for _, m := range merged {
		if m.HasCoordinates() {
			result.MembersGeocoded++
		}
	}
	return result, nil
}

func (p *Pipeline) fail(runID string, cause error) {
	zap.L().Error("ingest: run failed", zap.String("run_id", runID), zap.Error(cause))
	if p.recorder == nil {
		return
	}
	// The caller's context may already be cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.recorder.FailRun(ctx, runID, cause.Error()); err != nil {
		zap.L().Warn("ingest: failed to record run failure", zap.String("run_id", runID), zap.Error(err))
	}
}
