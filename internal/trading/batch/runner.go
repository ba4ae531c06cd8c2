package batch

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Alias1177/SmartVest/internal/marketdata"
	"github.com/Alias1177/SmartVest/internal/model"
	"github.com/Alias1177/SmartVest/internal/trading/backtest"
	"github.com/Alias1177/SmartVest/internal/trading/rebalance"
)

// Recorder persists run records, e.g. the backtest_runs table
type Recorder interface {
	StartRun(ctx context.Context, id string, profile model.Profile, start, end time.Time) error
	FinishRun(ctx context.Context, result *model.TrialResult) error
}

// Observer receives every risk and rebalance signal plus the trial
// lifecycle
type Observer interface {
	backtest.Observer
	TrialStarted()
	TrialFinished(result *model.TrialResult)
}

// RunnerOptions configures the worker pool
type RunnerOptions struct {
	Workers        int
	InitialCapital float64
}

// Report is the outcome of a batch, results in scenario order
type Report struct {
	Results  []*model.TrialResult
	Summary  Summary
	Duration time.Duration
}

// Runner executes independent trials on a bounded worker pool. Trials share
// the read-only market data and the selector, which must be safe for
// concurrent use; each trial owns its ledger and state.
type Runner struct {
	data     *marketdata.Store
	profiles map[model.Profile]model.RiskConfig
	selector rebalance.Selector
	opts     RunnerOptions
	recorder Recorder
	observer Observer
	logger   zerolog.Logger
}

// NewRunner creates a runner; zero Workers uses one per CPU
func NewRunner(data *marketdata.Store, profiles map[model.Profile]model.RiskConfig, selector rebalance.Selector, opts RunnerOptions) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.InitialCapital <= 0 {
		opts.InitialCapital = 10000
	}
	return &Runner{
		data:     data,
		profiles: profiles,
		selector: selector,
		opts:     opts,
		logger:   log.With().Str("component", "batch_runner").Logger(),
	}
}

// SetRecorder attaches run persistence
func (r *Runner) SetRecorder(rec Recorder) {
	r.recorder = rec
}

// SetObserver attaches a metrics observer
func (r *Runner) SetObserver(o Observer) {
	r.observer = o
}

// Run executes every scenario. A failing trial never aborts the batch;
// only cancellation of ctx does, in which case the partial report is
// returned with the context error.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) (*Report, error) {
	started := time.Now()
	results := make([]*model.TrialResult, len(scenarios))

	r.logger.Info().
		Int("scenarios", len(scenarios)).
		Int("workers", r.opts.Workers).
		Msg("Starting batch")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i, sc := range scenarios {
		i, sc := i, sc
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = r.runTrial(gctx, sc)
			return nil
		})
	}
	_ = g.Wait()

	finished := make([]*model.TrialResult, 0, len(results))
	for _, res := range results {
		if res != nil {
			finished = append(finished, res)
		}
	}
	report := &Report{
		Results:  finished,
		Summary:  Summarize(finished),
		Duration: time.Since(started),
	}

	r.logger.Info().
		Int("completed", report.Summary.Completed).
		Int("failed", report.Summary.Failed).
		Float64("mean_return", report.Summary.MeanReturn).
		Dur("duration", report.Duration).
		Msg("Batch finished")

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func (r *Runner) runTrial(ctx context.Context, sc Scenario) *model.TrialResult {
	// persistence must survive cancellation so interrupted rows are finalized
	dbCtx := context.WithoutCancel(ctx)
	if r.recorder != nil {
		if err := r.recorder.StartRun(dbCtx, sc.ID, sc.Profile, sc.Start, sc.End); err != nil {
			r.logger.Warn().Err(err).Str("trial_id", sc.ID).Msg("Failed to record run start")
		}
	}

	if r.observer != nil {
		r.observer.TrialStarted()
	}
	result := r.execute(ctx, sc)

	if r.recorder != nil {
		if err := r.recorder.FinishRun(dbCtx, result); err != nil {
			r.logger.Warn().Err(err).Str("trial_id", sc.ID).Msg("Failed to record run result")
		}
	}
	if r.observer != nil {
		r.observer.TrialFinished(result)
	}
	return result
}

func (r *Runner) execute(ctx context.Context, sc Scenario) *model.TrialResult {
	failed := func(err error) *model.TrialResult {
		r.logger.Error().Err(err).Str("trial_id", sc.ID).Msg("Trial could not start")
		return &model.TrialResult{
			ID:             sc.ID,
			Profile:        sc.Profile,
			Start:          sc.Start,
			End:            sc.End,
			InitialCapital: r.opts.InitialCapital,
			Status:         model.TrialFailed,
			Error:          err.Error(),
		}
	}

	cfg, ok := r.profiles[sc.Profile]
	if !ok {
		return failed(fmt.Errorf("unknown profile %q", sc.Profile))
	}
	engine, err := backtest.NewEngine(cfg, r.data, r.selector, backtest.Options{
		ID:             sc.ID,
		Start:          sc.Start,
		End:            sc.End,
		InitialCapital: r.opts.InitialCapital,
	})
	if err != nil {
		return failed(err)
	}
	if r.observer != nil {
		engine.SetObserver(r.observer)
	}
	return engine.Run(ctx)
}
