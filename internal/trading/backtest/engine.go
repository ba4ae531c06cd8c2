package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/SmartVest/internal/analysis/market"
	"github.com/Alias1177/SmartVest/internal/marketdata"
	"github.com/Alias1177/SmartVest/internal/model"
	"github.com/Alias1177/SmartVest/internal/trading/ledger"
	"github.com/Alias1177/SmartVest/internal/trading/rebalance"
	"github.com/Alias1177/SmartVest/internal/trading/risk"
)

// Options describes one trial
type Options struct {
	ID             string
	Start          time.Time
	End            time.Time
	InitialCapital float64
	// TrendPeriod of the regime detector SMA; 0 uses 200
	TrendPeriod int
}

// Observer receives trial progress signals, e.g. for metrics
type Observer interface {
	risk.Observer
	rebalance.Observer
}

// Engine replays one trial day by day. It holds no state between runs;
// every call to Run starts from cash.
type Engine struct {
	cfg      model.RiskConfig
	data     *marketdata.Store
	selector rebalance.Selector
	opts     Options
	observer Observer
	// trialLog carries trial fields for the per-trial components
	trialLog zerolog.Logger
	logger   zerolog.Logger
}

// NewEngine validates the configuration and window before anything is
// simulated
func NewEngine(cfg model.RiskConfig, data *marketdata.Store, selector rebalance.Selector, opts Options) (*Engine, error) {
	if data == nil {
		return nil, errors.New("market data is required")
	}
	if selector == nil {
		return nil, errors.New("selector is required")
	}
	if err := cfg.Validate(len(data.Universe())); err != nil {
		return nil, err
	}
	if opts.InitialCapital <= 0 {
		return nil, &model.ErrInvalidConfig{Field: "initial_capital", Message: "must be positive"}
	}
	if !opts.End.After(opts.Start) {
		return nil, &model.ErrInvalidConfig{Field: "end_date", Message: "end date must be after start date"}
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}

	trialLog := log.With().
		Str("trial_id", opts.ID).
		Str("profile", string(cfg.Profile)).
		Logger()

	return &Engine{
		cfg:      cfg,
		data:     data,
		selector: selector,
		opts:     opts,
		trialLog: trialLog,
		logger:   trialLog.With().Str("component", "backtest").Logger(),
	}, nil
}

// SetObserver attaches an observer to the risk controller and orchestrator
func (e *Engine) SetObserver(o Observer) {
	e.observer = o
}

// Run replays every trading day in the window. Data problems never abort
// the caller: they produce a FAILED result carrying the error.
func (e *Engine) Run(ctx context.Context) *model.TrialResult {
	started := time.Now()
	result := &model.TrialResult{
		ID:             e.opts.ID,
		Profile:        e.cfg.Profile,
		Start:          model.Day(e.opts.Start),
		End:            model.Day(e.opts.End),
		InitialCapital: e.opts.InitialCapital,
	}

	e.logger.Info().
		Time("start", result.Start).
		Time("end", result.End).
		Float64("capital", result.InitialCapital).
		Msg("Starting trial")

	err := e.replay(ctx, result)
	result.Duration = time.Since(started)
	if err != nil {
		result.Status = model.TrialFailed
		result.Error = err.Error()
		e.logger.Error().Err(err).Dur("duration", result.Duration).Msg("Trial failed")
		return result
	}

	result.Status = model.TrialCompleted
	e.logger.Info().
		Float64("total_return", result.Metrics.TotalReturn).
		Float64("sharpe", result.Metrics.Sharpe).
		Float64("max_drawdown", result.Metrics.MaxDrawdown).
		Int("trades", len(result.Trades)).
		Dur("duration", result.Duration).
		Msg("Trial completed")
	return result
}

func (e *Engine) replay(ctx context.Context, result *model.TrialResult) error {
	days := e.data.TradingDays(e.opts.Start, e.opts.End)
	if len(days) == 0 {
		return marketdata.ErrNoTradingDays
	}

	l := ledger.New(e.opts.InitialCapital, e.cfg.MaxStaleDays, e.trialLog)
	orchestrator := rebalance.NewOrchestrator(e.cfg, e.selector, e.data, l, e.trialLog)
	controller := risk.NewController(e.cfg, l, orchestrator, e.trialLog)
	if e.observer != nil {
		orchestrator.SetObserver(e.observer)
		controller.SetObserver(e.observer)
	}
	detector := market.NewRegimeDetector(e.opts.TrendPeriod)
	schedule := rebalance.NewSchedule(e.opts.Start, e.cfg.RebalanceMonths)
	accountant := NewAccountant(e.opts.InitialCapital)
	benchmark := e.data.Benchmark()

	defer func() {
		result.NAV = accountant.Points()
		result.Trades = l.Trades()
		result.Events = l.Events()
		result.Snapshots = orchestrator.Snapshots()
	}()

	for i, day := range days {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("trial cancelled on %s: %w", day.Format("2006-01-02"), err)
		}

		history := e.data.BenchmarkHistory(day)
		regime := detector.Classify(history)

		if err := l.MarkPrices(day, e.data); err != nil {
			return err
		}

		controller.EvaluatePositions(day, regime)
		forced, err := controller.EvaluatePortfolio(ctx, day, history)
		if err != nil {
			return err
		}

		// a forced rebalance today consumes a scheduled one due today
		if schedule.Due(day) && !forced {
			reason := model.RebalanceScheduled
			if i == 0 {
				reason = model.RebalanceInitial
			}
			if err := orchestrator.Rebalance(ctx, day, reason); err != nil {
				return fmt.Errorf("rebalance on %s: %w", day.Format("2006-01-02"), err)
			}
		}

		l.EndOfDay()
		nav := l.NAV()
		controller.RecordNAV(nav)

		benchClose, _ := e.data.Close(benchmark, day)
		point := accountant.Record(day, nav, l.Cash(), benchClose, regime, l.Weights())

		e.logger.Debug().
			Time("date", day).
			Str("regime", regime.String()).
			Float64("nav", nav).
			Float64("drawdown", point.Drawdown).
			Float64("cash_weight", point.CashWeight).
			Msg("Day closed")
	}

	result.Metrics = accountant.Metrics(e.cfg.RiskFreeRate)
	return nil
}
