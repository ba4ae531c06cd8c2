package risk

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/Alias1177/SmartVest/internal/analysis/technical"
	"github.com/Alias1177/SmartVest/internal/model"
	"github.com/Alias1177/SmartVest/internal/trading/ledger"
)

// Rebalancer re-targets the portfolio outside the regular schedule
type Rebalancer interface {
	Rebalance(ctx context.Context, day time.Time, reason model.RebalanceReason) error
}

// Observer receives risk decisions, e.g. for metrics
type Observer interface {
	RiskEvent(kind model.EventKind)
}

// Controller evaluates per-position stops and re-entries, then the
// portfolio-level crash protection and forced rebalance triggers.
type Controller struct {
	cfg        model.RiskConfig
	policy     StopPolicy
	ledger     *ledger.Ledger
	rebalancer Rebalancer
	observer   Observer
	logger     zerolog.Logger

	crashArmed    bool
	peakNAV       float64
	cooldownUntil time.Time
}

// NewController creates a controller for one trial
func NewController(cfg model.RiskConfig, l *ledger.Ledger, rebalancer Rebalancer, logger zerolog.Logger) *Controller {
	return &Controller{
		cfg:        cfg,
		policy:     NewStopPolicy(cfg),
		ledger:     l,
		rebalancer: rebalancer,
		logger:     logger.With().Str("component", "risk_controller").Logger(),
		crashArmed: true,
	}
}

// SetObserver attaches an observer notified of every risk event
func (c *Controller) SetObserver(o Observer) {
	c.observer = o
}

// EvaluatePositions applies stop-loss then trailing stop to every active
// position, then tries to re-enter positions pending since a previous day.
func (c *Controller) EvaluatePositions(day time.Time, regime model.Regime) {
	rule := c.policy.For(regime)

	for _, ticker := range c.ledger.Tickers(model.StateActive) {
		p, _ := c.ledger.Position(ticker)
		kind, hit := rule.Check(p, p.LastPrice)
		if !hit {
			continue
		}
		proceeds := c.ledger.StopOut(day, ticker, kind)
		c.notify(kind)
		c.logger.Debug().
			Str("ticker", ticker).
			Str("kind", string(kind)).
			Str("regime", regime.String()).
			Float64("price", p.LastPrice).
			Float64("cost_basis", p.CostBasis).
			Float64("peak", p.PeakPrice).
			Float64("proceeds", proceeds).
			Msg("Position stopped out")
	}

	for _, ticker := range c.ledger.Tickers(model.StateReentryPending) {
		c.tryReentry(day, ticker)
	}
}

func (c *Controller) tryReentry(day time.Time, ticker string) {
	p, _ := c.ledger.Position(ticker)
	if p.StaleDays > 0 {
		return
	}
	if daysBetween(p.StoppedOutDate, day) < c.cfg.ReentryWaitDays {
		return
	}
	if p.LastPrice < p.StoppedOutPrice*(1+c.cfg.ReentryGainPct) {
		return
	}

	amount := ReentrySize(c.ledger.Cash(), c.ledger.NAV(), c.cfg.ReentryMaxCashFraction, c.cfg.MaxWeightPct)
	if amount <= ledger.Epsilon {
		return
	}
	spent := c.ledger.Buy(day, ticker, p.Sector, amount, p.LastPrice, model.EventReentry)
	c.ledger.Record(model.Event{Date: day, Kind: model.EventReentry, Ticker: ticker, Price: p.LastPrice, Amount: spent})
	c.notify(model.EventReentry)
	c.logger.Debug().
		Str("ticker", ticker).
		Float64("price", p.LastPrice).
		Float64("stopped_out_price", p.StoppedOutPrice).
		Float64("amount", spent).
		Msg("Position re-entered")
}

// EvaluatePortfolio runs crash protection and then the forced rebalance
// check. The two are independent: a crash sale does not suppress a forced
// rebalance on the same day. forced reports whether a rebalance ran.
func (c *Controller) EvaluatePortfolio(ctx context.Context, day time.Time, benchmarkHistory []float64) (forced bool, err error) {
	c.checkCrash(day, benchmarkHistory)

	nav := c.ledger.NAV()
	if c.peakNAV <= 0 {
		c.peakNAV = nav
	}
	drawdown := nav/c.peakNAV - 1
	if drawdown > -c.cfg.ForcedRebalanceDDPct || day.Before(c.cooldownUntil) {
		return false, nil
	}

	c.ledger.Record(model.Event{
		Date:   day,
		Kind:   model.EventForcedRebalance,
		Amount: nav,
		Detail: fmt.Sprintf("drawdown %.2f%% from peak %.2f", drawdown*100, c.peakNAV),
	})
	c.notify(model.EventForcedRebalance)
	c.logger.Info().
		Time("date", day).
		Float64("drawdown", drawdown).
		Float64("peak_nav", c.peakNAV).
		Msg("Forced rebalance triggered")

	if err := c.rebalancer.Rebalance(ctx, day, model.RebalanceForced); err != nil {
		return false, fmt.Errorf("forced rebalance: %w", err)
	}
	c.peakNAV = c.ledger.NAV()
	c.cooldownUntil = day.AddDate(0, 0, c.cfg.CooldownDays)
	return true, nil
}

func (c *Controller) checkCrash(day time.Time, benchmarkHistory []float64) {
	ret, ok := technical.CalculateReturn(benchmarkHistory, c.cfg.CrashWindowDays)
	if !ok {
		return
	}

	if ret > -c.cfg.CrashTriggerPct {
		if !c.crashArmed {
			c.crashArmed = true
			c.ledger.Record(model.Event{Date: day, Kind: model.EventCrashRearmed, Detail: fmt.Sprintf("benchmark window return %.2f%%", ret*100)})
			c.logger.Debug().Time("date", day).Float64("window_return", ret).Msg("Crash protection re-armed")
		}
		return
	}

	active := c.ledger.Tickers(model.StateActive)
	if !c.crashArmed || len(active) == 0 {
		return
	}

	fraction := CrashSaleFraction(c.cfg.CrashSellFraction)
	var total float64
	for _, ticker := range active {
		total += c.ledger.SellFraction(day, ticker, fraction, model.EventCrashProtection)
	}
	c.crashArmed = false
	c.ledger.Record(model.Event{
		Date:   day,
		Kind:   model.EventCrashProtection,
		Amount: total,
		Detail: fmt.Sprintf("benchmark window return %.2f%%, sold %.0f%% of %d positions", ret*100, fraction*100, len(active)),
	})
	c.notify(model.EventCrashProtection)
	c.logger.Info().
		Time("date", day).
		Float64("window_return", ret).
		Float64("proceeds", total).
		Msg("Crash protection fired")
}

// RecordNAV raises the rolling peak used for the forced rebalance trigger
func (c *Controller) RecordNAV(nav float64) {
	c.peakNAV = math.Max(c.peakNAV, nav)
}

func (c *Controller) notify(kind model.EventKind) {
	if c.observer != nil {
		c.observer.RiskEvent(kind)
	}
}

func daysBetween(from, to time.Time) int {
	return int(model.Day(to).Sub(model.Day(from)).Hours() / 24)
}
