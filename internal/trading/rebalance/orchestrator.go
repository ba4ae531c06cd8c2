package rebalance

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/Alias1177/SmartVest/internal/model"
	"github.com/Alias1177/SmartVest/internal/trading/ledger"
)

// Selection is what the selection pipeline returns for one date
type Selection struct {
	// Weights are raw target weights; they need not sum to 1
	Weights map[string]float64
	// Candidates are eligible tickers ranked best first, used for padding
	Candidates []string
}

// Selector is the stock-selection pipeline consumed at every rebalance
type Selector interface {
	Select(ctx context.Context, day time.Time, universe []string, cfg model.RiskConfig) (Selection, error)
}

// Market is the view of market data the orchestrator needs
type Market interface {
	Close(ticker string, day time.Time) (float64, bool)
	Sector(ticker string) string
	Universe() []string
	Benchmark() string
}

// Observer is notified after every committed rebalance
type Observer interface {
	Rebalanced(reason model.RebalanceReason)
}

// Plan is the resolved allocation for one rebalance
type Plan struct {
	Targets  map[string]float64
	Cash     float64
	Fallback bool
	Padded   []string
	// Deferred tickers were selected while awaiting re-entry; they keep
	// their pending entry and their weight stays in cash
	Deferred []string
}

// Orchestrator turns selection output into committed holdings
type Orchestrator struct {
	cfg      model.RiskConfig
	selector Selector
	market   Market
	ledger   *ledger.Ledger
	observer Observer
	logger   zerolog.Logger

	snapshots     []model.RebalanceSnapshot
	lastRebalance time.Time
}

// NewOrchestrator creates an orchestrator for one trial
func NewOrchestrator(cfg model.RiskConfig, selector Selector, market Market, l *ledger.Ledger, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		selector: selector,
		market:   market,
		ledger:   l,
		logger:   logger.With().Str("component", "rebalance").Logger(),
	}
}

// SetObserver attaches an observer notified after each rebalance
func (o *Orchestrator) SetObserver(obs Observer) {
	o.observer = obs
}

// Rebalance requests targets from the selector, resolves them into a plan
// and commits it to the ledger at the day's closes.
func (o *Orchestrator) Rebalance(ctx context.Context, day time.Time, reason model.RebalanceReason) error {
	sel, err := o.selector.Select(ctx, day, o.market.Universe(), o.cfg)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o.logger.Warn().Err(err).Time("date", day).Msg("Selection failed, treating as empty selection")
		o.ledger.Record(model.Event{Date: day, Kind: model.EventSelectionError, Detail: err.Error()})
		sel = Selection{}
	}

	plan := o.Plan(day, sel)
	nav := o.ledger.NAV()
	o.commit(day, plan)

	if plan.Fallback {
		o.ledger.Record(model.Event{Date: day, Kind: model.EventBenchmarkFallback, Ticker: o.market.Benchmark(), Amount: nav})
	}
	o.ledger.Record(model.Event{Date: day, Kind: model.EventRebalance, Amount: nav, Detail: string(reason)})
	o.snapshots = append(o.snapshots, model.RebalanceSnapshot{
		Date:     day,
		Reason:   reason,
		NAV:      nav,
		Targets:  plan.Targets,
		Cash:     plan.Cash,
		Fallback: plan.Fallback,
		Padded:   plan.Padded,
	})
	o.lastRebalance = day
	if o.observer != nil {
		o.observer.Rebalanced(reason)
	}

	o.logger.Debug().
		Time("date", day).
		Str("reason", string(reason)).
		Int("holdings", len(plan.Targets)).
		Float64("cash", plan.Cash).
		Bool("fallback", plan.Fallback).
		Strs("padded", plan.Padded).
		Msg("Rebalance committed")
	return nil
}

// Plan resolves raw selection weights into final targets: benchmark
// fallback on an empty selection, then minimum-position padding, then the
// per-stock cap, then the sector cap, then the cash residual.
func (o *Orchestrator) Plan(day time.Time, sel Selection) Plan {
	benchmark := o.market.Benchmark()
	awaiting := make(map[string]bool)
	for _, t := range o.ledger.Tickers(model.StateStoppedOut, model.StateReentryPending) {
		awaiting[t] = true
	}
	tradable := func(t string) bool {
		_, ok := o.market.Close(t, day)
		return ok
	}

	raw := make(map[string]float64, len(sel.Weights))
	for t, w := range sel.Weights {
		if w > 0 && tradable(t) {
			raw[t] = w
		}
	}

	if len(raw) == 0 {
		if o.cfg.BenchmarkFallback && tradable(benchmark) {
			if awaiting[benchmark] {
				return Plan{Targets: map[string]float64{}, Cash: 1, Fallback: true, Deferred: []string{benchmark}}
			}
			return Plan{Targets: map[string]float64{benchmark: 1}, Fallback: true}
		}
		return Plan{Targets: map[string]float64{}, Cash: 1}
	}

	weights := Normalize(raw)
	var padded []string
	if len(weights) < o.cfg.MinPositions {
		for _, c := range sel.Candidates {
			if len(weights) >= o.cfg.MinPositions {
				break
			}
			if _, ok := weights[c]; ok || awaiting[c] || c == benchmark || !tradable(c) {
				continue
			}
			weights[c] = 0
			padded = append(padded, c)
		}
		if len(padded) > 0 {
			equal := 1 / float64(len(weights))
			for t := range weights {
				weights[t] = equal
			}
		}
	}

	weights = CapWeights(weights, o.cfg.MaxWeightPct)
	weights = CapSectors(weights, o.market.Sector, o.cfg.SectorCapPct, o.cfg.MaxWeightPct)

	if total := Sum(weights); total > 1 {
		for t := range weights {
			weights[t] /= total
		}
	}

	var deferred []string
	for _, t := range sortedKeys(weights) {
		if awaiting[t] {
			deferred = append(deferred, t)
			delete(weights, t)
		}
	}

	cash := 1 - Sum(weights)
	if cash < 0 {
		cash = 0
	}
	return Plan{Targets: weights, Cash: cash, Padded: padded, Deferred: deferred}
}

func (o *Orchestrator) commit(day time.Time, plan Plan) {
	nav := o.ledger.NAV()

	deferred := make(map[string]bool, len(plan.Deferred))
	for _, t := range plan.Deferred {
		deferred[t] = true
	}
	for _, t := range o.ledger.Tickers(model.StateStoppedOut, model.StateReentryPending) {
		if !deferred[t] {
			o.ledger.Remove(day, t)
		}
	}

	for _, t := range o.ledger.Tickers(model.StateActive) {
		if _, keep := plan.Targets[t]; !keep {
			o.ledger.Exit(day, t, model.EventRebalance)
		}
	}

	tickers := make([]string, 0, len(plan.Targets))
	for t := range plan.Targets {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	// trims first so their proceeds fund the buys
	for _, t := range tickers {
		p, ok := o.ledger.Position(t)
		if !ok || !p.IsActive() {
			continue
		}
		current := p.Value()
		target := plan.Targets[t] * nav
		if current > target+ledger.Epsilon && current > 0 {
			o.ledger.SellFraction(day, t, 1-target/current, model.EventRebalance)
		}
	}

	for _, t := range tickers {
		target := plan.Targets[t] * nav
		var current float64
		price, ok := o.market.Close(t, day)
		if p, held := o.ledger.Position(t); held && p.IsActive() {
			current = p.Value()
			price = p.LastPrice
			ok = true
		}
		if !ok || target <= current+ledger.Epsilon {
			continue
		}
		o.ledger.Buy(day, t, o.market.Sector(t), target-current, price, model.EventRebalance)
	}
}

// Snapshots returns the committed rebalances in order
func (o *Orchestrator) Snapshots() []model.RebalanceSnapshot {
	out := make([]model.RebalanceSnapshot, len(o.snapshots))
	copy(out, o.snapshots)
	return out
}

// LastRebalance returns the date of the most recent rebalance
func (o *Orchestrator) LastRebalance() time.Time {
	return o.lastRebalance
}
