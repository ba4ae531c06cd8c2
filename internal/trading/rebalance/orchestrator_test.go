package rebalance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/SmartVest/internal/model"
	"github.com/Alias1177/SmartVest/internal/trading/ledger"
)

type fakeMarket struct {
	closes  map[string]float64
	sectors map[string]string
}

func (m *fakeMarket) Close(ticker string, _ time.Time) (float64, bool) {
	c, ok := m.closes[ticker]
	return c, ok
}

func (m *fakeMarket) Sector(ticker string) string {
	if s, ok := m.sectors[ticker]; ok {
		return s
	}
	return model.UnknownSector
}

func (m *fakeMarket) Universe() []string {
	var out []string
	for t := range m.closes {
		if t != "SPY" {
			out = append(out, t)
		}
	}
	return out
}

func (m *fakeMarket) Benchmark() string { return "SPY" }

type staticSelector struct {
	sel Selection
	err error
}

func (s *staticSelector) Select(context.Context, time.Time, []string, model.RiskConfig) (Selection, error) {
	return s.sel, s.err
}

var rebalanceDay = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

func testMarket() *fakeMarket {
	closes := map[string]float64{"SPY": 400}
	sectors := map[string]string{}
	for i, t := range []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"} {
		closes[t] = 10 + float64(i)
		sectors[t] = "S" + t
	}
	return &fakeMarket{closes: closes, sectors: sectors}
}

func testConfig() model.RiskConfig {
	return model.RiskConfig{
		Profile:           model.ProfileBalanced,
		MaxWeightPct:      0.15,
		SectorCapPct:      0.30,
		MinPositions:      8,
		BenchmarkFallback: true,
	}
}

func newOrchestrator(cfg model.RiskConfig, sel Selector) (*Orchestrator, *ledger.Ledger) {
	l := ledger.New(10000, 5, zerolog.Nop())
	return NewOrchestrator(cfg, sel, testMarket(), l, zerolog.Nop()), l
}

func assertFullyAllocated(t *testing.T, l *ledger.Ledger) {
	t.Helper()
	total := l.CashWeight()
	for _, w := range l.Weights() {
		total += w
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestRebalancePadsToMinPositions(t *testing.T) {
	sel := &staticSelector{sel: Selection{
		Weights:    map[string]float64{"A": 0.4, "B": 0.3, "C": 0.1, "D": 0.1, "E": 0.1},
		Candidates: []string{"A", "F", "G", "H", "I", "J"},
	}}
	o, l := newOrchestrator(testConfig(), sel)

	require.NoError(t, o.Rebalance(context.Background(), rebalanceDay, model.RebalanceScheduled))

	weights := l.Weights()
	assert.Len(t, weights, 8)
	for ticker, w := range weights {
		assert.InDelta(t, 0.125, w, 1e-9, ticker)
	}
	snaps := o.Snapshots()
	require.Len(t, snaps, 1)
	assert.Equal(t, []string{"F", "G", "H"}, snaps[0].Padded)
	assertFullyAllocated(t, l)
}

func TestRebalanceFallsBackToBenchmark(t *testing.T) {
	o, l := newOrchestrator(testConfig(), &staticSelector{})

	require.NoError(t, o.Rebalance(context.Background(), rebalanceDay, model.RebalanceScheduled))

	assert.InDelta(t, 1.0, l.Weights()["SPY"], 1e-9)
	assert.InDelta(t, 0.0, l.CashWeight(), 1e-9)
	assert.True(t, o.Snapshots()[0].Fallback)
}

func TestRebalanceWithoutFallbackHoldsCash(t *testing.T) {
	cfg := testConfig()
	cfg.BenchmarkFallback = false
	o, l := newOrchestrator(cfg, &staticSelector{sel: Selection{Weights: map[string]float64{}}})

	require.NoError(t, o.Rebalance(context.Background(), rebalanceDay, model.RebalanceScheduled))
	assert.InDelta(t, 1.0, l.CashWeight(), 1e-9)
}

func TestRebalanceSelectionErrorUsesFallback(t *testing.T) {
	o, l := newOrchestrator(testConfig(), &staticSelector{err: errors.New("optimizer diverged")})

	require.NoError(t, o.Rebalance(context.Background(), rebalanceDay, model.RebalanceForced))
	assert.InDelta(t, 1.0, l.Weights()["SPY"], 1e-9)

	kinds := map[model.EventKind]int{}
	for _, e := range l.Events() {
		kinds[e.Kind]++
	}
	assert.Equal(t, 1, kinds[model.EventSelectionError])
	assert.Equal(t, 1, kinds[model.EventBenchmarkFallback])
}

func TestRebalanceRespectsWeightCap(t *testing.T) {
	cfg := testConfig()
	cfg.MinPositions = 0
	sel := &staticSelector{sel: Selection{Weights: map[string]float64{
		"A": 0.9, "B": 0.02, "C": 0.02, "D": 0.02, "E": 0.02, "F": 0.02,
	}}}
	o, l := newOrchestrator(cfg, sel)

	require.NoError(t, o.Rebalance(context.Background(), rebalanceDay, model.RebalanceScheduled))
	for ticker, w := range l.Weights() {
		assert.LessOrEqual(t, w, cfg.MaxWeightPct+1e-9, ticker)
	}
	assertFullyAllocated(t, l)
}

func TestRebalanceSellsDroppedAndAdjustsKept(t *testing.T) {
	cfg := testConfig()
	cfg.MinPositions = 0
	cfg.MaxWeightPct = 0.45
	cfg.SectorCapPct = 1
	sel := &staticSelector{sel: Selection{Weights: map[string]float64{"A": 0.5, "B": 0.5}}}
	o, l := newOrchestrator(cfg, sel)
	require.NoError(t, o.Rebalance(context.Background(), rebalanceDay, model.RebalanceInitial))

	sel.sel = Selection{Weights: map[string]float64{"A": 0.2, "C": 0.3}}
	require.NoError(t, o.Rebalance(context.Background(), rebalanceDay.AddDate(0, 3, 0), model.RebalanceScheduled))

	weights := l.Weights()
	_, held := weights["B"]
	assert.False(t, held)
	// raw 0.2/0.3 normalizes to 0.4/0.6; both end at the cap
	assert.InDelta(t, 0.45, weights["A"], 1e-9)
	assert.InDelta(t, 0.45, weights["C"], 1e-9)
	assert.InDelta(t, 0.1, l.CashWeight(), 1e-9)
	assert.Equal(t, rebalanceDay.AddDate(0, 3, 0), o.LastRebalance())
}

func TestRebalanceDefersPendingTickers(t *testing.T) {
	cfg := testConfig()
	cfg.MinPositions = 0
	cfg.MaxWeightPct = 0.5
	cfg.SectorCapPct = 1
	sel := &staticSelector{sel: Selection{Weights: map[string]float64{"A": 0.5, "B": 0.25, "C": 0.25}}}
	o, l := newOrchestrator(cfg, sel)
	require.NoError(t, o.Rebalance(context.Background(), rebalanceDay, model.RebalanceInitial))

	l.StopOut(rebalanceDay, "A", model.EventStopLoss)
	l.StopOut(rebalanceDay, "B", model.EventStopLoss)
	l.EndOfDay()

	sel.sel = Selection{Weights: map[string]float64{"A": 0.5, "C": 0.5}}
	require.NoError(t, o.Rebalance(context.Background(), rebalanceDay.AddDate(0, 0, 1), model.RebalanceForced))

	a, ok := l.Position("A")
	require.True(t, ok)
	assert.Equal(t, model.StateReentryPending, a.State, "selected pending ticker is not bought")
	_, ok = l.Position("B")
	assert.False(t, ok, "unselected pending ticker is removed")
	assert.InDelta(t, 0.5, l.Weights()["C"], 1e-9)
	assert.InDelta(t, 0.5, l.CashWeight(), 1e-9)
}

func TestRebalanceFallbackDefersStoppedOutBenchmark(t *testing.T) {
	o, l := newOrchestrator(testConfig(), &staticSelector{})
	require.NoError(t, o.Rebalance(context.Background(), rebalanceDay, model.RebalanceInitial))
	require.InDelta(t, 1.0, l.Weights()["SPY"], 1e-9)

	l.StopOut(rebalanceDay, "SPY", model.EventStopLoss)
	require.NoError(t, o.Rebalance(context.Background(), rebalanceDay, model.RebalanceForced))

	spy, ok := l.Position("SPY")
	require.True(t, ok, "stopped-out benchmark keeps its entry")
	assert.Equal(t, model.StateStoppedOut, spy.State)
	assert.Zero(t, spy.Units)
	assert.InDelta(t, 1.0, l.CashWeight(), 1e-9)
	assert.Equal(t, 0, countPendingRemoved(l.Events()))

	snaps := o.Snapshots()
	require.Len(t, snaps, 2)
	assert.True(t, snaps[1].Fallback)
	assert.InDelta(t, 1.0, snaps[1].Cash, 1e-9)
}

func countPendingRemoved(events []model.Event) int {
	n := 0
	for _, e := range events {
		if e.Kind == model.EventPendingRemoved {
			n++
		}
	}
	return n
}
