package selection

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/SmartVest/internal/marketdata"
	"github.com/Alias1177/SmartVest/internal/marketdata/marketdatatest"
	"github.com/Alias1177/SmartVest/internal/model"
)

func linear(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func newStore(t *testing.T) (*marketdata.Store, []time.Time) {
	t.Helper()
	days := marketdatatest.BusinessDays(time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC), 300)

	crash := linear(300, 100, 0.5)
	for i := 260; i < 300; i++ {
		crash[i] = 50
	}
	series := map[string][]model.PriceBar{
		"SPY":   marketdatatest.Bars(days, linear(300, 100, 0.1)),
		"UP":    marketdatatest.Bars(days, linear(300, 100, 0.5)),
		"BBB":   marketdatatest.Bars(days, linear(300, 100, 0.2)),
		"CCC":   marketdatatest.Bars(days, linear(300, 100, 0.2)),
		"FLAT":  marketdatatest.Bars(days, linear(300, 100, 0)),
		"DOWN":  marketdatatest.Bars(days, linear(300, 300, -0.5)),
		"SHORT": marketdatatest.Bars(days[150:], linear(150, 100, 1)),
		"LATE":  marketdatatest.Bars(days, crash),
	}
	store, err := marketdata.NewStore("SPY", series, nil)
	require.NoError(t, err)
	return store, days
}

func TestRankFiltersAndOrders(t *testing.T) {
	store, days := newStore(t)
	s := NewMomentumSelector(store)

	scores, err := s.Rank(context.Background(), days[299], []string{"BBB", "CCC", "DOWN", "FLAT", "LATE", "SHORT", "UP"})
	require.NoError(t, err)

	var names []string
	for _, sc := range scores {
		names = append(names, sc.Ticker)
	}
	// ties on momentum resolve by ticker
	assert.Equal(t, []string{"UP", "BBB", "CCC"}, names)
	assert.InDelta(t, 249.5/186.5-1, scores[0].Momentum, 1e-12)
	assert.Greater(t, scores[0].Price, scores[0].SMA)
}

func TestRankUsesOnlyPastCloses(t *testing.T) {
	store, days := newStore(t)
	s := NewMomentumSelector(store)

	scores, err := s.Rank(context.Background(), days[250], []string{"LATE"})
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, "LATE", scores[0].Ticker)

	scores, err = s.Rank(context.Background(), days[299], []string{"LATE"})
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestSelectTopN(t *testing.T) {
	store, days := newStore(t)
	s := NewMomentumSelector(store)
	universe := store.Universe()

	tests := []struct {
		name    string
		profile model.Profile
		want    map[string]float64
	}{
		{
			name:    "momentum weighted",
			profile: model.ProfileBalanced,
			want:    map[string]float64{"UP": 249.5/186.5 - 1, "BBB": 159.8/134.6 - 1},
		},
		{
			name:    "aggressive equal weight",
			profile: model.ProfileAggressive,
			want:    map[string]float64{"UP": 1, "BBB": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := model.RiskConfig{Profile: tt.profile, SelectionTopN: 2}
			sel, err := s.Select(context.Background(), days[299], universe, cfg)
			require.NoError(t, err)

			require.Len(t, sel.Weights, len(tt.want))
			for ticker, w := range tt.want {
				assert.InDelta(t, w, sel.Weights[ticker], 1e-9, ticker)
			}
			assert.Equal(t, []string{"UP", "BBB", "CCC"}, sel.Candidates)
		})
	}
}

func TestSelectEmptyBeforeWarmup(t *testing.T) {
	store, days := newStore(t)
	s := NewMomentumSelector(store)

	sel, err := s.Select(context.Background(), days[100], store.Universe(), model.RiskConfig{Profile: model.ProfileBalanced})
	require.NoError(t, err)
	assert.Empty(t, sel.Weights)
	assert.Empty(t, sel.Candidates)
}

func TestSelectHonorsCancellation(t *testing.T) {
	store, days := newStore(t)
	s := NewMomentumSelector(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Select(ctx, days[299], store.Universe(), model.RiskConfig{})
	assert.ErrorIs(t, err, context.Canceled)
}
