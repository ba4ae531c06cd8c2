package marketdata

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/SmartVest/internal/marketdata/marketdatatest"
	"github.com/Alias1177/SmartVest/internal/model"
)

func testStore(t *testing.T) (*Store, []time.Time) {
	t.Helper()
	days := marketdatatest.BusinessDays(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 10)
	spy := marketdatatest.Bars(days, []float64{100, 101, 102, 103, 104, 105, 106, 107, 108, 109})
	// AAPL misses day 3
	aapl := marketdatatest.Bars(append(append([]time.Time{}, days[:3]...), days[4:]...),
		[]float64{10, 11, 12, 14, 15, 16, 17, 18, 19})
	store, err := NewStore("SPY", map[string][]model.PriceBar{
		"SPY":  spy,
		"AAPL": aapl,
		"MSFT": marketdatatest.Bars(days, []float64{1, 1, 1, 1, 0, 1, 1, 1, 1, 1}),
	}, map[string]string{"AAPL": "Technology"})
	require.NoError(t, err)
	return store, days
}

func TestNewStoreRequiresBenchmark(t *testing.T) {
	_, err := NewStore("SPY", map[string][]model.PriceBar{"AAPL": nil}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownTicker))

	_, err = NewStore("SPY", map[string][]model.PriceBar{"SPY": nil}, nil)
	assert.True(t, errors.Is(err, ErrNoTradingDays))
}

func TestStoreLookups(t *testing.T) {
	store, days := testStore(t)

	c, ok := store.Close("AAPL", days[2].Add(15*time.Hour))
	assert.True(t, ok)
	assert.Equal(t, 12.0, c)

	_, ok = store.Close("AAPL", days[3])
	assert.False(t, ok, "gap should not be filled by the store")

	_, ok = store.Close("MSFT", days[4])
	assert.False(t, ok, "non-positive closes are dropped")

	assert.Equal(t, "Technology", store.Sector("AAPL"))
	assert.Equal(t, model.UnknownSector, store.Sector("MSFT"))
	assert.Equal(t, []string{"AAPL", "MSFT"}, store.Universe())
}

func TestStoreTradingDaysAndHistory(t *testing.T) {
	store, days := testStore(t)

	window := store.TradingDays(days[2], days[5])
	assert.Equal(t, days[2:6], window)
	assert.Empty(t, store.TradingDays(days[9].AddDate(0, 0, 1), days[9].AddDate(0, 0, 5)))

	assert.Equal(t, []float64{100, 101, 102}, store.BenchmarkHistory(days[2]))
	// a weekend date resolves to the previous session
	assert.Len(t, store.BenchmarkHistory(days[4].AddDate(0, 0, 1)), 5)

	assert.Equal(t, []float64{11, 12, 14}, store.History("AAPL", days[4], 3))
	assert.Len(t, store.History("AAPL", days[9], 0), 9)
}
