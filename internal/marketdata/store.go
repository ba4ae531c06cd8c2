package marketdata

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Alias1177/SmartVest/internal/model"
)

var (
	// ErrUnknownTicker is returned when a requested series is not loaded
	ErrUnknownTicker = errors.New("unknown ticker")
	// ErrNoTradingDays is returned when a window contains no benchmark dates
	ErrNoTradingDays = errors.New("no trading days in window")
)

// StalePriceError reports a held ticker whose price has been carried
// forward for longer than allowed
type StalePriceError struct {
	Ticker string
	Date   time.Time
	Days   int
}

func (e *StalePriceError) Error() string {
	return fmt.Sprintf("stale price for %s on %s: %d consecutive days without data",
		e.Ticker, e.Date.Format("2006-01-02"), e.Days)
}

// Store is an immutable in-memory view of daily closes. The benchmark's
// dates define the trading calendar.
type Store struct {
	benchmark  string
	calendar   []time.Time
	benchIdx   map[time.Time]int
	benchClose []float64
	series     map[string][]model.PriceBar
	closes     map[string]map[time.Time]float64
	sectors    map[string]string
}

// NewStore indexes the given series. Bars are copied, normalized to UTC
// dates and sorted; non-positive closes are dropped.
func NewStore(benchmark string, series map[string][]model.PriceBar, sectors map[string]string) (*Store, error) {
	if _, ok := series[benchmark]; !ok {
		return nil, fmt.Errorf("benchmark %s: %w", benchmark, ErrUnknownTicker)
	}

	s := &Store{
		benchmark: benchmark,
		benchIdx:  make(map[time.Time]int),
		series:    make(map[string][]model.PriceBar, len(series)),
		closes:    make(map[string]map[time.Time]float64, len(series)),
		sectors:   make(map[string]string, len(sectors)),
	}

	for ticker, bars := range series {
		clean := make([]model.PriceBar, 0, len(bars))
		byDay := make(map[time.Time]float64, len(bars))
		for _, b := range bars {
			if b.Close <= 0 {
				continue
			}
			d := model.Day(b.Date)
			if _, dup := byDay[d]; !dup {
				clean = append(clean, model.PriceBar{Date: d, Close: b.Close})
			}
			byDay[d] = b.Close
		}
		sort.Slice(clean, func(i, j int) bool { return clean[i].Date.Before(clean[j].Date) })
		for i := range clean {
			clean[i].Close = byDay[clean[i].Date]
		}
		s.series[ticker] = clean
		s.closes[ticker] = byDay
	}

	for _, b := range s.series[benchmark] {
		s.benchIdx[b.Date] = len(s.calendar)
		s.calendar = append(s.calendar, b.Date)
		s.benchClose = append(s.benchClose, b.Close)
	}
	if len(s.calendar) == 0 {
		return nil, fmt.Errorf("benchmark %s has no prices: %w", benchmark, ErrNoTradingDays)
	}

	for t, sector := range sectors {
		s.sectors[t] = sector
	}
	return s, nil
}

// Benchmark returns the benchmark ticker
func (s *Store) Benchmark() string {
	return s.benchmark
}

// Close returns the close for ticker on day, if one was recorded
func (s *Store) Close(ticker string, day time.Time) (float64, bool) {
	c, ok := s.closes[ticker][model.Day(day)]
	return c, ok
}

// TradingDays lists the benchmark dates in [start, end]
func (s *Store) TradingDays(start, end time.Time) []time.Time {
	start, end = model.Day(start), model.Day(end)
	lo := sort.Search(len(s.calendar), func(i int) bool { return !s.calendar[i].Before(start) })
	hi := sort.Search(len(s.calendar), func(i int) bool { return s.calendar[i].After(end) })
	if lo >= hi {
		return nil
	}
	out := make([]time.Time, hi-lo)
	copy(out, s.calendar[lo:hi])
	return out
}

// BenchmarkHistory returns benchmark closes up to and including day. The
// returned slice shares storage with the store and must not be modified.
func (s *Store) BenchmarkHistory(day time.Time) []float64 {
	idx, ok := s.benchIdx[model.Day(day)]
	if !ok {
		d := model.Day(day)
		idx = sort.Search(len(s.calendar), func(i int) bool { return s.calendar[i].After(d) }) - 1
		if idx < 0 {
			return nil
		}
	}
	return s.benchClose[:idx+1]
}

// History returns up to n closes for ticker on or before day, oldest first.
// n <= 0 returns the full history.
func (s *Store) History(ticker string, day time.Time, n int) []float64 {
	bars := s.series[ticker]
	d := model.Day(day)
	hi := sort.Search(len(bars), func(i int) bool { return bars[i].Date.After(d) })
	lo := 0
	if n > 0 && hi-n > 0 {
		lo = hi - n
	}
	out := make([]float64, 0, hi-lo)
	for _, b := range bars[lo:hi] {
		out = append(out, b.Close)
	}
	return out
}

// Sector returns the sector of ticker, or model.UnknownSector
func (s *Store) Sector(ticker string) string {
	if sector, ok := s.sectors[ticker]; ok && sector != "" {
		return sector
	}
	return model.UnknownSector
}

// Universe lists the loaded tickers excluding the benchmark, sorted
func (s *Store) Universe() []string {
	out := make([]string, 0, len(s.series))
	for t := range s.series {
		if t != s.benchmark {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}
