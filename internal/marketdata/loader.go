package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Alias1177/SmartVest/internal/model"
)

// Source fetches price and sector data from a remote provider
type Source interface {
	DailyCloses(ctx context.Context, ticker string, start, end time.Time) ([]model.PriceBar, error)
	Sector(ctx context.Context, ticker string) (string, error)
}

// Cache persists provider data between runs
type Cache interface {
	LoadPrices(ctx context.Context, ticker string, start, end time.Time) ([]model.PriceBar, error)
	SavePrices(ctx context.Context, ticker string, bars []model.PriceBar) error
	LoadSectors(ctx context.Context, tickers []string) (map[string]string, error)
	SaveSector(ctx context.Context, ticker, sector string) error
}

// LoaderOptions controls how much history is pre-loaded
type LoaderOptions struct {
	// LookbackDays of calendar history loaded before the window start so the
	// 200-day trend and momentum filters are warm on day one
	LookbackDays int
	Concurrency  int
	// CoverageSlackDays tolerated between the cached range and the request
	CoverageSlackDays int
}

// Loader pre-loads everything a trial needs into a Store before the replay
// loop starts. Either source or cache may be nil.
type Loader struct {
	source Source
	cache  Cache
	opts   LoaderOptions
	logger zerolog.Logger
}

// NewLoader creates a loader with defaults applied to zero options
func NewLoader(source Source, cache Cache, opts LoaderOptions) *Loader {
	if opts.LookbackDays == 0 {
		opts.LookbackDays = 400
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.CoverageSlackDays == 0 {
		opts.CoverageSlackDays = 7
	}
	return &Loader{
		source: source,
		cache:  cache,
		opts:   opts,
		logger: log.With().Str("component", "marketdata_loader").Logger(),
	}
}

// Load fetches the benchmark and every ticker for [start-lookback, end].
// Tickers that cannot be loaded are skipped; a missing benchmark is an error.
func (l *Loader) Load(ctx context.Context, benchmark string, tickers []string, start, end time.Time) (*Store, error) {
	from := model.Day(start).AddDate(0, 0, -l.opts.LookbackDays)
	to := model.Day(end)

	all := []string{benchmark}
	seen := map[string]bool{benchmark: true}
	for _, t := range tickers {
		if !seen[t] {
			seen[t] = true
			all = append(all, t)
		}
	}

	var mu sync.Mutex
	series := make(map[string][]model.PriceBar, len(all))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.Concurrency)
	for _, ticker := range all {
		ticker := ticker
		g.Go(func() error {
			bars, err := l.loadTicker(gctx, ticker, from, to)
			if err != nil {
				if ticker == benchmark {
					return fmt.Errorf("benchmark %s: %w", ticker, err)
				}
				l.logger.Warn().Err(err).Str("ticker", ticker).Msg("Skipping ticker without price data")
				return nil
			}
			mu.Lock()
			series[ticker] = bars
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	loaded := make([]string, 0, len(series))
	for t := range series {
		if t != benchmark {
			loaded = append(loaded, t)
		}
	}
	sectors := l.loadSectors(ctx, loaded)

	l.logger.Info().
		Str("benchmark", benchmark).
		Int("requested", len(tickers)).
		Int("loaded", len(loaded)).
		Time("from", from).
		Time("to", to).
		Msg("Market data loaded")

	return NewStore(benchmark, series, sectors)
}

func (l *Loader) loadTicker(ctx context.Context, ticker string, from, to time.Time) ([]model.PriceBar, error) {
	var cached []model.PriceBar
	if l.cache != nil {
		bars, err := l.cache.LoadPrices(ctx, ticker, from, to)
		if err != nil {
			l.logger.Warn().Err(err).Str("ticker", ticker).Msg("Price cache read failed")
		} else {
			cached = bars
		}
		if l.source == nil || l.covers(cached, from, to) {
			if len(cached) == 0 {
				return nil, fmt.Errorf("no cached prices for %s: %w", ticker, ErrUnknownTicker)
			}
			return cached, nil
		}
	}
	if l.source == nil {
		return nil, fmt.Errorf("no price source for %s: %w", ticker, ErrUnknownTicker)
	}

	bars, err := l.source.DailyCloses(ctx, ticker, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ticker, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("provider returned no prices for %s: %w", ticker, ErrUnknownTicker)
	}

	if l.cache != nil {
		if err := l.cache.SavePrices(ctx, ticker, bars); err != nil {
			l.logger.Warn().Err(err).Str("ticker", ticker).Msg("Price cache write failed")
		}
	}
	return bars, nil
}

func (l *Loader) covers(bars []model.PriceBar, from, to time.Time) bool {
	if len(bars) == 0 {
		return false
	}
	slack := time.Duration(l.opts.CoverageSlackDays) * 24 * time.Hour
	first := model.Day(bars[0].Date)
	last := model.Day(bars[len(bars)-1].Date)
	return !first.After(from.Add(slack)) && !last.Before(to.Add(-slack))
}

func (l *Loader) loadSectors(ctx context.Context, tickers []string) map[string]string {
	sectors := make(map[string]string, len(tickers))
	if l.cache != nil {
		cached, err := l.cache.LoadSectors(ctx, tickers)
		if err != nil {
			l.logger.Warn().Err(err).Msg("Sector cache read failed")
		}
		for t, s := range cached {
			sectors[t] = s
		}
	}
	if l.source == nil {
		return sectors
	}

	for _, t := range tickers {
		if _, ok := sectors[t]; ok {
			continue
		}
		sector, err := l.source.Sector(ctx, t)
		if err != nil || sector == "" {
			l.logger.Debug().Err(err).Str("ticker", t).Msg("Sector unavailable, using Unknown")
			continue
		}
		sectors[t] = sector
		if l.cache != nil {
			if err := l.cache.SaveSector(ctx, t, sector); err != nil {
				l.logger.Warn().Err(err).Str("ticker", t).Msg("Sector cache write failed")
			}
		}
	}
	return sectors
}
