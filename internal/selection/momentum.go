package selection

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/SmartVest/internal/analysis/technical"
	"github.com/Alias1177/SmartVest/internal/model"
	"github.com/Alias1177/SmartVest/internal/trading/rebalance"
)

const (
	// TrendPeriod is the SMA a ticker must trade above to be eligible
	TrendPeriod = 200
	// FilterLookback is the short momentum window that must be positive
	FilterLookback = 63
	// RankLookback is the momentum window tickers are ranked by
	RankLookback = 126

	// minMomentumWeight keeps eligible names with non-positive rank
	// momentum in the basket at a token weight
	minMomentumWeight = 0.01
)

// PriceHistory provides point-in-time closes
type PriceHistory interface {
	History(ticker string, day time.Time, n int) []float64
}

// Score is the momentum snapshot of one eligible ticker
type Score struct {
	Ticker    string
	Price     float64
	SMA       float64
	ShortTerm float64
	Momentum  float64
}

// MomentumSelector is the reference selection pipeline: a trend filter
// followed by a momentum ranking
type MomentumSelector struct {
	data   PriceHistory
	logger zerolog.Logger
}

// NewMomentumSelector creates a selector reading closes from data
func NewMomentumSelector(data PriceHistory) *MomentumSelector {
	return &MomentumSelector{
		data:   data,
		logger: log.With().Str("component", "selection").Logger(),
	}
}

// Rank returns the eligible tickers of universe on day, best first. Only
// closes on or before day are used.
func (s *MomentumSelector) Rank(ctx context.Context, day time.Time, universe []string) ([]Score, error) {
	scores := make([]Score, 0, len(universe))
	for _, ticker := range universe {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		score, ok := s.score(ticker, day)
		if ok {
			scores = append(scores, score)
		}
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Momentum != scores[j].Momentum {
			return scores[i].Momentum > scores[j].Momentum
		}
		return scores[i].Ticker < scores[j].Ticker
	})
	return scores, nil
}

func (s *MomentumSelector) score(ticker string, day time.Time) (Score, bool) {
	closes := s.data.History(ticker, day, 0)
	if len(closes) < TrendPeriod {
		return Score{}, false
	}
	sma, ok := technical.CalculateSMA(closes, TrendPeriod)
	if !ok {
		return Score{}, false
	}
	price := closes[len(closes)-1]
	if price <= sma {
		return Score{}, false
	}
	short, ok := technical.CalculateReturn(closes, FilterLookback)
	if !ok || short <= 0 {
		return Score{}, false
	}
	momentum, ok := technical.CalculateReturn(closes, RankLookback)
	if !ok {
		return Score{}, false
	}
	return Score{Ticker: ticker, Price: price, SMA: sma, ShortTerm: short, Momentum: momentum}, true
}

// Select returns the top SelectionTopN ranked tickers with raw weights
// proportional to momentum, or equal weights for the aggressive profile.
// Every eligible ticker is returned as a padding candidate in rank order.
func (s *MomentumSelector) Select(ctx context.Context, day time.Time, universe []string, cfg model.RiskConfig) (rebalance.Selection, error) {
	scores, err := s.Rank(ctx, day, universe)
	if err != nil {
		return rebalance.Selection{}, err
	}

	top := len(scores)
	if cfg.SelectionTopN > 0 && cfg.SelectionTopN < top {
		top = cfg.SelectionTopN
	}

	sel := rebalance.Selection{
		Weights:    make(map[string]float64, top),
		Candidates: make([]string, 0, len(scores)),
	}
	for i, sc := range scores {
		sel.Candidates = append(sel.Candidates, sc.Ticker)
		if i >= top {
			continue
		}
		w := 1.0
		if cfg.Profile != model.ProfileAggressive {
			w = sc.Momentum
			if w < minMomentumWeight {
				w = minMomentumWeight
			}
		}
		sel.Weights[sc.Ticker] = w
	}

	s.logger.Debug().
		Time("date", day).
		Int("universe", len(universe)).
		Int("eligible", len(scores)).
		Int("selected", len(sel.Weights)).
		Msg("Momentum selection")
	return sel, nil
}
