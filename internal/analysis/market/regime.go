package market

import (
	"github.com/Alias1177/SmartVest/internal/analysis/technical"
	"github.com/Alias1177/SmartVest/internal/model"
)

// DefaultTrendPeriod is the benchmark SMA window used for regime detection
const DefaultTrendPeriod = 200

// RegimeDetector classifies a trading day as bull or bear from the benchmark
// trend. It keeps no state between days.
type RegimeDetector struct {
	period int
}

// NewRegimeDetector creates a detector using the given SMA period
func NewRegimeDetector(period int) *RegimeDetector {
	if period <= 0 {
		period = DefaultTrendPeriod
	}
	return &RegimeDetector{period: period}
}

// Classify returns BULL when the last close is above its SMA. Histories
// shorter than the SMA window are classified BEAR so no relaxation applies.
func (d *RegimeDetector) Classify(benchmarkCloses []float64) model.Regime {
	sma, ok := technical.CalculateSMA(benchmarkCloses, d.period)
	if !ok {
		return model.RegimeBear
	}
	if benchmarkCloses[len(benchmarkCloses)-1] > sma {
		return model.RegimeBull
	}
	return model.RegimeBear
}

// ClassifyMarketRegime runs the default 200-day detector
func ClassifyMarketRegime(benchmarkCloses []float64) model.Regime {
	return NewRegimeDetector(DefaultTrendPeriod).Classify(benchmarkCloses)
}
