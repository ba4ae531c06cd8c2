package batch

import (
	"math"
	"sort"

	"github.com/Alias1177/SmartVest/internal/analysis/technical"
	"github.com/Alias1177/SmartVest/internal/model"
)

// Summary aggregates a batch. Every statistic covers COMPLETED trials only.
type Summary struct {
	Total         int
	Completed     int
	Failed        int
	Outperformed  int
	MeanReturn    float64
	MedianReturn  float64
	MeanSharpe    float64
	MeanAlpha     float64
	WorstDrawdown float64
	Best          *model.TrialResult
	Worst         *model.TrialResult
}

// Summarize computes the batch aggregates
func Summarize(results []*model.TrialResult) Summary {
	s := Summary{Total: len(results)}

	var returns, sharpes, alphas []float64
	for _, res := range results {
		if !res.Completed() {
			s.Failed++
			continue
		}
		s.Completed++
		m := res.Metrics
		returns = append(returns, m.TotalReturn)
		sharpes = append(sharpes, m.Sharpe)
		alphas = append(alphas, m.Alpha)
		s.WorstDrawdown = math.Min(s.WorstDrawdown, m.MaxDrawdown)
		if m.Outperformance > 0 {
			s.Outperformed++
		}
		if s.Best == nil || m.TotalReturn > s.Best.Metrics.TotalReturn {
			s.Best = res
		}
		if s.Worst == nil || m.TotalReturn < s.Worst.Metrics.TotalReturn {
			s.Worst = res
		}
	}
	if s.Completed == 0 {
		return s
	}

	s.MeanReturn = technical.Mean(returns)
	s.MedianReturn = median(returns)
	s.MeanSharpe = technical.Mean(sharpes)
	s.MeanAlpha = technical.Mean(alphas)
	return s
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
