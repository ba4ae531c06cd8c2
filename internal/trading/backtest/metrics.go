package backtest

import (
	"math"
	"time"

	"github.com/Alias1177/SmartVest/internal/analysis/technical"
	"github.com/Alias1177/SmartVest/internal/model"
)

const (
	// SharpeBound clamps the Sharpe ratio to [-SharpeBound, SharpeBound]
	SharpeBound = 5.0
	// minAnnualVolatility floors ratio denominators
	minAnnualVolatility = 1e-4
)

// Accountant records the end-of-day NAV series and derives metrics from it
type Accountant struct {
	initialCapital float64
	benchmarkBase  float64
	peak           float64
	points         []model.NAVPoint
}

// NewAccountant creates an accountant normalizing the benchmark curve to
// the initial capital
func NewAccountant(initialCapital float64) *Accountant {
	return &Accountant{initialCapital: initialCapital}
}

// Record appends the state at the close of day
func (a *Accountant) Record(day time.Time, nav, cash, benchmarkClose float64, regime model.Regime, weights map[string]float64) model.NAVPoint {
	if a.benchmarkBase == 0 && benchmarkClose > 0 {
		a.benchmarkBase = benchmarkClose
	}
	a.peak = math.Max(a.peak, nav)

	point := model.NAVPoint{
		Date:     day,
		NAV:      nav,
		Cash:     cash,
		Drawdown: drawdown(nav, a.peak),
		Regime:   regime,
		Weights:  weights,
	}
	if nav > 0 {
		point.CashWeight = cash / nav
	}
	if a.benchmarkBase > 0 {
		point.Benchmark = a.initialCapital * benchmarkClose / a.benchmarkBase
	}
	a.points = append(a.points, point)
	return point
}

// Points returns the recorded series
func (a *Accountant) Points() []model.NAVPoint {
	out := make([]model.NAVPoint, len(a.points))
	copy(out, a.points)
	return out
}

// Metrics computes the summary statistics of the recorded series
func (a *Accountant) Metrics(riskFreeRate float64) model.Metrics {
	dates := make([]time.Time, len(a.points))
	navs := make([]float64, len(a.points))
	bench := make([]float64, len(a.points))
	for i, p := range a.points {
		dates[i] = p.Date
		navs[i] = p.NAV
		bench[i] = p.Benchmark
	}
	return CalculatePerformanceMetrics(dates, navs, bench, riskFreeRate)
}

// CalculatePerformanceMetrics derives return, risk and benchmark-relative
// statistics from aligned daily NAV and benchmark series
func CalculatePerformanceMetrics(dates []time.Time, navs, benchmark []float64, riskFreeRate float64) model.Metrics {
	var m model.Metrics
	if len(navs) == 0 {
		return m
	}
	m.FinalValue = navs[len(navs)-1]
	if len(navs) < 2 || navs[0] <= 0 {
		return m
	}

	returns := technical.DailyReturns(navs)
	m.TradingDays = len(returns)
	m.TotalReturn = navs[len(navs)-1]/navs[0] - 1

	years := dates[len(dates)-1].Sub(dates[0]).Hours() / 24 / 365.25
	m.PeriodYears = years
	if years > 0 && navs[len(navs)-1] > 0 {
		m.CAGR = math.Pow(navs[len(navs)-1]/navs[0], 1/years) - 1
	}

	dailyRF := riskFreeRate / technical.TradingDaysPerYear
	m.AnnualVolatility = technical.AnnualizedVolatility(returns)
	m.Sharpe = SharpeRatio(returns, dailyRF)
	if downside := technical.DownsideDeviation(returns); downside > 0 {
		m.Sortino = (technical.Mean(returns) - dailyRF) / downside * math.Sqrt(technical.TradingDaysPerYear)
	}

	m.MaxDrawdown, m.MaxDrawdownDuration = drawdownStats(navs)
	if m.MaxDrawdown != 0 {
		m.Calmar = m.CAGR / math.Abs(m.MaxDrawdown)
	}

	if len(benchmark) == len(navs) && benchmark[0] > 0 {
		benchReturns := technical.DailyReturns(benchmark)
		m.BenchmarkReturn = benchmark[len(benchmark)-1]/benchmark[0] - 1
		m.Outperformance = m.TotalReturn - m.BenchmarkReturn
		m.Alpha, m.Beta = AlphaBeta(returns, benchReturns, dailyRF)
	}
	return m
}

// SharpeRatio annualizes mean excess daily return over volatility. The
// denominator is floored and the result clamped to [-5, 5].
func SharpeRatio(returns []float64, dailyRiskFree float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	vol := math.Max(technical.AnnualizedVolatility(returns), minAnnualVolatility)
	sharpe := (technical.Mean(returns) - dailyRiskFree) * technical.TradingDaysPerYear / vol
	return math.Max(-SharpeBound, math.Min(SharpeBound, sharpe))
}

// AlphaBeta returns the annualized regression intercept and the slope of
// portfolio returns on benchmark returns. A flat benchmark yields beta 1.
func AlphaBeta(portfolio, benchmark []float64, dailyRiskFree float64) (alpha, beta float64) {
	n := len(portfolio)
	if len(benchmark) < n {
		n = len(benchmark)
	}
	if n < 2 {
		return 0, 0
	}
	p, b := portfolio[:n], benchmark[:n]

	beta = 1
	if variance := math.Pow(technical.StdDev(b), 2); variance > 0 {
		beta = technical.Covariance(p, b) / variance
	}
	alpha = (technical.Mean(p) - dailyRiskFree - beta*(technical.Mean(b)-dailyRiskFree)) * technical.TradingDaysPerYear
	return alpha, beta
}

func drawdown(nav, peak float64) float64 {
	if peak <= 0 {
		return 0
	}
	return math.Min(0, nav/peak-1)
}

// drawdownStats returns the deepest drawdown and the longest run of
// consecutive days spent below a previous peak
func drawdownStats(navs []float64) (maxDD float64, longest int) {
	var peak float64
	run := 0
	for _, nav := range navs {
		peak = math.Max(peak, nav)
		dd := drawdown(nav, peak)
		maxDD = math.Min(maxDD, dd)
		if dd < 0 {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	return maxDD, longest
}
