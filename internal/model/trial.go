package model

import "time"

// TrialStatus is the terminal state of a backtest trial
type TrialStatus string

const (
	TrialCompleted TrialStatus = "COMPLETED"
	TrialFailed    TrialStatus = "FAILED"
)

// RebalanceReason records why holdings were re-targeted
type RebalanceReason string

const (
	RebalanceInitial   RebalanceReason = "INITIAL"
	RebalanceScheduled RebalanceReason = "SCHEDULED"
	RebalanceForced    RebalanceReason = "FORCED"
)

// NAVPoint is the end-of-day state of the portfolio
type NAVPoint struct {
	Date       time.Time          `json:"date"`
	NAV        float64            `json:"nav"`
	Cash       float64            `json:"cash"`
	CashWeight float64            `json:"cash_weight"`
	Drawdown   float64            `json:"drawdown"`
	Benchmark  float64            `json:"benchmark"`
	Regime     Regime             `json:"regime"`
	Weights    map[string]float64 `json:"weights,omitempty"`
}

// RebalanceSnapshot captures the committed targets of one rebalance
type RebalanceSnapshot struct {
	Date     time.Time          `json:"date"`
	Reason   RebalanceReason    `json:"reason"`
	NAV      float64            `json:"nav"`
	Targets  map[string]float64 `json:"targets"`
	Cash     float64            `json:"cash_weight"`
	Fallback bool               `json:"fallback,omitempty"`
	Padded   []string           `json:"padded,omitempty"`
}

// Metrics are the summary statistics of a completed trial. Ratios are
// fractions (0.12 = 12%), not percentages.
type Metrics struct {
	TotalReturn         float64 `json:"total_return"`
	CAGR                float64 `json:"cagr"`
	AnnualVolatility    float64 `json:"annual_volatility"`
	Sharpe              float64 `json:"sharpe_ratio"`
	Sortino             float64 `json:"sortino_ratio"`
	MaxDrawdown         float64 `json:"max_drawdown"`
	MaxDrawdownDuration int     `json:"max_drawdown_duration"`
	Calmar              float64 `json:"calmar_ratio"`
	Alpha               float64 `json:"alpha"`
	Beta                float64 `json:"beta"`
	BenchmarkReturn     float64 `json:"benchmark_return"`
	Outperformance      float64 `json:"outperformance"`
	FinalValue          float64 `json:"final_value"`
	TradingDays         int     `json:"n_trading_days"`
	PeriodYears         float64 `json:"period_years"`
}

// TrialResult is produced once at trial end and not mutated afterwards
type TrialResult struct {
	ID             string              `json:"id"`
	Profile        Profile             `json:"profile"`
	Start          time.Time           `json:"start_date"`
	End            time.Time           `json:"end_date"`
	InitialCapital float64             `json:"initial_capital"`
	Status         TrialStatus         `json:"status"`
	Error          string              `json:"error,omitempty"`
	NAV            []NAVPoint          `json:"nav"`
	Trades         []Trade             `json:"trades"`
	Events         []Event             `json:"events"`
	Snapshots      []RebalanceSnapshot `json:"snapshots"`
	Metrics        Metrics             `json:"metrics"`
	Duration       time.Duration       `json:"duration"`
}

// Completed reports whether the trial finished without failure
func (r *TrialResult) Completed() bool {
	return r.Status == TrialCompleted
}

// CountEvents returns how many journal entries have the given kind
func (r *TrialResult) CountEvents(kind EventKind) int {
	n := 0
	for _, e := range r.Events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
