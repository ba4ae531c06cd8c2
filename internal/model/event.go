package model

import "time"

// EventKind identifies what produced an entry in the trial journal
type EventKind string

const (
	EventStopLoss         EventKind = "STOP_LOSS"
	EventTrailingStop     EventKind = "TRAILING_STOP"
	EventReentry          EventKind = "REENTRY"
	EventCrashProtection  EventKind = "CRASH_PROTECTION"
	EventCrashRearmed     EventKind = "CRASH_REARMED"
	EventForcedRebalance  EventKind = "FORCED_REBALANCE"
	EventRebalance        EventKind = "REBALANCE"
	EventBenchmarkFallback EventKind = "BENCHMARK_FALLBACK"
	EventSelectionError   EventKind = "SELECTION_ERROR"
	EventPendingRemoved   EventKind = "REENTRY_REMOVED"
	EventStalePrice       EventKind = "STALE_PRICE"
)

// TradeSide is BUY or SELL
type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

// Trade is a single fill executed at the day's close
type Trade struct {
	Date   time.Time `json:"date"`
	Ticker string    `json:"ticker"`
	Side   TradeSide `json:"side"`
	Units  float64   `json:"units"`
	Price  float64   `json:"price"`
	Amount float64   `json:"amount"`
	Reason EventKind `json:"reason"`
}

// Event is a risk or rebalance decision recorded in the journal.
// Ticker is empty for portfolio-level events.
type Event struct {
	Date   time.Time `json:"date"`
	Kind   EventKind `json:"kind"`
	Ticker string    `json:"ticker,omitempty"`
	Price  float64   `json:"price,omitempty"`
	Amount float64   `json:"amount,omitempty"`
	Detail string    `json:"detail,omitempty"`
}
