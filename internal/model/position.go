package model

import "time"

// PositionState is the lifecycle state of a ledger entry
type PositionState string

const (
	StateActive         PositionState = "ACTIVE"
	StateStoppedOut     PositionState = "STOPPED_OUT"
	StateReentryPending PositionState = "REENTRY_PENDING"
)

// Position is a single ticker held (or awaiting re-entry) by the portfolio.
// Units are share-equivalents; the weight is derived from Units*LastPrice/NAV.
type Position struct {
	Ticker          string        `json:"ticker"`
	Sector          string        `json:"sector"`
	Units           float64       `json:"units"`
	CostBasis       float64       `json:"cost_basis"`
	EntryDate       time.Time     `json:"entry_date"`
	PeakPrice       float64       `json:"peak_price"`
	LastPrice       float64       `json:"last_price"`
	StaleDays       int           `json:"stale_days,omitempty"`
	State           PositionState `json:"state"`
	StoppedOutDate  time.Time     `json:"stopped_out_date,omitempty"`
	StoppedOutPrice float64       `json:"stopped_out_price,omitempty"`
}

// Value is the marked-to-market value of the position
func (p *Position) Value() float64 {
	if p.State != StateActive {
		return 0
	}
	return p.Units * p.LastPrice
}

// IsActive reports whether the position currently holds units
func (p *Position) IsActive() bool {
	return p.State == StateActive
}
