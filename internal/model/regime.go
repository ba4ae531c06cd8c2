package model

import "strings"

// Regime is the macro market classification for a trading day.
type Regime int

const (
	RegimeBear Regime = iota
	RegimeBull
)

// String returns the upper-case name used in logs and reports
func (r Regime) String() string {
	switch r {
	case RegimeBull:
		return "BULL"
	case RegimeBear:
		return "BEAR"
	default:
		return "UNKNOWN"
	}
}

// ParseRegime converts "bull"/"bear" (any case) into a Regime.
func ParseRegime(s string) (Regime, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bull":
		return RegimeBull, true
	case "bear":
		return RegimeBear, true
	}
	return RegimeBear, false
}
