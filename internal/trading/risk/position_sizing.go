package risk

import "math"

// ReentrySize returns the cash to commit when a stopped-out position is
// re-bought: at most maxCashFraction of available cash and never more
// than maxWeight of NAV.
func ReentrySize(cash, nav, maxCashFraction, maxWeight float64) float64 {
	if cash <= 0 || nav <= 0 {
		return 0
	}
	amount := cash * maxCashFraction
	return math.Max(0, math.Min(amount, nav*maxWeight))
}

// CrashSaleFraction clamps the configured crash sale fraction to [0, 1]
func CrashSaleFraction(fraction float64) float64 {
	return math.Max(0, math.Min(1, fraction))
}
