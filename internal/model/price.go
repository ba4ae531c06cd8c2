package model

import "time"

// PriceBar is a daily close for one ticker
type PriceBar struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// UnknownSector groups tickers without sector data
const UnknownSector = "Unknown"

// Day truncates t to a UTC calendar date
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
