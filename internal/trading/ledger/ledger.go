package ledger

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/Alias1177/SmartVest/internal/marketdata"
	"github.com/Alias1177/SmartVest/internal/model"
)

// Epsilon is the tolerance used for cash and weight comparisons
const Epsilon = 1e-9

// PriceSource is the daily close lookup the ledger marks against
type PriceSource interface {
	Close(ticker string, day time.Time) (float64, bool)
}

// Ledger holds the cash balance, per-ticker positions and the trial journal.
// It is not safe for concurrent use; a trial owns exactly one ledger.
type Ledger struct {
	cash         float64
	positions    map[string]*model.Position
	trades       []model.Trade
	events       []model.Event
	maxStaleDays int
	logger       zerolog.Logger
}

// New creates a ledger holding only cash
func New(initialCash float64, maxStaleDays int, logger zerolog.Logger) *Ledger {
	return &Ledger{
		cash:         initialCash,
		positions:    make(map[string]*model.Position),
		maxStaleDays: maxStaleDays,
		logger:       logger.With().Str("component", "ledger").Logger(),
	}
}

// Cash returns the uninvested balance
func (l *Ledger) Cash() float64 {
	return l.cash
}

// NAV is cash plus the marked value of every active position
func (l *Ledger) NAV() float64 {
	nav := l.cash
	for _, t := range l.sortedTickers() {
		nav += l.positions[t].Value()
	}
	return nav
}

// Weights returns value/NAV for every active position
func (l *Ledger) Weights() map[string]float64 {
	nav := l.NAV()
	weights := make(map[string]float64)
	if nav <= 0 {
		return weights
	}
	for t, p := range l.positions {
		if p.IsActive() {
			weights[t] = p.Value() / nav
		}
	}
	return weights
}

// CashWeight is the cash share of NAV
func (l *Ledger) CashWeight() float64 {
	nav := l.NAV()
	if nav <= 0 {
		return 0
	}
	return l.cash / nav
}

// Position returns a copy of the entry for ticker
func (l *Ledger) Position(ticker string) (model.Position, bool) {
	p, ok := l.positions[ticker]
	if !ok {
		return model.Position{}, false
	}
	return *p, true
}

// Tickers lists positions in the given states, sorted by ticker
func (l *Ledger) Tickers(states ...model.PositionState) []string {
	var out []string
	for _, t := range l.sortedTickers() {
		for _, s := range states {
			if l.positions[t].State == s {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// MarkPrices refreshes the last price of every entry. A missing price is
// carried forward and flagged stale; an active position stale for more than
// maxStaleDays consecutive days returns a StalePriceError.
func (l *Ledger) MarkPrices(day time.Time, prices PriceSource) error {
	for _, t := range l.sortedTickers() {
		p := l.positions[t]
		price, ok := prices.Close(t, day)
		if ok {
			p.LastPrice = price
			p.StaleDays = 0
			continue
		}

		p.StaleDays++
		if !p.IsActive() {
			continue
		}
		if p.StaleDays == 1 {
			l.record(model.Event{Date: day, Kind: model.EventStalePrice, Ticker: t, Price: p.LastPrice})
		}
		l.logger.Warn().
			Str("ticker", t).
			Time("date", day).
			Int("stale_days", p.StaleDays).
			Msg("Price missing, carrying forward last close")
		if p.StaleDays > l.maxStaleDays {
			return &marketdata.StalePriceError{Ticker: t, Date: day, Days: p.StaleDays}
		}
	}
	return nil
}

// EndOfDay raises peaks of active positions and moves positions stopped
// out today into REENTRY_PENDING
func (l *Ledger) EndOfDay() {
	for _, p := range l.positions {
		switch p.State {
		case model.StateActive:
			p.PeakPrice = math.Max(p.PeakPrice, p.LastPrice)
		case model.StateStoppedOut:
			p.State = model.StateReentryPending
		}
	}
}

// Buy invests amount at price. A new or re-entered position starts with
// cost basis and peak at the fill price; adding to an active position
// averages the cost basis. The amount is clamped to available cash.
func (l *Ledger) Buy(day time.Time, ticker, sector string, amount, price float64, reason model.EventKind) float64 {
	if price <= 0 {
		return 0
	}
	if amount > l.cash {
		amount = l.cash
	}
	if amount <= Epsilon {
		return 0
	}
	units := amount / price

	p, ok := l.positions[ticker]
	if ok && p.IsActive() {
		p.CostBasis = (p.CostBasis*p.Units + amount) / (p.Units + units)
		p.Units += units
		p.PeakPrice = math.Max(p.PeakPrice, price)
		p.LastPrice = price
	} else {
		l.positions[ticker] = &model.Position{
			Ticker:    ticker,
			Sector:    sector,
			Units:     units,
			CostBasis: price,
			EntryDate: day,
			PeakPrice: price,
			LastPrice: price,
			State:     model.StateActive,
		}
	}

	l.cash -= amount
	l.trades = append(l.trades, model.Trade{
		Date: day, Ticker: ticker, Side: model.SideBuy, Units: units, Price: price, Amount: amount, Reason: reason,
	})
	return amount
}

// SellFraction sells part of an active position at its last price. A sale
// that leaves no units deletes the entry. Returns the proceeds.
func (l *Ledger) SellFraction(day time.Time, ticker string, fraction float64, reason model.EventKind) float64 {
	proceeds := l.sell(day, ticker, fraction, reason)
	if p, ok := l.positions[ticker]; ok && p.IsActive() && p.Units == 0 {
		delete(l.positions, ticker)
	}
	return proceeds
}

// Exit sells the whole position and deletes the entry
func (l *Ledger) Exit(day time.Time, ticker string, reason model.EventKind) float64 {
	proceeds := l.sell(day, ticker, 1, reason)
	delete(l.positions, ticker)
	return proceeds
}

// StopOut sells the whole position and keeps the entry as STOPPED_OUT with
// the exit price and date recorded for re-entry
func (l *Ledger) StopOut(day time.Time, ticker string, reason model.EventKind) float64 {
	p, ok := l.positions[ticker]
	if !ok || !p.IsActive() {
		return 0
	}
	price := p.LastPrice
	proceeds := l.sell(day, ticker, 1, reason)
	p.Units = 0
	p.State = model.StateStoppedOut
	p.StoppedOutDate = day
	p.StoppedOutPrice = price
	l.record(model.Event{Date: day, Kind: reason, Ticker: ticker, Price: price, Amount: proceeds})
	return proceeds
}

// Remove drops an entry that is awaiting re-entry
func (l *Ledger) Remove(day time.Time, ticker string) {
	p, ok := l.positions[ticker]
	if !ok || p.IsActive() {
		return
	}
	delete(l.positions, ticker)
	l.record(model.Event{Date: day, Kind: model.EventPendingRemoved, Ticker: ticker})
}

func (l *Ledger) sell(day time.Time, ticker string, fraction float64, reason model.EventKind) float64 {
	p, ok := l.positions[ticker]
	if !ok || !p.IsActive() || fraction <= 0 {
		return 0
	}
	if fraction > 1 {
		fraction = 1
	}
	units := p.Units * fraction
	proceeds := units * p.LastPrice
	p.Units -= units
	if p.Units < Epsilon {
		p.Units = 0
	}
	l.cash += proceeds
	l.trades = append(l.trades, model.Trade{
		Date: day, Ticker: ticker, Side: model.SideSell, Units: units, Price: p.LastPrice, Amount: proceeds, Reason: reason,
	})
	return proceeds
}

// Record appends an event to the journal
func (l *Ledger) Record(e model.Event) {
	l.record(e)
}

// Trades returns a copy of the executed fills
func (l *Ledger) Trades() []model.Trade {
	out := make([]model.Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// Events returns a copy of the journal
func (l *Ledger) Events() []model.Event {
	out := make([]model.Event, len(l.events))
	copy(out, l.events)
	return out
}

func (l *Ledger) record(e model.Event) {
	l.events = append(l.events, e)
}

func (l *Ledger) sortedTickers() []string {
	tickers := make([]string, 0, len(l.positions))
	for t := range l.positions {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return tickers
}
