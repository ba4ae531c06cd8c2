package database

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Alias1177/SmartVest/internal/model"
)

// LoadPrices returns cached closes of ticker in [start, end], oldest first
func (db *DB) LoadPrices(ctx context.Context, ticker string, start, end time.Time) ([]model.PriceBar, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT day, close
		FROM daily_prices
		WHERE ticker = $1 AND day BETWEEN $2 AND $3
		ORDER BY day
	`, ticker, model.Day(start), model.Day(end))
	if err != nil {
		return nil, fmt.Errorf("load prices %s: %w", ticker, err)
	}
	defer rows.Close()

	var bars []model.PriceBar
	for rows.Next() {
		var b model.PriceBar
		if err := rows.Scan(&b.Date, &b.Close); err != nil {
			return nil, err
		}
		b.Date = model.Day(b.Date)
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// SavePrices upserts closes of ticker in one transaction
func (db *DB) SavePrices(ctx context.Context, ticker string, bars []model.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO daily_prices (ticker, day, close)
		VALUES ($1, $2, $3)
		ON CONFLICT (ticker, day) DO UPDATE SET close = EXCLUDED.close
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, ticker, model.Day(b.Date), b.Close); err != nil {
			return fmt.Errorf("save price %s %s: %w", ticker, b.Date.Format("2006-01-02"), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	db.logger.Debug().Str("ticker", ticker).Int("bars", len(bars)).Msg("Prices cached")
	return nil
}

// LoadSectors returns the cached sector of every known ticker in tickers
func (db *DB) LoadSectors(ctx context.Context, tickers []string) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT ticker, sector
		FROM ticker_sectors
		WHERE ticker = ANY($1)
	`, pq.Array(tickers))
	if err != nil {
		return nil, fmt.Errorf("load sectors: %w", err)
	}
	defer rows.Close()

	sectors := make(map[string]string, len(tickers))
	for rows.Next() {
		var ticker, sector string
		if err := rows.Scan(&ticker, &sector); err != nil {
			return nil, err
		}
		sectors[ticker] = sector
	}
	return sectors, rows.Err()
}

// SaveSector upserts the sector of ticker
func (db *DB) SaveSector(ctx context.Context, ticker, sector string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO ticker_sectors (ticker, sector)
		VALUES ($1, $2)
		ON CONFLICT (ticker) DO UPDATE SET sector = EXCLUDED.sector
	`, ticker, sector)
	return err
}
