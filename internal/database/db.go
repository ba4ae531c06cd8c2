package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DB represents a database connection
type DB struct {
	*sql.DB
	logger zerolog.Logger
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the lib/pq connection string
func (p ConnectionParams) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode,
	)
}

// New creates a new database connection and makes sure the schema exists
func New(ctx context.Context, params ConnectionParams) (*DB, error) {
	db, err := sql.Open("postgres", params.DSN())
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return Wrap(db), nil
}

// Wrap adopts an already opened connection without touching the schema
func Wrap(db *sql.DB) *DB {
	return &DB{
		DB:     db,
		logger: log.With().Str("component", "database").Logger(),
	}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS backtest_runs (
		id TEXT PRIMARY KEY,
		profile TEXT NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		status TEXT NOT NULL,
		error_message TEXT,
		total_return DOUBLE PRECISION,
		cagr DOUBLE PRECISION,
		volatility DOUBLE PRECISION,
		sharpe DOUBLE PRECISION,
		sortino DOUBLE PRECISION,
		max_drawdown DOUBLE PRECISION,
		calmar DOUBLE PRECISION,
		alpha DOUBLE PRECISION,
		beta DOUBLE PRECISION,
		benchmark_return DOUBLE PRECISION,
		final_value DOUBLE PRECISION,
		nav_curve JSONB,
		benchmark_curve JSONB,
		snapshots JSONB,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		finished_at TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS daily_prices (
		ticker TEXT NOT NULL,
		day DATE NOT NULL,
		close DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (ticker, day)
	)`,
	`CREATE TABLE IF NOT EXISTS ticker_sectors (
		ticker TEXT PRIMARY KEY,
		sector TEXT NOT NULL
	)`,
}

// createTables creates the necessary tables if they don't exist
func createTables(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
