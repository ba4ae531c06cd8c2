package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Alias1177/SmartVest/internal/model"
)

// Run statuses stored in backtest_runs
const (
	RunRunning = "running"
	RunDone    = "done"
	RunFailed  = "failed"
)

// InterruptedMessage is stored on runs that never finished
const InterruptedMessage = "Interrupted by user"

// RunRecord is one row of backtest_runs without the JSON curves
type RunRecord struct {
	ID          string
	Profile     string
	Start       time.Time
	End         time.Time
	Status      string
	Error       string
	TotalReturn float64
	Sharpe      float64
	MaxDrawdown float64
	CreatedAt   time.Time
	FinishedAt  time.Time
}

type curvePoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// StartRun inserts a run in status running
func (db *DB) StartRun(ctx context.Context, id string, profile model.Profile, start, end time.Time) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO backtest_runs (id, profile, start_date, end_date, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, string(profile), start, end, RunRunning, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert run %s: %w", id, err)
	}
	return nil
}

// FinishRun stores the outcome, metrics and curves of a trial
func (db *DB) FinishRun(ctx context.Context, result *model.TrialResult) error {
	status := RunDone
	if !result.Completed() {
		status = RunFailed
	}

	nav := make([]curvePoint, len(result.NAV))
	bench := make([]curvePoint, len(result.NAV))
	for i, p := range result.NAV {
		day := p.Date.Format("2006-01-02")
		nav[i] = curvePoint{Date: day, Value: p.NAV}
		bench[i] = curvePoint{Date: day, Value: p.Benchmark}
	}
	navJSON, err := json.Marshal(nav)
	if err != nil {
		return fmt.Errorf("marshal nav curve: %w", err)
	}
	benchJSON, err := json.Marshal(bench)
	if err != nil {
		return fmt.Errorf("marshal benchmark curve: %w", err)
	}
	snapshotsJSON, err := json.Marshal(result.Snapshots)
	if err != nil {
		return fmt.Errorf("marshal snapshots: %w", err)
	}

	m := result.Metrics
	res, err := db.ExecContext(ctx, `
		UPDATE backtest_runs SET
			status = $1, error_message = $2,
			total_return = $3, cagr = $4, volatility = $5, sharpe = $6, sortino = $7,
			max_drawdown = $8, calmar = $9, alpha = $10, beta = $11,
			benchmark_return = $12, final_value = $13,
			nav_curve = $14, benchmark_curve = $15, snapshots = $16,
			finished_at = $17
		WHERE id = $18
	`,
		status, nullString(result.Error),
		m.TotalReturn, m.CAGR, m.AnnualVolatility, m.Sharpe, m.Sortino,
		m.MaxDrawdown, m.Calmar, m.Alpha, m.Beta,
		m.BenchmarkReturn, m.FinalValue,
		navJSON, benchJSON, snapshotsJSON,
		time.Now().UTC(), result.ID,
	)
	if err != nil {
		return fmt.Errorf("update run %s: %w", result.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update run %s: %w", result.ID, sql.ErrNoRows)
	}
	return nil
}

// SaveTrial records a trial that was not started through StartRun
func (db *DB) SaveTrial(ctx context.Context, result *model.TrialResult) error {
	if err := db.StartRun(ctx, result.ID, result.Profile, result.Start, result.End); err != nil {
		return err
	}
	return db.FinishRun(ctx, result)
}

// MarkInterrupted fails every run still marked running and returns how
// many rows were touched
func (db *DB) MarkInterrupted(ctx context.Context) (int64, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE backtest_runs
		SET status = $1, error_message = $2, finished_at = $3
		WHERE status = $4
	`, RunFailed, InterruptedMessage, time.Now().UTC(), RunRunning)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		db.logger.Warn().Int64("runs", n).Msg("Marked interrupted runs as failed")
	}
	return n, nil
}

// ListRuns returns the most recent runs first
func (db *DB) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, profile, start_date, end_date, status, error_message,
			total_return, sharpe, max_drawdown, created_at, finished_at
		FROM backtest_runs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var errMsg sql.NullString
		var totalReturn, sharpe, maxDD sql.NullFloat64
		var finished sql.NullTime
		if err := rows.Scan(
			&r.ID, &r.Profile, &r.Start, &r.End, &r.Status, &errMsg,
			&totalReturn, &sharpe, &maxDD, &r.CreatedAt, &finished,
		); err != nil {
			return nil, err
		}
		r.Error = errMsg.String
		r.TotalReturn = totalReturn.Float64
		r.Sharpe = sharpe.Float64
		r.MaxDrawdown = maxDD.Float64
		if finished.Valid {
			r.FinishedAt = finished.Time
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
