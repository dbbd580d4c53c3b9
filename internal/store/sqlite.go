package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ StrategyStore = (*SQLiteStore)(nil)
var _ BacktestStore = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS strategies (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	config      TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS backtests (
	id               TEXT PRIMARY KEY,
	strategy_id      TEXT NOT NULL DEFAULT '',
	strategy_type    TEXT NOT NULL,
	ticker           TEXT NOT NULL,
	start_date       TEXT NOT NULL,
	end_date         TEXT NOT NULL,
	initial_capital  REAL NOT NULL,
	final_capital    REAL NOT NULL,
	total_return_pct REAL NOT NULL,
	sharpe_ratio     REAL,
	max_drawdown_pct REAL NOT NULL,
	win_rate         REAL NOT NULL,
	total_trades     INTEGER NOT NULL,
	result           TEXT NOT NULL,
	created_at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_backtests_strategy ON backtests(strategy_id);
`

// SQLiteStore implements StrategyStore and BacktestStore backed by a SQLite
// database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// StrategyStore implementation
// ---------------------------------------------------------------------------

// SaveStrategy inserts a new strategy. A missing ID is assigned; a duplicate
// name reports ErrExists.
func (s *SQLiteStore) SaveStrategy(ctx context.Context, rec *StrategyRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM strategies WHERE name = ?`, rec.Name).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		return fmt.Errorf("%w: strategy name %q", ErrExists, rec.Name)
	}

	config, err := json.Marshal(rec.Config)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO strategies (id, name, description, config, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Description, string(config),
		rec.CreatedAt.Format(time.RFC3339Nano), rec.UpdatedAt.Format(time.RFC3339Nano))
	return err
}

// GetStrategy retrieves one strategy by ID.
func (s *SQLiteStore) GetStrategy(ctx context.Context, id string) (*StrategyRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, config, created_at, updated_at
		 FROM strategies WHERE id = ?`, id)

	rec, err := scanStrategy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: strategy %s", ErrNotFound, id)
	}
	return rec, err
}

// ListStrategies returns all saved strategies ordered by name.
func (s *SQLiteStore) ListStrategies(ctx context.Context) ([]StrategyRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, config, created_at, updated_at
		 FROM strategies ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []StrategyRecord
	for rows.Next() {
		rec, err := scanStrategy(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

// UpdateStrategy persists changes to an existing strategy.
func (s *SQLiteStore) UpdateStrategy(ctx context.Context, rec *StrategyRecord) error {
	rec.UpdatedAt = time.Now().UTC()

	config, err := json.Marshal(rec.Config)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE strategies SET name = ?, description = ?, config = ?, updated_at = ?
		 WHERE id = ?`,
		rec.Name, rec.Description, string(config),
		rec.UpdatedAt.Format(time.RFC3339Nano), rec.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: strategy %s", ErrNotFound, rec.ID)
	}
	return nil
}

// DeleteStrategy removes a strategy. Strategies with persisted backtests
// report ErrConflict.
func (s *SQLiteStore) DeleteStrategy(ctx context.Context, id string) error {
	var attached int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM backtests WHERE strategy_id = ?`, id).Scan(&attached)
	if err != nil {
		return err
	}
	if attached > 0 {
		return fmt.Errorf("%w: strategy %s has %d backtests", ErrConflict, id, attached)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM strategies WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: strategy %s", ErrNotFound, id)
	}
	return nil
}

// ---------------------------------------------------------------------------
// BacktestStore implementation
// ---------------------------------------------------------------------------

// SaveBacktest inserts a completed run. A missing ID is assigned.
func (s *SQLiteStore) SaveBacktest(ctx context.Context, rec *BacktestRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	result, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO backtests (id, strategy_id, strategy_type, ticker,
			start_date, end_date, initial_capital, final_capital,
			total_return_pct, sharpe_ratio, max_drawdown_pct, win_rate,
			total_trades, result, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.StrategyID, rec.StrategyType, rec.Ticker,
		rec.StartDate.Format(time.RFC3339Nano), rec.EndDate.Format(time.RFC3339Nano),
		rec.InitialCapital, rec.FinalCapital,
		rec.Metrics.TotalReturnPct, rec.Metrics.SharpeRatio,
		rec.Metrics.MaxDrawdownPct, rec.Metrics.WinRate,
		rec.Metrics.TotalTrades, string(result),
		rec.CreatedAt.Format(time.RFC3339Nano))
	return err
}

// GetBacktest retrieves one run with its full result decoded.
func (s *SQLiteStore) GetBacktest(ctx context.Context, id string) (*BacktestRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, strategy_id, strategy_type, ticker, start_date, end_date,
			initial_capital, final_capital, result, created_at
		 FROM backtests WHERE id = ?`, id)

	var rec BacktestRecord
	var start, end, created, result string
	err := row.Scan(&rec.ID, &rec.StrategyID, &rec.StrategyType, &rec.Ticker,
		&start, &end, &rec.InitialCapital, &rec.FinalCapital, &result, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: backtest %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(result), &rec.Result); err != nil {
		return nil, fmt.Errorf("decoding result: %w", err)
	}
	if rec.Result != nil {
		rec.Metrics = rec.Result.Metrics
	}
	if rec.StartDate, err = time.Parse(time.RFC3339Nano, start); err != nil {
		return nil, err
	}
	if rec.EndDate, err = time.Parse(time.RFC3339Nano, end); err != nil {
		return nil, err
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListBacktests returns run summaries newest first. The full result is not
// decoded; only the headline metric columns are populated.
func (s *SQLiteStore) ListBacktests(ctx context.Context, strategyID string) ([]BacktestRecord, error) {
	query := `SELECT id, strategy_id, strategy_type, ticker, start_date, end_date,
			initial_capital, final_capital, total_return_pct, sharpe_ratio,
			max_drawdown_pct, win_rate, total_trades, created_at
		 FROM backtests`
	args := []any{}
	if strategyID != "" {
		query += ` WHERE strategy_id = ?`
		args = append(args, strategyID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []BacktestRecord
	for rows.Next() {
		var rec BacktestRecord
		var start, end, created string
		err := rows.Scan(&rec.ID, &rec.StrategyID, &rec.StrategyType, &rec.Ticker,
			&start, &end, &rec.InitialCapital, &rec.FinalCapital,
			&rec.Metrics.TotalReturnPct, &rec.Metrics.SharpeRatio,
			&rec.Metrics.MaxDrawdownPct, &rec.Metrics.WinRate,
			&rec.Metrics.TotalTrades, &created)
		if err != nil {
			return nil, err
		}
		if rec.StartDate, err = time.Parse(time.RFC3339Nano, start); err != nil {
			return nil, err
		}
		if rec.EndDate, err = time.Parse(time.RFC3339Nano, end); err != nil {
			return nil, err
		}
		if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// ---------------------------------------------------------------------------

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStrategy(row rowScanner) (*StrategyRecord, error) {
	var rec StrategyRecord
	var config, created, updated string
	err := row.Scan(&rec.ID, &rec.Name, &rec.Description, &config, &created, &updated)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(config), &rec.Config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, err
	}
	return &rec, nil
}
