// Package store defines storage interfaces for persisting and retrieving
// bars, saved strategy configurations, and backtest results.
package store

import (
	"context"
	"errors"
	"time"

	"tradebench/internal/backtest"
	"tradebench/internal/domain"
)

// Store errors.
var (
	ErrNotFound = errors.New("store: not found")
	ErrExists   = errors.New("store: already exists")
	ErrConflict = errors.New("store: conflict")
)

// StrategyRecord is a saved strategy configuration. Config carries the
// strategy type and its parameter map, stored as JSON.
type StrategyRecord struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Config      map[string]any `json:"config"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// BacktestRecord is one persisted backtest run. Headline metrics are stored
// in their own columns so runs can be listed without decoding the full
// result; Result holds the complete run output and is populated only by
// GetBacktest.
type BacktestRecord struct {
	ID             string                    `json:"id"`
	StrategyID     string                    `json:"strategy_id,omitempty"`
	StrategyType   string                    `json:"strategy_type"`
	Ticker         string                    `json:"ticker"`
	StartDate      time.Time                 `json:"start_date"`
	EndDate        time.Time                 `json:"end_date"`
	InitialCapital float64                   `json:"initial_capital"`
	FinalCapital   float64                   `json:"final_capital"`
	Metrics        domain.PerformanceMetrics `json:"metrics"`
	Result         *backtest.Result          `json:"result,omitempty"`
	CreatedAt      time.Time                 `json:"created_at"`
}

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars to storage.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the given ticker within [start, end].
	ReadBars(ctx context.Context, ticker string, start, end time.Time) ([]domain.Bar, error)

	// ListTickers returns all distinct tickers with stored bars.
	ListTickers(ctx context.Context) ([]string, error)
}

// StrategyStore persists saved strategy configurations.
type StrategyStore interface {
	// SaveStrategy inserts a new strategy; ErrExists on a duplicate name.
	SaveStrategy(ctx context.Context, rec *StrategyRecord) error

	// GetStrategy retrieves one strategy by ID; ErrNotFound if absent.
	GetStrategy(ctx context.Context, id string) (*StrategyRecord, error)

	// ListStrategies returns all strategies ordered by name.
	ListStrategies(ctx context.Context) ([]StrategyRecord, error)

	// UpdateStrategy persists changes to an existing strategy.
	UpdateStrategy(ctx context.Context, rec *StrategyRecord) error

	// DeleteStrategy removes a strategy; ErrConflict if backtests refer
	// to it.
	DeleteStrategy(ctx context.Context, id string) error
}

// BacktestStore persists completed backtest runs.
type BacktestStore interface {
	// SaveBacktest inserts a run, assigning an ID if the record has none.
	SaveBacktest(ctx context.Context, rec *BacktestRecord) error

	// GetBacktest retrieves one run, including its full result.
	GetBacktest(ctx context.Context, id string) (*BacktestRecord, error)

	// ListBacktests returns run summaries newest first, filtered to one
	// strategy when strategyID is non-empty.
	ListBacktests(ctx context.Context, strategyID string) ([]BacktestRecord, error)
}
