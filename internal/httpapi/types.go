package httpapi

import (
	"time"

	"tradebench/internal/backtest"
	"tradebench/internal/store"
	"tradebench/internal/strategy"
)

// BacktestRequest is the body of POST /api/v1/backtesting/run.
type BacktestRequest struct {
	Ticker         string           `json:"ticker"`
	StrategyType   string           `json:"strategy_type"`
	StrategyParams map[string]any   `json:"strategy_params"`
	StartDate      *time.Time       `json:"start_date"`
	EndDate        *time.Time       `json:"end_date"`
	Config         *backtest.Config `json:"config"`
}

// BacktestResponse wraps a completed run. ID identifies the persisted record
// when a backtest store is configured.
type BacktestResponse struct {
	Status string           `json:"status"`
	ID     string           `json:"id,omitempty"`
	Result *backtest.Result `json:"result"`
}

// CompareStrategy is one entrant in a comparison request.
type CompareStrategy struct {
	Name   string         `json:"name"`
	Type   string         `json:"type"`
	Params map[string]any `json:"params"`
}

// CompareRequest is the body of POST /api/v1/backtesting/compare.
type CompareRequest struct {
	Strategies []CompareStrategy `json:"strategies"`
	Ticker     string            `json:"ticker"`
	StartDate  *time.Time        `json:"start_date"`
	EndDate    *time.Time        `json:"end_date"`
	Config     *backtest.Config  `json:"config"`
}

// CompareResponse wraps a multi-strategy comparison.
type CompareResponse struct {
	Status     string               `json:"status"`
	Ticker     string               `json:"ticker"`
	Comparison *backtest.Comparison `json:"comparison"`
}

// StrategyListResponse is the body of GET /api/v1/backtesting/strategies.
type StrategyListResponse struct {
	Status     string            `json:"status"`
	Strategies []strategy.Schema `json:"strategies"`
	Count      int               `json:"count"`
}

// SavedStrategyRequest creates or updates a saved strategy configuration.
// Pointer fields distinguish "absent" from "set to zero" on PATCH.
type SavedStrategyRequest struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Config      *map[string]any `json:"config"`
}

// StrategiesResponse lists saved strategies.
type StrategiesResponse struct {
	Strategies []store.StrategyRecord `json:"strategies"`
	Count      int                    `json:"count"`
}

// BacktestsResponse lists persisted backtest runs.
type BacktestsResponse struct {
	Backtests []store.BacktestRecord `json:"backtests"`
	Count     int                    `json:"count"`
}

// IndicatorComputeRequest is the body of POST /api/v1/indicators/compute.
type IndicatorComputeRequest struct {
	Ticker    string         `json:"ticker"`
	Indicator string         `json:"indicator"`
	Params    map[string]any `json:"params"`
	StartDate *time.Time     `json:"start_date"`
	EndDate   *time.Time     `json:"end_date"`
}

// IndicatorComputeResponse carries one computed indicator. Series values are
// nullable so warm-up gaps survive JSON encoding.
type IndicatorComputeResponse struct {
	Ticker    string                `json:"ticker"`
	Indicator string                `json:"indicator"`
	Params    map[string]any        `json:"params"`
	Dates     []time.Time           `json:"dates"`
	Series    map[string][]*float64 `json:"series"`
}

// RefreshRequest is the body of POST /api/v1/data/refresh.
type RefreshRequest struct {
	Ticker string `json:"ticker"`
}

// RefreshResponse reports the outcome of a forced data refresh.
type RefreshResponse struct {
	Status      string    `json:"status"`
	Ticker      string    `json:"ticker"`
	Bars        int       `json:"bars"`
	RefreshedAt time.Time `json:"refreshed_at"`
}
