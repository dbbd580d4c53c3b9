package tradebench

import "time"

// StrategySchema describes one runnable strategy type and its parameters.
type StrategySchema struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Aliases     []string      `json:"aliases,omitempty"`
	Params      []ParamSchema `json:"params"`
}

// ParamSchema describes one strategy parameter.
type ParamSchema struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Default any    `json:"default"`
}

// RunRequest asks the server to run a single backtest.
type RunRequest struct {
	Ticker         string         `json:"ticker,omitempty"`
	StrategyType   string         `json:"strategy_type"`
	StrategyParams map[string]any `json:"strategy_params,omitempty"`
	StartDate      *time.Time     `json:"start_date,omitempty"`
	EndDate        *time.Time     `json:"end_date,omitempty"`
	Config         *RunConfig     `json:"config,omitempty"`
}

// RunConfig overrides the server's execution defaults for one run.
type RunConfig struct {
	InitialCapital  float64 `json:"initial_capital"`
	Commission      float64 `json:"commission"`
	CommissionPct   float64 `json:"commission_pct"`
	Slippage        float64 `json:"slippage"`
	SlippagePct     float64 `json:"slippage_pct"`
	PositionSizePct float64 `json:"position_size_pct"`
}

// CompareRequest asks the server to run several strategies over one series.
type CompareRequest struct {
	Strategies []CompareStrategy `json:"strategies"`
	Ticker     string            `json:"ticker,omitempty"`
	StartDate  *time.Time        `json:"start_date,omitempty"`
	EndDate    *time.Time        `json:"end_date,omitempty"`
	Config     *RunConfig        `json:"config,omitempty"`
}

// CompareStrategy is one entrant in a comparison.
type CompareStrategy struct {
	Name   string         `json:"name,omitempty"`
	Type   string         `json:"type"`
	Params map[string]any `json:"params,omitempty"`
}

// Result is a completed backtest.
type Result struct {
	Ticker         string         `json:"ticker"`
	StrategyType   string         `json:"strategy_type"`
	StrategyParams map[string]any `json:"strategy_params"`
	StartDate      time.Time      `json:"start_date"`
	EndDate        time.Time      `json:"end_date"`
	InitialCapital float64        `json:"initial_capital"`
	FinalCapital   float64        `json:"final_capital"`
	Metrics        Metrics        `json:"metrics"`
	Positions      []Position     `json:"positions"`
	Signals        []Signal       `json:"signals"`
	EquityCurve    []EquityPoint  `json:"equity_curve"`
}

// Metrics summarizes backtest performance. SharpeRatio and ProfitFactor are
// nil when undefined.
type Metrics struct {
	TotalReturn     float64  `json:"total_return"`
	TotalReturnPct  float64  `json:"total_return_pct"`
	AnnualReturnPct float64  `json:"annual_return_pct"`
	SharpeRatio     *float64 `json:"sharpe_ratio"`
	MaxDrawdown     float64  `json:"max_drawdown"`
	MaxDrawdownPct  float64  `json:"max_drawdown_pct"`
	WinRate         float64  `json:"win_rate"`
	TotalTrades     int      `json:"total_trades"`
	WinningTrades   int      `json:"winning_trades"`
	LosingTrades    int      `json:"losing_trades"`
	AvgWin          float64  `json:"avg_win"`
	AvgLoss         float64  `json:"avg_loss"`
	ProfitFactor    *float64 `json:"profit_factor"`
	TotalCommission float64  `json:"total_commission"`
}

// Position is one simulated trade. Exit fields are nil while the position is
// still open.
type Position struct {
	EntryDate      time.Time  `json:"entry_date"`
	EntryPrice     float64    `json:"entry_price"`
	ExitDate       *time.Time `json:"exit_date"`
	ExitPrice      *float64   `json:"exit_price"`
	Quantity       int64      `json:"quantity"`
	Side           string     `json:"side"`
	Status         string     `json:"status"`
	EntryValue     float64    `json:"entry_value"`
	ExitValue      *float64   `json:"exit_value"`
	PnL            *float64   `json:"pnl"`
	PnLPct         *float64   `json:"pnl_pct"`
	CommissionPaid float64    `json:"commission_paid"`
}

// Signal is one strategy instruction.
type Signal struct {
	Date   time.Time `json:"date"`
	Type   string    `json:"signal"`
	Price  float64   `json:"price"`
	Reason string    `json:"reason,omitempty"`
}

// EquityPoint is one snapshot of portfolio value.
type EquityPoint struct {
	Date      time.Time `json:"date"`
	Equity    float64   `json:"equity"`
	Cash      float64   `json:"cash"`
	Return    float64   `json:"return"`
	ReturnPct float64   `json:"return_pct"`
}

// Comparison relates several backtests over the same series.
type Comparison struct {
	Results      []ComparisonEntry   `json:"results"`
	Rankings     map[string][]string `json:"rankings"`
	Correlations map[string]float64  `json:"correlations"`
}

// ComparisonEntry is one strategy's contribution to a comparison.
type ComparisonEntry struct {
	StrategyName string        `json:"strategy_name"`
	Metrics      Metrics       `json:"metrics"`
	EquityCurve  []EquityPoint `json:"equity_curve"`
	Trades       []Position    `json:"trades"`
}

// DataSummary reports bar coverage for one ticker.
type DataSummary struct {
	Ticker           string    `json:"ticker"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	TotalRecords     int       `json:"total_records"`
	MissingDates     int       `json:"missing_dates"`
	DataQualityScore float64   `json:"data_quality_score"`
}
