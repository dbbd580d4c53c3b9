// Package domain defines the core value types shared across the tradebench
// platform: OHLCV bars, trading signals, simulated positions, equity curve
// points, and performance metrics.
package domain

import "time"

// SignalType identifies the kind of instruction a strategy emits.
type SignalType string

// Signal types.
const (
	SignalBuy  SignalType = "buy"
	SignalSell SignalType = "sell"
	SignalHold SignalType = "hold"
)

// PositionSide identifies the direction of a position. Only long positions
// are produced by the built-in strategies; short is modeled for completeness.
type PositionSide string

// Position sides.
const (
	PositionSideLong  PositionSide = "long"
	PositionSideShort PositionSide = "short"
)

// PositionStatus identifies the lifecycle state of a position.
type PositionStatus string

// Position statuses.
const (
	PositionOpen   PositionStatus = "open"
	PositionClosed PositionStatus = "closed"
)

// Bar is a single OHLCV observation for one trading day. A price series is
// an ascending sequence of bars with unique timestamps.
type Bar struct {
	Symbol     string    `json:"symbol"`
	Timestamp  time.Time `json:"timestamp"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	Volume     int64     `json:"volume"`
	TradeCount int64     `json:"trade_count,omitempty"`
	VWAP       float64   `json:"vwap,omitempty"`
}

// Signal is a strategy's instruction to buy, sell, or hold at a given bar.
// Reason is free text describing the trigger; it is never used by logic.
type Signal struct {
	Date   time.Time  `json:"date"`
	Type   SignalType `json:"signal"`
	Price  float64    `json:"price"`
	Reason string     `json:"reason,omitempty"`
}

// Position is one simulated trade from entry to (optional) exit. Exit fields
// and P&L are nil until the position is closed. EntryPrice and ExitPrice are
// post-slippage fill prices. CommissionPaid accumulates entry plus exit
// commission.
type Position struct {
	EntryDate      time.Time      `json:"entry_date"`
	EntryPrice     float64        `json:"entry_price"`
	ExitDate       *time.Time     `json:"exit_date"`
	ExitPrice      *float64       `json:"exit_price"`
	Quantity       int64          `json:"quantity"`
	Side           PositionSide   `json:"side"`
	Status         PositionStatus `json:"status"`
	EntryValue     float64        `json:"entry_value"`
	ExitValue      *float64       `json:"exit_value"`
	PnL            *float64       `json:"pnl"`
	PnLPct         *float64       `json:"pnl_pct"`
	CommissionPaid float64        `json:"commission_paid"`
}

// EquityPoint is a snapshot of total portfolio value taken after each
// processed signal. Equity is cash plus the mark-to-market value of any open
// position at the signal's price.
type EquityPoint struct {
	Date      time.Time `json:"date"`
	Equity    float64   `json:"equity"`
	Cash      float64   `json:"cash"`
	Return    float64   `json:"return"`
	ReturnPct float64   `json:"return_pct"`
}

// PerformanceMetrics summarizes a completed backtest. SharpeRatio is nil
// when there are fewer than two equity points or the return series has zero
// variance; ProfitFactor is nil when there are no losing trades.
type PerformanceMetrics struct {
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
