// Package backtest implements the execution simulator at the heart of
// tradebench: it replays strategy signals against a historical price series,
// tracks capital and at-most-one open position with commission and slippage
// applied, and summarizes the outcome as performance metrics.
package backtest

import (
	"errors"
	"log/slog"
	"time"

	"tradebench/internal/domain"
	"tradebench/internal/strategy"
)

// ErrNoData reports an empty price series, possibly after date filtering.
var ErrNoData = errors.New("no data available for backtest period")

// Result is the complete output of one run. StartDate and EndDate are the
// actual first and last bar dates of the filtered series, not the requested
// bounds.
type Result struct {
	Ticker         string                    `json:"ticker"`
	StrategyType   string                    `json:"strategy_type"`
	StrategyParams map[string]any            `json:"strategy_params"`
	StartDate      time.Time                 `json:"start_date"`
	EndDate        time.Time                 `json:"end_date"`
	InitialCapital float64                   `json:"initial_capital"`
	FinalCapital   float64                   `json:"final_capital"`
	Metrics        domain.PerformanceMetrics `json:"metrics"`
	Positions      []domain.Position         `json:"positions"`
	Signals        []domain.Signal           `json:"signals"`
	EquityCurve    []domain.EquityPoint      `json:"equity_curve"`
}

// Engine runs backtests with a fixed Config. It carries no per-run state, so
// one Engine may be shared across sequential and concurrent runs alike.
type Engine struct {
	cfg Config
	log *slog.Logger
}

// New validates cfg and returns an Engine. A nil logger falls back to
// slog.Default.
func New(cfg Config, log *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{cfg: cfg, log: log}, nil
}

// Run filters bars to [start, end] inclusive (nil bounds are open), generates
// signals, replays them through a fresh simulator, and assembles the result.
// It returns ErrNoData when the filtered series is empty.
func (e *Engine) Run(strat strategy.Strategy, bars []domain.Bar, ticker string, start, end *time.Time) (*Result, error) {
	bars = filterByDate(bars, start, end)
	if len(bars) == 0 {
		return nil, ErrNoData
	}

	signals := strat.GenerateSignals(bars)
	e.log.Info("generated signals",
		"strategy", strat.Name(), "ticker", ticker, "count", len(signals))

	sim := newSimulator(e.cfg, e.log)
	for _, sig := range signals {
		sim.apply(sig)
	}

	first := bars[0].Timestamp
	last := bars[len(bars)-1].Timestamp
	positions := sim.positions()

	return &Result{
		Ticker:         ticker,
		StrategyType:   strat.Name(),
		StrategyParams: strat.Params(),
		StartDate:      first,
		EndDate:        last,
		InitialCapital: e.cfg.InitialCapital,
		FinalCapital:   sim.cash,
		Metrics:        computeMetrics(e.cfg, sim.cash, positions, sim.equity, first, last),
		Positions:      positions,
		Signals:        signals,
		EquityCurve:    sim.equity,
	}, nil
}

func filterByDate(bars []domain.Bar, start, end *time.Time) []domain.Bar {
	lo, hi := 0, len(bars)
	if start != nil {
		for lo < hi && bars[lo].Timestamp.Before(*start) {
			lo++
		}
	}
	if end != nil {
		for hi > lo && bars[hi-1].Timestamp.After(*end) {
			hi--
		}
	}
	return bars[lo:hi]
}
