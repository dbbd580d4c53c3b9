package backtest

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig wraps all Config validation failures.
var ErrInvalidConfig = errors.New("invalid backtest config")

// Config holds the immutable parameters of a single backtest run.
// Commission and Slippage are flat per-trade amounts; CommissionPct and
// SlippagePct are proportional to trade value. PositionSizePct is the
// fraction of current capital deployed per entry.
type Config struct {
	InitialCapital  float64 `json:"initial_capital" yaml:"initial_capital"`
	Commission      float64 `json:"commission" yaml:"commission"`
	CommissionPct   float64 `json:"commission_pct" yaml:"commission_pct"`
	Slippage        float64 `json:"slippage" yaml:"slippage"`
	SlippagePct     float64 `json:"slippage_pct" yaml:"slippage_pct"`
	PositionSizePct float64 `json:"position_size_pct" yaml:"position_size_pct"`
}

// DefaultConfig returns the standard run parameters: 10k starting capital,
// 10 bps proportional commission, no slippage, fully invested entries.
func DefaultConfig() Config {
	return Config{
		InitialCapital:  10000,
		Commission:      0,
		CommissionPct:   0.001,
		Slippage:        0,
		SlippagePct:     0,
		PositionSizePct: 1.0,
	}
}

// Validate reports the first out-of-range field, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	switch {
	case c.InitialCapital <= 0:
		return fmt.Errorf("%w: initial_capital must be > 0, got %v", ErrInvalidConfig, c.InitialCapital)
	case c.Commission < 0:
		return fmt.Errorf("%w: commission must be >= 0, got %v", ErrInvalidConfig, c.Commission)
	case c.CommissionPct < 0 || c.CommissionPct > 1:
		return fmt.Errorf("%w: commission_pct must be in [0, 1], got %v", ErrInvalidConfig, c.CommissionPct)
	case c.Slippage < 0:
		return fmt.Errorf("%w: slippage must be >= 0, got %v", ErrInvalidConfig, c.Slippage)
	case c.SlippagePct < 0 || c.SlippagePct > 1:
		return fmt.Errorf("%w: slippage_pct must be in [0, 1], got %v", ErrInvalidConfig, c.SlippagePct)
	case c.PositionSizePct <= 0 || c.PositionSizePct > 1:
		return fmt.Errorf("%w: position_size_pct must be in (0, 1], got %v", ErrInvalidConfig, c.PositionSizePct)
	}
	return nil
}
