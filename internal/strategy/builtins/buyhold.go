// Package builtins provides the built-in strategy implementations that ship
// with the tradebench platform.
package builtins

import (
	"tradebench/internal/domain"
	"tradebench/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*BuyHold)(nil)

// BuyHold buys at the first bar's close and sells at the last bar's close.
type BuyHold struct{}

// NewBuyHold creates a buy-and-hold strategy.
func NewBuyHold() *BuyHold { return &BuyHold{} }

// Name returns "buy_hold".
func (s *BuyHold) Name() string { return "buy_hold" }

// Params returns an empty map; buy-and-hold takes no parameters.
func (s *BuyHold) Params() map[string]any { return map[string]any{} }

// GenerateSignals emits a buy at the first bar and a sell at the last.
func (s *BuyHold) GenerateSignals(bars []domain.Bar) []domain.Signal {
	if len(bars) == 0 {
		return nil
	}

	first, last := bars[0], bars[len(bars)-1]
	return []domain.Signal{
		{
			Date:   first.Timestamp,
			Type:   domain.SignalBuy,
			Price:  first.Close,
			Reason: "Buy and hold - initial purchase",
		},
		{
			Date:   last.Timestamp,
			Type:   domain.SignalSell,
			Price:  last.Close,
			Reason: "Buy and hold - final exit",
		},
	}
}
