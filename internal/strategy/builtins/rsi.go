package builtins

import (
	"fmt"
	"math"

	"tradebench/internal/domain"
	"tradebench/internal/indicator"
	"tradebench/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*RSIThreshold)(nil)

// RSIThreshold buys when the RSI crosses down through the oversold bound and
// sells when it crosses up through the overbought bound.
type RSIThreshold struct {
	period     int
	oversold   float64
	overbought float64
}

// NewRSIThreshold creates an RSI threshold strategy. period must be
// positive and the bounds must satisfy 0 < oversold < overbought < 100.
func NewRSIThreshold(period int, oversold, overbought float64) (*RSIThreshold, error) {
	if period <= 0 {
		return nil, fmt.Errorf("period must be > 0, got %d", period)
	}
	if oversold <= 0 || overbought >= 100 || oversold >= overbought {
		return nil, fmt.Errorf("thresholds must satisfy 0 < oversold < overbought < 100, got %v/%v",
			oversold, overbought)
	}
	return &RSIThreshold{period: period, oversold: oversold, overbought: overbought}, nil
}

// Name returns "rsi".
func (s *RSIThreshold) Name() string { return "rsi" }

// Params returns the configured period and thresholds.
func (s *RSIThreshold) Params() map[string]any {
	return map[string]any{
		"period":     s.period,
		"oversold":   s.oversold,
		"overbought": s.overbought,
	}
}

// GenerateSignals scans for RSI threshold crossings. The RSI needs period+1
// bars before its first value, so shorter series produce no signals.
func (s *RSIThreshold) GenerateSignals(bars []domain.Bar) []domain.Signal {
	if len(bars) <= s.period+1 {
		return nil
	}

	rsi := indicator.RSI(indicator.Closes(bars), s.period)

	var signals []domain.Signal
	inPosition := false

	// rsi is defined from index period on; compare consecutive values.
	for i := s.period + 1; i < len(bars); i++ {
		prev, curr := rsi[i-1], rsi[i]
		if math.IsNaN(prev) || math.IsNaN(curr) {
			continue
		}

		switch {
		case !inPosition && prev >= s.oversold && curr < s.oversold:
			signals = append(signals, domain.Signal{
				Date:  bars[i].Timestamp,
				Type:  domain.SignalBuy,
				Price: bars[i].Close,
				Reason: fmt.Sprintf("RSI %.2f crossed below oversold bound %.0f",
					curr, s.oversold),
			})
			inPosition = true

		case inPosition && prev <= s.overbought && curr > s.overbought:
			signals = append(signals, domain.Signal{
				Date:  bars[i].Timestamp,
				Type:  domain.SignalSell,
				Price: bars[i].Close,
				Reason: fmt.Sprintf("RSI %.2f crossed above overbought bound %.0f",
					curr, s.overbought),
			})
			inPosition = false
		}
	}

	if inPosition {
		signals = append(signals, closingSell(bars[len(bars)-1]))
	}
	return signals
}
