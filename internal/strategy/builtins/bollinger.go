package builtins

import (
	"fmt"
	"math"

	"tradebench/internal/domain"
	"tradebench/internal/indicator"
	"tradebench/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*BollingerBounce)(nil)

// BollingerBounce buys when the close crosses below the lower Bollinger band
// and sells when it crosses back above the upper band.
type BollingerBounce struct {
	period int
	numStd float64
}

// NewBollingerBounce creates a Bollinger band bounce strategy. period must
// be greater than one and numStd positive.
func NewBollingerBounce(period int, numStd float64) (*BollingerBounce, error) {
	if period <= 1 {
		return nil, fmt.Errorf("period must be > 1, got %d", period)
	}
	if numStd <= 0 {
		return nil, fmt.Errorf("num_std must be > 0, got %v", numStd)
	}
	return &BollingerBounce{period: period, numStd: numStd}, nil
}

// Name returns "bollinger".
func (s *BollingerBounce) Name() string { return "bollinger" }

// Params returns the configured period and band width.
func (s *BollingerBounce) Params() map[string]any {
	return map[string]any{"period": s.period, "num_std": s.numStd}
}

// GenerateSignals scans for band crossings. Bands need period bars before
// their first value, so shorter series produce no signals.
func (s *BollingerBounce) GenerateSignals(bars []domain.Bar) []domain.Signal {
	if len(bars) < s.period+1 {
		return nil
	}

	closes := indicator.Closes(bars)
	mid := indicator.SMA(closes, s.period)
	sd := indicator.StdDev(closes, s.period)

	var signals []domain.Signal
	inPosition := false

	for i := s.period; i < len(bars); i++ {
		if math.IsNaN(sd[i-1]) || math.IsNaN(sd[i]) {
			continue
		}
		prevLower := mid[i-1] - s.numStd*sd[i-1]
		currLower := mid[i] - s.numStd*sd[i]
		prevUpper := mid[i-1] + s.numStd*sd[i-1]
		currUpper := mid[i] + s.numStd*sd[i]

		switch {
		case !inPosition && closes[i-1] >= prevLower && closes[i] < currLower:
			signals = append(signals, domain.Signal{
				Date:  bars[i].Timestamp,
				Type:  domain.SignalBuy,
				Price: bars[i].Close,
				Reason: fmt.Sprintf("Close %.2f dropped below lower band %.2f",
					closes[i], currLower),
			})
			inPosition = true

		case inPosition && closes[i-1] <= prevUpper && closes[i] > currUpper:
			signals = append(signals, domain.Signal{
				Date:  bars[i].Timestamp,
				Type:  domain.SignalSell,
				Price: bars[i].Close,
				Reason: fmt.Sprintf("Close %.2f rose above upper band %.2f",
					closes[i], currUpper),
			})
			inPosition = false
		}
	}

	if inPosition {
		signals = append(signals, closingSell(bars[len(bars)-1]))
	}
	return signals
}
