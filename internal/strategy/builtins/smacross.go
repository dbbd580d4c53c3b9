package builtins

import (
	"fmt"

	"tradebench/internal/domain"
	"tradebench/internal/indicator"
	"tradebench/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*SMACross)(nil)

// SMACross generates a buy when the fast SMA crosses above the slow SMA
// (golden cross) and a sell when it crosses back below (death cross).
type SMACross struct {
	fastPeriod int
	slowPeriod int
}

// NewSMACross creates an SMA crossover strategy with the given fast and slow
// periods, both of which must be positive.
func NewSMACross(fast, slow int) (*SMACross, error) {
	if fast <= 0 || slow <= 0 {
		return nil, fmt.Errorf("periods must be > 0, got fast=%d slow=%d", fast, slow)
	}
	if fast >= slow {
		return nil, fmt.Errorf("fast period %d must be below slow period %d", fast, slow)
	}
	return &SMACross{fastPeriod: fast, slowPeriod: slow}, nil
}

// Name returns "sma_cross".
func (s *SMACross) Name() string { return "sma_cross" }

// Params returns the configured periods.
func (s *SMACross) Params() map[string]any {
	return map[string]any{"fast_period": s.fastPeriod, "slow_period": s.slowPeriod}
}

// GenerateSignals scans for fast/slow SMA crossings. Series shorter than the
// slow period produce no signals. A position still open at the last bar is
// closed with an end-of-backtest sell.
func (s *SMACross) GenerateSignals(bars []domain.Bar) []domain.Signal {
	if len(bars) < s.slowPeriod {
		return nil
	}

	closes := indicator.Closes(bars)
	fast := indicator.SMA(closes, s.fastPeriod)
	slow := indicator.SMA(closes, s.slowPeriod)

	var signals []domain.Signal
	inPosition := false

	// Both SMAs are defined from slowPeriod-1 on, so the first comparable
	// pair of bars starts at slowPeriod.
	for i := s.slowPeriod; i < len(bars); i++ {
		prevFast, prevSlow := fast[i-1], slow[i-1]
		currFast, currSlow := fast[i], slow[i]

		switch {
		case !inPosition && prevFast <= prevSlow && currFast > currSlow:
			signals = append(signals, domain.Signal{
				Date:  bars[i].Timestamp,
				Type:  domain.SignalBuy,
				Price: bars[i].Close,
				Reason: fmt.Sprintf("Golden cross: SMA%d crossed above SMA%d",
					s.fastPeriod, s.slowPeriod),
			})
			inPosition = true

		case inPosition && prevFast >= prevSlow && currFast < currSlow:
			signals = append(signals, domain.Signal{
				Date:  bars[i].Timestamp,
				Type:  domain.SignalSell,
				Price: bars[i].Close,
				Reason: fmt.Sprintf("Death cross: SMA%d crossed below SMA%d",
					s.fastPeriod, s.slowPeriod),
			})
			inPosition = false
		}
	}

	if inPosition {
		signals = append(signals, closingSell(bars[len(bars)-1]))
	}
	return signals
}

// closingSell builds the labeled end-of-backtest close emitted by every
// strategy that is conceptually still long at the final bar.
func closingSell(last domain.Bar) domain.Signal {
	return domain.Signal{
		Date:   last.Timestamp,
		Type:   domain.SignalSell,
		Price:  last.Close,
		Reason: "End of backtest - close position",
	}
}
