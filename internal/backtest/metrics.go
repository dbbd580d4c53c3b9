package backtest

import (
	"math"
	"time"

	"tradebench/internal/domain"
)

// tradingDaysPerYear is the annualization factor applied to the Sharpe
// ratio. The equity curve is sampled once per signal, not once per bar, so
// treating its cadence as daily is a known approximation kept for
// compatibility with existing result records.
const tradingDaysPerYear = 252

// computeMetrics derives the performance summary for one completed run.
// first and last are the actual bar dates of the filtered series, so the
// annualized return reflects calendar span rather than trade count.
func computeMetrics(cfg Config, finalCapital float64, positions []domain.Position,
	equity []domain.EquityPoint, first, last time.Time) domain.PerformanceMetrics {

	totalReturn := finalCapital - cfg.InitialCapital
	totalReturnPct := totalReturn / cfg.InitialCapital * 100

	years := last.Sub(first).Hours() / 24 / 365.25
	var annualReturnPct float64
	if years > 0 {
		annualReturnPct = (math.Pow(finalCapital/cfg.InitialCapital, 1/years) - 1) * 100
	}

	var (
		wins, losses    []float64
		winning, losing int
		closed          int
		totalCommission float64
	)
	for _, p := range positions {
		totalCommission += p.CommissionPaid
		if p.Status != domain.PositionClosed || p.PnL == nil {
			continue
		}
		closed++
		switch {
		case *p.PnL > 0:
			winning++
			wins = append(wins, *p.PnL)
		case *p.PnL < 0:
			losing++
			losses = append(losses, *p.PnL)
		}
	}

	var winRate float64
	if closed > 0 {
		winRate = float64(winning) / float64(closed)
	}

	var profitFactor *float64
	if grossLoss := math.Abs(sum(losses)); grossLoss > 0 {
		pf := sum(wins) / grossLoss
		profitFactor = &pf
	}

	maxDD, maxDDPct := maxDrawdown(equity)

	return domain.PerformanceMetrics{
		TotalReturn:     totalReturn,
		TotalReturnPct:  totalReturnPct,
		AnnualReturnPct: annualReturnPct,
		SharpeRatio:     sharpeRatio(equity, 0),
		MaxDrawdown:     maxDD,
		MaxDrawdownPct:  maxDDPct,
		WinRate:         winRate,
		TotalTrades:     closed,
		WinningTrades:   winning,
		LosingTrades:    losing,
		AvgWin:          mean(wins),
		AvgLoss:         mean(losses),
		ProfitFactor:    profitFactor,
		TotalCommission: totalCommission,
	}
}

// maxDrawdown runs a single forward pass over the equity curve tracking the
// running peak. It reports the largest absolute dollar decline and the
// percentage decline recorded at that same point; when a curve has a larger
// percentage drawdown at a smaller dollar loss, the dollar figure wins.
func maxDrawdown(equity []domain.EquityPoint) (dd, ddPct float64) {
	if len(equity) == 0 {
		return 0, 0
	}

	peak := equity[0].Equity
	for _, e := range equity {
		if e.Equity > peak {
			peak = e.Equity
		}

		d := peak - e.Equity
		var dPct float64
		if peak > 0 {
			dPct = d / peak * 100
		}

		if d > dd {
			dd = d
			ddPct = dPct
		}
	}
	return dd, ddPct
}

// sharpeRatio annualizes mean excess return over its volatility. The return
// series is the cumulative return_pct recorded per equity point. Returns nil
// for fewer than two points or a zero-variance series.
func sharpeRatio(equity []domain.EquityPoint, riskFreeRate float64) *float64 {
	if len(equity) < 2 {
		return nil
	}

	excess := make([]float64, len(equity))
	for i, e := range equity {
		excess[i] = e.ReturnPct - riskFreeRate
	}

	sd := stddev(excess)
	if sd == 0 {
		return nil
	}

	sharpe := mean(excess) / sd * math.Sqrt(tradingDaysPerYear)
	return &sharpe
}

func sum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return sum(xs) / float64(len(xs))
}

// stddev is the population standard deviation.
func stddev(xs []float64) float64 {
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}
