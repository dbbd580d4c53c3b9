package backtest

import (
	"fmt"
	"math"
	"sort"
	"time"

	"tradebench/internal/domain"
)

// ComparisonEntry pairs one labeled run with the pieces of its result a
// side-by-side view needs.
type ComparisonEntry struct {
	StrategyName string                    `json:"strategy_name"`
	Metrics      domain.PerformanceMetrics `json:"metrics"`
	EquityCurve  []domain.EquityPoint      `json:"equity_curve"`
	Positions    []domain.Position         `json:"trades"`
}

// Comparison ranks several runs over the same series. Rankings maps a metric
// name to strategy labels ordered best to worst; Correlations holds the
// pairwise Pearson correlation of equity curves keyed "a_vs_b", rounded to
// four decimals.
type Comparison struct {
	Results      []ComparisonEntry   `json:"results"`
	Rankings     map[string][]string `json:"rankings"`
	Correlations map[string]float64  `json:"correlations"`
}

// Compare builds rankings and equity-curve correlations for a set of
// completed runs. names supplies a display label per result; a missing or
// empty label falls back to the result's strategy type.
func Compare(results []*Result, names []string) *Comparison {
	labels := make([]string, len(results))
	for i, r := range results {
		if i < len(names) && names[i] != "" {
			labels[i] = names[i]
		} else {
			labels[i] = r.StrategyType
		}
	}

	entries := make([]ComparisonEntry, len(results))
	for i, r := range results {
		entries[i] = ComparisonEntry{
			StrategyName: labels[i],
			Metrics:      r.Metrics,
			EquityCurve:  r.EquityCurve,
			Positions:    r.Positions,
		}
	}

	return &Comparison{
		Results:      entries,
		Rankings:     rankMetrics(results, labels),
		Correlations: equityCorrelations(results, labels),
	}
}

func rankMetrics(results []*Result, labels []string) map[string][]string {
	higherBetter := map[string]func(m domain.PerformanceMetrics) float64{
		"total_return_pct": func(m domain.PerformanceMetrics) float64 { return m.TotalReturnPct },
		"annual_return":    func(m domain.PerformanceMetrics) float64 { return m.AnnualReturnPct },
		"sharpe_ratio":     func(m domain.PerformanceMetrics) float64 { return deref(m.SharpeRatio) },
		"win_rate":         func(m domain.PerformanceMetrics) float64 { return m.WinRate },
		"profit_factor":    func(m domain.PerformanceMetrics) float64 { return deref(m.ProfitFactor) },
	}
	lowerBetter := map[string]func(m domain.PerformanceMetrics) float64{
		"max_drawdown_pct": func(m domain.PerformanceMetrics) float64 { return math.Abs(m.MaxDrawdownPct) },
	}

	rankings := make(map[string][]string, len(higherBetter)+len(lowerBetter))
	for metric, value := range higherBetter {
		rankings[metric] = rankBy(results, labels, value, true)
	}
	for metric, value := range lowerBetter {
		rankings[metric] = rankBy(results, labels, value, false)
	}
	return rankings
}

func rankBy(results []*Result, labels []string, value func(domain.PerformanceMetrics) float64, descending bool) []string {
	idx := make([]int, len(results))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		va, vb := value(results[idx[a]].Metrics), value(results[idx[b]].Metrics)
		if descending {
			return va > vb
		}
		return va < vb
	})

	ranked := make([]string, len(idx))
	for i, j := range idx {
		ranked[i] = labels[j]
	}
	return ranked
}

// equityCorrelations computes pairwise Pearson correlations over equity
// values, aligned by date. Pairs with fewer than two common dates or with a
// constant curve are omitted.
func equityCorrelations(results []*Result, labels []string) map[string]float64 {
	correlations := make(map[string]float64)
	if len(results) < 2 {
		return correlations
	}

	curves := make([]map[time.Time]float64, len(results))
	for i, r := range results {
		curves[i] = make(map[time.Time]float64, len(r.EquityCurve))
		for _, p := range r.EquityCurve {
			curves[i][p.Date] = p.Equity
		}
	}

	for i := 0; i < len(results); i++ {
		for j := i + 1; j < len(results); j++ {
			corr, ok := pearson(curves[i], curves[j])
			if ok {
				key := fmt.Sprintf("%s_vs_%s", labels[i], labels[j])
				correlations[key] = math.Round(corr*10000) / 10000
			}
		}
	}
	return correlations
}

func pearson(a, b map[time.Time]float64) (float64, bool) {
	var xs, ys []float64
	for date, x := range a {
		if y, ok := b[date]; ok {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	if len(xs) < 2 {
		return 0, false
	}

	mx, my := mean(xs), mean(ys)
	var sxy, sxx, syy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0, false
	}
	return sxy / math.Sqrt(sxx*syy), true
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
