package indicator

import (
	"fmt"
	"math"

	"tradebench/internal/domain"
	"tradebench/internal/params"
)

// Momentum indicators.

type rsi struct{ length int }

func (r *rsi) Name() string           { return "rsi" }
func (r *rsi) Params() map[string]any { return map[string]any{"length": r.length} }

func (r *rsi) Compute(bars []domain.Bar) (map[string][]float64, error) {
	return map[string][]float64{
		fmt.Sprintf("RSI_%d", r.length): RSI(Closes(bars), r.length),
	}, nil
}

type macd struct {
	fast, slow, signal int
}

func (m *macd) Name() string { return "macd" }
func (m *macd) Params() map[string]any {
	return map[string]any{"fast": m.fast, "slow": m.slow, "signal": m.signal}
}

func (m *macd) Compute(bars []domain.Bar) (map[string][]float64, error) {
	closes := Closes(bars)
	fastEMA := EMA(closes, m.fast)
	slowEMA := EMA(closes, m.slow)

	line := make([]float64, len(bars))
	for i := range line {
		line[i] = fastEMA[i] - slowEMA[i] // NaN until both EMAs warm up
	}
	signalLine := EMA(line, m.signal)

	hist := make([]float64, len(bars))
	for i := range hist {
		hist[i] = line[i] - signalLine[i]
	}

	suffix := fmt.Sprintf("%d_%d_%d", m.fast, m.slow, m.signal)
	return map[string][]float64{
		"MACD_" + suffix:  line,
		"MACDs_" + suffix: signalLine,
		"MACDh_" + suffix: hist,
	}, nil
}

type roc struct{ length int }

func (r *roc) Name() string           { return "roc" }
func (r *roc) Params() map[string]any { return map[string]any{"length": r.length} }

func (r *roc) Compute(bars []domain.Bar) (map[string][]float64, error) {
	return map[string][]float64{
		fmt.Sprintf("ROC_%d", r.length): ROC(Closes(bars), r.length),
	}, nil
}

type stochastic struct {
	k, d, smoothK int
}

func (s *stochastic) Name() string { return "stochastic" }
func (s *stochastic) Params() map[string]any {
	return map[string]any{"k": s.k, "d": s.d, "smooth_k": s.smoothK}
}

func (s *stochastic) Compute(bars []domain.Bar) (map[string][]float64, error) {
	raw := nanSlice(len(bars))
	for i := s.k - 1; i < len(bars); i++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for j := i - s.k + 1; j <= i; j++ {
			lo = math.Min(lo, bars[j].Low)
			hi = math.Max(hi, bars[j].High)
		}
		if hi > lo {
			raw[i] = (bars[i].Close - lo) / (hi - lo) * 100
		} else {
			raw[i] = 50
		}
	}

	kLine := SMA(trimNaN(raw), s.smoothK)
	kAligned := realign(raw, kLine)
	dLine := realign(kAligned, SMA(trimNaN(kAligned), s.d))

	suffix := fmt.Sprintf("%d_%d_%d", s.k, s.d, s.smoothK)
	return map[string][]float64{
		"STOCHk_" + suffix: kAligned,
		"STOCHd_" + suffix: dLine,
	}, nil
}

// trimNaN drops leading NaN values so rolling helpers that require a dense
// prefix can run over a partially warmed series.
func trimNaN(values []float64) []float64 {
	return values[firstValid(values):]
}

// realign pads computed back to the length and offset of ref, which computed
// was derived from via trimNaN.
func realign(ref, computed []float64) []float64 {
	out := nanSlice(len(ref))
	offset := firstValid(ref)
	copy(out[offset:], computed)
	return out
}

func registerMomentum(r *Registry) {
	r.Register(Schema{
		Name: "rsi", Category: "momentum",
		Description: "Relative strength index (Wilder smoothing)",
		Params:      []ParamSpec{{Name: "length", Type: "int", Default: 14}},
	}, func(p map[string]any) (Indicator, error) {
		length, err := lengthParam(p, 14)
		if err != nil {
			return nil, err
		}
		return &rsi{length: length}, nil
	})

	r.Register(Schema{
		Name: "macd", Category: "momentum",
		Description: "Moving average convergence divergence",
		Params: []ParamSpec{
			{Name: "fast", Type: "int", Default: 12},
			{Name: "slow", Type: "int", Default: 26},
			{Name: "signal", Type: "int", Default: 9},
		},
	}, func(p map[string]any) (Indicator, error) {
		if err := params.Unknown(p, "fast", "slow", "signal"); err != nil {
			return nil, err
		}
		fast, err := params.Int(p, "fast", 12)
		if err != nil {
			return nil, err
		}
		slow, err := params.Int(p, "slow", 26)
		if err != nil {
			return nil, err
		}
		signal, err := params.Int(p, "signal", 9)
		if err != nil {
			return nil, err
		}
		if fast <= 0 || slow <= 0 || signal <= 0 {
			return nil, fmt.Errorf("periods must be > 0")
		}
		if fast >= slow {
			return nil, fmt.Errorf("fast period %d must be below slow period %d", fast, slow)
		}
		return &macd{fast: fast, slow: slow, signal: signal}, nil
	})

	r.Register(Schema{
		Name: "roc", Category: "momentum",
		Description: "Rate of change",
		Params:      []ParamSpec{{Name: "length", Type: "int", Default: 10}},
	}, func(p map[string]any) (Indicator, error) {
		length, err := lengthParam(p, 10)
		if err != nil {
			return nil, err
		}
		return &roc{length: length}, nil
	})

	r.Register(Schema{
		Name: "stochastic", Aliases: []string{"stoch"}, Category: "momentum",
		Description: "Stochastic oscillator",
		Params: []ParamSpec{
			{Name: "k", Type: "int", Default: 14},
			{Name: "d", Type: "int", Default: 3},
			{Name: "smooth_k", Type: "int", Default: 3},
		},
	}, func(p map[string]any) (Indicator, error) {
		if err := params.Unknown(p, "k", "d", "smooth_k"); err != nil {
			return nil, err
		}
		k, err := params.Int(p, "k", 14)
		if err != nil {
			return nil, err
		}
		d, err := params.Int(p, "d", 3)
		if err != nil {
			return nil, err
		}
		smoothK, err := params.Int(p, "smooth_k", 3)
		if err != nil {
			return nil, err
		}
		if k <= 0 || d <= 0 || smoothK <= 0 {
			return nil, fmt.Errorf("periods must be > 0")
		}
		return &stochastic{k: k, d: d, smoothK: smoothK}, nil
	})
}
