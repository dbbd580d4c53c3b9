package indicator

import (
	"fmt"
	"strconv"

	"tradebench/internal/domain"
	"tradebench/internal/params"
)

// Volatility indicators.

type bbands struct {
	length int
	numStd float64
}

func (b *bbands) Name() string { return "bbands" }
func (b *bbands) Params() map[string]any {
	return map[string]any{"length": b.length, "num_std": b.numStd}
}

// BollingerColumns returns the lower/middle/upper column names produced for
// the given parameters, matching the naming used by Compute.
func BollingerColumns(length int, numStd float64) (lower, middle, upper string) {
	suffix := fmt.Sprintf("%d_%s", length, strconv.FormatFloat(numStd, 'g', -1, 64))
	return "BBL_" + suffix, "BBM_" + suffix, "BBU_" + suffix
}

func (b *bbands) Compute(bars []domain.Bar) (map[string][]float64, error) {
	closes := Closes(bars)
	mid := SMA(closes, b.length)
	sd := StdDev(closes, b.length)

	lower := make([]float64, len(bars))
	upper := make([]float64, len(bars))
	for i := range bars {
		lower[i] = mid[i] - b.numStd*sd[i]
		upper[i] = mid[i] + b.numStd*sd[i]
	}

	lo, mi, up := BollingerColumns(b.length, b.numStd)
	return map[string][]float64{lo: lower, mi: mid, up: upper}, nil
}

type atr struct{ length int }

func (a *atr) Name() string           { return "atr" }
func (a *atr) Params() map[string]any { return map[string]any{"length": a.length} }

func (a *atr) Compute(bars []domain.Bar) (map[string][]float64, error) {
	return map[string][]float64{
		fmt.Sprintf("ATR_%d", a.length): RMA(TrueRange(bars), a.length),
	}, nil
}

type stdev struct{ length int }

func (s *stdev) Name() string           { return "stdev" }
func (s *stdev) Params() map[string]any { return map[string]any{"length": s.length} }

func (s *stdev) Compute(bars []domain.Bar) (map[string][]float64, error) {
	return map[string][]float64{
		fmt.Sprintf("STDEV_%d", s.length): StdDev(Closes(bars), s.length),
	}, nil
}

func registerVolatility(r *Registry) {
	r.Register(Schema{
		Name: "bbands", Aliases: []string{"bb", "bollingerbands"}, Category: "volatility",
		Description: "Bollinger bands (SMA plus/minus num_std standard deviations)",
		Params: []ParamSpec{
			{Name: "length", Type: "int", Default: 20},
			{Name: "num_std", Type: "float", Default: 2.0},
		},
	}, func(p map[string]any) (Indicator, error) {
		if err := params.Unknown(p, "length", "num_std"); err != nil {
			return nil, err
		}
		length, err := params.Int(p, "length", 20)
		if err != nil {
			return nil, err
		}
		numStd, err := params.Float(p, "num_std", 2.0)
		if err != nil {
			return nil, err
		}
		if length <= 1 {
			return nil, fmt.Errorf("length must be > 1, got %d", length)
		}
		if numStd <= 0 {
			return nil, fmt.Errorf("num_std must be > 0, got %v", numStd)
		}
		return &bbands{length: length, numStd: numStd}, nil
	})

	r.Register(Schema{
		Name: "atr", Category: "volatility",
		Description: "Average true range (Wilder smoothing)",
		Params:      []ParamSpec{{Name: "length", Type: "int", Default: 14}},
	}, func(p map[string]any) (Indicator, error) {
		length, err := lengthParam(p, 14)
		if err != nil {
			return nil, err
		}
		return &atr{length: length}, nil
	})

	r.Register(Schema{
		Name: "stdev", Category: "volatility",
		Description: "Rolling standard deviation of closes",
		Params:      []ParamSpec{{Name: "length", Type: "int", Default: 20}},
	}, func(p map[string]any) (Indicator, error) {
		length, err := lengthParam(p, 20)
		if err != nil {
			return nil, err
		}
		if length < 2 {
			return nil, fmt.Errorf("length must be > 1, got %d", length)
		}
		return &stdev{length: length}, nil
	})
}
