package indicator

import (
	"fmt"

	"tradebench/internal/domain"
	"tradebench/internal/params"
)

// Trend indicators: moving averages over the close series.

type sma struct{ length int }

func (s *sma) Name() string           { return "sma" }
func (s *sma) Params() map[string]any { return map[string]any{"length": s.length} }

func (s *sma) Compute(bars []domain.Bar) (map[string][]float64, error) {
	return map[string][]float64{
		fmt.Sprintf("SMA_%d", s.length): SMA(Closes(bars), s.length),
	}, nil
}

type ema struct{ length int }

func (e *ema) Name() string           { return "ema" }
func (e *ema) Params() map[string]any { return map[string]any{"length": e.length} }

func (e *ema) Compute(bars []domain.Bar) (map[string][]float64, error) {
	return map[string][]float64{
		fmt.Sprintf("EMA_%d", e.length): EMA(Closes(bars), e.length),
	}, nil
}

type wma struct{ length int }

func (w *wma) Name() string           { return "wma" }
func (w *wma) Params() map[string]any { return map[string]any{"length": w.length} }

func (w *wma) Compute(bars []domain.Bar) (map[string][]float64, error) {
	return map[string][]float64{
		fmt.Sprintf("WMA_%d", w.length): WMA(Closes(bars), w.length),
	}, nil
}

// lengthParam reads and validates the single "length" parameter shared by
// the moving-average indicators.
func lengthParam(p map[string]any, def int) (int, error) {
	if err := params.Unknown(p, "length"); err != nil {
		return 0, err
	}
	length, err := params.Int(p, "length", def)
	if err != nil {
		return 0, err
	}
	if length <= 0 {
		return 0, fmt.Errorf("length must be > 0, got %d", length)
	}
	return length, nil
}

func registerTrend(r *Registry) {
	lengthSpec := []ParamSpec{{Name: "length", Type: "int", Default: 20}}

	r.Register(Schema{
		Name: "sma", Category: "trend",
		Description: "Simple moving average",
		Params:      lengthSpec,
	}, func(p map[string]any) (Indicator, error) {
		length, err := lengthParam(p, 20)
		if err != nil {
			return nil, err
		}
		return &sma{length: length}, nil
	})

	r.Register(Schema{
		Name: "ema", Category: "trend",
		Description: "Exponential moving average",
		Params:      lengthSpec,
	}, func(p map[string]any) (Indicator, error) {
		length, err := lengthParam(p, 20)
		if err != nil {
			return nil, err
		}
		return &ema{length: length}, nil
	})

	r.Register(Schema{
		Name: "wma", Category: "trend",
		Description: "Linearly weighted moving average",
		Params:      lengthSpec,
	}, func(p map[string]any) (Indicator, error) {
		length, err := lengthParam(p, 20)
		if err != nil {
			return nil, err
		}
		return &wma{length: length}, nil
	})
}
