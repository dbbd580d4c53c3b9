package indicator

import (
	"fmt"

	"tradebench/internal/domain"
)

// Volume indicators.

type obv struct{}

func (o *obv) Name() string           { return "obv" }
func (o *obv) Params() map[string]any { return map[string]any{} }

func (o *obv) Compute(bars []domain.Bar) (map[string][]float64, error) {
	out := make([]float64, len(bars))
	for i, b := range bars {
		if i == 0 {
			out[i] = float64(b.Volume)
			continue
		}
		switch {
		case b.Close > bars[i-1].Close:
			out[i] = out[i-1] + float64(b.Volume)
		case b.Close < bars[i-1].Close:
			out[i] = out[i-1] - float64(b.Volume)
		default:
			out[i] = out[i-1]
		}
	}
	return map[string][]float64{"OBV": out}, nil
}

type vwap struct{}

func (v *vwap) Name() string           { return "vwap" }
func (v *vwap) Params() map[string]any { return map[string]any{} }

// Compute returns the cumulative volume-weighted average of the typical
// price (HLC/3) over the whole series.
func (v *vwap) Compute(bars []domain.Bar) (map[string][]float64, error) {
	out := nanSlice(len(bars))
	var cumPV, cumVol float64
	for i, b := range bars {
		typical := (b.High + b.Low + b.Close) / 3
		cumPV += typical * float64(b.Volume)
		cumVol += float64(b.Volume)
		if cumVol > 0 {
			out[i] = cumPV / cumVol
		}
	}
	return map[string][]float64{"VWAP": out}, nil
}

type volumeSMA struct{ length int }

func (v *volumeSMA) Name() string           { return "volumesma" }
func (v *volumeSMA) Params() map[string]any { return map[string]any{"length": v.length} }

func (v *volumeSMA) Compute(bars []domain.Bar) (map[string][]float64, error) {
	vols := make([]float64, len(bars))
	for i, b := range bars {
		vols[i] = float64(b.Volume)
	}
	return map[string][]float64{
		fmt.Sprintf("VOLSMA_%d", v.length): SMA(vols, v.length),
	}, nil
}

func registerVolume(r *Registry) {
	r.Register(Schema{
		Name: "obv", Category: "volume",
		Description: "On-balance volume",
		Params:      []ParamSpec{},
	}, func(p map[string]any) (Indicator, error) {
		if len(p) > 0 {
			return nil, fmt.Errorf("obv takes no parameters")
		}
		return &obv{}, nil
	})

	r.Register(Schema{
		Name: "vwap", Category: "volume",
		Description: "Cumulative volume-weighted average price",
		Params:      []ParamSpec{},
	}, func(p map[string]any) (Indicator, error) {
		if len(p) > 0 {
			return nil, fmt.Errorf("vwap takes no parameters")
		}
		return &vwap{}, nil
	})

	r.Register(Schema{
		Name: "volumesma", Aliases: []string{"volume_sma"}, Category: "volume",
		Description: "Simple moving average of volume",
		Params:      []ParamSpec{{Name: "length", Type: "int", Default: 20}},
	}, func(p map[string]any) (Indicator, error) {
		length, err := lengthParam(p, 20)
		if err != nil {
			return nil, err
		}
		return &volumeSMA{length: length}, nil
	})
}
