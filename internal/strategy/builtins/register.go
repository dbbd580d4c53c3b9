package builtins

import (
	"tradebench/internal/params"
	"tradebench/internal/strategy"
)

// Register adds every built-in strategy variant to the registry.
func Register(r *strategy.Registry) {
	r.Register(strategy.Schema{
		Name:        "buy_hold",
		Aliases:     []string{"buy_and_hold"},
		Description: "Buy at the first bar and hold until the last",
		Params:      []strategy.ParamSpec{},
	}, func(p map[string]any) (strategy.Strategy, error) {
		if err := params.Unknown(p); err != nil {
			return nil, err
		}
		return NewBuyHold(), nil
	})

	r.Register(strategy.Schema{
		Name:        "sma_cross",
		Aliases:     []string{"sma_crossover"},
		Description: "Fast/slow simple moving average crossover",
		Params: []strategy.ParamSpec{
			{Name: "fast_period", Type: "int", Default: 20},
			{Name: "slow_period", Type: "int", Default: 50},
		},
	}, func(p map[string]any) (strategy.Strategy, error) {
		if err := params.Unknown(p, "fast_period", "slow_period"); err != nil {
			return nil, err
		}
		fast, err := params.Int(p, "fast_period", 20)
		if err != nil {
			return nil, err
		}
		slow, err := params.Int(p, "slow_period", 50)
		if err != nil {
			return nil, err
		}
		return NewSMACross(fast, slow)
	})

	r.Register(strategy.Schema{
		Name:        "rsi",
		Aliases:     []string{"rsi_threshold"},
		Description: "RSI oversold entry, overbought exit",
		Params: []strategy.ParamSpec{
			{Name: "period", Type: "int", Default: 14},
			{Name: "oversold", Type: "float", Default: 30.0},
			{Name: "overbought", Type: "float", Default: 70.0},
		},
	}, func(p map[string]any) (strategy.Strategy, error) {
		if err := params.Unknown(p, "period", "oversold", "overbought"); err != nil {
			return nil, err
		}
		period, err := params.Int(p, "period", 14)
		if err != nil {
			return nil, err
		}
		oversold, err := params.Float(p, "oversold", 30)
		if err != nil {
			return nil, err
		}
		overbought, err := params.Float(p, "overbought", 70)
		if err != nil {
			return nil, err
		}
		return NewRSIThreshold(period, oversold, overbought)
	})

	r.Register(strategy.Schema{
		Name:        "bollinger",
		Aliases:     []string{"bbands_bounce"},
		Description: "Bollinger band bounce: buy the lower band, sell the upper",
		Params: []strategy.ParamSpec{
			{Name: "period", Type: "int", Default: 20},
			{Name: "num_std", Type: "float", Default: 2.0},
		},
	}, func(p map[string]any) (strategy.Strategy, error) {
		if err := params.Unknown(p, "period", "num_std"); err != nil {
			return nil, err
		}
		period, err := params.Int(p, "period", 20)
		if err != nil {
			return nil, err
		}
		numStd, err := params.Float(p, "num_std", 2.0)
		if err != nil {
			return nil, err
		}
		return NewBollingerBounce(period, numStd)
	})
}
