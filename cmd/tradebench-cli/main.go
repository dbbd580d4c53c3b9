package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"tradebench/internal/backtest"
	"tradebench/internal/config"
	"tradebench/internal/indicator"
	"tradebench/internal/store"
	"tradebench/internal/strategy"
	"tradebench/internal/strategy/builtins"
)

const version = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tradebench-cli <command> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  version     Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "  strategies  List available strategy types\n")
		fmt.Fprintf(os.Stderr, "  indicators  List available indicators\n")
		fmt.Fprintf(os.Stderr, "  tickers     List tickers with cached bars\n")
		fmt.Fprintf(os.Stderr, "  backtest    Run a backtest against the local bar cache\n")
		fmt.Fprintf(os.Stderr, "\n")
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("tradebench-cli %s\n", version)

	case "strategies":
		registry := strategy.NewRegistry()
		builtins.Register(registry)
		for _, schema := range registry.List() {
			fmt.Printf("%-16s %s\n", schema.Name, schema.Description)
			for _, p := range schema.Params {
				fmt.Printf("    %-14s %s (default %v)\n", p.Name, p.Type, p.Default)
			}
		}

	case "indicators":
		for _, schema := range indicator.DefaultRegistry().List() {
			fmt.Printf("%-12s %-12s %s\n", schema.Name, schema.Category, schema.Description)
		}

	case "tickers":
		cfg := loadConfig()
		bars := store.NewParquetStore(cfg.Storage.DataDir)
		tickers, err := bars.ListTickers(context.Background())
		if err != nil {
			log.Fatalf("listing tickers: %v", err)
		}
		for _, t := range tickers {
			fmt.Println(t)
		}

	case "backtest":
		runBacktest(os.Args[2:])

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		flag.Usage()
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfgPath := "config/tradebench.yaml"
	if p := os.Getenv("TRADEBENCH_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	return cfg
}

func runBacktest(args []string) {
	fs := flag.NewFlagSet("backtest", flag.ExitOnError)
	ticker := fs.String("ticker", "", "ticker to backtest (default from config)")
	stratType := fs.String("strategy", "buy_hold", "strategy type")
	paramsJSON := fs.String("params", "{}", "strategy parameters as JSON")
	startStr := fs.String("start", "", "start date (YYYY-MM-DD)")
	endStr := fs.String("end", "", "end date (YYYY-MM-DD)")
	capital := fs.Float64("capital", 0, "initial capital (default from config)")
	commissionPct := fs.Float64("commission-pct", -1, "commission as a fraction of trade value (default from config)")
	asJSON := fs.Bool("json", false, "print the full result as JSON")
	fs.Parse(args)

	cfg := loadConfig()
	if *ticker == "" {
		*ticker = cfg.Data.DefaultTicker
	}
	symbol := strings.ToUpper(*ticker)

	var params map[string]any
	if err := json.Unmarshal([]byte(*paramsJSON), &params); err != nil {
		log.Fatalf("parsing -params: %v", err)
	}

	registry := strategy.NewRegistry()
	builtins.Register(registry)
	strat, err := registry.Create(*stratType, params)
	if err != nil {
		log.Fatalf("creating strategy: %v", err)
	}

	runCfg := cfg.Backtest
	if *capital > 0 {
		runCfg.InitialCapital = *capital
	}
	if *commissionPct >= 0 {
		runCfg.CommissionPct = *commissionPct
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := backtest.New(runCfg, logger)
	if err != nil {
		log.Fatalf("configuring engine: %v", err)
	}

	start := parseDateFlag(*startStr, "-start")
	end := parseDateFlag(*endStr, "-end")

	cache := store.NewParquetStore(cfg.Storage.DataDir)
	from := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Now().UTC()
	bars, err := cache.ReadBars(context.Background(), symbol, from, to)
	if err != nil {
		log.Fatalf("reading cached bars: %v", err)
	}
	if len(bars) == 0 {
		log.Fatalf("no cached bars for %s; run tradebench-fetch first", symbol)
	}

	result, err := engine.Run(strat, bars, symbol, start, end)
	if err != nil {
		log.Fatalf("running backtest: %v", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			log.Fatalf("encoding result: %v", err)
		}
		return
	}
	printResult(result)
}

func parseDateFlag(s, name string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		log.Fatalf("parsing %s: %v", name, err)
	}
	return &t
}

func printResult(r *backtest.Result) {
	m := r.Metrics
	fmt.Printf("%s %s  %s .. %s\n", r.Ticker, r.StrategyType,
		r.StartDate.Format("2006-01-02"), r.EndDate.Format("2006-01-02"))
	fmt.Printf("  initial capital   %12.2f\n", r.InitialCapital)
	fmt.Printf("  final capital     %12.2f\n", r.FinalCapital)
	fmt.Printf("  total return      %11.2f%%\n", m.TotalReturnPct)
	fmt.Printf("  annual return     %11.2f%%\n", m.AnnualReturnPct)
	fmt.Printf("  max drawdown      %11.2f%%\n", m.MaxDrawdownPct)
	if m.SharpeRatio != nil {
		fmt.Printf("  sharpe ratio      %12.2f\n", *m.SharpeRatio)
	} else {
		fmt.Printf("  sharpe ratio      %12s\n", "n/a")
	}
	fmt.Printf("  trades            %12d (%d win / %d loss)\n",
		m.TotalTrades, m.WinningTrades, m.LosingTrades)
	fmt.Printf("  win rate          %12.2f\n", m.WinRate)
	if m.ProfitFactor != nil {
		fmt.Printf("  profit factor     %12.2f\n", *m.ProfitFactor)
	}
	fmt.Printf("  commission paid   %12.2f\n", m.TotalCommission)
}
