package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tradebench/internal/config"
	"tradebench/internal/data"
	"tradebench/internal/store"
)

func main() {
	tickersFlag := flag.String("tickers", "", "comma-separated tickers (default from config)")
	refresh := flag.Bool("refresh", false, "discard cached bars and re-download")
	flag.Parse()

	cfgPath := "config/tradebench.yaml"
	if p := os.Getenv("TRADEBENCH_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// Dual logger: stdout + /tmp log file.
	logFileName := fmt.Sprintf("/tmp/tradebench-fetch-%s.log", time.Now().Format("2006-01-02"))
	logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Fatalf("opening log file: %v", err)
	}
	defer logFile.Close()

	w := io.MultiWriter(os.Stdout, logFile)
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	tickers := []string{cfg.Data.DefaultTicker}
	if *tickersFlag != "" {
		tickers = strings.Split(*tickersFlag, ",")
	}

	cache := store.NewParquetStore(cfg.Storage.DataDir)
	downloader := data.NewDownloader(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret,
		cfg.Alpaca.DataURL, cache)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	failed := 0
	for _, t := range tickers {
		ticker := strings.ToUpper(strings.TrimSpace(t))
		if ticker == "" {
			continue
		}

		var bars int
		if *refresh {
			got, err := downloader.Refresh(ctx, ticker)
			if err != nil {
				slog.Error("refresh failed", "ticker", ticker, "error", err)
				failed++
				continue
			}
			bars = len(got)
		} else {
			got, err := downloader.Download(ctx, ticker, nil, nil, false)
			if err != nil {
				slog.Error("download failed", "ticker", ticker, "error", err)
				failed++
				continue
			}
			bars = len(got)
		}

		summary, err := downloader.Summary(ctx, ticker)
		if err != nil {
			slog.Error("summarizing failed", "ticker", ticker, "error", err)
			failed++
			continue
		}
		slog.Info("ticker ready",
			"ticker", ticker,
			"bars", bars,
			"start", summary.StartDate.Format("2006-01-02"),
			"end", summary.EndDate.Format("2006-01-02"),
			"missingDates", summary.MissingDates,
			"qualityScore", summary.DataQualityScore)
	}

	if failed > 0 {
		log.Fatalf("%d of %d tickers failed", failed, len(tickers))
	}
}
