// Package data downloads historical daily bars, caches them locally, and
// checks their quality.
package data

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"tradebench/internal/domain"
	"tradebench/internal/store"
	"tradebench/internal/util"
)

// ErrNoBars reports that the market-data API returned no bars for a ticker.
var ErrNoBars = errors.New("data: no bars returned")

// earliestStart bounds open-ended downloads.
var earliestStart = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

const (
	fetchAttempts  = 3
	fetchBaseDelay = time.Second
	// Alpaca free-tier ceiling.
	requestsPerMinute = 200
)

// Downloader fetches daily bars from the Alpaca market-data API and caches
// them in a BarStore. Cache hits are served without touching the network.
type Downloader struct {
	client  *marketdata.Client
	cache   store.BarStore
	limiter *util.RateLimiter
	log     *slog.Logger
}

// NewDownloader creates a Downloader with the given Alpaca credentials and
// bar cache. dataURL overrides the default API endpoint when non-empty.
func NewDownloader(apiKey, apiSecret, dataURL string, cache store.BarStore) *Downloader {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}

	return &Downloader{
		client:  marketdata.NewClient(opts),
		cache:   cache,
		limiter: util.NewRateLimiter(requestsPerMinute),
		log:     slog.Default().With("component", "downloader"),
	}
}

// Download returns daily bars for ticker within [start, end]. Nil bounds
// default to year 2000 and now. Unless forceRefresh is set, a non-empty
// cache window is returned as-is; otherwise bars are fetched from the API,
// quality-checked, written through to the cache, and returned.
func (d *Downloader) Download(ctx context.Context, ticker string, start, end *time.Time, forceRefresh bool) ([]domain.Bar, error) {
	from := earliestStart
	if start != nil {
		from = *start
	}
	to := time.Now().UTC()
	if end != nil {
		to = *end
	}

	if !forceRefresh {
		cached, err := d.cache.ReadBars(ctx, ticker, from, to)
		if err != nil {
			d.log.Error("reading cache failed", "ticker", ticker, "err", err)
		} else if len(cached) > 0 {
			d.log.Info("cache hit", "ticker", ticker, "bars", len(cached))
			return cached, nil
		}
	}

	bars, err := d.fetch(ctx, ticker, from, to)
	if err != nil {
		return nil, err
	}

	if issues := Validate(bars); len(issues) > 0 {
		// Imperfect data is still usable; surface the issues and move on.
		d.log.Warn("data quality issues", "ticker", ticker, "issues", issues)
	}

	if err := d.cache.WriteBars(ctx, bars); err != nil {
		d.log.Error("writing cache failed", "ticker", ticker, "err", err)
	}
	return bars, nil
}

// Refresh re-downloads the full history for ticker, bypassing the cache.
func (d *Downloader) Refresh(ctx context.Context, ticker string) ([]domain.Bar, error) {
	d.log.Info("refreshing", "ticker", ticker)
	return d.Download(ctx, ticker, nil, nil, true)
}

// Summary reports quality statistics for the cached bars of ticker,
// downloading them first if the cache is empty.
func (d *Downloader) Summary(ctx context.Context, ticker string) (*Summary, error) {
	bars, err := d.Download(ctx, ticker, nil, nil, false)
	if err != nil {
		return nil, err
	}
	s := NewSummary(ticker, bars)
	return &s, nil
}

func (d *Downloader) fetch(ctx context.Context, ticker string, start, end time.Time) ([]domain.Bar, error) {
	symbol := strings.ToUpper(ticker)
	d.log.Info("downloading", "ticker", symbol, "start", start, "end", end)

	var alpacaBars []marketdata.Bar
	err := util.Retry(ctx, fetchAttempts, fetchBaseDelay, func() error {
		if err := d.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		alpacaBars, err = d.client.GetBars(symbol, marketdata.GetBarsRequest{
			TimeFrame:  marketdata.OneDay,
			Start:      start,
			End:        end,
			Adjustment: marketdata.All,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars %s: %w", symbol, err)
	}
	if len(alpacaBars) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoBars, symbol)
	}

	bars := make([]domain.Bar, len(alpacaBars))
	for i, ab := range alpacaBars {
		bars[i] = domain.Bar{
			Symbol:     symbol,
			Timestamp:  ab.Timestamp.UTC(),
			Open:       ab.Open,
			High:       ab.High,
			Low:        ab.Low,
			Close:      ab.Close,
			Volume:     int64(ab.Volume),
			TradeCount: int64(ab.TradeCount),
			VWAP:       ab.VWAP,
		}
	}

	d.log.Info("downloaded", "ticker", symbol, "bars", len(bars))
	return bars, nil
}
