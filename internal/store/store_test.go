package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tradebench/internal/backtest"
	"tradebench/internal/domain"
)

func storeBars(ticker string, n int) []domain.Bar {
	base := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, n)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = domain.Bar{
			Symbol:    ticker,
			Timestamp: base.AddDate(0, 0, i),
			Open:      c, High: c + 1, Low: c - 1, Close: c,
			Volume: int64(1000 + i),
		}
	}
	return bars
}

// ---------------------------------------------------------------------------
// ParquetStore
// ---------------------------------------------------------------------------

func TestParquetStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	ps := NewParquetStore(t.TempDir())

	bars := storeBars("VTSAX", 10)
	if err := ps.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	got, err := ps.ReadBars(ctx, "VTSAX", bars[0].Timestamp, bars[9].Timestamp)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("ReadBars returned %d bars, want 10", len(got))
	}
	if !got[0].Timestamp.Equal(bars[0].Timestamp) || got[0].Close != bars[0].Close {
		t.Errorf("first bar = %+v, want %+v", got[0], bars[0])
	}

	// Partial range is inclusive on both ends.
	got, err = ps.ReadBars(ctx, "VTSAX", bars[2].Timestamp, bars[5].Timestamp)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("range read returned %d bars, want 4", len(got))
	}
}

func TestParquetStoreMergeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ps := NewParquetStore(t.TempDir())

	bars := storeBars("VTSAX", 10)
	if err := ps.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}
	// Rewriting an overlapping window must not duplicate rows.
	if err := ps.WriteBars(ctx, bars[5:]); err != nil {
		t.Fatalf("WriteBars (overlap): %v", err)
	}

	got, err := ps.ReadBars(ctx, "VTSAX", bars[0].Timestamp, bars[9].Timestamp)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 10 {
		t.Errorf("after overlapping rewrite got %d bars, want 10", len(got))
	}
}

func TestParquetStoreSpansYears(t *testing.T) {
	ctx := context.Background()
	ps := NewParquetStore(t.TempDir())

	dec := domain.Bar{Symbol: "VTSAX", Timestamp: time.Date(2022, 12, 30, 0, 0, 0, 0, time.UTC), Open: 99, High: 100, Low: 98, Close: 99, Volume: 1}
	jan := domain.Bar{Symbol: "VTSAX", Timestamp: time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC), Open: 101, High: 102, Low: 100, Close: 101, Volume: 1}
	if err := ps.WriteBars(ctx, []domain.Bar{dec, jan}); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	got, err := ps.ReadBars(ctx, "VTSAX", dec.Timestamp, jan.Timestamp)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars across years returned %d bars, want 2", len(got))
	}
	if !got[0].Timestamp.Before(got[1].Timestamp) {
		t.Error("bars not sorted ascending across year files")
	}
}

func TestParquetStoreListTickers(t *testing.T) {
	ctx := context.Background()
	ps := NewParquetStore(filepath.Join(t.TempDir(), "cache"))

	tickers, err := ps.ListTickers(ctx)
	if err != nil {
		t.Fatalf("ListTickers on empty dir: %v", err)
	}
	if len(tickers) != 0 {
		t.Errorf("ListTickers = %v, want empty", tickers)
	}

	if err := ps.WriteBars(ctx, storeBars("vtsax", 2)); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}
	if err := ps.WriteBars(ctx, storeBars("SPY", 2)); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	tickers, err = ps.ListTickers(ctx)
	if err != nil {
		t.Fatalf("ListTickers: %v", err)
	}
	if len(tickers) != 2 || tickers[0] != "SPY" || tickers[1] != "VTSAX" {
		t.Errorf("ListTickers = %v, want [SPY VTSAX]", tickers)
	}
}

func TestParquetStoreMissingTicker(t *testing.T) {
	ps := NewParquetStore(t.TempDir())

	got, err := ps.ReadBars(context.Background(), "NOPE",
		time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ReadBars returned %d bars for a missing ticker, want 0", len(got))
	}
}

// ---------------------------------------------------------------------------
// SQLiteStore
// ---------------------------------------------------------------------------

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStrategyCRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	rec := &StrategyRecord{
		Name:        "my crossover",
		Description: "20/50 golden cross",
		Config:      map[string]any{"type": "sma_cross", "params": map[string]any{"fast_period": float64(20)}},
	}
	if err := s.SaveStrategy(ctx, rec); err != nil {
		t.Fatalf("SaveStrategy: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("SaveStrategy did not assign an ID")
	}

	got, err := s.GetStrategy(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetStrategy: %v", err)
	}
	if got.Name != rec.Name || got.Description != rec.Description {
		t.Errorf("GetStrategy = %+v, want %+v", got, rec)
	}
	if got.Config["type"] != "sma_cross" {
		t.Errorf("Config = %v, want sma_cross type", got.Config)
	}

	got.Description = "updated"
	if err := s.UpdateStrategy(ctx, got); err != nil {
		t.Fatalf("UpdateStrategy: %v", err)
	}
	got2, err := s.GetStrategy(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetStrategy: %v", err)
	}
	if got2.Description != "updated" {
		t.Errorf("Description = %q, want %q", got2.Description, "updated")
	}
	if !got2.UpdatedAt.After(got2.CreatedAt) && !got2.UpdatedAt.Equal(got2.CreatedAt) {
		t.Errorf("UpdatedAt %s precedes CreatedAt %s", got2.UpdatedAt, got2.CreatedAt)
	}

	if err := s.DeleteStrategy(ctx, rec.ID); err != nil {
		t.Fatalf("DeleteStrategy: %v", err)
	}
	if _, err := s.GetStrategy(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetStrategy after delete = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStrategyDuplicateName(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	first := &StrategyRecord{Name: "dup", Config: map[string]any{"type": "buy_hold"}}
	if err := s.SaveStrategy(ctx, first); err != nil {
		t.Fatalf("SaveStrategy: %v", err)
	}

	second := &StrategyRecord{Name: "dup", Config: map[string]any{"type": "rsi"}}
	if err := s.SaveStrategy(ctx, second); !errors.Is(err, ErrExists) {
		t.Errorf("SaveStrategy(duplicate) = %v, want ErrExists", err)
	}
}

func TestSQLiteStrategyNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	if _, err := s.GetStrategy(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetStrategy = %v, want ErrNotFound", err)
	}
	if err := s.DeleteStrategy(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteStrategy = %v, want ErrNotFound", err)
	}
	if err := s.UpdateStrategy(ctx, &StrategyRecord{ID: "missing", Name: "x", Config: map[string]any{}}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateStrategy = %v, want ErrNotFound", err)
	}
}

func testBacktestRecord(strategyID string) *BacktestRecord {
	sharpe := 1.25
	start := time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC)
	res := &backtest.Result{
		Ticker:         "VTSAX",
		StrategyType:   "sma_cross",
		StrategyParams: map[string]any{"fast_period": float64(20)},
		StartDate:      start,
		EndDate:        end,
		InitialCapital: 10000,
		FinalCapital:   11200,
		Metrics: domain.PerformanceMetrics{
			TotalReturn:    1200,
			TotalReturnPct: 12,
			SharpeRatio:    &sharpe,
			WinRate:        0.6,
			TotalTrades:    5,
		},
	}
	return &BacktestRecord{
		StrategyID:     strategyID,
		StrategyType:   res.StrategyType,
		Ticker:         res.Ticker,
		StartDate:      start,
		EndDate:        end,
		InitialCapital: res.InitialCapital,
		FinalCapital:   res.FinalCapital,
		Metrics:        res.Metrics,
		Result:         res,
	}
}

func TestSQLiteBacktestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	rec := testBacktestRecord("")
	if err := s.SaveBacktest(ctx, rec); err != nil {
		t.Fatalf("SaveBacktest: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("SaveBacktest did not assign an ID")
	}

	got, err := s.GetBacktest(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetBacktest: %v", err)
	}
	if got.Ticker != "VTSAX" || got.FinalCapital != 11200 {
		t.Errorf("GetBacktest = %+v, want saved record", got)
	}
	if got.Result == nil || got.Result.Metrics.TotalTrades != 5 {
		t.Errorf("Result = %+v, want full decoded result", got.Result)
	}
	if got.Metrics.SharpeRatio == nil || *got.Metrics.SharpeRatio != 1.25 {
		t.Errorf("SharpeRatio = %v, want 1.25", got.Metrics.SharpeRatio)
	}
	if !got.StartDate.Equal(rec.StartDate) {
		t.Errorf("StartDate = %s, want %s", got.StartDate, rec.StartDate)
	}

	if _, err := s.GetBacktest(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetBacktest(missing) = %v, want ErrNotFound", err)
	}
}

func TestSQLiteBacktestList(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	strat := &StrategyRecord{Name: "listed", Config: map[string]any{"type": "buy_hold"}}
	if err := s.SaveStrategy(ctx, strat); err != nil {
		t.Fatalf("SaveStrategy: %v", err)
	}

	a := testBacktestRecord(strat.ID)
	a.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := testBacktestRecord(strat.ID)
	b.CreatedAt = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	other := testBacktestRecord("")
	for _, rec := range []*BacktestRecord{a, b, other} {
		if err := s.SaveBacktest(ctx, rec); err != nil {
			t.Fatalf("SaveBacktest: %v", err)
		}
	}

	all, err := s.ListBacktests(ctx, "")
	if err != nil {
		t.Fatalf("ListBacktests: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListBacktests returned %d records, want 3", len(all))
	}
	// Summaries omit the heavy result payload but keep headline metrics.
	if all[0].Result != nil {
		t.Error("list entries should not decode the full result")
	}
	if all[0].Metrics.TotalTrades != 5 {
		t.Errorf("headline TotalTrades = %d, want 5", all[0].Metrics.TotalTrades)
	}

	mine, err := s.ListBacktests(ctx, strat.ID)
	if err != nil {
		t.Fatalf("ListBacktests(strategy): %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("filtered list returned %d records, want 2", len(mine))
	}
	if !mine[0].CreatedAt.After(mine[1].CreatedAt) {
		t.Error("ListBacktests not ordered newest first")
	}
}

func TestSQLiteDeleteStrategyWithBacktests(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	strat := &StrategyRecord{Name: "attached", Config: map[string]any{"type": "buy_hold"}}
	if err := s.SaveStrategy(ctx, strat); err != nil {
		t.Fatalf("SaveStrategy: %v", err)
	}
	if err := s.SaveBacktest(ctx, testBacktestRecord(strat.ID)); err != nil {
		t.Fatalf("SaveBacktest: %v", err)
	}

	if err := s.DeleteStrategy(ctx, strat.ID); !errors.Is(err, ErrConflict) {
		t.Errorf("DeleteStrategy = %v, want ErrConflict", err)
	}
	// Still retrievable after the refused delete.
	if _, err := s.GetStrategy(ctx, strat.ID); err != nil {
		t.Errorf("GetStrategy after refused delete: %v", err)
	}
}
