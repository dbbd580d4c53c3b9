package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"tradebench/internal/backtest"
	"tradebench/internal/data"
	"tradebench/internal/domain"
	"tradebench/internal/indicator"
	"tradebench/internal/store"
	"tradebench/internal/strategy"
	"tradebench/internal/strategy/builtins"
)

// stubProvider serves a fixed bar series without touching the network.
type stubProvider struct {
	bars     []domain.Bar
	err      error
	refreshN int
}

func (p *stubProvider) Download(ctx context.Context, ticker string, start, end *time.Time, forceRefresh bool) ([]domain.Bar, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.bars, nil
}

func (p *stubProvider) Refresh(ctx context.Context, ticker string) ([]domain.Bar, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.refreshN++
	return p.bars, nil
}

func (p *stubProvider) Summary(ctx context.Context, ticker string) (*data.Summary, error) {
	if p.err != nil {
		return nil, p.err
	}
	s := data.NewSummary(ticker, p.bars)
	return &s, nil
}

// testBars produces n weekday bars starting Monday 2023-01-02 with closes
// rising from 100.
func testBars(n int) []domain.Bar {
	bars := make([]domain.Bar, 0, n)
	day := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for len(bars) < n {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			c := 100.0 + float64(len(bars))
			bars = append(bars, domain.Bar{
				Symbol:    "TEST",
				Timestamp: day,
				Open:      c - 0.5,
				High:      c + 1,
				Low:       c - 1,
				Close:     c,
				Volume:    1000,
			})
		}
		day = day.AddDate(0, 0, 1)
	}
	return bars
}

type serverFixture struct {
	srv      *httptest.Server
	provider *stubProvider
	saved    *store.SQLiteStore
}

func newFixture(t *testing.T) *serverFixture {
	t.Helper()

	registry := strategy.NewRegistry()
	builtins.Register(registry)

	sqlite, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	provider := &stubProvider{bars: testBars(120)}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewServer(registry, indicator.DefaultRegistry(), provider,
		sqlite, sqlite, backtest.DefaultConfig(), "TEST", log)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &serverFixture{srv: srv, provider: provider, saved: sqlite}
}

func (f *serverFixture) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling request: %v", err)
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func wantStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, want %d (body: %s)", resp.StatusCode, want, body)
	}
}

func TestListStrategyTypes(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "GET", "/api/v1/backtesting/strategies", nil)
	wantStatus(t, resp, http.StatusOK)
	got := decodeBody[StrategyListResponse](t, resp)

	if got.Status != "success" {
		t.Errorf("status = %q, want success", got.Status)
	}
	if got.Count == 0 || got.Count != len(got.Strategies) {
		t.Errorf("count = %d, strategies = %d", got.Count, len(got.Strategies))
	}
}

func TestRunBacktest(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "POST", "/api/v1/backtesting/run", BacktestRequest{
		StrategyType:   "buy_hold",
		StrategyParams: map[string]any{},
	})
	wantStatus(t, resp, http.StatusOK)
	got := decodeBody[BacktestResponse](t, resp)

	if got.Result == nil {
		t.Fatal("result missing")
	}
	if got.Result.Ticker != "TEST" {
		t.Errorf("ticker = %q, want default TEST", got.Result.Ticker)
	}
	if got.Result.Metrics.TotalTrades != 1 {
		t.Errorf("trades = %d, want 1 round trip for buy-and-hold", got.Result.Metrics.TotalTrades)
	}
	if got.Result.FinalCapital <= got.Result.InitialCapital {
		t.Errorf("final = %v, want gain over %v on a rising series",
			got.Result.FinalCapital, got.Result.InitialCapital)
	}
	if got.ID == "" {
		t.Error("persisted backtest ID missing")
	}

	// The run must be retrievable afterwards.
	resp = f.do(t, "GET", "/api/v1/backtests/"+got.ID, nil)
	wantStatus(t, resp, http.StatusOK)
	rec := decodeBody[store.BacktestRecord](t, resp)
	if rec.StrategyType != "buy_hold" {
		t.Errorf("stored strategy type = %q", rec.StrategyType)
	}
	if rec.Result == nil || len(rec.Result.EquityCurve) == 0 {
		t.Error("stored result missing equity curve")
	}
}

func TestRunBacktestUnknownStrategy(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "POST", "/api/v1/backtesting/run", BacktestRequest{
		StrategyType: "does_not_exist",
	})
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusBadRequest)
}

func TestRunBacktestMissingType(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "POST", "/api/v1/backtesting/run", BacktestRequest{Ticker: "TEST"})
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusBadRequest)
}

func TestRunBacktestEmptyDateRange(t *testing.T) {
	f := newFixture(t)

	start := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	resp := f.do(t, "POST", "/api/v1/backtesting/run", BacktestRequest{
		StrategyType: "buy_hold",
		StartDate:    &start,
	})
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusBadRequest)
}

func TestRunBacktestNoBars(t *testing.T) {
	f := newFixture(t)
	f.provider.err = fmt.Errorf("%w: TEST", data.ErrNoBars)

	resp := f.do(t, "POST", "/api/v1/backtesting/run", BacktestRequest{
		StrategyType: "buy_hold",
	})
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusNotFound)
}

func TestRunBacktestRejectsInvalidConfig(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "POST", "/api/v1/backtesting/run", BacktestRequest{
		StrategyType: "buy_hold",
		Config:       &backtest.Config{InitialCapital: -1, PositionSizePct: 1},
	})
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusBadRequest)
}

func TestCompare(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "POST", "/api/v1/backtesting/compare", CompareRequest{
		Strategies: []CompareStrategy{
			{Name: "hold", Type: "buy_hold"},
			{Type: "sma_cross", Params: map[string]any{"fast_period": 5, "slow_period": 20}},
		},
	})
	wantStatus(t, resp, http.StatusOK)
	got := decodeBody[CompareResponse](t, resp)

	if got.Comparison == nil {
		t.Fatal("comparison missing")
	}
	if n := len(got.Comparison.Results); n != 2 {
		t.Fatalf("results = %d, want 2", n)
	}
	if got.Comparison.Results[0].StrategyName != "hold" {
		t.Errorf("first label = %q, want caller-supplied name", got.Comparison.Results[0].StrategyName)
	}
	if got.Comparison.Results[1].StrategyName != "sma_cross" {
		t.Errorf("second label = %q, want type fallback", got.Comparison.Results[1].StrategyName)
	}
	if len(got.Comparison.Rankings["total_return_pct"]) != 2 {
		t.Error("total_return_pct ranking missing")
	}
}

func TestCompareRequiresTwoStrategies(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "POST", "/api/v1/backtesting/compare", CompareRequest{
		Strategies: []CompareStrategy{{Type: "buy_hold"}},
	})
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusBadRequest)
}

func TestSavedStrategyLifecycle(t *testing.T) {
	f := newFixture(t)

	name := "my crossover"
	desc := "fast over slow"
	cfg := map[string]any{
		"type":   "sma_cross",
		"params": map[string]any{"fast_period": 10, "slow_period": 30},
	}
	resp := f.do(t, "POST", "/api/v1/strategies", SavedStrategyRequest{
		Name: &name, Description: &desc, Config: &cfg,
	})
	wantStatus(t, resp, http.StatusCreated)
	created := decodeBody[store.StrategyRecord](t, resp)
	if created.ID == "" {
		t.Fatal("created record has no ID")
	}

	resp = f.do(t, "GET", "/api/v1/strategies/"+created.ID, nil)
	wantStatus(t, resp, http.StatusOK)
	got := decodeBody[store.StrategyRecord](t, resp)
	if got.Name != name || got.Description != desc {
		t.Errorf("got %q/%q, want %q/%q", got.Name, got.Description, name, desc)
	}

	newDesc := "updated"
	resp = f.do(t, "PATCH", "/api/v1/strategies/"+created.ID, SavedStrategyRequest{
		Description: &newDesc,
	})
	wantStatus(t, resp, http.StatusOK)
	patched := decodeBody[store.StrategyRecord](t, resp)
	if patched.Description != newDesc {
		t.Errorf("description = %q, want %q", patched.Description, newDesc)
	}
	if patched.Name != name {
		t.Errorf("PATCH clobbered name: %q", patched.Name)
	}

	resp = f.do(t, "GET", "/api/v1/strategies", nil)
	wantStatus(t, resp, http.StatusOK)
	list := decodeBody[StrategiesResponse](t, resp)
	if list.Count != 1 {
		t.Fatalf("count = %d, want 1", list.Count)
	}

	resp = f.do(t, "DELETE", "/api/v1/strategies/"+created.ID, nil)
	resp.Body.Close()
	wantStatus(t, resp, http.StatusNoContent)

	resp = f.do(t, "GET", "/api/v1/strategies/"+created.ID, nil)
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusNotFound)
}

func TestCreateSavedDuplicateName(t *testing.T) {
	f := newFixture(t)

	name := "dup"
	cfg := map[string]any{"type": "buy_hold"}
	req := SavedStrategyRequest{Name: &name, Config: &cfg}

	resp := f.do(t, "POST", "/api/v1/strategies", req)
	resp.Body.Close()
	wantStatus(t, resp, http.StatusCreated)

	resp = f.do(t, "POST", "/api/v1/strategies", req)
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusConflict)
}

func TestCreateSavedRejectsUnknownType(t *testing.T) {
	f := newFixture(t)

	name := "bad"
	cfg := map[string]any{"type": "nope"}
	resp := f.do(t, "POST", "/api/v1/strategies", SavedStrategyRequest{Name: &name, Config: &cfg})
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusBadRequest)
}

func TestDeleteSavedWithBacktestsConflicts(t *testing.T) {
	f := newFixture(t)

	name := "referenced"
	cfg := map[string]any{"type": "buy_hold"}
	resp := f.do(t, "POST", "/api/v1/strategies", SavedStrategyRequest{Name: &name, Config: &cfg})
	wantStatus(t, resp, http.StatusCreated)
	created := decodeBody[store.StrategyRecord](t, resp)

	rec := &store.BacktestRecord{
		StrategyID:   created.ID,
		StrategyType: "buy_hold",
		Ticker:       "TEST",
		StartDate:    time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := f.saved.SaveBacktest(context.Background(), rec); err != nil {
		t.Fatalf("SaveBacktest: %v", err)
	}

	resp = f.do(t, "DELETE", "/api/v1/strategies/"+created.ID, nil)
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusConflict)
}

func TestListBacktestsFilter(t *testing.T) {
	f := newFixture(t)

	for _, id := range []string{"strat-a", "strat-a", "strat-b"} {
		rec := &store.BacktestRecord{
			StrategyID:   id,
			StrategyType: "buy_hold",
			Ticker:       "TEST",
			StartDate:    time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
			EndDate:      time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
		}
		if err := f.saved.SaveBacktest(context.Background(), rec); err != nil {
			t.Fatalf("SaveBacktest: %v", err)
		}
	}

	resp := f.do(t, "GET", "/api/v1/backtests", nil)
	wantStatus(t, resp, http.StatusOK)
	all := decodeBody[BacktestsResponse](t, resp)
	if all.Count != 3 {
		t.Errorf("count = %d, want 3", all.Count)
	}

	resp = f.do(t, "GET", "/api/v1/backtests?strategy_id=strat-a", nil)
	wantStatus(t, resp, http.StatusOK)
	filtered := decodeBody[BacktestsResponse](t, resp)
	if filtered.Count != 2 {
		t.Errorf("filtered count = %d, want 2", filtered.Count)
	}
}

func TestGetBacktestNotFound(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "GET", "/api/v1/backtests/nope", nil)
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusNotFound)
}

func TestPersistenceUnavailable(t *testing.T) {
	registry := strategy.NewRegistry()
	builtins.Register(registry)
	provider := &stubProvider{bars: testBars(30)}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewServer(registry, indicator.DefaultRegistry(), provider,
		nil, nil, backtest.DefaultConfig(), "TEST", log)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/strategies")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusServiceUnavailable)
}

func TestComputeIndicator(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "POST", "/api/v1/indicators/compute", IndicatorComputeRequest{
		Indicator: "sma",
		Params:    map[string]any{"length": 20},
	})
	wantStatus(t, resp, http.StatusOK)
	got := decodeBody[IndicatorComputeResponse](t, resp)

	if got.Indicator != "sma" {
		t.Errorf("indicator = %q", got.Indicator)
	}
	series, ok := got.Series["sma"]
	if !ok {
		t.Fatalf("series keys = %v, want sma", keysOf(got.Series))
	}
	if len(series) != len(got.Dates) {
		t.Fatalf("series len = %d, dates len = %d", len(series), len(got.Dates))
	}
	// First period-1 values are warm-up nulls; the rest are populated.
	for i := 0; i < 19; i++ {
		if series[i] != nil {
			t.Fatalf("series[%d] = %v, want null during warm-up", i, *series[i])
		}
	}
	if series[19] == nil {
		t.Fatal("series[19] is null, want first computed value")
	}
}

func TestComputeIndicatorUnknown(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "POST", "/api/v1/indicators/compute", IndicatorComputeRequest{
		Indicator: "nope",
	})
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusBadRequest)
}

func TestListIndicators(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "GET", "/api/v1/indicators", nil)
	wantStatus(t, resp, http.StatusOK)
	got := decodeBody[map[string]json.RawMessage](t, resp)
	if _, ok := got["indicators"]; !ok {
		t.Error("indicators key missing")
	}
}

func TestDataSummary(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "GET", "/api/v1/data/summary?ticker=TEST", nil)
	wantStatus(t, resp, http.StatusOK)
	got := decodeBody[data.Summary](t, resp)

	if got.Ticker != "TEST" {
		t.Errorf("ticker = %q", got.Ticker)
	}
	if got.TotalRecords != 120 {
		t.Errorf("total_records = %d, want 120", got.TotalRecords)
	}
}

func TestDataRefresh(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "POST", "/api/v1/data/refresh", RefreshRequest{Ticker: "TEST"})
	wantStatus(t, resp, http.StatusOK)
	got := decodeBody[RefreshResponse](t, resp)

	if got.Bars != 120 {
		t.Errorf("bars = %d, want 120", got.Bars)
	}
	if f.provider.refreshN != 1 {
		t.Errorf("refresh calls = %d, want 1", f.provider.refreshN)
	}
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)

	req, _ := http.NewRequest("OPTIONS", f.srv.URL+"/api/v1/backtesting/run", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	f := newFixture(t)

	req, _ := http.NewRequest("POST", f.srv.URL+"/api/v1/backtesting/run",
		bytes.NewReader([]byte(`{"strategy_type":"buy_hold","bogus":1}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusBadRequest)
}

func keysOf[V any](m map[string][]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
