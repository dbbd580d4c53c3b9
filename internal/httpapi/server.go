// Package httpapi exposes the backtesting platform over a JSON REST API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"tradebench/internal/backtest"
	"tradebench/internal/data"
	"tradebench/internal/domain"
	"tradebench/internal/indicator"
	"tradebench/internal/store"
	"tradebench/internal/strategy"
)

// BarProvider supplies historical bars for a ticker. *data.Downloader is the
// production implementation; tests substitute a stub.
type BarProvider interface {
	Download(ctx context.Context, ticker string, start, end *time.Time, forceRefresh bool) ([]domain.Bar, error)
	Refresh(ctx context.Context, ticker string) ([]domain.Bar, error)
	Summary(ctx context.Context, ticker string) (*data.Summary, error)
}

// Server serves the tradebench HTTP API.
type Server struct {
	registry      *strategy.Registry
	indicators    *indicator.Registry
	provider      BarProvider
	saved         store.StrategyStore
	backtests     store.BacktestStore
	defaultCfg    backtest.Config
	defaultTicker string
	log           *slog.Logger
}

// NewServer wires the API's collaborators together. saved and backtests may
// be nil, in which case the persistence routes report 503. defaultTicker
// fills requests that omit a ticker.
func NewServer(
	registry *strategy.Registry,
	indicators *indicator.Registry,
	provider BarProvider,
	saved store.StrategyStore,
	backtests store.BacktestStore,
	defaultCfg backtest.Config,
	defaultTicker string,
	log *slog.Logger,
) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		registry:      registry,
		indicators:    indicators,
		provider:      provider,
		saved:         saved,
		backtests:     backtests,
		defaultCfg:    defaultCfg,
		defaultTicker: defaultTicker,
		log:           log,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/backtesting/strategies", s.handleListStrategyTypes)
	mux.HandleFunc("POST /api/v1/backtesting/run", s.handleRunBacktest)
	mux.HandleFunc("POST /api/v1/backtesting/compare", s.handleCompare)

	mux.HandleFunc("GET /api/v1/strategies", s.handleListSaved)
	mux.HandleFunc("POST /api/v1/strategies", s.handleCreateSaved)
	mux.HandleFunc("GET /api/v1/strategies/{id}", s.handleGetSaved)
	mux.HandleFunc("PATCH /api/v1/strategies/{id}", s.handleUpdateSaved)
	mux.HandleFunc("DELETE /api/v1/strategies/{id}", s.handleDeleteSaved)

	mux.HandleFunc("GET /api/v1/backtests", s.handleListBacktests)
	mux.HandleFunc("GET /api/v1/backtests/{id}", s.handleGetBacktest)

	mux.HandleFunc("GET /api/v1/indicators", s.handleListIndicators)
	mux.HandleFunc("POST /api/v1/indicators/compute", s.handleComputeIndicator)

	mux.HandleFunc("GET /api/v1/data/summary", s.handleDataSummary)
	mux.HandleFunc("POST /api/v1/data/refresh", s.handleDataRefresh)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeDomainError maps expected error kinds onto HTTP statuses; anything
// unrecognized is a 500.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, strategy.ErrUnknown),
		errors.Is(err, strategy.ErrInvalidParams),
		errors.Is(err, indicator.ErrUnknown),
		errors.Is(err, indicator.ErrInvalidParams),
		errors.Is(err, backtest.ErrInvalidConfig),
		errors.Is(err, backtest.ErrNoData):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, data.ErrNoBars), errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrExists), errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.log.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// ---------------------------------------------------------------------------
// Backtesting
// ---------------------------------------------------------------------------

func (s *Server) handleListStrategyTypes(w http.ResponseWriter, r *http.Request) {
	schemas := s.registry.List()
	writeJSON(w, http.StatusOK, StrategyListResponse{
		Status:     "success",
		Strategies: schemas,
		Count:      len(schemas),
	})
}

func (s *Server) handleRunBacktest(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.StrategyType == "" {
		writeError(w, http.StatusBadRequest, "strategy_type is required")
		return
	}
	ticker := req.Ticker
	if ticker == "" {
		ticker = s.defaultTicker
	}

	result, err := s.runOne(r.Context(), req.StrategyType, req.StrategyParams,
		ticker, req.StartDate, req.EndDate, req.Config)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	resp := BacktestResponse{Status: "success", Result: result}
	if s.backtests != nil {
		rec := recordFromResult(result)
		if err := s.backtests.SaveBacktest(r.Context(), rec); err != nil {
			s.log.Error("persisting backtest failed", "err", err)
		} else {
			resp.ID = rec.ID
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Strategies) < 2 {
		writeError(w, http.StatusBadRequest, "at least two strategies are required")
		return
	}
	ticker := req.Ticker
	if ticker == "" {
		ticker = s.defaultTicker
	}

	results := make([]*backtest.Result, 0, len(req.Strategies))
	names := make([]string, 0, len(req.Strategies))
	for _, sc := range req.Strategies {
		result, err := s.runOne(r.Context(), sc.Type, sc.Params,
			ticker, req.StartDate, req.EndDate, req.Config)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		results = append(results, result)
		name := sc.Name
		if name == "" {
			name = sc.Type
		}
		names = append(names, name)
	}

	writeJSON(w, http.StatusOK, CompareResponse{
		Status:     "success",
		Ticker:     ticker,
		Comparison: backtest.Compare(results, names),
	})
}

// runOne resolves the strategy, loads bars, and executes a single backtest.
func (s *Server) runOne(ctx context.Context, strategyType string, params map[string]any,
	ticker string, start, end *time.Time, cfg *backtest.Config) (*backtest.Result, error) {

	strat, err := s.registry.Create(strategyType, params)
	if err != nil {
		return nil, err
	}

	runCfg := s.defaultCfg
	if cfg != nil {
		runCfg = *cfg
	}
	engine, err := backtest.New(runCfg, s.log)
	if err != nil {
		return nil, err
	}

	bars, err := s.provider.Download(ctx, ticker, nil, nil, false)
	if err != nil {
		return nil, err
	}

	return engine.Run(strat, bars, ticker, start, end)
}

func recordFromResult(res *backtest.Result) *store.BacktestRecord {
	return &store.BacktestRecord{
		StrategyType:   res.StrategyType,
		Ticker:         res.Ticker,
		StartDate:      res.StartDate,
		EndDate:        res.EndDate,
		InitialCapital: res.InitialCapital,
		FinalCapital:   res.FinalCapital,
		Metrics:        res.Metrics,
		Result:         res,
	}
}

// ---------------------------------------------------------------------------
// Saved strategies
// ---------------------------------------------------------------------------

func (s *Server) requireSaved(w http.ResponseWriter) bool {
	if s.saved == nil {
		writeError(w, http.StatusServiceUnavailable, "strategy persistence not configured")
		return false
	}
	return true
}

// validateStrategyConfig checks that a saved config names a known strategy
// type with acceptable parameters.
func (s *Server) validateStrategyConfig(config map[string]any) error {
	typ, _ := config["type"].(string)
	if typ == "" {
		return fmt.Errorf("%w: config.type is required", strategy.ErrInvalidParams)
	}
	params, _ := config["params"].(map[string]any)
	_, err := s.registry.Create(typ, params)
	return err
}

func (s *Server) handleListSaved(w http.ResponseWriter, r *http.Request) {
	if !s.requireSaved(w) {
		return
	}
	recs, err := s.saved.ListStrategies(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if recs == nil {
		recs = []store.StrategyRecord{}
	}
	writeJSON(w, http.StatusOK, StrategiesResponse{Strategies: recs, Count: len(recs)})
}

func (s *Server) handleCreateSaved(w http.ResponseWriter, r *http.Request) {
	if !s.requireSaved(w) {
		return
	}
	var req SavedStrategyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Name == nil || *req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Config == nil {
		writeError(w, http.StatusBadRequest, "config is required")
		return
	}
	if err := s.validateStrategyConfig(*req.Config); err != nil {
		s.writeDomainError(w, err)
		return
	}

	rec := &store.StrategyRecord{Name: *req.Name, Config: *req.Config}
	if req.Description != nil {
		rec.Description = *req.Description
	}
	if err := s.saved.SaveStrategy(r.Context(), rec); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleGetSaved(w http.ResponseWriter, r *http.Request) {
	if !s.requireSaved(w) {
		return
	}
	rec, err := s.saved.GetStrategy(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleUpdateSaved(w http.ResponseWriter, r *http.Request) {
	if !s.requireSaved(w) {
		return
	}
	rec, err := s.saved.GetStrategy(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	var req SavedStrategyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Name != nil {
		rec.Name = *req.Name
	}
	if req.Description != nil {
		rec.Description = *req.Description
	}
	if req.Config != nil {
		if err := s.validateStrategyConfig(*req.Config); err != nil {
			s.writeDomainError(w, err)
			return
		}
		rec.Config = *req.Config
	}

	if err := s.saved.UpdateStrategy(r.Context(), rec); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteSaved(w http.ResponseWriter, r *http.Request) {
	if !s.requireSaved(w) {
		return
	}
	if err := s.saved.DeleteStrategy(r.Context(), r.PathValue("id")); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Persisted backtests
// ---------------------------------------------------------------------------

func (s *Server) requireBacktests(w http.ResponseWriter) bool {
	if s.backtests == nil {
		writeError(w, http.StatusServiceUnavailable, "backtest persistence not configured")
		return false
	}
	return true
}

func (s *Server) handleListBacktests(w http.ResponseWriter, r *http.Request) {
	if !s.requireBacktests(w) {
		return
	}
	recs, err := s.backtests.ListBacktests(r.Context(), r.URL.Query().Get("strategy_id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if recs == nil {
		recs = []store.BacktestRecord{}
	}
	writeJSON(w, http.StatusOK, BacktestsResponse{Backtests: recs, Count: len(recs)})
}

func (s *Server) handleGetBacktest(w http.ResponseWriter, r *http.Request) {
	if !s.requireBacktests(w) {
		return
	}
	rec, err := s.backtests.GetBacktest(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ---------------------------------------------------------------------------
// Indicators
// ---------------------------------------------------------------------------

func (s *Server) handleListIndicators(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"indicators": s.indicators.List(),
	})
}

func (s *Server) handleComputeIndicator(w http.ResponseWriter, r *http.Request) {
	var req IndicatorComputeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Indicator == "" {
		writeError(w, http.StatusBadRequest, "indicator is required")
		return
	}
	ticker := req.Ticker
	if ticker == "" {
		ticker = s.defaultTicker
	}

	ind, err := s.indicators.Create(req.Indicator, req.Params)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	bars, err := s.provider.Download(r.Context(), ticker, req.StartDate, req.EndDate, false)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	series, err := ind.Compute(bars)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	dates := make([]time.Time, len(bars))
	for i, b := range bars {
		dates[i] = b.Timestamp
	}
	out := make(map[string][]*float64, len(series))
	for col, values := range series {
		out[col] = nullableFloats(values)
	}

	writeJSON(w, http.StatusOK, IndicatorComputeResponse{
		Ticker:    ticker,
		Indicator: ind.Name(),
		Params:    ind.Params(),
		Dates:     dates,
		Series:    out,
	})
}

// nullableFloats converts NaN warm-up values to JSON nulls.
func nullableFloats(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		if !math.IsNaN(values[i]) {
			v := values[i]
			out[i] = &v
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Data
// ---------------------------------------------------------------------------

func (s *Server) handleDataSummary(w http.ResponseWriter, r *http.Request) {
	ticker := r.URL.Query().Get("ticker")
	if ticker == "" {
		ticker = s.defaultTicker
	}
	summary, err := s.provider.Summary(r.Context(), ticker)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleDataRefresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	ticker := req.Ticker
	if ticker == "" {
		ticker = s.defaultTicker
	}

	bars, err := s.provider.Refresh(r.Context(), ticker)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RefreshResponse{
		Status:      "success",
		Ticker:      ticker,
		Bars:        len(bars),
		RefreshedAt: time.Now().UTC(),
	})
}
