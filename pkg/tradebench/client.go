// Package tradebench provides a Go client for the tradebench-server REST
// API. Types mirror the server's JSON contract so importers do not depend on
// server internals.
package tradebench

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client talks to a tradebench-server instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given base URL, e.g.
// "http://localhost:8080".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ListStrategyTypes returns the strategy types the server can run.
func (c *Client) ListStrategyTypes(ctx context.Context) ([]StrategySchema, error) {
	var resp struct {
		Strategies []StrategySchema `json:"strategies"`
	}
	if err := c.do(ctx, "GET", "/api/v1/backtesting/strategies", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Strategies, nil
}

// RunBacktest executes a backtest on the server. The returned ID is empty
// when the server has no persistence configured.
func (c *Client) RunBacktest(ctx context.Context, req RunRequest) (*Result, string, error) {
	var resp struct {
		ID     string  `json:"id"`
		Result *Result `json:"result"`
	}
	if err := c.do(ctx, "POST", "/api/v1/backtesting/run", req, &resp); err != nil {
		return nil, "", err
	}
	return resp.Result, resp.ID, nil
}

// Compare runs several strategies over the same series and returns their
// relative performance.
func (c *Client) Compare(ctx context.Context, req CompareRequest) (*Comparison, error) {
	var resp struct {
		Comparison *Comparison `json:"comparison"`
	}
	if err := c.do(ctx, "POST", "/api/v1/backtesting/compare", req, &resp); err != nil {
		return nil, err
	}
	return resp.Comparison, nil
}

// DataSummary reports coverage and quality of the server's cached bars for a
// ticker.
func (c *Client) DataSummary(ctx context.Context, ticker string) (*DataSummary, error) {
	path := "/api/v1/data/summary"
	if ticker != "" {
		path += "?ticker=" + url.QueryEscape(ticker)
	}
	var resp DataSummary
	if err := c.do(ctx, "GET", path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RefreshData forces the server to re-download bars for a ticker. It returns
// the number of bars now cached.
func (c *Client) RefreshData(ctx context.Context, ticker string) (int, error) {
	var resp struct {
		Bars int `json:"bars"`
	}
	body := map[string]string{"ticker": ticker}
	if err := c.do(ctx, "POST", "/api/v1/data/refresh", body, &resp); err != nil {
		return 0, err
	}
	return resp.Bars, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tradebench: %d %s", e.StatusCode, e.Message)
}
