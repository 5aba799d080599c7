// Package marketdata fetches historical price, market-cap and volume series
// for a token from a CoinGecko-compatible API.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"alphawatch/internal/models"
)

// Client is a client for the market data API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// marketChartResponse mirrors the market_chart payload: each series is a list
// of [timestamp_ms, value] pairs.
type marketChartResponse struct {
	Prices       [][2]float64 `json:"prices"`
	MarketCaps   [][2]float64 `json:"market_caps"`
	TotalVolumes [][2]float64 `json:"total_volumes"`
}

// NewClient creates a new market data client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// HistoricalSeries fetches the last day of market data for a token.
func (c *Client) HistoricalSeries(ctx context.Context, token string) (*models.MarketSeries, error) {
	endpoint := fmt.Sprintf("%s/coins/%s/market_chart", c.baseURL, url.PathEscape(strings.ToLower(token)))

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	q := req.URL.Query()
	q.Set("vs_currency", "usd")
	q.Set("days", "1")
	req.URL.RawQuery = q.Encode()

	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("market data API returned status %d: %s", resp.StatusCode, string(body))
	}

	var chart marketChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	series := &models.MarketSeries{
		Prices:       flatten(chart.Prices),
		MarketCaps:   flatten(chart.MarketCaps),
		TotalVolumes: flatten(chart.TotalVolumes),
	}
	if len(series.Prices) == 0 {
		return nil, fmt.Errorf("no market data for token %q", token)
	}
	return series, nil
}

func flatten(pairs [][2]float64) []float64 {
	values := make([]float64, 0, len(pairs))
	for _, p := range pairs {
		values = append(values, p[1])
	}
	return values
}
