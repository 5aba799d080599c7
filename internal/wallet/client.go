// Package wallet queries the trading wallet service for balances.
package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a client for the wallet service API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type balanceResponse struct {
	Token   string  `json:"token"`
	Balance float64 `json:"balance"`
}

// NewClient creates a new wallet client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// HasFunding reports whether the wallet holds any base currency to buy with.
func (c *Client) HasFunding(ctx context.Context) (bool, error) {
	balance, err := c.balance(ctx, "")
	if err != nil {
		return false, err
	}
	return balance > 0, nil
}

// HasHolding reports whether the wallet holds a position in the given token.
func (c *Client) HasHolding(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, fmt.Errorf("token is required")
	}
	balance, err := c.balance(ctx, token)
	if err != nil {
		return false, err
	}
	return balance > 0, nil
}

func (c *Client) balance(ctx context.Context, token string) (float64, error) {
	endpoint := c.baseURL + "/api/v1/balance"
	if token != "" {
		endpoint += "/" + url.PathEscape(token)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("wallet service returned status %d: %s", resp.StatusCode, string(body))
	}

	var result balanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	return result.Balance, nil
}
