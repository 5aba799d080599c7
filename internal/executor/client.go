// Package executor submits trade orders to the execution service.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"alphawatch/internal/models"
)

// Client is a client for the trade execution API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type orderRequest struct {
	Token     string `json:"token"`
	Side      string `json:"side"`
	Sentiment string `json:"sentiment"`
}

type orderResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// NewClient creates a new executor client.
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

// Execute submits an order for the signal. Positive sentiment buys, negative
// sentiment sells.
func (c *Client) Execute(ctx context.Context, signal models.Signal) error {
	side := "buy"
	if signal.Sentiment == models.SentimentNegative {
		side = "sell"
	}

	reqBody := orderRequest{
		Token:     signal.Token,
		Side:      side,
		Sentiment: signal.Sentiment,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/orders", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("executor returned status %d: %s", resp.StatusCode, string(body))
	}

	var result orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Status == "rejected" {
		return fmt.Errorf("order %s rejected", result.OrderID)
	}
	return nil
}
