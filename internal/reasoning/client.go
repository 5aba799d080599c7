// Package reasoning calls an OpenAI-compatible chat-completions API for the
// language-model stages of the pipeline: signal extraction, evidence
// corroboration and sentiment classification.
package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"alphawatch/internal/models"
)

// Config for the reasoning client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client wraps the chat-completions API.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float32       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("reasoning API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "llama-3.3-70b-versatile"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger.Info("Reasoning client initialized", zap.String("model", cfg.Model))

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}, nil
}

// ExtractSignals derives token calls from a window of messages.
func (c *Client) ExtractSignals(ctx context.Context, window []models.RawMessage) ([]models.Signal, error) {
	prompt, err := buildExtractPrompt(window)
	if err != nil {
		return nil, err
	}

	content, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var signals []models.Signal
	if err := json.Unmarshal([]byte(cleanModelJSON(content)), &signals); err != nil {
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}
	return signals, nil
}

// Corroborate sources fresh social posts discussing the signal's token.
func (c *Client) Corroborate(ctx context.Context, signal models.Signal) ([]string, error) {
	content, err := c.generate(ctx, buildCorroboratePrompt(signal))
	if err != nil {
		return nil, err
	}

	var out struct {
		Tweets []string `json:"tweets"`
	}
	if err := json.Unmarshal([]byte(cleanModelJSON(content)), &out); err != nil {
		return nil, fmt.Errorf("failed to parse corroboration response: %w", err)
	}
	return out.Tweets, nil
}

// Classify derives a binary sentiment for the token from the evidence.
func (c *Client) Classify(ctx context.Context, evidence []string, token string) (string, error) {
	prompt, err := buildClassifyPrompt(evidence, token)
	if err != nil {
		return "", err
	}

	content, err := c.generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	var out struct {
		Sentiment string `json:"sentiment"`
	}
	if err := json.Unmarshal([]byte(cleanModelJSON(content)), &out); err != nil {
		return "", fmt.Errorf("failed to parse classification response: %w", err)
	}
	if out.Sentiment != models.SentimentPositive && out.Sentiment != models.SentimentNegative {
		return "", fmt.Errorf("unexpected sentiment %q", out.Sentiment)
	}
	return out.Sentiment, nil
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Stream:      false,
		Temperature: 0.3,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("reasoning API error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reasoning API returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty response from reasoning API")
	}
	return parsed.Choices[0].Message.Content, nil
}

// cleanModelJSON strips a leading reasoning block and markdown code fences
// from model output, leaving the JSON payload.
func cleanModelJSON(content string) string {
	if _, after, found := strings.Cut(content, "</think>"); found {
		content = after
	}
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
