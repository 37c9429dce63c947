package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// maxResponseBytes caps how much of an API response is read.
const maxResponseBytes = 4 << 20

// Config holds the configuration for connecting to the scoring API.
type Config struct {
	APIURL  string // Base URL, e.g. "http://localhost:8080"
	Timeout time.Duration
}

// Client is a pure HTTP client for the scoring API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a new client for the scoring API.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// apiError represents an error response from the API.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// doRequest makes an HTTP request to the API and returns the response body.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	u, err := url.Parse(c.cfg.APIURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return json.RawMessage(respBody), nil
}

// ScoreCredit requests a credit score for the given transactions.
func (c *Client) ScoreCredit(ctx context.Context, userID string, transactions any, mode string) (json.RawMessage, error) {
	body := map[string]any{"transactions": transactions}
	if userID != "" {
		body["userId"] = userID
	}
	if mode != "" {
		body["mode"] = mode
	}
	return c.doRequest(ctx, http.MethodPost, "/v1/credit/score", nil, body)
}

// CreditHistory lists a user's issued scores, newest first.
func (c *Client) CreditHistory(ctx context.Context, userID string, limit int) (json.RawMessage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.doRequest(ctx, http.MethodGet, "/v1/credit/"+url.PathEscape(userID)+"/history", q, nil)
}

// ExtractFeatures returns the feature vector for the given transactions.
func (c *Client) ExtractFeatures(ctx context.Context, transactions any) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPost, "/v1/features", nil, map[string]any{"transactions": transactions})
}

// AssessTransactions scores transactions for fraud risk.
func (c *Client) AssessTransactions(ctx context.Context, userID string, transactions any) (json.RawMessage, error) {
	body := map[string]any{"transactions": transactions}
	if userID != "" {
		body["user_id"] = userID
	}
	return c.doRequest(ctx, http.MethodPost, "/v1/risk/transactions", nil, body)
}

// RiskSummary returns a user's combined risk summary.
func (c *Client) RiskSummary(ctx context.Context, userID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/risk/"+url.PathEscape(userID), nil, nil)
}
