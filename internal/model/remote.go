package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/altscore/altscore/internal/circuitbreaker"
	"github.com/altscore/altscore/internal/features"
	"github.com/altscore/altscore/internal/metrics"
	"github.com/altscore/altscore/internal/retry"
	"github.com/altscore/altscore/internal/traces"
)

// Remote endpoints, also used as circuit breaker keys.
const (
	EndpointPredict = "/predict"
	EndpointExplain = "/explain"
)

const maxResponseBytes = 1 << 20

// RemoteClient calls an external model server. It implements Classifier and
// Attributor. Calls are retried with backoff and guarded by a per-endpoint
// circuit breaker.
type RemoteClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *circuitbreaker.Breaker
	policy     retry.Policy
}

// RemoteOption configures a RemoteClient.
type RemoteOption func(*RemoteClient)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *RemoteClient) { r.httpClient = c }
}

// WithRetryPolicy replaces retry.DefaultPolicy.
func WithRetryPolicy(p retry.Policy) RemoteOption {
	return func(r *RemoteClient) { r.policy = p }
}

// WithBreaker replaces the default breaker (5 failures, 30s open).
func WithBreaker(b *circuitbreaker.Breaker) RemoteOption {
	return func(r *RemoteClient) { r.breaker = b }
}

// NewRemoteClient creates a client for the model server at baseURL.
func NewRemoteClient(baseURL string, timeout time.Duration, opts ...RemoteOption) *RemoteClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	c := &RemoteClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    circuitbreaker.New(5, 30*time.Second),
		policy:     retry.DefaultPolicy,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BreakerState reports the circuit state of the predict endpoint.
func (c *RemoteClient) BreakerState() circuitbreaker.State {
	return c.breaker.State(EndpointPredict)
}

type featuresRequest struct {
	Features features.Vector `json:"features"`
}

type predictResponse struct {
	ProbGood *float64 `json:"prob_good"`
}

type explainResponse struct {
	SHAP []float64 `json:"shap"`
}

// PredictProbability implements Classifier. The returned value is not
// clamped; callers clamp at the boundary.
func (c *RemoteClient) PredictProbability(ctx context.Context, v features.Vector) (float64, error) {
	var out predictResponse
	if err := c.call(ctx, EndpointPredict, featuresRequest{Features: v}, &out); err != nil {
		return 0, err
	}
	if out.ProbGood == nil || math.IsNaN(*out.ProbGood) {
		return 0, fmt.Errorf("%w: missing prob_good", ErrBadResponse)
	}
	return *out.ProbGood, nil
}

// Attribute implements Attributor.
func (c *RemoteClient) Attribute(ctx context.Context, v features.Vector) ([]float64, error) {
	var out explainResponse
	if err := c.call(ctx, EndpointExplain, featuresRequest{Features: v}, &out); err != nil {
		return nil, err
	}
	if len(out.SHAP) != len(features.Names) {
		return nil, fmt.Errorf("%w: want %d attributions, got %d", ErrBadResponse, len(features.Names), len(out.SHAP))
	}
	return out.SHAP, nil
}

func (c *RemoteClient) call(ctx context.Context, endpoint string, body, out any) error {
	ctx, span := traces.StartSpan(ctx, "model.remote"+endpoint, traces.ModelEndpoint(endpoint))
	defer span.End()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}

	err = c.breaker.Execute(endpoint, func() error {
		return retry.Do(ctx, c.policy, func(ctx context.Context) error {
			return c.post(ctx, endpoint, payload, out)
		})
	})
	if err != nil {
		traces.RecordError(span, err)
		return fmt.Errorf("model %s: %w", endpoint, err)
	}
	return nil
}

func (c *RemoteClient) post(ctx context.Context, endpoint string, payload []byte, out any) error {
	timer := time.Now()
	defer func() {
		metrics.ModelRequestDuration.WithLabelValues(endpoint).Observe(time.Since(timer).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("model server error (%d)", resp.StatusCode)
	case resp.StatusCode >= 400:
		return retry.Permanent(fmt.Errorf("model server rejected request (%d): %s", resp.StatusCode, bytes.TrimSpace(respBody)))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return retry.Permanent(fmt.Errorf("%w: %v", ErrBadResponse, err))
	}
	return nil
}
