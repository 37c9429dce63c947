package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altscore/altscore/internal/config"
	"github.com/altscore/altscore/internal/logging"
	"github.com/altscore/altscore/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testConfig returns a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Port:           "0",
		Env:            "development",
		LogLevel:       "error",
		LogFormat:      "text",
		MLTemperature:  config.DefaultMLTemperature,
		ProfileTTL:     time.Hour,
		RateLimitRPS:   1000,
		AllowedOrigins: []string{"*"},
	}
}

// newTestServer creates an in-memory server with local models only
func newTestServer(t *testing.T) *Server {
	t.Helper()
	reg, err := model.New(model.Options{DisableAnomaly: true})
	require.NoError(t, err)

	s, err := New(testConfig(), WithModels(reg), WithLogger(logging.Discard()), WithVersion("test"))
	require.NoError(t, err)
	s.drainDelay = 0
	t.Cleanup(func() { s.rateLimiter.Stop() })
	return s
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := do(s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "test", resp.Version)
	assert.Equal(t, "memory", resp.Storage)
	assert.Equal(t, "heuristic", string(resp.Engine))
	assert.NotEmpty(t, resp.Timestamp)
}

func TestHealthIncludesModelServer(t *testing.T) {
	reg, err := model.New(model.Options{
		DisableAnomaly: true,
		RemoteURL:      "http://127.0.0.1:1",
		RemoteTimeout:  50 * time.Millisecond,
	})
	require.NoError(t, err)
	s, err := New(testConfig(), WithModels(reg), WithLogger(logging.Discard()))
	require.NoError(t, err)
	defer s.rateLimiter.Stop()

	rc := reg.Remote.(*model.RemoteClient)
	assert.Equal(t, "closed", rc.BreakerState().String())

	w := do(s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "model_server")
}

func TestLivenessEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := do(s, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, w.Code)

	s.healthy.Store(false)
	w = do(s, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReadinessEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := do(s, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, "not ready before Run")

	s.ready.Store(true)
	w = do(s, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCoreRoutesRegistered(t *testing.T) {
	s := newTestServer(t)

	routes := map[string]bool{}
	for _, r := range s.Router().Routes() {
		routes[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /health",
		"GET /metrics",
		"GET /ws",
		"POST /v1/credit/score",
		"GET /v1/credit/:userId/history",
		"GET /v1/scores/:id",
		"POST /v1/features",
		"POST /v1/risk/transactions",
		"GET /v1/risk/:userId",
		"POST /v1/transactions/import",
		"GET /v1/realtime/stats",
	} {
		assert.True(t, routes[want], "missing route %s", want)
	}
}

func TestScoreAndHistoryFlow(t *testing.T) {
	s := newTestServer(t)

	body := `{"userId":"u-1","mode":"fallback","transactions":[
		{"ts":"2024-01-05T10:00:00Z","amount":3000,"type":"credit","merchant":"Employer","channel":"Bank"},
		{"ts":"2024-01-06T10:00:00Z","amount":-120,"type":"debit","merchant":"Cafe","channel":"Cash"}
	]}`
	w := do(s, http.MethodPost, "/v1/credit/score", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(logging.RequestIDHeader))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	var scored struct {
		ID     string `json:"id"`
		Score  int    `json:"score"`
		Source string `json:"source"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &scored))
	assert.GreaterOrEqual(t, scored.Score, 300)
	assert.LessOrEqual(t, scored.Score, 850)
	assert.Equal(t, "local", scored.Source)

	w = do(s, http.MethodGet, "/v1/credit/u-1/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), scored.ID)

	w = do(s, http.MethodGet, "/v1/scores/"+scored.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRiskFlow(t *testing.T) {
	s := newTestServer(t)

	body := `{"user_id":"u-2","transactions":[
		{"ts":"2024-01-05T10:00:00Z","amount":100,"type":"debit","merchant":"Cafe"},
		{"ts":"2024-01-06T10:00:00Z","amount":90000,"type":"debit","merchant":"Binance"}
	]}`
	w := do(s, http.MethodPost, "/v1/risk/transactions", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "transaction_risk_score")

	w = do(s, http.MethodGet, "/v1/risk/u-2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "u-2")
}

func TestInvalidUserIDRejected(t *testing.T) {
	s := newTestServer(t)
	w := do(s, http.MethodGet, "/v1/risk/bad%20id", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/v1/credit/score", nil)
	req.Header.Set("Origin", "https://app.example")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestNotFoundRoute(t *testing.T) {
	s := newTestServer(t)
	w := do(s, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, s.ready.Load, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.False(t, s.ready.Load())
}

func TestMaskDSN(t *testing.T) {
	masked := maskDSN("postgres://app:secret@db:5432/altscore")
	assert.NotContains(t, masked, "secret")
	assert.Contains(t, masked, "app:")
	assert.Equal(t, "postgres://db/altscore", maskDSN("postgres://db/altscore"))
}
