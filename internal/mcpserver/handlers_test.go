package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Test helpers ---

func newTestSetup(handler http.Handler) (*Handlers, func()) {
	ts := httptest.NewServer(handler)
	h := NewHandlers(NewClient(Config{APIURL: ts.URL}))
	return h, ts.Close
}

func makeRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	if args == nil {
		args = map[string]any{}
	}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content, "expected at least one content block")
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text
}

func sampleTxns() []any {
	return []any{
		map[string]any{"ts": "2024-01-05T10:00:00Z", "amount": 3000.0, "type": "credit", "merchant": "Employer"},
		map[string]any{"ts": "2024-01-06T22:00:00Z", "amount": -120.0, "type": "debit", "merchant": "Cafe"},
	}
}

// ============================================================
// Client tests
// ============================================================

func TestClient_HTTPError_WithAPIMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":   "model_unavailable",
			"message": "No credit model is loaded",
		})
	}))
	defer ts.Close()

	client := NewClient(Config{APIURL: ts.URL})
	_, err := client.ScoreCredit(context.Background(), "u1", sampleTxns(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "No credit model is loaded")
}

func TestClient_HTTPError_NonJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream timeout"))
	}))
	defer ts.Close()

	client := NewClient(Config{APIURL: ts.URL})
	_, err := client.RiskSummary(context.Background(), "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream timeout")
}

func TestClient_ConnectionRefused(t *testing.T) {
	client := NewClient(Config{APIURL: "http://127.0.0.1:1"})
	_, err := client.RiskSummary(context.Background(), "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

func TestClient_CancelledContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Second)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	client := NewClient(Config{APIURL: ts.URL})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.RiskSummary(ctx, "u1")
	require.Error(t, err)
}

func TestClient_ScoreCreditBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/credit/score", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		var got map[string]any
		assert.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, "u1", got["userId"])
		assert.Equal(t, "fallback", got["mode"])
		assert.Len(t, got["transactions"], 2)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	_, err := NewClient(Config{APIURL: ts.URL}).ScoreCredit(context.Background(), "u1", sampleTxns(), "fallback")
	require.NoError(t, err)
}

func TestClient_OmitsEmptyOptionalFields(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.NotContains(t, got, "user_id")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	_, err := NewClient(Config{APIURL: ts.URL}).AssessTransactions(context.Background(), "", sampleTxns())
	require.NoError(t, err)
}

func TestClient_CreditHistoryEscapesUser(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/credit/a%2Fb/history", r.URL.EscapedPath())
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"scores":[]}`))
	}))
	defer ts.Close()

	_, err := NewClient(Config{APIURL: ts.URL}).CreditHistory(context.Background(), "a/b", 5)
	require.NoError(t, err)
}

// ============================================================
// Handler tests
// ============================================================

func TestHandleScoreCredit(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"id":"s-1","userId":"u1","score":742,"tier":"Gold","prob_good":0.8123,"source":"remote",
			"contributions":[
				{"feature":"monthly_avg_income","shap":0.3,"points":12,"description":"Higher monthly income"},
				{"feature":"night_txn_ratio","shap":-0.1,"points":-4,"description":"More night-time activity"}
			],
			"features":{"monthly_avg_income":3000,"night_txn_ratio":0.5}
		}`))
	}))
	defer cleanup()

	result, err := h.HandleScoreCredit(context.Background(), makeRequest(map[string]any{
		"user_id":      "u1",
		"transactions": sampleTxns(),
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "Credit Score: 742 (Gold)")
	assert.Contains(t, text, "81.23%")
	assert.Contains(t, text, "+12  Higher monthly income")
	assert.Contains(t, text, "-4  More night-time activity")
	assert.Contains(t, text, "monthly_avg_income")
}

func TestHandleScoreCredit_ExplanationUnavailable(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"score":575,"tier":"Bronze","prob_good":0.5,"source":"local","contributions":[],"explanation":"unavailable"}`))
	}))
	defer cleanup()

	result, err := h.HandleScoreCredit(context.Background(), makeRequest(map[string]any{"transactions": []any{}}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "Explanation unavailable")
}

func TestHandleScoreCredit_MissingTransactions(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("API must not be called")
	}))
	defer cleanup()

	result, err := h.HandleScoreCredit(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "transactions is required")

	result, err = h.HandleScoreCredit(context.Background(), makeRequest(map[string]any{"transactions": "nope"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleScoreCredit_APIError(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_mode","message":"mode must be ml or fallback"}`))
	}))
	defer cleanup()

	result, err := h.HandleScoreCredit(context.Background(), makeRequest(map[string]any{
		"transactions": sampleTxns(),
		"mode":         "bogus",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "mode must be ml or fallback")
}

func TestHandleGetCreditHistory(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"scores":[
			{"score":700,"tier":"Silver","source":"local","createdAt":"2024-05-02T00:00:00Z"},
			{"score":650,"tier":"Silver","source":"remote"}
		],"count":2,"has_more":true}`))
	}))
	defer cleanup()

	result, err := h.HandleGetCreditHistory(context.Background(), makeRequest(map[string]any{"user_id": "u1"}))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "2 score(s)")
	assert.Contains(t, text, "1. 700 (Silver) via local at 2024-05-02T00:00:00Z")
	assert.Contains(t, text, "More scores are available")
}

func TestHandleGetCreditHistory_Empty(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"scores":[],"count":0,"has_more":false}`))
	}))
	defer cleanup()

	result, err := h.HandleGetCreditHistory(context.Background(), makeRequest(map[string]any{"user_id": "u1"}))
	require.NoError(t, err)
	assert.Equal(t, "No credit scores recorded for u1.", resultText(t, result))

	result, err = h.HandleGetCreditHistory(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleExtractFeatures(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/features", r.URL.Path)
		_, _ = w.Write([]byte(`{"features":{"monthly_avg_income":3000,"cash_ratio":0.25},"parsed":2,"dropped":1}`))
	}))
	defer cleanup()

	result, err := h.HandleExtractFeatures(context.Background(), makeRequest(map[string]any{"transactions": sampleTxns()}))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "Parsed 2 transaction(s), dropped 1.")
	assert.Contains(t, text, "monthly_avg_income")
	assert.Contains(t, text, "0.2500")
}

func TestHandleAssessTransactions(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/risk/transactions", r.URL.Path)
		_, _ = w.Write([]byte(`{"user_id":"u1","transaction_risk_score":0.82,
			"alerts":["Crypto txn: 90000 @ Binance"],"stats":{"avg":45050,"last":90000},
			"engine":"heuristic","transaction_count":2}`))
	}))
	defer cleanup()

	result, err := h.HandleAssessTransactions(context.Background(), makeRequest(map[string]any{
		"user_id":      "u1",
		"transactions": sampleTxns(),
	}))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "Transaction Risk: 0.82 (high)")
	assert.Contains(t, text, "Crypto txn: 90000 @ Binance")
	assert.Contains(t, text, "Engine: heuristic")
}

func TestHandleGetRiskSummary(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/risk/u1", r.URL.Path)
		_, _ = w.Write([]byte(`{"user_id":"u1","total_risk_score":0.45,"behaviour_score":0.7,
			"alerts":["Spending deviation > 3x average"],
			"transactions":{"transaction_risk_score":0.76}}`))
	}))
	defer cleanup()

	result, err := h.HandleGetRiskSummary(context.Background(), makeRequest(map[string]any{"user_id": "u1"}))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "Risk Summary for u1: 0.45 (medium)")
	assert.Contains(t, text, "Transaction risk: 0.76")
	assert.Contains(t, text, "Spending deviation > 3x average")
}

func TestHandleGetRiskSummary_NoProfile(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user_id":"u9","total_risk_score":0,"behaviour_score":0,"alerts":[]}`))
	}))
	defer cleanup()

	result, err := h.HandleGetRiskSummary(context.Background(), makeRequest(map[string]any{"user_id": "u9"}))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "(low)")
	assert.Contains(t, text, "No transaction profile on record.")
	assert.Contains(t, text, "No alerts.")
}

func TestRiskLevel(t *testing.T) {
	assert.Equal(t, "low", riskLevel(0.3))
	assert.Equal(t, "medium", riskLevel(0.5))
	assert.Equal(t, "medium", riskLevel(0.7))
	assert.Equal(t, "high", riskLevel(0.71))
}

func TestNewMCPServer(t *testing.T) {
	s := NewMCPServer(Config{APIURL: "http://localhost:8080"})
	require.NotNil(t, s)
}
