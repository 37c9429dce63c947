package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/altscore/altscore/internal/features"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *Client
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *Client) *Handlers {
	return &Handlers{client: client}
}

// HandleScoreCredit scores a transaction history.
func (h *Handlers) HandleScoreCredit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	txns, errResult := transactionsArg(req)
	if errResult != nil {
		return errResult, nil
	}

	raw, err := h.client.ScoreCredit(ctx, req.GetString("user_id", ""), txns, req.GetString("mode", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to score credit: %v", err)), nil
	}

	text, err := formatCreditScore(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse score: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// HandleGetCreditHistory lists a user's previous scores.
func (h *Handlers) HandleGetCreditHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := req.GetString("user_id", "")
	if userID == "" {
		return mcp.NewToolResultError("user_id is required"), nil
	}

	raw, err := h.client.CreditHistory(ctx, userID, req.GetInt("limit", 0))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get credit history: %v", err)), nil
	}

	text, err := formatCreditHistory(userID, raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse history: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// HandleExtractFeatures returns the feature vector without scoring.
func (h *Handlers) HandleExtractFeatures(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	txns, errResult := transactionsArg(req)
	if errResult != nil {
		return errResult, nil
	}

	raw, err := h.client.ExtractFeatures(ctx, txns)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to extract features: %v", err)), nil
	}

	var resp struct {
		Features map[string]float64 `json:"features"`
		Parsed   int                `json:"parsed"`
		Dropped  int                `json:"dropped"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse features: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Parsed %d transaction(s), dropped %d.\n\n", resp.Parsed, resp.Dropped)
	writeFeatures(&sb, resp.Features)
	return mcp.NewToolResultText(sb.String()), nil
}

// HandleAssessTransactions scores transactions for fraud risk.
func (h *Handlers) HandleAssessTransactions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	txns, errResult := transactionsArg(req)
	if errResult != nil {
		return errResult, nil
	}

	raw, err := h.client.AssessTransactions(ctx, req.GetString("user_id", ""), txns)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to assess transactions: %v", err)), nil
	}

	text, err := formatAssessment(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse assessment: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// HandleGetRiskSummary returns a user's combined risk summary.
func (h *Handlers) HandleGetRiskSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := req.GetString("user_id", "")
	if userID == "" {
		return mcp.NewToolResultError("user_id is required"), nil
	}

	raw, err := h.client.RiskSummary(ctx, userID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get risk summary: %v", err)), nil
	}

	text, err := formatRiskSummary(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse risk summary: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func transactionsArg(req mcp.CallToolRequest) ([]any, *mcp.CallToolResult) {
	raw, ok := req.GetArguments()["transactions"]
	if !ok || raw == nil {
		return nil, mcp.NewToolResultError("transactions is required")
	}
	txns, ok := raw.([]any)
	if !ok {
		return nil, mcp.NewToolResultError("transactions must be an array of objects")
	}
	return txns, nil
}

type contribution struct {
	Feature     string  `json:"feature"`
	Points      int     `json:"points"`
	Description string  `json:"description"`
	SHAP        float64 `json:"shap"`
}

type creditScore struct {
	ID            string             `json:"id"`
	UserID        string             `json:"userId"`
	Score         int                `json:"score"`
	Tier          string             `json:"tier"`
	ProbGood      float64            `json:"prob_good"`
	Contributions []contribution     `json:"contributions"`
	Features      map[string]float64 `json:"features"`
	Summary       []string           `json:"summary"`
	Source        string             `json:"source"`
	Explanation   string             `json:"explanation"`
	CreatedAt     string             `json:"createdAt"`
}

func formatCreditScore(raw json.RawMessage) (string, error) {
	var s creditScore
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Credit Score: %d (%s)\n", s.Score, s.Tier)
	fmt.Fprintf(&sb, "  Probability of good outcome: %.2f%%\n", s.ProbGood*100)
	fmt.Fprintf(&sb, "  Model: %s\n", s.Source)
	if s.ID != "" {
		fmt.Fprintf(&sb, "  Score ID: %s\n", s.ID)
	}

	switch {
	case s.Explanation == "unavailable":
		sb.WriteString("\nExplanation unavailable for this score.\n")
	case len(s.Contributions) > 0:
		sb.WriteString("\nTop factors:\n")
		for _, c := range s.Contributions {
			fmt.Fprintf(&sb, "  %+d  %s\n", c.Points, c.Description)
		}
	}

	if len(s.Features) > 0 {
		sb.WriteString("\n")
		writeFeatures(&sb, s.Features)
	}
	return sb.String(), nil
}

func formatCreditHistory(userID string, raw json.RawMessage) (string, error) {
	var resp struct {
		Scores  []creditScore `json:"scores"`
		HasMore bool          `json:"has_more"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	if len(resp.Scores) == 0 {
		return fmt.Sprintf("No credit scores recorded for %s.", userID), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Credit history for %s (%d score(s)):\n\n", userID, len(resp.Scores))
	for i, s := range resp.Scores {
		fmt.Fprintf(&sb, "%d. %d (%s) via %s", i+1, s.Score, s.Tier, s.Source)
		if s.CreatedAt != "" {
			fmt.Fprintf(&sb, " at %s", s.CreatedAt)
		}
		sb.WriteString("\n")
	}
	if resp.HasMore {
		sb.WriteString("\nMore scores are available; raise the limit to see them.\n")
	}
	return sb.String(), nil
}

type assessment struct {
	UserID    string   `json:"user_id"`
	RiskScore float64  `json:"transaction_risk_score"`
	Alerts    []string `json:"alerts"`
	Stats     struct {
		Avg  float64 `json:"avg"`
		Last float64 `json:"last"`
	} `json:"stats"`
	Engine string `json:"engine"`
	Count  int    `json:"transaction_count"`
}

func formatAssessment(raw json.RawMessage) (string, error) {
	var a assessment
	if err := json.Unmarshal(raw, &a); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Transaction Risk: %.2f (%s)\n", a.RiskScore, riskLevel(a.RiskScore))
	fmt.Fprintf(&sb, "  User: %s\n", a.UserID)
	fmt.Fprintf(&sb, "  Transactions: %d\n", a.Count)
	fmt.Fprintf(&sb, "  Average spend: %g, last: %g\n", a.Stats.Avg, a.Stats.Last)
	if a.Engine != "" {
		fmt.Fprintf(&sb, "  Engine: %s\n", a.Engine)
	}
	writeAlerts(&sb, a.Alerts)
	return sb.String(), nil
}

func formatRiskSummary(raw json.RawMessage) (string, error) {
	var s struct {
		UserID         string      `json:"user_id"`
		TotalRiskScore float64     `json:"total_risk_score"`
		BehaviourScore float64     `json:"behaviour_score"`
		Alerts         []string    `json:"alerts"`
		Transactions   *assessment `json:"transactions"`
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Risk Summary for %s: %.2f (%s)\n", s.UserID, s.TotalRiskScore, riskLevel(s.TotalRiskScore))
	if s.Transactions == nil {
		sb.WriteString("  No transaction profile on record.\n")
	} else {
		fmt.Fprintf(&sb, "  Transaction risk: %.2f\n", s.Transactions.RiskScore)
	}
	fmt.Fprintf(&sb, "  Behavioural deviation: %.2f\n", s.BehaviourScore)
	writeAlerts(&sb, s.Alerts)
	return sb.String(), nil
}

func riskLevel(score float64) string {
	switch {
	case score > 0.7:
		return "high"
	case score > 0.3:
		return "medium"
	default:
		return "low"
	}
}

func writeAlerts(sb *strings.Builder, alerts []string) {
	if len(alerts) == 0 {
		sb.WriteString("  No alerts.\n")
		return
	}
	sb.WriteString("\nAlerts:\n")
	for _, a := range alerts {
		fmt.Fprintf(sb, "  - %s\n", a)
	}
}

// writeFeatures prints features in their canonical order.
func writeFeatures(sb *strings.Builder, fv map[string]float64) {
	sb.WriteString("Features:\n")
	for _, name := range features.Names {
		if v, ok := fv[name]; ok {
			fmt.Fprintf(sb, "  %-20s %.4f\n", name, v)
		}
	}
}
