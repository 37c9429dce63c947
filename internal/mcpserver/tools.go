package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the altscore MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var transactionItems = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"ts":       map[string]any{"type": "string", "description": "ISO-8601 timestamp, e.g. 2024-01-05T10:00:00Z"},
		"amount":   map[string]any{"type": "number", "description": "Signed amount; credits positive, debits negative"},
		"type":     map[string]any{"type": "string", "enum": []string{"credit", "debit"}},
		"merchant": map[string]any{"type": "string"},
		"channel":  map[string]any{"type": "string", "description": "e.g. UPI, Card, Cash, Bank"},
	},
	"required": []string{"ts", "amount", "type"},
}

var ToolScoreCredit = mcp.NewTool("score_credit",
	mcp.WithDescription(
		"Compute an alternative credit score (300-850) from a user's transaction history. "+
			"Returns the score, its tier (Bronze/Silver/Gold), the probability of a good outcome "+
			"and the features that moved the score most."),
	mcp.WithString("user_id",
		mcp.Description("Identifier the score is recorded under")),
	mcp.WithArray("transactions",
		mcp.Required(),
		mcp.Description("Transactions to score"),
		mcp.Items(transactionItems)),
	mcp.WithString("mode",
		mcp.Description("'ml' tries the remote model first; 'fallback' uses only the built-in model"),
		mcp.Enum("ml", "fallback")),
)

var ToolGetCreditHistory = mcp.NewTool("get_credit_history",
	mcp.WithDescription(
		"List previously issued credit scores for a user, newest first."),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("The user whose scores to list")),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of scores to return (default 20)")),
)

var ToolExtractFeatures = mcp.NewTool("extract_features",
	mcp.WithDescription(
		"Derive the six behavioural features (income, volatility, on-time ratio, cash ratio, "+
			"merchant diversity, night activity) from transactions without scoring them."),
	mcp.WithArray("transactions",
		mcp.Required(),
		mcp.Description("Transactions to analyse"),
		mcp.Items(transactionItems)),
)

var ToolAssessTransactions = mcp.NewTool("assess_transactions",
	mcp.WithDescription(
		"Score a batch of transactions for fraud risk (0-1). Flags crypto-exchange and unusually large "+
			"transactions and stores the result as the user's risk profile."),
	mcp.WithString("user_id",
		mcp.Description("Identifier the risk profile is stored under")),
	mcp.WithArray("transactions",
		mcp.Required(),
		mcp.Description("Transactions to assess"),
		mcp.Items(transactionItems)),
)

var ToolGetRiskSummary = mcp.NewTool("get_risk_summary",
	mcp.WithDescription(
		"Get a user's combined risk summary: the latest transaction risk plus a behavioural "+
			"deviation check on their most recent spending."),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("The user to summarise")),
)
