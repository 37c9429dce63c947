package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// Version is reported to MCP clients during initialization.
const Version = "1.0.0"

// NewMCPServer creates a configured MCP server with all scoring tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("altscore", Version, server.WithToolCapabilities(false))
	h := NewHandlers(NewClient(cfg))

	s.AddTool(ToolScoreCredit, h.HandleScoreCredit)
	s.AddTool(ToolGetCreditHistory, h.HandleGetCreditHistory)
	s.AddTool(ToolExtractFeatures, h.HandleExtractFeatures)
	s.AddTool(ToolAssessTransactions, h.HandleAssessTransactions)
	s.AddTool(ToolGetRiskSummary, h.HandleGetRiskSummary)

	return s
}
