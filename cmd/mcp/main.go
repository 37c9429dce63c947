// altscore MCP server - exposes credit and risk scoring as MCP tools for LLMs
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"github.com/altscore/altscore/internal/mcpserver"
	"github.com/altscore/altscore/internal/security"
)

func main() {
	_ = godotenv.Load()

	cfg := mcpserver.Config{
		APIURL:  envOrDefault("ALTSCORE_API_URL", "http://localhost:8080"),
		Timeout: 30 * time.Second,
	}
	if v := os.Getenv("ALTSCORE_API_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ALTSCORE_API_TIMEOUT: %v\n", err)
			os.Exit(1)
		}
		cfg.Timeout = d
	}
	if err := security.ValidateServiceURL(cfg.APIURL); err != nil {
		fmt.Fprintf(os.Stderr, "ALTSCORE_API_URL: %v\n", err)
		os.Exit(1)
	}

	s := mcpserver.NewMCPServer(cfg)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}

func envOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
