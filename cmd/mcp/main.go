// SchoolGrid MCP Server - Exposes SchoolGrid capabilities as MCP tools for LLMs
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/jmwangi/schoolgrid/internal/mcpserver"
)

func main() {
	cfg := mcpserver.Config{
		APIURL:         envOrDefault("SCHOOLGRID_API_URL", "http://localhost:8080"),
		SchoolID:       os.Getenv("SCHOOLGRID_SCHOOL_ID"),
		OperatorSecret: os.Getenv("SCHOOLGRID_OPERATOR_SECRET"),
	}

	if cfg.SchoolID == "" && cfg.OperatorSecret == "" {
		fmt.Fprintln(os.Stderr, "SCHOOLGRID_SCHOOL_ID or SCHOOLGRID_OPERATOR_SECRET is required")
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
