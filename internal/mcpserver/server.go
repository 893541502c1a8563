package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all SchoolGrid tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("schoolgrid", "1.0.0")
	client := NewSchoolgridClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolListPlans, h.HandleListPlans)
	s.AddTool(ToolGetSubscription, h.HandleGetSubscription)
	s.AddTool(ToolGetEntitlements, h.HandleGetEntitlements)
	s.AddTool(ToolGetUsage, h.HandleGetUsage)
	s.AddTool(ToolCheckCapacity, h.HandleCheckCapacity)

	return s
}
