package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ekaya-inc/ekaya-biotools/pkg/catalog"
)

type healthResult struct {
	Status   string   `json:"status"`
	Version  string   `json:"version"`
	TRBeds   int      `json:"tr_beds"`
	Warnings []string `json:"warnings,omitempty"`
}

// RegisterHealthTool adds a health check tool to the MCP server.
// Status is "degraded" when part of the dataset registry failed to load.
func RegisterHealthTool(s *server.MCPServer, version string, registry *catalog.Registry) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status and version"),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res := healthResult{Status: "ok", Version: version}
		if registry != nil {
			res.TRBeds = registry.TRCount()
			res.Warnings = registry.Warnings()
			if len(res.Warnings) > 0 {
				res.Status = "degraded"
			}
		}
		result, err := json.Marshal(res)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal health result: %w", err)
		}
		return mcp.NewToolResultText(string(result)), nil
	})
}
