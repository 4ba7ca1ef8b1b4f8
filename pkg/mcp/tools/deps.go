// Package tools provides the MCP tools for the biotools server.
package tools

import (
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-biotools/pkg/catalog"
	"github.com/ekaya-inc/ekaya-biotools/pkg/services"
)

// Deps contains the dependencies shared by every biotools tool.
type Deps struct {
	Registry *catalog.Registry
	Datasets services.DatasetService
	Shell    services.ShellService
	// BashPrompt is prepended to the execute_bash description.
	BashPrompt string
	// DefaultTimeoutSeconds is advertised in the execute_bash schema.
	DefaultTimeoutSeconds float64
	Version               string
	Logger                *zap.Logger
}

// RegisterAll registers every biotools tool.
func RegisterAll(s *server.MCPServer, deps *Deps) {
	registerExecuteBashTool(s, deps)
	registerGenesetCategoryListTool(s, deps)
	registerAnnotationBedTool(s, deps)
	registerTRBedTool(s, deps)
	registerSearchTRTool(s, deps)
	registerGenePositionTool(s, deps)
	registerTCGAExpressionTool(s, deps)
	registerMeanExpressionTool(s, deps)
	RegisterHealthTool(s, deps.Version, deps.Registry)
}
