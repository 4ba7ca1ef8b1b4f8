package handlers

import (
	"net/http"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-biotools/pkg/config"
	"github.com/ekaya-inc/ekaya-biotools/pkg/mcp"
	"github.com/ekaya-inc/ekaya-biotools/pkg/middleware"
)

// MCPHandler serves the MCP protocol over streamable HTTP.
type MCPHandler struct {
	httpServer *server.StreamableHTTPServer
	logger     *zap.Logger
	mcpConfig  config.MCPConfig
}

// NewMCPHandler creates a new MCP handler from an MCP server.
func NewMCPHandler(mcpServer *mcp.Server, logger *zap.Logger, mcpConfig config.MCPConfig) *MCPHandler {
	return &MCPHandler{
		httpServer: mcpServer.NewStreamableHTTPServer(),
		logger:     logger,
		mcpConfig:  mcpConfig,
	}
}

// RegisterRoutes mounts the MCP endpoint at the configured path. authMW
// wraps the transport, inside the method check and outside the JSON-RPC
// logger.
func (h *MCPHandler) RegisterRoutes(mux *http.ServeMux, authMW func(http.Handler) http.Handler) {
	var rpcLogger *zap.Logger
	if h.mcpConfig.LogRequests {
		rpcLogger = h.logger.Named("mcp-http")
	}

	handler := middleware.MCPRequestLogger(rpcLogger)(h.httpServer)
	if authMW != nil {
		handler = authMW(handler)
	}
	mux.Handle(h.mcpConfig.Path, h.requirePOST(handler))
}

// requirePOST rejects everything but POST before authentication runs.
// Stateless streamable HTTP has no use for GET streams or DELETE.
func (h *MCPHandler) requirePOST(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}
