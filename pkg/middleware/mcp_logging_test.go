package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func serveLogged(t *testing.T, reqBody, respBody string) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, reqBody, string(body), "body must be restored for the next handler")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(respBody))
	})

	req := httptest.NewRequest(http.MethodPost, "/biotools", bytes.NewBufferString(reqBody))
	rec := httptest.NewRecorder()
	MCPRequestLogger(zap.New(core))(handler).ServeHTTP(rec, req)

	assert.Equal(t, respBody, rec.Body.String())
	return logs
}

func TestMCPRequestLogger(t *testing.T) {
	t.Run("logs successful tool call", func(t *testing.T) {
		logs := serveLogged(t,
			`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"search_tr","arguments":{"keyword":"GATA"}}}`,
			`{"jsonrpc":"2.0","id":1,"result":{"content":[{"type":"text","text":"Found 2 matching TR(s):"}]}}`)

		require.Equal(t, 2, logs.Len())
		requestLog := logs.All()[0]
		assert.Equal(t, "MCP request", requestLog.Message)
		assert.Equal(t, "tools/call", requestLog.ContextMap()["method"])
		assert.Equal(t, "search_tr", requestLog.ContextMap()["tool"])
		assert.Equal(t, map[string]any{"keyword": "GATA"}, requestLog.ContextMap()["arguments"])

		responseLog := logs.All()[1]
		assert.Equal(t, "MCP response success", responseLog.Message)
		assert.Equal(t, "search_tr", responseLog.ContextMap()["tool"])
	})

	t.Run("logs JSON-RPC error", func(t *testing.T) {
		logs := serveLogged(t,
			`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"nope"}}`,
			`{"jsonrpc":"2.0","id":2,"error":{"code":-32602,"message":"tool 'nope' not found"}}`)

		require.Equal(t, 2, logs.Len())
		responseLog := logs.All()[1]
		assert.Equal(t, "MCP response error", responseLog.Message)
		assert.Equal(t, int64(-32602), responseLog.ContextMap()["error_code"])
		assert.Equal(t, "tool 'nope' not found", responseLog.ContextMap()["error_message"])
	})

	t.Run("logs tool error result", func(t *testing.T) {
		logs := serveLogged(t,
			`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"get_gene_position","arguments":{"genes":["NOPE"]}}}`,
			`{"jsonrpc":"2.0","id":3,"result":{"isError":true,"content":[{"type":"text","text":"{}"}]}}`)

		require.Equal(t, 2, logs.Len())
		assert.Equal(t, "MCP tool error", logs.All()[1].Message)
	})

	t.Run("non JSON bodies are passed through", func(t *testing.T) {
		logs := serveLogged(t, `not json`, "event: message\ndata: {}\n\n")

		require.Equal(t, 3, logs.Len())
		assert.Equal(t, "Failed to parse MCP request JSON", logs.All()[0].Message)
		assert.Equal(t, "MCP response", logs.All()[2].Message)
	})

	t.Run("nil logger passes through", func(t *testing.T) {
		called := false
		h := MCPRequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
		assert.True(t, called)
	})
}

func TestSanitizeArguments(t *testing.T) {
	assert.Nil(t, sanitizeArguments(nil))

	long := strings.Repeat("x", 250)
	genes := make([]any, 100)
	for i := range genes {
		genes[i] = "GENE"
	}

	got := sanitizeArguments(map[string]any{
		"command":  long,
		"keyword":  "GATA",
		"api_key":  "secret-value",
		"Password": "hunter2",
		"timeout":  5.0,
		"genes":    genes,
		"flag":     true,
		"nothing":  nil,
	})

	assert.Equal(t, long[:200]+"...", got["command"])
	assert.Equal(t, "GATA", got["keyword"])
	assert.Equal(t, "[REDACTED]", got["api_key"])
	assert.Equal(t, "[REDACTED]", got["Password"])
	assert.Equal(t, 5.0, got["timeout"])
	assert.Equal(t, true, got["flag"])
	assert.Nil(t, got["nothing"])

	g, ok := got["genes"].(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(g, `["GENE","GENE"`))
	assert.Len(t, g, 203)
}
