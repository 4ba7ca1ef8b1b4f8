package mcp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-biotools/pkg/auth"
	"github.com/ekaya-inc/ekaya-biotools/pkg/logging"
	"github.com/ekaya-inc/ekaya-biotools/pkg/mcp/tools"
	"github.com/ekaya-inc/ekaya-biotools/pkg/models"
	"github.com/ekaya-inc/ekaya-biotools/pkg/services"
)

// ToolCallRecorder persists audited tool calls.
type ToolCallRecorder interface {
	Record(ctx context.Context, event *models.ToolCallEvent) error
}

// AuditLogger captures every tools/call through mcp-go hooks. Events are
// always logged; they are also persisted when a recorder is configured.
type AuditLogger struct {
	recorder ToolCallRecorder
	logger   *zap.Logger

	// startTimes tracks when tool calls begin, keyed by the *CallToolRequest
	// mcp-go hands to every hook of one call. JSON-RPC ids are not unique
	// across stateless HTTP clients.
	startTimes sync.Map
	pending    sync.WaitGroup
}

// NewAuditLogger creates an AuditLogger. recorder may be nil.
func NewAuditLogger(recorder ToolCallRecorder, logger *zap.Logger) *AuditLogger {
	return &AuditLogger{
		recorder: recorder,
		logger:   logger.Named("mcp-audit"),
	}
}

// Hooks returns mcp-go Hooks configured to capture tool call events.
func (a *AuditLogger) Hooks() *server.Hooks {
	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(a.beforeCallTool)
	hooks.AddAfterCallTool(a.afterCallTool)
	hooks.AddOnError(a.onError)
	return hooks
}

// Wait blocks until every queued event has been written.
func (a *AuditLogger) Wait() {
	a.pending.Wait()
}

func (a *AuditLogger) beforeCallTool(_ context.Context, _ any, req *mcplib.CallToolRequest) {
	a.startTimes.Store(req, time.Now())
}

func (a *AuditLogger) afterCallTool(ctx context.Context, _ any, req *mcplib.CallToolRequest, result *mcplib.CallToolResult) {
	event := a.buildEvent(ctx, req)
	event.EventType = models.ToolEventCall
	event.WasSuccessful = true
	classifyResult(event, result)
	a.submit(event)
}

func (a *AuditLogger) onError(ctx context.Context, _ any, method mcplib.MCPMethod, message any, err error) {
	if method != mcplib.MethodToolsCall {
		return
	}
	req, ok := message.(*mcplib.CallToolRequest)
	if !ok {
		return
	}

	event := a.buildEvent(ctx, req)
	event.EventType = models.ToolEventError
	event.WasSuccessful = false
	event.ErrorCode = services.CodeInternal
	event.ErrorMessage = truncate(err.Error(), maxMessageSize)
	a.submit(event)
}

func (a *AuditLogger) buildEvent(ctx context.Context, req *mcplib.CallToolRequest) *models.ToolCallEvent {
	start := time.Now()
	if v, ok := a.startTimes.LoadAndDelete(req); ok {
		start = v.(time.Time)
	}

	event := &models.ToolCallEvent{
		ToolName:      req.Params.Name,
		Subject:       auth.Subject(ctx),
		RequestParams: sanitizeParams(req.Params.Arguments),
		DurationMs:    int(time.Since(start).Milliseconds()),
		SecurityLevel: models.SecurityNormal,
	}
	if req.Params.Name == "execute_bash" {
		if cmd, ok := event.RequestParams["command"].(string); ok && destructiveCommandPattern.MatchString(cmd) {
			event.SecurityLevel = models.SecurityWarning
			event.SecurityFlags = append(event.SecurityFlags, "destructive_command")
		}
	}
	return event
}

func (a *AuditLogger) submit(event *models.ToolCallEvent) {
	fields := []zap.Field{
		zap.String("tool", event.ToolName),
		zap.Bool("success", event.WasSuccessful),
		zap.Int("duration_ms", event.DurationMs),
	}
	if event.ErrorCode != "" {
		fields = append(fields, zap.String("error_code", event.ErrorCode))
	}
	if event.SecurityLevel != models.SecurityNormal {
		a.logger.Warn("Tool call flagged", append(fields, zap.Strings("flags", event.SecurityFlags))...)
	} else {
		a.logger.Debug("Tool call", fields...)
	}

	if a.recorder == nil {
		return
	}
	a.pending.Add(1)
	go func() {
		defer a.pending.Done()
		a.record(event)
	}()
}

// record writes the event with its own deadline so a cancelled tool call
// does not lose its audit row.
func (a *AuditLogger) record(event *models.ToolCallEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.recorder.Record(ctx, event); err != nil {
		a.logger.Error("Failed to record tool call",
			zap.String("tool", event.ToolName),
			zap.Error(err))
	}
}

const (
	// maxParamSize is the maximum size of a string argument stored in the audit trail.
	maxParamSize   = 4096
	maxMessageSize = 500
)

var (
	sensitiveKeyPattern = regexp.MustCompile(`(?i)(password|passwd|secret|token|api_?key|credential)`)

	// envAssignmentPattern matches inline NAME=value assignments whose name looks secret.
	envAssignmentPattern = regexp.MustCompile(`(?i)\b(\w*(?:password|passwd|secret|token|api_?key)\w*)=("[^"]*"|'[^']*'|\S+)`)

	destructiveCommandPattern = regexp.MustCompile(`(?i)(\brm\s+-[a-z]*r[a-z]*f|\brm\s+-[a-z]*f[a-z]*r|\bsudo\b|\bmkfs\b|\bdd\s+if=|>\s*/dev/sd)`)
)

// sanitizeParams copies tool arguments for the audit trail. Sensitive keys
// are hashed, secrets assigned inline in commands are masked and long
// strings are truncated.
func sanitizeParams(args any) map[string]any {
	params, ok := args.(map[string]any)
	if !ok || len(params) == 0 {
		return nil
	}

	sanitized := make(map[string]any, len(params))
	for k, v := range params {
		sanitized[k] = sanitizeValue(k, v)
	}
	return sanitized
}

func sanitizeValue(key string, value any) any {
	if sensitiveKeyPattern.MatchString(key) {
		return hashSensitiveValue(value)
	}

	switch val := value.(type) {
	case string:
		if strings.EqualFold(key, "command") {
			val = envAssignmentPattern.ReplaceAllString(val, "$1=***")
		}
		return truncate(val, maxParamSize)
	case map[string]any:
		return sanitizeParams(val)
	default:
		return value
	}
}

// hashSensitiveValue returns a SHA-256 prefix so entries can be correlated
// without storing the value.
func hashSensitiveValue(value any) string {
	str, ok := value.(string)
	if !ok {
		str = fmt.Sprintf("%v", value)
	}
	hash := sha256.Sum256([]byte(str))
	return "sha256:" + hex.EncodeToString(hash[:8])
}

// classifyResult copies the structured error of an IsError result onto the
// event and raises the security level for refused executions.
func classifyResult(event *models.ToolCallEvent, result *mcplib.CallToolResult) {
	if result == nil || !result.IsError {
		return
	}
	event.WasSuccessful = false

	for _, c := range result.Content {
		tc, ok := c.(mcplib.TextContent)
		if !ok {
			continue
		}
		var resp tools.ErrorResponse
		if err := json.Unmarshal([]byte(tc.Text), &resp); err != nil || !resp.Error {
			event.ErrorMessage = truncate(tc.Text, maxMessageSize)
			return
		}

		event.ErrorCode = resp.Code
		event.ErrorMessage = truncate(resp.Message, maxMessageSize)
		switch resp.Code {
		case services.CodeCommandNotAllowed:
			event.SecurityLevel = models.SecurityWarning
			event.SecurityFlags = append(event.SecurityFlags, "command_not_allowed")
		case services.CodeToolDisabled:
			event.SecurityLevel = models.SecurityWarning
			event.SecurityFlags = append(event.SecurityFlags, "tool_disabled")
		}
		return
	}
}

func truncate(s string, limit int) string {
	return logging.TruncateWithSuffix(s, limit, "...[truncated]")
}
