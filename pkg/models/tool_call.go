package models

import "time"

// Tool call event types.
const (
	ToolEventCall  = "tool_call"
	ToolEventError = "tool_error"
)

// Security levels for tool call events.
const (
	SecurityNormal   = "normal"
	SecurityWarning  = "warning"
	SecurityCritical = "critical"
)

// ToolCallEvent is one audited tool invocation.
type ToolCallEvent struct {
	ID            int64          `json:"id"`
	EventType     string         `json:"event_type"`
	ToolName      string         `json:"tool_name"`
	Subject       string         `json:"subject,omitempty"`
	RequestParams map[string]any `json:"request_params,omitempty"`
	WasSuccessful bool           `json:"was_successful"`
	ErrorCode     string         `json:"error_code,omitempty"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	DurationMs    int            `json:"duration_ms"`
	SecurityLevel string         `json:"security_level"`
	SecurityFlags []string       `json:"security_flags,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}
