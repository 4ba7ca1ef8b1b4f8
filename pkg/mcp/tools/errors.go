package tools

import (
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ekaya-inc/ekaya-biotools/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-biotools/pkg/services"
)

// ErrorResponse represents a structured error in tool results.
// It is returned as a tool result, not a protocol error, so the agent
// sees the message and can correct its arguments.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use this for recoverable errors the agent can act on (invalid arguments,
// unknown dataset). System failures that the agent cannot fix should still
// be returned as Go errors.
//
// Example:
//
//	if _, ok := registry.Annotation(name); !ok {
//	    return NewErrorResult("not_found", "Biological type 'X' not found"), nil
//	}
func NewErrorResult(code, message string) *mcp.CallToolResult {
	return NewErrorResultWithDetails(code, message, nil)
}

// NewErrorResultWithDetails creates an error result with additional context.
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// ToolErrorResult converts a service error into a structured error result.
func ToolErrorResult(err error) *mcp.CallToolResult {
	tErr := services.AsToolError(err)
	return NewErrorResult(tErr.Code, tErr.Message)
}

// IsInputError reports whether err was caused by the caller's arguments
// rather than a server failure. Input errors are logged at DEBUG.
func IsInputError(err error) bool {
	return errors.Is(err, apperrors.ErrInvalidInput) ||
		errors.Is(err, apperrors.ErrNotFound) ||
		errors.Is(err, apperrors.ErrEmptyResult)
}
