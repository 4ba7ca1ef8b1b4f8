package services

import (
	"errors"
	"fmt"

	"github.com/ekaya-inc/ekaya-biotools/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-biotools/pkg/identifiers"
	"github.com/ekaya-inc/ekaya-biotools/pkg/logging"
)

// Error codes reported to the calling agent.
const (
	CodeInvalidInput      = "invalid_input"
	CodeNotFound          = "not_found"
	CodeEmptyResult       = "empty_result"
	CodeReadFailed        = "read_failed"
	CodeWriteFailed       = "write_failed"
	CodeCollision         = "collision"
	CodeToolDisabled      = "tool_disabled"
	CodeCommandNotAllowed = "command_not_allowed"
	CodeExecutionFailed   = "execution_failed"
	CodeInternal          = "internal_error"
)

// ToolError is an actionable failure of a tool operation. Message is the
// human-readable text shown to the agent; Code classifies it.
type ToolError struct {
	Code    string
	Message string
	Err     error
}

func (e *ToolError) Error() string {
	return e.Message
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

func newToolError(code string, sentinel error, format string, args ...any) *ToolError {
	return &ToolError{Code: code, Message: fmt.Sprintf(format, args...), Err: sentinel}
}

// ioFailure wraps an I/O error with a truncated message. Collisions keep
// their own code so the agent can tell them apart from disk failures.
func ioFailure(code, what string, err error) *ToolError {
	if errors.Is(err, apperrors.ErrCollision) {
		code = CodeCollision
	}
	return &ToolError{
		Code:    code,
		Message: fmt.Sprintf("%s: %s", what, logging.TruncateError(err.Error())),
		Err:     err,
	}
}

// fromValidation converts an identifiers.Error into a ToolError.
func fromValidation(err error) *ToolError {
	var vErr *identifiers.Error
	if errors.As(err, &vErr) {
		return &ToolError{Code: CodeInvalidInput, Message: vErr.Message, Err: err}
	}
	return &ToolError{Code: CodeInvalidInput, Message: logging.TruncateError(err.Error()), Err: err}
}

// AsToolError extracts a ToolError from err. Errors that are not tool
// errors are reported as internal errors with a truncated message.
func AsToolError(err error) *ToolError {
	var tErr *ToolError
	if errors.As(err, &tErr) {
		return tErr
	}
	return &ToolError{Code: CodeInternal, Message: logging.TruncateError(err.Error()), Err: err}
}
