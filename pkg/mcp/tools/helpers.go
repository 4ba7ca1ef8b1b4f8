package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

// argument returns the raw value of an argument and whether it was supplied.
// An explicit JSON null counts as supplied.
func argument(req mcp.CallToolRequest, name string) (any, bool) {
	args := req.GetArguments()
	if args == nil {
		return nil, false
	}
	v, ok := args[name]
	return v, ok
}

// stringArgument returns a string argument. A supplied non-string value is
// reported with its JSON type name.
func stringArgument(req mcp.CallToolRequest, name string) (value string, present bool, err error) {
	v, ok := argument(req, name)
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", true, fmt.Errorf("got: %s", jsonTypeName(v))
	}
	return s, true, nil
}

func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64, int, int64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// readOnly marks a raw-schema tool as a side-effect free lookup.
func readOnly(tool mcp.Tool) mcp.Tool {
	tool.Annotations = mcp.ToolAnnotation{
		ReadOnlyHint:    boolPtr(true),
		DestructiveHint: boolPtr(false),
		IdempotentHint:  boolPtr(true),
		OpenWorldHint:   boolPtr(false),
	}
	return tool
}

func boolPtr(b bool) *bool {
	return &b
}

// handleError logs a failed tool call and converts it into an error result.
// Cancellation is returned as a Go error since no agent is waiting for it.
func handleError(deps *Deps, tool string, err error) (*mcp.CallToolResult, error) {
	if errors.Is(err, context.Canceled) {
		return nil, err
	}
	if IsInputError(err) {
		deps.Logger.Debug("Tool call rejected",
			zap.String("tool", tool),
			zap.String("reason", err.Error()))
	} else {
		deps.Logger.Error("Tool call failed",
			zap.String("tool", tool),
			zap.Error(err))
	}
	return ToolErrorResult(err), nil
}
