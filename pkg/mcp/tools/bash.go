package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ekaya-inc/ekaya-biotools/pkg/services"
)

func executeBashDescription(prompt string, defaultTimeout float64) string {
	if strings.TrimSpace(prompt) == "" {
		prompt = "Execute bash commands"
	}
	return fmt.Sprintf(`%s

Args:
    command: The bash command to execute
    timeout: Timeout time (seconds), null means no timeout (default %g)
`, prompt, defaultTimeout)
}

func registerExecuteBashTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"execute_bash",
		mcp.WithDescription(executeBashDescription(deps.BashPrompt, deps.DefaultTimeoutSeconds)),
		mcp.WithString(
			"command",
			mcp.Description("The bash command to execute"),
			mcp.DefaultString(services.DefaultCommand),
		),
		mcp.WithNumber(
			"timeout",
			mcp.Description("Timeout in seconds; null disables the timeout"),
			mcp.DefaultNumber(deps.DefaultTimeoutSeconds),
		),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		command := services.DefaultCommand
		if v, ok := argument(req, "command"); ok {
			str, isString := v.(string)
			if !isString {
				return NewErrorResult(services.CodeInvalidInput, "Command cannot be empty"), nil
			}
			command = str
		}

		var timeout *float64
		if v, ok := argument(req, "timeout"); ok {
			switch t := v.(type) {
			case nil:
				zero := 0.0
				timeout = &zero
			case float64:
				timeout = &t
			default:
				return NewErrorResult(services.CodeInvalidInput,
					fmt.Sprintf("Timeout must be a number, got: %s", jsonTypeName(v))), nil
			}
		}

		result, err := deps.Shell.Execute(ctx, command, timeout)
		if err != nil {
			return handleError(deps, "execute_bash", err)
		}
		return mcp.NewToolResultText(result.Text()), nil
	})
}
