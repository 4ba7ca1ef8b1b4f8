package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-biotools/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-biotools/pkg/logging"
)

// DefaultCommand runs when the caller omits the command argument.
const DefaultCommand = "echo hello!"

// ShellConfig scopes host command execution.
type ShellConfig struct {
	Enabled bool
	// AllowedCommands restricts which programs may be invoked. Empty means
	// unrestricted.
	AllowedCommands []string
	DefaultTimeout  time.Duration
	Workdir         string
}

// CommandResult is the outcome of a command that ran.
type CommandResult struct {
	Output   string
	ExitCode int
	TimedOut bool
	Timeout  time.Duration
}

// Text renders the result the way the agent sees it.
func (r *CommandResult) Text() string {
	switch {
	case r.TimedOut:
		return fmt.Sprintf("Command timed out after %s seconds", formatSeconds(r.Timeout))
	case r.ExitCode != 0:
		return fmt.Sprintf("Command failed (exit code %d):\n%s", r.ExitCode, r.Output)
	case r.Output == "":
		return "Command executed successfully (no output)"
	default:
		return r.Output
	}
}

// ShellService runs commands on the host through sh -c.
type ShellService interface {
	// Execute runs command. A nil timeout uses the configured default; a
	// zero or negative timeout disables it.
	Execute(ctx context.Context, command string, timeout *float64) (*CommandResult, error)
}

type shellService struct {
	cfg     ShellConfig
	allowed map[string]struct{}
	logger  *zap.Logger
}

// NewShellService creates a ShellService.
func NewShellService(cfg ShellConfig, logger *zap.Logger) ShellService {
	var allowed map[string]struct{}
	if len(cfg.AllowedCommands) > 0 {
		allowed = make(map[string]struct{}, len(cfg.AllowedCommands))
		for _, c := range cfg.AllowedCommands {
			if c = strings.TrimSpace(c); c != "" {
				allowed[c] = struct{}{}
			}
		}
	}
	return &shellService{
		cfg:     cfg,
		allowed: allowed,
		logger:  logger.Named("shell"),
	}
}

var _ ShellService = (*shellService)(nil)

func (s *shellService) Execute(ctx context.Context, command string, timeout *float64) (*CommandResult, error) {
	if !s.cfg.Enabled {
		return nil, newToolError(CodeToolDisabled, apperrors.ErrToolDisabled, "Command execution is disabled on this server")
	}
	if strings.TrimSpace(command) == "" {
		return nil, newToolError(CodeInvalidInput, apperrors.ErrInvalidInput, "Command cannot be empty")
	}
	if err := s.checkAllowed(command); err != nil {
		return nil, err
	}

	limit := s.cfg.DefaultTimeout
	if timeout != nil {
		limit = time.Duration(*timeout * float64(time.Second))
	}

	runCtx := ctx
	if limit > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}

	s.logger.Info("Executing command",
		zap.String("command", logging.TruncateString(command, logging.MaxQueryLogLength)),
		zap.Duration("timeout", limit))

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	if s.cfg.Workdir != "" {
		cmd.Dir = s.cfg.Workdir
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	configureProcessGroup(cmd)

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if limit > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		s.logger.Warn("Command timed out",
			zap.Duration("timeout", limit),
			zap.Duration("elapsed", elapsed))
		return &CommandResult{TimedOut: true, Timeout: limit, ExitCode: -1}, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	result := &CommandResult{Output: strings.TrimSpace(strings.ToValidUTF8(out.String(), "�"))}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, ioFailure(CodeExecutionFailed, "Execution error", err)
		}
		result.ExitCode = exitErr.ExitCode()
	}

	s.logger.Debug("Command finished",
		zap.Int("exit_code", result.ExitCode),
		zap.Int("output_bytes", len(result.Output)),
		zap.Duration("elapsed", elapsed))
	return result, nil
}

// fdRedirection matches descriptor duplication such as 2>&1 and &>file,
// whose ampersands are not command separators.
var fdRedirection = regexp.MustCompile(`\d*(?:[<>]&\d*-?|&>>?)`)

// shellSeparators split a command line into the simple commands sh will run.
var shellSeparators = []string{"&&", "||", ";", "|", "&", "\n"}

// checkAllowed verifies every simple command in the line starts with an
// allowed program. Command substitution is rejected outright when an
// allowlist is configured because its contents cannot be vetted.
func (s *shellService) checkAllowed(command string) error {
	if s.allowed == nil {
		return nil
	}
	if strings.Contains(command, "`") || strings.Contains(command, "$(") {
		return newToolError(CodeCommandNotAllowed, apperrors.ErrInvalidInput,
			"Command substitution is not allowed on this server")
	}

	segments := []string{fdRedirection.ReplaceAllString(command, " > ")}
	for _, sep := range shellSeparators {
		var next []string
		for _, seg := range segments {
			next = append(next, strings.Split(seg, sep)...)
		}
		segments = next
	}

	for _, seg := range segments {
		fields := strings.Fields(seg)
		// Skip leading VAR=value assignments.
		for len(fields) > 0 && strings.Contains(fields[0], "=") && !strings.HasPrefix(fields[0], "=") {
			fields = fields[1:]
		}
		if len(fields) == 0 {
			continue
		}
		program := filepath.Base(fields[0])
		if _, ok := s.allowed[program]; !ok {
			return newToolError(CodeCommandNotAllowed, apperrors.ErrInvalidInput,
				"Command '%s' is not allowed. Allowed: %s", program, strings.Join(s.cfg.AllowedCommands, ", "))
		}
	}
	return nil
}

// formatSeconds renders whole seconds with one decimal ("1.0") and keeps
// fractional ones as given ("0.5").
func formatSeconds(d time.Duration) string {
	secs := d.Seconds()
	if secs == float64(int64(secs)) {
		return strconv.FormatFloat(secs, 'f', 1, 64)
	}
	return strconv.FormatFloat(secs, 'f', -1, 64)
}
