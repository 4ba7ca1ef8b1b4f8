package services

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newShell(cfg ShellConfig) ShellService {
	if cfg.DefaultTimeout == 0 {
		cfg.DefaultTimeout = 30 * time.Second
	}
	return NewShellService(cfg, zap.NewNop())
}

func seconds(v float64) *float64 {
	return &v
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
}

func TestExecute_Output(t *testing.T) {
	skipOnWindows(t)
	svc := newShell(ShellConfig{Enabled: true})

	res, err := svc.Execute(context.Background(), DefaultCommand, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello!", res.Text())
}

func TestExecute_CombinesStderr(t *testing.T) {
	skipOnWindows(t)
	svc := newShell(ShellConfig{Enabled: true})

	res, err := svc.Execute(context.Background(), "echo out; echo err 1>&2", nil)
	require.NoError(t, err)
	assert.Contains(t, res.Output, "out")
	assert.Contains(t, res.Output, "err")
}

func TestExecute_NoOutput(t *testing.T) {
	skipOnWindows(t)
	svc := newShell(ShellConfig{Enabled: true})

	res, err := svc.Execute(context.Background(), "true", nil)
	require.NoError(t, err)
	assert.Equal(t, "Command executed successfully (no output)", res.Text())
}

func TestExecute_NonZeroExit(t *testing.T) {
	skipOnWindows(t)
	svc := newShell(ShellConfig{Enabled: true})

	res, err := svc.Execute(context.Background(), "echo broken; exit 3", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "Command failed (exit code 3):\nbroken", res.Text())
}

func TestExecute_TimeoutKillsProcessGroup(t *testing.T) {
	skipOnWindows(t)
	marker := filepath.Join(t.TempDir(), "survived")
	svc := newShell(ShellConfig{Enabled: true})

	start := time.Now()
	res, err := svc.Execute(context.Background(), "(sleep 2; touch "+marker+") & sleep 10", seconds(1))
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.Equal(t, "Command timed out after 1.0 seconds", res.Text())
	assert.Less(t, elapsed, 5*time.Second)

	time.Sleep(2500 * time.Millisecond)
	_, statErr := os.Stat(marker)
	assert.True(t, os.IsNotExist(statErr), "background child outlived the timeout")
}

func TestExecute_Workdir(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	svc := newShell(ShellConfig{Enabled: true, Workdir: dir})

	res, err := svc.Execute(context.Background(), "pwd", nil)
	require.NoError(t, err)
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.True(t, res.Output == dir || res.Output == resolved, res.Output)
}

func TestExecute_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ShellConfig
		command string
		code    string
		message string
	}{
		{
			name:    "empty command",
			cfg:     ShellConfig{Enabled: true},
			command: "   ",
			code:    CodeInvalidInput,
			message: "Command cannot be empty",
		},
		{
			name:    "disabled",
			cfg:     ShellConfig{Enabled: false},
			command: "ls",
			code:    CodeToolDisabled,
		},
		{
			name:    "program not in allowlist",
			cfg:     ShellConfig{Enabled: true, AllowedCommands: []string{"ls", "bedtools"}},
			command: "ls /data && rm -rf /tmp/x",
			code:    CodeCommandNotAllowed,
			message: "Command 'rm' is not allowed. Allowed: ls, bedtools",
		},
		{
			name:    "substitution with allowlist",
			cfg:     ShellConfig{Enabled: true, AllowedCommands: []string{"echo"}},
			command: "echo $(cat /etc/passwd)",
			code:    CodeCommandNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newShell(tt.cfg).Execute(context.Background(), tt.command, nil)
			tErr := requireToolError(t, err, tt.code)
			if tt.message != "" {
				assert.Equal(t, tt.message, tErr.Message)
			}
		})
	}
}

func TestCheckAllowed(t *testing.T) {
	svc := NewShellService(ShellConfig{Enabled: true, AllowedCommands: []string{"bedtools", "sort", "head"}}, zap.NewNop()).(*shellService)

	allowed := []string{
		"bedtools intersect -a a.bed -b b.bed | sort -k1,1 | head -n 5",
		"/usr/local/bin/bedtools --version 2>&1",
		"LC_ALL=C sort a.bed > sorted.bed",
	}
	for _, cmd := range allowed {
		assert.NoError(t, svc.checkAllowed(cmd), cmd)
	}

	denied := []string{
		"bedtools merge -i a.bed; curl http://example.com",
		"sort a.bed & python3 -c 'print(1)'",
		"head `which sh`",
	}
	for _, cmd := range denied {
		assert.Error(t, svc.checkAllowed(cmd), cmd)
	}
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "6000.0", formatSeconds(6000*time.Second))
	assert.Equal(t, "0.5", formatSeconds(500*time.Millisecond))
	assert.True(t, strings.HasPrefix(formatSeconds(1500*time.Millisecond), "1.5"))
}
