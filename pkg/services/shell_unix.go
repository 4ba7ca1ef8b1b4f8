//go:build unix

package services

import (
	"os/exec"
	"syscall"
	"time"
)

// configureProcessGroup runs the shell in its own process group so that a
// timeout kills every process it spawned, not only sh.
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 2 * time.Second
}
