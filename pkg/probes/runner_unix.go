//go:build unix

package probes

import (
	"os/exec"
	"syscall"
)

// killProcessGroup starts cmd in a new process group and makes context
// cancellation kill the whole group instead of only the shell.
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
