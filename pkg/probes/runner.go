package probes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// waitDelay bounds how long Run waits for output pipes to close after the
// command's process group was killed.
const waitDelay = 2 * time.Second

// Runner executes a diagnostic shell command and returns its standard output.
//
// A command that runs but exits non-zero is not an error: its stdout is
// returned as-is, since tools like `sudo -l` and `find /` exit non-zero on
// partial access while still printing useful data. An error means the
// command could not be launched at all or was cut off by ctx.
type Runner interface {
	Run(ctx context.Context, command string) (string, error)
}

// ShellRunner runs commands through /bin/sh. Each command gets its own
// process group, so a cancelled pipeline is killed as a whole.
type ShellRunner struct {
	Shell  string
	Logger zerolog.Logger
}

// NewShellRunner returns a runner using sh.
func NewShellRunner(logger zerolog.Logger) *ShellRunner {
	return &ShellRunner{Shell: "sh", Logger: logger}
}

// Run executes command with `sh -c` and returns its stdout.
func (r *ShellRunner) Run(ctx context.Context, command string) (string, error) {
	shell := r.Shell
	if shell == "" {
		shell = "sh"
	}
	cmd := exec.CommandContext(ctx, shell, "-c", command)
	killProcessGroup(cmd)
	cmd.WaitDelay = waitDelay
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", fmt.Errorf("run %q: %w", command, ctxErr)
	}
	if errors.Is(err, exec.ErrWaitDelay) {
		r.Logger.Debug().Str("command", command).Msg("command left a child holding its output open")
		return string(out), nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			r.Logger.Debug().
				Str("command", command).
				Int("exit_code", exitErr.ExitCode()).
				Str("stderr", strings.TrimSpace(stderr.String())).
				Msg("command exited non-zero")
			return string(out), nil
		}
		return "", fmt.Errorf("launch %q: %w", command, err)
	}
	return string(out), nil
}
