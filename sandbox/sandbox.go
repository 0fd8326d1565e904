// Package sandbox gives the tester stage a scratch workspace to write code
// into and run commands against, with a hard timeout per command.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ExecResult holds the result of a command execution.
type ExecResult struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exit_code"`
	TimedOut bool          `json:"timed_out"`
	Duration time.Duration `json:"duration"`
}

// Output returns combined stdout and stderr.
func (r ExecResult) Output() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// Sandbox is an isolated workspace with command execution.
type Sandbox interface {
	// WriteFile creates or replaces a file relative to the workspace.
	WriteFile(path, content string) error
	// ReadFile reads a file relative to the workspace.
	ReadFile(path string) (string, error)
	// Exec runs command inside the workspace. A non-zero exit is reported in
	// the result, not as an error.
	Exec(ctx context.Context, command string, timeout time.Duration) (*ExecResult, error)
	// Workspace returns the workspace root.
	Workspace() string
	// Cleanup removes the workspace.
	Cleanup() error
}

// SandboxError reports an execution environment failure: a crash, a limit,
// or a timeout.
type SandboxError struct {
	Op       string
	Err      error
	TimedOut bool
}

func (e *SandboxError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("sandbox %s: timed out: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("sandbox %s: %v", e.Op, e.Err)
}

func (e *SandboxError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is a sandbox timeout.
func IsTimeout(err error) bool {
	var se *SandboxError
	return errors.As(err, &se) && se.TimedOut
}
