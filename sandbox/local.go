package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/afero"
)

// sensitiveEnvPatterns are case-insensitive suffixes for environment variables
// withheld from generated code.
var sensitiveEnvPatterns = []string{
	"_API_KEY",
	"_SECRET",
	"_TOKEN",
	"_PASSWORD",
	"_CREDENTIAL",
}

// safeEnvVars are always passed through.
var safeEnvVars = map[string]bool{
	"PATH": true, "HOME": true, "USER": true, "SHELL": true,
	"LANG": true, "TERM": true, "TMPDIR": true,
	"PYENV_ROOT": true, "VIRTUAL_ENV": true, "PYTHONPATH": true,
	"GOPATH": true, "GOROOT": true, "GOCACHE": true,
}

func isSensitiveEnvVar(name string) bool {
	upper := strings.ToUpper(name)
	if strings.HasPrefix(upper, "CODECREW_") {
		return true
	}
	for _, pattern := range sensitiveEnvPatterns {
		if strings.HasSuffix(upper, pattern) {
			return true
		}
	}
	return false
}

// filterEnvironment returns os.Environ without credentials.
func filterEnvironment() []string {
	var filtered []string
	for _, env := range os.Environ() {
		name, _, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		if safeEnvVars[name] || !isSensitiveEnvVar(name) {
			filtered = append(filtered, env)
		}
	}
	return filtered
}

// LocalSandbox runs commands on the local machine inside a private temp
// directory. File access goes through an afero.BasePathFs, so paths cannot
// escape the workspace.
type LocalSandbox struct {
	root      string
	fs        afero.Fs
	shell     string
	env       map[string]string
	maxOutput int
	waitDelay time.Duration
	owned     bool
}

// Option configures a LocalSandbox.
type Option func(*LocalSandbox)

// WithWorkspace uses dir as the workspace instead of a fresh temp directory.
// Cleanup leaves a caller-supplied directory in place.
func WithWorkspace(dir string) Option {
	return func(s *LocalSandbox) {
		s.root = dir
	}
}

// WithEnv adds variables to every command's environment.
func WithEnv(env map[string]string) Option {
	return func(s *LocalSandbox) {
		for k, v := range env {
			s.env[k] = v
		}
	}
}

// WithShell overrides the shell used to run commands (default /bin/sh).
func WithShell(shell string) Option {
	return func(s *LocalSandbox) {
		s.shell = shell
	}
}

// WithMaxOutput caps the characters kept from each of stdout and stderr.
func WithMaxOutput(chars int) Option {
	return func(s *LocalSandbox) {
		s.maxOutput = chars
	}
}

// NewLocalSandbox creates the workspace directory.
func NewLocalSandbox(opts ...Option) (*LocalSandbox, error) {
	s := &LocalSandbox{
		shell:     "/bin/sh",
		env:       map[string]string{},
		maxOutput: DefaultMaxOutputChars,
		waitDelay: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	osFs := afero.NewOsFs()
	if s.root == "" {
		dir, err := afero.TempDir(osFs, "", "codecrew-")
		if err != nil {
			return nil, &SandboxError{Op: "init", Err: err}
		}
		s.root = dir
		s.owned = true
	} else if err := osFs.MkdirAll(s.root, 0o755); err != nil {
		return nil, &SandboxError{Op: "init", Err: err}
	}

	abs, err := filepath.Abs(s.root)
	if err != nil {
		return nil, &SandboxError{Op: "init", Err: err}
	}
	s.root = abs
	s.fs = afero.NewBasePathFs(osFs, abs)
	return s, nil
}

// Workspace returns the absolute workspace root.
func (s *LocalSandbox) Workspace() string {
	return s.root
}

func (s *LocalSandbox) WriteFile(path, content string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return &SandboxError{Op: "write_file", Err: err}
		}
	}
	if err := afero.WriteFile(s.fs, path, []byte(content), 0o644); err != nil {
		return &SandboxError{Op: "write_file", Err: err}
	}
	return nil
}

func (s *LocalSandbox) ReadFile(path string) (string, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return "", &SandboxError{Op: "read_file", Err: err}
	}
	return string(data), nil
}

// Exec runs command with the workspace as working directory. The command
// gets its own process group, and the whole group is killed when timeout
// elapses or ctx is done.
func (s *LocalSandbox) Exec(ctx context.Context, command string, timeout time.Duration) (*ExecResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, s.shell, "-c", command)
	cmd.Dir = s.root
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = s.waitDelay

	env := filterEnvironment()
	for k, v := range s.env {
		env = append(env, k+"="+v)
	}
	cmd.Env = env

	stdout, stderr := newCappedWriter(s.maxOutput), newCappedWriter(s.maxOutput)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	err := cmd.Run()

	result := &ExecResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if err == nil {
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		result.ExitCode = -1
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			result.TimedOut = true
			return result, &SandboxError{Op: "exec", Err: fmt.Errorf("command exceeded %s: %w", timeout, ctxErr), TimedOut: true}
		}
		return result, &SandboxError{Op: "exec", Err: ctxErr}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	return nil, &SandboxError{Op: "exec", Err: err}
}

// Cleanup removes a workspace created by NewLocalSandbox.
func (s *LocalSandbox) Cleanup() error {
	if !s.owned {
		return nil
	}
	if err := os.RemoveAll(s.root); err != nil {
		return &SandboxError{Op: "cleanup", Err: err}
	}
	return nil
}
