package sandbox

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSandbox(t *testing.T, opts ...Option) *LocalSandbox {
	t.Helper()
	sb, err := NewLocalSandbox(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sb.Cleanup() })
	return sb
}

func TestLocalSandboxFiles(t *testing.T) {
	sb := newTestSandbox(t)

	require.NoError(t, sb.WriteFile("pkg/solution.py", "print('hi')\n"))
	got, err := sb.ReadFile("pkg/solution.py")
	require.NoError(t, err)
	assert.Equal(t, "print('hi')\n", got)

	onDisk, err := os.ReadFile(filepath.Join(sb.Workspace(), "pkg", "solution.py"))
	require.NoError(t, err)
	assert.Equal(t, "print('hi')\n", string(onDisk))

	_, err = sb.ReadFile("missing.py")
	var se *SandboxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "read_file", se.Op)
}

func TestLocalSandboxConfinesPaths(t *testing.T) {
	sb := newTestSandbox(t)

	err := sb.WriteFile("../escape.txt", "x")
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(filepath.Dir(sb.Workspace()), "escape.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestLocalSandboxExec(t *testing.T) {
	sb := newTestSandbox(t)
	require.NoError(t, sb.WriteFile("data.txt", "payload"))

	res, err := sb.Exec(context.Background(), "cat data.txt; echo oops >&2", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "payload", res.Stdout)
	assert.Equal(t, "oops\n", res.Stderr)
	assert.False(t, res.TimedOut)
	assert.Equal(t, "payload\noops\n", res.Output())
}

func TestLocalSandboxExecNonZeroExit(t *testing.T) {
	sb := newTestSandbox(t)

	res, err := sb.Exec(context.Background(), "echo failing; exit 3", 5*time.Second)
	require.NoError(t, err, "a failing command is a result, not an error")
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "failing\n", res.Stdout)
}

func TestLocalSandboxExecTimeoutKillsGroup(t *testing.T) {
	sb := newTestSandbox(t)

	start := time.Now()
	// The background sleep holds stdout open; only a group kill ends it.
	res, err := sb.Exec(context.Background(), "sleep 30 & sleep 30", 200*time.Millisecond)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	require.NotNil(t, res)
	assert.True(t, res.TimedOut)
	assert.Equal(t, -1, res.ExitCode)
	assert.Less(t, elapsed, 10*time.Second)
}

func TestLocalSandboxExecCancelled(t *testing.T) {
	sb := newTestSandbox(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sb.Exec(ctx, "sleep 5", time.Minute)
	var se *SandboxError
	require.ErrorAs(t, err, &se)
	assert.False(t, se.TimedOut)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalSandboxExecStartFailure(t *testing.T) {
	sb := newTestSandbox(t, WithShell("/nonexistent/shell"))

	_, err := sb.Exec(context.Background(), "true", time.Second)
	var se *SandboxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "exec", se.Op)
}

func TestLocalSandboxFiltersSecrets(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-should-not-leak")
	t.Setenv("CODECREW_API_KEY", "also-secret")
	sb := newTestSandbox(t, WithEnv(map[string]string{"PYTHONDONTWRITEBYTECODE": "1"}))

	res, err := sb.Exec(context.Background(), `echo "[$OPENAI_API_KEY][$CODECREW_API_KEY][$PYTHONDONTWRITEBYTECODE]"`, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "[][][1]\n", res.Stdout)
}

func TestLocalSandboxTruncatesOutput(t *testing.T) {
	sb := newTestSandbox(t, WithMaxOutput(100))

	res, err := sb.Exec(context.Background(), "head -c 5000 /dev/zero | tr '\\0' 'a'", 5*time.Second)
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "output truncated")
	assert.Less(t, len(res.Stdout), 500)
}

func TestLocalSandboxBoundsLargeOutput(t *testing.T) {
	sb := newTestSandbox(t)

	res, err := sb.Exec(context.Background(),
		"head -c 5000000 /dev/zero | tr '\\0' 'a'; echo; echo 'E   AssertionError: 4 != 5'; head -c 5000000 /dev/zero | tr '\\0' 'b' >&2",
		30*time.Second)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(res.Stdout), DefaultMaxOutputChars+200)
	assert.LessOrEqual(t, len(res.Stderr), DefaultMaxOutputChars+200)
	assert.True(t, strings.HasPrefix(res.Stdout, "aaaa"))
	assert.True(t, strings.HasSuffix(res.Stdout, "E   AssertionError: 4 != 5\n"))
	assert.Contains(t, res.Stderr, "output truncated")
}

func TestLocalSandboxCleanup(t *testing.T) {
	sb, err := NewLocalSandbox()
	require.NoError(t, err)
	root := sb.Workspace()
	assert.True(t, strings.HasPrefix(filepath.Base(root), "codecrew-"))

	require.NoError(t, sb.Cleanup())
	_, statErr := os.Stat(root)
	assert.True(t, os.IsNotExist(statErr))

	dir := t.TempDir()
	kept, err := NewLocalSandbox(WithWorkspace(dir))
	require.NoError(t, err)
	require.NoError(t, kept.Cleanup())
	_, statErr = os.Stat(dir)
	assert.NoError(t, statErr, "caller-owned workspace survives cleanup")
}

func TestIsSensitiveEnvVar(t *testing.T) {
	assert.True(t, isSensitiveEnvVar("ANTHROPIC_API_KEY"))
	assert.True(t, isSensitiveEnvVar("github_token"))
	assert.True(t, isSensitiveEnvVar("CODECREW_LLM_MODEL"))
	assert.False(t, isSensitiveEnvVar("PATH"))
	assert.False(t, isSensitiveEnvVar("PYTHONPATH"))
}
