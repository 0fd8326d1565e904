package roles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/martinemde/codecrew/logging"
	"github.com/martinemde/codecrew/sandbox"
	"github.com/martinemde/codecrew/unifiedllm"
	"github.com/martinemde/codecrew/workflow"
)

// TestPlaceholder marks where the test file path goes in a test command.
// Configured commands must contain it; an empty command selects the
// language's default runner.
const TestPlaceholder = "{test}"

// DefaultExecTimeout bounds one run of the test command.
const DefaultExecTimeout = 30 * time.Second

// SandboxFactory creates a fresh sandbox for one test run.
type SandboxFactory func() (sandbox.Sandbox, error)

// LocalSandboxes creates a LocalSandbox per test run.
func LocalSandboxes(opts ...sandbox.Option) SandboxFactory {
	return func() (sandbox.Sandbox, error) {
		sb, err := sandbox.NewLocalSandbox(opts...)
		if err != nil {
			return nil, err
		}
		return sb, nil
	}
}

// SandboxTester has the model write tests for an artifact and runs them in a
// sandbox. A zero exit status passes.
type SandboxTester struct {
	caller
	lang        Language
	command     string
	execTimeout time.Duration
	newSandbox  SandboxFactory
	maxChars    int
	maxLines    int
	logger      *logging.Logger
}

// TesterOption configures a SandboxTester.
type TesterOption func(*SandboxTester)

// WithTestCommand overrides the language's default test command. The
// command must contain TestPlaceholder.
func WithTestCommand(command string) TesterOption {
	return func(t *SandboxTester) {
		if command != "" {
			t.command = command
		}
	}
}

// WithExecTimeout bounds each run of the test command.
func WithExecTimeout(d time.Duration) TesterOption {
	return func(t *SandboxTester) {
		if d > 0 {
			t.execTimeout = d
		}
	}
}

// WithDiagnosticLimits bounds the diagnostic kept from test output.
func WithDiagnosticLimits(maxChars, maxLines int) TesterOption {
	return func(t *SandboxTester) {
		t.maxChars = maxChars
		t.maxLines = maxLines
	}
}

func WithTesterLogger(l *logging.Logger) TesterOption {
	return func(t *SandboxTester) {
		t.logger = l
	}
}

// NewSandboxTester creates a tester that runs in sandboxes from newSandbox.
func NewSandboxTester(client *unifiedllm.Client, profile Profile, lang Language, newSandbox SandboxFactory, retry *unifiedllm.RetryPolicy, opts ...TesterOption) (*SandboxTester, error) {
	if newSandbox == nil {
		return nil, errors.New("sandbox factory is required")
	}
	t := &SandboxTester{
		caller:      caller{client: client, profile: profile, retry: retry},
		lang:        lang,
		command:     lang.DefaultTestCommand,
		execTimeout: DefaultExecTimeout,
		newSandbox:  newSandbox,
		maxChars:    sandbox.DefaultMaxOutputChars,
		maxLines:    sandbox.DefaultMaxDiagnosticLines,
		logger:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if !strings.Contains(t.command, TestPlaceholder) {
		return nil, fmt.Errorf("test command %q does not contain %s", t.command, TestPlaceholder)
	}
	return t, nil
}

func (t *SandboxTester) Test(ctx context.Context, code workflow.CodeArtifact) (workflow.TestOutcome, error) {
	codeFile := code.FileName
	if codeFile == "" {
		codeFile = defaultSlug + t.lang.Extension
	}
	testFile := t.lang.TestFileName(codeFile)

	reply, err := t.complete(ctx, t.prompt(code, codeFile))
	if err != nil {
		return workflow.TestOutcome{}, fmt.Errorf("generate tests: %w", err)
	}
	testSrc := withTrailingNewline(ExtractCode(reply, t.lang))
	if testSrc == "" {
		return workflow.TestOutcome{}, errors.New("generate tests: reply contained no code")
	}

	sb, err := t.newSandbox()
	if err != nil {
		return workflow.TestOutcome{}, err
	}
	defer func() {
		if err := sb.Cleanup(); err != nil {
			t.logger.Warn(ctx, "sandbox cleanup failed", zap.Error(err), zap.String("workspace", sb.Workspace()))
		}
	}()

	if err := sb.WriteFile(codeFile, code.Source); err != nil {
		return workflow.TestOutcome{}, err
	}
	if err := sb.WriteFile(testFile, testSrc); err != nil {
		return workflow.TestOutcome{}, err
	}

	command := strings.ReplaceAll(t.command, TestPlaceholder, shellQuote(testFile))
	res, err := sb.Exec(ctx, command, t.execTimeout)
	diag := sandbox.Diagnostic(res, t.maxChars, t.maxLines)

	var out workflow.TestOutcome
	switch {
	case sandbox.IsTimeout(err):
		msg := fmt.Sprintf("timeout: tests did not finish within %s", t.execTimeout)
		if diag != "" {
			msg += "\npartial output:\n" + diag
		}
		out = workflow.Timeout(msg)
	case err != nil:
		return workflow.TestOutcome{}, err
	case res.ExitCode == 0:
		out = workflow.Pass(diag)
	default:
		out = workflow.Fail(fmt.Sprintf("exit status %d\n%s", res.ExitCode, diag))
	}
	out.TestFile = testFile
	out.TestSource = testSrc

	t.logger.Debug(ctx, "tests executed",
		zap.String("test_file", testFile),
		zap.Bool("passed", out.Passed),
		zap.Bool("timed_out", out.TimedOut),
	)
	return out, nil
}

func (t *SandboxTester) prompt(code workflow.CodeArtifact, codeFile string) string {
	module := strings.TrimSuffix(codeFile, t.lang.Extension)
	return fmt.Sprintf("The code below is saved as %s (module %q) in the current directory.\n\n```%s\n%s\n```\n\nWrite the tests using %s.",
		codeFile, module, t.lang.Fence(), strings.TrimRight(code.Source, "\n"), t.lang.TestFramework)
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
