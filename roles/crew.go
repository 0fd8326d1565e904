package roles

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/martinemde/codecrew/logging"
	"github.com/martinemde/codecrew/unifiedllm"
	"github.com/martinemde/codecrew/workflow"
)

// CrewConfig configures NewCrew.
type CrewConfig struct {
	Language    string
	Model       string
	Temperature float64
	MaxTokens   int
	// TestCommand overrides the language default when set.
	TestCommand string
	ExecTimeout time.Duration
	MaxRetries  int
	// Profiles replaces DefaultProfiles when non-nil.
	Profiles   *Profiles
	NewSandbox SandboxFactory
	Logger     *logging.Logger
}

// NewCrew builds all five stages on client.
func NewCrew(client *unifiedllm.Client, cfg CrewConfig) (workflow.Stages, error) {
	if client == nil {
		return workflow.Stages{}, fmt.Errorf("llm client is required")
	}
	lang, err := LookupLanguage(cfg.Language)
	if err != nil {
		return workflow.Stages{}, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	newSandbox := cfg.NewSandbox
	if newSandbox == nil {
		newSandbox = LocalSandboxes()
	}

	profiles := DefaultProfiles(lang, cfg.Model, cfg.Temperature, cfg.MaxTokens)
	if cfg.Profiles != nil {
		profiles = *cfg.Profiles
	}

	retry := unifiedllm.DefaultRetryPolicy()
	retry.MaxRetries = cfg.MaxRetries
	retry.OnRetry = func(ctx context.Context, err error, attempt int, delay time.Duration) {
		logger.Warn(ctx, "retrying llm request",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
		)
	}

	tester, err := NewSandboxTester(client, profiles.Tester, lang, newSandbox, &retry,
		WithTestCommand(cfg.TestCommand),
		WithExecTimeout(cfg.ExecTimeout),
		WithTesterLogger(logger.Named("tester")),
	)
	if err != nil {
		return workflow.Stages{}, err
	}

	return workflow.Stages{
		Planner:    NewLLMPlanner(client, profiles.Planner, &retry),
		Coder:      NewLLMCoder(client, profiles.Coder, lang, &retry),
		Tester:     tester,
		Debugger:   NewLLMDebugger(client, profiles.Debugger, &retry),
		Documenter: NewLLMDocumenter(client, profiles.Documenter, &retry),
	}, nil
}
