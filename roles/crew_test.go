package roles

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/martinemde/codecrew/logging"
	"github.com/martinemde/codecrew/sandbox"
	"github.com/martinemde/codecrew/unifiedllm"
	"github.com/martinemde/codecrew/workflow"
)

func TestNewCrewRunsWorkflow(t *testing.T) {
	llm := newScriptedLLM(map[string][]string{
		"planner": {"1. write add\n2. test it"},
		"coder": {
			"```python\ndef add(a, b):\n    return a - b\n```",
			"```python\ndef add(a, b):\n    return a + b\n```",
		},
		"tester":     {generatedTests},
		"debugger":   {"add subtracts; use + instead"},
		"documenter": {"# add\n\nAdds two numbers."},
	})

	runs := []*fakeSandbox{
		newFakeSandbox(&sandbox.ExecResult{Stdout: "assert -1 == 3", ExitCode: 1}, nil),
		newFakeSandbox(&sandbox.ExecResult{Stdout: "1 passed"}, nil),
	}
	next := 0
	factory := func() (sandbox.Sandbox, error) {
		sb := runs[next]
		next++
		return sb, nil
	}

	stages, err := NewCrew(llm.client(), CrewConfig{
		Language:    "python",
		Model:       "test-model",
		Temperature: 0.5,
		MaxTokens:   1024,
		ExecTimeout: 10 * time.Second,
		NewSandbox:  factory,
	})
	require.NoError(t, err)

	o, err := workflow.NewOrchestrator(stages, workflow.Config{
		Model:         "test-model",
		Temperature:   0.5,
		MaxTokens:     1024,
		MaxIterations: 3,
		Timeout:       5 * time.Second,
	})
	require.NoError(t, err)

	res, err := o.Execute(context.Background(), "Add two numbers")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusSucceeded, res.Status)
	assert.Equal(t, 2, res.Iterations)
	assert.Equal(t, []string{"add subtracts; use + instead"}, res.Feedback)
	assert.Equal(t, "def add(a, b):\n    return a + b\n", res.Code.Source)
	assert.Equal(t, "add_two_numbers.py", res.Code.FileName)
	assert.Equal(t, "# add\n\nAdds two numbers.", res.Documentation)
	assert.Equal(t, "test_add_two_numbers.py", res.Attempts[1].Outcome.TestFile)

	assert.Contains(t, userPrompt(llm.lastRequest("coder")), "add subtracts; use + instead")
	assert.Contains(t, userPrompt(llm.lastRequest("debugger")), "assert -1 == 3")
	for _, sb := range runs {
		assert.True(t, sb.cleaned)
	}
}

func TestNewCrewConfiguration(t *testing.T) {
	llm := newScriptedLLM(nil)

	_, err := NewCrew(nil, CrewConfig{Language: "python"})
	assert.Error(t, err)

	_, err = NewCrew(llm.client(), CrewConfig{Language: "brainfuck"})
	assert.ErrorContains(t, err, "unsupported language")

	_, err = NewCrew(llm.client(), CrewConfig{Language: "python", TestCommand: "pytest"})
	assert.ErrorContains(t, err, TestPlaceholder)

	custom := DefaultProfiles(languages["python"], "m", 0, 0)
	custom.Planner.System = "be brief"
	stages, err := NewCrew(llm.client(), CrewConfig{Language: "python", Profiles: &custom})
	require.NoError(t, err)
	assert.Equal(t, "be brief", stages.Planner.(*LLMPlanner).profile.System)
}

func TestNewCrewLogsRetries(t *testing.T) {
	logger := logging.NewTestLogger()
	llm := newScriptedLLM(map[string][]string{"planner": {"plan"}})
	llm.errs["planner"] = &unifiedllm.ServerError{ProviderError: unifiedllm.ProviderError{
		SDKError:  unifiedllm.SDKError{Message: "overloaded"},
		Retryable: true,
	}}

	stages, err := NewCrew(llm.client(), CrewConfig{Language: "python", MaxRetries: 1, Logger: logger.Logger})
	require.NoError(t, err)

	ctx := logging.WithStage(logging.WithWorkflowID(context.Background(), "run-7"), "planner")
	ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = stages.Planner.Plan(ctx, workflow.PlanInput{Requirement: "x"})
	require.Error(t, err)
	logger.AssertLogged(t, zapcore.WarnLevel, "retrying llm request")
	logger.AssertCorrelated(t, "retrying llm request", "run-7", "planner")
	logger.AssertField(t, "retrying llm request", "attempt", int64(1))
}
