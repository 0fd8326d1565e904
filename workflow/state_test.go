package workflow

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcomeConstructors(t *testing.T) {
	assert.Equal(t, DefaultFailureDiagnostic, Fail("").Diagnostic)
	assert.False(t, Fail("x").Passed)
	assert.True(t, Pass("").Passed)

	to := Timeout("")
	assert.True(t, to.TimedOut)
	assert.False(t, to.Passed)
	assert.Equal(t, DefaultFailureDiagnostic, to.Diagnostic)

	assert.Equal(t, DefaultFailureDiagnostic, TestOutcome{}.normalized().Diagnostic)
	assert.Empty(t, TestOutcome{Passed: true}.normalized().Diagnostic)

	assert.Equal(t, "pass", Pass("").label())
	assert.Equal(t, "fail", Fail("x").label())
	assert.Equal(t, "timeout", to.label())
}

func TestCodeArtifactHash(t *testing.T) {
	a := CodeArtifact{Language: "python", Source: "print(1)"}
	b := CodeArtifact{Language: "go", Source: "print(1)"}
	c := CodeArtifact{Source: "print(2)"}
	assert.Equal(t, a.Hash(), b.Hash())
	assert.NotEqual(t, a.Hash(), c.Hash())
	assert.Len(t, a.Hash(), 16)
	assert.True(t, CodeArtifact{}.Empty())
}

func TestNewState(t *testing.T) {
	s := NewState("add two numbers")
	assert.Len(t, s.ID(), 26)
	assert.Equal(t, PhasePlan, s.Phase())
	assert.Equal(t, StatusInProgress, s.Status())
	assert.Zero(t, s.Iteration())
	assert.Empty(t, s.LatestFeedback())
	assert.True(t, s.FinishedAt().IsZero())
	_, ok := s.Outcome()
	assert.False(t, ok)

	assert.NotEqual(t, s.ID(), NewState("add two numbers").ID())
}

func TestStateCommit(t *testing.T) {
	s := NewState("req")
	fb := "fix the sign"
	code := CodeArtifact{Language: "python", Source: "x = 1"}
	rec := s.commit(&cycle{
		iteration: 1,
		startedAt: time.Now().Add(-time.Second),
		code:      &code,
		outcome:   Fail("wrong"),
		feedback:  &fb,
		errors:    []StageError{{Stage: "debugger", Iteration: 1, Message: "x"}},
	})

	assert.Equal(t, 1, rec.Iteration)
	assert.GreaterOrEqual(t, rec.Duration, time.Second)
	assert.Equal(t, 1, s.Iteration())
	assert.Equal(t, code, s.Code())
	assert.Equal(t, "fix the sign", s.LatestFeedback())
	out, ok := s.Outcome()
	require.True(t, ok)
	assert.Equal(t, "wrong", out.Diagnostic)
	assert.Len(t, s.Errors(), 1)

	// A cycle without code keeps the previous code.
	s.commit(&cycle{iteration: 2, startedAt: time.Now(), outcome: Fail("coder failed")})
	assert.Equal(t, code, s.Code())
	assert.True(t, s.Attempts()[1].Code.Empty())
	assert.Nil(t, s.Attempts()[1].Feedback)
}

func TestStateAccessorsReturnCopies(t *testing.T) {
	s := NewState("req")
	fb := "original"
	s.commit(&cycle{iteration: 1, startedAt: time.Now(), outcome: Fail("x"), feedback: &fb})

	attempts := s.Attempts()
	*attempts[0].Feedback = "mutated"
	attempts[0].Iteration = 99
	feedback := s.Feedback()
	feedback[0] = "mutated"
	fb = "mutated"

	assert.Equal(t, "original", *s.Attempts()[0].Feedback)
	assert.Equal(t, 1, s.Attempts()[0].Iteration)
	assert.Equal(t, []string{"original"}, s.Feedback())
}

func TestSetPhaseStampsTerminal(t *testing.T) {
	s := NewState("req")
	s.setPhase(PhaseCode)
	assert.Equal(t, StatusInProgress, s.Status())
	assert.True(t, s.FinishedAt().IsZero())

	s.setPhase(PhaseFailedExhausted)
	assert.Equal(t, StatusFailedExhausted, s.Status())
	assert.False(t, s.FinishedAt().IsZero())
}

func TestSummary(t *testing.T) {
	s := NewState("req")
	fb := "f"
	code := CodeArtifact{Source: "x"}
	s.commit(&cycle{iteration: 1, startedAt: time.Now(), code: &code, outcome: Fail("a"), feedback: &fb})
	s.commit(&cycle{iteration: 2, startedAt: time.Now(), code: &code, outcome: Pass("ok"),
		errors: []StageError{{Stage: "tester", Message: "flaky"}}})
	s.docs = "# doc"
	s.setPhase(PhaseSucceeded)

	sum := s.Summary()
	assert.Equal(t, s.ID(), sum.WorkflowID)
	assert.Equal(t, StatusSucceeded, sum.Status)
	assert.Equal(t, 2, sum.Iterations)
	assert.Equal(t, 2, sum.Attempts)
	assert.Equal(t, 1, sum.FailingCycles)
	assert.Equal(t, 1, sum.FeedbackEntries)
	assert.True(t, sum.HasCode)
	assert.True(t, sum.HasDocumentation)
	require.NotNil(t, sum.LastTestPassed)
	assert.True(t, *sum.LastTestPassed)
	assert.Equal(t, "flaky", sum.LastError)
}

func TestRenderFallbackDocumentation(t *testing.T) {
	doc := RenderFallbackDocumentation("  add numbers ", "step 1", CodeArtifact{Language: "python", FileName: "add.py", Source: "def add(a, b):\n    return a + b\n"})
	assert.True(t, strings.HasPrefix(doc, "# add.py\n"))
	assert.Contains(t, doc, "## Requirement\n\nadd numbers\n")
	assert.Contains(t, doc, "## Design\n\nstep 1")
	assert.Contains(t, doc, "```python\ndef add(a, b):\n    return a + b\n```")

	doc = RenderFallbackDocumentation("r", "  ", CodeArtifact{Source: "x"})
	assert.True(t, strings.HasPrefix(doc, "# Solution\n"))
	assert.NotContains(t, doc, "## Design")
}

func TestDetectStall(t *testing.T) {
	rec := func(src string) AttemptRecord { return AttemptRecord{Code: CodeArtifact{Source: src}} }

	tests := []struct {
		name     string
		attempts []AttemptRecord
		window   int
		want     bool
	}{
		{"too few", []AttemptRecord{rec("a"), rec("a")}, 3, false},
		{"repeated", []AttemptRecord{rec("x"), rec("a"), rec("a"), rec("a")}, 3, true},
		{"alternating", []AttemptRecord{rec("a"), rec("b"), rec("a"), rec("b")}, 4, true},
		{"varied", []AttemptRecord{rec("a"), rec("b"), rec("c")}, 3, false},
		{"empty code breaks", []AttemptRecord{rec(""), rec(""), rec("")}, 3, false},
		{"window of two", []AttemptRecord{rec("a"), rec("a")}, 2, true},
		{"disabled", []AttemptRecord{rec("a"), rec("a")}, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectStall(tt.attempts, tt.window))
		})
	}
}
