package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// fakeCrew is a scripted set of stages. Tester outcomes are consumed per
// call; the last one repeats.
type fakeCrew struct {
	mu sync.Mutex

	outcomes []TestOutcome
	testErrs []error

	planErr  error
	codeErr  func(iteration int) error
	debugErr error
	docErr   error
	docText  string

	// sameCode makes the coder return identical source every cycle.
	sameCode bool

	planCalls  int
	codeInputs []CodeInput
	tested     []CodeArtifact
	debugIns   []DebugInput
	docIns     []DocInput

	// onTest runs inside the tester, before it returns.
	onTest func(call int)
}

func (f *fakeCrew) stages() Stages {
	return Stages{
		Planner: PlannerFunc(func(ctx context.Context, in PlanInput) (string, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.planCalls++
			if f.planErr != nil {
				return "", f.planErr
			}
			return "plan for: " + in.Requirement, nil
		}),
		Coder: CoderFunc(func(ctx context.Context, in CodeInput) (CodeArtifact, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.codeInputs = append(f.codeInputs, in)
			if f.codeErr != nil {
				if err := f.codeErr(in.Iteration); err != nil {
					return CodeArtifact{}, err
				}
			}
			src := fmt.Sprintf("def solve():\n    return %d\n", in.Iteration)
			if f.sameCode {
				src = "def solve():\n    return 0\n"
			}
			return CodeArtifact{Language: "python", FileName: "solve.py", Source: src}, nil
		}),
		Tester: TesterFunc(func(ctx context.Context, code CodeArtifact) (TestOutcome, error) {
			f.mu.Lock()
			call := len(f.tested)
			f.tested = append(f.tested, code)
			hook := f.onTest
			var out TestOutcome
			if len(f.outcomes) > 0 {
				out = f.outcomes[min(call, len(f.outcomes)-1)]
			}
			var err error
			if call < len(f.testErrs) {
				err = f.testErrs[call]
			}
			f.mu.Unlock()
			if hook != nil {
				hook(call)
			}
			return out, err
		}),
		Debugger: DebuggerFunc(func(ctx context.Context, in DebugInput) (string, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.debugIns = append(f.debugIns, in)
			if f.debugErr != nil {
				return "", f.debugErr
			}
			return fmt.Sprintf("fix cycle %d: %s", in.Iteration, in.Outcome.Diagnostic), nil
		}),
		Documenter: DocumenterFunc(func(ctx context.Context, in DocInput) (string, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.docIns = append(f.docIns, in)
			if f.docErr != nil {
				return "", f.docErr
			}
			if f.docText != "" {
				return f.docText, nil
			}
			return "# Docs\n" + in.Code.FileName, nil
		}),
	}
}

func (f *fakeCrew) debugCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.debugIns)
}

func (f *fakeCrew) testCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tested)
}

// failThenPass fails the first k-1 cycles and passes cycle k.
func failThenPass(k int) []TestOutcome {
	out := make([]TestOutcome, 0, k)
	for i := 1; i < k; i++ {
		out = append(out, Fail(fmt.Sprintf("assertion failed in cycle %d", i)))
	}
	return append(out, Pass("all tests passed"))
}

func alwaysFail() []TestOutcome {
	return []TestOutcome{Fail("AssertionError: expected 3, got 2")}
}

func testConfig(maxIterations int) Config {
	return Config{
		Model:         "test-model",
		Temperature:   0.7,
		MaxTokens:     1024,
		MaxIterations: maxIterations,
		Timeout:       2 * time.Second,
	}
}
