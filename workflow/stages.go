package workflow

import "context"

// PlanInput is what the planner may read.
type PlanInput struct {
	Requirement string
}

// CodeInput is what the coder may read. Feedback holds only the most recent
// debug feedback; it is empty on the first cycle.
type CodeInput struct {
	Requirement string
	Plan        string
	Feedback    string
	Iteration   int
}

// DebugInput is what the debugger may read.
type DebugInput struct {
	Code      CodeArtifact
	Outcome   TestOutcome
	Iteration int
}

// DocInput is what the documenter may read.
type DocInput struct {
	Code CodeArtifact
	Plan string
}

// Planner turns the requirement into a plan.
type Planner interface {
	Plan(ctx context.Context, in PlanInput) (string, error)
}

// Coder produces a complete code artifact for the current cycle.
type Coder interface {
	Code(ctx context.Context, in CodeInput) (CodeArtifact, error)
}

// Tester evaluates a code artifact.
type Tester interface {
	Test(ctx context.Context, code CodeArtifact) (TestOutcome, error)
}

// Debugger explains a failing outcome so the next coder pass can fix it.
type Debugger interface {
	Debug(ctx context.Context, in DebugInput) (string, error)
}

// Documenter writes the final documentation for passing code.
type Documenter interface {
	Document(ctx context.Context, in DocInput) (string, error)
}

// Stages bundles one implementation of every role.
type Stages struct {
	Planner    Planner
	Coder      Coder
	Tester     Tester
	Debugger   Debugger
	Documenter Documenter
}

func (s Stages) validate() error {
	missing := func(name string) error {
		return &ValidationError{Field: "stages", Reason: name + " is nil"}
	}
	switch {
	case s.Planner == nil:
		return missing("planner")
	case s.Coder == nil:
		return missing("coder")
	case s.Tester == nil:
		return missing("tester")
	case s.Debugger == nil:
		return missing("debugger")
	case s.Documenter == nil:
		return missing("documenter")
	}
	return nil
}

// PlannerFunc adapts a function to Planner.
type PlannerFunc func(ctx context.Context, in PlanInput) (string, error)

// Plan calls f.
func (f PlannerFunc) Plan(ctx context.Context, in PlanInput) (string, error) { return f(ctx, in) }

// CoderFunc adapts a function to Coder.
type CoderFunc func(ctx context.Context, in CodeInput) (CodeArtifact, error)

// Code calls f.
func (f CoderFunc) Code(ctx context.Context, in CodeInput) (CodeArtifact, error) { return f(ctx, in) }

// TesterFunc adapts a function to Tester.
type TesterFunc func(ctx context.Context, code CodeArtifact) (TestOutcome, error)

// Test calls f.
func (f TesterFunc) Test(ctx context.Context, code CodeArtifact) (TestOutcome, error) {
	return f(ctx, code)
}

// DebuggerFunc adapts a function to Debugger.
type DebuggerFunc func(ctx context.Context, in DebugInput) (string, error)

// Debug calls f.
func (f DebuggerFunc) Debug(ctx context.Context, in DebugInput) (string, error) { return f(ctx, in) }

// DocumenterFunc adapts a function to Documenter.
type DocumenterFunc func(ctx context.Context, in DocInput) (string, error)

// Document calls f.
func (f DocumenterFunc) Document(ctx context.Context, in DocInput) (string, error) {
	return f(ctx, in)
}
