package workflow

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Status is the terminal status of a run.
type Status string

const (
	StatusInProgress      Status = "in_progress"
	StatusSucceeded       Status = "succeeded"
	StatusFailedExhausted Status = "failed_exhausted"
)

// DefaultFailureDiagnostic stands in for a failing outcome that arrived
// without any diagnostic text.
const DefaultFailureDiagnostic = "test failed without diagnostic output"

// TestOutcome is the result of testing one code artifact.
type TestOutcome struct {
	Passed     bool   `json:"passed" yaml:"passed"`
	Diagnostic string `json:"diagnostic,omitempty" yaml:"diagnostic,omitempty"`
	TimedOut   bool   `json:"timed_out,omitempty" yaml:"timed_out,omitempty"`

	// TestFile and TestSource describe the tests that produced the outcome,
	// when the tester generated any.
	TestFile   string `json:"test_file,omitempty" yaml:"test_file,omitempty"`
	TestSource string `json:"test_source,omitempty" yaml:"-"`
}

// Pass returns a passing outcome.
func Pass(diagnostic string) TestOutcome {
	return TestOutcome{Passed: true, Diagnostic: diagnostic}
}

// Fail returns a failing outcome. An empty diagnostic is replaced with
// DefaultFailureDiagnostic.
func Fail(diagnostic string) TestOutcome {
	if diagnostic == "" {
		diagnostic = DefaultFailureDiagnostic
	}
	return TestOutcome{Diagnostic: diagnostic}
}

// Timeout returns a failing outcome marked as timed out.
func Timeout(diagnostic string) TestOutcome {
	o := Fail(diagnostic)
	o.TimedOut = true
	return o
}

// normalized enforces that a failing outcome carries a diagnostic.
func (o TestOutcome) normalized() TestOutcome {
	if !o.Passed && o.Diagnostic == "" {
		o.Diagnostic = DefaultFailureDiagnostic
	}
	return o
}

func (o TestOutcome) label() string {
	switch {
	case o.Passed:
		return "pass"
	case o.TimedOut:
		return "timeout"
	default:
		return "fail"
	}
}

// CodeArtifact is the code produced by one coder pass.
type CodeArtifact struct {
	Language string `json:"language" yaml:"language"`
	FileName string `json:"file_name,omitempty" yaml:"file_name,omitempty"`
	Source   string `json:"source" yaml:"-"`
}

// Empty reports whether the artifact carries no source.
func (c CodeArtifact) Empty() bool {
	return c.Source == ""
}

// Hash is a short content hash of the source.
func (c CodeArtifact) Hash() string {
	h := sha256.Sum256([]byte(c.Source))
	return fmt.Sprintf("%x", h[:8])
}

// AttemptRecord is the immutable snapshot of one cycle.
type AttemptRecord struct {
	Iteration int           `json:"iteration" yaml:"iteration"`
	Code      CodeArtifact  `json:"code" yaml:"code"`
	Outcome   TestOutcome   `json:"outcome" yaml:"outcome"`
	Feedback  *string       `json:"feedback,omitempty" yaml:"feedback,omitempty"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// StageError is a collaborator failure observed during a run.
type StageError struct {
	Stage     string    `json:"stage" yaml:"stage"`
	Iteration int       `json:"iteration" yaml:"iteration"`
	Message   string    `json:"message" yaml:"message"`
	At        time.Time `json:"at" yaml:"at"`
}

// State is the ledger of one run. It is owned by the orchestrator executing
// the run; stages never see it, only the read-views built from it.
type State struct {
	id          string
	requirement string
	plan        string
	code        CodeArtifact
	outcome     *TestOutcome
	feedback    []string
	iteration   int
	phase       Phase
	status      Status
	docs        string
	attempts    []AttemptRecord
	errors      []StageError
	startedAt   time.Time
	finishedAt  time.Time
}

// NewState starts a run for requirement.
func NewState(requirement string) *State {
	now := time.Now()
	return &State{
		id:          ulid.MustNew(ulid.Timestamp(now), ulid.Monotonic(rand.Reader, 0)).String(),
		requirement: requirement,
		phase:       PhasePlan,
		status:      StatusInProgress,
		startedAt:   now,
	}
}

func (s *State) ID() string            { return s.id }
func (s *State) Requirement() string   { return s.requirement }
func (s *State) Plan() string          { return s.plan }
func (s *State) Code() CodeArtifact    { return s.code }
func (s *State) Iteration() int        { return s.iteration }
func (s *State) Phase() Phase          { return s.phase }
func (s *State) Status() Status        { return s.status }
func (s *State) Documentation() string { return s.docs }
func (s *State) StartedAt() time.Time  { return s.startedAt }
func (s *State) FinishedAt() time.Time { return s.finishedAt }

// Outcome returns the most recent test outcome, if any.
func (s *State) Outcome() (TestOutcome, bool) {
	if s.outcome == nil {
		return TestOutcome{}, false
	}
	return *s.outcome, true
}

// Feedback returns a copy of the accumulated debug feedback.
func (s *State) Feedback() []string {
	return append([]string(nil), s.feedback...)
}

// LatestFeedback returns the most recent debug feedback, or "".
func (s *State) LatestFeedback() string {
	if len(s.feedback) == 0 {
		return ""
	}
	return s.feedback[len(s.feedback)-1]
}

// Attempts returns a copy of the attempt records.
func (s *State) Attempts() []AttemptRecord {
	out := make([]AttemptRecord, len(s.attempts))
	for i, a := range s.attempts {
		if a.Feedback != nil {
			fb := *a.Feedback
			a.Feedback = &fb
		}
		out[i] = a
	}
	return out
}

// Errors returns a copy of the collaborator failures observed so far.
func (s *State) Errors() []StageError {
	return append([]StageError(nil), s.errors...)
}

func (s *State) setPhase(p Phase) {
	s.phase = p
	switch p {
	case PhaseSucceeded:
		s.status = StatusSucceeded
		s.finishedAt = time.Now()
	case PhaseFailedExhausted:
		s.status = StatusFailedExhausted
		s.finishedAt = time.Now()
	}
}

// cycle accumulates the writes of one cycle so they land on the State
// together, or not at all.
type cycle struct {
	iteration int
	startedAt time.Time
	code      *CodeArtifact
	outcome   TestOutcome
	feedback  *string
	errors    []StageError
}

// commit applies a finished cycle to the state and appends its record.
func (s *State) commit(c *cycle) AttemptRecord {
	s.iteration = c.iteration
	rec := AttemptRecord{
		Iteration: c.iteration,
		Outcome:   c.outcome,
		StartedAt: c.startedAt,
		Duration:  time.Since(c.startedAt),
	}
	if c.code != nil {
		s.code = *c.code
		rec.Code = *c.code
	}
	outcome := c.outcome
	s.outcome = &outcome
	if c.feedback != nil {
		s.feedback = append(s.feedback, *c.feedback)
		fb := *c.feedback
		rec.Feedback = &fb
	}
	s.errors = append(s.errors, c.errors...)
	s.attempts = append(s.attempts, rec)
	return rec
}

func newStageError(stage Phase, iteration int, err error) StageError {
	return StageError{
		Stage:     stage.Role(),
		Iteration: iteration,
		Message:   err.Error(),
		At:        time.Now(),
	}
}

// Summary is a compact view of a run.
type Summary struct {
	WorkflowID       string `json:"workflow_id" yaml:"workflow_id"`
	Status           Status `json:"status" yaml:"status"`
	Iterations       int    `json:"iterations" yaml:"iterations"`
	Attempts         int    `json:"attempts" yaml:"attempts"`
	FailingCycles    int    `json:"failing_cycles" yaml:"failing_cycles"`
	FeedbackEntries  int    `json:"feedback_entries" yaml:"feedback_entries"`
	HasCode          bool   `json:"has_code" yaml:"has_code"`
	LastTestPassed   *bool  `json:"last_test_passed,omitempty" yaml:"last_test_passed,omitempty"`
	HasDocumentation bool   `json:"has_documentation" yaml:"has_documentation"`
	LastError        string `json:"last_error,omitempty" yaml:"last_error,omitempty"`
}

// Summary reports the state at a glance.
func (s *State) Summary() Summary {
	sum := Summary{
		WorkflowID:       s.id,
		Status:           s.status,
		Iterations:       s.iteration,
		Attempts:         len(s.attempts),
		FeedbackEntries:  len(s.feedback),
		HasCode:          !s.code.Empty(),
		HasDocumentation: s.docs != "",
	}
	for _, a := range s.attempts {
		if !a.Outcome.Passed {
			sum.FailingCycles++
		}
	}
	if s.outcome != nil {
		passed := s.outcome.Passed
		sum.LastTestPassed = &passed
	}
	if n := len(s.errors); n > 0 {
		sum.LastError = s.errors[n-1].Message
	}
	return sum
}
