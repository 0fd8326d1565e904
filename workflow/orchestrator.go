package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/martinemde/codecrew/logging"
)

// Config bounds a run.
type Config struct {
	Model         string
	Temperature   float64
	MaxTokens     int
	MaxIterations int
	// Timeout is the deadline for each stage call.
	Timeout time.Duration
	// StallWindow is how many identical attempts in a row raise a stall
	// warning. Zero means DefaultStallWindow.
	StallWindow int
}

// Validate rejects configurations no run could honor.
func (c Config) Validate() error {
	switch {
	case c.MaxIterations < 1:
		return &ValidationError{Field: "max_iterations", Reason: fmt.Sprintf("must be at least 1, got %d", c.MaxIterations)}
	case c.Temperature < 0 || c.Temperature > 2:
		return &ValidationError{Field: "temperature", Reason: fmt.Sprintf("must be within [0, 2], got %g", c.Temperature)}
	case c.MaxTokens < 0:
		return &ValidationError{Field: "max_tokens", Reason: fmt.Sprintf("must not be negative, got %d", c.MaxTokens)}
	case c.Timeout <= 0:
		return &ValidationError{Field: "timeout", Reason: "must be positive"}
	case c.StallWindow == 1 || c.StallWindow < 0:
		return &ValidationError{Field: "stall_window", Reason: "must be 0 or at least 2"}
	}
	return nil
}

// Result is what a run hands back to its caller.
type Result struct {
	Success       bool            `json:"success" yaml:"success"`
	WorkflowID    string          `json:"workflow_id" yaml:"workflow_id"`
	Status        Status          `json:"status" yaml:"status"`
	Requirement   string          `json:"requirement" yaml:"requirement"`
	Plan          string          `json:"plan" yaml:"plan"`
	Code          CodeArtifact    `json:"code" yaml:"code"`
	Documentation string          `json:"documentation,omitempty" yaml:"-"`
	Attempts      []AttemptRecord `json:"attempts" yaml:"attempts"`
	Feedback      []string        `json:"feedback" yaml:"feedback"`
	Iterations    int             `json:"iterations" yaml:"iterations"`
	Errors        []StageError    `json:"errors,omitempty" yaml:"errors,omitempty"`
	StartedAt     time.Time       `json:"started_at" yaml:"started_at"`
	FinishedAt    time.Time       `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Summary       Summary         `json:"summary" yaml:"summary"`
}

// Result snapshots the state. The returned value shares nothing with s.
func (s *State) Result() *Result {
	return &Result{
		Success:       s.status == StatusSucceeded,
		WorkflowID:    s.id,
		Status:        s.status,
		Requirement:   s.requirement,
		Plan:          s.plan,
		Code:          s.code,
		Documentation: s.docs,
		Attempts:      s.Attempts(),
		Feedback:      s.Feedback(),
		Iterations:    s.iteration,
		Errors:        s.Errors(),
		StartedAt:     s.startedAt,
		FinishedAt:    s.finishedAt,
		Summary:       s.Summary(),
	}
}

// Orchestrator sequences the stages of a run. Every branching decision is
// delegated to Transition. An Orchestrator is safe for concurrent Execute
// calls as long as its stages are.
type Orchestrator struct {
	stages  Stages
	cfg     Config
	logger  *logging.Logger
	events  *EventEmitter
	metrics *Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *logging.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithEvents sets the event emitter.
func WithEvents(e *EventEmitter) Option {
	return func(o *Orchestrator) {
		o.events = e
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// NewOrchestrator validates cfg and stages.
func NewOrchestrator(stages Stages, cfg Config, opts ...Option) (*Orchestrator, error) {
	if err := stages.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.StallWindow == 0 {
		cfg.StallWindow = DefaultStallWindow
	}
	o := &Orchestrator{
		stages: stages,
		cfg:    cfg,
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Config returns the run configuration.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Execute runs requirement to a terminal status.
//
// A blank requirement is rejected with a *ValidationError before any stage
// runs. Exhausting the iteration budget is not an error: the Result carries
// StatusFailedExhausted. Cancelling ctx stops the run at the next cycle
// boundary; the partial Result (StatusInProgress) is returned along with an
// error wrapping ctx.Err().
func (o *Orchestrator) Execute(ctx context.Context, requirement string) (*Result, error) {
	if strings.TrimSpace(requirement) == "" {
		return nil, &ValidationError{Field: "requirement", Reason: "must not be empty"}
	}

	state := NewState(requirement)
	ctx = logging.WithWorkflowID(ctx, state.ID())

	o.events.Emit(state.ID(), EventRunStart, map[string]any{
		"requirement":    requirement,
		"max_iterations": o.cfg.MaxIterations,
		"model":          o.cfg.Model,
	})
	o.logger.Info(ctx, "run started",
		zap.Int("max_iterations", o.cfg.MaxIterations),
		zap.String("model", o.cfg.Model),
	)

	for !state.Phase().Terminal() {
		phase := state.Phase()

		// Cycle boundaries are the only places a run may stop early.
		if phase == PhasePlan || phase == PhaseCode {
			if err := ctx.Err(); err != nil {
				return o.finish(ctx, state, fmt.Errorf("run %s cancelled after %d cycles: %w", state.ID(), state.Iteration(), err))
			}
		}

		switch phase {
		case PhasePlan:
			o.plan(ctx, state)
		case PhaseCode:
			o.cycle(ctx, state)
		case PhaseDocument:
			o.document(ctx, state)
		default:
			return o.finish(ctx, state, fmt.Errorf("run %s reached unexpected phase %s", state.ID(), phase))
		}

		o.logger.Debug(ctx, "phase transition",
			zap.Stringer("from", phase),
			zap.Stringer("to", state.Phase()),
			zap.Int("iteration", state.Iteration()),
		)
	}

	return o.finish(ctx, state, nil)
}

func (o *Orchestrator) finish(ctx context.Context, state *State, err error) (*Result, error) {
	res := state.Result()
	data := map[string]any{
		"status":     string(res.Status),
		"iterations": res.Iterations,
	}
	if err != nil {
		data["error"] = err.Error()
		o.logger.Warn(ctx, "run stopped", zap.Error(err), zap.Int("iteration", res.Iterations))
	} else {
		o.metrics.runFinished(res.Status, res.Iterations)
		o.logger.Info(ctx, "run finished",
			zap.String("status", string(res.Status)),
			zap.Int("iterations", res.Iterations),
			zap.Int("feedback", len(res.Feedback)),
		)
	}
	o.events.Emit(state.ID(), EventRunEnd, data)
	return res, err
}

func (o *Orchestrator) plan(ctx context.Context, state *State) {
	plan, err := runStage(ctx, o, state.ID(), PhasePlan, 0, func(ctx context.Context) (string, error) {
		return o.stages.Planner.Plan(ctx, PlanInput{Requirement: state.Requirement()})
	})
	if err != nil {
		state.errors = append(state.errors, newStageError(PhasePlan, 0, err))
		o.warn(ctx, state.ID(), "planning failed, continuing without a plan", err)
		plan = ""
	}
	state.plan = plan
	state.setPhase(Transition(PhasePlan, 0, o.cfg.MaxIterations, TestOutcome{}))
}

// cycle runs one coder -> tester (-> debugger) pass and commits it as a unit.
func (o *Orchestrator) cycle(ctx context.Context, state *State) {
	c := &cycle{iteration: state.Iteration() + 1, startedAt: time.Now()}
	id := state.ID()
	limit := o.cfg.MaxIterations

	code, err := runStage(ctx, o, id, PhaseCode, c.iteration, func(ctx context.Context) (CodeArtifact, error) {
		return o.stages.Coder.Code(ctx, CodeInput{
			Requirement: state.Requirement(),
			Plan:        state.Plan(),
			Feedback:    state.LatestFeedback(),
			Iteration:   c.iteration,
		})
	})
	if err == nil && code.Empty() {
		err = &CollaboratorError{Stage: PhaseCode.Role(), Err: errors.New("no code produced")}
	}

	if err != nil {
		// Nothing to test; the cycle fails on the coder's account.
		c.errors = append(c.errors, newStageError(PhaseCode, c.iteration, err))
		c.outcome = failureOutcome(err)
		o.warn(ctx, id, "coder failed", err)
	} else {
		c.code = &code
		outcome, err := runStage(ctx, o, id, Transition(PhaseCode, c.iteration, limit, TestOutcome{}), c.iteration,
			func(ctx context.Context) (TestOutcome, error) {
				return o.stages.Tester.Test(ctx, code)
			})
		if err != nil {
			c.errors = append(c.errors, newStageError(PhaseTest, c.iteration, err))
			outcome = failureOutcome(err)
			o.warn(ctx, id, "tester failed", err)
		}
		c.outcome = outcome.normalized()
	}

	next := Transition(PhaseTest, c.iteration, limit, c.outcome)
	if next == PhaseDebug {
		fb := o.debug(ctx, id, c)
		c.feedback = &fb
		next = Transition(PhaseDebug, c.iteration, limit, c.outcome)
	}

	rec := state.commit(c)
	state.setPhase(next)

	o.events.Emit(id, EventAttemptRecorded, map[string]any{
		"iteration": rec.Iteration,
		"outcome":   rec.Outcome.label(),
		"code_hash": rec.Code.Hash(),
		"next":      next.String(),
	})
	o.logger.Info(ctx, "cycle complete",
		zap.Int("iteration", rec.Iteration),
		zap.String("outcome", rec.Outcome.label()),
		zap.Stringer("next", next),
		zap.Duration("duration", rec.Duration),
	)

	if detectStall(state.attempts, o.cfg.StallWindow) {
		o.metrics.stall()
		o.events.Emit(id, EventStallDetected, map[string]any{
			"iteration": rec.Iteration,
			"window":    o.cfg.StallWindow,
		})
		o.logger.Warn(ctx, "coder is repeating itself",
			zap.Int("iteration", rec.Iteration),
			zap.Int("window", o.cfg.StallWindow),
		)
	}
}

// debug asks the debugger about the cycle's failure. It always yields
// feedback: when the debugger fails, the diagnostic itself is passed on.
func (o *Orchestrator) debug(ctx context.Context, id string, c *cycle) string {
	in := DebugInput{Outcome: c.outcome, Iteration: c.iteration}
	if c.code != nil {
		in.Code = *c.code
	}
	fb, err := runStage(ctx, o, id, PhaseDebug, c.iteration, func(ctx context.Context) (string, error) {
		return o.stages.Debugger.Debug(ctx, in)
	})
	if err == nil && strings.TrimSpace(fb) == "" {
		err = &CollaboratorError{Stage: PhaseDebug.Role(), Err: errors.New("empty feedback")}
	}
	if err != nil {
		c.errors = append(c.errors, newStageError(PhaseDebug, c.iteration, err))
		o.warn(ctx, id, "debugger failed, forwarding raw diagnostic", err)
		return fmt.Sprintf("Automated analysis was unavailable (%v).\nThe previous attempt failed with:\n%s", err, c.outcome.Diagnostic)
	}
	return fb
}

func (o *Orchestrator) document(ctx context.Context, state *State) {
	docs, err := runStage(ctx, o, state.ID(), PhaseDocument, state.Iteration(), func(ctx context.Context) (string, error) {
		return o.stages.Documenter.Document(ctx, DocInput{Code: state.Code(), Plan: state.Plan()})
	})
	if err == nil && strings.TrimSpace(docs) == "" {
		err = &CollaboratorError{Stage: PhaseDocument.Role(), Err: errors.New("empty documentation")}
	}
	if err != nil {
		state.errors = append(state.errors, newStageError(PhaseDocument, state.Iteration(), err))
		o.warn(ctx, state.ID(), "documenter failed, rendering documentation locally", err)
		docs = RenderFallbackDocumentation(state.Requirement(), state.Plan(), state.Code())
	}
	state.docs = docs
	state.setPhase(Transition(PhaseDocument, state.Iteration(), o.cfg.MaxIterations, TestOutcome{}))
}

func (o *Orchestrator) warn(ctx context.Context, id, msg string, err error) {
	o.logger.Warn(ctx, msg, zap.Error(err))
	o.events.Emit(id, EventWarning, map[string]any{"message": msg, "error": err.Error()})
}

type stageResult[T any] struct {
	value T
	err   error
}

// runStage calls fn under the stage deadline. The call is detached from
// ctx's cancellation so a cycle always completes; values such as the
// workflow ID still flow through. A stage that ignores its deadline is
// abandoned and reported as timed out.
func runStage[T any](ctx context.Context, o *Orchestrator, id string, stage Phase, iteration int, fn func(context.Context) (T, error)) (T, error) {
	stageCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.Timeout)
	defer cancel()
	stageCtx = logging.WithStage(stageCtx, stage.Role())

	o.events.Emit(id, EventPhaseStart, map[string]any{"phase": stage.String(), "iteration": iteration})
	start := time.Now()

	done := make(chan stageResult[T], 1)
	go func() {
		var r stageResult[T]
		defer func() {
			if p := recover(); p != nil {
				r.err = fmt.Errorf("panic: %v", p)
			}
			done <- r
		}()
		r.value, r.err = fn(stageCtx)
	}()

	var r stageResult[T]
	select {
	case r = <-done:
	case <-stageCtx.Done():
		select {
		case r = <-done:
		default:
			r.err = fmt.Errorf("no result within %s: %w", o.cfg.Timeout, stageCtx.Err())
		}
	}
	elapsed := time.Since(start)

	result := "ok"
	if r.err != nil {
		r.err = stageError(stage, r.err)
		result = "error"
		if isTimeout(r.err) {
			result = "timeout"
		}
		o.metrics.collaboratorFailure(stage)
	}
	o.metrics.observeStage(stage, result, elapsed)
	o.events.Emit(id, EventPhaseEnd, map[string]any{
		"phase":     stage.String(),
		"iteration": iteration,
		"result":    result,
		"duration":  elapsed,
	})
	return r.value, r.err
}
