package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/martinemde/codecrew/sandbox"
)

// CollaboratorError reports that a stage's external collaborator (the LLM
// client, usually) failed or returned something unusable.
type CollaboratorError struct {
	Stage string
	Err   error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: collaborator failed: %v", e.Stage, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// ValidationError reports input rejected before any stage runs.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// isTimeout reports whether a stage error came from a deadline, either the
// stage's own or the sandbox's.
func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || sandbox.IsTimeout(err)
}

// failureOutcome downgrades a stage failure to a failing outcome.
func failureOutcome(err error) TestOutcome {
	if isTimeout(err) {
		return Timeout("timeout: " + err.Error())
	}
	return Fail(err.Error())
}

// stageError attributes err to stage. Sandbox errors keep their type so
// callers can still tell a timeout from a crash.
func stageError(stage Phase, err error) error {
	var ce *CollaboratorError
	if errors.As(err, &ce) {
		return err
	}
	var se *sandbox.SandboxError
	if errors.As(err, &se) {
		return fmt.Errorf("%s: %w", stage.Role(), err)
	}
	return &CollaboratorError{Stage: stage.Role(), Err: err}
}
