package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/martinemde/codecrew/workflow"
)

// printEvents writes one line per notable event until events is closed. The
// returned channel closes once everything has been written.
func printEvents(w io.Writer, events <-chan workflow.Event, withID bool) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			line := describeEvent(ev)
			if line == "" {
				continue
			}
			if withID {
				line = shortID(ev.WorkflowID) + " " + line
			}
			fmt.Fprintln(w, line)
		}
	}()
	return done
}

func describeEvent(ev workflow.Event) string {
	d := ev.Data
	switch ev.Kind {
	case workflow.EventRunStart:
		return fmt.Sprintf("run %s started (model %v, up to %v cycles)", ev.WorkflowID, d["model"], d["max_iterations"])
	case workflow.EventPhaseStart:
		if d["phase"] == workflow.PhasePlan.String() || d["phase"] == workflow.PhaseDocument.String() {
			return fmt.Sprintf("  %v...", d["phase"])
		}
		return fmt.Sprintf("  [%v] %v...", d["iteration"], d["phase"])
	case workflow.EventAttemptRecorded:
		outcome := fmt.Sprint(d["outcome"])
		if outcome == "pass" {
			outcome = color.GreenString(outcome)
		} else {
			outcome = color.RedString(outcome)
		}
		return fmt.Sprintf("  [%v] %s, next: %v", d["iteration"], outcome, d["next"])
	case workflow.EventStallDetected:
		return fmt.Sprintf("  [%v] %s the last %v attempts produced the same code", d["iteration"], color.YellowString("warning:"), d["window"])
	case workflow.EventWarning:
		return fmt.Sprintf("  %s %v: %v", color.YellowString("warning:"), d["message"], d["error"])
	case workflow.EventRunEnd:
		if e, ok := d["error"]; ok {
			return fmt.Sprintf("run stopped after %v cycles: %v", d["iterations"], e)
		}
		return fmt.Sprintf("run %v after %v cycles", d["status"], d["iterations"])
	default:
		return ""
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[len(id)-8:]
	}
	return id
}
