package workflow

import "fmt"

// Phase is a node of the run's state machine.
type Phase int

const (
	PhasePlan Phase = iota
	PhaseCode
	PhaseTest
	PhaseDebug
	PhaseDocument
	PhaseSucceeded
	PhaseFailedExhausted
)

var phaseNames = [...]string{
	PhasePlan:            "plan",
	PhaseCode:            "code",
	PhaseTest:            "test",
	PhaseDebug:           "debug",
	PhaseDocument:        "document",
	PhaseSucceeded:       "succeeded",
	PhaseFailedExhausted: "failed_exhausted",
}

// String returns the phase's snake_case name, or "unknown".
func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// MarshalText encodes p by name in manifests and JSON output.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a name written by MarshalText.
func (p *Phase) UnmarshalText(text []byte) error {
	for i, name := range phaseNames {
		if name == string(text) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// Role names the stage that runs in p.
func (p Phase) Role() string {
	switch p {
	case PhasePlan:
		return "planner"
	case PhaseCode:
		return "coder"
	case PhaseTest:
		return "tester"
	case PhaseDebug:
		return "debugger"
	case PhaseDocument:
		return "documenter"
	default:
		return p.String()
	}
}

// Terminal reports whether no further stage runs after p.
func (p Phase) Terminal() bool {
	return p == PhaseSucceeded || p == PhaseFailedExhausted
}

// Transition returns the phase that follows p. iteration is the number of the
// cycle in progress (1-based), max the iteration budget, and outcome the
// cycle's test result; outcome is only consulted when leaving PhaseTest.
//
//	Plan -> Code -> Test -> Document -> Succeeded
//	                 |
//	                 +-> Debug -> Code        (fail, iteration < max)
//	                 +-> FailedExhausted      (fail, iteration >= max)
func Transition(p Phase, iteration, max int, outcome TestOutcome) Phase {
	switch p {
	case PhasePlan:
		return PhaseCode
	case PhaseCode:
		return PhaseTest
	case PhaseTest:
		if outcome.Passed {
			return PhaseDocument
		}
		if iteration < max {
			return PhaseDebug
		}
		return PhaseFailedExhausted
	case PhaseDebug:
		return PhaseCode
	case PhaseDocument:
		return PhaseSucceeded
	default:
		return p
	}
}
