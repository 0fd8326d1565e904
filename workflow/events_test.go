package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventEmitterDropsWhenFull(t *testing.T) {
	e := NewEventEmitter(2)
	for range 5 {
		e.Emit("wf", EventWarning, nil)
	}
	assert.Equal(t, 3, e.Dropped())

	e.Close()
	e.Close()
	e.Emit("wf", EventWarning, nil)

	n := 0
	for ev := range e.Events() {
		assert.Equal(t, "wf", ev.WorkflowID)
		n++
	}
	assert.Equal(t, 2, n)
}

func TestNilEmitterIsSilent(t *testing.T) {
	var e *EventEmitter
	assert.NotPanics(t, func() { e.Emit("wf", EventRunStart, nil) })
}

func TestNilMetricsAreSilent(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.stall()
		m.runFinished(StatusSucceeded, 1)
		m.collaboratorFailure(PhaseCode)
		m.observeStage(PhaseCode, "ok", 0)
	})
}
