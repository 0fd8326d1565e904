package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger is a Logger whose entries are captured in memory, at debug and
// above, so tests can assert on what a run reported.
type TestLogger struct {
	*Logger
	logs *observer.ObservedLogs
}

// NewTestLogger returns a capturing logger.
func NewTestLogger() *TestLogger {
	core, logs := observer.New(zapcore.DebugLevel)
	return &TestLogger{Logger: New(zap.New(core)), logs: logs}
}

// All returns every captured entry in order.
func (t *TestLogger) All() []observer.LoggedEntry {
	return t.logs.All()
}

// Messages returns the entries whose message is exactly msg.
func (t *TestLogger) Messages(msg string) []observer.LoggedEntry {
	return t.logs.FilterMessage(msg).All()
}

func (t *TestLogger) find(level zapcore.Level, substr string) (observer.LoggedEntry, bool) {
	for _, e := range t.logs.All() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return e, true
		}
	}
	return observer.LoggedEntry{}, false
}

// AssertLogged fails tb unless an entry at level mentions substr.
func (t *TestLogger) AssertLogged(tb testing.TB, level zapcore.Level, substr string) bool {
	tb.Helper()
	if _, ok := t.find(level, substr); ok {
		return true
	}
	tb.Errorf("no %s entry mentioning %q among %d entries", level, substr, t.logs.Len())
	return false
}

// AssertNotLogged fails tb if an entry at level mentions substr.
func (t *TestLogger) AssertNotLogged(tb testing.TB, level zapcore.Level, substr string) bool {
	tb.Helper()
	if e, ok := t.find(level, substr); ok {
		tb.Errorf("unexpected %s entry %q", level, e.Message)
		return false
	}
	return true
}

// AssertField fails tb unless some entry with message msg has key=want.
// Integer fields compare as int64.
func (t *TestLogger) AssertField(tb testing.TB, msg, key string, want any) bool {
	tb.Helper()
	entries := t.Messages(msg)
	for _, e := range entries {
		if got, ok := e.ContextMap()[key]; ok && got == want {
			return true
		}
	}
	tb.Errorf("%d %q entries, none with %s=%v", len(entries), msg, key, want)
	return false
}

// AssertCorrelated fails tb unless an entry with message msg carries the
// given workflow ID and stage.
func (t *TestLogger) AssertCorrelated(tb testing.TB, msg, workflowID, stage string) bool {
	tb.Helper()
	for _, e := range t.Messages(msg) {
		fields := e.ContextMap()
		if fields["workflow_id"] == workflowID && fields["stage"] == stage {
			return true
		}
	}
	tb.Errorf("no %q entry for workflow %q stage %q", msg, workflowID, stage)
	return false
}
