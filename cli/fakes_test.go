package cli

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/martinemde/codecrew/config"
	"github.com/martinemde/codecrew/logging"
	"github.com/martinemde/codecrew/unifiedllm"
)

const (
	addCode  = "```python\ndef add(a, b):\n    return a + b\n```"
	addTests = "```python\nfrom solution import add\n\ndef test_add():\n    assert add(2, 3) == 5\n```"
)

// crewLLM answers each role with a fixed reply.
type crewLLM struct {
	mu      sync.Mutex
	replies map[string]string
	calls   map[string]int
	models  map[string]bool
}

func newCrewLLM() *crewLLM {
	return &crewLLM{
		replies: map[string]string{
			"planner":    "1. Define add(a, b).\n2. Return the sum.",
			"coder":      addCode,
			"tester":     addTests,
			"debugger":   "add should return the sum of its arguments.",
			"documenter": "# add\n\nReturns the sum of two numbers.\n",
		},
		calls:  map[string]int{},
		models: map[string]bool{},
	}
}

func (c *crewLLM) Name() string { return "fake" }

func (c *crewLLM) Complete(ctx context.Context, req unifiedllm.Request) (*unifiedllm.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	role := req.Metadata["role"]
	c.calls[role]++
	c.models[req.Model] = true
	reply, ok := c.replies[role]
	if !ok {
		return nil, fmt.Errorf("no reply for role %q", role)
	}
	return &unifiedllm.Response{Provider: "fake", Model: req.Model, Message: unifiedllm.AssistantMessage(reply)}, nil
}

func (c *crewLLM) callCount(role string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[role]
}

func (c *crewLLM) modelsSeen() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	models := make([]string, 0, len(c.models))
	for m := range c.models {
		models = append(models, m)
	}
	return models
}

// syncBuffer is shared by the logger and the progress printer.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// execute runs the command tree with args against llm and returns what it
// printed to stdout and stderr.
func execute(t *testing.T, llm *crewLLM, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr syncBuffer
	a := &app{
		stdout: &stdout,
		stderr: &stderr,
		newClient: func(*config.Config, *logging.Logger) (*unifiedllm.Client, error) {
			return unifiedllm.NewClient(unifiedllm.WithProvider("fake", llm)), nil
		},
	}
	root := newRoot(a)
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(&bytes.Buffer{})
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}
