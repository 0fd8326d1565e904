package roles

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/martinemde/codecrew/sandbox"
	"github.com/martinemde/codecrew/unifiedllm"
)

// scriptedLLM answers by the "role" metadata of each request. The last reply
// for a role repeats.
type scriptedLLM struct {
	mu       sync.Mutex
	replies  map[string][]string
	errs     map[string]error
	requests []unifiedllm.Request
	served   map[string]int
}

func newScriptedLLM(replies map[string][]string) *scriptedLLM {
	return &scriptedLLM{replies: replies, errs: map[string]error{}, served: map[string]int{}}
}

func (s *scriptedLLM) Name() string { return "fake" }

func (s *scriptedLLM) Complete(ctx context.Context, req unifiedllm.Request) (*unifiedllm.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	role := req.Metadata["role"]
	if err := s.errs[role]; err != nil {
		return nil, err
	}
	replies := s.replies[role]
	if len(replies) == 0 {
		return nil, fmt.Errorf("no reply scripted for %q", role)
	}
	n := s.served[role]
	s.served[role]++
	return &unifiedllm.Response{
		Provider: "fake",
		Model:    req.Model,
		Message:  unifiedllm.AssistantMessage(replies[min(n, len(replies)-1)]),
	}, nil
}

func (s *scriptedLLM) lastRequest(role string) unifiedllm.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.requests) - 1; i >= 0; i-- {
		if s.requests[i].Metadata["role"] == role {
			return s.requests[i]
		}
	}
	return unifiedllm.Request{}
}

func (s *scriptedLLM) client() *unifiedllm.Client {
	return unifiedllm.NewClient(unifiedllm.WithProvider("fake", s), unifiedllm.WithDefaultProvider("fake"))
}

func userPrompt(req unifiedllm.Request) string {
	for _, m := range req.Messages {
		if m.Role == unifiedllm.RoleUser {
			return m.Content
		}
	}
	return ""
}

var noRetry = &unifiedllm.RetryPolicy{MaxRetries: 0}

// fakeSandbox records what a tester does with it.
type fakeSandbox struct {
	files    map[string]string
	commands []string
	timeouts []time.Duration
	result   *sandbox.ExecResult
	err      error
	cleaned  bool
}

func newFakeSandbox(result *sandbox.ExecResult, err error) *fakeSandbox {
	return &fakeSandbox{files: map[string]string{}, result: result, err: err}
}

func (f *fakeSandbox) WriteFile(path, content string) error {
	f.files[path] = content
	return nil
}

func (f *fakeSandbox) ReadFile(path string) (string, error) {
	c, ok := f.files[path]
	if !ok {
		return "", fmt.Errorf("%s: not found", path)
	}
	return c, nil
}

func (f *fakeSandbox) Exec(ctx context.Context, command string, timeout time.Duration) (*sandbox.ExecResult, error) {
	f.commands = append(f.commands, command)
	f.timeouts = append(f.timeouts, timeout)
	return f.result, f.err
}

func (f *fakeSandbox) Workspace() string { return "/fake" }

func (f *fakeSandbox) Cleanup() error {
	f.cleaned = true
	return nil
}

func (f *fakeSandbox) factory() SandboxFactory {
	return func() (sandbox.Sandbox, error) { return f, nil }
}
