package roles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/martinemde/codecrew/unifiedllm"
	"github.com/martinemde/codecrew/workflow"
)

// caller sends one stage's prompt through the client.
type caller struct {
	client  *unifiedllm.Client
	profile Profile
	retry   *unifiedllm.RetryPolicy
}

func (c caller) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := unifiedllm.Generate(ctx, c.client, c.profile.generateOptions(prompt, c.retry))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

// LLMPlanner asks the model for an implementation plan.
type LLMPlanner struct {
	caller
}

// NewLLMPlanner creates a planner. retry may be nil for the default policy.
func NewLLMPlanner(client *unifiedllm.Client, profile Profile, retry *unifiedllm.RetryPolicy) *LLMPlanner {
	return &LLMPlanner{caller{client: client, profile: profile, retry: retry}}
}

func (p *LLMPlanner) Plan(ctx context.Context, in workflow.PlanInput) (string, error) {
	return p.complete(ctx, fmt.Sprintf("Requirement:\n%s\n\nWrite the implementation plan.", in.Requirement))
}

// LLMCoder asks the model for a complete source file.
type LLMCoder struct {
	caller
	lang Language
}

func NewLLMCoder(client *unifiedllm.Client, profile Profile, lang Language, retry *unifiedllm.RetryPolicy) *LLMCoder {
	return &LLMCoder{caller: caller{client: client, profile: profile, retry: retry}, lang: lang}
}

func (c *LLMCoder) Code(ctx context.Context, in workflow.CodeInput) (workflow.CodeArtifact, error) {
	reply, err := c.complete(ctx, c.prompt(in))
	if err != nil {
		return workflow.CodeArtifact{}, err
	}
	src := withTrailingNewline(ExtractCode(reply, c.lang))
	if src == "" {
		return workflow.CodeArtifact{}, errors.New("reply contained no code")
	}
	return workflow.CodeArtifact{
		Language: c.lang.Name,
		FileName: c.lang.CodeFileName(in.Requirement),
		Source:   src,
	}, nil
}

func (c *LLMCoder) prompt(in workflow.CodeInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Requirement:\n%s\n", in.Requirement)
	if plan := strings.TrimSpace(in.Plan); plan != "" {
		fmt.Fprintf(&b, "\nPlan:\n%s\n", plan)
	}
	if fb := strings.TrimSpace(in.Feedback); fb != "" {
		fmt.Fprintf(&b, "\nAttempt %d failed its tests. Reviewer feedback:\n%s\n", in.Iteration-1, fb)
		b.WriteString("\nWrite the complete corrected file.\n")
	}
	fmt.Fprintf(&b, "\nThe file will be saved as %s. Reply with one ```%s block.", c.lang.CodeFileName(in.Requirement), c.lang.Fence())
	return b.String()
}

// LLMDebugger asks the model to explain a failing outcome.
type LLMDebugger struct {
	caller
}

func NewLLMDebugger(client *unifiedllm.Client, profile Profile, retry *unifiedllm.RetryPolicy) *LLMDebugger {
	return &LLMDebugger{caller{client: client, profile: profile, retry: retry}}
}

func (d *LLMDebugger) Debug(ctx context.Context, in workflow.DebugInput) (string, error) {
	var b strings.Builder
	if in.Code.Empty() {
		b.WriteString("No code was produced in this attempt.\n")
	} else {
		fmt.Fprintf(&b, "Code (%s):\n```%s\n%s\n```\n", in.Code.FileName, in.Code.Language, strings.TrimRight(in.Code.Source, "\n"))
	}
	if in.Outcome.TestSource != "" {
		fmt.Fprintf(&b, "\nTests (%s):\n```%s\n%s\n```\n", in.Outcome.TestFile, in.Code.Language, strings.TrimRight(in.Outcome.TestSource, "\n"))
	}
	if in.Outcome.TimedOut {
		b.WriteString("\nThe tests did not finish in time. Look for infinite loops, blocking input, or very slow algorithms.\n")
	}
	fmt.Fprintf(&b, "\nTest output:\n%s\n", in.Outcome.Diagnostic)
	if hints := StaticHints(in.Code); len(hints) > 0 {
		fmt.Fprintf(&b, "\nStatic checks:\n- %s\n", strings.Join(hints, "\n- "))
	}
	b.WriteString("\nExplain the failure and how to fix it.")
	return d.complete(ctx, b.String())
}

// LLMDocumenter asks the model for Markdown documentation.
type LLMDocumenter struct {
	caller
}

func NewLLMDocumenter(client *unifiedllm.Client, profile Profile, retry *unifiedllm.RetryPolicy) *LLMDocumenter {
	return &LLMDocumenter{caller{client: client, profile: profile, retry: retry}}
}

func (d *LLMDocumenter) Document(ctx context.Context, in workflow.DocInput) (string, error) {
	var b strings.Builder
	if plan := strings.TrimSpace(in.Plan); plan != "" {
		fmt.Fprintf(&b, "Design notes:\n%s\n\n", plan)
	}
	fmt.Fprintf(&b, "Code (%s):\n```%s\n%s\n```\n\nWrite the documentation.", in.Code.FileName, in.Code.Language, strings.TrimRight(in.Code.Source, "\n"))
	return d.complete(ctx, b.String())
}
