package unifiedllm

import (
	"context"
	"strings"
)

// GenerateOptions configures a high-level Generate call.
type GenerateOptions struct {
	Model         string
	Provider      string
	System        string
	Prompt        string    // simple text prompt (mutually exclusive with Messages)
	Messages      []Message // full conversation (mutually exclusive with Prompt)
	Temperature   *float64
	MaxTokens     *int
	StopSequences []string
	Metadata      map[string]string

	// Retry overrides DefaultRetryPolicy when non-nil.
	Retry *RetryPolicy
}

// Generate builds a Request from opts, sends it through client with retries,
// and rejects blank completions.
func Generate(ctx context.Context, client *Client, opts GenerateOptions) (*Response, error) {
	if client == nil {
		return nil, &ConfigurationError{SDKError: SDKError{Message: "no client supplied"}}
	}
	if opts.Prompt != "" && len(opts.Messages) > 0 {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: "cannot specify both prompt and messages",
		}}
	}

	messages := opts.Messages
	if opts.Prompt != "" {
		messages = []Message{UserMessage(opts.Prompt)}
	}
	if opts.System != "" {
		messages = append([]Message{SystemMessage(opts.System)}, messages...)
	}

	req := Request{
		Model:         opts.Model,
		Provider:      opts.Provider,
		Messages:      messages,
		Temperature:   opts.Temperature,
		MaxTokens:     opts.MaxTokens,
		StopSequences: opts.StopSequences,
		Metadata:      opts.Metadata,
	}

	policy := DefaultRetryPolicy()
	if opts.Retry != nil {
		policy = *opts.Retry
	}

	return Retry(ctx, policy, func(ctx context.Context) (*Response, error) {
		resp, err := client.Complete(ctx, req)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(resp.Text()) == "" {
			return nil, &EmptyResponseError{SDKError: SDKError{Message: "model returned an empty completion"}}
		}
		return resp, nil
	})
}
