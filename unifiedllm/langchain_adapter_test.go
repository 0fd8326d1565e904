package unifiedllm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeLangChainModel struct {
	resp     *llms.ContentResponse
	err      error
	messages []llms.MessageContent
	opts     llms.CallOptions
}

func (f *fakeLangChainModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, opt := range options {
		opt(&f.opts)
	}
	return f.resp, f.err
}

func (f *fakeLangChainModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestLangChainAdapterComplete(t *testing.T) {
	model := &fakeLangChainModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		Content:        "print('hi')",
		StopReason:     "stop",
		GenerationInfo: map[string]any{"PromptTokens": 12, "CompletionTokens": 3, "TotalTokens": 15},
	}}}}
	adapter := NewLangChainAdapter("ollama", model, "qwen2.5-coder")

	resp, err := adapter.Complete(context.Background(), Request{
		Messages:    []Message{SystemMessage("sys"), UserMessage("hi"), AssistantMessage("earlier")},
		Temperature: Float64(0.3),
		MaxTokens:   Int(64),
	})
	require.NoError(t, err)

	require.Len(t, model.messages, 3)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, model.messages[2].Role)
	assert.Equal(t, 0.3, model.opts.Temperature)
	assert.Equal(t, 64, model.opts.MaxTokens)

	assert.Equal(t, "ollama", resp.Provider)
	assert.Equal(t, "qwen2.5-coder", resp.Model)
	assert.Equal(t, "print('hi')", resp.Text())
	assert.Equal(t, Usage{InputTokens: 12, OutputTokens: 3, TotalTokens: 15}, resp.Usage)
}

func TestLangChainAdapterEstimatesUsage(t *testing.T) {
	model := &fakeLangChainModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "12345678"}}}}
	adapter := NewLangChainAdapter("ollama", model, "llama3.1")

	resp, err := adapter.Complete(context.Background(), Request{Model: "other", Messages: []Message{UserMessage("0123456789abcdef")}})
	require.NoError(t, err)
	assert.Equal(t, "other", resp.Model)
	assert.Equal(t, Usage{InputTokens: 4, OutputTokens: 2, TotalTokens: 6}, resp.Usage)
}

func TestLangChainAdapterErrors(t *testing.T) {
	empty := NewLangChainAdapter("ollama", &fakeLangChainModel{resp: &llms.ContentResponse{}}, "m")
	_, err := empty.Complete(context.Background(), Request{Messages: []Message{UserMessage("hi")}})
	var emptyErr *EmptyResponseError
	assert.ErrorAs(t, err, &emptyErr)

	tests := []struct {
		name   string
		err    error
		target any
	}{
		{"refused", errors.New("dial tcp 127.0.0.1:11434: connection refused"), new(*NetworkError)},
		{"missing model", errors.New(`model "x" not found, try pulling it first`), new(*NotFoundError)},
		{"deadline", context.DeadlineExceeded, new(*RequestTimeoutError)},
		{"other", errors.New("boom"), new(*ProviderError)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := NewLangChainAdapter("ollama", &fakeLangChainModel{err: tt.err}, "m")
			_, err := adapter.Complete(context.Background(), Request{Messages: []Message{UserMessage("hi")}})
			assert.ErrorAs(t, err, tt.target)
		})
	}
}
