package unifiedllm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGollmAdapterName(t *testing.T) {
	adapter := NewGollmAdapterFromLLM("anthropic", nil)
	assert.Equal(t, "anthropic", adapter.Name())
}

func TestGollmAdapterTranslateError(t *testing.T) {
	adapter := &GollmAdapter{provider: "openai"}

	tests := []struct {
		msg    string
		target any
	}{
		{"401 Unauthorized", new(*AuthenticationError)},
		{"invalid api key", new(*AuthenticationError)},
		{"403 Forbidden", new(*AccessDeniedError)},
		{"404 not found", new(*NotFoundError)},
		{"429 rate limit exceeded", new(*RateLimitError)},
		{"context length exceeded", new(*ContextLengthError)},
		{"500 internal server error", new(*ServerError)},
		{"529 overloaded", new(*ServerError)},
		{"timeout waiting for response", new(*RequestTimeoutError)},
		{"context deadline exceeded", new(*RequestTimeoutError)},
		{"content filter triggered", new(*ContentFilterError)},
		{"something unknown", new(*ProviderError)},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			cause := errors.New(tt.msg)
			err := adapter.translateError(cause)
			require.Error(t, err)
			assert.ErrorAs(t, err, tt.target)
			assert.ErrorIs(t, err, cause)
		})
	}

	assert.NoError(t, adapter.translateError(nil))
}

func TestGollmAdapterBuildResponse(t *testing.T) {
	adapter := &GollmAdapter{provider: "anthropic", model: "claude-sonnet-4-5"}

	resp := adapter.buildResponse(Request{Messages: []Message{UserMessage("0123456789abcdef")}}, "12345678")
	assert.Equal(t, "claude-sonnet-4-5", resp.Model)
	assert.Equal(t, "anthropic", resp.Provider)
	assert.Equal(t, "12345678", resp.Text())
	assert.Equal(t, "stop", resp.FinishReason.Reason)
	assert.Equal(t, Usage{InputTokens: 4, OutputTokens: 2, TotalTokens: 6}, resp.Usage)
	assert.Contains(t, resp.ID, "resp_")

	resp = adapter.buildResponse(Request{Model: "claude-haiku-4-5"}, "x")
	assert.Equal(t, "claude-haiku-4-5", resp.Model)
}

func TestEstimateTokens(t *testing.T) {
	assert.Positive(t, estimateTokens([]Message{UserMessage("Hello world, this is a test message.")}))
	assert.Equal(t, 10, estimateTokens(nil))
}
