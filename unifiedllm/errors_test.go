package unifiedllm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFromStatusCode(t *testing.T) {
	tests := []struct {
		status    int
		target    any
		retryable bool
	}{
		{400, new(*InvalidRequestError), false},
		{401, new(*AuthenticationError), false},
		{403, new(*AccessDeniedError), false},
		{404, new(*NotFoundError), false},
		{408, new(*RequestTimeoutError), true},
		{413, new(*ContextLengthError), false},
		{422, new(*InvalidRequestError), false},
		{429, new(*RateLimitError), true},
		{500, new(*ServerError), true},
		{503, new(*ServerError), true},
		{599, new(*ProviderError), true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := ErrorFromStatusCode(tt.status, "test error", "openai", "", nil, nil)
			assert.ErrorAs(t, err, tt.target)
			assert.Equal(t, tt.retryable, IsRetryable(err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"auth error", &AuthenticationError{}, false},
		{"access denied", &AccessDeniedError{}, false},
		{"not found", &NotFoundError{}, false},
		{"invalid request", &InvalidRequestError{}, false},
		{"context length", &ContextLengthError{}, false},
		{"content filter", &ContentFilterError{}, false},
		{"config error", &ConfigurationError{}, false},
		{"abort", &AbortError{}, false},
		{"context canceled", context.Canceled, false},
		{"rate limit", &RateLimitError{ProviderError: ProviderError{Retryable: true}}, true},
		{"server error", &ServerError{ProviderError: ProviderError{Retryable: true}}, true},
		{"network error", &NetworkError{}, true},
		{"timeout error", &RequestTimeoutError{}, true},
		{"empty response", &EmptyResponseError{}, true},
		{"wrapped server error", fmt.Errorf("coder: %w", &ServerError{}), true},
		{"wrapped auth error", fmt.Errorf("coder: %w", &AuthenticationError{}), false},
		{"provider error not retryable", &ProviderError{Retryable: false}, false},
		{"unknown error", errors.New("unknown"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}

func TestSDKErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &SDKError{Message: "wrapper", Cause: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "wrapper: root cause", err.Error())
}

func TestProviderErrorMessage(t *testing.T) {
	err := &ProviderError{
		SDKError:   SDKError{Message: "rate limit exceeded"},
		Provider:   "openai",
		StatusCode: 429,
		Retryable:  true,
	}
	msg := err.Error()
	assert.Contains(t, msg, "openai")
	assert.Contains(t, msg, "rate limit")
	assert.Contains(t, msg, "status=429")
}

func TestRetryAfterHint(t *testing.T) {
	after := 3.5
	err := fmt.Errorf("wrapped: %w", ErrorFromStatusCode(429, "slow", "p", "", nil, &after))
	got := retryAfter(err)
	require.NotNil(t, got)
	assert.Equal(t, 3.5, *got)

	assert.Nil(t, retryAfter(&ServerError{}))
}
