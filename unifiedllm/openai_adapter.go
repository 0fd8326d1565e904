package unifiedllm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// GeminiOpenAIBaseURL is Google's OpenAI-compatible endpoint for Gemini models.
const GeminiOpenAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// chatCompleter is the slice of *openai.Client the adapter needs.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIAdapter implements ProviderAdapter on top of go-openai. It serves
// OpenAI itself and any OpenAI-compatible endpoint selected via base URL.
type OpenAIAdapter struct {
	provider string
	client   chatCompleter
	model    string
}

// OpenAIAdapterOption configures an OpenAIAdapter.
type OpenAIAdapterOption func(*openAIAdapterConfig)

type openAIAdapterConfig struct {
	baseURL string
	model   string
}

// WithBaseURL points the adapter at an OpenAI-compatible endpoint.
func WithBaseURL(url string) OpenAIAdapterOption {
	return func(c *openAIAdapterConfig) {
		c.baseURL = url
	}
}

// WithDefaultModel sets the model used when a request leaves Model empty.
func WithDefaultModel(model string) OpenAIAdapterOption {
	return func(c *openAIAdapterConfig) {
		c.model = model
	}
}

// NewOpenAIAdapter creates an adapter registered under provider.
func NewOpenAIAdapter(provider, apiKey string, opts ...OpenAIAdapterOption) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: fmt.Sprintf("api key required for provider %s", provider),
		}}
	}
	cfg := &openAIAdapterConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.model == "" {
		if info := GetLatestModel(provider); info != nil {
			cfg.model = info.ID
		}
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.baseURL != "" {
		clientCfg.BaseURL = cfg.baseURL
	}

	return &OpenAIAdapter{
		provider: provider,
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.model,
	}, nil
}

// Name returns the provider identifier.
func (a *OpenAIAdapter) Name() string {
	return a.provider
}

// Complete sends a chat completion request.
func (a *OpenAIAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	resp, err := a.client.CreateChatCompletion(ctx, a.translateRequest(req))
	if err != nil {
		return nil, a.translateError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &EmptyResponseError{SDKError: SDKError{
			Message: fmt.Sprintf("%s returned no choices", a.provider),
		}}
	}

	choice := resp.Choices[0]
	return &Response{
		ID:           resp.ID,
		Model:        resp.Model,
		Provider:     a.provider,
		Message:      AssistantMessage(choice.Message.Content),
		FinishReason: normalizeFinishReason(string(choice.FinishReason)),
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}, nil
}

func (a *OpenAIAdapter) translateRequest(req Request) openai.ChatCompletionRequest {
	model := req.Model
	if model == "" {
		model = a.model
	}

	out := openai.ChatCompletionRequest{
		Model:    model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(req.Messages)),
		Stop:     req.StopSequences,
	}
	for _, msg := range req.Messages {
		role := openai.ChatMessageRoleUser
		switch msg.Role {
		case RoleSystem:
			role = openai.ChatMessageRoleSystem
		case RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		out.Messages = append(out.Messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
			Name:    msg.Name,
		})
	}
	if req.Temperature != nil {
		out.Temperature = float32(*req.Temperature)
	}
	if req.MaxTokens != nil {
		out.MaxTokens = *req.MaxTokens
	}
	return out
}

// translateError maps go-openai errors onto the unified hierarchy by HTTP
// status.
func (a *OpenAIAdapter) translateError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := ""
		if s, ok := apiErr.Code.(string); ok {
			code = s
		}
		return ErrorFromStatusCode(apiErr.HTTPStatusCode, apiErr.Message, a.provider, code, err, nil)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return ErrorFromStatusCode(reqErr.HTTPStatusCode, reqErr.Error(), a.provider, "", err, nil)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &RequestTimeoutError{SDKError: SDKError{Message: "request timed out", Cause: err}}
	}
	if errors.Is(err, context.Canceled) {
		return &AbortError{SDKError: SDKError{Message: "request cancelled", Cause: err}}
	}
	return &NetworkError{SDKError: SDKError{Message: "request failed", Cause: err}}
}
