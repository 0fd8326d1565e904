package unifiedllm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
)

// LangChainAdapter serves requests through any langchaingo llms.Model, which
// is how local Ollama models are reached.
type LangChainAdapter struct {
	provider string
	model    llms.Model
	name     string
}

// NewLangChainAdapter wraps model under the given provider name. modelName
// is reported on responses when a request does not name a model.
func NewLangChainAdapter(provider string, model llms.Model, modelName string) *LangChainAdapter {
	return &LangChainAdapter{provider: provider, model: model, name: modelName}
}

// Name returns the provider identifier.
func (a *LangChainAdapter) Name() string {
	return a.provider
}

// Complete sends the conversation through GenerateContent.
func (a *LangChainAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	messages := make([]llms.MessageContent, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, llms.TextParts(chatMessageType(msg.Role), msg.Content))
	}

	var opts []llms.CallOption
	if req.Model != "" {
		opts = append(opts, llms.WithModel(req.Model))
	}
	if req.Temperature != nil {
		opts = append(opts, llms.WithTemperature(*req.Temperature))
	}
	if req.MaxTokens != nil {
		opts = append(opts, llms.WithMaxTokens(*req.MaxTokens))
	}
	if len(req.StopSequences) > 0 {
		opts = append(opts, llms.WithStopWords(req.StopSequences))
	}

	resp, err := a.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, a.translateError(err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return nil, &EmptyResponseError{SDKError: SDKError{
			Message: fmt.Sprintf("%s returned no choices", a.provider),
		}}
	}

	choice := resp.Choices[0]
	model := req.Model
	if model == "" {
		model = a.name
	}
	return &Response{
		ID:           "resp_" + uuid.New().String()[:8],
		Model:        model,
		Provider:     a.provider,
		Message:      AssistantMessage(choice.Content),
		FinishReason: normalizeFinishReason(choice.StopReason),
		Usage:        usageFromGenerationInfo(choice.GenerationInfo, req.Messages, choice.Content),
	}, nil
}

func chatMessageType(role Role) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

// usageFromGenerationInfo reads the token counters langchaingo backends put
// in GenerationInfo, estimating when they are absent.
func usageFromGenerationInfo(info map[string]any, messages []Message, output string) Usage {
	in, okIn := intField(info, "PromptTokens")
	out, okOut := intField(info, "CompletionTokens")
	if !okIn {
		in = estimateTokens(messages)
	}
	if !okOut {
		out = len(output) / 4
	}
	total, ok := intField(info, "TotalTokens")
	if !ok {
		total = in + out
	}
	return Usage{InputTokens: in, OutputTokens: out, TotalTokens: total}
}

func intField(info map[string]any, key string) (int, bool) {
	switch v := info[key].(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

func (a *LangChainAdapter) translateError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &RequestTimeoutError{SDKError: SDKError{Message: "request timed out", Cause: err}}
	case errors.Is(err, context.Canceled):
		return &AbortError{SDKError: SDKError{Message: "request cancelled", Cause: err}}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"):
		return &NetworkError{SDKError: SDKError{Message: "backend unreachable", Cause: err}}
	case strings.Contains(msg, "not found"):
		return &NotFoundError{ProviderError: ProviderError{
			SDKError:   SDKError{Message: err.Error(), Cause: err},
			Provider:   a.provider,
			StatusCode: 404,
		}}
	}
	return &ProviderError{
		SDKError:  SDKError{Message: err.Error(), Cause: err},
		Provider:  a.provider,
		Retryable: true,
	}
}
