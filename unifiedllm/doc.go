// Package unifiedllm is the provider-agnostic LLM client used by the role
// stages. Every stage talks to a *Client; the Client routes each Request to a
// registered ProviderAdapter and runs it through the configured middleware.
//
// # Adapters
//
//   - GollmAdapter wraps github.com/teilomillet/gollm (anthropic, openai, groq, ...).
//   - OpenAIAdapter wraps github.com/sashabaranov/go-openai and works with any
//     OpenAI-compatible endpoint, including Gemini's compatibility endpoint.
//   - LangChainAdapter wraps any github.com/tmc/langchaingo llms.Model, which
//     is how local Ollama models are wired.
//
// # Quick Start
//
//	adapter, _ := unifiedllm.NewOpenAIAdapter("openai", os.Getenv("OPENAI_API_KEY"))
//	client := unifiedllm.NewClient(
//	    unifiedllm.WithProvider("openai", adapter),
//	    unifiedllm.WithMiddleware(unifiedllm.RateLimitMiddleware(rate.NewLimiter(2, 1))),
//	)
//
//	resp, err := unifiedllm.Generate(ctx, client, unifiedllm.GenerateOptions{
//	    Model:  "gpt-4o-mini",
//	    System: "You are a careful Python programmer.",
//	    Prompt: "Write quicksort.",
//	})
//
// # Errors
//
// Provider failures are mapped onto a typed hierarchy (AuthenticationError,
// RateLimitError, ServerError, ...). IsRetryable classifies wrapped errors with
// errors.As, and Retry only re-issues calls that are safe to repeat.
package unifiedllm
