package cli

import (
	"fmt"
	"os"

	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/martinemde/codecrew/config"
	"github.com/martinemde/codecrew/logging"
	"github.com/martinemde/codecrew/unifiedllm"
)

const defaultOllamaURL = "http://localhost:11434"

// apiKeyEnv names the conventional API key variable of each hosted provider.
var apiKeyEnv = map[string][]string{
	"gemini":    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"openai":    {"OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_API_KEY"},
	"groq":      {"GROQ_API_KEY"},
	"mistral":   {"MISTRAL_API_KEY"},
}

func apiKey(cfg *config.Config, provider string) string {
	if cfg.APIKey != "" {
		return cfg.APIKey
	}
	for _, name := range apiKeyEnv[provider] {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// newAdapter picks the backend for provider.
func newAdapter(cfg *config.Config, provider string) (unifiedllm.ProviderAdapter, error) {
	model := cfg.ModelID()
	switch provider {
	case "gemini", "openai":
		base := cfg.BaseURL
		if base == "" && provider == "gemini" {
			base = unifiedllm.GeminiOpenAIBaseURL
		}
		adapter, err := unifiedllm.NewOpenAIAdapter(provider, apiKey(cfg, provider),
			unifiedllm.WithBaseURL(base),
			unifiedllm.WithDefaultModel(model),
		)
		if err != nil {
			return nil, err
		}
		return adapter, nil
	case "anthropic", "groq", "mistral":
		adapter, err := unifiedllm.NewGollmAdapter(provider, apiKey(cfg, provider),
			unifiedllm.WithModel(model),
			unifiedllm.WithMaxTokens(cfg.MaxTokens),
			unifiedllm.WithTemperature(cfg.Temperature),
		)
		if err != nil {
			return nil, err
		}
		return adapter, nil
	case "ollama":
		server := cfg.BaseURL
		if server == "" {
			server = defaultOllamaURL
		}
		llm, err := ollama.New(ollama.WithModel(model), ollama.WithServerURL(server))
		if err != nil {
			return nil, fmt.Errorf("create ollama client: %w", err)
		}
		return unifiedllm.NewLangChainAdapter(provider, llm, model), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
}

// newClient builds the LLM client with rate limiting and request logging.
func newClient(cfg *config.Config, logger *logging.Logger) (*unifiedllm.Client, error) {
	provider := cfg.ResolvedProvider()
	adapter, err := newAdapter(cfg, provider)
	if err != nil {
		return nil, err
	}

	var mw []unifiedllm.Middleware
	if limiter := unifiedllm.NewRateLimiter(cfg.RateLimit, 1); limiter != nil {
		mw = append(mw, unifiedllm.RateLimitMiddleware(limiter))
	}
	mw = append(mw, unifiedllm.LoggingMiddleware(logger.Named("llm")))

	return unifiedllm.NewClient(
		unifiedllm.WithProvider(provider, adapter),
		unifiedllm.WithDefaultProvider(provider),
		unifiedllm.WithMiddleware(mw...),
	), nil
}
