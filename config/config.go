// Package config loads codecrew settings.
//
// Precedence (highest to lowest):
//  1. Overrides passed by the caller (CLI flags)
//  2. Environment variables prefixed CODECREW_ (CODECREW_MAX_ITERATIONS -> max_iterations)
//  3. YAML config file
//  4. Built-in defaults
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/martinemde/codecrew/roles"
	"github.com/martinemde/codecrew/unifiedllm"
)

// Config is the effective configuration of a codecrew process.
type Config struct {
	LLMModel                string        `koanf:"llm_model" yaml:"llm_model" validate:"required"`
	Provider                string        `koanf:"provider" yaml:"provider" validate:"omitempty,oneof=gemini openai anthropic ollama groq mistral"`
	Temperature             float64       `koanf:"temperature" yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens               int           `koanf:"max_tokens" yaml:"max_tokens" validate:"gt=0"`
	MaxIterations           int           `koanf:"max_iterations" yaml:"max_iterations" validate:"gte=1"`
	Timeout                 time.Duration `koanf:"timeout" yaml:"timeout" validate:"gt=0"`
	StageTimeout            time.Duration `koanf:"stage_timeout" yaml:"stage_timeout" validate:"gtfield=Timeout"`
	OutputDir               string        `koanf:"output_dir" yaml:"output_dir" validate:"required"`
	SaveIntermediateResults bool          `koanf:"save_intermediate_results" yaml:"save_intermediate_results"`
	Language                string        `koanf:"language" yaml:"language" validate:"required"`
	TestCommand             string        `koanf:"test_command" yaml:"test_command" validate:"omitempty,testcmd"`
	LogLevel                string        `koanf:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat               string        `koanf:"log_format" yaml:"log_format" validate:"oneof=json console"`
	RateLimit               float64       `koanf:"rate_limit" yaml:"rate_limit" validate:"gte=0"`
	MaxRetries              int           `koanf:"max_retries" yaml:"max_retries" validate:"gte=0,lte=10"`
	Concurrency             int           `koanf:"concurrency" yaml:"concurrency" validate:"gte=1"`
	StallWindow             int           `koanf:"stall_window" yaml:"stall_window" validate:"gte=2"`
	APIKey                  string        `koanf:"api_key" yaml:"api_key"`
	BaseURL                 string        `koanf:"base_url" yaml:"base_url" validate:"omitempty,url"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("testcmd", func(fl validator.FieldLevel) bool {
		return strings.Contains(fl.Field().String(), roles.TestPlaceholder)
	})
}

// Validate checks field constraints and reports every violation.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// ModelID returns LLMModel with catalog aliases such as "sonnet" expanded
// to the provider's model ID.
func (c *Config) ModelID() string {
	return unifiedllm.ResolveModelID(c.LLMModel)
}

// ResolvedProvider returns Provider, the catalog provider of LLMModel, or a
// guess from the model name.
func (c *Config) ResolvedProvider() string {
	if c.Provider != "" {
		return c.Provider
	}
	if info := unifiedllm.GetModelInfo(c.LLMModel); info != nil {
		return info.Provider
	}
	model := strings.ToLower(c.LLMModel)
	switch {
	case strings.HasPrefix(model, "gemini"):
		return "gemini"
	case strings.HasPrefix(model, "claude"):
		return "anthropic"
	case strings.HasPrefix(model, "gpt"), strings.HasPrefix(model, "o1"), strings.HasPrefix(model, "o3"):
		return "openai"
	default:
		return "ollama"
	}
}

// Redacted returns a copy safe to print or log.
func (c Config) Redacted() Config {
	if c.APIKey != "" {
		c.APIKey = "[REDACTED]"
	}
	return c
}
