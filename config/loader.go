package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix marks environment variables read by Load.
	EnvPrefix = "CODECREW_"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

const defaultsYAML = `
llm_model: gemini-2.5-pro
provider: ""
temperature: 0.7
max_tokens: 16384
max_iterations: 3
timeout: 30s
stage_timeout: 5m
output_dir: output
save_intermediate_results: true
language: python
test_command: ""
log_level: info
log_format: console
rate_limit: 0
max_retries: 2
concurrency: 2
stall_window: 3
api_key: ""
base_url: ""
`

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := load(nil, nil, false)
	if err != nil {
		panic(fmt.Sprintf("config: built-in defaults are invalid: %v", err))
	}
	return cfg
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty), CODECREW_ environment variables, and overrides.
func Load(path string, overrides map[string]any) (*Config, error) {
	var content []byte
	if path != "" {
		var err error
		content, err = readConfigFile(path)
		if err != nil {
			return nil, err
		}
	}
	return load(content, overrides, true)
}

func load(fileContent []byte, overrides map[string]any, withEnv bool) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider([]byte(defaultsYAML)), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if len(fileContent) > 0 {
		if err := k.Load(rawbytes.Provider(fileContent), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if withEnv {
		// CODECREW_MAX_ITERATIONS -> max_iterations
		if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
			return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load environment variables: %w", err)
		}
	}

	for key, value := range overrides {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("failed to apply override %s: %w", key, err)
		}
	}

	for _, key := range []string{"timeout", "stage_timeout"} {
		if err := normalizeDuration(k, key); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// normalizeDuration accepts a bare number of seconds as well as a duration
// string, so `timeout: 30` and CODECREW_TIMEOUT=30 both mean 30s.
func normalizeDuration(k *koanf.Koanf, key string) error {
	switch v := k.Get(key).(type) {
	case int:
		return k.Set(key, time.Duration(v)*time.Second)
	case int64:
		return k.Set(key, time.Duration(v)*time.Second)
	case float64:
		return k.Set(key, time.Duration(v*float64(time.Second)))
	case string:
		if secs, err := strconv.ParseFloat(v, 64); err == nil {
			return k.Set(key, time.Duration(secs*float64(time.Second)))
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
	}
	return nil
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}
