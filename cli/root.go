// Package cli implements the codecrew command line.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/martinemde/codecrew/config"
	"github.com/martinemde/codecrew/logging"
	"github.com/martinemde/codecrew/unifiedllm"
)

// ErrRunFailed is returned when a run ends without passing code. The message
// has already been printed, so callers only need the exit status.
var ErrRunFailed = errors.New("run did not succeed")

// flagKeys maps persistent flags to configuration keys.
var flagKeys = map[string]string{
	"model":          "llm_model",
	"provider":       "provider",
	"temperature":    "temperature",
	"max-tokens":     "max_tokens",
	"max-iterations": "max_iterations",
	"timeout":        "timeout",
	"stage-timeout":  "stage_timeout",
	"output-dir":     "output_dir",
	"language":       "language",
	"test-command":   "test_command",
	"log-level":      "log_level",
	"log-format":     "log_format",
	"rate-limit":     "rate_limit",
	"concurrency":    "concurrency",
	"base-url":       "base_url",
}

type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *logging.Logger
	stdout  io.Writer
	stderr  io.Writer

	newClient func(*config.Config, *logging.Logger) (*unifiedllm.Client, error)
}

// NewRoot builds the command tree.
func NewRoot() *cobra.Command {
	return newRoot(&app{stdout: os.Stdout, stderr: os.Stderr, newClient: newClient})
}

func newRoot(a *app) *cobra.Command {

	cmd := &cobra.Command{
		Use:           "codecrew",
		Short:         "Plan, write, test, and document code with a crew of LLM roles",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.stdout = cmd.OutOrStdout()
			a.stderr = cmd.ErrOrStderr()
			return a.loadConfig(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.logger != nil {
				return a.logger.Sync()
			}
			return nil
		},
		RunE: func(c *cobra.Command, _ []string) error { return c.Help() },
	}

	f := cmd.PersistentFlags()
	f.StringVarP(&a.cfgFile, "config", "c", "", "path to a YAML config file")
	f.String("model", "", "LLM model id (llm_model)")
	f.String("provider", "", "LLM provider: gemini, openai, anthropic, ollama, groq, mistral")
	f.Float64("temperature", 0, "sampling temperature in [0, 2]")
	f.Int("max-tokens", 0, "maximum tokens per completion")
	f.IntP("max-iterations", "n", 0, "maximum coder/tester cycles")
	f.String("timeout", "", "test execution timeout (e.g. 30s)")
	f.String("stage-timeout", "", "deadline for each stage call (e.g. 5m)")
	f.StringP("output-dir", "o", "", "directory runs are saved under")
	f.String("language", "", "language of the generated code")
	f.String("test-command", "", "command that runs one test file; {test} is its path")
	f.String("log-level", "", "debug, info, warn, or error")
	f.String("log-format", "", "console or json")
	f.Float64("rate-limit", 0, "maximum LLM requests per second (0 disables)")
	f.Int("concurrency", 0, "runs in flight for batch")
	f.String("base-url", "", "OpenAI-compatible endpoint or Ollama server URL")

	cmd.AddCommand(newRunCmd(a))
	cmd.AddCommand(newBatchCmd(a))
	cmd.AddCommand(newGraphCmd(a))
	cmd.AddCommand(newModelsCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(newRunsCmd(a))
	return cmd
}

func (a *app) loadConfig(cmd *cobra.Command) error {
	overrides := map[string]any{}
	for name, key := range flagKeys {
		if !cmd.Flags().Changed(name) {
			continue
		}
		overrides[key] = cmd.Flags().Lookup(name).Value.String()
	}

	cfg, err := config.Load(a.cfgFile, overrides)
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: a.stderr,
	})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	a.cfg = cfg
	a.logger = logger.Named("codecrew")
	return nil
}
