package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/martinemde/codecrew/artifacts"
	"github.com/martinemde/codecrew/roles"
	"github.com/martinemde/codecrew/unifiedllm"
	"github.com/martinemde/codecrew/workflow"
)

type runOptions struct {
	file        string
	jsonOut     bool
	quiet       bool
	noSave      bool
	metricsAddr string
}

func (o *runOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.file, "file", "f", "", "read input from a file (- for stdin)")
	cmd.Flags().BoolVar(&o.jsonOut, "json", false, "print the result as JSON")
	cmd.Flags().BoolVarP(&o.quiet, "quiet", "q", false, "do not print progress")
	cmd.Flags().BoolVar(&o.noSave, "no-save", false, "do not write results to the output directory")
	cmd.Flags().StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
}

func newRunCmd(a *app) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run [requirement]",
		Short: "Run one requirement through plan, code, test, debug, and document",
		Example: `  codecrew run "Write a function that adds two numbers"
  codecrew run -f requirement.txt -n 5 --model claude-sonnet-4-5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			requirement, err := readRequirement(cmd.InOrStdin(), opts.file, args)
			if err != nil {
				return err
			}
			return a.run(cmd.Context(), requirement, opts)
		},
	}
	opts.register(cmd)
	return cmd
}

func readRequirement(stdin io.Reader, file string, args []string) (string, error) {
	if file != "" && len(args) > 0 {
		return "", errors.New("give the requirement as arguments or with --file, not both")
	}
	var text string
	switch {
	case file == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read requirement: %w", err)
		}
		text = string(data)
	default:
		text = strings.Join(args, " ")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("a requirement is required")
	}
	return text, nil
}

// newOrchestrator wires the configured client, crew, and options together.
// The caller closes the returned client.
func (a *app) newOrchestrator(opts ...workflow.Option) (*workflow.Orchestrator, *unifiedllm.Client, error) {
	client, err := a.newClient(a.cfg, a.logger)
	if err != nil {
		return nil, nil, err
	}
	stages, err := roles.NewCrew(client, roles.CrewConfig{
		Language:    a.cfg.Language,
		Model:       a.cfg.ModelID(),
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
		TestCommand: a.cfg.TestCommand,
		ExecTimeout: a.cfg.Timeout,
		MaxRetries:  a.cfg.MaxRetries,
		Logger:      a.logger.Named("roles"),
	})
	if err != nil {
		client.Close()
		return nil, nil, err
	}

	opts = append([]workflow.Option{workflow.WithLogger(a.logger.Named("workflow"))}, opts...)
	o, err := workflow.NewOrchestrator(stages, workflow.Config{
		Model:         a.cfg.ModelID(),
		Temperature:   a.cfg.Temperature,
		MaxTokens:     a.cfg.MaxTokens,
		MaxIterations: a.cfg.MaxIterations,
		Timeout:       a.cfg.StageTimeout,
		StallWindow:   a.cfg.StallWindow,
	}, opts...)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return o, client, nil
}

func (a *app) store() *artifacts.Store {
	return artifacts.NewOSStore(a.cfg.OutputDir, artifacts.WithAttempts(a.cfg.SaveIntermediateResults))
}

func (a *app) run(ctx context.Context, requirement string, opts runOptions) error {
	reg, metrics := newRegistry()
	stop, err := serveMetrics(ctx, opts.metricsAddr, reg, a.logger)
	if err != nil {
		return fmt.Errorf("serve metrics: %w", err)
	}
	defer stop()

	events := workflow.NewEventEmitter(0)
	printed := closedChan()
	if !opts.quiet && !opts.jsonOut {
		printed = printEvents(a.stderr, events.Events(), false)
	}

	o, client, err := a.newOrchestrator(workflow.WithEvents(events), workflow.WithMetrics(metrics))
	if err != nil {
		events.Close()
		return err
	}
	defer client.Close()

	res, runErr := o.Execute(ctx, requirement)
	events.Close()
	<-printed
	if res == nil {
		return runErr
	}

	var dir string
	if !opts.noSave {
		dir, err = a.store().Save(res)
		if err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		a.logger.Info(ctx, "run saved", zap.String("dir", dir))
	}

	if opts.jsonOut {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		printResult(a.stdout, res, dir, a.cfg.MaxIterations)
	}

	if runErr != nil {
		return runErr
	}
	if !res.Success {
		return ErrRunFailed
	}
	return nil
}

func printResult(w io.Writer, res *workflow.Result, dir string, limit int) {
	fmt.Fprintf(w, "status:   %s\n", statusColor(res.Status).Sprint(res.Status))
	fmt.Fprintf(w, "workflow: %s\n", res.WorkflowID)
	fmt.Fprintf(w, "cycles:   %d/%d\n", res.Iterations, limit)
	if dir != "" {
		fmt.Fprintf(w, "saved to: %s\n", dir)
	}
	for _, e := range res.Errors {
		fmt.Fprintf(w, "error:    %s (cycle %d): %s\n", e.Stage, e.Iteration, e.Message)
	}
	if res.Success {
		fmt.Fprintf(w, "\n--- %s ---\n%s", res.Code.FileName, res.Code.Source)
		return
	}
	if n := len(res.Attempts); n > 0 {
		fmt.Fprintf(w, "\nlast test output:\n%s\n", res.Attempts[n-1].Outcome.Diagnostic)
	}
}

func statusColor(s workflow.Status) *color.Color {
	switch s {
	case workflow.StatusSucceeded:
		return color.New(color.FgGreen, color.Bold)
	case workflow.StatusFailedExhausted:
		return color.New(color.FgRed, color.Bold)
	default:
		return color.New(color.FgYellow)
	}
}

func closedChan() <-chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}
