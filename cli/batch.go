package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/martinemde/codecrew/workflow"
)

func newBatchCmd(a *app) *cobra.Command {
	var (
		quiet       bool
		noSave      bool
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Run every requirement in a file, one per line",
		Long: `Run every requirement in a file. Blank lines and lines starting with # are
skipped. Up to --concurrency runs are in flight at once; each run is saved
on its own.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open requirements: %w", err)
				}
				defer f.Close()
				r = f
			}
			requirements, err := readRequirements(r)
			if err != nil {
				return err
			}
			return a.batch(cmd.Context(), requirements, quiet, noSave, metricsAddr)
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print progress")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not write results to the output directory")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	return cmd
}

func readRequirements(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read requirements: %w", err)
	}
	if len(out) == 0 {
		return nil, errors.New("no requirements found")
	}
	return out, nil
}

func (a *app) batch(ctx context.Context, requirements []string, quiet, noSave bool, metricsAddr string) error {
	reg, metrics := newRegistry()
	stop, err := serveMetrics(ctx, metricsAddr, reg, a.logger)
	if err != nil {
		return fmt.Errorf("serve metrics: %w", err)
	}
	defer stop()

	events := workflow.NewEventEmitter(0)
	printed := closedChan()
	if !quiet {
		printed = printEvents(a.stderr, events.Events(), true)
	}

	o, client, err := a.newOrchestrator(workflow.WithEvents(events), workflow.WithMetrics(metrics))
	if err != nil {
		events.Close()
		return err
	}
	defer client.Close()

	items, batchErr := o.ExecuteAll(ctx, requirements, a.cfg.Concurrency)
	events.Close()
	<-printed

	store := a.store()
	failed := 0
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WORKFLOW\tSTATUS\tCYCLES\tREQUIREMENT")
	for _, item := range items {
		id, status, cycles := "-", "error", "-"
		if item.Result != nil {
			id = item.Result.WorkflowID
			status = string(item.Result.Status)
			cycles = fmt.Sprint(item.Result.Iterations)
			if !noSave {
				if _, err := store.Save(item.Result); err != nil {
					a.logger.Error(ctx, "save run failed", zap.String("workflow_id", id), zap.Error(err))
				}
			}
		}
		if item.Result == nil || !item.Result.Success {
			failed++
		}
		if item.Err != nil && item.Result == nil {
			a.logger.Warn(ctx, "requirement rejected", zap.String("requirement", item.Requirement), zap.Error(item.Err))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", id, status, cycles, truncate(item.Requirement, 60))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "\n%d of %d runs succeeded\n", len(items)-failed, len(items))

	if batchErr != nil {
		return batchErr
	}
	if failed > 0 {
		return ErrRunFailed
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
