package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newRunsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect saved runs",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved runs, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := a.store()
			ids, err := store.List()
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				fmt.Fprintf(a.stdout, "no runs under %s\n", store.Root())
				return nil
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WORKFLOW\tSTATUS\tCYCLES\tREQUIREMENT")
			for _, id := range ids {
				res, err := store.Load(id)
				if err != nil {
					fmt.Fprintf(tw, "%s\tunreadable\t-\t%v\n", id, err)
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", id, res.Status, res.Iterations, truncate(res.Requirement, 60))
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <workflow-id>",
		Short: "Print a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := a.store()
			res, err := store.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "requirement: %s\n", res.Requirement)
			printResult(a.stdout, res, store.RunDir(res.WorkflowID), res.Iterations)
			return nil
		},
	})
	return cmd
}
