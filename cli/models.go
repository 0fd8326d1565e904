package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/martinemde/codecrew/unifiedllm"
)

func newModelsCmd(a *app) *cobra.Command {
	var provider string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the known models",
		RunE: func(cmd *cobra.Command, args []string) error {
			models := unifiedllm.Models
			if provider != "" {
				models = unifiedllm.ListModels(provider)
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPROVIDER\tCONTEXT\tMAX OUTPUT\tNAME")
			for _, m := range models {
				marker := ""
				if m.ID == a.cfg.ModelID() {
					marker = " *"
				}
				fmt.Fprintf(tw, "%s%s\t%s\t%d\t%d\t%s\n", m.ID, marker, m.Provider, m.ContextWindow, m.MaxOutput, m.DisplayName)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&provider, "for", "", "only list models of this provider")
	return cmd
}
