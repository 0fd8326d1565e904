package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/martinemde/codecrew/workflow"
)

func newGraphCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the workflow graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeGraph(a.stdout, workflow.Graph(), format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "text, yaml, or mermaid")
	return cmd
}

func writeGraph(w io.Writer, g workflow.GraphDescription, format string) error {
	switch format {
	case "text":
		fmt.Fprintf(w, "entry: %s\n", g.Entry)
		for _, e := range g.Edges {
			if e.Condition != "" {
				fmt.Fprintf(w, "%s -> %s [%s]\n", e.From, e.To, e.Condition)
			} else {
				fmt.Fprintf(w, "%s -> %s\n", e.From, e.To)
			}
		}
		return nil
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(g); err != nil {
			return err
		}
		return enc.Close()
	case "mermaid":
		fmt.Fprintln(w, "stateDiagram-v2")
		fmt.Fprintf(w, "    [*] --> %s\n", g.Entry)
		for _, e := range g.Edges {
			if e.Condition != "" {
				fmt.Fprintf(w, "    %s --> %s: %s\n", e.From, e.To, e.Condition)
			} else {
				fmt.Fprintf(w, "    %s --> %s\n", e.From, e.To)
			}
		}
		for _, n := range g.Nodes {
			if n.Terminal() {
				fmt.Fprintf(w, "    %s --> [*]\n", n)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown graph format %q (want text, yaml, or mermaid)", format)
	}
}
