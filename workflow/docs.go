package workflow

import (
	"fmt"
	"strings"
)

// RenderFallbackDocumentation builds Markdown documentation without a model,
// for when the documenter cannot.
func RenderFallbackDocumentation(requirement, plan string, code CodeArtifact) string {
	var b strings.Builder
	title := "Solution"
	if code.FileName != "" {
		title = code.FileName
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	b.WriteString("## Requirement\n\n")
	b.WriteString(strings.TrimSpace(requirement))
	b.WriteString("\n\n")

	if p := strings.TrimSpace(plan); p != "" {
		b.WriteString("## Design\n\n")
		b.WriteString(p)
		b.WriteString("\n\n")
	}

	b.WriteString("## Source\n\n")
	fmt.Fprintf(&b, "```%s\n%s\n```\n", code.Language, strings.TrimRight(code.Source, "\n"))
	return b.String()
}
