package roles

import (
	"fmt"
	"strings"

	"github.com/martinemde/codecrew/workflow"
)

const maxLineLength = 100

// maxHints keeps a pathological file from flooding the debugger prompt.
const maxHints = 20

// StaticHints runs cheap textual checks over code and returns one line per
// finding.
func StaticHints(code workflow.CodeArtifact) []string {
	var hints []string
	for i, line := range strings.Split(code.Source, "\n") {
		if len(hints) >= maxHints {
			break
		}
		if n := len(line); n > maxLineLength {
			hints = append(hints, fmt.Sprintf("line %d is %d characters long", i+1, n))
		}
		if strings.Contains(line, "TODO") || strings.Contains(line, "FIXME") {
			hints = append(hints, fmt.Sprintf("line %d has an unfinished marker", i+1))
		}
	}
	if code.Language == "python" && !strings.Contains(code.Source, `"""`) && !strings.Contains(code.Source, "'''") {
		hints = append(hints, "no docstrings")
	}
	return hints
}
