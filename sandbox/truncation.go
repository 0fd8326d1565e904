package sandbox

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMaxOutputChars bounds each captured stream.
	DefaultMaxOutputChars = 30000
	// DefaultMaxDiagnosticLines bounds diagnostics handed to the debugger.
	DefaultMaxDiagnosticLines = 256
)

// TruncateOutput keeps the head and tail of output when it exceeds maxChars.
// Test runners print the failing assertion near the end and the collection
// errors near the start, so both ends are kept. Cuts fall on rune
// boundaries.
func TruncateOutput(output string, maxChars int) string {
	if maxChars <= 0 || len(output) <= maxChars {
		return output
	}
	return elide(output, output, len(output), maxChars)
}

// elide joins the first maxChars/2 bytes of head and the last maxChars/2
// bytes of tail, which end an output of total bytes.
func elide(head, tail string, total, maxChars int) string {
	half := maxChars / 2
	cut := min(half, len(head))
	for cut > 0 && cut < len(head) && !utf8.RuneStart(head[cut]) {
		cut--
	}
	from := max(len(tail)-half, 0)
	for from < len(tail) && !utf8.RuneStart(tail[from]) {
		from++
	}
	removed := total - cut - (len(tail) - from)
	return head[:cut] +
		fmt.Sprintf("\n\n[... output truncated: %d characters removed from the middle ...]\n\n", removed) +
		tail[from:]
}

// cappedWriter captures a command stream in bounded memory: the first and
// last limit bytes are kept and everything between is only counted. A
// non-positive limit keeps everything.
type cappedWriter struct {
	limit int
	head  []byte
	tail  []byte
	next  int
	total int
}

func newCappedWriter(limit int) *cappedWriter {
	return &cappedWriter{limit: limit}
}

func (w *cappedWriter) Write(p []byte) (int, error) {
	n := len(p)
	w.total += n
	if w.limit <= 0 {
		w.head = append(w.head, p...)
		return n, nil
	}
	if room := w.limit - len(w.head); room > 0 {
		w.head = append(w.head, p[:min(room, len(p))]...)
	}
	if len(p) > w.limit {
		p = p[len(p)-w.limit:]
	}
	for len(p) > 0 {
		if len(w.tail) < w.limit {
			k := min(w.limit-len(w.tail), len(p))
			w.tail = append(w.tail, p[:k]...)
			p = p[k:]
			continue
		}
		k := copy(w.tail[w.next:], p)
		w.next = (w.next + k) % w.limit
		p = p[k:]
	}
	return n, nil
}

// Dropped reports how many bytes were neither in the head nor the tail.
func (w *cappedWriter) Dropped() int {
	return max(w.total-len(w.head)-len(w.tail), 0)
}

// String returns the captured stream, truncated like TruncateOutput.
func (w *cappedWriter) String() string {
	if w.limit <= 0 || w.total <= w.limit {
		return string(w.head)
	}
	tail := string(w.tail[w.next:]) + string(w.tail[:w.next])
	return elide(string(w.head), tail, w.total, w.limit)
}

// TruncateLines applies line-based truncation using head/tail split.
func TruncateLines(output string, maxLines int) string {
	lines := strings.Split(output, "\n")
	if maxLines <= 0 || len(lines) <= maxLines {
		return output
	}

	headCount := maxLines / 2
	tailCount := maxLines - headCount
	omitted := len(lines) - headCount - tailCount

	return strings.Join(lines[:headCount], "\n") +
		fmt.Sprintf("\n[... %d lines omitted ...]\n", omitted) +
		strings.Join(lines[len(lines)-tailCount:], "\n")
}

// Diagnostic condenses a command result into text for a failing test
// outcome: characters first, then lines.
func Diagnostic(result *ExecResult, maxChars, maxLines int) string {
	if result == nil {
		return ""
	}
	out := strings.TrimSpace(result.Output())
	return TruncateLines(TruncateOutput(out, maxChars), maxLines)
}
