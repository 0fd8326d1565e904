package roles

import (
	"regexp"
	"strings"
)

var fencedBlock = regexp.MustCompile("(?s)```[ \\t]*([A-Za-z0-9_+#.-]*)[^\\n]*\\n(.*?)\\n[ \\t]*```")

// ExtractCode pulls source out of a model reply: the first fenced block
// tagged with one of lang's fences, else the first fenced block of any kind,
// else the whole reply.
func ExtractCode(reply string, lang Language) string {
	matches := fencedBlock.FindAllStringSubmatch(reply, -1)
	for _, m := range matches {
		if lang.acceptsFence(m[1]) {
			return m[2]
		}
	}
	if len(matches) > 0 {
		return matches[0][2]
	}
	return strings.TrimSpace(reply)
}

func (l Language) acceptsFence(info string) bool {
	info = strings.ToLower(info)
	for _, f := range l.Fences {
		if f == info {
			return true
		}
	}
	return false
}

// withTrailingNewline terminates non-empty source with exactly one newline.
func withTrailingNewline(src string) string {
	src = strings.TrimRight(src, " \t\r\n")
	if src == "" {
		return ""
	}
	return src + "\n"
}
