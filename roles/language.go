package roles

import (
	"fmt"
	"path"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	defaultSlug = "solution"
	codeSlugLen = 50
	testSlugLen = 40
)

// Language describes how code in one language is named, fenced, and tested.
type Language struct {
	Name      string
	Extension string
	// Fences are the info strings accepted on a fenced code block, the
	// canonical one first.
	Fences []string
	// TestFramework is named in the tester's prompt.
	TestFramework string
	// DefaultTestCommand runs one test file; TestPlaceholder marks where
	// its path goes.
	DefaultTestCommand string

	testFile func(stem string) string
}

// Fence returns the canonical fence info string.
func (l Language) Fence() string {
	return l.Fences[0]
}

// TestFileName names the test file for a code file.
func (l Language) TestFileName(codeFile string) string {
	stem := strings.TrimSuffix(path.Base(codeFile), l.Extension)
	if len(stem) > testSlugLen {
		stem = strings.TrimRight(stem[:testSlugLen], "_")
	}
	if stem == "" {
		stem = defaultSlug
	}
	return l.testFile(stem)
}

var languages = map[string]Language{
	"python": {
		Name:               "python",
		Extension:          ".py",
		Fences:             []string{"python", "py", "python3"},
		TestFramework:      "pytest",
		DefaultTestCommand: "python -m pytest -q " + TestPlaceholder,
		testFile:           func(stem string) string { return "test_" + stem + ".py" },
	},
	"javascript": {
		Name:               "javascript",
		Extension:          ".js",
		Fences:             []string{"javascript", "js", "node"},
		TestFramework:      "node:test with node:assert",
		DefaultTestCommand: "node --test " + TestPlaceholder,
		testFile:           func(stem string) string { return stem + ".test.js" },
	},
	"ruby": {
		Name:               "ruby",
		Extension:          ".rb",
		Fences:             []string{"ruby", "rb"},
		TestFramework:      "minitest",
		DefaultTestCommand: "ruby " + TestPlaceholder,
		testFile:           func(stem string) string { return "test_" + stem + ".rb" },
	},
}

// LookupLanguage returns the named language. Names are case-insensitive and
// any fence alias is accepted.
func LookupLanguage(name string) (Language, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if l, ok := languages[name]; ok {
		return l, nil
	}
	for _, l := range languages {
		for _, f := range l.Fences {
			if f == name {
				return l, nil
			}
		}
	}
	return Language{}, fmt.Errorf("unsupported language %q", name)
}

var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

// Slug reduces text to a lower-case ASCII identifier of at most limit bytes:
// accents are folded, every other run of non-alphanumerics becomes a single
// underscore. Text with nothing usable yields "solution".
func Slug(text string, limit int) string {
	folded, _, err := transform.String(stripMarks, text)
	if err != nil {
		folded = text
	}

	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(folded) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}

	s := b.String()
	if limit > 0 && len(s) > limit {
		s = strings.TrimRight(s[:limit], "_")
	}
	if s == "" {
		return defaultSlug
	}
	return s
}

// CodeFileName names the solution file for a requirement.
func (l Language) CodeFileName(requirement string) string {
	return Slug(requirement, codeSlugLen) + l.Extension
}
