package roles

import (
	"fmt"

	"github.com/martinemde/codecrew/unifiedllm"
)

// Profile is the request configuration one stage sends with every call.
type Profile struct {
	Role        string
	Model       string
	System      string
	Temperature float64
	MaxTokens   int
}

func (p Profile) generateOptions(prompt string, retry *unifiedllm.RetryPolicy) unifiedllm.GenerateOptions {
	opts := unifiedllm.GenerateOptions{
		Model:       p.Model,
		System:      p.System,
		Prompt:      prompt,
		Temperature: unifiedllm.Float64(p.Temperature),
		Metadata:    map[string]string{"role": p.Role},
		Retry:       retry,
	}
	if p.MaxTokens > 0 {
		opts.MaxTokens = unifiedllm.Int(p.MaxTokens)
	}
	return opts
}

// Profiles holds one Profile per stage.
type Profiles struct {
	Planner    Profile
	Coder      Profile
	Tester     Profile
	Debugger   Profile
	Documenter Profile
}

// analyticTemperature caps sampling for the stages whose output is checked
// mechanically.
const analyticTemperature = 0.2

// DefaultProfiles builds the stock prompts for lang.
func DefaultProfiles(lang Language, model string, temperature float64, maxTokens int) Profiles {
	base := Profile{Model: model, Temperature: temperature, MaxTokens: maxTokens}
	analytic := base
	analytic.Temperature = min(temperature, analyticTemperature)

	planner := base
	planner.Role = "planner"
	planner.System = fmt.Sprintf(`You are a software planner. Turn a requirement into a short implementation plan for a single %s file:
1. Restate the requirement precisely, including inputs, outputs, and error behavior.
2. List the functions or classes to write, with signatures.
3. List the edge cases the implementation must handle.
4. Describe how the code should be tested.
Do not write the implementation.`, lang.Name)

	coder := base
	coder.Role = "coder"
	coder.System = fmt.Sprintf(`You are an expert %[1]s programmer. Write complete, working %[1]s code that satisfies the requirement.
- Follow the language's standard style and naming conventions.
- Handle edge cases and invalid input explicitly.
- Document public functions.
- Keep everything in one importable file with no top-level side effects.
Reply with the complete file in a single `+"```%[2]s"+` fenced block.`, lang.Name, lang.Fence())

	tester := analytic
	tester.Role = "tester"
	tester.System = fmt.Sprintf(`You are a software test engineer. Write unit tests for the given %[1]s file using %[2]s.
- Import the code under test from its module file name.
- Cover normal behavior, boundary conditions, and error cases.
- Use precise assertions; never print instead of asserting.
- Do not modify or redefine the code under test.
Reply with the complete test file in a single `+"```%[3]s"+` fenced block.`, lang.Name, lang.TestFramework, lang.Fence())

	debugger := analytic
	debugger.Role = "debugger"
	debugger.System = `You are a debugging expert. Given code and the output of its failing tests:
1. Identify the root cause of each failure.
2. Explain precisely what must change to fix it.
3. Point out any other defect you notice.
Your feedback is the only thing the next programmer sees besides the requirement, so make it self-contained. Do not rewrite the whole file.`

	documenter := base
	documenter.Role = "documenter"
	documenter.System = `You are a technical writer. Write Markdown documentation for the given code:
- a one-paragraph overview,
- installation and usage instructions with a runnable example,
- an API reference for every public function or class,
- notes on error handling and limitations.`

	return Profiles{
		Planner:    planner,
		Coder:      coder,
		Tester:     tester,
		Debugger:   debugger,
		Documenter: documenter,
	}
}
