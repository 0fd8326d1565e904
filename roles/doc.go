// Package roles implements the five workflow stages on top of an LLM client
// and an execution sandbox.
//
// Each stage is configured by a Profile: the system prompt, sampling
// parameters, and model it sends with every request. LLMCoder turns the
// model's reply into a CodeArtifact by extracting a fenced code block;
// SandboxTester asks the model for a test file, runs it next to the artifact
// in a fresh Sandbox, and maps the exit status to a TestOutcome.
//
// NewCrew wires all five together from a CrewConfig.
package roles
