// Package utrun provides public constants for external tools integrating with
// the utrun test orchestrator.
package utrun

// Exit codes returned by the utrun CLI.
// These constants allow CI wrappers to check exit codes symbolically
// rather than using magic numbers.
const (
	// ExitSuccess indicates every selected suite passed.
	ExitSuccess = 0

	// ExitFailure indicates one or more suites failed.
	ExitFailure = 1

	// ExitConfigError indicates a configuration error (invalid config file, bad flag, etc.).
	ExitConfigError = 2

	// ExitEnvError indicates an environment error (missing tool, unwritable output directory).
	ExitEnvError = 3

	// ExitSubprocessError indicates the build or coverage tooling returned an unexpected code.
	ExitSubprocessError = 4

	// ExitToolDetected is the instrumentation tool's error exit code. utrun
	// returns it when the tool flagged a suite and nothing more severe happened.
	ExitToolDetected = 101
)
