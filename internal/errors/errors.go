// Package errors provides structured error types and exit codes for utrun.
//
// Only fatal conditions are represented here. Recoverable conditions (an
// unknown suite id, a missing coverage statistics file, a tool-detected
// condition on a single suite) are reported as warnings by the component
// that meets them and never surface as a RunError.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Exit codes; public mirrors live in pkg/utrun.
const (
	ExitSuccess          = 0
	ExitTestFailure      = 1   // a suite failed or coverage regressed
	ExitConfigError      = 2   // invalid config or flags
	ExitEnvironmentError = 3   // missing tool, unwritable output
	ExitSubprocessError  = 4   // build or coverage tool returned non-zero
	ExitToolDetected     = 101 // instrumentation tool flagged a suite
)

// ErrorKind classifies a RunError and selects its exit code.
type ErrorKind int

const (
	KindRuntime ErrorKind = iota
	KindConfig
	KindEnvironment
	KindSubprocess
	KindTestFailure
	KindToolDetected
)

var exitCodes = map[ErrorKind]int{
	KindConfig:       ExitConfigError,
	KindEnvironment:  ExitEnvironmentError,
	KindSubprocess:   ExitSubprocessError,
	KindToolDetected: ExitToolDetected,
}

// RunError is a fatal condition that ends a run with a specific exit code.
type RunError struct {
	Kind    ErrorKind
	Message string
	Suite   string
	Command string
	Code    int      // subprocess exit status
	Suites  []string // suite ids behind a test failure or tool detection
	Cause   error
}

func (e *RunError) Error() string {
	if e.Suite == "" {
		return e.Message
	}
	return "[" + e.Suite + "] " + e.Message
}

func (e *RunError) Unwrap() error { return e.Cause }

// ExitCode maps the kind to a process exit code.
func (e *RunError) ExitCode() int {
	if code, ok := exitCodes[e.Kind]; ok {
		return code
	}
	return ExitTestFailure
}

func kinded(kind ErrorKind, message string) *RunError {
	return &RunError{Kind: kind, Message: message}
}

// New creates a runtime error.
func New(message string) *RunError { return kinded(KindRuntime, message) }

// Config creates a configuration error.
func Config(message string) *RunError { return kinded(KindConfig, message) }

// Configf is Config with formatting.
func Configf(format string, args ...any) *RunError {
	return Config(fmt.Sprintf(format, args...))
}

// Environment creates an environment error.
func Environment(message string) *RunError { return kinded(KindEnvironment, message) }

// Environmentf is Environment with formatting.
func Environmentf(format string, args ...any) *RunError {
	return Environment(fmt.Sprintf(format, args...))
}

// Wrap attaches message to err as a runtime error.
func Wrap(err error, message string) *RunError {
	e := New(message)
	e.Cause = err
	return e
}

// Subprocess reports a command that exited with an unexpected code.
func Subprocess(cmdline string, code int) *RunError {
	e := kinded(KindSubprocess, fmt.Sprintf("command %q returned with %d error code", cmdline, code))
	e.Command, e.Code = cmdline, code
	return e
}

func suiteList(kind ErrorKind, prefix string, suites []string) *RunError {
	ids := append([]string(nil), suites...)
	e := kinded(kind, prefix+strings.Join(ids, ", "))
	e.Suites = ids
	return e
}

// TestFailure is raised once every suite has run and at least one failed.
func TestFailure(suites []string) *RunError {
	return suiteList(KindTestFailure, "test run failed for suites: ", suites)
}

// ToolDetected is raised when nothing failed but the instrumentation tool
// flagged one or more suites.
func ToolDetected(suites []string) *RunError {
	return suiteList(KindToolDetected, "instrumentation tool reported errors for suites: ", suites)
}

// GetExitCode returns the exit code for err. Errors that are not a RunError
// count as a test failure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var re *RunError
	if errors.As(err, &re) {
		return re.ExitCode()
	}
	return ExitTestFailure
}

// IsKind reports whether err is or wraps a RunError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var re *RunError
	return errors.As(err, &re) && re.Kind == kind
}
