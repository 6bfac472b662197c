// Package memcheck wraps suite invocations in the valgrind memory checker
// and aggregates its XML reports.
package memcheck

import (
	"fmt"
	"os"
	"path/filepath"
)

// ErrorExitCode is the code valgrind is told to return when it detects
// errors; process.ToolErrorCode classifies it.
const ErrorExitCode = 101

// baseFlags are always passed to the tool.
var baseFlags = []string{
	"--leak-check=full",
	"--show-leak-kinds=all",
	"--track-origins=yes",
	"--verbose",
	fmt.Sprintf("--error-exitcode=%d", ErrorExitCode),
}

// Wrapper builds the instrumentation prefix for a suite invocation.
type Wrapper struct {
	Tool         string // Executable name, usually "valgrind"
	Suppressions string // Absolute path of the suppressions file
	ReportName   string // Report base name, e.g. "valgrind_report"
}

// NewWrapper creates a wrapper, resolving a relative suppressions path
// against the directory of the running utrun binary. Suites are launched
// from the build output directory, so the caller's working directory is
// not a usable anchor.
func NewWrapper(tool, suppressions, reportName string) (*Wrapper, error) {
	resolved, err := ResolveSuppressions(suppressions)
	if err != nil {
		return nil, err
	}
	return &Wrapper{Tool: tool, Suppressions: resolved, ReportName: reportName}, nil
}

// ResolveSuppressions returns path unchanged when absolute, otherwise
// relative to the executable's directory.
func ResolveSuppressions(path string) (string, error) {
	if path == "" || filepath.IsAbs(path) {
		return path, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if real, err := filepath.EvalSymlinks(exe); err == nil {
		exe = real
	}
	return filepath.Join(filepath.Dir(exe), path), nil
}

// XMLReport returns the per-suite XML report file name.
func (w *Wrapper) XMLReport(suiteID string) string {
	return fmt.Sprintf("%s_%s.xml", suiteID, w.ReportName)
}

// LogReport returns the per-suite text report file name.
func (w *Wrapper) LogReport(suiteID string) string {
	return fmt.Sprintf("%s_%s.log", suiteID, w.ReportName)
}

// Args returns the full wrapper argument list, tool name first.
// XML output takes precedence: when toXML is set the log file is not
// configured even if toFile is also set. With neither, the tool writes to
// the terminal.
func (w *Wrapper) Args(suiteID string, toFile, toXML bool) []string {
	args := make([]string, 0, len(baseFlags)+4)
	args = append(args, w.Tool)
	args = append(args, baseFlags...)
	switch {
	case toXML:
		args = append(args, "--xml=yes", "--xml-file="+w.XMLReport(suiteID))
	case toFile:
		args = append(args, "--log-file="+w.LogReport(suiteID))
	}
	if w.Suppressions != "" {
		args = append(args, "--suppressions="+w.Suppressions)
	}
	return args
}
