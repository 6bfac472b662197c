// Package output writes the human-facing progress and summary lines of a run.
package output

import (
	"fmt"
	"io"
	"os"
)

// Writer formats progress for a terminal or a log sink.
//
// When a log sink is attached the pipeline uses Tee, so diagnostics land
// next to the build and test output they describe.
type Writer struct {
	out   io.Writer
	err   io.Writer
	color bool
	quiet bool
}

// New creates a Writer on stdout and stderr, colored when stdout is a terminal.
func New() *Writer {
	return NewWithWriters(os.Stdout, os.Stderr, isTerminal())
}

// NewWithWriters creates a Writer with custom io.Writers (for testing and log sinks).
func NewWithWriters(out, err io.Writer, color bool) *Writer {
	return &Writer{out: out, err: err, color: color}
}

// SetQuiet suppresses command echo, section headers and per-suite progress.
// Warnings, errors and summaries are always printed.
func (w *Writer) SetQuiet(quiet bool) {
	w.quiet = quiet
}

// Out returns the writer used for regular output.
func (w *Writer) Out() io.Writer {
	return w.out
}

// Err returns the writer used for diagnostics.
func (w *Writer) Err() io.Writer {
	return w.err
}

// Tee returns a Writer that also copies everything it prints, stdout and
// stderr alike, into sink. The sink receives the same bytes as the terminal,
// so a stripping sink is expected when color is on.
func (w *Writer) Tee(sink io.Writer) *Writer {
	if sink == nil {
		return w
	}
	t := *w
	t.out = io.MultiWriter(w.out, sink)
	t.err = io.MultiWriter(w.err, sink)
	return &t
}

// paint wraps s in an ANSI style when color is enabled.
func (w *Writer) paint(style, s string) string {
	if !w.color || style == "" {
		return s
	}
	return style + s + reset
}

// Print writes to stdout.
func (w *Writer) Print(format string, args ...any) {
	fmt.Fprintf(w.out, format, args...)
}

// Println writes a line to stdout.
func (w *Writer) Println(format string, args ...any) {
	fmt.Fprintf(w.out, format+"\n", args...)
}

// Errorln writes a line to stderr.
func (w *Writer) Errorln(format string, args ...any) {
	fmt.Fprintf(w.err, format+"\n", args...)
}

// Warning prints a recoverable condition.
func (w *Writer) Warning(format string, args ...any) {
	fmt.Fprintln(w.err, w.paint(yellow, "warning: "+fmt.Sprintf(format, args...)))
}

// ErrorPrefix prints a fatal error with the utrun prefix.
func (w *Writer) ErrorPrefix(format string, args ...any) {
	fmt.Fprintln(w.err, w.paint(red, "utrun:")+" "+fmt.Sprintf(format, args...))
}

// Command echoes a command line before it is executed.
func (w *Writer) Command(cmdline string) {
	if w.quiet {
		return
	}
	fmt.Fprintln(w.out, w.paint(dim, "+ "+cmdline))
}

// Section prints a pipeline stage header.
func (w *Writer) Section(title string) {
	if w.quiet {
		return
	}
	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, w.paint(bold, "=== "+title+" ==="))
}

// SuiteStart announces a suite.
func (w *Writer) SuiteStart(id, name string) {
	if w.quiet {
		return
	}
	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, w.paint(bold+cyan, fmt.Sprintf("─── [%s] %s ───", id, name)))
}

// SuitePassed reports a suite that exited with 0.
func (w *Writer) SuitePassed(id string) {
	if w.quiet {
		return
	}
	if w.color {
		w.Println("%s passed %s", w.paint(green, "["+id+"]"), w.paint(green, "✓"))
		return
	}
	w.Println("[%s] passed", id)
}

// SuiteToolError reports a suite flagged by the instrumentation tool.
func (w *Writer) SuiteToolError(id string, code int) {
	fmt.Fprintln(w.err, w.paint(yellow, fmt.Sprintf("[%s] instrumentation tool reported errors (exit code %d)", id, code)))
}

// SuiteFailed reports a failing suite.
func (w *Writer) SuiteFailed(id string, code int) {
	fmt.Fprintln(w.err, w.paint(red, fmt.Sprintf("[%s] failed with exit code %d", id, code)))
}

// SummaryHeader prints the header of an end-of-run summary.
func (w *Writer) SummaryHeader(title string) {
	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, w.paint(bold+cyan, "=== "+title+" ==="))
	fmt.Fprintln(w.out)
}

func (w *Writer) summaryLine(label, value, valueStyle string) {
	w.Println("  %s %s", w.paint(dim, label+":"), w.paint(valueStyle, value))
}

// SummaryItem prints a labeled summary value.
func (w *Writer) SummaryItem(label, value string) {
	w.summaryLine(label, value, "")
}

// SummaryPassed prints a labeled value in the success color.
func (w *Writer) SummaryPassed(label, value string) {
	w.summaryLine(label, value, green)
}

// SummaryFailed prints a labeled value in the failure color.
func (w *Writer) SummaryFailed(label, value string) {
	w.summaryLine(label, value, red)
}

// FinalSuccess prints the closing line of a successful run.
func (w *Writer) FinalSuccess(format string, args ...any) {
	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, w.paint(green, fmt.Sprintf(format, args...)))
}

// FinalFailure prints the closing line of a failed run.
func (w *Writer) FinalFailure(format string, args ...any) {
	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, w.paint(red, fmt.Sprintf(format, args...)))
}

// Hint prints a dimmed suggestion.
func (w *Writer) Hint(format string, args ...any) {
	fmt.Fprintln(w.out, w.paint(dim, fmt.Sprintf(format, args...)))
}

func isTerminal() bool {
	if fi, _ := os.Stdout.Stat(); fi != nil {
		return (fi.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// ANSI styles.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
)
