// Package testrun executes the selected suites one after another and
// classifies their exit codes.
package testrun

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/acarl005/stripansi"
	"go.uber.org/zap"

	runerrors "github.com/AndreyAkinshin/utrun/internal/errors"
	"github.com/AndreyAkinshin/utrun/internal/memcheck"
	"github.com/AndreyAkinshin/utrun/internal/output"
	"github.com/AndreyAkinshin/utrun/internal/process"
	"github.com/AndreyAkinshin/utrun/internal/suite"
	"github.com/AndreyAkinshin/utrun/internal/testparser"
)

// GoogleTest flags.
const (
	ListFlag   = "--gtest_list_tests"
	FilterFlag = "--gtest_filter="
	OutputFlag = "--gtest_output=xml:"
)

// Options configures a test run. All suites share OutputDir, so runs
// against the same directory must not overlap.
type Options struct {
	OutputDir string
	List      bool              // List tests instead of running them
	Filter    string            // GoogleTest filter expression; ignored when List is set
	XMLFile   string            // Per-suite XML result base name; empty disables
	Wrapper   *memcheck.Wrapper // Memory checker; nil runs suites directly
	LogToFile bool              // Memory checker writes a per-suite log file
	Output    io.Writer         // Log sink for suite output; nil uses the terminal
}

// Result is the outcome of one suite execution.
type Result struct {
	SuiteID  string
	ExitCode int
	Outcome  process.Outcome
	Duration time.Duration
	Counts   testparser.TestCounts
}

// Runner runs suites through a process.Runner.
type Runner struct {
	runner process.Runner
	out    *output.Writer
	log    *zap.Logger
	parser testparser.Parser
}

// NewRunner creates a suite runner.
func NewRunner(runner process.Runner, out *output.Writer, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{runner: runner, out: out, log: log, parser: &testparser.GTestParser{}}
}

// Command builds the invocation of one suite: the memory checker prefix if
// any, the binary, at most one of list or filter, and the XML output flag.
// XML output is only requested when no memory checker is active, as the
// checker's diagnostics corrupt the GoogleTest XML stream.
func Command(d suite.Descriptor, opts Options) process.Command {
	var argv []string
	if opts.Wrapper != nil {
		argv = append(argv, opts.Wrapper.Args(d.ID, opts.LogToFile, opts.XMLFile != "")...)
	}
	argv = append(argv, d.Executable())

	switch {
	case opts.List:
		argv = append(argv, ListFlag)
	case opts.Filter != "":
		argv = append(argv, FilterFlag+opts.Filter)
	}

	if opts.XMLFile != "" && opts.Wrapper == nil {
		argv = append(argv, OutputFlag+d.ID+"_"+opts.XMLFile)
	}

	return process.Command{Name: argv[0], Args: argv[1:], Dir: opts.OutputDir}
}

// Run executes every selected suite in order and returns one Result per
// suite. All suites run even when some fail; afterwards a test failure
// error names every failing suite. Tool-detected results only produce a
// warning. A cancelled context stops the run after the current suite.
func (r *Runner) Run(ctx context.Context, sel suite.Selection, opts Options) ([]Result, error) {
	dest := opts.Output
	if dest == nil {
		dest = r.out.Out()
	}

	results := make([]Result, 0, sel.Len())
	var failed, flagged []string

	for _, d := range sel.Descriptors() {
		if err := ctx.Err(); err != nil {
			return results, runerrors.Wrap(err, "test run interrupted")
		}

		res := r.runOne(ctx, d, opts, dest)
		results = append(results, res)

		switch res.Outcome {
		case process.Success:
			r.out.SuitePassed(d.ID)
		case process.ToolWarning:
			flagged = append(flagged, d.ID)
			r.out.SuiteToolError(d.ID, res.ExitCode)
		default:
			failed = append(failed, d.ID)
			r.out.SuiteFailed(d.ID, res.ExitCode)
		}
	}

	if len(flagged) > 0 {
		r.out.Warning("instrumentation tool reported errors for: %v", flagged)
	}
	if len(failed) > 0 {
		return results, runerrors.TestFailure(failed)
	}
	return results, nil
}

func (r *Runner) runOne(ctx context.Context, d suite.Descriptor, opts Options, dest io.Writer) Result {
	cmd := Command(d, opts)
	var captured bytes.Buffer
	w := io.MultiWriter(dest, &captured)
	cmd.Stdout = w
	cmd.Stderr = w

	r.out.SuiteStart(d.ID, d.Name)
	r.out.Command(cmd.String())

	start := time.Now()
	code, err := r.runner.Run(ctx, cmd)
	elapsed := time.Since(start)
	if err != nil {
		r.out.Warning("[%s] could not start: %v", d.ID, err)
		code = -1
	}

	outcome := process.Classify(code)
	r.log.Info("suite finished",
		zap.String("suite", d.ID),
		zap.Int("exit_code", code),
		zap.Stringer("outcome", outcome),
		zap.Duration("elapsed", elapsed))

	res := Result{SuiteID: d.ID, ExitCode: code, Outcome: outcome, Duration: elapsed}
	if !opts.List {
		res.Counts = r.parser.Parse(stripansi.Strip(captured.String()))
	}
	return res
}

// String formats a result for diagnostics.
func (res Result) String() string {
	return fmt.Sprintf("%s: %s (exit code %d)", res.SuiteID, res.Outcome, res.ExitCode)
}
