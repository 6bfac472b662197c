// Package build drives the cmake configure and make compile steps for the
// selected suites.
package build

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/AndreyAkinshin/utrun/internal/output"
	"github.com/AndreyAkinshin/utrun/internal/process"
	"github.com/AndreyAkinshin/utrun/internal/suite"
)

// Build defines added on top of the configured ones.
const (
	DebugDefine    = "-DCMAKE_BUILD_TYPE=Debug"
	CoverageDefine = "-DCOVERAGE_ENABLED=1"
)

// Options configures one build.
type Options struct {
	OutputDir string
	Defines   []string  // Declarative -D list for the configure step
	Debug     bool      // Build with debug info (needed under the memory checker)
	Coverage  bool      // Build with coverage instrumentation
	Jobs      int       // make -j value; values below 1 mean 1
	Output    io.Writer // Receives combined tool output; nil means the Writer's stdout
}

// Driver invokes the build system through a process.Runner.
type Driver struct {
	runner process.Runner
	out    *output.Writer
	log    *zap.Logger
}

// NewDriver creates a build driver.
func NewDriver(runner process.Runner, out *output.Writer, log *zap.Logger) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{runner: runner, out: out, log: log}
}

// ConfigureCommand returns the cmake invocation for opts.
func ConfigureCommand(opts Options) process.Command {
	args := []string{"-B", opts.OutputDir}
	args = append(args, opts.Defines...)
	if opts.Debug {
		args = append(args, DebugDefine)
	}
	if opts.Coverage {
		args = append(args, CoverageDefine)
	}
	return process.Command{Name: "cmake", Args: args, Stdout: opts.Output, Stderr: opts.Output}
}

// CompileCommand returns the make invocation building exactly the display
// names of the selected suites.
func CompileCommand(sel suite.Selection, opts Options) process.Command {
	jobs := opts.Jobs
	if jobs < 1 {
		jobs = 1
	}
	args := append([]string{fmt.Sprintf("-j%d", jobs)}, sel.Names()...)
	return process.Command{Name: "make", Args: args, Dir: opts.OutputDir, Stdout: opts.Output, Stderr: opts.Output}
}

// Build configures the project and compiles the selected suites.
// An empty selection is not an error: there is nothing to build, so the
// step is skipped with a warning. Any step returning a code other than
// success or the tool-detected sentinel aborts the build.
func (d *Driver) Build(ctx context.Context, sel suite.Selection, opts Options) error {
	if sel.Empty() {
		d.out.Warning("no suites selected, skipping build")
		return nil
	}
	if opts.Output == nil {
		opts.Output = d.out.Out()
	}

	steps := []process.Command{ConfigureCommand(opts), CompileCommand(sel, opts)}
	for _, cmd := range steps {
		d.out.Command(cmd.String())
		d.log.Info("build step", zap.String("command", cmd.String()))

		outcome, err := process.Check(ctx, d.runner, cmd)
		if err != nil {
			return err
		}
		if outcome == process.ToolWarning {
			d.log.Warn("build step returned tool-detected code", zap.String("command", cmd.Name))
		}
	}
	return nil
}
