// Package coverage captures lcov coverage data, parses its summary and
// compares snapshots across commits.
package coverage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/AndreyAkinshin/utrun/internal/output"
	"github.com/AndreyAkinshin/utrun/internal/process"
)

// Files written into the output directory.
const (
	BaseInfoFile   = "coverage_base.info"
	TestInfoFile   = "coverage_test.info"
	MergedInfoFile = "coverage.info"
	StatsFileName  = "coverage_statistics.txt"
)

// CollectOptions configures one coverage collection.
type CollectOptions struct {
	OutputDir string
	Excludes  []string  // lcov --exclude patterns
	Filters   []string  // lcov --filter values
	ReportDir string    // genhtml output directory, relative to OutputDir
	Jobs      int       // lcov --parallel value; values below 1 omit the flag
	Output    io.Writer // Log sink for tool output; nil uses the terminal
}

// Collector runs lcov and genhtml through a process.Runner.
type Collector struct {
	runner process.Runner
	out    *output.Writer
	log    *zap.Logger
}

// NewCollector creates a coverage collector.
func NewCollector(runner process.Runner, out *output.Writer, log *zap.Logger) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Collector{runner: runner, out: out, log: log}
}

func (opts CollectOptions) captureFlags() []string {
	var args []string
	for _, ex := range opts.Excludes {
		args = append(args, "--exclude", ex)
	}
	if len(opts.Filters) > 0 {
		args = append(args, "--filter", strings.Join(opts.Filters, ","))
	}
	if opts.Jobs > 0 {
		args = append(args, "--parallel", strconv.Itoa(opts.Jobs))
	}
	return args
}

// Commands returns the capture, merge and report invocations in order.
// The final command writes the text summary.
func Commands(opts CollectOptions) []process.Command {
	flags := opts.captureFlags()
	lcov := func(args ...string) process.Command {
		return process.Command{Name: "lcov", Args: args, Dir: opts.OutputDir}
	}

	base := lcov(append([]string{"--capture", "--initial", "--directory", ".", "--output-file", BaseInfoFile}, flags...)...)
	test := lcov(append([]string{"--capture", "--directory", ".", "--output-file", TestInfoFile}, flags...)...)
	merge := lcov("--add-tracefile", BaseInfoFile, "--add-tracefile", TestInfoFile, "--output-file", MergedInfoFile)
	html := process.Command{Name: "genhtml", Args: []string{MergedInfoFile, "--output-directory", opts.ReportDir}, Dir: opts.OutputDir}
	summary := lcov("--summary", MergedInfoFile)

	return []process.Command{base, test, merge, html, summary}
}

// Collect runs the baseline capture (all instrumented code, so files never
// executed count as uncovered), the test capture, the merge, the HTML
// report and the text summary. The first failing capture or merge stops
// the collection. Report generation failures also fail the collection,
// as later steps read the summary file. nil means every phase succeeded.
func (c *Collector) Collect(ctx context.Context, opts CollectOptions) error {
	dest := opts.Output
	if dest == nil {
		dest = c.out.Out()
	}

	cmds := Commands(opts)
	capture, html, summary := cmds[:3], cmds[3], cmds[4]

	for _, cmd := range capture {
		if err := c.step(ctx, cmd, dest); err != nil {
			return err
		}
	}

	htmlErr := c.step(ctx, html, dest)
	summaryErr := c.writeSummary(ctx, summary, opts.OutputDir)
	if htmlErr != nil {
		return htmlErr
	}
	return summaryErr
}

func (c *Collector) step(ctx context.Context, cmd process.Command, dest io.Writer) error {
	cmd.Stdout = dest
	cmd.Stderr = dest
	c.out.Command(cmd.String())
	_, err := process.Check(ctx, c.runner, cmd)
	if err != nil {
		c.log.Warn("coverage phase failed", zap.String("command", cmd.String()), zap.Error(err))
	}
	return err
}

func (c *Collector) writeSummary(ctx context.Context, cmd process.Command, outputDir string) error {
	path := filepath.Join(outputDir, StatsFileName)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create coverage summary: %w", err)
	}
	defer f.Close()

	// lcov prints the summary on stderr in some releases.
	if err := c.step(ctx, cmd, f); err != nil {
		return err
	}
	c.log.Info("coverage summary written", zap.String("path", path))
	return nil
}
