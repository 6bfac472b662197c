// Package pipeline runs one utrun invocation end to end: clean, build,
// suites, coverage and the memory checker summary.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AndreyAkinshin/utrun/internal/build"
	"github.com/AndreyAkinshin/utrun/internal/config"
	"github.com/AndreyAkinshin/utrun/internal/coverage"
	runerrors "github.com/AndreyAkinshin/utrun/internal/errors"
	"github.com/AndreyAkinshin/utrun/internal/logging"
	"github.com/AndreyAkinshin/utrun/internal/memcheck"
	"github.com/AndreyAkinshin/utrun/internal/metrics"
	"github.com/AndreyAkinshin/utrun/internal/output"
	"github.com/AndreyAkinshin/utrun/internal/process"
	"github.com/AndreyAkinshin/utrun/internal/suite"
	"github.com/AndreyAkinshin/utrun/internal/testrun"
)

// Pipeline executes runs. Two pipelines must not share an output directory.
type Pipeline struct {
	Out *output.Writer

	// Runner spawns every process. When nil, an ExecRunner is built with
	// the run's environment.
	Runner process.Runner
}

// New creates a pipeline writing to out.
func New(out *output.Writer) *Pipeline {
	return &Pipeline{Out: out}
}

// Report is what a run produced.
type Report struct {
	RunID      string
	Selected   []string
	Missing    []string
	Results    []testrun.Result
	Snapshot   *coverage.Snapshot
	Comparison *coverage.Comparison
	Tallies    []memcheck.Tally
}

// execution holds the per-run collaborators.
type execution struct {
	run     config.Run
	out     *output.Writer
	log     *zap.Logger
	runner  process.Runner
	sink    io.Writer
	rec     *metrics.Recorder
	report  *Report
	flagged []string
	policy  error // coverage policy violation, reported after the summary
}

// Execute performs the run described by run. The returned error carries
// the exit code of the most severe condition met; the report is returned
// even when the run fails.
func (p *Pipeline) Execute(ctx context.Context, run config.Run) (*Report, error) {
	runID := uuid.NewString()
	report := &Report{RunID: runID}

	if run.Clean {
		if err := clean(run); err != nil {
			return report, err
		}
	}

	var sink io.Writer
	if run.LogFile != "" {
		f, err := os.Create(run.LogFile)
		if err != nil {
			return report, runerrors.Environmentf("cannot open result log: %v", err)
		}
		defer f.Close()
		sink = logging.NewStripWriter(f)
	}

	log := logging.New(sink, run.Verbose).With(zap.String("run_id", runID))
	defer func() { _ = log.Sync() }()

	runner := p.Runner
	if runner == nil {
		env := process.NewEnvironment(os.Environ(), run.Environment)
		runner = process.NewExecRunner(env, log)
	}

	e := &execution{
		run:    run,
		out:    p.Out.Tee(sink),
		log:    log,
		runner: runner,
		sink:   sink,
		rec:    metrics.NewRecorder(runID),
		report: report,
	}
	log.Info("run started", zap.Stringer("config", run))

	err := e.execute(ctx)

	if run.MetricsFile != "" {
		if mErr := e.rec.WriteFile(run.MetricsFile); mErr != nil {
			e.out.Warning("%v", mErr)
		}
	}
	log.Info("run finished", zap.Int("exit_code", runerrors.GetExitCode(err)))
	return report, err
}

func (e *execution) execute(ctx context.Context) error {
	sel := e.resolve()

	var wrapper *memcheck.Wrapper
	if e.run.Memcheck {
		w, err := e.prepareMemcheck(ctx)
		if err != nil {
			return err
		}
		wrapper = w
	}

	if e.run.Build {
		e.out.Section("Build")
		d := build.NewDriver(e.runner, e.out, e.log)
		err := d.Build(ctx, sel, build.Options{
			OutputDir: e.run.OutputDir,
			Defines:   e.run.BuildDefines,
			Debug:     e.run.Memcheck,
			Coverage:  e.run.Coverage,
			Jobs:      e.run.Jobs,
			Output:    e.sink,
		})
		if err != nil {
			return err
		}
	}

	if !e.run.Test {
		return nil
	}

	testErr := e.runSuites(ctx, sel, wrapper)
	if testErr != nil && ctx.Err() != nil {
		return testErr
	}
	if e.run.Memcheck && e.run.XMLFile != "" && !e.run.List {
		e.summarizeMemcheck()
	}
	if testErr != nil {
		e.printSummary(false)
		return testErr
	}

	if e.run.Coverage && !e.run.List {
		if err := e.collectCoverage(ctx); err != nil {
			return err
		}
	}

	e.printSummary(true)

	if e.policy != nil {
		return e.policy
	}
	if len(e.flagged) > 0 {
		return runerrors.ToolDetected(e.flagged)
	}
	return nil
}

// resolve selects suites and reports ids missing from the registry.
func (e *execution) resolve() suite.Selection {
	sel, missing := e.run.Registry.Resolve(e.run.Requested)
	for _, id := range missing {
		e.out.Warning("could not find suite: %s", id)
		e.log.Warn("unknown suite id", zap.String("suite", id))
	}
	e.report.Selected = sel.IDs()
	e.report.Missing = missing
	return sel
}

func (e *execution) prepareMemcheck(ctx context.Context) (*memcheck.Wrapper, error) {
	w, err := memcheck.NewWrapper(e.run.MemcheckTool, e.run.Suppressions, e.run.ReportName)
	if err != nil {
		return nil, runerrors.Environmentf("memory checker: %v", err)
	}
	if w.Suppressions != "" {
		if _, err := os.Stat(w.Suppressions); err != nil {
			e.out.Warning("suppressions file %s not found, running without it", w.Suppressions)
			w.Suppressions = ""
		}
	}
	if version, err := memcheck.CheckVersion(ctx, e.runner, e.run.MemcheckTool, e.run.MinVersion); err != nil {
		e.out.Warning("%v", err)
	} else {
		e.log.Info("memory checker found", zap.String("tool", e.run.MemcheckTool), zap.String("version", version))
	}
	return w, nil
}

func (e *execution) runSuites(ctx context.Context, sel suite.Selection, wrapper *memcheck.Wrapper) error {
	e.out.Section("Tests")
	r := testrun.NewRunner(e.runner, e.out, e.log)
	results, err := r.Run(ctx, sel, testrun.Options{
		OutputDir: e.run.OutputDir,
		List:      e.run.List,
		Filter:    e.run.Filter,
		XMLFile:   e.run.XMLFile,
		Wrapper:   wrapper,
		LogToFile: e.sink != nil,
		Output:    e.sink,
	})
	e.report.Results = results
	e.rec.RecordResults(results)
	for _, res := range results {
		if res.Outcome == process.ToolWarning {
			e.flagged = append(e.flagged, res.SuiteID)
		}
	}
	return err
}

// collectCoverage captures coverage and, when a baseline is configured,
// applies the comparison policy. Only collection failures are returned.
func (e *execution) collectCoverage(ctx context.Context) error {
	e.out.Section("Coverage")
	c := coverage.NewCollector(e.runner, e.out, e.log)
	err := c.Collect(ctx, coverage.CollectOptions{
		OutputDir: e.run.OutputDir,
		Excludes:  e.run.CoverageExcludes,
		Filters:   e.run.CoverageFilters,
		ReportDir: e.run.ReportDir,
		Jobs:      e.run.Jobs,
		Output:    e.sink,
	})
	if err != nil {
		var re *runerrors.RunError
		if errors.As(err, &re) {
			return err
		}
		return runerrors.Environmentf("coverage collection failed: %v", err)
	}

	statsPath := filepath.Join(e.run.OutputDir, coverage.StatsFileName)
	snapshot, err := coverage.ReadSnapshot(statsPath)
	if err != nil {
		e.out.Warning("%v", err)
	} else {
		e.report.Snapshot = &snapshot
		e.rec.RecordCoverage(snapshot)
		e.out.SummaryItem("Lines", fmt.Sprintf("%.1f%%", snapshot.Lines))
		e.out.SummaryItem("Functions", fmt.Sprintf("%.1f%%", snapshot.Functions))
	}

	if e.run.Baseline != "" {
		e.policy = e.compareCoverage(statsPath)
	}
	return nil
}

func (e *execution) compareCoverage(statsPath string) error {
	policy, err := coverage.ParsePolicy(e.run.Policy)
	if err != nil {
		return runerrors.Config(err.Error())
	}

	cmp, diags := coverage.CompareFiles(e.run.Baseline, statsPath)
	for _, d := range diags {
		e.out.Warning("%v", d)
	}
	e.report.Comparison = &cmp

	text := coverage.ComparisonText(cmp, diags)
	e.out.Print("%s", text)
	if _, err := coverage.WriteComparison(e.run.OutputDir, text); err != nil {
		e.out.Warning("%v", err)
	}

	if policy.Fails(cmp) {
		return &runerrors.RunError{
			Kind:    runerrors.KindTestFailure,
			Message: fmt.Sprintf("coverage check failed (policy %s): %s", policy, policy.Reason(cmp)),
		}
	}
	return nil
}

func (e *execution) summarizeMemcheck() {
	tallies, warnings, err := memcheck.Aggregate(e.run.OutputDir, e.run.ReportName)
	if err != nil {
		e.out.Warning("%v", err)
		return
	}
	for _, w := range warnings {
		e.out.Warning("%s", w)
	}
	e.report.Tallies = tallies
	e.rec.RecordMemcheck(tallies)

	path := filepath.Join(e.run.OutputDir, memcheck.SummaryFileName)
	if err := memcheck.WriteCSV(path, tallies); err != nil {
		e.out.Warning("%v", err)
		return
	}
	if len(tallies) > 0 {
		e.out.Println("%s", memcheck.Render(tallies))
	}
	e.log.Info("memcheck summary written", zap.String("path", path), zap.Int("suites", len(tallies)))
}

// clean removes the output directory, which holds the per-suite memcheck
// logs, the default result log in the working directory and the requested
// result log.
func clean(run config.Run) error {
	targets := []string{run.OutputDir, config.DefaultLogFile}
	if run.LogFile != "" && run.LogFile != config.DefaultLogFile {
		targets = append(targets, run.LogFile)
	}
	for _, path := range targets {
		if err := os.RemoveAll(path); err != nil {
			return runerrors.Environmentf("clean %s: %v", path, err)
		}
	}
	return nil
}

// elapsed formats a suite duration for the summary table.
func elapsed(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
