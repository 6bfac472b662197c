package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndreyAkinshin/utrun/internal/config"
	"github.com/AndreyAkinshin/utrun/internal/coverage"
	runerrors "github.com/AndreyAkinshin/utrun/internal/errors"
	"github.com/AndreyAkinshin/utrun/internal/memcheck"
	"github.com/AndreyAkinshin/utrun/internal/output"
	"github.com/AndreyAkinshin/utrun/internal/process"
	"github.com/AndreyAkinshin/utrun/internal/testing/mocks"
)

const abcConfig = `
suites:
  - {id: a, name: ATests, path: /tests/a/}
  - {id: b, name: BTests, path: /tests/b/}
  - {id: c, name: CTests, path: /tests/c/}
`

const summary85 = "Summary coverage rate:\n  lines......: 85.3% (853 of 1000 lines)\n  functions..: 70.0% (70 of 100 functions)\n"

type harness struct {
	p      *Pipeline
	runner *mocks.Runner
	out    *bytes.Buffer
	errOut *bytes.Buffer
	dir    string
}

func newHarness(t *testing.T, m *mocks.Runner) *harness {
	t.Helper()
	var out, errOut bytes.Buffer
	p := New(output.NewWithWriters(&out, &errOut, false))
	p.Runner = m
	return &harness{p: p, runner: m, out: &out, errOut: &errOut, dir: t.TempDir()}
}

func (h *harness) newRun(t *testing.T, in config.RunInput) config.Run {
	t.Helper()
	cfg, _, err := config.Parse([]byte(abcConfig))
	require.NoError(t, err)
	if in.OutputDir == "" {
		in.OutputDir = filepath.Join(h.dir, "build")
	}
	run, err := config.NewRun(in, cfg)
	require.NoError(t, err)
	return run
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// Registry {a,b,c}, request {a,z}: z is reported, only a is built and run.
func TestExecute_UnknownSuiteIsReported(t *testing.T) {
	h := newHarness(t, mocks.NewRunner())
	run := h.newRun(t, config.RunInput{Suites: []string{"a", "z"}})

	report, err := h.p.Execute(context.Background(), run)
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, report.Selected)
	assert.Equal(t, []string{"z"}, report.Missing)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "a", report.Results[0].SuiteID)
	assert.Contains(t, h.errOut.String(), "could not find suite: z")

	lines := h.runner.CommandLines()
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "cmake -B "))
	assert.Contains(t, lines[0], "-DCMAKE_BUILD_FLAG=UnitTests")
	assert.True(t, strings.HasPrefix(lines[1], "make -j"))
	assert.True(t, strings.HasSuffix(lines[1], " ATests"))
	assert.Equal(t, "./tests/a/ATests", lines[2])
}

func TestExecute_NothingSelected(t *testing.T) {
	h := newHarness(t, mocks.NewRunner())
	run := h.newRun(t, config.RunInput{Suites: []string{"x"}})

	report, err := h.p.Execute(context.Background(), run)
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Zero(t, h.runner.RunCount())
}

func TestExecute_BuildFailureStopsRun(t *testing.T) {
	h := newHarness(t, mocks.NewRunner().OnName("make", 2))
	run := h.newRun(t, config.RunInput{})

	report, err := h.p.Execute(context.Background(), run)
	require.Error(t, err)
	assert.Equal(t, runerrors.ExitSubprocessError, runerrors.GetExitCode(err))
	assert.Empty(t, report.Results)
	assert.EqualValues(t, 2, h.runner.RunCount())
}

func TestExecute_TestFailureSkipsCoverage(t *testing.T) {
	m := mocks.NewRunner().OnContains("BTests", 1, "")
	h := newHarness(t, m)
	run := h.newRun(t, config.RunInput{NoBuild: true, Coverage: true})

	report, err := h.p.Execute(context.Background(), run)
	require.Error(t, err)

	var re *runerrors.RunError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, []string{"b"}, re.Suites)
	assert.Len(t, report.Results, 3)
	for _, line := range m.CommandLines() {
		assert.NotContains(t, line, "lcov")
	}
	assert.Contains(t, h.out.String(), "1 of 3 suites failed.")
}

func TestExecute_MemcheckToolDetected(t *testing.T) {
	m := mocks.NewRunner().
		OnContains("--version", 0, "valgrind-3.20.0\n").
		OnContains("BTests", 101, "")
	m.RunFunc = func(cmd process.Command) {
		for _, arg := range cmd.Args {
			if name, ok := strings.CutPrefix(arg, "--xml-file="); ok {
				kinds := "<error><kind>Leak_StillReachable</kind></error>"
				if strings.HasPrefix(name, "b_") {
					kinds += "<error><kind>Leak_DefinitelyLost</kind></error>"
				}
				writeFile(t, filepath.Join(cmd.Dir, name), "<valgrindoutput>"+kinds+"</valgrindoutput>")
			}
		}
	}
	h := newHarness(t, m)
	run := h.newRun(t, config.RunInput{NoBuild: true, Valgrind: true, XMLFile: config.DefaultXMLFile})
	require.NoError(t, os.MkdirAll(run.OutputDir, 0o755))

	report, err := h.p.Execute(context.Background(), run)
	require.Error(t, err)
	assert.Equal(t, runerrors.ExitToolDetected, runerrors.GetExitCode(err))
	assert.Len(t, report.Results, 3)

	require.Len(t, report.Tallies, 1)
	assert.Equal(t, "b", report.Tallies[0].SuiteID)
	assert.Equal(t, 1, report.Tallies[0].Count("Leak_DefinitelyLost"))

	csv, err := os.ReadFile(filepath.Join(run.OutputDir, memcheck.SummaryFileName))
	require.NoError(t, err)
	assert.Contains(t, string(csv), "\nb,")

	for _, line := range m.CommandLines() {
		assert.NotContains(t, line, "--gtest_output", "XML results are disabled under the memory checker")
	}
}

func TestExecute_MemcheckBuildsDebug(t *testing.T) {
	m := mocks.NewRunner().OnContains("--version", 0, "valgrind-3.20.0\n")
	h := newHarness(t, m)
	run := h.newRun(t, config.RunInput{Suites: []string{"a"}, Valgrind: true})

	_, err := h.p.Execute(context.Background(), run)
	require.NoError(t, err)
	assert.Contains(t, m.CommandLines()[1], "-DCMAKE_BUILD_TYPE=Debug")
}

func TestExecute_OldMemcheckWarns(t *testing.T) {
	m := mocks.NewRunner().OnContains("--version", 0, "valgrind-3.10.1\n")
	h := newHarness(t, m)
	run := h.newRun(t, config.RunInput{Suites: []string{"a"}, NoBuild: true, Valgrind: true})

	_, err := h.p.Execute(context.Background(), run)
	require.NoError(t, err)
	assert.Contains(t, h.errOut.String(), "older than required")
}

func TestExecute_CoverageComparison(t *testing.T) {
	tests := []struct {
		name     string
		baseline string
		policy   string
		wantCode int
		wantLine string
	}{
		{
			name:     "improved",
			baseline: "  lines......: 80.0% (x)\n  functions..: 65.0% (x)\n",
			wantCode: runerrors.ExitSuccess,
			wantLine: "Congratulations, your commit improved lines coverage from: 80.0% to 85.3%",
		},
		{
			name:     "regressed",
			baseline: "  lines......: 90.0% (x)\n  functions..: 65.0% (x)\n",
			wantCode: runerrors.ExitTestFailure,
			wantLine: "WARNING: Lines coverage decreased from: 90.0% to 85.3%",
		},
		{
			name:     "regressed under never",
			baseline: "  lines......: 90.0% (x)\n  functions..: 65.0% (x)\n",
			policy:   "never",
			wantCode: runerrors.ExitSuccess,
			wantLine: "WARNING: Lines coverage decreased",
		},
		{
			name:     "one unchanged under any-unchanged",
			baseline: "  lines......: 80.0% (x)\n  functions..: 70.0% (x)\n",
			policy:   "any-unchanged",
			wantCode: runerrors.ExitTestFailure,
			wantLine: "Functions coverage stays unchanged and is: 70.0%",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mocks.NewRunner().OnContains("--summary", 0, summary85)
			h := newHarness(t, m)
			baseline := filepath.Join(h.dir, "master_statistics.txt")
			writeFile(t, baseline, tt.baseline)

			run := h.newRun(t, config.RunInput{NoBuild: true, Coverage: true, Baseline: baseline, Policy: tt.policy})
			require.NoError(t, os.MkdirAll(run.OutputDir, 0o755))

			report, err := h.p.Execute(context.Background(), run)
			assert.Equal(t, tt.wantCode, runerrors.GetExitCode(err), "err = %v", err)
			require.NotNil(t, report.Snapshot)
			assert.Equal(t, 85.3, report.Snapshot.Lines)
			require.NotNil(t, report.Comparison)

			data, err := os.ReadFile(filepath.Join(run.OutputDir, coverage.ComparisonFileName))
			require.NoError(t, err)
			assert.Contains(t, string(data), tt.wantLine)
		})
	}
}

func TestExecute_CoverageFailureIsFatal(t *testing.T) {
	m := mocks.NewRunner().OnContains("--add-tracefile", 1, "")
	h := newHarness(t, m)
	run := h.newRun(t, config.RunInput{NoBuild: true, Coverage: true})
	require.NoError(t, os.MkdirAll(run.OutputDir, 0o755))

	report, err := h.p.Execute(context.Background(), run)
	assert.Equal(t, runerrors.ExitSubprocessError, runerrors.GetExitCode(err))
	assert.Nil(t, report.Snapshot)
}

func TestExecute_LogSinkAndClean(t *testing.T) {
	m := mocks.NewRunner().OnContains("ATests", 0, "\x1b[0;32m[  PASSED  ] 4 tests.\x1b[m\n")
	h := newHarness(t, m)
	logFile := filepath.Join(h.dir, config.DefaultLogFile)
	run := h.newRun(t, config.RunInput{Suites: []string{"a"}, NoBuild: true, Clean: true, LogFile: logFile})

	stale := filepath.Join(run.OutputDir, "stale.txt")
	writeFile(t, stale, "old")

	report, err := h.p.Execute(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Results[0].Counts.Passed)

	_, statErr := os.Stat(stale)
	assert.True(t, os.IsNotExist(statErr), "clean removes the output directory")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[  PASSED  ] 4 tests.")
	assert.NotContains(t, string(data), "\x1b[")
	assert.NotContains(t, h.out.String(), "PASSED  ] 4")
}

func TestExecute_MetricsFile(t *testing.T) {
	h := newHarness(t, mocks.NewRunner())
	metricsFile := filepath.Join(h.dir, "utrun.prom")
	run := h.newRun(t, config.RunInput{Suites: []string{"a"}, NoBuild: true, MetricsFile: metricsFile})

	report, err := h.p.Execute(context.Background(), run)
	require.NoError(t, err)

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `utrun_suite_exit_code{run_id="`+report.RunID+`",suite="a"} 0`)
}

func TestExecute_NoTest(t *testing.T) {
	h := newHarness(t, mocks.NewRunner())
	run := h.newRun(t, config.RunInput{NoTest: true})

	report, err := h.p.Execute(context.Background(), run)
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.EqualValues(t, 2, h.runner.RunCount(), "only cmake and make run")
}

func TestExecute_LogSinkReceivesDiagnostics(t *testing.T) {
	h := newHarness(t, mocks.NewRunner())
	logFile := filepath.Join(h.dir, "run.log")
	run := h.newRun(t, config.RunInput{Suites: []string{"a", "z"}, NoBuild: true, LogFile: logFile})

	_, err := h.p.Execute(context.Background(), run)
	require.NoError(t, err)

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	log := string(data)
	assert.Contains(t, log, "warning: could not find suite: z")
	assert.Contains(t, log, "─── [a] ATests ───")
	assert.Contains(t, log, "[a] passed")
	assert.Contains(t, h.errOut.String(), "could not find suite: z", "the terminal keeps its copy")
}

func TestExecute_MemcheckSummaryAfterFailure(t *testing.T) {
	m := mocks.NewRunner().
		OnContains("--version", 0, "valgrind-3.20.0\n").
		OnContains("BTests", 101, "").
		OnContains("CTests", 1, "")
	m.RunFunc = func(cmd process.Command) {
		for _, arg := range cmd.Args {
			if name, ok := strings.CutPrefix(arg, "--xml-file="); ok && strings.HasPrefix(name, "b_") {
				writeFile(t, filepath.Join(cmd.Dir, name), "<valgrindoutput><error><kind>Leak_DefinitelyLost</kind></error></valgrindoutput>")
			}
		}
	}
	h := newHarness(t, m)
	run := h.newRun(t, config.RunInput{NoBuild: true, Valgrind: true, XMLFile: config.DefaultXMLFile})
	require.NoError(t, os.MkdirAll(run.OutputDir, 0o755))

	report, err := h.p.Execute(context.Background(), run)
	assert.Equal(t, runerrors.ExitTestFailure, runerrors.GetExitCode(err))

	require.Len(t, report.Tallies, 1)
	assert.Equal(t, "b", report.Tallies[0].SuiteID)
	csv, err := os.ReadFile(filepath.Join(run.OutputDir, memcheck.SummaryFileName))
	require.NoError(t, err)
	assert.Contains(t, string(csv), "\nb,")
}

func TestExecute_CleanRemovesDefaultLog(t *testing.T) {
	h := newHarness(t, mocks.NewRunner())
	t.Chdir(h.dir)
	writeFile(t, config.DefaultLogFile, "stale results")
	run := h.newRun(t, config.RunInput{Suites: []string{"a"}, NoBuild: true, Clean: true})

	_, err := h.p.Execute(context.Background(), run)
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(h.dir, config.DefaultLogFile))
	assert.True(t, os.IsNotExist(statErr), "clean removes %s even without --file", config.DefaultLogFile)
}

func TestExecute_MissingSuppressionsDropped(t *testing.T) {
	m := mocks.NewRunner().OnContains("--version", 0, "valgrind-3.20.0\n")
	h := newHarness(t, m)
	run := h.newRun(t, config.RunInput{Suites: []string{"a"}, NoBuild: true, Valgrind: true})
	run.Suppressions = filepath.Join(h.dir, "missing.supp")

	_, err := h.p.Execute(context.Background(), run)
	require.NoError(t, err)
	assert.Contains(t, h.errOut.String(), "suppressions file "+run.Suppressions+" not found")
	for _, line := range m.CommandLines() {
		assert.NotContains(t, line, "--suppressions")
	}
}

func TestExecute_ExistingSuppressionsPassed(t *testing.T) {
	m := mocks.NewRunner().OnContains("--version", 0, "valgrind-3.20.0\n")
	h := newHarness(t, m)
	run := h.newRun(t, config.RunInput{Suites: []string{"a"}, NoBuild: true, Valgrind: true})
	run.Suppressions = filepath.Join(h.dir, "rialto.supp")
	writeFile(t, run.Suppressions, "{\n}\n")

	_, err := h.p.Execute(context.Background(), run)
	require.NoError(t, err)
	assert.Contains(t, m.CommandLines()[1], "--suppressions="+run.Suppressions)
}
