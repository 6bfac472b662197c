package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndreyAkinshin/utrun/internal/coverage"
	"github.com/AndreyAkinshin/utrun/internal/memcheck"
	"github.com/AndreyAkinshin/utrun/internal/process"
	"github.com/AndreyAkinshin/utrun/internal/testparser"
	"github.com/AndreyAkinshin/utrun/internal/testrun"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder("run-1")
	r.RecordResults([]testrun.Result{
		{SuiteID: "ipc", ExitCode: 0, Outcome: process.Success, Duration: 2 * time.Second,
			Counts: testparser.TestCounts{Passed: 5, Parsed: true}},
		{SuiteID: "client", ExitCode: 101, Outcome: process.ToolWarning},
		{SuiteID: "common", ExitCode: 1, Outcome: process.Failure},
	})
	r.RecordCoverage(coverage.Snapshot{Lines: 85.3, Functions: 70})
	r.RecordMemcheck([]memcheck.Tally{{SuiteID: "client", Counts: map[string]int{"InvalidRead": 2}}})

	assert.Equal(t, float64(101), testutil.ToFloat64(r.suiteExitCode.WithLabelValues("client")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.outcomes.WithLabelValues("tool-error")))
	assert.Equal(t, float64(5), testutil.ToFloat64(r.suiteTests.WithLabelValues("ipc", "passed")))
	assert.Equal(t, 85.3, testutil.ToFloat64(r.coverage.WithLabelValues("lines")))
	assert.Equal(t, float64(2), testutil.ToFloat64(r.memcheck.WithLabelValues("client", "InvalidRead")))
}

func TestRecorder_WriteFile(t *testing.T) {
	r := NewRecorder("abc")
	r.RecordCoverage(coverage.Snapshot{Lines: 50, Functions: 40})

	path := filepath.Join(t.TempDir(), "utrun.prom")
	require.NoError(t, r.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "# TYPE utrun_coverage_percent gauge")
	assert.True(t, strings.Contains(text, `utrun_coverage_percent{metric="lines",run_id="abc"} 50`), text)
}
