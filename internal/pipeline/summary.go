package pipeline

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/AndreyAkinshin/utrun/internal/process"
	"github.com/AndreyAkinshin/utrun/internal/testparser"
)

// printSummary prints the per-suite result table and failed test details.
func (e *execution) printSummary(passed bool) {
	results := e.report.Results
	if len(results) == 0 {
		return
	}

	e.out.SummaryHeader("Run Summary")

	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Suite", "Outcome", "Exit code", "Tests", "Duration"})
	var total testparser.TestCounts
	for _, res := range results {
		tw.AppendRow(table.Row{res.SuiteID, res.Outcome, res.ExitCode, res.Counts, elapsed(res.Duration)})
		total.Merge(res.SuiteID, &res.Counts)
	}
	if len(results) > 1 {
		tw.AppendFooter(table.Row{"Total", "", "", total, ""})
	}
	e.out.Println("%s", tw.Render())

	var failed, flagged int
	for _, res := range results {
		switch res.Outcome {
		case process.Failure:
			failed++
		case process.ToolWarning:
			flagged++
		}
	}
	for _, ft := range total.FailedTests {
		e.out.SummaryFailed(fmt.Sprintf("  [%s] %s", ft.Suite, ft.Name), ft.Reason)
	}

	switch {
	case !passed:
		e.out.FinalFailure("%d of %d suites failed.", failed, len(results))
	case flagged > 0:
		e.out.FinalFailure("All %d suites passed; the memory checker flagged %d.", len(results), flagged)
	default:
		e.out.FinalSuccess("All %d suites passed.", len(results))
	}
}
