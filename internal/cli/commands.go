package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/AndreyAkinshin/utrun/internal/config"
	"github.com/AndreyAkinshin/utrun/internal/coverage"
	runerrors "github.com/AndreyAkinshin/utrun/internal/errors"
	"github.com/AndreyAkinshin/utrun/internal/memcheck"
	"github.com/AndreyAkinshin/utrun/internal/testparser"
)

// wrongArgumentsMessage is written to the comparison file when coverage
// compare is not given exactly two summaries.
const wrongArgumentsMessage = "Can't compare coverage stats - Wrong number of script arguments"

func (a *app) newSuitesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suites",
		Short: "List the registered test suites",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			registry, err := cfg.Registry()
			if err != nil {
				return runerrors.Configf("invalid suite registry: %v", err)
			}

			tw := table.NewWriter()
			tw.SetStyle(table.StyleLight)
			tw.AppendHeader(table.Row{"ID", "Name", "Executable"})
			for _, d := range registry.All() {
				tw.AppendRow(table.Row{d.ID, d.Name, d.Executable()})
			}
			a.out.Println("%s", tw.Render())
			return nil
		},
	}
}

func (a *app) newCoverageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coverage",
		Short: "Coverage utilities",
	}

	var policyName, outputDir string
	compare := &cobra.Command{
		Use:   "compare <previous> <current>",
		Short: "Compare two lcov summary files",
		Long: `Compare the line and function coverage of two "lcov --summary" outputs.

The report is printed and written to ` + coverage.ComparisonFileName + `. The command
fails when the comparison violates the policy.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 2 {
				return nil
			}
			if _, err := coverage.WriteComparison(outputDir, wrongArgumentsMessage); err != nil {
				a.out.Warning("%v", err)
			}
			return runerrors.Configf("coverage compare takes 2 arguments, got %d", len(args))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("policy") {
				cfg, err := a.loadConfig()
				if err != nil {
					return err
				}
				policyName = cfg.Coverage.Policy
			}
			policy, err := coverage.ParsePolicy(policyName)
			if err != nil {
				return runerrors.Config(err.Error())
			}

			cmp, diags := coverage.CompareFiles(args[0], args[1])
			for _, d := range diags {
				a.out.Warning("%v", d)
			}
			text := coverage.ComparisonText(cmp, diags)
			a.out.Print("%s", text)
			if _, err := coverage.WriteComparison(outputDir, text); err != nil {
				return runerrors.Environment(err.Error())
			}

			if policy.Fails(cmp) {
				return &runerrors.RunError{
					Kind:    runerrors.KindTestFailure,
					Message: fmt.Sprintf("coverage check failed (policy %s): %s", policy, policy.Reason(cmp)),
				}
			}
			return nil
		},
	}
	compare.Flags().StringVar(&policyName, "policy", "", "comparison policy (default from "+config.FileName+")")
	compare.Flags().StringVarP(&outputDir, "output", "o", ".", "directory receiving "+coverage.ComparisonFileName)

	cmd.AddCommand(compare)
	return cmd
}

func (a *app) newMemcheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memcheck",
		Short: "Memory checker utilities",
	}

	var reportName, csvPath string
	var failOnErrors bool
	summary := &cobra.Command{
		Use:   "summary [dir]",
		Short: "Aggregate valgrind XML reports into a CSV summary",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			dir := config.DefaultOutputDir
			if len(args) == 1 {
				dir = args[0]
			}
			if reportName == "" {
				reportName = cfg.Memcheck.ReportName
			}
			if csvPath == "" {
				csvPath = filepath.Join(dir, memcheck.SummaryFileName)
			}

			tallies, warnings, err := memcheck.Aggregate(dir, reportName)
			if err != nil {
				return runerrors.Environment(err.Error())
			}
			for _, w := range warnings {
				a.out.Warning("%s", w)
			}
			if err := memcheck.WriteCSV(csvPath, tallies); err != nil {
				return runerrors.Environment(err.Error())
			}

			if len(tallies) == 0 {
				a.out.FinalSuccess("No memory errors reported.")
				return nil
			}
			a.out.Println("%s", memcheck.Render(tallies))
			if failOnErrors {
				ids := make([]string, 0, len(tallies))
				for _, t := range tallies {
					ids = append(ids, t.SuiteID)
				}
				return runerrors.ToolDetected(ids)
			}
			return nil
		},
	}
	summary.Flags().StringVar(&reportName, "report-name", "", "report file name stem (default from "+config.FileName+")")
	summary.Flags().StringVar(&csvPath, "csv", "", "summary CSV path (default: <dir>/"+memcheck.SummaryFileName+")")
	summary.Flags().BoolVar(&failOnErrors, "fail-on-errors", false, "exit with the tool-detected code when any suite has errors")

	cmd.AddCommand(summary)
	return cmd
}

func (a *app) newTestSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test-summary [file]",
		Short: "Summarize gtest console output",
		Long: `Parse gtest console output and print a summary of the results,
highlighting failed tests and where they failed.

Reads from the file, or from stdin when the file is "-" or omitted.`,
		Example: "  utrun test-summary gtest_result.log\n  ./build/tests/Foo | utrun test-summary",
		Args:    usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return runerrors.Environment(err.Error())
				}
				defer func() { _ = f.Close() }()
				input = f
			}

			data, err := io.ReadAll(input)
			if err != nil {
				return runerrors.Environment(err.Error())
			}
			counts := (&testparser.GTestParser{}).Parse(string(data))
			if !counts.Parsed {
				a.out.ErrorPrefix("no test results found in input")
				a.out.Hint("pipe the console output of a gtest binary")
				return errReported
			}

			a.printTestSummary(&counts)
			if counts.Failed > 0 {
				return errReported
			}
			return nil
		},
	}
}

func (a *app) printTestSummary(counts *testparser.TestCounts) {
	a.out.SummaryHeader("Test Summary")
	a.out.SummaryPassed("Passed", fmt.Sprintf("%d", counts.Passed))
	if counts.Failed > 0 {
		a.out.SummaryFailed("Failed", fmt.Sprintf("%d", counts.Failed))
	}
	if counts.Skipped > 0 {
		a.out.SummaryItem("Skipped", fmt.Sprintf("%d", counts.Skipped))
	}
	a.out.SummaryItem("Total", fmt.Sprintf("%d", counts.Total))

	for _, ft := range counts.FailedTests {
		a.out.SummaryFailed("  "+ft.Name, ft.Reason)
	}

	if counts.Failed == 0 {
		a.out.FinalSuccess("All %d tests passed.", counts.Total)
	} else {
		a.out.FinalFailure("%d of %d tests failed.", counts.Failed, counts.Total)
	}
}
