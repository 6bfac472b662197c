// Package testparser extracts result counts from GoogleTest console output.
package testparser

import "fmt"

// FailedTest is one failing gtest case.
type FailedTest struct {
	Suite  string // utrun suite id, set by Merge
	Name   string // "Fixture.Test" or "Prefix/Fixture.Test/N"
	Reason string // first failure location, or why no result line was printed
}

// TestCounts is what one suite binary reported, or the merge of several
// suites into a run total.
type TestCounts struct {
	Passed  int
	Failed  int
	Skipped int
	Total   int
	Parsed  bool // a gtest summary or per-test result line was found

	// Set on run totals only.
	Suites int      // suites merged in
	Silent []string // merged suite ids whose output held no gtest results

	FailedTests []FailedTest
}

// Merge folds the counts of suite suiteID into a run total. Failed tests
// are tagged with the suite id. A suite without parsable output adds no
// counts and is listed in Silent, since a crashed binary must not read as
// zero tests run.
func (tc *TestCounts) Merge(suiteID string, suite *TestCounts) {
	if suite == nil {
		return
	}
	tc.Suites++
	if !suite.Parsed {
		tc.Silent = append(tc.Silent, suiteID)
		return
	}
	tc.Parsed = true
	tc.Passed += suite.Passed
	tc.Failed += suite.Failed
	tc.Skipped += suite.Skipped
	tc.Total += suite.Total
	for _, ft := range suite.FailedTests {
		if ft.Suite == "" {
			ft.Suite = suiteID
		}
		tc.FailedTests = append(tc.FailedTests, ft)
	}
}

// String renders the counts for a summary table cell,
// e.g. "12 passed, 1 failed" or "-" when nothing was parsed.
func (tc TestCounts) String() string {
	if !tc.Parsed {
		return "-"
	}
	s := fmt.Sprintf("%d passed", tc.Passed)
	if tc.Failed > 0 {
		s += fmt.Sprintf(", %d failed", tc.Failed)
	}
	if tc.Skipped > 0 {
		s += fmt.Sprintf(", %d skipped", tc.Skipped)
	}
	if n := len(tc.Silent); n > 0 {
		s += fmt.Sprintf(", %d unparsed", n)
	}
	return s
}

// Parser turns captured suite output into counts.
type Parser interface {
	Parse(output string) TestCounts
	Name() string
}
