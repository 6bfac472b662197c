package testparser

import (
	"regexp"
	"strconv"
	"strings"
)

// Static regexes for GoogleTest output parsing.
var (
	gtestPassedSummary  = regexp.MustCompile(`(?m)^\[  PASSED  \] (\d+) tests?\.`)
	gtestFailedSummary  = regexp.MustCompile(`(?m)^\[  FAILED  \] (\d+) tests?, listed below:`)
	gtestSkippedSummary = regexp.MustCompile(`(?m)^\[  SKIPPED \] (\d+) tests?, listed below:`)

	gtestRunLine     = regexp.MustCompile(`^\[ RUN      \] (\S+)`)
	gtestOKLine      = regexp.MustCompile(`^\[       OK \] (\S+) \(\d+ ms\)`)
	gtestFailedLine  = regexp.MustCompile(`^\[  FAILED  \] ([^\s,]+)(?:, where .*)? \(\d+ ms\)`)
	gtestSkippedLine = regexp.MustCompile(`^\[  SKIPPED \] (\S+) \(\d+ ms\)`)
	gtestFailureLoc  = regexp.MustCompile(`^(\S+:\d+): Failure$`)
)

// GTestParser parses GoogleTest console output.
type GTestParser struct{}

// Name returns the parser name.
func (p *GTestParser) Name() string {
	return "gtest"
}

// Parse extracts test counts from GoogleTest output.
// The end-of-run summary is authoritative when present:
//
//	[  PASSED  ] 41 tests.
//	[  SKIPPED ] 1 test, listed below:
//	[  FAILED  ] 2 tests, listed below:
//
// Otherwise (binary crashed before the summary) counts come from the
// per-test result lines, and a test that started without a result line is
// reported as failed.
func (p *GTestParser) Parse(output string) TestCounts {
	counts := p.scanResults(output)

	passed, hasPassed := summaryCount(gtestPassedSummary, output)
	failed, hasFailed := summaryCount(gtestFailedSummary, output)
	skipped, hasSkipped := summaryCount(gtestSkippedSummary, output)
	if hasPassed || hasFailed {
		counts.Passed = passed
		counts.Failed = failed
		if hasSkipped {
			counts.Skipped = skipped
		}
		counts.Parsed = true
	}

	if counts.Parsed {
		counts.Total = counts.Passed + counts.Failed + counts.Skipped
	}
	return counts
}

func summaryCount(re *regexp.Regexp, output string) (int, bool) {
	m := re.FindStringSubmatch(output)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// scanResults walks per-test lines, tracking the running test to attach
// failure reasons.
func (p *GTestParser) scanResults(output string) TestCounts {
	var counts TestCounts
	running := ""
	reasons := make(map[string]string)

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")

		if m := gtestRunLine.FindStringSubmatch(line); m != nil {
			running = m[1]
			continue
		}
		if m := gtestOKLine.FindStringSubmatch(line); m != nil {
			counts.Passed++
			running = ""
			continue
		}
		if m := gtestSkippedLine.FindStringSubmatch(line); m != nil {
			counts.Skipped++
			running = ""
			continue
		}
		if m := gtestFailedLine.FindStringSubmatch(line); m != nil {
			counts.Failed++
			counts.FailedTests = append(counts.FailedTests, FailedTest{Name: m[1], Reason: reasons[m[1]]})
			running = ""
			continue
		}
		if m := gtestFailureLoc.FindStringSubmatch(line); m != nil && running != "" {
			if _, seen := reasons[running]; !seen {
				reasons[running] = m[1]
			}
		}
	}

	if running != "" {
		counts.Failed++
		counts.FailedTests = append(counts.FailedTests, FailedTest{Name: running, Reason: "no result (crashed or aborted)"})
	}

	counts.Parsed = counts.Passed > 0 || counts.Failed > 0 || counts.Skipped > 0
	return counts
}
