package coverage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ComparisonFileName is the report written by WriteComparison.
const ComparisonFileName = "comparison_output.txt"

// Classification is the outcome of comparing one metric.
type Classification int

const (
	Unchanged Classification = iota
	Improved
	Regressed
)

func (c Classification) String() string {
	switch c {
	case Improved:
		return "improved"
	case Regressed:
		return "regressed"
	default:
		return "unchanged"
	}
}

// Classify compares one metric.
func Classify(previous, current float64) Classification {
	switch {
	case current < previous:
		return Regressed
	case current > previous:
		return Improved
	default:
		return Unchanged
	}
}

// Comparison is the per-metric classification of two snapshots.
type Comparison struct {
	Previous  Snapshot
	Current   Snapshot
	Lines     Classification
	Functions Classification
}

// Compare classifies both metrics of current against previous.
func Compare(previous, current Snapshot) Comparison {
	return Comparison{
		Previous:  previous,
		Current:   current,
		Lines:     Classify(previous.Lines, current.Lines),
		Functions: Classify(previous.Functions, current.Functions),
	}
}

// Regressed reports whether any metric decreased.
func (c Comparison) Regressed() bool {
	return c.Lines == Regressed || c.Functions == Regressed
}

// AnyUnchanged reports whether at least one metric stayed the same.
func (c Comparison) AnyUnchanged() bool {
	return c.Lines == Unchanged || c.Functions == Unchanged
}

// Stagnated reports whether both metrics stayed the same.
func (c Comparison) Stagnated() bool {
	return c.Lines == Unchanged && c.Functions == Unchanged
}

func metricLine(metric string, class Classification, previous, current float64) string {
	title := cases.Title(language.English).String(metric)
	prev, cur := formatPercent(previous), formatPercent(current)
	switch class {
	case Regressed:
		return fmt.Sprintf("WARNING: %s coverage decreased from: %s%% to %s%%\n", title, prev, cur)
	case Improved:
		return fmt.Sprintf("Congratulations, your commit improved %s coverage from: %s%% to %s%%\n", metric, prev, cur)
	default:
		return fmt.Sprintf("%s coverage stays unchanged and is: %s%%\n", title, cur)
	}
}

// Report renders the comparison, one line per metric. The output depends
// only on the comparison.
func (c Comparison) Report() string {
	var b strings.Builder
	b.WriteString("Coverage statistics of your commit:\n")
	b.WriteString(metricLine("lines", c.Lines, c.Previous.Lines, c.Current.Lines))
	b.WriteString(metricLine("functions", c.Functions, c.Previous.Functions, c.Current.Functions))
	return b.String()
}

// CompareFiles reads two summary files and compares them. Unreadable
// files compare as the zero snapshot; each one adds a diagnostic.
func CompareFiles(previousPath, currentPath string) (Comparison, []error) {
	var diags []error
	previous, err := ReadSnapshot(previousPath)
	if err != nil {
		diags = append(diags, err)
	}
	current, err := ReadSnapshot(currentPath)
	if err != nil {
		diags = append(diags, err)
	}
	return Compare(previous, current), diags
}

// ComparisonText is the content of the comparison file: one error line
// per unreadable summary followed by the report.
func ComparisonText(c Comparison, diags []error) string {
	var b strings.Builder
	for range diags {
		b.WriteString(StatisticsErrorMessage + "\n")
	}
	b.WriteString(c.Report())
	return b.String()
}

// WriteComparison writes text to comparison_output.txt in dir.
func WriteComparison(dir, text string) (string, error) {
	path := filepath.Join(dir, ComparisonFileName)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write comparison output: %w", err)
	}
	return path, nil
}
