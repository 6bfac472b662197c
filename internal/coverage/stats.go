package coverage

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Summary labels and the column where the percentage starts, as printed
// by `lcov --summary`:
//
//	  lines......: 85.3% (1234 of 1447 lines)
//	  functions..: 70.0% (210 of 300 functions)
const (
	linesLabel     = "lines......"
	functionsLabel = "functions.."
	valueOffset    = 15
)

// ErrNoStatistics is wrapped by every ReadSnapshot failure.
var ErrNoStatistics = errors.New("could not open statistics file")

// StatisticsErrorMessage is the line written to the comparison output when
// a summary cannot be read.
const StatisticsErrorMessage = "Can't compare coverage stats - Could not open statistics file"

// Snapshot holds the two coverage percentages of one summary.
type Snapshot struct {
	Lines     float64
	Functions float64
}

// Parse extracts a snapshot from lcov summary text. The first line
// containing each label is used; its value sits between column 15 and the
// first '%'. On failure the zero snapshot is returned together with the
// reason.
func Parse(text string) (Snapshot, error) {
	lines, err := parseMetric(text, linesLabel)
	if err != nil {
		return Snapshot{}, err
	}
	functions, err := parseMetric(text, functionsLabel)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Lines: lines, Functions: functions}, nil
}

func parseMetric(text, label string) (float64, error) {
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, label) {
			continue
		}
		end := strings.IndexByte(line, '%')
		if end < valueOffset {
			return 0, fmt.Errorf("%q line has no percentage at column %d", label, valueOffset)
		}
		raw := strings.TrimSpace(line[valueOffset:end])
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("%q value %q: %w", label, raw, err)
		}
		if v < 0 || v > 100 {
			return 0, fmt.Errorf("%q value %v out of range", label, v)
		}
		return v, nil
	}
	return 0, fmt.Errorf("no %q line in summary", label)
}

// ReadSnapshot parses a summary file. Any failure yields the zero
// snapshot and an error wrapping ErrNoStatistics.
func ReadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrNoStatistics, err)
	}
	s, err := Parse(string(data))
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %s: %v", ErrNoStatistics, path, err)
	}
	return s, nil
}

// formatPercent renders a percentage the way the comparison report has
// always shown it: shortest form, with ".0" kept for whole numbers.
func formatPercent(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
