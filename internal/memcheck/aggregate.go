package memcheck

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Benign is the leak kind reported for static and global objects still
// referenced at exit. It is never counted.
const Benign = "Leak_StillReachable"

// Unknown collects kinds outside Categories.
const Unknown = "Unknown"

// Categories is the closed set of counted memcheck error kinds, in column order.
var Categories = []string{
	"InvalidFree",
	"MismatchedFree",
	"InvalidRead",
	"InvalidWrite",
	"InvalidJump",
	"Overlap",
	"InvalidMemPool",
	"UninitCondition",
	"UninitValue",
	"SyscallParam",
	"ClientCheck",
	"Leak_DefinitelyLost",
	"Leak_IndirectlyLost",
	"Leak_PossiblyLost",
}

var knownCategory = func() map[string]bool {
	m := make(map[string]bool, len(Categories))
	for _, c := range Categories {
		m[c] = true
	}
	return m
}()

// Tally is the per-suite error count of one report.
type Tally struct {
	SuiteID string
	Counts  map[string]int // Keyed by category name or Unknown
}

// Total returns the number of counted errors.
func (t Tally) Total() int {
	n := 0
	for _, c := range t.Counts {
		n += c
	}
	return n
}

// Count returns the count of one category.
func (t Tally) Count(category string) int {
	return t.Counts[category]
}

// reportError is the subset of a valgrind <error> element we read.
type reportError struct {
	Kind string `xml:"kind"`
}

// ReportSuffix returns the file name suffix of per-suite XML reports.
func ReportSuffix(reportName string) string {
	return "_" + reportName + ".xml"
}

// Aggregate scans dir for per-suite XML reports and tallies their errors.
// Only suites with at least one counted error produce a row; rows are
// sorted by suite id. Warnings name unrecognized kinds and unreadable
// reports; neither stops the scan.
func Aggregate(dir, reportName string) ([]Tally, []string, error) {
	suffix := ReportSuffix(reportName)
	paths, err := filepath.Glob(filepath.Join(dir, "*"+suffix))
	if err != nil {
		return nil, nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	sort.Strings(paths)

	var tallies []Tally
	var warnings []string
	for _, path := range paths {
		id := strings.TrimSuffix(filepath.Base(path), suffix)
		tally, warns, err := readReport(path, id)
		warnings = append(warnings, warns...)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("[%s] skipped report %s: %v", id, filepath.Base(path), err))
			continue
		}
		if tally.Total() > 0 {
			tallies = append(tallies, tally)
		}
	}
	return tallies, warnings, nil
}

func readReport(path, suiteID string) (Tally, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return Tally{}, nil, err
	}
	defer f.Close()
	return ParseReport(f, suiteID)
}

// ParseReport tallies the <error> entries of one valgrind XML report.
func ParseReport(r io.Reader, suiteID string) (Tally, []string, error) {
	tally := Tally{SuiteID: suiteID, Counts: make(map[string]int)}
	var warnings []string

	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return tally, warnings, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "error" {
			continue
		}

		var e reportError
		if err := dec.DecodeElement(&e, &start); err != nil {
			return tally, warnings, err
		}
		kind := strings.TrimSpace(e.Kind)
		switch {
		case kind == Benign:
			continue
		case knownCategory[kind]:
			tally.Counts[kind]++
		default:
			tally.Counts[Unknown]++
			warnings = append(warnings, fmt.Sprintf("[%s] unrecognized error kind %q counted as %s", suiteID, kind, Unknown))
		}
	}
	return tally, warnings, nil
}
