package memcheck

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
)

// SummaryFileName is the CSV written next to the reports.
const SummaryFileName = "valgrind_summary.csv"

func newTable(tallies []Tally) table.Writer {
	tw := table.NewWriter()

	header := table.Row{"Suite"}
	for _, c := range Categories {
		header = append(header, c)
	}
	header = append(header, Unknown)
	tw.AppendHeader(header)

	for _, t := range tallies {
		row := table.Row{t.SuiteID}
		for _, c := range Categories {
			row = append(row, t.Count(c))
		}
		row = append(row, t.Count(Unknown))
		tw.AppendRow(row)
	}
	return tw
}

// RenderCSV returns the summary as CSV, header row first.
func RenderCSV(tallies []Tally) string {
	return newTable(tallies).RenderCSV()
}

// Render returns the summary as a terminal table.
func Render(tallies []Tally) string {
	tw := newTable(tallies)
	tw.SetStyle(table.StyleLight)
	tw.SetTitle("Memcheck errors")
	return tw.Render()
}

// WriteCSV writes the summary CSV to path.
func WriteCSV(path string, tallies []Tally) error {
	if err := os.WriteFile(path, []byte(RenderCSV(tallies)+"\n"), 0o644); err != nil {
		return fmt.Errorf("write memcheck summary: %w", err)
	}
	return nil
}
