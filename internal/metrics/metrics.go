// Package metrics records run results in Prometheus exposition format for
// the node exporter textfile collector.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AndreyAkinshin/utrun/internal/coverage"
	"github.com/AndreyAkinshin/utrun/internal/memcheck"
	"github.com/AndreyAkinshin/utrun/internal/testrun"
)

const Namespace = "utrun"

// Recorder collects the metrics of one run. Every series carries the run
// id as a constant label.
type Recorder struct {
	registry *prometheus.Registry

	suiteExitCode *prometheus.GaugeVec
	suiteDuration *prometheus.GaugeVec
	suiteTests    *prometheus.GaugeVec
	outcomes      *prometheus.CounterVec
	coverage      *prometheus.GaugeVec
	memcheck      *prometheus.GaugeVec
}

// NewRecorder creates a recorder with its own registry.
func NewRecorder(runID string) *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(prometheus.WrapRegistererWith(prometheus.Labels{"run_id": runID}, reg))

	return &Recorder{
		registry: reg,
		suiteExitCode: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "suite_exit_code",
			Help:      "Exit code of the suite process",
		}, []string{"suite"}),
		suiteDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "suite_duration_seconds",
			Help:      "Wall time of the suite process",
		}, []string{"suite"}),
		suiteTests: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "suite_tests",
			Help:      "Test cases by result, parsed from suite output",
		}, []string{"suite", "result"}),
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "suite_outcomes_total",
			Help:      "Suites by outcome",
		}, []string{"outcome"}),
		coverage: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "coverage_percent",
			Help:      "Coverage percentage from the lcov summary",
		}, []string{"metric"}),
		memcheck: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "memcheck_errors",
			Help:      "Memory checker errors by category",
		}, []string{"suite", "kind"}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordResults records suite exit codes, durations, outcomes and counts.
func (r *Recorder) RecordResults(results []testrun.Result) {
	for _, res := range results {
		r.suiteExitCode.WithLabelValues(res.SuiteID).Set(float64(res.ExitCode))
		r.suiteDuration.WithLabelValues(res.SuiteID).Set(res.Duration.Seconds())
		r.outcomes.WithLabelValues(res.Outcome.String()).Inc()
		if res.Counts.Parsed {
			r.suiteTests.WithLabelValues(res.SuiteID, "passed").Set(float64(res.Counts.Passed))
			r.suiteTests.WithLabelValues(res.SuiteID, "failed").Set(float64(res.Counts.Failed))
			r.suiteTests.WithLabelValues(res.SuiteID, "skipped").Set(float64(res.Counts.Skipped))
		}
	}
}

// RecordCoverage records a coverage snapshot.
func (r *Recorder) RecordCoverage(s coverage.Snapshot) {
	r.coverage.WithLabelValues("lines").Set(s.Lines)
	r.coverage.WithLabelValues("functions").Set(s.Functions)
}

// RecordMemcheck records per-suite memory checker tallies.
func (r *Recorder) RecordMemcheck(tallies []memcheck.Tally) {
	for _, t := range tallies {
		for kind, n := range t.Counts {
			r.memcheck.WithLabelValues(t.SuiteID, kind).Set(float64(n))
		}
	}
}

// WriteFile writes every metric to path atomically.
func (r *Recorder) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
