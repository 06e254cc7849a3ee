package checkrun

import (
	"github.com/typeforge/checkrun/metrics"
	"github.com/typeforge/checkrun/reporting"
)

// MetricsReporter is responsible for reporting metrics from run results.
type MetricsReporter interface {
	ReportResults(result *reporting.RunResult)
}

// DefaultMetricsReporter implements the MetricsReporter interface.
type DefaultMetricsReporter struct{}

// NewDefaultMetricsReporter creates a new DefaultMetricsReporter.
func NewDefaultMetricsReporter() *DefaultMetricsReporter {
	return &DefaultMetricsReporter{}
}

// ReportResults reports the run results to metrics systems.
func (r *DefaultMetricsReporter) ReportResults(result *reporting.RunResult) {
	outcome := "fail"
	if result.Passed() {
		outcome = "pass"
	}
	metrics.RecordRun(
		result.RunID,
		outcome,
		result.Stats.Total,
		result.Stats.Passed,
		result.Stats.Failed,
		result.Duration,
	)
}
