package metrics

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/typeforge/checkrun/types"
)

const (
	MetricsNamespace = "checkrun"
)

var (
	Debug                bool = true
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	checkResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "check_results_total",
		Help:      "Count of reported check results",
	}, []string{
		"run_id",
		"check",
		"status",
	})

	protocolViolationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "protocol_violations_total",
		Help:      "Count of results rewritten because a check misused the reporting API",
	}, []string{
		"check",
	})

	conditionCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "condition_cache_hits_total",
		Help:      "Count of condition evaluations served from the cache",
	})

	conditionCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "condition_cache_misses_total",
		Help:      "Count of condition evaluations computed fresh",
	})

	runResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_results",
		Help:      "Result of check runs",
	}, []string{
		"run_id",
		"result",
	})

	runChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_checks_total",
		Help:      "Total number of scheduled check executions per run",
	}, []string{
		"run_id",
	})

	runChecksPassed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_checks_passed",
		Help:      "Number of passed check executions per run",
	}, []string{
		"run_id",
	})

	runChecksFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_checks_failed",
		Help:      "Number of failed check executions per run",
	}, []string{
		"run_id",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration",
		Help:      "Duration of check runs",
	}, []string{
		"run_id",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordCheckResult counts one reported result line. Caller-defined
// statuses are recorded as-is under their string form.
func RecordCheckResult(runID string, check string, status types.Status) {
	if status == "" {
		log.Error("RecordCheckResult - empty status", "check", check)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "check_results_total",
			"run_id", runID,
			"check", check,
			"status", status)
	}
	checkResultsTotal.WithLabelValues(runID, check, string(status)).Inc()
}

func RecordProtocolViolation(check string) {
	if Debug {
		log.Debug("metric inc",
			"m", "protocol_violations_total",
			"check", check)
	}
	protocolViolationsTotal.WithLabelValues(check).Inc()
}

func RecordConditionCacheHit() {
	conditionCacheHitsTotal.Inc()
}

func RecordConditionCacheMiss() {
	conditionCacheMissesTotal.Inc()
}

func RecordRun(
	runID string,
	result string,
	total int,
	passed int,
	failed int,
	duration time.Duration,
) {
	runResults.WithLabelValues(runID, result).Set(1)
	runChecksTotal.WithLabelValues(runID).Add(float64(total))
	runChecksPassed.WithLabelValues(runID).Add(float64(passed))
	runChecksFailed.WithLabelValues(runID).Add(float64(failed))
	runDuration.WithLabelValues(runID).Set(duration.Seconds())
}
