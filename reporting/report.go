// Package reporting folds the framed event stream into per-run
// aggregates. The event stream stays the engine's sole output; this
// package is a consumer like any other and tolerates caller-defined
// statuses it has never seen.
package reporting

import (
	"fmt"
	"time"

	"github.com/typeforge/checkrun/runner"
	"github.com/typeforge/checkrun/types"
	"github.com/typeforge/checkrun/world"
)

// CheckRecord is one completed check frame: everything reported between
// a STARTCHECK and its matching ENDCHECK.
type CheckRecord struct {
	Check    string
	Binding  world.Binding
	Results  []runner.Event
	Status   types.Status
	Duration time.Duration
}

// Stats contains aggregated statistics for a run.
type Stats struct {
	Total    int
	Passed   int
	Failed   int
	Skipped  int
	Warned   int
	PassRate float64
}

// RunResult is the aggregate of one complete run.
type RunResult struct {
	RunID    string
	Records  []CheckRecord
	Stats    Stats
	Duration time.Duration
}

// Passed reports whether no check frame concluded FAIL.
func (r *RunResult) Passed() bool {
	return r.Stats.Failed == 0
}

// String returns a one-line summary of the run.
func (r *RunResult) String() string {
	return fmt.Sprintf("run %s: %d checks, %d passed, %d failed, %d skipped, %d warned (%.1f%%) in %s",
		r.RunID, r.Stats.Total, r.Stats.Passed, r.Stats.Failed, r.Stats.Skipped, r.Stats.Warned,
		r.Stats.PassRate*100, r.Duration.Round(time.Millisecond))
}

// severity orders statuses for frame aggregation; higher wins. Statuses
// outside the well-known set aggregate like INFO: they never flip a
// frame's conclusion.
func severity(s types.Status) int {
	switch s {
	case types.StatusFail:
		return 4
	case types.StatusSkip:
		return 3
	case types.StatusWarn:
		return 2
	case types.StatusPass:
		return 1
	default:
		return 0
	}
}

// Collect drains the event stream into a RunResult. It returns when the
// stream closes, so cancelation is the producer's concern. Frames are
// concluded by their worst result; a frame with no results at all
// aggregates as PASS, matching a body that had nothing to say.
func Collect(runID string, events <-chan runner.Event) *RunResult {
	result := &RunResult{RunID: runID}

	var open *CheckRecord
	var openedAt time.Time
	var first, last time.Time

	for ev := range events {
		if first.IsZero() {
			first = ev.Time
		}
		last = ev.Time

		switch ev.Status {
		case types.StatusStartCheck:
			open = &CheckRecord{Check: ev.Check, Binding: ev.Binding, Status: types.StatusPass}
			openedAt = ev.Time
		case types.StatusEndCheck:
			if open == nil {
				continue
			}
			open.Duration = ev.Time.Sub(openedAt)
			result.Records = append(result.Records, *open)
			open = nil
		default:
			if open == nil {
				continue
			}
			open.Results = append(open.Results, ev)
			if severity(ev.Status) > severity(open.Status) {
				open.Status = ev.Status
			}
		}
	}

	result.Duration = last.Sub(first)
	result.Stats = tally(result.Records)
	return result
}

func tally(records []CheckRecord) Stats {
	stats := Stats{Total: len(records)}
	for _, rec := range records {
		switch rec.Status {
		case types.StatusFail:
			stats.Failed++
		case types.StatusSkip:
			stats.Skipped++
		case types.StatusWarn:
			stats.Warned++
		default:
			stats.Passed++
		}
	}
	if stats.Total > 0 {
		stats.PassRate = float64(stats.Passed) / float64(stats.Total)
	}
	return stats
}
