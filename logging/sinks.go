package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/typeforge/checkrun/reporting"
)

const (
	summaryFilename = "summary.log"
	resultsFilename = "results.json"
)

// TextSummarySink writes a human-readable summary.log for a run.
type TextSummarySink struct{}

func (s *TextSummarySink) Complete(runDir string, result *reporting.RunResult) error {
	var b strings.Builder
	b.WriteString(result.String())
	b.WriteString("\n\n")
	for _, rec := range result.Records {
		fmt.Fprintf(&b, "%-4s %s%s (%s)\n", rec.Status, rec.Check, rec.Binding, rec.Duration.Round(time.Millisecond))
		for _, ev := range rec.Results {
			fmt.Fprintf(&b, "     %s: %v\n", ev.Status, ev.Message)
		}
	}

	summaryFile := filepath.Join(runDir, summaryFilename)
	if err := os.WriteFile(summaryFile, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write summary file: %w", err)
	}
	return nil
}

// JSONResultSink writes a machine-readable results.json for a run.
type JSONResultSink struct{}

// jsonRecord is the serializable view of a check frame. Messages are
// rendered to strings because result messages may be arbitrary values
// including errors.
type jsonRecord struct {
	Check    string       `json:"check"`
	Binding  string       `json:"binding,omitempty"`
	Status   string       `json:"status"`
	Duration string       `json:"duration"`
	Results  []jsonResult `json:"results,omitempty"`
}

type jsonResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type jsonRun struct {
	RunID    string          `json:"run_id"`
	Duration string          `json:"duration"`
	Stats    reporting.Stats `json:"stats"`
	Records  []jsonRecord    `json:"records"`
}

func (s *JSONResultSink) Complete(runDir string, result *reporting.RunResult) error {
	run := jsonRun{
		RunID:    result.RunID,
		Duration: result.Duration.String(),
		Stats:    result.Stats,
		Records:  make([]jsonRecord, 0, len(result.Records)),
	}
	for _, rec := range result.Records {
		jr := jsonRecord{
			Check:    rec.Check,
			Status:   string(rec.Status),
			Duration: rec.Duration.String(),
		}
		if len(rec.Binding) > 0 {
			jr.Binding = rec.Binding.String()
		}
		for _, ev := range rec.Results {
			jr.Results = append(jr.Results, jsonResult{
				Status:  string(ev.Status),
				Message: fmt.Sprint(ev.Message),
			})
		}
		run.Records = append(run.Records, jr)
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run results: %w", err)
	}

	resultsFile := filepath.Join(runDir, resultsFilename)
	if err := os.WriteFile(resultsFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}
	return nil
}
