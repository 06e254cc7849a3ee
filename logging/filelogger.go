// Package logging persists run artifacts to disk: a human-readable
// summary and a machine-readable JSON record per run, written into a
// per-run directory.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/typeforge/checkrun/reporting"
)

// RunDirectoryPrefix is the standardized prefix for run directories.
const RunDirectoryPrefix = "checkrun-"

// ResultSink is one way of persisting a completed run.
type ResultSink interface {
	// Complete writes the artifact for a finished run into runDir.
	Complete(runDir string, result *reporting.RunResult) error
}

// FileLogger fans a completed run out to its sinks.
type FileLogger struct {
	baseDir string
	sinks   []ResultSink
}

// NewFileLogger creates a FileLogger with the default sinks.
func NewFileLogger(baseDir string) *FileLogger {
	return &FileLogger{
		baseDir: baseDir,
		sinks: []ResultSink{
			&TextSummarySink{},
			&JSONResultSink{},
		},
	}
}

// RunDir returns the artifact directory for a run.
func (l *FileLogger) RunDir(runID string) string {
	return filepath.Join(l.baseDir, RunDirectoryPrefix+runID)
}

// LogRun writes all artifacts for a completed run.
func (l *FileLogger) LogRun(result *reporting.RunResult) error {
	runDir := l.RunDir(result.RunID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("failed to create run directory %s: %w", runDir, err)
	}
	for _, sink := range l.sinks {
		if err := sink.Complete(runDir, result); err != nil {
			return err
		}
	}
	return nil
}
