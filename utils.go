package checkrun

import (
	"fmt"
	"strings"
	"time"

	"github.com/typeforge/checkrun/types"
)

// Helper function to convert bool to int
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// getResultString returns a symbol-prefixed string for a frame conclusion
func getResultString(status types.Status) string {
	switch status {
	case types.StatusPass:
		return "✓ pass"
	case types.StatusSkip:
		return "- skip"
	case types.StatusWarn:
		return "! warn"
	default:
		return "✗ fail"
	}
}

// Helper function to format duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// extractKeyErrorMessage limits an error to its first line, truncated for
// table display
func extractKeyErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	errStr := err.Error()
	if idx := strings.Index(errStr, "\n"); idx != -1 {
		errStr = errStr[:idx]
	}
	if len(errStr) > 80 {
		return errStr[:70] + "..."
	}
	return errStr
}
