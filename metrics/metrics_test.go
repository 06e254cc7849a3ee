package metrics

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/typeforge/checkrun/types"
)

func TestErrToLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{
			name: "nil error",
			err:  nil,
		},
		{
			name: "simple error",
			err:  errors.New("test error"),
		},
		{
			name: "error with special chars",
			err:  errors.New("test@error#123"),
		},
		{
			name: "error with multiple spaces",
			err:  errors.New("test   error"),
		},
		{
			name: "error with multiple underscores",
			err:  errors.New("test__error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := errToLabel(tt.err)
			validLabelRegex := regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]*`)
			if !validLabelRegex.MatchString(result) {
				t.Errorf("errLabel() = %v, is not a valid Prometheus label", result)
			}
		})
	}
}

func TestRecordError(t *testing.T) {
	// just test that it doesn't panic
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("RecordError panic'd")
		}
	}()

	RecordError("test_error")
}

func TestRecordErrorDetails(t *testing.T) {
	// Test with nil error
	RecordErrorDetails("test", nil)

	// Test with actual error
	RecordErrorDetails("test", errors.New("sample error"))
}

func TestRecordCheckResult(t *testing.T) {
	RecordCheckResult("run1", "com.example/check1", types.StatusPass)
	RecordCheckResult("run1", "com.example/check1", types.StatusFail)
	RecordCheckResult("run1", "com.example/check2", types.StatusSkip)

	// Caller-defined statuses are recorded under their own label.
	RecordCheckResult("run1", "com.example/check3", types.Status("REVIEW"))

	// Empty statuses are dropped, not recorded.
	RecordCheckResult("run1", "com.example/check4", "")
}

func TestRecordProtocolViolation(t *testing.T) {
	RecordProtocolViolation("com.example/check1")
}

func TestRecordConditionCacheCounters(t *testing.T) {
	RecordConditionCacheHit()
	RecordConditionCacheMiss()
}

func TestRecordRun(t *testing.T) {
	RecordRun("run1", "pass", 4, 4, 0, time.Second)
	RecordRun("run2", "fail", 4, 3, 1, 500*time.Millisecond)
}
