package checkrun

import (
	"errors"
	"fmt"
)

// RuntimeError represents an operational error that should lead to exit code 2
// Examples include configuration errors, file not found, etc.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewRuntimeError creates a new RuntimeError
func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError checks if the error is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// CheckFailureError represents a run that concluded with failing checks (exit code 1)
type CheckFailureError struct {
	Message string
}

func (e *CheckFailureError) Error() string {
	return fmt.Sprintf("check failure: %s", e.Message)
}

// NewCheckFailureError creates a new CheckFailureError
func NewCheckFailureError(message string) *CheckFailureError {
	return &CheckFailureError{Message: message}
}

// IsCheckFailureError checks if the error is or wraps a CheckFailureError
func IsCheckFailureError(err error) bool {
	var checkErr *CheckFailureError
	return err != nil && errors.As(err, &checkErr)
}
