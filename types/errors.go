package types

import (
	"errors"
	"fmt"
	"strings"
)

// APIViolationError reports a check body that used the result protocol
// incorrectly. It is surfaced as the message of a FAIL result and never
// aborts the run.
type APIViolationError struct {
	Reason string
	Raw    Raw
}

func (e *APIViolationError) Error() string {
	return fmt.Sprintf("api violation: %s (got status %v, message %v)", e.Reason, e.Raw.Status, e.Raw.Message)
}

// IsAPIViolation checks if the error is or wraps an APIViolationError.
func IsAPIViolation(err error) bool {
	var v *APIViolationError
	return err != nil && errors.As(err, &v)
}

// ConditionFailure names a condition whose predicate returned an error.
type ConditionFailure struct {
	Condition string
	Err       error
}

// FailedConditionError reports conditions that errored while being
// evaluated for a scheduled check. The owning check body is never invoked
// for that binding.
type FailedConditionError struct {
	Failures []ConditionFailure
}

func (e *FailedConditionError) Error() string {
	names := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		names[i] = f.Condition
	}
	return fmt.Sprintf("some conditions had errors: %s", strings.Join(names, ", "))
}

// Unwrap returns the underlying predicate errors.
func (e *FailedConditionError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// IsFailedCondition checks if the error is or wraps a FailedConditionError.
func IsFailedCondition(err error) bool {
	var f *FailedConditionError
	return err != nil && errors.As(err, &f)
}

// MissingCollectionError reports a plural collection name that has no
// entry in the world. It indicates a configuration problem, not a check
// failure.
type MissingCollectionError struct {
	Collection string
}

func (e *MissingCollectionError) Error() string {
	return fmt.Sprintf("collection %q is not present in the world", e.Collection)
}

// MissingArgumentError reports an argument name that could not be
// resolved for a check or condition invocation.
type MissingArgumentError struct {
	Name string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("argument %q cannot be resolved", e.Name)
}
