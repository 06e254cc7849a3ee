package types

// Raw is a result exactly as produced by a check body, before validation.
// Status may be a Status value or a bool (true is normalized to PASS,
// false to FAIL). Message is either a human-readable description or an
// error value; an error message is only valid on non-PASS statuses.
type Raw struct {
	Status  any
	Message any
}

// Result is a validated (status, message) pair.
type Result struct {
	Status  Status
	Message any
}

// Err returns the message as an error if it is one, nil otherwise.
func (r Result) Err() error {
	if err, ok := r.Message.(error); ok {
		return err
	}
	return nil
}

// Validate checks that a raw producer result uses the protocol correctly
// and returns the validated result:
//
//   - a bool status is normalized (true -> PASS, false -> FAIL)
//   - the status must be a Status or a bool, nothing else
//   - PASS must never carry an error message
//
// Check bodies are implemented by other parties. Rather than propagating
// their protocol misuse, every violation is replaced with a
// (FAIL, *APIViolationError) result. Validate never panics.
func Validate(raw Raw) Result {
	var status Status
	switch s := raw.Status.(type) {
	case bool:
		// Booleans are allowed, but offer no way to issue a WARN.
		status = StatusFail
		if s {
			status = StatusPass
		}
	case Status:
		if s == "" {
			return violation("result status must not be empty", raw)
		}
		status = s
	default:
		return violation("result status must be a Status or a bool", raw)
	}

	if status == StatusPass {
		if _, isErr := raw.Message.(error); isErr {
			return violation("result status cannot be PASS when the message is an error", raw)
		}
	}

	return Result{Status: status, Message: raw.Message}
}

func violation(reason string, raw Raw) Result {
	return Result{
		Status:  StatusFail,
		Message: &APIViolationError{Reason: reason, Raw: raw},
	}
}
