// Package types contains the result protocol shared across the checkrun engine.
package types

// Status identifies the kind of a protocol event or check result.
//
// The well-known statuses below are the only ones the engine itself
// produces or gives meaning to. Check bodies may report additional
// caller-defined statuses (use reverse domain name notation to avoid
// clashes, e.g. "com.example/NOTE"); consumers of the event stream must
// treat statuses they do not recognize as non-fatal and skip them,
// never as errors.
type Status string

const (
	// StatusInfo and StatusWarn are allowed anywhere in a check frame.
	StatusInfo Status = "INFO"
	StatusWarn Status = "WARN"

	// StatusStartCheck opens a check frame. Only StatusSkip, StatusPass,
	// StatusFail and informational statuses may appear between a
	// StatusStartCheck and its matching StatusEndCheck.
	StatusStartCheck Status = "STARTCHECK"
	StatusSkip       Status = "SKIP"
	StatusPass       Status = "PASS"
	StatusFail       Status = "FAIL"
	StatusEndCheck   Status = "ENDCHECK"
)

// String implements the Stringer interface for Status.
func (s Status) String() string {
	return string(s)
}

// wellKnown is the closed set of statuses the engine assigns semantics to.
var wellKnown = map[Status]struct{}{
	StatusInfo:       {},
	StatusWarn:       {},
	StatusStartCheck: {},
	StatusSkip:       {},
	StatusPass:       {},
	StatusFail:       {},
	StatusEndCheck:   {},
}

// IsWellKnown reports whether s is one of the statuses the engine itself
// interprets. Caller-defined statuses return false; they are still valid
// in results.
func IsWellKnown(s Status) bool {
	_, ok := wellKnown[s]
	return ok
}
