package services

import (
	"fmt"
	"strings"
)

// UpstreamError describes a failed catalog call.
//
// Kind is one of the upstream sentinels in shared ([shared.ErrUpstreamUnavailable],
// [shared.ErrUpstreamRejected], [shared.ErrStreamUnavailable], [shared.ErrSignatureRejected]),
// so callers match with errors.Is on the kind as well as on the cause.
type UpstreamError struct {
	Kind      error
	Operation string
	Status    int    // HTTP status, 0 when no response was received
	Code      int    // upstream error code from the body, when present
	Message   string // upstream error message from the body, when present
	Cause     error
}

func (e *UpstreamError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %v", e.Operation, e.Kind)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *UpstreamError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}
