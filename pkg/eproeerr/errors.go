// Package eproeerr provides the structured error type that policy
// compilation (pkg/policy) returns.
package eproeerr

import "fmt"

// Code identifies a class of failure, per spec.md §7's error taxonomy.
type Code string

const (
	// CodePolicyMalformed covers JSON parse failure, unknown tokens,
	// misplaced -1, bad ranges, and wrong optional fields. The only code
	// this module actually constructs: every other code names a defensive
	// or serialization behavior that the rest of the taxonomy handles
	// without raising an *Error (the implicit Fallback for
	// PolicyNotMatched, the StaleQuery sentinel returns in pkg/eproe, and
	// no error at all for ConcurrentReload).
	CodePolicyMalformed Code = "POLICY_MALFORMED"

	// CodePolicyNotMatched is defensive-only: construction guarantees an
	// implicit Fallback always matches, so this should never surface.
	CodePolicyNotMatched Code = "POLICY_NOT_MATCHED"

	// CodeStaleQuery marks a query against an APN with no stored retry
	// action. Not itself a failure; present so callers can classify it.
	CodeStaleQuery Code = "STALE_QUERY"

	// CodeConcurrentReload names a reload arriving while another is in
	// progress. Carrier reloads (eproe.Slot.ReloadCarrierPolicies) run on
	// the caller's goroutine, not on the executor: the resolver swap and the
	// event resync each take their own mutex, and two concurrent reloads are
	// not serialized as a whole.
	CodeConcurrentReload Code = "CONCURRENT_RELOAD"
)

// Error is a structured error carrying a code, a message, and an optional
// wrapped cause. Unlike a multi-domain error system, EPROE has exactly one
// place that raises these — policy compilation — so there is no separate
// "domain" field to route by; PolicyError (policy_error.go) carries the
// compilation-specific context instead.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// New creates an Error with the given code, message, and cause.
func New(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}
