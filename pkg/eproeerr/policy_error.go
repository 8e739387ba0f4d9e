package eproeerr

import "fmt"

// PolicyError decorates an *Error with the policy-compilation context in
// which it was raised: the APN the offending clause belongs to, the index
// of the error-type clause within that APN's clause list, and the JSON
// field that failed validation.
type PolicyError struct {
	Err            *Error
	APN            string
	ErrorTypeIndex int
	Field          string
}

// WithContext wraps err with policy compilation context. err is typically
// an *Error built with New(CodePolicyMalformed, ...).
func WithContext(err *Error, apn string, errorTypeIndex int, field string) *PolicyError {
	return &PolicyError{Err: err, APN: apn, ErrorTypeIndex: errorTypeIndex, Field: field}
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("apn=%q errorType[%d] field=%q: %s", e.APN, e.ErrorTypeIndex, e.Field, e.Err.Error())
}

func (e *PolicyError) Unwrap() error {
	return e.Err
}
