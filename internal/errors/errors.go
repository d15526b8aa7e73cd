// Package errors defines the domain error type shared by the ledger, the
// transfer engine and the HTTP layer. Every error kind carries a stable code
// that callers branch on, plus a human-readable detail.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Stable error codes.
const (
	CodeVerificationRequired = "VERIFICATION_REQUIRED"
	CodeLimitExceeded        = "LIMIT_EXCEEDED"
	CodeInsufficientFunds    = "INSUFFICIENT_FUNDS"
	CodeAccountBlocked       = "ACCOUNT_BLOCKED"
	CodeInvalidDestination   = "INVALID_DESTINATION"
	CodeInvalidBeneficiary   = "INVALID_BENEFICIARY"
	CodeInvalidSchedule      = "INVALID_SCHEDULE"
	CodeInvalidState         = "INVALID_STATE"
	CodeLockTimeout          = "LOCK_TIMEOUT"
	CodeNotFound             = "NOT_FOUND"
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeInternal             = "INTERNAL"
)

// DomainError is an error with a stable code.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	return e.Message
}

// Is reports whether target is a DomainError with the same code, so that a
// sentinel matches any copy carrying extra detail.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail returns a copy of e carrying a formatted detail string.
func (e *DomainError) WithDetail(format string, args ...interface{}) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Detail:  fmt.Sprintf(format, args...),
	}
}

// New creates a DomainError.
func New(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// As extracts the DomainError from err, if any.
func As(err error) (*DomainError, bool) {
	var de *DomainError
	if stderrors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// CodeOf returns the code of err, or CodeInternal for errors that are not
// domain errors.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeInternal
}

// Internal wraps an infrastructure failure without exposing its text.
func Internal(err error) error {
	return fmt.Errorf("%w: %w", ErrInternal, err)
}
