/*
errors.go - Centralized error types for the settlement engine

PURPOSE:
  All error kinds in one place. Every failure surfaced by the check-in
  workflow unwraps to exactly one of the kind sentinels below, so callers
  (the HTTP layer, tests) classify with errors.Is and staff see a specific
  reason instead of a generic failure.

ERROR KINDS:
  ErrInvalidRequest    - booking id missing
  ErrNotFound          - booking absent
  ErrAlreadyDone       - already checked in (including a lost race)
  ErrInvalidState      - status not eligible for check-in
  ErrPaymentRequired   - remainder owed and no invoice path taken
  ErrConfiguration     - no billing division available
  ErrSequenceExhausted - more than 9999 invoices in one month
  ErrStorage           - any transaction/connection failure

INTERNAL:
  ErrDuplicateInvoiceNumber is raised by stores on a unique-key clash of the
  invoice number. The orchestrator retries allocation on it and never shows
  it to callers.

SEE ALSO:
  - checkin/service.go: Raises these errors
  - api/handlers.go: Maps kinds to HTTP statuses
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrNotFound          = errors.New("not found")
	ErrAlreadyDone       = errors.New("already done")
	ErrInvalidState      = errors.New("invalid state")
	ErrPaymentRequired   = errors.New("payment required")
	ErrConfiguration     = errors.New("configuration error")
	ErrSequenceExhausted = errors.New("sequence exhausted")
	ErrStorage           = errors.New("storage failure")

	// ErrDuplicateInvoiceNumber is returned by stores when the invoice number
	// unique key rejects an insert.
	ErrDuplicateInvoiceNumber = errors.New("duplicate invoice number")
)

var kinds = []error{
	ErrInvalidRequest,
	ErrNotFound,
	ErrAlreadyDone,
	ErrInvalidState,
	ErrPaymentRequired,
	ErrConfiguration,
	ErrSequenceExhausted,
	ErrStorage,
}

// =============================================================================
// STRUCTURED ERROR - Kind + user-readable message + cause
// =============================================================================

// Error carries the kind, a message front-desk staff can act on, and the
// underlying cause when there is one.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewError builds an Error of the given kind.
func NewError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// StorageError wraps a driver/transaction failure.
func StorageError(op string, err error) *Error {
	return &Error{Kind: ErrStorage, Message: op, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// KindOf returns the kind sentinel an error belongs to. Anything that is not
// classified is a storage failure.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrStorage
}

// Message returns the user-readable part of err. Storage failures get a
// generic text; their details belong in the operator log, not on screen.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if KindOf(err) == ErrStorage {
		return "check-in could not be saved, please try again"
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}

// Code returns a stable snake_case code for an error kind.
func Code(err error) string {
	switch KindOf(err) {
	case ErrInvalidRequest:
		return "invalid_request"
	case ErrNotFound:
		return "not_found"
	case ErrAlreadyDone:
		return "already_done"
	case ErrInvalidState:
		return "invalid_state"
	case ErrPaymentRequired:
		return "payment_required"
	case ErrConfiguration:
		return "configuration_error"
	case ErrSequenceExhausted:
		return "sequence_exhausted"
	case nil:
		return ""
	default:
		return "storage_error"
	}
}

// IsClientError returns true if staff can fix the failure from the desk.
func IsClientError(err error) bool {
	switch KindOf(err) {
	case ErrInvalidRequest, ErrNotFound, ErrAlreadyDone, ErrInvalidState, ErrPaymentRequired:
		return true
	}
	return false
}
