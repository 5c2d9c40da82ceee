// Package errors defines the domain error taxonomy shared by the ledger and
// withdrawal engines and the HTTP layer.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a DomainError so callers can branch without matching
// individual codes.
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindAlreadyExists       Kind = "already_exists"
	KindAlreadySettled      Kind = "already_settled"
	KindInsufficientBalance Kind = "insufficient_balance"
	KindWalletNotActive     Kind = "wallet_not_active"
	KindBelowMinimum        Kind = "below_minimum"
	KindInvalidState        Kind = "invalid_state"
	KindInvalidInput        Kind = "invalid_input"
	KindForbidden           Kind = "forbidden"
	KindTransactionAborted  Kind = "transaction_aborted"
)

// DomainError is returned by every engine operation that fails.
type DomainError struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches on Code so a sentinel compares equal to any error derived from it.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New builds a DomainError.
func New(kind Kind, code, message string) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: message}
}

// WithMessage returns a copy of e carrying a more specific message.
func (e *DomainError) WithMessage(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...), Err: e.Err}
}

// Aborted wraps an infrastructure failure that rolled back a unit of work.
func Aborted(operation string, cause error) *DomainError {
	return &DomainError{
		Kind:    KindTransactionAborted,
		Code:    ErrTransactionAborted.Code,
		Message: fmt.Sprintf("%s aborted", operation),
		Err:     cause,
	}
}

// InvalidInput reports a malformed argument.
func InvalidInput(format string, args ...interface{}) *DomainError {
	return ErrInvalidInput.WithMessage(format, args...)
}

// KindOf returns the kind of the first DomainError in err's chain, or an
// empty Kind if there is none.
func KindOf(err error) Kind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsDomain reports whether err carries a DomainError.
func IsDomain(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

var (
	ErrInvalidInput       = New(KindInvalidInput, "INVALID_INPUT", "invalid input")
	ErrForbidden          = New(KindForbidden, "FORBIDDEN", "operation not permitted")
	ErrTransactionAborted = New(KindTransactionAborted, "TRANSACTION_ABORTED", "transaction aborted")
)
