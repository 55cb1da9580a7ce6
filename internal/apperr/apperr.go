// Package apperr defines the typed errors returned by the library services.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"

	"gorm.io/gorm"
)

// Kind classifies a failure so callers can react without parsing messages
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindForbidden         Kind = "forbidden"
	KindUnauthorized      Kind = "unauthorized"
	KindInvalidState      Kind = "invalid_state"
	KindNoCopiesAvailable Kind = "no_copies_available"
	KindInvalidQuantity   Kind = "invalid_quantity"
	KindCategoryInUse     Kind = "category_in_use"
	KindAlreadyPaid       Kind = "already_paid"
	KindValidation        Kind = "validation_error"
	KindConflict          Kind = "conflict"
	KindTimeout           Kind = "timeout"
	KindNetwork           Kind = "network_error"
	KindInternal          Kind = "internal"
)

// Error is a classified error. Err is the internal cause and is never shown to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, apperr.NotFound("")) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// New creates an error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind carrying an internal cause
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotFound(message string) *Error          { return New(KindNotFound, message) }
func Forbidden(message string) *Error         { return New(KindForbidden, message) }
func Unauthorized(message string) *Error      { return New(KindUnauthorized, message) }
func InvalidState(message string) *Error      { return New(KindInvalidState, message) }
func NoCopiesAvailable(message string) *Error { return New(KindNoCopiesAvailable, message) }
func InvalidQuantity(message string) *Error   { return New(KindInvalidQuantity, message) }
func CategoryInUse(message string) *Error     { return New(KindCategoryInUse, message) }
func AlreadyPaid(message string) *Error       { return New(KindAlreadyPaid, message) }
func Validation(message string) *Error        { return New(KindValidation, message) }
func Conflict(message string) *Error          { return New(KindConflict, message) }

// Internal wraps an unexpected failure
func Internal(message string, err error) *Error {
	return Wrap(KindInternal, message, err)
}

// FromDB classifies an error returned by gorm. Typed errors pass through unchanged.
func FromDB(message string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound(message)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return Wrap(KindConflict, "resource already exists", err)
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(KindTimeout, "operation timed out", err)
	case errors.Is(err, context.Canceled):
		return Wrap(KindTimeout, "operation canceled", err)
	}
	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return Wrap(KindTimeout, "operation timed out", err)
		}
		return Wrap(KindNetwork, message, err)
	}
	return Internal(message, err)
}

// KindOf reports the kind of err, or KindInternal for unclassified errors
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindInternal
}

// IsKind reports whether err is classified as kind
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
