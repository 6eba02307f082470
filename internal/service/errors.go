package service

import (
	"context"
	"errors"

	"mothercare/backend/internal/store"
)

type Kind string

const (
	KindValidation          Kind = "validation"
	KindNotFound            Kind = "not_found"
	KindNoSession           Kind = "no_session"
	KindOutOfStock          Kind = "out_of_stock"
	KindInsufficientStock   Kind = "insufficient_stock"
	KindConcurrencyConflict Kind = "concurrency_conflict"
	KindAuthorization       Kind = "authorization"
	KindPersistence         Kind = "persistence"
)

// Error is the only error type the service returns. Message is safe to show
// to an operator; Err keeps the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return string(e.Kind) + ": " + e.Err.Error()
	}
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind when target is one of the bare kind
// sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrValidation          = &Error{Kind: KindValidation}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrNoSession           = &Error{Kind: KindNoSession}
	ErrOutOfStock          = &Error{Kind: KindOutOfStock}
	ErrInsufficientStock   = &Error{Kind: KindInsufficientStock}
	ErrConcurrencyConflict = &Error{Kind: KindConcurrencyConflict}
	ErrAuthorization       = &Error{Kind: KindAuthorization}
	ErrPersistence         = &Error{Kind: KindPersistence}
)

// KindOf returns the kind of a service error, or KindPersistence for any
// other error.
func KindOf(err error) Kind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindPersistence
}

func validation(message string) error {
	return &Error{Kind: KindValidation, Message: message}
}

func unauthorized(message string) error {
	return &Error{Kind: KindAuthorization, Message: message}
}

// fromStore maps a repository error onto a service error. subject names the
// record the caller was working with, e.g. "item".
func fromStore(err error, subject string) error {
	if err == nil {
		return nil
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return err
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		return &Error{Kind: KindNotFound, Message: subject + " not found", Err: err}
	case errors.Is(err, store.ErrNoSession):
		return &Error{Kind: KindNoSession, Message: "no accounting session is open", Err: err}
	case errors.Is(err, store.ErrOutOfStock):
		return &Error{Kind: KindOutOfStock, Message: subject + " is out of stock", Err: err}
	case errors.Is(err, store.ErrInsufficientStock):
		return &Error{Kind: KindInsufficientStock, Message: "not enough stock for this " + subject, Err: err}
	case errors.Is(err, store.ErrConflict):
		return &Error{Kind: KindConcurrencyConflict, Message: "the " + subject + " was changed by another request, try again", Err: err}
	case errors.Is(err, store.ErrDuplicate):
		return &Error{Kind: KindValidation, Message: subject + " already exists", Err: err}
	case errors.Is(err, store.ErrInvalid):
		return &Error{Kind: KindValidation, Message: "invalid " + subject, Err: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindPersistence, Message: "request cancelled", Err: err}
	default:
		return &Error{Kind: KindPersistence, Message: "storage failure", Err: err}
	}
}
