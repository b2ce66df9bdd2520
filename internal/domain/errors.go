package domain

import (
	"context"
	"errors"
)

// Kind classifies a failure so callers can decide whether it belongs in the
// conversation or in the logs.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindNotFound            Kind = "not_found"
	KindAuthorization       Kind = "authorization"
	KindInsufficientStock   Kind = "insufficient_stock"
	KindExternalUnavailable Kind = "external_unavailable"
	KindInternal            Kind = "internal"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrAuthorization       = errors.New("admin access required")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrExternalUnavailable = errors.New("external service unavailable")
	ErrInternal            = errors.New("internal error")
)

// KindOf maps an error chain onto the taxonomy. Anything unrecognised is internal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAuthorization):
		return KindAuthorization
	case errors.Is(err, ErrInsufficientStock):
		return KindInsufficientStock
	case errors.Is(err, ErrExternalUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return KindExternalUnavailable
	default:
		return KindInternal
	}
}

// Expected reports whether the failure is a normal conversational outcome
// rather than something an operator has to look at.
func Expected(err error) bool {
	switch KindOf(err) {
	case KindValidation, KindNotFound, KindAuthorization, KindInsufficientStock:
		return true
	default:
		return false
	}
}
