package service

import (
	"errors"
	"fmt"
)

var (
	// ErrAuth rejects a connection before any handler is attached
	ErrAuth = errors.New("authentication failed")

	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotFound          = errors.New("not found")
	ErrEmptyHistory      = errors.New("empty history")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidPayload    = errors.New("invalid payload")
	ErrInvalidTransition = errors.New("invalid booking transition")

	ErrMissingToken = fmt.Errorf("%w: missing token", ErrAuth)
	ErrInvalidToken = fmt.Errorf("%w: invalid or expired token", ErrAuth)
)

// ErrorCode maps an error to the short code written on error events
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrAuth):
		return "auth_error"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrEmptyHistory):
		return "empty_history"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidPayload):
		return "invalid_payload"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	}
	return "internal"
}
