// Package apperrors defines the typed error kinds the HTTP boundary maps to
// status codes. Store-level constraint violations are translated here so
// storage-engine errors never leak to clients.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/lib/pq"
)

// Kind classifies an application error
type Kind string

const (
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindRateLimit    Kind = "rate_limit"
	KindInternal     Kind = "internal"
)

// AppError carries a client-facing message, an HTTP status, and the wrapped
// internal cause for logging.
type AppError struct {
	Kind    Kind
	Message string
	Code    int
	err     error
}

func (e *AppError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Kind, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.err }

func NewValidation(msg string) *AppError {
	return &AppError{Kind: KindValidation, Message: msg, Code: http.StatusBadRequest}
}

func NewConflict(msg string) *AppError {
	return &AppError{Kind: KindConflict, Message: msg, Code: http.StatusConflict}
}

func NewUnauthorized(msg string) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: msg, Code: http.StatusUnauthorized}
}

func NewForbidden(msg string) *AppError {
	return &AppError{Kind: KindForbidden, Message: msg, Code: http.StatusForbidden}
}

func NewNotFound(msg string) *AppError {
	return &AppError{Kind: KindNotFound, Message: msg, Code: http.StatusNotFound}
}

func NewRateLimit(msg string) *AppError {
	return &AppError{Kind: KindRateLimit, Message: msg, Code: http.StatusTooManyRequests}
}

func NewInternal(msg string, err error) *AppError {
	return &AppError{Kind: KindInternal, Message: msg, Code: http.StatusInternalServerError, err: err}
}

// Wrap attaches an internal cause for logging without changing the
// client-facing message.
func (e *AppError) Wrap(err error) *AppError {
	e.err = err
	return e
}

// HTTPStatus returns the status code for err, defaulting to 500 for
// unclassified errors.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

// Message returns the client-facing message for err. Unclassified errors get
// a generic message so internal detail never reaches production clients.
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Internal server error"
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// Postgres error codes for constraint violations.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// FromPostgres translates lib/pq constraint violations into application
// error kinds. Unique violations on the users table are mapped to the
// field-specific conflict messages the API promises.
func FromPostgres(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch string(pqErr.Code) {
	case pqUniqueViolation:
		switch pqErr.Constraint {
		case "users_email_key":
			return NewConflict("Email already exists").Wrap(err)
		case "users_username_key":
			return NewConflict("Username already exists").Wrap(err)
		}
		return NewConflict("Resource already exists").Wrap(err)
	case pqForeignKeyViolation:
		return NewValidation("Invalid reference to related resource").Wrap(err)
	}
	return err
}
