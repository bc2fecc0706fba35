// Package apierror defines the operational error type every handler failure is
// normalized into, and the classification of raw store/token errors.
package apierror

import (
	"context"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wildtrek/tours/internal/domain"
	"github.com/wildtrek/tours/internal/platform/token"
)

// Error codes
const (
	CodeValidationFailed      = "VALIDATION_FAILED"
	CodeDuplicateResource     = "DUPLICATE_RESOURCE"
	CodeInvalidIdentifier     = "INVALID_IDENTIFIER"
	CodeNotFound              = "NOT_FOUND"
	CodeUnauthenticated       = "UNAUTHENTICATED"
	CodeForbidden             = "FORBIDDEN"
	CodeInvalidToken          = "INVALID_TOKEN"
	CodeExpiredToken          = "EXPIRED_TOKEN"
	CodeInvalidOrExpiredToken = "INVALID_OR_EXPIRED_TOKEN"
	CodeInvalidCredentials    = "INVALID_CREDENTIALS"
	CodeEmailDeliveryFailed   = "EMAIL_DELIVERY_FAILED"
	CodeRateLimit             = "RATE_LIMIT_EXCEEDED"
	CodeServiceUnavailable    = "SERVICE_UNAVAILABLE"
	CodeInternalError         = "INTERNAL_ERROR"
)

// Error is an operational, client-facing failure. Anything that reaches the
// response funnel without being one of these is treated as an internal bug.
type Error struct {
	Code    string
	Status  int
	Message string
	Err     error // wrapped cause, for logs only
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

func Wrap(err error, status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message, Err: err}
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, CodeNotFound, message)
}

func Unauthenticated(message string) *Error {
	return New(http.StatusUnauthorized, CodeUnauthenticated, message)
}

func Forbidden(message string) *Error {
	return New(http.StatusForbidden, CodeForbidden, message)
}

func BadRequest(code, message string) *Error {
	return New(http.StatusBadRequest, code, message)
}

// Postgres error codes worth distinguishing.
const (
	pgUniqueViolation  = "23505"
	pgFKViolation      = "23503"
	pgInvalidTextRep   = "22P02"
	pgNumericOverflow  = "22003"
	pgCheckViolation   = "23514"
	pgNotNullViolation = "23502"
)

// From classifies any error into an operational Error by structural
// inspection. Unrecognized failures become a 500 internal error.
func From(err error) *Error {
	if err == nil {
		return nil
	}

	var opErr *Error
	if errors.As(err, &opErr) {
		return opErr
	}

	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		return Wrap(err, http.StatusBadRequest, CodeValidationFailed, vErr.Error())
	}

	if errors.Is(err, token.ErrExpired) {
		return Wrap(err, http.StatusUnauthorized, CodeExpiredToken, "your token has expired; please log in again")
	}
	if errors.Is(err, token.ErrInvalid) {
		return Wrap(err, http.StatusUnauthorized, CodeInvalidToken, "invalid token; please log in again")
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return Wrap(err, http.StatusNotFound, CodeNotFound, "no document found with that ID")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return Wrap(err, http.StatusBadRequest, CodeDuplicateResource, "duplicate field value; please use another value")
		case pgFKViolation:
			// A bad tourId or userId on a create reads as the referenced
			// document not existing.
			return Wrap(err, http.StatusNotFound, CodeNotFound, "referenced document does not exist")
		case pgInvalidTextRep, pgNumericOverflow:
			return Wrap(err, http.StatusBadRequest, CodeInvalidIdentifier, "invalid value for query parameter")
		case pgCheckViolation, pgNotNullViolation:
			return Wrap(err, http.StatusBadRequest, CodeValidationFailed, "invalid input data")
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(err, http.StatusServiceUnavailable, CodeServiceUnavailable, "the service is temporarily unavailable; please try again")
	}

	return Wrap(err, http.StatusInternalServerError, CodeInternalError, "something went very wrong")
}

// IsOperational reports whether the classified error is safe to show verbatim
// in production.
func (e *Error) IsOperational() bool {
	return e.Code != CodeInternalError
}
