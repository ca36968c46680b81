package helper

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorKind adalah taksonomi error domain. Service hanya mengembalikan
// *AppError dengan salah satu kind ini, mapping ke HTTP ada di ErrorHandler.
type ErrorKind string

const (
	KindUnauthorized     ErrorKind = "UNAUTHORIZED"
	KindForbidden        ErrorKind = "FORBIDDEN"
	KindNotFound         ErrorKind = "NOT_FOUND"
	KindConflict         ErrorKind = "CONFLICT"
	KindInvalidOperation ErrorKind = "INVALID_OPERATION"
	KindValidation       ErrorKind = "VALIDATION_ERROR"
	KindUpstreamFailure  ErrorKind = "UPSTREAM_FAILURE"
	KindInternal         ErrorKind = "INTERNAL_ERROR"
)

type AppError struct {
	Kind    ErrorKind
	Message string
	Fields  map[string][]string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// Status: Conflict sengaja 400 (bukan 409), klien lama mengandalkan itu.
func (e *AppError) Status() int {
	switch e.Kind {
	case KindUnauthorized:
		return fiber.StatusUnauthorized
	case KindForbidden:
		return fiber.StatusForbidden
	case KindNotFound:
		return fiber.StatusNotFound
	case KindConflict, KindInvalidOperation, KindValidation:
		return fiber.StatusBadRequest
	case KindUpstreamFailure:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

/* ===============================
   Constructors
=================================*/

func Unauthorized(msg string) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: msg}
}

func Forbidden(msg string) *AppError {
	return &AppError{Kind: KindForbidden, Message: msg}
}

func NotFound(msg string) *AppError {
	return &AppError{Kind: KindNotFound, Message: msg}
}

func Conflict(msg string) *AppError {
	return &AppError{Kind: KindConflict, Message: msg}
}

func InvalidOperation(msg string) *AppError {
	return &AppError{Kind: KindInvalidOperation, Message: msg}
}

func Validation(msg string, fields map[string][]string) *AppError {
	return &AppError{Kind: KindValidation, Message: msg, Fields: fields}
}

func Upstream(msg string, err error) *AppError {
	return &AppError{Kind: KindUpstreamFailure, Message: msg, Err: err}
}

func Internal(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return &AppError{Kind: KindInternal, Message: "internal error", Err: err}
}

// KindOf mengembalikan kind dari err, KindInternal kalau bukan *AppError.
func KindOf(err error) ErrorKind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
