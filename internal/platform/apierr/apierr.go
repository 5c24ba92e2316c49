package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeInvalidArgument    Code = "invalid-argument"
	CodeUnauthenticated    Code = "unauthenticated"
	CodePermissionDenied   Code = "permission-denied"
	CodeNotFound           Code = "not-found"
	CodeFailedPrecondition Code = "failed-precondition"
	CodeUnavailable        Code = "unavailable"
	CodeInternal           Code = "internal"

	CodeUploadCanceled     Code = "storage/canceled"
	CodeUploadUnauthorized Code = "storage/unauthorized"
	CodeBucketNotFound     Code = "storage/bucket-not-found"
	CodeUploadUnknown      Code = "storage/unknown"
)

// Error is a classified failure. Message, when set, is safe to show to end users.
type Error struct {
	Status  int
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return string(e.Code)
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code Code, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// Wrap classifies err under code, deriving the HTTP status from the code.
func Wrap(code Code, err error) *Error {
	return &Error{Status: HTTPStatus(code), Code: code, Err: err}
}

func Errorf(code Code, format string, args ...interface{}) *Error {
	return Wrap(code, fmt.Errorf(format, args...))
}

// WithMessage attaches a user-facing message to a classified error.
func WithMessage(code Code, msg string, err error) *Error {
	return &Error{Status: HTTPStatus(code), Code: code, Message: msg, Err: err}
}

func InvalidArgument(msg string) *Error    { return Errorf(CodeInvalidArgument, "%s", msg) }
func Unauthenticated(msg string) *Error    { return Errorf(CodeUnauthenticated, "%s", msg) }
func PermissionDenied(msg string) *Error   { return Errorf(CodePermissionDenied, "%s", msg) }
func NotFound(msg string) *Error           { return Errorf(CodeNotFound, "%s", msg) }
func FailedPrecondition(msg string) *Error { return Errorf(CodeFailedPrecondition, "%s", msg) }

// CodeOf returns the classification of err. Unclassified errors are internal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) && ae.Code != "" {
		return ae.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeUnavailable
	}
	return CodeInternal
}

// Is reports whether err is classified under code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

func HTTPStatus(code Code) int {
	switch code {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodePermissionDenied, CodeUploadUnauthorized:
		return http.StatusForbidden
	case CodeNotFound, CodeBucketNotFound:
		return http.StatusNotFound
	case CodeFailedPrecondition:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeUploadCanceled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}

func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return HTTPStatus(CodeOf(err))
}
