package errorx

import (
	"errors"
	"net/http"
)

// Stable error codes surfaced in response envelopes.
const (
	CodeAuthMissing          = "AUTH_MISSING"
	CodeAuthInvalid          = "AUTH_INVALID"
	CodeKeyNotFound          = "KEY_NOT_FOUND"
	CodeKeyProcessingError   = "KEY_PROCESSING_ERROR"
	CodeKeyListError         = "KEY_LIST_ERROR"
	CodeKeyUploadError       = "KEY_UPLOAD_ERROR"
	CodeKeyDeleteError       = "KEY_DELETE_ERROR"
	CodeSignError            = "SIGN_ERROR"
	CodeRateLimitError       = "RATE_LIMIT_ERROR"
	CodeRateLimited          = "RATE_LIMITED"
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeAuditError           = "AUDIT_ERROR"
	CodeNotFound             = "NOT_FOUND"
	CodeInternalError        = "INTERNAL_ERROR"
	CodeUnsupportedMediaType = "UNSUPPORTED_MEDIA_TYPE"
)

// Error carries an HTTP status and a stable code alongside the message. The
// message is what reaches the wire; wrapped causes stay server-side.
type Error struct {
	Status     int
	Code       string
	Message    string
	RetryAfter int
	// ResetAt is the bucket refill time in ms since epoch; set on
	// RATE_LIMITED responses only.
	ResetAt int64
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// WithCause attaches a server-side cause for logging; the wire message is
// unchanged.
func (e *Error) WithCause(err error) *Error {
	c := *e
	c.cause = err
	return &c
}

func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

func InvalidRequest(message string) *Error {
	return New(http.StatusBadRequest, CodeInvalidRequest, message)
}

func AuthMissing(message string) *Error {
	return New(http.StatusUnauthorized, CodeAuthMissing, message)
}

func AuthInvalid(message string) *Error {
	return New(http.StatusUnauthorized, CodeAuthInvalid, message)
}

func KeyNotFound(message string) *Error {
	return New(http.StatusNotFound, CodeKeyNotFound, message)
}

func Internal(code, message string) *Error {
	return New(http.StatusInternalServerError, code, message)
}

func RateLimited(retryAfter int, resetAt int64) *Error {
	e := New(http.StatusTooManyRequests, CodeRateLimited, "Rate limit exceeded")
	e.RetryAfter = retryAfter
	e.ResetAt = resetAt
	return e
}

func RateLimitUnavailable() *Error {
	return New(http.StatusServiceUnavailable, CodeRateLimitError, "Rate limiter unavailable")
}

// From normalizes any error into an *Error. Unknown errors map to a generic
// 500 so internal details never reach the wire.
func From(err error) *Error {
	var coded *Error
	if errors.As(err, &coded) {
		return coded
	}
	return New(http.StatusInternalServerError, CodeInternalError, "Internal server error").WithCause(err)
}
