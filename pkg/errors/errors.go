package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels classify failures independently of their message. AppError
// constructors wrap exactly one of them.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrAlreadyExists  = errors.New("resource already exists")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrGone           = errors.New("gone")
	ErrServiceUnavail = errors.New("service unavailable")
	ErrPaymentFailed  = errors.New("payment failed")
)

// statusBySentinel maps each sentinel to its response status and code.
var statusBySentinel = []struct {
	err    error
	status int
	code   string
}{
	{ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{ErrAlreadyExists, http.StatusConflict, "ALREADY_EXISTS"},
	{ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
	{ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
	{ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{ErrConflict, http.StatusConflict, "CONFLICT"},
	{ErrGone, http.StatusGone, "GONE"},
	{ErrServiceUnavail, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
	{ErrPaymentFailed, http.StatusUnprocessableEntity, "PAYMENT_FAILED"},
}

// AppError is an error a handler can render as-is: Code and Message go to
// the client, Status picks the response code.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(sentinel error, message string) *AppError {
	for _, s := range statusBySentinel {
		if s.err == sentinel {
			return &AppError{Code: s.code, Message: message, Status: s.status, Err: sentinel}
		}
	}
	return &AppError{Code: "INTERNAL_ERROR", Message: message, Status: http.StatusInternalServerError, Err: sentinel}
}

// NotFound reports a missing checkout session, product or cart.
func NotFound(resource, id string) *AppError {
	return newAppError(ErrNotFound, fmt.Sprintf("%s with id %s not found", resource, id))
}

func InvalidInput(message string) *AppError {
	return newAppError(ErrInvalidInput, message)
}

func Unauthorized(message string) *AppError {
	return newAppError(ErrUnauthorized, message)
}

func Forbidden(message string) *AppError {
	return newAppError(ErrForbidden, message)
}

// Conflict reports an operation on a session that can no longer change.
func Conflict(message string) *AppError {
	return newAppError(ErrConflict, message)
}

// Gone reports an expired checkout session.
func Gone(message string) *AppError {
	return newAppError(ErrGone, message)
}

// ServiceUnavailable reports that the store API cannot be reached.
func ServiceUnavailable(message string) *AppError {
	return newAppError(ErrServiceUnavail, message)
}

// PaymentFailed reports an order the store rejected on payment grounds.
func PaymentFailed(message string) *AppError {
	return newAppError(ErrPaymentFailed, message)
}

// HTTPStatus picks the response status for err: the AppError's own status,
// else the first sentinel it wraps, else 500.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	for _, s := range statusBySentinel {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}
