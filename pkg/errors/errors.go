package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error codes exposed in API responses.
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeNotFound           = "RESOURCE_NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeBadRequest         = "BAD_REQUEST"
	CodeBadGateway         = "BAD_GATEWAY"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeTimeout            = "TIMEOUT"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
)

// AppError is an error that knows its API shape: a stable code, a
// user-facing message, and the HTTP status it should be served with.
// The wrapped cause stays out of the response body.
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	HTTPStatus int               `json:"-"`
	Err        error             `json:"-"`
}

func (e *AppError) Error() string {
	s := e.Code + ": " + e.Message
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails replaces the error's field details.
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// WithDetail adds one field detail.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Wrap records the underlying cause.
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

// NewAppError builds an AppError from its three identifying parts.
func NewAppError(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// ErrValidation is a 400 for input that fails domain validation.
func ErrValidation(message string) *AppError {
	return NewAppError(CodeValidationError, message, http.StatusBadRequest)
}

// ErrValidationWithFields is ErrValidation with per-field messages.
func ErrValidationWithFields(message string, fields map[string]string) *AppError {
	return ErrValidation(message).WithDetails(fields)
}

// ErrNotFound is a 404 for a missing resource.
func ErrNotFound(resource string) *AppError {
	return NewAppError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// ErrNotFoundWithID is ErrNotFound carrying the looked-up ID.
func ErrNotFoundWithID(resource, id string) *AppError {
	return ErrNotFound(resource).WithDetail("id", id)
}

// ErrConflict is a 409 for state that contradicts the request.
func ErrConflict(message string) *AppError {
	return NewAppError(CodeConflict, message, http.StatusConflict)
}

// ErrUnauthorized is a 401. An empty message gets the standard wording.
func ErrUnauthorized(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return NewAppError(CodeUnauthorized, message, http.StatusUnauthorized)
}

// ErrForbidden is a 403. An empty message gets the standard wording.
func ErrForbidden(message string) *AppError {
	if message == "" {
		message = "access denied"
	}
	return NewAppError(CodeForbidden, message, http.StatusForbidden)
}

// ErrInternal is a 500. An empty message gets the standard wording so
// internals never leak by accident.
func ErrInternal(message string) *AppError {
	if message == "" {
		message = "an internal error occurred"
	}
	return NewAppError(CodeInternalError, message, http.StatusInternalServerError)
}

// ErrBadRequest is a 400 for requests that are malformed rather than
// merely invalid.
func ErrBadRequest(message string) *AppError {
	return NewAppError(CodeBadRequest, message, http.StatusBadRequest)
}

// ErrBadGateway is a 502 for a failed upstream call.
func ErrBadGateway(message string) *AppError {
	return NewAppError(CodeBadGateway, message, http.StatusBadGateway)
}

// ErrServiceUnavailable is a 503 naming the unavailable dependency.
func ErrServiceUnavailable(service string) *AppError {
	return NewAppError(CodeServiceUnavailable, fmt.Sprintf("%s is temporarily unavailable", service), http.StatusServiceUnavailable)
}

// ErrTimeout is a 504 naming the operation that timed out.
func ErrTimeout(operation string) *AppError {
	return NewAppError(CodeTimeout, fmt.Sprintf("%s timed out", operation), http.StatusGatewayTimeout)
}

// ErrRateLimitExceeded is a 429.
func ErrRateLimitExceeded() *AppError {
	return NewAppError(CodeRateLimitExceeded, "rate limit exceeded", http.StatusTooManyRequests)
}

// IsAppError reports whether err has an AppError in its tree.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts the AppError from err's tree, if there is one.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// FromError lifts any error into an AppError, defaulting to a 500.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := AsAppError(err); ok {
		return appErr
	}

	return ErrInternal("").Wrap(err)
}

// MapDomainError maps domain error messages to AppErrors. Domain guards
// return plain errors; the text patterns here decide the HTTP shape.
func MapDomainError(err error) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := AsAppError(err); ok {
		return appErr
	}

	msg := err.Error()

	switch {
	case containsFold(msg, "not found"):
		return ErrNotFound("resource").Wrap(err)
	case containsFold(msg, "already exists"):
		return ErrConflict(msg).Wrap(err)
	case containsFold(msg, "cannot transition"),
		containsFold(msg, "is archived"),
		containsFold(msg, "already archived"),
		containsFold(msg, "not archived"),
		containsFold(msg, "is cancelled"),
		containsFold(msg, "invalid"),
		containsFold(msg, "required"),
		containsFold(msg, "must be"),
		containsFold(msg, "cannot be"),
		containsFold(msg, "not configured"):
		return ErrValidation(msg).Wrap(err)
	case containsFold(msg, "unauthorized"):
		return ErrUnauthorized(msg).Wrap(err)
	case containsFold(msg, "forbidden"), containsFold(msg, "permission denied"):
		return ErrForbidden(msg).Wrap(err)
	case containsFold(msg, "circuit breaker"):
		return ErrServiceUnavailable("notifier").Wrap(err)
	case containsFold(msg, "timeout"):
		return ErrTimeout("operation").Wrap(err)
	default:
		return ErrInternal("").Wrap(err)
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
