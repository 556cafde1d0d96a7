package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced by the production core.
const (
	CodeValidationError      = "VALIDATION_ERROR"
	CodeConstraintViolation  = "CONSTRAINT_VIOLATION"
	CodeResourceInsufficient = "RESOURCE_INSUFFICIENT"
	CodeStateTransition      = "STATE_TRANSITION_ERROR"
	CodeNotFound             = "RESOURCE_NOT_FOUND"
	CodeConflict             = "CONFLICT"
	CodeInternalError        = "INTERNAL_ERROR"
	CodeBadRequest           = "BAD_REQUEST"
)

// AppError carries an error code, an operator-facing message and the HTTP
// status the transport layer should use.
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	HTTPStatus int               `json:"-"`
	Err        error             `json:"-"`
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

// WithDetail adds a single detail to the error.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithDetails replaces the error's detail map.
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// Wrap attaches an underlying error.
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

// NewAppError creates a new AppError.
func NewAppError(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// ErrValidation reports malformed or out-of-range input. No mutation has
// been performed when it is returned.
func ErrValidation(message string) *AppError {
	return NewAppError(CodeValidationError, message, http.StatusBadRequest)
}

// ErrConstraintViolation reports a breached domain invariant such as an
// item-class routing restriction or a fully assigned plan.
func ErrConstraintViolation(message string) *AppError {
	return NewAppError(CodeConstraintViolation, message, http.StatusConflict)
}

// ErrResourceInsufficient reports shortage conditions. Settlement treats
// material shortage as a warning, so this surfaces only where a caller
// explicitly asks stock to cover a quantity it cannot.
func ErrResourceInsufficient(message string) *AppError {
	return NewAppError(CodeResourceInsufficient, message, http.StatusConflict)
}

// ErrStateTransition reports an operation requested from an incompatible
// lifecycle state.
func ErrStateTransition(message string) *AppError {
	return NewAppError(CodeStateTransition, message, http.StatusConflict)
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource string) *AppError {
	return NewAppError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// ErrNotFoundWithID creates a not found error carrying the looked-up ID.
func ErrNotFoundWithID(resource, id string) *AppError {
	return ErrNotFound(resource).WithDetail("id", id)
}

// ErrConflict creates a conflict error.
func ErrConflict(message string) *AppError {
	return NewAppError(CodeConflict, message, http.StatusConflict)
}

// ErrBadRequest creates a bad request error.
func ErrBadRequest(message string) *AppError {
	return NewAppError(CodeBadRequest, message, http.StatusBadRequest)
}

// ErrInternal creates an internal error.
func ErrInternal(message string) *AppError {
	if message == "" {
		message = "an internal error occurred"
	}
	return NewAppError(CodeInternalError, message, http.StatusInternalServerError)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether err is an AppError with the given code.
func IsCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// FromError converts any error to an AppError, wrapping unknown errors as
// internal.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return ErrInternal("").Wrap(err)
}
