// Package savingserr defines the error taxonomy shared by every savings
// planner component, following the AppError shape used across the rest of
// this codebase: a stable machine-readable code, an HTTP status, optional
// structured details, and an optionally wrapped cause.
package savingserr

import (
	"errors"
	"net/http"
)

const (
	CodeValidationError     = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeStateViolation      = "STATE_VIOLATION"
	CodeOverAllocation      = "OVER_ALLOCATION"
	CodeDuplicateAllocation = "DUPLICATE_ALLOCATION"
	CodeRateUnavailable     = "RATE_UNAVAILABLE"
	CodeRateLimited         = "RATE_LIMITED"
	CodeAPIKeyMissing       = "API_KEY_MISSING"
	CodeNetworkError        = "NETWORK_ERROR"
	CodeInternal            = "INTERNAL_ERROR"
)

// AppError is the error type every savings component returns to its caller.
type AppError struct {
	Code       string
	Message    string
	StatusCode int
	Details    map[string]interface{}
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError with an empty details map.
func New(code, message string, statusCode int) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: statusCode, Details: make(map[string]interface{})}
}

func (e *AppError) WithDetails(key string, value interface{}) *AppError {
	cp := *e
	cp.Details = make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

func (e *AppError) WithError(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// Predefined errors, one per taxonomy entry.
var (
	ErrValidation         = New(CodeValidationError, "validation error", http.StatusBadRequest)
	ErrNotFound           = New(CodeNotFound, "resource not found", http.StatusNotFound)
	ErrStateViolation     = New(CodeStateViolation, "operation not valid in current state", http.StatusConflict)
	ErrOverAllocation     = New(CodeOverAllocation, "allocation exceeds asset balance", http.StatusUnprocessableEntity)
	ErrDuplicateAllocation = New(CodeDuplicateAllocation, "allocation already exists for this goal and asset", http.StatusConflict)
	ErrRateUnavailable    = New(CodeRateUnavailable, "exchange rate unavailable", http.StatusServiceUnavailable)
	ErrRateLimited        = New(CodeRateLimited, "rate provider rate limit exceeded", http.StatusTooManyRequests)
	ErrAPIKeyMissing      = New(CodeAPIKeyMissing, "rate provider api key missing", http.StatusPreconditionFailed)
	ErrNetworkError       = New(CodeNetworkError, "network error contacting rate provider", http.StatusBadGateway)
	ErrInternal           = New(CodeInternal, "internal error", http.StatusInternalServerError)
)

// Is reports whether err is an AppError with the given code.
func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// ToAppError unwraps err into an AppError, falling back to ErrInternal.
func ToAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternal.WithError(err)
}
