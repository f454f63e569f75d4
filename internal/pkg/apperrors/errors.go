// internal/pkg/apperrors/errors.go
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a business error for transport mapping and logging.
type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeAvailability Code = "AVAILABILITY_ERROR"
	CodeNotFound     Code = "RESOURCE_NOT_FOUND"
	CodeState        Code = "STATE_ERROR"
	CodePayment      Code = "PAYMENT_ERROR"
	CodeConflict     Code = "CONCURRENCY_CONFLICT"
)

// LineIssue describes a single cart line that failed an availability check.
type LineIssue struct {
	VariantID uint   `json:"variant_id"`
	SKU       string `json:"sku,omitempty"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
	Reason    string `json:"reason"`
}

// AppError is the error type all services return for expected failures.
type AppError struct {
	Code    Code        `json:"code"`
	Message string      `json:"message"`
	Issues  []LineIssue `json:"issues,omitempty"`
	Err     error       `json:"-"`
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

// HTTPStatus maps the error code to a response status.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeAvailability:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeState:
		return http.StatusUnprocessableEntity
	case CodePayment:
		return http.StatusBadGateway
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func Validation(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func Availability(message string, issues ...LineIssue) *AppError {
	return &AppError{Code: CodeAvailability, Message: message, Issues: issues}
}

func NotFound(resource string, id interface{}) *AppError {
	return &AppError{Code: CodeNotFound, Message: fmt.Sprintf("%s %v not found", resource, id)}
}

func State(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeState, Message: fmt.Sprintf(format, args...)}
}

func Payment(message string, err error) *AppError {
	return &AppError{Code: CodePayment, Message: message, Err: err}
}

func Conflict(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

// As extracts an *AppError from an error chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	if appErr, ok := As(err); ok {
		return appErr.Code == code
	}
	return false
}
