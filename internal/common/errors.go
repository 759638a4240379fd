package common

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes.
const (
	CodeConfig     = "CONFIG_ERROR"
	CodeResources  = "RESOURCE_EXHAUSTED"
	CodeDocument   = "DOCUMENT_ERROR"
	CodeStorage    = "STORAGE_ERROR"
	CodeValidation = "VALIDATION_ERROR"
)

// Common application errors
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrConfiguration     = errors.New("invalid configuration")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrUnreadable        = errors.New("document unreadable")
	ErrDatabase          = errors.New("database error")
	ErrValidation        = errors.New("validation failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigurationError reports malformed configuration. It is raised before any
// page is processed.
func NewConfigurationError(message string) *AppError {
	return NewAppError(CodeConfig, message, ErrConfiguration)
}

// IsConfigurationError reports whether err (or anything it wraps) is a configuration error.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// ToStatus maps an error to a gRPC status error for the daemon.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var code codes.Code
	switch {
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		code = codes.InvalidArgument
	case errors.Is(err, ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, ErrResourceExhausted):
		code = codes.ResourceExhausted
	case errors.Is(err, ErrUnreadable):
		code = codes.FailedPrecondition
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return status.Errorf(codes.InvalidArgument, format, args...)
}
