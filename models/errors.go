package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies an AppError for the response layer.
type ErrorCode string

const (
	CodeValidation            ErrorCode = "VALIDATION_ERROR"
	CodeNotFound              ErrorCode = "NOT_FOUND"
	CodeForbidden             ErrorCode = "FORBIDDEN"
	CodeUnauthorized          ErrorCode = "UNAUTHORIZED"
	CodeUpstreamConfiguration ErrorCode = "UPSTREAM_CONFIGURATION_ERROR"
	CodePartialWrite          ErrorCode = "PARTIAL_WRITE"
	CodeInternal              ErrorCode = "INTERNAL_ERROR"
)

// AppError represents a custom application error
type AppError struct {
	Code    ErrorCode
	Message string
	Details any
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Status maps the error code to an HTTP status.
func (e *AppError) Status() int {
	switch e.Code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

var (
	ErrRecipeNotFound  = NewNotFoundError("Recipe not found")
	ErrCommentNotFound = NewNotFoundError("Comment not found")
	ErrUserNotFound    = NewNotFoundError("User not found")

	ErrCommentEditForbidden   = NewForbiddenError("User not authorized to edit this comment")
	ErrCommentDeleteForbidden = NewForbiddenError("User not authorized to delete this comment")
)

// Predefined error constructors
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: CodeNotFound, Message: message}
}

func NewValidationError(message string, details any) *AppError {
	return &AppError{Code: CodeValidation, Message: message, Details: details}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{Code: CodeForbidden, Message: message}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: message}
}

func NewUpstreamConfigurationError(message string) *AppError {
	return &AppError{Code: CodeUpstreamConfiguration, Message: message}
}

// NewPartialWriteError reports a multi-document change that stopped halfway.
// message is sent to the client as is.
func NewPartialWriteError(message string, err error) *AppError {
	return &AppError{Code: CodePartialWrite, Message: message, Err: err}
}

func NewInternalError(err error) *AppError {
	return &AppError{Code: CodeInternal, Message: "Internal server error", Err: err}
}

// CodeOf returns the code of the first AppError in err's chain, or CodeInternal.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}
