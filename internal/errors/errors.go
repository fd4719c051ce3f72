package errors

import (
	"errors"
	"fmt"
)

// Domain-specific error types
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrDuplicateEntry indicates a unique constraint violation
	ErrDuplicateEntry = errors.New("duplicate entry")

	// ErrInvalidInput indicates invalid input data
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfiguration indicates missing or invalid configuration, such as the operator address
	ErrConfiguration = errors.New("configuration error")

	// ErrMalformedInput indicates a message whose address fields cannot be parsed
	ErrMalformedInput = errors.New("malformed input")

	// ErrNoDecisionPossible indicates an empty thread
	ErrNoDecisionPossible = errors.New("no decision possible")

	// ErrParticipantNotFound indicates the participant was not found
	ErrParticipantNotFound = errors.New("participant not found")

	// ErrTrackingNotFound indicates the tracking record was not found
	ErrTrackingNotFound = errors.New("tracking record not found")

	// ErrGatewayUnavailable indicates the mailbox gateway could not be reached
	ErrGatewayUnavailable = errors.New("mailbox gateway unavailable")

	// ErrSendFailed indicates the outbound sender rejected or failed a message
	ErrSendFailed = errors.New("send failed")

	// ErrUnauthorized indicates unauthorized access
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates forbidden access
	ErrForbidden = errors.New("forbidden")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal server error")
)

// Error codes for API responses
const (
	CodeNotFound           = "NOT_FOUND"
	CodeDuplicateEntry     = "DUPLICATE_ENTRY"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeConfiguration      = "CONFIGURATION_ERROR"
	CodeMalformedInput     = "MALFORMED_INPUT"
	CodeNoDecisionPossible = "NO_DECISION_POSSIBLE"
	CodeGatewayUnavailable = "GATEWAY_UNAVAILABLE"
	CodeSendFailed         = "SEND_FAILED"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeInternalError      = "INTERNAL_ERROR"
)

// AppError represents an application error with context
type AppError struct {
	Err     error
	Message string
	Code    string
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(err error, message string, code string) *AppError {
	return &AppError{
		Err:     err,
		Message: message,
		Code:    code,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrParticipantNotFound) ||
		errors.Is(err, ErrTrackingNotFound)
}

// IsDuplicateEntry checks if the error is a duplicate entry error
func IsDuplicateEntry(err error) bool {
	return errors.Is(err, ErrDuplicateEntry)
}

// IsInvalidInput checks if the error is an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrMalformedInput)
}

// IsConfiguration checks if the error is a configuration error
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// GetErrorCode returns the appropriate error code for an error
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr.Code
	}

	switch {
	case IsNotFound(err):
		return CodeNotFound
	case IsDuplicateEntry(err):
		return CodeDuplicateEntry
	case errors.Is(err, ErrMalformedInput):
		return CodeMalformedInput
	case IsInvalidInput(err):
		return CodeInvalidInput
	case IsConfiguration(err):
		return CodeConfiguration
	case errors.Is(err, ErrNoDecisionPossible):
		return CodeNoDecisionPossible
	case errors.Is(err, ErrGatewayUnavailable):
		return CodeGatewayUnavailable
	case errors.Is(err, ErrSendFailed):
		return CodeSendFailed
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	default:
		return CodeInternalError
	}
}
