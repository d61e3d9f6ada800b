package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents an API error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// Sentinel errors raised while resolving media
var (
	// ErrTokenNotFound means the landing page did not contain the dtsg marker
	ErrTokenNotFound = errors.New("anti-forgery token not found")
	// ErrUserNotFound means the profile lookup returned no user id
	ErrUserNotFound = errors.New("user not found")
	// ErrReelNotFound means the reel or the requested item is missing from the response
	ErrReelNotFound = errors.New("reel item not found")
	// ErrEmptyResponse means the API answered without a data payload
	ErrEmptyResponse = errors.New("empty response")
)

// TypeOf returns the ErrorType carried by err, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Type
	}
	return ErrorTypeUnknown
}

// IsRetryable checks if an error type should be retried.
// Rate limit responses are surfaced to the caller rather than retried.
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeServerError:
		return true
	case ErrorTypeAuth, ErrorTypeNotFound, ErrorTypeParsing, ErrorTypeRateLimit:
		return false
	default:
		return false
	}
}

// FromStatus maps an HTTP status code to an Error, or nil for non-error codes
func FromStatus(statusCode int) *Error {
	switch {
	case statusCode < 400:
		return nil
	case statusCode == 401 || statusCode == 403:
		return &Error{Type: ErrorTypeAuth, Message: "authentication required", Code: statusCode}
	case statusCode == 404:
		return &Error{Type: ErrorTypeNotFound, Message: "resource not found", Code: statusCode}
	case statusCode == 429:
		return &Error{Type: ErrorTypeRateLimit, Message: "rate limit exceeded", Code: statusCode}
	case statusCode >= 500:
		return &Error{Type: ErrorTypeServerError, Message: "server error", Code: statusCode}
	default:
		return &Error{Type: ErrorTypeUnknown, Message: fmt.Sprintf("unexpected status code: %d", statusCode), Code: statusCode}
	}
}
