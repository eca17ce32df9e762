package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents different types of errors a mirror request can end in
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents a failed mirror request with type information
type Error struct {
	Type     ErrorType
	Message  string
	Code     int
	Endpoint string
	Err      error
}

func (e *Error) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("%s error (code %d) from %s: %s", e.Type, e.Code, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error
func New(errType ErrorType, code int, endpoint, message string) *Error {
	return &Error{
		Type:     errType,
		Message:  message,
		Code:     code,
		Endpoint: endpoint,
	}
}

// Wrap creates a typed error around a cause
func Wrap(errType ErrorType, endpoint string, err error) *Error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Type:     errType,
		Message:  msg,
		Endpoint: endpoint,
		Err:      err,
	}
}

// FromStatus maps a non-2xx HTTP status to a typed error
func FromStatus(statusCode int, endpoint string) *Error {
	errType := ErrorTypeUnknown
	switch {
	case statusCode == http.StatusTooManyRequests:
		errType = ErrorTypeRateLimit
	case statusCode == http.StatusNotFound:
		errType = ErrorTypeNotFound
	case statusCode >= 500:
		errType = ErrorTypeServerError
	}
	return New(errType, statusCode, endpoint, fmt.Sprintf("unexpected status code: %d", statusCode))
}

// TypeOf returns the ErrorType carried by err, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}
