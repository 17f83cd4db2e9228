package gateway

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the category of a gateway error
type ErrorType string

const (
	ErrorTypeConfiguration      ErrorType = "configuration"
	ErrorTypeProviderTimeout    ErrorType = "provider_timeout"
	ErrorTypeProviderInvocation ErrorType = "provider_invocation"
	ErrorTypeInvalidJSONOutput  ErrorType = "invalid_json_output"
	ErrorTypeExhausted          ErrorType = "exhausted"
)

// Error is a structured gateway error with a type and optional provider
type Error struct {
	Type     ErrorType
	Provider string
	Message  string
	Err      error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Provider != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: provider %s: %s (%v)", e.Type, e.Provider, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: provider %s: %s", e.Type, e.Provider, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements errors.Is by matching on the error type
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(message string, err error) *Error {
	return &Error{Type: ErrorTypeConfiguration, Message: message, Err: err}
}

// NewTimeoutError creates a per-attempt timeout error
func NewTimeoutError(provider string, purpose Purpose) *Error {
	return &Error{
		Type:     ErrorTypeProviderTimeout,
		Provider: provider,
		Message:  fmt.Sprintf("deadline elapsed before response (purpose=%s)", purpose),
	}
}

// NewInvalidJSONError creates a json_mode violation error
func NewInvalidJSONError(provider string, err error) *Error {
	return &Error{
		Type:     ErrorTypeInvalidJSONOutput,
		Provider: provider,
		Message:  "content is not a JSON object",
		Err:      err,
	}
}

// NewInvocationError wraps a transport/auth/non-2xx provider failure
func NewInvocationError(provider string, err error) *Error {
	return &Error{
		Type:     ErrorTypeProviderInvocation,
		Provider: provider,
		Message:  "provider call failed",
		Err:      err,
	}
}

// ExhaustedError is the terminal failure raised when every provider in a
// resolved route has failed. It carries the attempted provider names and
// the kind/message of the last failure; full per-attempt history is not kept.
type ExhaustedError struct {
	Attempted   []string
	LastType    ErrorType
	LastMessage string
}

// Error implements the error interface
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all providers failed [%s]: last error (%s): %s",
		strings.Join(e.Attempted, ", "), e.LastType, e.LastMessage)
}

// IsConfigurationError checks if an error is a configuration error
func IsConfigurationError(err error) bool {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Type == ErrorTypeConfiguration
	}
	return false
}

// IsTimeoutError checks if an error is a per-attempt timeout error
func IsTimeoutError(err error) bool {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Type == ErrorTypeProviderTimeout
	}
	return false
}

// IsExhaustedError checks if an error is a route exhaustion error
func IsExhaustedError(err error) bool {
	var exhErr *ExhaustedError
	return errors.As(err, &exhErr)
}
