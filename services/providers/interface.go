package providers

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Provider is a single configured backend capable of generating text.
//
// Implementations perform no retry and no timeout handling of their own;
// both are the gateway's responsibility. Cancellation arrives through the
// context and must propagate into the underlying transport.
type Provider interface {
	// Name returns the provider name (e.g., "deepseek", "openai", "local")
	Name() string

	// Model returns the model identifier this provider is bound to
	Model() string

	// Generate performs one generation call and returns the raw content
	Generate(ctx context.Context, in GenerateInput) (string, error)
}

// Config holds the startup configuration for one provider.
// Built once from the environment and immutable for the process lifetime.
type Config struct {
	// Name is the unique registry key
	Name string `validate:"required"`

	// BaseURL is the transport base address; empty means the
	// implementation's default endpoint
	BaseURL string `validate:"omitempty,url"`

	// APIKey is the credential sent as a bearer token
	APIKey string

	// Model is the model identifier requested from the backend
	Model string `validate:"required"`

	// Enabled marks the provider as eligible for routing
	Enabled bool

	// DefaultTimeout bounds an attempt when neither the request nor the
	// purpose supplies a timeout; zero means unbounded
	DefaultTimeout time.Duration
}

// GenerateInput is the provider-facing slice of a generation request.
// The routing purpose is deliberately absent: it must never reach a backend.
type GenerateInput struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64

	// JSONMode asks the backend for structured output when supported.
	// The gateway verifies the result either way.
	JSONMode bool
}

// InvocationError is a transport, authentication, or non-2xx failure
// raised by a provider implementation.
type InvocationError struct {
	// Provider that generated the error
	Provider string

	// StatusCode is the HTTP status code, when applicable
	StatusCode int

	// Message is the error message
	Message string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *InvocationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Message)
}

// Unwrap implements error unwrapping
func (e *InvocationError) Unwrap() error {
	return e.Cause
}

// NewInvocationError creates a new invocation error
func NewInvocationError(provider, message string, statusCode int, cause error) *InvocationError {
	return &InvocationError{
		Provider:   provider,
		StatusCode: statusCode,
		Message:    message,
		Cause:      cause,
	}
}

// IsInvocationError checks if an error is a provider invocation error
func IsInvocationError(err error) bool {
	var invErr *InvocationError
	return errors.As(err, &invErr)
}
