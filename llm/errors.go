package llm

import (
	"errors"
	"fmt"
)

// ServiceError is the base type for every error originating from the
// completion service. A ServiceError aborts the iteration that triggered
// it; the engine never retries internally.
type ServiceError struct {
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

func (e *ServiceError) isServiceError() {}

// Concrete service error types.

// AuthenticationError indicates a rejected or missing credential.
type AuthenticationError struct{ ServiceError }

// RateLimitError indicates the provider refused the call for quota reasons.
type RateLimitError struct{ ServiceError }

// ServerError indicates a provider-side failure.
type ServerError struct {
	ServiceError
	StatusCode int
}

func (e *ServerError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status=%d)", e.ServiceError.Error(), e.StatusCode)
	}
	return e.ServiceError.Error()
}

// NetworkError indicates the call never reached the provider.
type NetworkError struct{ ServiceError }

// InvalidRequestError indicates the provider rejected the request shape.
type InvalidRequestError struct{ ServiceError }

// ConfigurationError indicates the client was built with unusable settings.
type ConfigurationError struct{ ServiceError }

type serviceMarker interface{ isServiceError() }

// IsServiceError reports whether err, or anything it wraps, originated from
// the completion service.
func IsServiceError(err error) bool {
	var marker serviceMarker
	return errors.As(err, &marker)
}
