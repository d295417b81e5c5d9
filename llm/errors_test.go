package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceErrorMessage(t *testing.T) {
	t.Parallel()

	bare := &ServiceError{Message: "call failed"}
	assert.Equal(t, "call failed", bare.Error())

	wrapped := &ServiceError{Message: "call failed", Cause: errors.New("dial tcp: refused")}
	assert.Equal(t, "call failed: dial tcp: refused", wrapped.Error())
	assert.Equal(t, "dial tcp: refused", errors.Unwrap(wrapped).Error())
}

func TestIsServiceError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"bare base", &ServiceError{Message: "x"}, true},
		{"auth", &AuthenticationError{ServiceError{Message: "401"}}, true},
		{"rate limit", &RateLimitError{ServiceError{Message: "429"}}, true},
		{"server", &ServerError{ServiceError: ServiceError{Message: "500"}, StatusCode: 500}, true},
		{"network", &NetworkError{ServiceError{Message: "eof"}}, true},
		{"wrapped", fmt.Errorf("iteration 3: %w", &NetworkError{ServiceError{Message: "eof"}}), true},
		{"plain error", errors.New("not service"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsServiceError(tt.err))
		})
	}
}

func TestServerErrorIncludesStatus(t *testing.T) {
	t.Parallel()

	err := &ServerError{ServiceError: ServiceError{Message: "upstream failed"}, StatusCode: 503}
	assert.Contains(t, err.Error(), "status=503")
}

func TestErrorsAsFindsConcreteType(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("completion: %w", &AuthenticationError{ServiceError{Message: "bad key"}})

	var authErr *AuthenticationError
	require.True(t, errors.As(wrapped, &authErr))
	assert.Equal(t, "bad key", authErr.Message)
}
