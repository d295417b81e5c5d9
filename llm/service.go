package llm

import "context"

// CompletionService is the boundary to the hosted model. Implementations
// receive the full conversation plus tool declarations and return the
// model's next turn. Complete blocks until the call finishes or ctx is
// done; any failure is returned as one of the typed service errors.
type CompletionService interface {
	// Name returns the provider identifier, e.g. "anthropic".
	Name() string

	// Complete sends a blocking completion request and returns the full
	// response.
	Complete(ctx context.Context, req Request) (*Response, error)
}
