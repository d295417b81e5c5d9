// Package llm is the completion-service client layer. It models a
// conversation as block-structured turns, declares the tool wire contract,
// and defines the typed service errors the engine's error handling is built
// on.
//
// # Content model
//
// A Message is one turn with a role (user or assistant) and an ordered list
// of ContentBlock values. ContentBlock is a tagged union: exactly one of
// Text, ToolUse, or ToolResult is populated, selected by Kind. The engine
// matches on Kind exhaustively rather than probing fields.
//
// # Completion service
//
// CompletionService is the single boundary to the hosted model:
//
//	svc, err := llm.NewGollmService(llm.GollmOptions{
//	    Provider: "anthropic",
//	    APIKey:   os.Getenv("ANTHROPIC_API_KEY"),
//	    Model:    "claude-sonnet-4-20250514",
//	})
//
//	resp, err := svc.Complete(ctx, llm.Request{
//	    System:   "You are a coding agent.",
//	    Messages: []llm.Message{llm.UserMessage("Begin.")},
//	    Tools:    registryDefinitions,
//	})
//
// GollmService wraps gollm (github.com/teilomillet/gollm) with retries
// disabled. A failed call surfaces as one of the typed errors below and the
// caller stops; re-invocation is a human decision.
//
// # Errors
//
// Every error from a CompletionService embeds ServiceError and answers true
// to IsServiceError, including through fmt.Errorf("%w") wrapping. Concrete
// types (AuthenticationError, RateLimitError, ServerError, NetworkError,
// InvalidRequestError, ConfigurationError) exist for callers that want to
// distinguish causes in output.
package llm
