package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
)

// GollmService implements CompletionService on top of a gollm.LLM. It
// flattens the block-structured conversation into a gollm prompt, forwards
// the tool declarations, and lifts tool invocations the model emits as JSON
// back into ToolUse blocks.
type GollmService struct {
	provider string
	model    string
	llm      gollm.LLM
}

// GollmOptions configures NewGollmService.
type GollmOptions struct {
	Provider    string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// NewGollmService builds a gollm-backed completion service. Retries are
// disabled: a failed call surfaces immediately as a service error and the
// caller decides whether a human re-invokes.
func NewGollmService(opts GollmOptions) (*GollmService, error) {
	if opts.Provider == "" {
		opts.Provider = "anthropic"
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4096
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.2
	}

	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider(opts.Provider),
		gollm.SetModel(opts.Model),
		gollm.SetMaxTokens(opts.MaxTokens),
		gollm.SetTemperature(opts.Temperature),
		gollm.SetMaxRetries(0),
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if opts.APIKey != "" {
		gollmOpts = append(gollmOpts, gollm.SetAPIKey(opts.APIKey))
	}

	llm, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, &ConfigurationError{ServiceError{
			Message: fmt.Sprintf("failed to create %s client", opts.Provider),
			Cause:   err,
		}}
	}

	return &GollmService{provider: opts.Provider, model: opts.Model, llm: llm}, nil
}

// NewGollmServiceFromLLM wraps an existing gollm.LLM instance.
func NewGollmServiceFromLLM(provider, model string, llm gollm.LLM) *GollmService {
	return &GollmService{provider: provider, model: model, llm: llm}
}

// Name returns the provider identifier.
func (s *GollmService) Name() string {
	return s.provider
}

// Complete sends a blocking request and returns the model's next turn.
func (s *GollmService) Complete(ctx context.Context, req Request) (*Response, error) {
	prompt := s.translateRequest(req)

	text, err := s.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, s.translateError(err)
	}

	return s.buildResponse(req, text), nil
}

// translateRequest flattens the conversation into a gollm Prompt. gollm
// takes a single prompt string, so prior turns are rendered as labeled
// transcript lines with the system prompt carried separately.
func (s *GollmService) translateRequest(req Request) *gollm.Prompt {
	var parts []string
	for _, msg := range req.Messages {
		for _, block := range msg.Content {
			switch block.Kind {
			case BlockText:
				if block.Text == "" {
					continue
				}
				if msg.Role == RoleAssistant {
					parts = append(parts, "[Assistant]: "+block.Text)
				} else {
					parts = append(parts, block.Text)
				}
			case BlockToolUse:
				if block.ToolUse != nil {
					parts = append(parts, fmt.Sprintf("[Tool Call] %s(%s)",
						block.ToolUse.Name, string(block.ToolUse.Input)))
				}
			case BlockToolResult:
				if block.ToolResult != nil {
					prefix := "[Tool Result]"
					if block.ToolResult.IsError {
						prefix = "[Tool Error]"
					}
					parts = append(parts, prefix+": "+block.ToolResult.Content)
				}
			}
		}
	}

	promptText := strings.Join(parts, "\n")
	if promptText == "" {
		promptText = "Continue."
	}

	promptOpts := []gollm.PromptOption{}
	if req.System != "" {
		promptOpts = append(promptOpts,
			gollm.WithSystemPrompt(strings.TrimSpace(req.System), gollm.CacheTypeEphemeral))
	}
	if req.MaxTokens != nil {
		promptOpts = append(promptOpts, gollm.WithMaxLength(*req.MaxTokens))
	}
	if len(req.Tools) > 0 {
		tools := make([]gollm.Tool, 0, len(req.Tools))
		for _, t := range req.Tools {
			tools = append(tools, gollm.Tool{
				Type: "function",
				Function: gollm.Function{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			})
		}
		promptOpts = append(promptOpts, gollm.WithTools(tools))
	}

	return gollm.NewPrompt(promptText, promptOpts...)
}

// buildResponse constructs a Response from generated text, lifting embedded
// tool-call JSON into ToolUse blocks.
func (s *GollmService) buildResponse(req Request, text string) *Response {
	uses := parseToolUses(text)

	var blocks []ContentBlock
	cleaned := stripToolUseJSON(text, uses)
	if cleaned != "" {
		blocks = append(blocks, TextBlock(cleaned))
	}
	for _, u := range uses {
		blocks = append(blocks, ContentBlock{Kind: BlockToolUse, ToolUse: &u})
	}
	if len(blocks) == 0 {
		blocks = []ContentBlock{TextBlock(text)}
	}

	stop := StopEndTurn
	if len(uses) > 0 {
		stop = StopToolUse
	}

	inTokens := estimateRequestTokens(req)
	outTokens := len(text) / 4

	return &Response{
		Message:    Message{Role: RoleAssistant, Content: blocks},
		StopReason: stop,
		Usage: Usage{
			InputTokens:  inTokens,
			OutputTokens: outTokens,
			TotalTokens:  inTokens + outTokens,
		},
	}
}

// parseToolUses extracts tool invocations the model emitted as JSON in its
// text, e.g. `[{"name": "read_file", "arguments": {...}}]`.
func parseToolUses(text string) []ToolUseData {
	start := strings.Index(text, `{"tool_calls"`)
	if start == -1 {
		start = strings.Index(text, `[{"name"`)
	}
	if start == -1 {
		return nil
	}

	var rawCalls []struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
		Input     json.RawMessage `json:"input"`
	}
	if err := json.Unmarshal([]byte(text[start:]), &rawCalls); err != nil {
		return nil
	}

	var uses []ToolUseData
	for _, rc := range rawCalls {
		input := rc.Arguments
		if len(input) == 0 {
			input = rc.Input
		}
		uses = append(uses, ToolUseData{
			ID:    "toolu_" + uuid.New().String()[:8],
			Name:  rc.Name,
			Input: input,
		})
	}
	return uses
}

// stripToolUseJSON drops the parsed tool-call JSON from the text so it does
// not leak into the accumulated output.
func stripToolUseJSON(text string, uses []ToolUseData) string {
	if len(uses) == 0 {
		return strings.TrimSpace(text)
	}
	result := text
	for _, marker := range []string{`{"tool_calls"`, `[{"name"`} {
		if idx := strings.Index(result, marker); idx != -1 {
			result = result[:idx]
		}
	}
	return strings.TrimSpace(result)
}

// translateError classifies a gollm error into the service error taxonomy.
// gollm loses the HTTP status, so classification is by message content.
func (s *GollmService) translateError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "401"),
		strings.Contains(lower, "unauthorized"),
		strings.Contains(lower, "invalid api key"),
		strings.Contains(lower, "invalid key"):
		return &AuthenticationError{ServiceError{Message: msg, Cause: err}}
	case strings.Contains(lower, "429"),
		strings.Contains(lower, "rate limit"),
		strings.Contains(lower, "quota"):
		return &RateLimitError{ServiceError{Message: msg, Cause: err}}
	case strings.Contains(lower, "500"),
		strings.Contains(lower, "502"),
		strings.Contains(lower, "503"),
		strings.Contains(lower, "internal server"),
		strings.Contains(lower, "overloaded"):
		return &ServerError{ServiceError: ServiceError{Message: msg, Cause: err}, StatusCode: 500}
	case strings.Contains(lower, "400"),
		strings.Contains(lower, "invalid request"),
		strings.Contains(lower, "context length"),
		strings.Contains(lower, "too many tokens"):
		return &InvalidRequestError{ServiceError{Message: msg, Cause: err}}
	case strings.Contains(lower, "timeout"),
		strings.Contains(lower, "connection"),
		strings.Contains(lower, "network"),
		strings.Contains(lower, "no such host"),
		strings.Contains(lower, "eof"):
		return &NetworkError{ServiceError{Message: msg, Cause: err}}
	default:
		return &ServiceError{Message: msg, Cause: err}
	}
}

// estimateRequestTokens approximates the prompt size. gollm does not expose
// provider usage, so both sides of Usage are chars/4 estimates.
func estimateRequestTokens(req Request) int {
	total := len(req.System)
	for _, msg := range req.Messages {
		for _, block := range msg.Content {
			switch block.Kind {
			case BlockText:
				total += len(block.Text)
			case BlockToolUse:
				if block.ToolUse != nil {
					total += len(block.ToolUse.Name) + len(block.ToolUse.Input)
				}
			case BlockToolResult:
				if block.ToolResult != nil {
					total += len(block.ToolResult.Content)
				}
			}
		}
	}
	tokens := total / 4
	if tokens == 0 {
		tokens = 10
	}
	return tokens
}
