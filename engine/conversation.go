package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/maxbaines/loop/llm"
)

// CompletionMarker is the literal string the model emits to declare every
// task finished. Scanning the accumulated assistant text for it is the sole
// completion signal.
const CompletionMarker = "ALL_TASKS_COMPLETE"

// DefaultMaxToolRounds caps service round-trips within one iteration.
const DefaultMaxToolRounds = 25

// LoopOptions configures a ConversationLoop.
type LoopOptions struct {
	Model     string
	MaxTokens int
	MaxRounds int
	Marker    string
	Emitter   *Emitter
}

// LoopResult is what one conversation produced: the accumulated assistant
// text, the paths targeted by file writes, whether the completion marker
// appeared, and the full turn trace.
type LoopResult struct {
	Text               string
	FilesChanged       []string
	CompletionDetected bool
	Rounds             int
	Turns              []llm.Message
	Err                error
}

// ConversationLoop drives one conversation with the completion service:
// call, dispatch any tool uses, feed results back, repeat until the model
// stops asking for tools or a limit intervenes.
type ConversationLoop struct {
	svc        llm.CompletionService
	dispatcher *Dispatcher
	opts       LoopOptions
}

// NewConversationLoop creates a loop over a service and dispatcher.
func NewConversationLoop(svc llm.CompletionService, dispatcher *Dispatcher, opts LoopOptions) *ConversationLoop {
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = DefaultMaxToolRounds
	}
	if opts.Marker == "" {
		opts.Marker = CompletionMarker
	}
	return &ConversationLoop{svc: svc, dispatcher: dispatcher, opts: opts}
}

// Run executes one full conversation and never returns nil. A service
// failure is reported in LoopResult.Err alongside whatever text accumulated
// before it.
func (cl *ConversationLoop) Run(ctx context.Context, systemPrompt, instruction string) *LoopResult {
	res := &LoopResult{}
	messages := []llm.Message{llm.UserMessage(instruction)}
	tools := cl.dispatcher.Definitions()
	emitter := cl.opts.Emitter

	var output strings.Builder
	var signatures []string

	for {
		if res.Rounds >= cl.opts.MaxRounds {
			emitter.Emit(EventRoundLimit, map[string]interface{}{"rounds": res.Rounds})
			break
		}
		if err := ctx.Err(); err != nil {
			res.Err = fmt.Errorf("conversation cancelled: %w", err)
			break
		}

		req := llm.Request{
			Model:    cl.opts.Model,
			System:   systemPrompt,
			Messages: messages,
			Tools:    tools,
		}
		if cl.opts.MaxTokens > 0 {
			maxTokens := cl.opts.MaxTokens
			req.MaxTokens = &maxTokens
		}

		emitter.Emit(EventServiceCall, map[string]interface{}{"round": res.Rounds + 1})
		resp, err := cl.svc.Complete(ctx, req)
		res.Rounds++
		if err != nil {
			res.Err = err
			emitter.Emit(EventError, map[string]interface{}{"error": err.Error()})
			break
		}

		messages = append(messages, resp.Message)
		if text := resp.Text(); text != "" {
			output.WriteString(text)
			output.WriteString("\n")
			emitter.Emit(EventAssistantText, map[string]interface{}{"text": text})
		}
		if !res.CompletionDetected && strings.Contains(output.String(), cl.opts.Marker) {
			res.CompletionDetected = true
			emitter.Emit(EventCompletion, nil)
		}

		uses := resp.ToolUses()
		if len(uses) == 0 || resp.StopReason == llm.StopEndTurn {
			break
		}

		results := make([]llm.ContentBlock, 0, len(uses))
		for _, use := range uses {
			out := cl.dispatcher.Dispatch(ctx, use.Name, use.Input)
			isError := strings.HasPrefix(out, "Error:") || strings.HasPrefix(out, "Unknown tool:")
			results = append(results, llm.ToolResultBlock(use.ID, out, isError))

			if use.Name == "write_file" {
				if path := writeTargetPath(use.Input); path != "" {
					res.FilesChanged = appendUnique(res.FilesChanged, path)
				}
			}
			signatures = append(signatures, toolCallSignature(use.Name, use.Input))
		}
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: results})

		if detectLoop(signatures) {
			emitter.Emit(EventLoopDetected, map[string]interface{}{"signatures": len(signatures)})
			break
		}
	}

	res.Text = strings.TrimSpace(output.String())
	res.Turns = messages
	return res
}

// writeTargetPath extracts the path argument of a write_file call. Returns
// "" when the input has no usable path.
func writeTargetPath(input json.RawMessage) string {
	var args struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return ""
	}
	return args.Path
}

func appendUnique(list []string, item string) []string {
	for _, existing := range list {
		if existing == item {
			return list
		}
	}
	return append(list, item)
}
