package tasklist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/maxbaines/loop/llm"
)

const generatePrompt = `You are a technical project planner. Produce a task list for the project described below.

Respond with ONLY a JSON object, no prose, in this exact shape:

{
  "name": "short project name",
  "description": "one-paragraph summary",
  "items": [
    {
      "category": "setup|architecture|functional|testing|documentation|polish",
      "description": "what to build or change",
      "steps": ["verifiable acceptance step", "..."],
      "priority": "high|medium|low"
    }
  ]
}

Order items so earlier ones unblock later ones. Keep each item small enough
to finish in one working session.

Project description:
%s`

const refinePrompt = `You are a technical project planner. Below is the current task list as JSON, followed by feedback. Apply the feedback and respond with ONLY the full revised JSON object in the same shape. Keep the ids of items you preserve.

Current task list:
%s

Feedback:
%s`

const guidelinesPrompt = `Write a concise project guidelines document (Markdown) for the project described below. Cover: code style, testing expectations, commit conventions, and anything a coding agent should know before changing files. Respond with only the document, no preamble.

Project description:
%s`

// Generate asks the completion service for a task list matching the
// description. One blocking call, no tools; malformed output is a
// ParseError.
func Generate(ctx context.Context, svc llm.CompletionService, model, description string) (*TaskList, error) {
	prompt := fmt.Sprintf(generatePrompt, description)
	return roundTrip(ctx, svc, model, prompt)
}

// Refine sends the current list plus feedback back through the service and
// returns the revised list.
func Refine(ctx context.Context, svc llm.CompletionService, model string, list *TaskList, feedback string) (*TaskList, error) {
	current, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf(refinePrompt, current, feedback)
	return roundTrip(ctx, svc, model, prompt)
}

// GenerateGuidelines asks the completion service for a project guidelines
// document and returns it verbatim.
func GenerateGuidelines(ctx context.Context, svc llm.CompletionService, model, description string) (string, error) {
	resp, err := svc.Complete(ctx, llm.Request{
		Model:    model,
		Messages: []llm.Message{llm.UserMessage(fmt.Sprintf(guidelinesPrompt, description))},
	})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", &ParseError{Message: "model returned an empty guidelines document"}
	}
	return text, nil
}

func roundTrip(ctx context.Context, svc llm.CompletionService, model, prompt string) (*TaskList, error) {
	resp, err := svc.Complete(ctx, llm.Request{
		Model:    model,
		Messages: []llm.Message{llm.UserMessage(prompt)},
	})
	if err != nil {
		return nil, err
	}

	raw := extractJSON(resp.Text())
	if raw == "" {
		return nil, &ParseError{Message: "model response contains no JSON object"}
	}

	var list TaskList
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, &ParseError{Message: "model returned invalid task list JSON", Cause: err}
	}

	list.Normalize()
	if err := list.Validate(); err != nil {
		return nil, err
	}
	return &list, nil
}

// extractJSON pulls the first JSON object out of model text, tolerating
// code fences and surrounding prose.
func extractJSON(text string) string {
	if idx := strings.Index(text, "```json"); idx != -1 {
		rest := text[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end != -1 {
			return strings.TrimSpace(rest[:end])
		}
	}
	if idx := strings.Index(text, "```"); idx != -1 {
		rest := text[idx+3:]
		if end := strings.Index(rest, "```"); end != -1 {
			candidate := strings.TrimSpace(rest[:end])
			if strings.HasPrefix(candidate, "{") {
				return candidate
			}
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return ""
	}
	return strings.TrimSpace(text[start : end+1])
}
