// Package tasklist models the PRD-style backlog the engine works through:
// an ordered list of task items with categories, priorities, and acceptance
// steps, serializable as JSON or Markdown. It also hosts the one-shot
// generation round trips that produce a task list or a guidelines document
// from a plain-language description.
package tasklist

import (
	"fmt"
	"strconv"
	"strings"
)

// Category classifies what kind of work a task item is.
type Category string

const (
	CategorySetup         Category = "setup"
	CategoryArchitecture  Category = "architecture"
	CategoryFunctional    Category = "functional"
	CategoryTesting       Category = "testing"
	CategoryDocumentation Category = "documentation"
	CategoryPolish        Category = "polish"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategorySetup, CategoryArchitecture, CategoryFunctional,
		CategoryTesting, CategoryDocumentation, CategoryPolish:
		return true
	}
	return false
}

// Priority orders task items for selection.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// TaskItem is one unit of work. Passes starts false and flips when the
// item's acceptance steps are verified.
type TaskItem struct {
	ID          string   `json:"id"`
	Category    Category `json:"category"`
	Description string   `json:"description"`
	Steps       []string `json:"steps"`
	Priority    Priority `json:"priority"`
	Passes      bool     `json:"passes"`
}

// TaskList is the full backlog.
type TaskList struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Items       []TaskItem `json:"items"`
}

// Normalize fills defaults in place: missing ids become the 1-based item
// index as a string (existing ids are never overwritten), unknown
// priorities become medium, unknown categories become functional.
func (l *TaskList) Normalize() {
	for i := range l.Items {
		item := &l.Items[i]
		if item.ID == "" {
			item.ID = strconv.Itoa(i + 1)
		}
		if !item.Priority.Valid() {
			item.Priority = PriorityMedium
		}
		if !item.Category.Valid() {
			item.Category = CategoryFunctional
		}
	}
}

// Validate checks structural requirements after normalization.
func (l *TaskList) Validate() error {
	for i, item := range l.Items {
		if strings.TrimSpace(item.Description) == "" {
			return &ParseError{
				Message: fmt.Sprintf("item %d (id %q) has no description", i+1, item.ID),
			}
		}
	}
	return nil
}

// Pending returns the items not yet passing, in list order.
func (l *TaskList) Pending() []TaskItem {
	var pending []TaskItem
	for _, item := range l.Items {
		if !item.Passes {
			pending = append(pending, item)
		}
	}
	return pending
}

// Done reports whether every item passes. An empty list counts as done.
func (l *TaskList) Done() bool {
	return len(l.Pending()) == 0
}

// Summary renders the backlog as a compact text block for prompt building.
func (l *TaskList) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Task list: %s\n", l.Name)
	if l.Description != "" {
		fmt.Fprintf(&sb, "%s\n", l.Description)
	}
	for _, item := range l.Items {
		mark := " "
		if item.Passes {
			mark = "x"
		}
		fmt.Fprintf(&sb, "- [%s] #%s (%s, %s) %s\n",
			mark, item.ID, item.Priority, item.Category, item.Description)
		for _, step := range item.Steps {
			fmt.Fprintf(&sb, "    - %s\n", step)
		}
	}
	return sb.String()
}

// ParseError reports a malformed task-list file or malformed model-generated
// task-list text. It is fatal to the operation that triggered it.
type ParseError struct {
	Path    string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = fmt.Sprintf("task list %s: %s", e.Path, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
