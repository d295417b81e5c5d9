package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/maxbaines/loop/llm"
)

// Workspace is the fixed execution target for every tool in a run: the
// working directory and the default command timeout. It is passed read-only
// to tool functions.
type Workspace struct {
	Dir            string
	CommandTimeout time.Duration
}

// ToolFunc executes one tool invocation. The returned string goes back to
// the model verbatim (after truncation); a returned error is converted by
// the Dispatcher into an "Error: ..." string, never surfaced further.
type ToolFunc func(ctx context.Context, args json.RawMessage, ws *Workspace) (string, error)

// Tool pairs the wire-contract definition with its executor.
type Tool struct {
	Definition llm.ToolDefinition
	Run        ToolFunc
}

// Registry holds the tool set for a run. It is built once, before the run
// starts, and read-only afterwards; there is no ambient global registry.
type Registry struct {
	tools map[string]*Tool
	order []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds or replaces a tool. Call before the registry is shared.
func (r *Registry) Register(tool Tool) {
	name := tool.Definition.Name
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = &tool
}

// Get returns a registered tool by name, or nil.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// Definitions returns all tool definitions in registration order, for
// advertising to the completion service.
func (r *Registry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(r.tools))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition)
	}
	return defs
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	return len(r.tools)
}

// DefaultRegistry builds the full core tool set: file I/O, search, shell
// execution, feedback checks, and version control.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	registerFileTools(reg)
	registerExecTools(reg)
	registerGitTools(reg)
	return reg
}

// parseArgs unmarshals tool input into a map for field access.
func parseArgs(raw json.RawMessage) (map[string]interface{}, error) {
	if len(raw) == 0 {
		return map[string]interface{}{}, nil
	}
	var args map[string]interface{}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid tool input: %w", err)
	}
	return args, nil
}

func stringArg(args map[string]interface{}, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func intArg(args map[string]interface{}, key string) (int, bool) {
	v, ok := args[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

func boolArg(args map[string]interface{}, key string) (bool, bool) {
	v, ok := args[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}
