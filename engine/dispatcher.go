package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/maxbaines/loop/llm"
)

// Dispatcher routes tool invocations from the model to registered tools.
// It is the error boundary for tool execution: every failure, including an
// unknown tool name, malformed input, or a panicking executor, comes back
// as a plain string for the model to read. Dispatch never fails.
type Dispatcher struct {
	registry *Registry
	ws       *Workspace
	emitter  *Emitter
}

// NewDispatcher creates a Dispatcher bound to a registry and workspace.
// The emitter may be nil.
func NewDispatcher(registry *Registry, ws *Workspace, emitter *Emitter) *Dispatcher {
	return &Dispatcher{registry: registry, ws: ws, emitter: emitter}
}

// Definitions exposes the registry's tool definitions for the service call.
func (d *Dispatcher) Definitions() []llm.ToolDefinition {
	return d.registry.Definitions()
}

// Dispatch executes one tool call and returns the result string. Tool
// output is truncated to per-tool limits before being returned.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, input json.RawMessage) string {
	start := time.Now()
	d.emitter.Emit(EventToolStart, map[string]interface{}{
		"tool":  name,
		"input": string(input),
	})

	output := d.execute(ctx, name, input)
	output = truncateToolOutput(name, output)

	d.emitter.Emit(EventToolEnd, map[string]interface{}{
		"tool":        name,
		"output":      output,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return output
}

func (d *Dispatcher) execute(ctx context.Context, name string, input json.RawMessage) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf("Error: tool %s failed internally: %v", name, r)
		}
	}()

	tool := d.registry.Get(name)
	if tool == nil {
		return fmt.Sprintf("Unknown tool: %s", name)
	}
	result, err := tool.Run(ctx, input, d.ws)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return result
}
