// Package engine drives the agentic iteration loop: it pairs a completion
// service with a tool dispatcher and walks a task list to completion one
// iteration at a time.
//
// # Architecture
//
// A Controller owns the run. Each iteration it builds a system prompt from
// the task list, prior progress, and project guidelines, then hands it to a
// ConversationLoop. The loop calls the completion service, dispatches any
// requested tools through the Dispatcher, feeds results back, and repeats
// until the model stops asking for tools, the round cap is reached, or a
// repeating tool-call pattern is detected. The accumulated assistant text
// is scanned for the completion marker and parsed into a structured report.
//
// # Tools
//
// Tools live in a Registry built explicitly per run. The Dispatcher is the
// error boundary: an unknown tool name, bad input, or a failing executor
// all come back to the model as plain "Error: ..." strings, never as
// failures of the loop itself. File tools resolve paths against the
// workspace and reject anything escaping it; the shell tool runs commands
// in their own process group and kills the whole group on timeout.
//
// # Feedback
//
// After each successful iteration the controller runs the project's tests,
// type checker, and linter concurrently. When all three pass (a check with
// no configured tool counts as passing) the work is committed.
//
// # Observability
//
// Every step emits an Event on a buffered channel for the CLI to render.
// Emission never blocks the run; events are dropped when the consumer falls
// behind.
package engine
