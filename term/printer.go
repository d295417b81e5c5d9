// Package term renders run events as styled terminal output.
package term

import (
	"fmt"
	"io"
	"strings"

	"github.com/maxbaines/loop/engine"
)

const toolOutputPreviewLines = 12

// Printer consumes engine events and writes a line-oriented account of the
// run. In verbose mode it also echoes tool inputs and outputs.
type Printer struct {
	out     io.Writer
	theme   Theme
	verbose bool
}

// NewPrinter creates a Printer writing to out.
func NewPrinter(out io.Writer, theme Theme, verbose bool) *Printer {
	return &Printer{out: out, theme: theme, verbose: verbose}
}

// Consume renders events until the channel closes.
func (p *Printer) Consume(events <-chan engine.Event) {
	for ev := range events {
		if line := p.render(ev); line != "" {
			fmt.Fprintln(p.out, line)
		}
	}
}

func (p *Printer) render(ev engine.Event) string {
	switch ev.Kind {
	case engine.EventRunStart:
		banner := p.theme.TitleStyle.Render(fmt.Sprintf("run %s: %v iteration(s), model %v",
			shortID(ev.RunID), ev.Data["iterations"], ev.Data["model"]))
		return p.theme.BoxStyle.Render(banner)
	case engine.EventIterationStart:
		return p.theme.IterationStyle.Render(fmt.Sprintf("=== iteration %v of %v ===",
			ev.Data["iteration"], ev.Data["total"]))
	case engine.EventAssistantText:
		return strings.TrimRight(dataString(ev, "text"), "\n")
	case engine.EventToolStart:
		line := p.theme.ToolStyle.Render(fmt.Sprintf("tool %s", dataString(ev, "tool")))
		if p.verbose {
			if input := dataString(ev, "input"); input != "" {
				line += p.theme.MutedStyle.Render(" " + input)
			}
		}
		return line
	case engine.EventToolEnd:
		if !p.verbose {
			return ""
		}
		output := previewLines(dataString(ev, "output"), toolOutputPreviewLines)
		return p.theme.OutputStyle.Render(indent(output, "  "))
	case engine.EventCompletion:
		return p.theme.SuccessStyle.Render("task list complete")
	case engine.EventRoundLimit:
		return p.theme.WarningStyle.Render(fmt.Sprintf("tool round limit reached (%v rounds)", ev.Data["rounds"]))
	case engine.EventLoopDetected:
		return p.theme.WarningStyle.Render("repeating tool calls detected, stopping this iteration")
	case engine.EventChecks:
		if passed, ok := ev.Data["passed"].(bool); ok && !passed {
			return p.theme.WarningStyle.Render("feedback checks failed, skipping commit")
		}
		return p.theme.SuccessStyle.Render("feedback checks passed")
	case engine.EventCommit:
		if committed, ok := ev.Data["committed"].(bool); ok && committed {
			return p.theme.SuccessStyle.Render("committed: " + firstLine(dataString(ev, "output")))
		}
		return p.theme.MutedStyle.Render("nothing to commit")
	case engine.EventPaused:
		return p.theme.WarningStyle.Render(fmt.Sprintf("paused after iteration %v", ev.Data["iteration"]))
	case engine.EventResumed:
		return p.theme.SuccessStyle.Render("resumed")
	case engine.EventAborted:
		return p.theme.WarningStyle.Render("run aborted by user")
	case engine.EventError:
		return p.theme.ErrorStyle.Render("error: " + dataString(ev, "error"))
	case engine.EventIterationEnd:
		if !p.verbose {
			return ""
		}
		return p.theme.MutedStyle.Render(fmt.Sprintf("iteration %v done: %v round(s), %v file(s) changed",
			ev.Data["iteration"], ev.Data["rounds"], ev.Data["files"]))
	case engine.EventRunEnd:
		line := fmt.Sprintf("run finished: %v", ev.Data["state"])
		if n, ok := ev.Data["iterations"]; ok {
			line += fmt.Sprintf(" after %v iteration(s)", n)
		}
		return p.theme.MutedStyle.Render(line)
	default:
		return ""
	}
}

func dataString(ev engine.Event, key string) string {
	if ev.Data == nil {
		return ""
	}
	s, _ := ev.Data[key].(string)
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func previewLines(s string, max int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) <= max {
		return strings.Join(lines, "\n")
	}
	kept := append([]string{}, lines[:max]...)
	kept = append(kept, fmt.Sprintf("... (%d more lines)", len(lines)-max))
	return strings.Join(kept, "\n")
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
