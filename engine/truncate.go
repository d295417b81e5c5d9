package engine

import (
	"fmt"
	"strings"
)

const (
	defaultCharLimit = 30000
	defaultLineLimit = 800

	truncateHeadTail = "head_tail"
	truncateTail     = "tail"
)

// toolCharLimits caps result size per tool before it goes back to the
// model.
var toolCharLimits = map[string]int{
	"read_file":    50000,
	"search_files": 20000,
	"list_files":   10000,
	"git_status":   10000,
	"git_log":      10000,
}

// toolTruncationModes selects how a tool's output is cut. Check output is
// tail-truncated since failures accumulate at the end; everything else
// keeps head and tail.
var toolTruncationModes = map[string]string{
	"run_tests":     truncateTail,
	"run_typecheck": truncateTail,
	"run_lint":      truncateTail,
}

// truncateOutput cuts output down to maxChars using the given mode.
func truncateOutput(output string, maxChars int, mode string) string {
	if maxChars <= 0 || len(output) <= maxChars {
		return output
	}
	warning := fmt.Sprintf("\n\n[... output truncated: %d of %d characters shown ...]\n\n", maxChars, len(output))
	switch mode {
	case truncateTail:
		return fmt.Sprintf("[... output truncated: %d of %d characters shown ...]\n\n%s",
			maxChars, len(output), output[len(output)-maxChars:])
	default:
		half := maxChars / 2
		return output[:half] + warning + output[len(output)-half:]
	}
}

// truncateLines caps output at maxLines, keeping the head and tail halves.
func truncateLines(output string, maxLines int) string {
	lines := strings.Split(output, "\n")
	if maxLines <= 0 || len(lines) <= maxLines {
		return output
	}
	head := maxLines / 2
	tail := maxLines - head
	omitted := len(lines) - maxLines
	kept := make([]string, 0, maxLines+1)
	kept = append(kept, lines[:head]...)
	kept = append(kept, fmt.Sprintf("[... %d lines omitted ...]", omitted))
	kept = append(kept, lines[len(lines)-tail:]...)
	return strings.Join(kept, "\n")
}

// truncateToolOutput applies the per-tool character limit, then the line
// limit.
func truncateToolOutput(toolName, output string) string {
	charLimit := defaultCharLimit
	if limit, ok := toolCharLimits[toolName]; ok {
		charLimit = limit
	}
	mode := truncateHeadTail
	if m, ok := toolTruncationModes[toolName]; ok {
		mode = m
	}
	output = truncateOutput(output, charLimit, mode)
	return truncateLines(output, defaultLineLimit)
}
