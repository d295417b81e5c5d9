package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const gitProbeTimeout = 5 * time.Second

// PromptInputs carries everything the system prompt is assembled from.
type PromptInputs struct {
	TaskSummary     string
	ProgressSummary string
	Guidelines      string
	WorkingDir      string
	Model           string
	Marker          string
}

// BuildSystemPrompt assembles the per-iteration system prompt: role and
// working rules, the task list, progress history, project guidelines, the
// output format contract, and the environment block.
func BuildSystemPrompt(in PromptInputs) string {
	marker := in.Marker
	if marker == "" {
		marker = CompletionMarker
	}

	var sb strings.Builder
	sb.WriteString(`You are an autonomous coding agent. You work through a task list one item at a time, one item per iteration.

# Working Rules
- Pick the highest-priority pending task and complete it fully before anything else.
- Use the tools to read and change files, run commands, and inspect the repository. Never guess at file contents.
- Verify your work: run the tests, the type checker, and the linter before you declare a task done.
- Commit completed work with a clear message using git_commit.
- Stay inside the working directory.
`)

	sb.WriteString("\n# Task List\n")
	if strings.TrimSpace(in.TaskSummary) == "" {
		sb.WriteString("(no tasks)\n")
	} else {
		sb.WriteString(in.TaskSummary)
		sb.WriteString("\n")
	}

	sb.WriteString("\n# Progress So Far\n")
	if strings.TrimSpace(in.ProgressSummary) == "" {
		sb.WriteString("No previous iterations.\n")
	} else {
		sb.WriteString(in.ProgressSummary)
		sb.WriteString("\n")
	}

	if strings.TrimSpace(in.Guidelines) != "" {
		sb.WriteString("\n# Project Guidelines\n")
		sb.WriteString(strings.TrimSpace(in.Guidelines))
		sb.WriteString("\n")
	}

	sb.WriteString(`
# Output Format
End every iteration with this report:

## Completed: <one-line description of what was done>

## Changes Made
<what changed and why, in plain prose>

## Decisions
- <significant decision, or "None">

# Completion
`)
	fmt.Fprintf(&sb, "When every item on the task list is done and verified, output the literal string %s on its own line. Do not output it before then.\n", marker)

	sb.WriteString("\n")
	sb.WriteString(buildEnvironmentContext(in.WorkingDir, in.Model))
	return sb.String()
}

// buildEnvironmentContext renders the <environment> block describing where
// the agent is running.
func buildEnvironmentContext(workingDir, model string) string {
	var sb strings.Builder
	sb.WriteString("<environment>\n")
	fmt.Fprintf(&sb, "Working directory: %s\n", workingDir)
	isGit := isGitRepository(workingDir)
	fmt.Fprintf(&sb, "Is git repository: %t\n", isGit)
	if isGit {
		if branch := gitBranch(workingDir); branch != "" {
			fmt.Fprintf(&sb, "Git branch: %s\n", branch)
		}
	}
	fmt.Fprintf(&sb, "Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&sb, "Date: %s\n", time.Now().Format("2006-01-02"))
	if model != "" {
		fmt.Fprintf(&sb, "Model: %s\n", model)
	}
	sb.WriteString("</environment>")
	return sb.String()
}

func isGitRepository(dir string) bool {
	current, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	for {
		if _, err := os.Stat(filepath.Join(current, ".git")); err == nil {
			return true
		}
		parent := filepath.Dir(current)
		if parent == current {
			return false
		}
		current = parent
	}
}

func gitBranch(dir string) string {
	ctx, cancel := context.WithTimeout(context.Background(), gitProbeTimeout)
	defer cancel()
	result, err := runShell(ctx, dir, "git rev-parse --abbrev-ref HEAD", gitProbeTimeout)
	if err != nil || result.ExitCode != 0 {
		return ""
	}
	return strings.TrimSpace(result.Stdout)
}
