package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/maxbaines/loop/llm"
)

func registerGitTools(reg *Registry) {
	reg.Register(Tool{
		Definition: llm.ToolDefinition{
			Name:        "git_status",
			Description: "Show the git working tree status in short format.",
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
				"required":   []string{},
			},
		},
		Run: executeGitStatus,
	})

	reg.Register(Tool{
		Definition: llm.ToolDefinition{
			Name:        "git_commit",
			Description: "Stage all changes and commit them with the given message. Does nothing if there is nothing to commit.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"message": map[string]interface{}{
						"type":        "string",
						"description": "Commit message",
					},
				},
				"required": []string{"message"},
			},
		},
		Run: executeGitCommit,
	})

	reg.Register(Tool{
		Definition: llm.ToolDefinition{
			Name:        "git_diff",
			Description: "Show unstaged changes, optionally limited to one path.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Limit the diff to this path",
					},
				},
				"required": []string{},
			},
		},
		Run: executeGitDiff,
	})

	reg.Register(Tool{
		Definition: llm.ToolDefinition{
			Name:        "git_log",
			Description: "Show recent commits, one line each.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"count": map[string]interface{}{
						"type":        "integer",
						"description": "Number of commits to show (default: 10)",
					},
				},
				"required": []string{},
			},
		},
		Run: executeGitLog,
	})
}

func runGit(ctx context.Context, ws *Workspace, command string) (*ExecResult, error) {
	result, err := runShell(ctx, ws.Dir, command, ws.CommandTimeout)
	if err != nil {
		return nil, err
	}
	if result.TimedOut {
		return nil, fmt.Errorf("git command timed out after %dms", ws.CommandTimeout.Milliseconds())
	}
	return result, nil
}

func executeGitStatus(ctx context.Context, args json.RawMessage, ws *Workspace) (string, error) {
	result, err := runGit(ctx, ws, "git status --short")
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("git status failed: %s", result.Output())
	}
	if strings.TrimSpace(result.Stdout) == "" {
		return "Working tree clean.", nil
	}
	return strings.TrimSpace(result.Stdout), nil
}

// escapeCommitMessage makes a message safe for double-quoted shell
// interpolation.
func escapeCommitMessage(message string) string {
	escaped := strings.ReplaceAll(message, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "`", "\\`")
	escaped = strings.ReplaceAll(escaped, `$`, `\$`)
	return escaped
}

func executeGitCommit(ctx context.Context, args json.RawMessage, ws *Workspace) (string, error) {
	parsed, err := parseArgs(args)
	if err != nil {
		return "", err
	}
	message, ok := stringArg(parsed, "message")
	if !ok || strings.TrimSpace(message) == "" {
		return "", errors.New("git_commit requires a message argument")
	}

	add, err := runGit(ctx, ws, "git add -A")
	if err != nil {
		return "", err
	}
	if add.ExitCode != 0 {
		return "", fmt.Errorf("git add failed: %s", add.Output())
	}

	staged, err := runGit(ctx, ws, "git diff --cached --quiet")
	if err != nil {
		return "", err
	}
	if staged.ExitCode == 0 {
		return "No changes to commit", nil
	}
	if staged.ExitCode != 1 {
		return "", fmt.Errorf("git diff failed: %s", staged.Output())
	}

	commit, err := runGit(ctx, ws, fmt.Sprintf(`git commit -m "%s"`, escapeCommitMessage(message)))
	if err != nil {
		return "", err
	}
	if commit.ExitCode != 0 {
		return "", fmt.Errorf("git commit failed: %s", commit.Output())
	}
	return strings.TrimSpace(commit.Stdout), nil
}

func executeGitDiff(ctx context.Context, args json.RawMessage, ws *Workspace) (string, error) {
	parsed, err := parseArgs(args)
	if err != nil {
		return "", err
	}
	command := "git diff"
	if path, ok := stringArg(parsed, "path"); ok && path != "" {
		if strings.ContainsAny(path, "\"'`$\\") {
			return "", fmt.Errorf("invalid path: %s", path)
		}
		command = fmt.Sprintf(`git diff -- "%s"`, path)
	}
	result, err := runGit(ctx, ws, command)
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("git diff failed: %s", result.Output())
	}
	if strings.TrimSpace(result.Stdout) == "" {
		return "No differences.", nil
	}
	return strings.TrimSpace(result.Stdout), nil
}

func executeGitLog(ctx context.Context, args json.RawMessage, ws *Workspace) (string, error) {
	parsed, err := parseArgs(args)
	if err != nil {
		return "", err
	}
	count := 10
	if n, ok := intArg(parsed, "count"); ok && n > 0 {
		count = n
	}
	result, err := runGit(ctx, ws, fmt.Sprintf("git log --oneline -n %d", count))
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		output := result.Output()
		if strings.Contains(output, "does not have any commits yet") {
			return "No commits yet.", nil
		}
		return "", fmt.Errorf("git log failed: %s", output)
	}
	if strings.TrimSpace(result.Stdout) == "" {
		return "No commits yet.", nil
	}
	return strings.TrimSpace(result.Stdout), nil
}
