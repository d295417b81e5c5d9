package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/maxbaines/loop/llm"
)

const maxCommandTimeout = 10 * time.Minute

// ExecResult captures the outcome of one shell command.
type ExecResult struct {
	Stdout     string
	Stderr     string
	ExitCode   int
	TimedOut   bool
	DurationMs int64
}

// Output merges stdout and stderr for display, stderr second.
func (r *ExecResult) Output() string {
	var parts []string
	if s := strings.TrimSpace(r.Stdout); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(r.Stderr); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, "\n")
}

// runShell executes a command through bash in dir with a timeout. The
// command runs in its own process group; on timeout the whole group is
// killed and the result reports exit code -1 with TimedOut set.
func runShell(ctx context.Context, dir, command string, timeout time.Duration) (*ExecResult, error) {
	if timeout <= 0 || timeout > maxCommandTimeout {
		timeout = maxCommandTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "/bin/bash", "-c", command)
	cmd.Dir = dir
	cmd.Env = filterEnvironment(os.Environ())
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return os.ErrProcessDone
		}
		if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil && err != syscall.ESRCH {
			return err
		}
		return os.ErrProcessDone
	}

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := &ExecResult{
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		DurationMs: time.Since(start).Milliseconds(),
	}

	if ctx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.ExitCode = -1
		return result, nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return nil, fmt.Errorf("cannot run command: %w", err)
	}
	result.ExitCode = 0
	return result, nil
}

// sensitiveEnvSuffixes mark variables that never reach child processes.
var sensitiveEnvSuffixes = []string{
	"_API_KEY", "_SECRET", "_TOKEN", "_PASSWORD", "_CREDENTIAL",
}

// safeEnvVars are passed through even though their names look sensitive.
var safeEnvVars = map[string]bool{
	"GITHUB_TOKEN_PATH": true,
}

func filterEnvironment(environ []string) []string {
	filtered := make([]string, 0, len(environ))
	for _, kv := range environ {
		name, _, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if isSensitiveEnv(name) {
			continue
		}
		filtered = append(filtered, kv)
	}
	return filtered
}

func isSensitiveEnv(name string) bool {
	if safeEnvVars[name] {
		return false
	}
	upper := strings.ToUpper(name)
	for _, suffix := range sensitiveEnvSuffixes {
		if strings.HasSuffix(upper, suffix) {
			return true
		}
	}
	return false
}

func formatExecResult(r *ExecResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Exit code: %d (success: %t)", r.ExitCode, r.ExitCode == 0)
	if out := r.Output(); out != "" {
		sb.WriteString("\n")
		sb.WriteString(out)
	} else {
		sb.WriteString("\n(no output)")
	}
	return sb.String()
}

func registerExecTools(reg *Registry) {
	reg.Register(Tool{
		Definition: llm.ToolDefinition{
			Name:        "execute_command",
			Description: "Run a shell command in the working directory and return its exit code and output.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"command": map[string]interface{}{
						"type":        "string",
						"description": "Shell command to execute",
					},
					"timeout_ms": map[string]interface{}{
						"type":        "integer",
						"description": "Timeout in milliseconds (default: the configured command timeout)",
					},
				},
				"required": []string{"command"},
			},
		},
		Run: executeCommand,
	})

	checkTools := []struct {
		name        string
		description string
		kind        string
	}{
		{"run_tests", "Run the project's test suite using the first available test runner.", checkTests},
		{"run_typecheck", "Run the project's type checker using the first available tool.", checkTypecheck},
		{"run_lint", "Run the project's linter using the first available tool.", checkLint},
	}
	for _, ct := range checkTools {
		kind := ct.kind
		reg.Register(Tool{
			Definition: llm.ToolDefinition{
				Name:        ct.name,
				Description: ct.description,
				Parameters: map[string]interface{}{
					"type":       "object",
					"properties": map[string]interface{}{},
					"required":   []string{},
				},
			},
			Run: func(ctx context.Context, args json.RawMessage, ws *Workspace) (string, error) {
				result := runCheck(ctx, ws.Dir, kind, checkCandidates[kind], ws.CommandTimeout)
				if !result.Configured {
					return fmt.Sprintf("No %s command configured for this project; treating as success.", kind), nil
				}
				return result.Output, nil
			},
		})
	}
}

func executeCommand(ctx context.Context, args json.RawMessage, ws *Workspace) (string, error) {
	parsed, err := parseArgs(args)
	if err != nil {
		return "", err
	}
	command, ok := stringArg(parsed, "command")
	if !ok || command == "" {
		return "", errors.New("execute_command requires a command argument")
	}
	timeout := ws.CommandTimeout
	if ms, ok := intArg(parsed, "timeout_ms"); ok && ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
	}

	result, err := runShell(ctx, ws.Dir, command, timeout)
	if err != nil {
		return "", err
	}
	if result.TimedOut {
		return "", fmt.Errorf("command timed out after %dms (exit code %d)", timeout.Milliseconds(), result.ExitCode)
	}
	return formatExecResult(result), nil
}
