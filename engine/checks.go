package engine

import (
	"context"
	"strings"
	"sync"
	"time"
)

const (
	checkTests     = "tests"
	checkTypecheck = "typecheck"
	checkLint      = "lint"
)

// checkCandidates lists candidate commands per check, tried in order. A
// candidate exiting 127 (command not found) falls through to the next one.
var checkCandidates = map[string][]string{
	checkTests: {
		"go test ./...",
		"npm test --silent",
		"pytest -q",
		"cargo test",
	},
	checkTypecheck: {
		"go vet ./...",
		"npx tsc --noEmit",
		"mypy .",
		"cargo check",
	},
	checkLint: {
		"golangci-lint run",
		"npx eslint .",
		"ruff check .",
		"cargo clippy -- -D warnings",
	},
}

// CheckResult is the outcome of one feedback check. An unconfigured check
// (no candidate tool installed) counts as passed.
type CheckResult struct {
	Name       string
	Passed     bool
	Configured bool
	ExitCode   int
	Output     string
}

func runCheck(ctx context.Context, dir, name string, candidates []string, timeout time.Duration) CheckResult {
	for _, command := range candidates {
		result, err := runShell(ctx, dir, command, timeout)
		if err != nil {
			continue
		}
		if result.ExitCode == 127 {
			continue
		}
		return CheckResult{
			Name:       name,
			Passed:     result.ExitCode == 0 && !result.TimedOut,
			Configured: true,
			ExitCode:   result.ExitCode,
			Output:     strings.TrimSpace(formatExecResult(result)),
		}
	}
	return CheckResult{Name: name, Passed: true, Configured: false, Output: "not configured"}
}

// RunChecks runs the three feedback checks concurrently, each against its
// own timeout, and returns them in fixed order: tests, typecheck, lint. It
// does not return until all three finish.
func RunChecks(ctx context.Context, dir string, timeout time.Duration) []CheckResult {
	names := []string{checkTests, checkTypecheck, checkLint}
	results := make([]CheckResult, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(idx int, kind string) {
			defer wg.Done()
			results[idx] = runCheck(ctx, dir, kind, checkCandidates[kind], timeout)
		}(i, name)
	}
	wg.Wait()
	return results
}

// AllPassed reports whether every check passed (unconfigured counts as a
// pass).
func AllPassed(results []CheckResult) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
