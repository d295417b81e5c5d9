package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCheckFallsThroughMissingCommands(t *testing.T) {
	requireBash(t)
	t.Parallel()

	candidates := []string{
		"first_missing_check_xyz --version",
		"second_missing_check_xyz",
		"echo checked",
	}
	result := runCheck(context.Background(), t.TempDir(), "tests", candidates, 10*time.Second)
	require.True(t, result.Configured)
	assert.True(t, result.Passed)
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, result.Output, "checked")
}

func TestRunCheckAllMissingCountsAsPass(t *testing.T) {
	requireBash(t)
	t.Parallel()

	candidates := []string{"first_missing_check_xyz", "second_missing_check_xyz"}
	result := runCheck(context.Background(), t.TempDir(), "lint", candidates, 10*time.Second)
	assert.False(t, result.Configured)
	assert.True(t, result.Passed)
	assert.Equal(t, "not configured", result.Output)
}

func TestRunCheckFailureReported(t *testing.T) {
	requireBash(t)
	t.Parallel()

	candidates := []string{"echo failing output; exit 1"}
	result := runCheck(context.Background(), t.TempDir(), "tests", candidates, 10*time.Second)
	require.True(t, result.Configured)
	assert.False(t, result.Passed)
	assert.Equal(t, 1, result.ExitCode)
	assert.Contains(t, result.Output, "failing output")
}

func TestRunChecksReturnsAllThreeInOrder(t *testing.T) {
	requireBash(t)
	t.Parallel()

	results := RunChecks(context.Background(), t.TempDir(), 30*time.Second)
	require.Len(t, results, 3)
	assert.Equal(t, "tests", results[0].Name)
	assert.Equal(t, "typecheck", results[1].Name)
	assert.Equal(t, "lint", results[2].Name)
}

func TestAllPassed(t *testing.T) {
	t.Parallel()

	assert.True(t, AllPassed(nil))
	assert.True(t, AllPassed([]CheckResult{
		{Name: "tests", Passed: true, Configured: true},
		{Name: "lint", Passed: true, Configured: false},
	}))
	assert.False(t, AllPassed([]CheckResult{
		{Name: "tests", Passed: true},
		{Name: "typecheck", Passed: false},
	}))
}
