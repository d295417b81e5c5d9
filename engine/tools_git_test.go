package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gitWorkspace initializes a git repository with an identity configured so
// commits work in bare CI environments.
func gitWorkspace(t *testing.T) *Workspace {
	t.Helper()
	requireBash(t)
	requireGit(t)

	ws := testWorkspace(t)
	setup := "git init -q && git config user.email dev@example.com && git config user.name dev"
	result, err := runShell(context.Background(), ws.Dir, setup, 30*time.Second)
	require.NoError(t, err)
	require.Equal(t, 0, result.ExitCode, "git setup failed: %s", result.Output())
	return ws
}

func TestGitStatusCleanTree(t *testing.T) {
	ws := gitWorkspace(t)

	out, err := executeGitStatus(context.Background(), nil, ws)
	require.NoError(t, err)
	assert.Equal(t, "Working tree clean.", out)
}

func TestGitStatusShowsUntracked(t *testing.T) {
	ws := gitWorkspace(t)
	writeTestFile(t, ws.Dir, "new.txt", "content")

	out, err := executeGitStatus(context.Background(), nil, ws)
	require.NoError(t, err)
	assert.Contains(t, out, "new.txt")
}

func TestGitStatusOutsideRepository(t *testing.T) {
	requireBash(t)
	requireGit(t)
	ws := testWorkspace(t)

	_, err := executeGitStatus(context.Background(), nil, ws)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "git status failed")
}

func TestGitCommitStagesEverything(t *testing.T) {
	ws := gitWorkspace(t)
	writeTestFile(t, ws.Dir, "a.txt", "a")
	writeTestFile(t, ws.Dir, "sub/b.txt", "b")

	out, err := executeGitCommit(context.Background(), rawArgs(t, map[string]interface{}{
		"message": "add both files",
	}), ws)
	require.NoError(t, err)
	assert.Contains(t, out, "add both files")

	status, err := executeGitStatus(context.Background(), nil, ws)
	require.NoError(t, err)
	assert.Equal(t, "Working tree clean.", status)
}

func TestGitCommitNothingToCommit(t *testing.T) {
	ws := gitWorkspace(t)

	out, err := executeGitCommit(context.Background(), rawArgs(t, map[string]interface{}{
		"message": "empty",
	}), ws)
	require.NoError(t, err)
	assert.Equal(t, "No changes to commit", out)
}

func TestGitCommitEscapesQuotes(t *testing.T) {
	ws := gitWorkspace(t)
	writeTestFile(t, ws.Dir, "a.txt", "a")

	message := `fix the "login" bug for $5`
	_, err := executeGitCommit(context.Background(), rawArgs(t, map[string]interface{}{
		"message": message,
	}), ws)
	require.NoError(t, err)

	log, err := executeGitLog(context.Background(), nil, ws)
	require.NoError(t, err)
	assert.Contains(t, log, `fix the "login" bug for $5`)
}

func TestGitCommitRequiresMessage(t *testing.T) {
	t.Parallel()

	ws := testWorkspace(t)
	_, err := executeGitCommit(context.Background(), rawArgs(t, map[string]interface{}{"message": "  "}), ws)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a message")
}

func TestGitDiff(t *testing.T) {
	ws := gitWorkspace(t)
	writeTestFile(t, ws.Dir, "a.txt", "old line\n")
	_, err := executeGitCommit(context.Background(), rawArgs(t, map[string]interface{}{"message": "base"}), ws)
	require.NoError(t, err)

	out, err := executeGitDiff(context.Background(), nil, ws)
	require.NoError(t, err)
	assert.Equal(t, "No differences.", out)

	writeTestFile(t, ws.Dir, "a.txt", "new line\n")
	out, err = executeGitDiff(context.Background(), rawArgs(t, map[string]interface{}{"path": "a.txt"}), ws)
	require.NoError(t, err)
	assert.Contains(t, out, "-old line")
	assert.Contains(t, out, "+new line")
}

func TestGitDiffRejectsShellMetacharacters(t *testing.T) {
	t.Parallel()

	ws := testWorkspace(t)
	_, err := executeGitDiff(context.Background(), rawArgs(t, map[string]interface{}{"path": `a"; rm -rf /`}), ws)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid path")
}

func TestGitLog(t *testing.T) {
	ws := gitWorkspace(t)

	out, err := executeGitLog(context.Background(), nil, ws)
	require.NoError(t, err)
	assert.Equal(t, "No commits yet.", out)

	for i := 1; i <= 3; i++ {
		writeTestFile(t, ws.Dir, "a.txt", fmt.Sprintf("rev %d", i))
		_, err := executeGitCommit(context.Background(), rawArgs(t, map[string]interface{}{
			"message": fmt.Sprintf("commit %d", i),
		}), ws)
		require.NoError(t, err)
	}

	out, err = executeGitLog(context.Background(), rawArgs(t, map[string]interface{}{"count": 2}), ws)
	require.NoError(t, err)
	assert.Contains(t, out, "commit 3")
	assert.Contains(t, out, "commit 2")
	assert.NotContains(t, out, "commit 1")
}

func TestEscapeCommitMessage(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		`plain`:        `plain`,
		`with "quote"`: `with \"quote\"`,
		`back\slash`:   `back\\slash`,
		"tick`tick":    "tick\\`tick",
		`dollar$var`:   `dollar\$var`,
	}
	for in, want := range cases {
		assert.Equal(t, want, escapeCommitMessage(in), "input %q", in)
	}
}
