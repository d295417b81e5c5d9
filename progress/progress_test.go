package progress

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendThenLoad(t *testing.T) {
	t.Parallel()

	store := NewStore(filepath.Join(t.TempDir(), "deep", "progress.jsonl"))

	first := Entry{
		Iteration:       1,
		Timestamp:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		TaskDescription: "scaffold repo",
		Decisions:       []string{"use cobra"},
		Summary:         "created layout",
		FilesChanged:    []string{"main.go", "go.mod"},
		Success:         true,
	}
	second := Entry{
		Iteration: 2,
		Timestamp: time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC),
		Success:   false,
		Error:     "service unavailable",
	}

	require.NoError(t, store.Append(first))
	require.NoError(t, store.Append(second))

	entries, err := store.Load()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, first, entries[0])
	assert.Equal(t, second, entries[1])
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	store := NewStore(filepath.Join(t.TempDir(), "absent.jsonl"))
	entries, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoadSkipsBlankLinesAndNamesBadLine(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "progress.jsonl")
	content := `{"iteration":1,"success":true}

{"iteration":2,"success":false}
not json at all
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := NewStore(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 4")
}

func TestSummary(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "No previous iterations.", Summary(nil, 5))

	entries := []Entry{
		{Iteration: 1, Success: true, TaskDescription: "first",
			FilesChanged: []string{"a.go"}, Decisions: []string{"keep it simple"}},
		{Iteration: 2, Success: false, Error: "timeout"},
		{Iteration: 3, Success: true, TaskDescription: "third"},
	}

	full := Summary(entries, 0)
	assert.Contains(t, full, "iteration 1 (ok): first [1 files]")
	assert.Contains(t, full, "iteration 2 (failed): (no task recorded) error: timeout")
	assert.Contains(t, full, "decision: keep it simple")

	capped := Summary(entries, 2)
	assert.NotContains(t, capped, "iteration 1")
	assert.Contains(t, capped, "iteration 2")
	assert.Contains(t, capped, "iteration 3")
}
