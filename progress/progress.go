// Package progress persists the per-iteration history as an append-only
// JSON-lines file and renders it back into the compact summary the prompt
// builder feeds to the next iteration.
package progress

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Entry records one attempted iteration, successful or not. Exactly one
// entry is appended per iteration; entries are never rewritten.
type Entry struct {
	Iteration       int       `json:"iteration"`
	Timestamp       time.Time `json:"timestamp"`
	TaskDescription string    `json:"task_description,omitempty"`
	Decisions       []string  `json:"decisions,omitempty"`
	Summary         string    `json:"summary,omitempty"`
	FilesChanged    []string  `json:"files_changed,omitempty"`
	Success         bool      `json:"success"`
	Error           string    `json:"error,omitempty"`
}

// Store reads and appends entries at a fixed path.
type Store struct {
	path string
}

// NewStore creates a store for the given file path. The file is created on
// first Append.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Append writes one entry as a single JSON line, creating parent
// directories as needed.
func (s *Store) Append(entry Entry) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create progress dir: %w", err)
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode progress entry: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open progress file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write progress entry: %w", err)
	}
	return nil
}

// Load reads all entries in append order. A missing file is an empty
// history, not an error. Blank lines are skipped; a malformed line is an
// error naming its line number.
func (s *Store) Load() ([]Entry, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open progress file: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("progress file %s line %d: %w", s.path, lineNo, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read progress file: %w", err)
	}
	return entries, nil
}

// Summary renders the most recent max entries, oldest first, as a text
// block for prompt building.
func Summary(entries []Entry, max int) string {
	if len(entries) == 0 {
		return "No previous iterations."
	}
	if max > 0 && len(entries) > max {
		entries = entries[len(entries)-max:]
	}

	var sb strings.Builder
	sb.WriteString("Previous iterations:\n")
	for _, e := range entries {
		status := "ok"
		if !e.Success {
			status = "failed"
		}
		desc := e.TaskDescription
		if desc == "" {
			desc = "(no task recorded)"
		}
		fmt.Fprintf(&sb, "- iteration %d (%s): %s", e.Iteration, status, desc)
		if len(e.FilesChanged) > 0 {
			fmt.Fprintf(&sb, " [%d files]", len(e.FilesChanged))
		}
		if e.Error != "" {
			fmt.Fprintf(&sb, " error: %s", e.Error)
		}
		sb.WriteString("\n")
		for _, d := range e.Decisions {
			fmt.Fprintf(&sb, "    decision: %s\n", d)
		}
	}
	return sb.String()
}
