package tasklist

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Load reads, decodes, normalizes, and validates a task list JSON file.
func Load(path string) (*TaskList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Message: "cannot read", Cause: err}
	}

	var list TaskList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, &ParseError{Path: path, Message: "invalid JSON", Cause: err}
	}

	list.Normalize()
	if err := list.Validate(); err != nil {
		return nil, err
	}
	return &list, nil
}

// Save writes the task list as indented JSON, creating parent directories
// as needed.
func Save(path string, list *TaskList) error {
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
