package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/maxbaines/loop/llm"
)

const maxSearchMatches = 100

// skippedDirs are never descended into when listing or searching.
var skippedDirs = map[string]bool{
	"node_modules": true,
	"target":       true,
	"dist":         true,
	"build":        true,
	"vendor":       true,
	"__pycache__":  true,
	"venv":         true,
}

// resolvePath canonicalizes a model-supplied path against the workspace
// directory and rejects anything that escapes it.
func (ws *Workspace) resolvePath(path string) (string, error) {
	root, err := filepath.Abs(ws.Dir)
	if err != nil {
		return "", err
	}
	resolved := path
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(root, resolved)
	}
	resolved = filepath.Clean(resolved)
	rel, err := filepath.Rel(root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.New("path escapes working directory")
	}
	return resolved, nil
}

func registerFileTools(reg *Registry) {
	reg.Register(Tool{
		Definition: llm.ToolDefinition{
			Name:        "read_file",
			Description: "Read the contents of a file. Returns the content with a character count.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Path to the file, relative to the working directory",
					},
				},
				"required": []string{"path"},
			},
		},
		Run: executeReadFile,
	})

	reg.Register(Tool{
		Definition: llm.ToolDefinition{
			Name:        "write_file",
			Description: "Write content to a file, creating parent directories as needed. Overwrites existing files.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Path to the file, relative to the working directory",
					},
					"content": map[string]interface{}{
						"type":        "string",
						"description": "Full content to write",
					},
				},
				"required": []string{"path", "content"},
			},
		},
		Run: executeWriteFile,
	})

	reg.Register(Tool{
		Definition: llm.ToolDefinition{
			Name:        "list_files",
			Description: "List files and directories. Directories are marked with a trailing separator. Hidden and build directories are skipped.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Directory to list (default: working directory)",
					},
					"recursive": map[string]interface{}{
						"type":        "boolean",
						"description": "Recurse into subdirectories (default: false)",
					},
				},
				"required": []string{},
			},
		},
		Run: executeListFiles,
	})

	reg.Register(Tool{
		Definition: llm.ToolDefinition{
			Name:        "search_files",
			Description: "Search file contents with a case-insensitive regular expression. Returns matching lines with file path and line number.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"pattern": map[string]interface{}{
						"type":        "string",
						"description": "Regular expression to search for",
					},
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Directory to search (default: working directory)",
					},
				},
				"required": []string{"pattern"},
			},
		},
		Run: executeSearchFiles,
	})
}

func executeReadFile(ctx context.Context, args json.RawMessage, ws *Workspace) (string, error) {
	parsed, err := parseArgs(args)
	if err != nil {
		return "", err
	}
	path, ok := stringArg(parsed, "path")
	if !ok || path == "" {
		return "", errors.New("read_file requires a path argument")
	}
	resolved, err := ws.resolvePath(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("File not found: %s", path)
		}
		return "", fmt.Errorf("cannot read %s: %w", path, err)
	}
	return fmt.Sprintf("File: %s (%d characters)\n%s", path, len(data), string(data)), nil
}

func executeWriteFile(ctx context.Context, args json.RawMessage, ws *Workspace) (string, error) {
	parsed, err := parseArgs(args)
	if err != nil {
		return "", err
	}
	path, ok := stringArg(parsed, "path")
	if !ok || path == "" {
		return "", errors.New("write_file requires a path argument")
	}
	content, ok := stringArg(parsed, "content")
	if !ok {
		return "", errors.New("write_file requires a content argument")
	}
	resolved, err := ws.resolvePath(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return "", fmt.Errorf("cannot create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("cannot write %s: %w", path, err)
	}
	return fmt.Sprintf("Successfully wrote %d characters to %s", len(content), path), nil
}

func executeListFiles(ctx context.Context, args json.RawMessage, ws *Workspace) (string, error) {
	parsed, err := parseArgs(args)
	if err != nil {
		return "", err
	}
	path, _ := stringArg(parsed, "path")
	if path == "" {
		path = "."
	}
	recursive, _ := boolArg(parsed, "recursive")

	resolved, err := ws.resolvePath(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("Directory not found: %s", path)
		}
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", path)
	}

	var lines []string
	if recursive {
		lines, err = listRecursive(resolved)
	} else {
		lines, err = listFlat(resolved)
	}
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "No files found.", nil
	}
	return strings.Join(lines, "\n"), nil
}

func listFlat(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, entry := range entries {
		if skipEntry(entry.Name(), entry.IsDir()) {
			continue
		}
		name := entry.Name()
		if entry.IsDir() {
			name += string(filepath.Separator)
		}
		lines = append(lines, name)
	}
	sort.Strings(lines)
	return lines, nil
}

func listRecursive(root string) ([]string, error) {
	var lines []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == root {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if skipEntry(d.Name(), d.IsDir()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			rel += string(filepath.Separator)
		}
		lines = append(lines, rel)
		return nil
	})
	return lines, err
}

func skipEntry(name string, isDir bool) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	return isDir && skippedDirs[name]
}

func executeSearchFiles(ctx context.Context, args json.RawMessage, ws *Workspace) (string, error) {
	parsed, err := parseArgs(args)
	if err != nil {
		return "", err
	}
	pattern, ok := stringArg(parsed, "pattern")
	if !ok || pattern == "" {
		return "", errors.New("search_files requires a pattern argument")
	}
	path, _ := stringArg(parsed, "path")
	if path == "" {
		path = "."
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return "", fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	resolved, err := ws.resolvePath(path)
	if err != nil {
		return "", err
	}

	var matches []string
	truncated := false
	walkErr := filepath.WalkDir(resolved, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if skipEntry(d.Name(), d.IsDir()) && p != resolved {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(resolved, p)
		if relErr != nil {
			rel = p
		}
		fileMatches, full := searchFile(p, rel, re, maxSearchMatches-len(matches))
		matches = append(matches, fileMatches...)
		if full {
			truncated = true
			return errors.New("match limit")
		}
		return nil
	})
	if walkErr != nil && !truncated {
		return "", walkErr
	}
	if len(matches) == 0 {
		return "No matches found.", nil
	}
	out := strings.Join(matches, "\n")
	if truncated {
		out += fmt.Sprintf("\n... (stopped after %d matches)", maxSearchMatches)
	}
	return out, nil
}

// searchFile scans one file line by line. Unreadable and binary files are
// skipped. Returns (matches, limitReached).
func searchFile(path, rel string, re *regexp.Regexp, budget int) ([]string, bool) {
	if budget <= 0 {
		return nil, true
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	if bytes.IndexByte(data, 0) != -1 {
		return nil, false
	}
	var matches []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if re.MatchString(line) {
			matches = append(matches, fmt.Sprintf("%s:%d: %s", rel, lineNo, strings.TrimSpace(line)))
			if len(matches) >= budget {
				return matches, true
			}
		}
	}
	return matches, false
}
