package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/streetrace-ai/streetrace-sub005/tool"
)

// FileSet groups the file and directory tools that share a confined
// working directory.
type FileSet struct {
	WorkDir string
}

func (f FileSet) resolve(path string) (string, error) {
	return tool.ResolvePath(f.WorkDir, path)
}

// ReadFile returns a Result wrapping the UTF-8 contents of args["path"].
func (f FileSet) ReadFile(_ context.Context, args map[string]any) (any, error) {
	path, _ := args["path"].(string)
	abs, err := f.resolve(path)
	if err != nil {
		return fail(err), nil
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return fail(err), nil
	}
	return ok(string(data)), nil
}

// WriteFile overwrites args["path"] with args["content"].
func (f FileSet) WriteFile(_ context.Context, args map[string]any) (any, error) {
	path, _ := args["path"].(string)
	content, _ := args["content"].(string)
	abs, err := f.resolve(path)
	if err != nil {
		return fail(err), nil
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fail(err), nil
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return fail(err), nil
	}
	return ok(map[string]any{"bytes_written": len(content)}), nil
}

// AppendFile appends args["content"] to args["path"], creating it if
// necessary.
func (f FileSet) AppendFile(_ context.Context, args map[string]any) (any, error) {
	path, _ := args["path"].(string)
	content, _ := args["content"].(string)
	abs, err := f.resolve(path)
	if err != nil {
		return fail(err), nil
	}
	fh, err := os.OpenFile(abs, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fail(err), nil
	}
	defer fh.Close()
	if _, err := fh.WriteString(content); err != nil {
		return fail(err), nil
	}
	return ok(map[string]any{"bytes_appended": len(content)}), nil
}

// CreateDirectory makes args["path"] and any missing parents.
func (f FileSet) CreateDirectory(_ context.Context, args map[string]any) (any, error) {
	path, _ := args["path"].(string)
	abs, err := f.resolve(path)
	if err != nil {
		return fail(err), nil
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fail(err), nil
	}
	return ok(map[string]any{"path": path}), nil
}

// ListDirectory lists immediate entries of args["path"] (defaulting to
// the working directory root).
func (f FileSet) ListDirectory(_ context.Context, args map[string]any) (any, error) {
	path, _ := args["path"].(string)
	abs, err := f.resolve(path)
	if err != nil {
		return fail(err), nil
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return fail(err), nil
	}
	names := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		names = append(names, map[string]any{"name": e.Name(), "is_dir": e.IsDir()})
	}
	return ok(names), nil
}

// FindInFiles performs a naive substring search for args["pattern"]
// across files under args["path"] (defaulting to the working directory),
// returning matching file paths and line numbers.
func (f FileSet) FindInFiles(_ context.Context, args map[string]any) (any, error) {
	pattern, _ := args["pattern"].(string)
	path, _ := args["path"].(string)
	if pattern == "" {
		return fail(fmt.Errorf("find_in_files: pattern is required")), nil
	}
	root, err := f.resolve(path)
	if err != nil {
		return fail(err), nil
	}
	type match struct {
		File string `json:"file"`
		Line int    `json:"line"`
		Text string `json:"text"`
	}
	var matches []match
	err = filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, readErr := os.ReadFile(p)
		if readErr != nil {
			return nil
		}
		for i, line := range strings.Split(string(data), "\n") {
			if strings.Contains(line, pattern) {
				rel, _ := filepath.Rel(root, p)
				matches = append(matches, match{File: rel, Line: i + 1, Text: line})
			}
		}
		return nil
	})
	if err != nil {
		return fail(err), nil
	}
	return ok(matches), nil
}
