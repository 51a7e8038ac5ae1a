package tool

import (
	"path/filepath"
	"strings"

	"github.com/streetrace-ai/streetrace-sub005/errs"
)

// ResolvePath normalizes path relative to workDir and verifies the
// result stays within workDir, returning errs.PathSafetyError otherwise.
func ResolvePath(workDir, path string) (string, error) {
	absWorkDir, err := filepath.Abs(filepath.Clean(workDir))
	if err != nil {
		return "", err
	}
	var candidate string
	if filepath.IsAbs(path) {
		candidate = filepath.Clean(path)
	} else {
		candidate = filepath.Clean(filepath.Join(absWorkDir, path))
	}
	if candidate != absWorkDir && !strings.HasPrefix(candidate, absWorkDir+string(filepath.Separator)) {
		return "", &errs.PathSafetyError{Path: path, WorkDir: workDir}
	}
	return candidate, nil
}
