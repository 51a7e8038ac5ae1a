package builtin

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// ApplyPatch applies args["patch_content"], a unified diff, to files
// under WorkDir by shelling out to the system `patch` utility — the
// same approach original_source/tools/definitions/apply_unified_patch_content.py
// takes rather than hand-rolling a diff applier.
func (f FileSet) ApplyPatch(ctx context.Context, args map[string]any) (any, error) {
	content, _ := args["patch_content"].(string)
	if content == "" {
		return fail(fmt.Errorf("apply_unified_patch_content: patch_content is required")), nil
	}
	cmd := exec.CommandContext(ctx, "patch", "-p0", "--batch")
	cmd.Dir = f.WorkDir
	cmd.Stdin = bytes.NewReader([]byte(content))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fail(fmt.Errorf("apply_unified_patch_content: %s: %w", stderr.String(), err)), nil
	}
	return ok(map[string]any{"stdout": stdout.String()}), nil
}
