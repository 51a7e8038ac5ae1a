package builtin

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/streetrace-ai/streetrace-sub005/tool"
)

// CLISet exposes CLI command execution confined to a working directory
// and gated by tool.ClassifyCommand. Grounded
// on original_source/src/streetrace/tools/cli.py's subprocess wrapper,
// simplified from its line-streaming design to a single captured-output
// call — the DSL has no interactive-stdin concept to preserve.
type CLISet struct {
	WorkDir string
	// AllowAmbiguous permits CategoryAmbiguous commands to run; when
	// false (the default posture) only CategorySafe commands execute
	// without an explicit override.
	AllowAmbiguous bool
}

// ExecuteCommand runs args["command"] (a string, or a []any list of
// strings as decoded from JSON) in WorkDir,
// refusing anything the safety classifier marks risky.
func (c CLISet) ExecuteCommand(ctx context.Context, args map[string]any) (any, error) {
	var command any
	switch v := args["command"].(type) {
	case string:
		command = v
	case []any:
		strs := make([]string, len(v))
		for i, e := range v {
			strs[i], _ = e.(string)
		}
		command = strs
	default:
		return fail(fmt.Errorf("execute_cli_command: command must be a string or list")), nil
	}

	category := tool.ClassifyCommand(command)
	switch category {
	case tool.CategoryRisky:
		return fail(fmt.Errorf("execute_cli_command: classified risky, refusing to run")), nil
	case tool.CategoryAmbiguous:
		if !c.AllowAmbiguous {
			return fail(fmt.Errorf("execute_cli_command: classified ambiguous, refusing without explicit override")), nil
		}
	}

	name, cmdArgs, err := splitCommand(command)
	if err != nil {
		return fail(err), nil
	}

	cmd := exec.CommandContext(ctx, name, cmdArgs...)
	cmd.Dir = c.WorkDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	out := map[string]any{
		"stdout":      stdout.String(),
		"stderr":      stderr.String(),
		"return_code": cmd.ProcessState.ExitCode(),
	}
	if runErr != nil {
		if _, isExit := runErr.(*exec.ExitError); !isExit {
			return fail(fmt.Errorf("execute_cli_command: %w", runErr)), nil
		}
	}
	return ok(out), nil
}

func splitCommand(command any) (string, []string, error) {
	switch v := command.(type) {
	case string:
		fields := splitFields(v)
		if len(fields) == 0 {
			return "", nil, fmt.Errorf("execute_cli_command: empty command")
		}
		return fields[0], fields[1:], nil
	case []string:
		if len(v) == 0 {
			return "", nil, fmt.Errorf("execute_cli_command: empty command")
		}
		return v[0], v[1:], nil
	default:
		return "", nil, fmt.Errorf("execute_cli_command: unsupported command type %T", command)
	}
}

func splitFields(s string) []string {
	var fields []string
	cur := ""
	inQuote := byte(0)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote != 0:
			if c == inQuote {
				inQuote = 0
			} else {
				cur += string(c)
			}
		case c == '\'' || c == '"':
			inQuote = c
		case c == ' ' || c == '\t':
			if cur != "" {
				fields = append(fields, cur)
				cur = ""
			}
		default:
			cur += string(c)
		}
	}
	if cur != "" {
		fields = append(fields, cur)
	}
	return fields
}
