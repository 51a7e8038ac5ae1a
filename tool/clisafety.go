// Package tool materializes DSL tool references into callable tool
// implementations and enforces two runtime safety checks: filesystem
// path confinement and CLI command risk classification. Grounded on
// original_source/src/streetrace/tools/cli.py and reverse-engineered from
// the corpus's tests/unit/tools/test_cli_safety/*.py (the module under
// test itself was not present in the retrieval pack).
package tool

import (
	"strings"
)

// SafetyCategory is the three-way verdict a shell command is classified
// into before a CLI tool call is allowed to run.
type SafetyCategory int

const (
	// CategorySafe: every parsed sub-command is on the allow-list and
	// any path-like arguments stay within the working directory.
	CategorySafe SafetyCategory = iota
	// CategoryAmbiguous: nothing outright dangerous was found, but the
	// classifier also found nothing to positively vouch for (unknown
	// command, or a known-safe command given no confirmable path args).
	CategoryAmbiguous
	// CategoryRisky: a deny-listed command, an absolute/escaping path
	// argument, or unparseable input.
	CategoryRisky
)

func (c SafetyCategory) String() string {
	switch c {
	case CategorySafe:
		return "safe"
	case CategoryAmbiguous:
		return "ambiguous"
	default:
		return "risky"
	}
}

// safeCommands and riskyCommands are fixed allow/deny lists.
var safeCommands = map[string]bool{
	"ls": true, "cat": true, "grep": true, "find": true, "echo": true,
	"pwd": true, "head": true, "tail": true, "wc": true, "diff": true,
	"git": true, "go": true, "sort": true, "uniq": true, "file": true,
	"which": true, "env": true, "date": true, "whoami": true,
}

var riskyCommands = map[string]bool{
	"rm": true, "sudo": true, "su": true, "chmod": true, "chown": true,
	"dd": true, "mkfs": true, "shutdown": true, "reboot": true,
	"kill": true, "killall": true, "curl": true, "wget": true,
	"eval": true, "exec": true, "ssh": true, "scp": true,
}

// ClassifyCommand parses command (a shell line or pre-split argv) into
// its constituent sub-commands (splitting on pipes/chaining operators)
// and returns the most restrictive SafetyCategory across all of them.
func ClassifyCommand(command any) SafetyCategory {
	parsed := parseCommand(command)
	if len(parsed) == 0 {
		return CategoryRisky
	}
	worst := CategorySafe
	for _, c := range parsed {
		cat := analyzeCommandSafety(c.name, c.args)
		if cat > worst {
			worst = cat
		}
	}
	return worst
}

type parsedCommand struct {
	name string
	args []string
}

// parseCommand splits a shell command line on the pipe/chain operators
// `|`, `&&`, `||`, and `;`, returning one parsedCommand per segment. This
// mirrors bashlex-based multi-command extraction in the source closely
// enough for the classifier's purposes without adding a shell-grammar
// dependency the rest of the corpus never needed.
func parseCommand(command any) []parsedCommand {
	var fields []string
	switch v := command.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		fields = tokenizeShellLine(v)
	case []string:
		fields = v
	default:
		return nil
	}
	if len(fields) == 0 {
		return nil
	}

	var out []parsedCommand
	var cur []string
	flush := func() {
		if len(cur) == 0 {
			return
		}
		out = append(out, parsedCommand{name: cur[0], args: append([]string(nil), cur[1:]...)})
		cur = nil
	}
	for _, f := range fields {
		switch f {
		case "|", "&&", "||", ";":
			flush()
		default:
			cur = append(cur, f)
		}
	}
	flush()
	return out
}

// tokenizeShellLine performs a minimal whitespace/operator split good
// enough to separate sub-commands; it does not attempt full shell
// quoting semantics.
func tokenizeShellLine(line string) []string {
	for _, op := range []string{"&&", "||"} {
		line = strings.ReplaceAll(line, op, " "+op+" ")
	}
	line = strings.ReplaceAll(line, "|", " | ")
	line = strings.ReplaceAll(line, ";", " ; ")
	return strings.Fields(line)
}

// analyzeCommandSafety classifies a single command name and its
// arguments, following the decision tree reconstructed from
// test_command_safety.py: deny-listed names are always risky; an
// allow-listed name with no path-confirming args is ambiguous (nothing
// to positively check); any path-like argument that escapes the working
// directory or is absolute makes the whole command risky; an
// allow-listed name with at least one confirmed-safe path argument is
// safe; anything else is ambiguous.
func analyzeCommandSafety(name string, args []string) SafetyCategory {
	if name == "" {
		return CategoryRisky
	}
	if riskyCommands[name] {
		return CategoryRisky
	}
	safe := safeCommands[name]
	if len(args) == 0 {
		return CategoryAmbiguous
	}

	hasPathArg := false
	for _, arg := range args {
		if looksLikeFlag(arg) {
			continue
		}
		if !looksLikePath(arg) {
			continue
		}
		hasPathArg = true
		isRelative, isSafe := analyzePathSafety(arg)
		if !isRelative || !isSafe {
			return CategoryRisky
		}
	}
	if !safe {
		return CategoryAmbiguous
	}
	if hasPathArg {
		return CategorySafe
	}
	return CategoryAmbiguous
}

func looksLikeFlag(arg string) bool {
	return strings.HasPrefix(arg, "-")
}

func looksLikePath(arg string) bool {
	return strings.ContainsAny(arg, "/.")
}

// analyzePathSafety reports (isRelative, isSafe) for a single argument
// that looks like a filesystem path: isRelative is false for anything
// starting with "/" (or a Windows drive letter); isSafe tracks whether a
// chain of ".." segments would walk back past the path's own starting
// point — computed only for relative paths, since an absolute path's
// real danger is captured by isRelative alone.
func analyzePathSafety(arg string) (isRelative, isSafe bool) {
	if looksLikeFlag(arg) {
		return true, true
	}
	if isAbsolutePath(arg) {
		return false, true
	}
	depth := 0
	for _, seg := range strings.FieldsFunc(arg, func(r rune) bool { return r == '/' || r == '\\' }) {
		switch seg {
		case "", ".":
			continue
		case "..":
			depth--
			if depth < 0 {
				return true, false
			}
		default:
			depth++
		}
	}
	return true, true
}

func isAbsolutePath(p string) bool {
	if strings.HasPrefix(p, "/") {
		return true
	}
	if len(p) >= 2 && p[1] == ':' && isASCIILetter(p[0]) {
		return true
	}
	return false
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
