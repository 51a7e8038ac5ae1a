// Package builtin implements the fixed set of built-in tools every
// workload can reference without declaring a remote or direct tool:
// file read/write/append, directory create/list, in-tree search, CLI
// execution, unified-diff patch application, and agent/tool
// introspection. Grounded on
// original_source/src/streetrace/tools/definitions/*.py and
// tools/tool_call_result.py, reshaped from a Pydantic model into a plain
// Go struct.
package builtin

// Result is the uniform shape every built-in tool returns: exactly one
// of Result == "success" or "failure", carrying Output on success and
// Error on failure.
type Result struct {
	Result string `json:"result"`
	Output any    `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

func ok(output any) Result {
	return Result{Result: "success", Output: output}
}

func fail(err error) Result {
	return Result{Result: "failure", Error: err.Error()}
}
