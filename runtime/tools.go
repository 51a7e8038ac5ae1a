package runtime

import (
	"github.com/streetrace-ai/streetrace-sub005/dsl/ast"
	"github.com/streetrace-ai/streetrace-sub005/tool"
	"github.com/streetrace-ai/streetrace-sub005/workload"
)

// materializeTools resolves a workload's declared tool references through
// provider into the name-keyed Tool map an AgentLoop dispatches calls
// against.
func materializeTools(provider *tool.Provider, refs []workload.ToolRef) (map[string]tool.Tool, error) {
	tools := make(map[string]tool.Tool, len(refs))
	for _, ref := range refs {
		def := &ast.ToolDef{
			Name:       ref.Name,
			Kind:       ref.Kind,
			Module:     ref.Module,
			Function:   ref.Function,
			Transport:  ref.Transport,
			Command:    ref.Command,
			Args:       ref.Args,
			URL:        ref.URL,
			AuthEnvVar: ref.AuthEnvVar,
			TimeoutSec: ref.TimeoutSec,
			Allow:      ref.Allow,
			ImportPath: ref.ImportPath,
		}
		t, err := provider.Materialize(def)
		if err != nil {
			return nil, err
		}
		tools[ref.Name] = t
	}
	return tools, nil
}
