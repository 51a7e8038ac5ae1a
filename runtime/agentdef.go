package runtime

import (
	"github.com/streetrace-ai/streetrace-sub005/dsl/ast"
	"github.com/streetrace-ai/streetrace-sub005/dsl/interp"
	"github.com/streetrace-ai/streetrace-sub005/session"
	"github.com/streetrace-ai/streetrace-sub005/workload"
)

// firstAgent returns an arbitrary agent declared in program, for the
// common case of a compiled-DSL source with exactly one `agent` block
// and no `flow main`.
func firstAgent(program *interp.Program) (*ast.AgentDef, bool) {
	for _, agent := range program.Agents() {
		return agent, true
	}
	return nil, false
}

// definitionToAgentDef adapts a declarative or programmatic
// WorkloadDefinition into the same ast.AgentDef shape a compiled-DSL
// `agent` block produces, so AgentLoop never needs to know which loader
// resolved the workload it's running.
func definitionToAgentDef(def *workload.WorkloadDefinition) *ast.AgentDef {
	names := make([]string, len(def.Tools))
	for i, t := range def.Tools {
		names[i] = t.Name
	}
	return &ast.AgentDef{
		Name:           def.Name,
		Description:    def.Description,
		Instruction:    def.Instruction,
		Tools:          names,
		Model:          def.Model,
		Compaction:     compactionStrategy(def.Compaction),
		MaxInputTokens: def.MaxInputTokens,
	}
}

func compactionStrategy(s string) ast.CompactionStrategy {
	switch s {
	case string(session.PolicyTruncate):
		return ast.CompactionTruncate
	case string(session.PolicySummarize):
		return ast.CompactionSummarize
	default:
		return ast.CompactionNone
	}
}

func compactionPolicy(s ast.CompactionStrategy) session.Policy {
	switch s {
	case ast.CompactionTruncate:
		return session.PolicyTruncate
	default:
		return session.PolicySummarize
	}
}
