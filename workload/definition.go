// Package workload defines the pluggable workload abstraction a supervisor
// runs per user turn: a named, executable unit that given a session and a
// message produces a stream of events. Three loader strategies populate a
// WorkloadDefinition — programmatic, declarative (YAML-like), and compiled
// DSL — behind one Loader interface, grounded on
// original_source/src/streetrace/agents/agent_manager.go's
// (AgentManager.discover/create_agent) multi-loader-in-preference-order
// design and goadesign-goa-ai's workload/agent factory split.
package workload

import (
	"github.com/streetrace-ai/streetrace-sub005/dsl/ast"
	"github.com/streetrace-ai/streetrace-sub005/dsl/interp"
)

// SourceKind identifies which loader produced a WorkloadDefinition.
type SourceKind string

const (
	SourceProgrammatic SourceKind = "programmatic"
	SourceDeclarative  SourceKind = "declarative"
	SourceCompiledDSL  SourceKind = "compiled-dsl"
)

// ToolRef is the declarative (YAML or programmatic-metadata) analogue of an
// ast.ToolDef: a tagged union of remote/builtin/direct tool references that
// have not yet been resolved by a tool.Provider.
type ToolRef struct {
	Name string
	Kind ast.ToolRefKind

	// Builtin
	Module   string
	Function string

	// Direct
	ImportPath string

	// Remote
	Transport  string
	Command    string
	Args       []string
	URL        string
	AuthEnvVar string
	Allow      []string // tool-name allow-list, wildcards permitted
	TimeoutSec int
}

// SubAgentRef names a sub-agent a workload can delegate to, either inline
// (Inline non-nil) or as a $ref to another declarative spec or compiled
// workload (Ref non-empty).
type SubAgentRef struct {
	Ref    string
	Inline *WorkloadDefinition
}

// WorkloadDefinition is the resolved, loader-produced description of one
// workload: enough to construct an agent (model class, tool set,
// instruction/prompt) and, for compiled DSL workloads, the interpreter
// program that executes its flows.
type WorkloadDefinition struct {
	Name        string
	Description string
	Instruction string
	Prompt      string
	Source      SourceKind

	// Model, Compaction, and MaxInputTokens mirror ast.AgentDef's fields
	// for workloads that are not themselves compiled DSL (declarative or
	// programmatic): the agent loop and the session compactor need them
	// regardless of which loader produced the definition.
	Model          string
	Compaction     string
	MaxInputTokens int

	Tools     []ToolRef
	SubAgents []SubAgentRef

	// Program is set only for SourceCompiledDSL workloads; RunFlow/Agent
	// dispatch executes directly against it via dsl/interp.
	Program *interp.Program

	// Factory is set only for SourceProgrammatic workloads: the embedding
	// application's pre-registered constructor for this name. Go has no
	// runtime equivalent of importing an arbitrary entry file and
	// discovering the agent class by base-class identity the way the
	// source system's PythonAgentLoader does, so programmatic workloads
	// are resolved against a registry instead — see ProgrammaticLoader.
	Factory ProgrammaticFactory
}

// ProgrammaticFactory builds a WorkloadDefinition's runtime behavior
// in-process; registered ahead of time via ProgrammaticLoader.Register.
type ProgrammaticFactory func() (*WorkloadDefinition, error)
