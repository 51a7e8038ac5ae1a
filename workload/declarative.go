package workload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/streetrace-ai/streetrace-sub005/dsl/ast"
	"github.com/streetrace-ai/streetrace-sub005/errs"
)

// declSpec is the YAML shape a declarative workload file parses into,
// grounded on original_source/src/streetrace/agents/yaml_agent.py's
// AgentDocument/spec split: name and description are required, everything
// else optional, and sub_agents/tools may each be inline or a $ref.
type declSpec struct {
	Name           string         `yaml:"name"`
	Description    string         `yaml:"description"`
	Instruction    string         `yaml:"instruction"`
	Prompt         string         `yaml:"prompt"`
	Model          string         `yaml:"model"`
	Compaction     string         `yaml:"compaction"`
	MaxInputTokens int            `yaml:"max_input_tokens"`
	Tools          []declToolSpec `yaml:"tools"`
	SubAgents      []declRef      `yaml:"sub_agents"`
}

type declToolSpec struct {
	Name    string           `yaml:"name"`
	Builtin *declBuiltinSpec `yaml:"builtin"`
	Direct  *declDirectSpec  `yaml:"direct"`
	MCP     *declMCPSpec     `yaml:"mcp"`
}

type declBuiltinSpec struct {
	Module   string `yaml:"module"`
	Function string `yaml:"function"`
}

type declDirectSpec struct {
	ImportPath string `yaml:"import_path"`
}

type declMCPSpec struct {
	Name       string   `yaml:"name"`
	Transport  string   `yaml:"transport"`
	Command    string   `yaml:"command"`
	Args       []string `yaml:"args"`
	URL        string   `yaml:"url"`
	AuthEnvVar string   `yaml:"auth_env_var"`
	Tools      []string `yaml:"tools"`
	TimeoutSec int      `yaml:"timeout_seconds"`
}

// declRef is either an inline declSpec or a $ref string pointing at another
// file path or an http(s) URL.
type declRef struct {
	Ref    string
	Inline *declSpec
}

// UnmarshalYAML distinguishes a "$ref: path" mapping from an inline spec:
// a node carrying only a $ref key resolves later via resolveSubAgentRefs,
// anything else is parsed as a full declSpec.
func (r *declRef) UnmarshalYAML(node *yaml.Node) error {
	var refOnly struct {
		Ref string `yaml:"$ref"`
	}
	if err := node.Decode(&refOnly); err == nil && refOnly.Ref != "" {
		r.Ref = refOnly.Ref
		return nil
	}
	var spec declSpec
	if err := node.Decode(&spec); err != nil {
		return err
	}
	r.Inline = &spec
	return nil
}

// DeclarativeLoader loads YAML-shaped workload specs from the filesystem or
// over HTTP, resolving $ref chains recursively with cycle detection.
type DeclarativeLoader struct {
	HTTPClient *http.Client
	// AuthEnvVar names the environment variable holding the bearer token
	// used for HTTP $ref fetches, defaulting to STREETRACE_AGENT_URI_AUTH
	// per the external-interfaces surface.
	AuthEnvVar string
}

// NewDeclarativeLoader returns a DeclarativeLoader with sane HTTP defaults.
func NewDeclarativeLoader() *DeclarativeLoader {
	return &DeclarativeLoader{
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		AuthEnvVar: "STREETRACE_AGENT_URI_AUTH",
	}
}

// Load implements Loader.
func (l *DeclarativeLoader) Load(ctx context.Context, res Resolution) (*WorkloadDefinition, error) {
	path := l.findSpecFile(res.Name, res.SearchPaths)
	if path == "" {
		return nil, fmt.Errorf("workload: %w: declarative %q", errs.ErrAgentNotFound, res.Name)
	}
	spec, err := l.loadFile(ctx, path, map[string]bool{path: true})
	if err != nil {
		return nil, err
	}
	return l.toDefinition(spec), nil
}

// Discover implements Loader, scanning searchPaths for *.yaml/*.yml files
// that parse as valid declSpecs.
func (l *DeclarativeLoader) Discover(ctx context.Context, searchPaths []string) ([]*WorkloadDefinition, error) {
	var defs []*WorkloadDefinition
	for _, dir := range searchPaths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !isYAMLFile(e.Name()) {
				continue
			}
			path := filepath.Join(dir, e.Name())
			spec, err := l.loadFile(ctx, path, map[string]bool{path: true})
			if err != nil {
				continue
			}
			defs = append(defs, l.toDefinition(spec))
		}
	}
	return defs, nil
}

func (l *DeclarativeLoader) findSpecFile(name string, searchPaths []string) string {
	candidates := []string{name + ".yaml", name + ".yml"}
	for _, dir := range searchPaths {
		for _, c := range candidates {
			path := filepath.Join(dir, c)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

func (l *DeclarativeLoader) loadFile(ctx context.Context, path string, visited map[string]bool) (*declSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("workload: reading %s: %w", path, err)
	}
	var spec declSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("workload: %w: parsing %s: %v", errs.ErrLoadFailed, path, err)
	}
	if spec.Name == "" || spec.Description == "" {
		return nil, fmt.Errorf("workload: %w: %s missing required name/description", errs.ErrLoadFailed, path)
	}
	if err := l.resolveSubAgentRefs(ctx, &spec, filepath.Dir(path), visited); err != nil {
		return nil, err
	}
	return &spec, nil
}

func (l *DeclarativeLoader) resolveSubAgentRefs(ctx context.Context, spec *declSpec, baseDir string, visited map[string]bool) error {
	for i, sub := range spec.SubAgents {
		if sub.Ref == "" {
			continue
		}
		key := sub.Ref
		if visited[key] {
			return fmt.Errorf("workload: %w: sub_agents $ref cycle at %q", errs.ErrCircularReference, key)
		}
		visited[key] = true

		var resolved *declSpec
		var err error
		if strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://") {
			resolved, err = l.fetchHTTP(ctx, key, visited)
		} else {
			resolved, err = l.loadFile(ctx, filepath.Join(baseDir, key), visited)
		}
		if err != nil {
			return err
		}
		spec.SubAgents[i].Inline = resolved
		// visited tracks the current $ref chain, so a file shared by
		// sibling sub-agents is not mistaken for a cycle.
		delete(visited, key)
	}
	return nil
}

func (l *DeclarativeLoader) fetchHTTP(ctx context.Context, url string, visited map[string]bool) (*declSpec, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("workload: building request for %s: %w", url, err)
	}
	if token := os.Getenv(l.AuthEnvVar); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := l.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("workload: fetching %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("workload: %w: %s returned status %d", errs.ErrLoadFailed, url, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("workload: reading body of %s: %w", url, err)
	}
	var spec declSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("workload: %w: parsing %s: %v", errs.ErrLoadFailed, url, err)
	}
	if err := l.resolveSubAgentRefs(ctx, &spec, "", visited); err != nil {
		return nil, err
	}
	return &spec, nil
}

func (l *DeclarativeLoader) toDefinition(spec *declSpec) *WorkloadDefinition {
	def := &WorkloadDefinition{
		Name:           spec.Name,
		Description:    spec.Description,
		Instruction:    spec.Instruction,
		Prompt:         spec.Prompt,
		Model:          spec.Model,
		Compaction:     spec.Compaction,
		MaxInputTokens: spec.MaxInputTokens,
		Source:         SourceDeclarative,
	}
	for _, t := range spec.Tools {
		def.Tools = append(def.Tools, toToolRef(t))
	}
	for _, s := range spec.SubAgents {
		ref := SubAgentRef{Ref: s.Ref}
		if s.Inline != nil {
			ref.Inline = l.toDefinition(s.Inline)
		}
		def.SubAgents = append(def.SubAgents, ref)
	}
	return def
}

func toToolRef(t declToolSpec) ToolRef {
	switch {
	case t.Builtin != nil:
		return ToolRef{Name: t.Name, Kind: ast.ToolRefBuiltin, Module: t.Builtin.Module, Function: t.Builtin.Function}
	case t.Direct != nil:
		return ToolRef{Name: t.Name, Kind: ast.ToolRefDirect, ImportPath: t.Direct.ImportPath}
	case t.MCP != nil:
		return ToolRef{
			Name:       t.Name,
			Kind:       ast.ToolRefRemote,
			Transport:  t.MCP.Transport,
			Command:    t.MCP.Command,
			Args:       t.MCP.Args,
			URL:        t.MCP.URL,
			AuthEnvVar: t.MCP.AuthEnvVar,
			Allow:      t.MCP.Tools,
			TimeoutSec: t.MCP.TimeoutSec,
		}
	default:
		return ToolRef{Name: t.Name}
	}
}

func isYAMLFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
