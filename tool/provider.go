package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/streetrace-ai/streetrace-sub005/dsl/ast"
	"github.com/streetrace-ai/streetrace-sub005/errs"
)

// Tool is a materialized, callable tool reference — the runtime form of
// an ast.ToolDef.
type Tool interface {
	Name() string
	Call(ctx context.Context, args map[string]any) (any, error)
}

// BuiltinFunc implements a built-in tool — the file, CLI, and agent-
// introspection tools in package tool/builtin.
type BuiltinFunc func(ctx context.Context, args map[string]any) (any, error)

type builtinTool struct {
	name string
	fn   BuiltinFunc
}

func (b *builtinTool) Name() string { return b.name }
func (b *builtinTool) Call(ctx context.Context, args map[string]any) (any, error) {
	return b.fn(ctx, args)
}

// DirectFunc implements a direct-callable tool. Go has no runtime
// equivalent of importing an arbitrary module path named in DSL source
// (`tool x = "pkg.module.func"`); unlike Python's importlib, a compiled Go
// binary can only call functions it was built with. A direct tool's
// ImportPath is therefore resolved by looking it up in a registry the
// embedding application populates at startup — see Provider.RegisterDirect
// — rather than by dynamic import.
type DirectFunc func(ctx context.Context, args map[string]any) (any, error)

type directTool struct {
	name string
	fn   DirectFunc
}

func (d *directTool) Name() string { return d.name }
func (d *directTool) Call(ctx context.Context, args map[string]any) (any, error) {
	return d.fn(ctx, args)
}

// remoteTool wraps a single tool exposed by an MCP server reached over
// stdio, HTTP, or SSE transport, lazily connecting on first Call (grounded
// on kadirpekel-hector's pkg/tool/mcptoolset.Toolset lazy-init pattern and
// vanducng-goclaw's internal/mcp.createClient transport switch).
type remoteTool struct {
	name    string
	def     *ast.ToolDef
	mu      sync.Mutex
	client  *client.Client
	started bool
}

func (r *remoteTool) Name() string { return r.name }

func newMCPClient(def *ast.ToolDef) (*client.Client, error) {
	switch def.Transport {
	case "stdio":
		return client.NewStdioMCPClient(def.Command, nil, def.Args...)
	case "sse":
		return client.NewSSEMCPClient(def.URL, authHeaderOptions(def)...)
	case "http":
		opts := make([]transport.StreamableHTTPCOption, 0, 1)
		if headers := authHeaders(def); len(headers) > 0 {
			opts = append(opts, transport.WithHTTPHeaders(headers))
		}
		return client.NewStreamableHttpClient(def.URL, opts...)
	default:
		return nil, fmt.Errorf("tool: %w: transport %q not supported", errs.ErrLoadFailed, def.Transport)
	}
}

func authHeaders(def *ast.ToolDef) map[string]string {
	if def.AuthEnvVar == "" {
		return nil
	}
	token := os.Getenv(def.AuthEnvVar)
	if token == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

func authHeaderOptions(def *ast.ToolDef) []transport.ClientOption {
	headers := authHeaders(def)
	if len(headers) == 0 {
		return nil
	}
	return []transport.ClientOption{client.WithHeaders(headers)}
}

func (r *remoteTool) ensureStarted(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}
	c, err := newMCPClient(r.def)
	if err != nil {
		return fmt.Errorf("tool: starting mcp client for %q: %w", r.name, err)
	}
	initCtx := ctx
	if r.def.TimeoutSec > 0 {
		var cancel context.CancelFunc
		initCtx, cancel = context.WithTimeout(ctx, time.Duration(r.def.TimeoutSec)*time.Second)
		defer cancel()
	}
	if r.def.Transport != "stdio" {
		if err := c.Start(initCtx); err != nil {
			return fmt.Errorf("tool: starting %s transport for %q: %w", r.def.Transport, r.name, err)
		}
	}
	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	if _, err := c.Initialize(initCtx, initReq); err != nil {
		return fmt.Errorf("tool: initializing mcp client for %q: %w", r.name, err)
	}
	r.client = c
	r.started = true
	return nil
}

// allowListPermits reports whether name is permitted by allow, a set of
// glob patterns (path.Match syntax; "*" matches any tool name). An empty
// allow list permits every name, matching the declarative loader's
// "tools: []" means "all tools" convention.
func allowListPermits(allow []string, name string) bool {
	if len(allow) == 0 {
		return true
	}
	for _, pattern := range allow {
		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func (r *remoteTool) Call(ctx context.Context, args map[string]any) (any, error) {
	if !allowListPermits(r.def.Allow, r.name) {
		return nil, fmt.Errorf("tool: %w: %q not in allow-list for %q", errs.ErrLoadFailed, r.name, r.def.Name)
	}
	if err := r.ensureStarted(ctx); err != nil {
		return nil, err
	}
	req := mcp.CallToolRequest{}
	req.Params.Name = r.name
	req.Params.Arguments = args
	res, err := r.client.CallTool(ctx, req)
	if err != nil {
		return nil, &errs.ToolFailureError{ToolName: r.name, Cause: err}
	}
	return res, nil
}

// schemaValidatedTool wraps a Tool with an args-validation step against a
// compiled JSON Schema, rejecting a call before it reaches the underlying
// tool implementation (grounded on goadesign-goa-ai/registry/service.go's
// validatePayloadJSONAgainstSchema, which validates a tool-call payload
// against its declared schema ahead of dispatch).
type schemaValidatedTool struct {
	Tool
	schema *jsonschema.Schema
}

func (s *schemaValidatedTool) Call(ctx context.Context, args map[string]any) (any, error) {
	payload, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("tool: marshaling args for %q: %w", s.Name(), err)
	}
	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("tool: re-decoding args for %q: %w", s.Name(), err)
	}
	if err := s.schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("tool: %w: %q args: %w", errs.ErrLoadFailed, s.Name(), err)
	}
	return s.Tool.Call(ctx, args)
}

func compileSchema(name string, raw []byte) (*jsonschema.Schema, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("tool: unmarshaling schema for %q: %w", name, err)
	}
	c := jsonschema.NewCompiler()
	resource := name + ".schema.json"
	if err := c.AddResource(resource, doc); err != nil {
		return nil, fmt.Errorf("tool: adding schema resource for %q: %w", name, err)
	}
	schema, err := c.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("tool: compiling schema for %q: %w", name, err)
	}
	return schema, nil
}

// Provider materializes ast.ToolDef references into callable Tool
// values. Built-ins are registered by name ahead of time; direct
// references resolve against the same registry since Go cannot import a
// module path discovered at runtime.
type Provider struct {
	mu       sync.RWMutex
	builtins map[string]BuiltinFunc
	directs  map[string]DirectFunc
}

// NewProvider returns an empty Provider.
func NewProvider() *Provider {
	return &Provider{
		builtins: make(map[string]BuiltinFunc),
		directs:  make(map[string]DirectFunc),
	}
}

// RegisterBuiltin adds a built-in tool implementation under the dotted
// "module.function" name an ast.ToolDef's Module/Function fields spell.
func (p *Provider) RegisterBuiltin(module, function string, fn BuiltinFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.builtins[module+"."+function] = fn
}

// RegisterDirect adds a direct-callable tool implementation under the
// import path an ast.ToolDef's ImportPath names.
func (p *Provider) RegisterDirect(importPath string, fn DirectFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.directs[importPath] = fn
}

// Materialize resolves def into a callable Tool, wrapping it with schema
// validation when def.Schema is set.
func (p *Provider) Materialize(def *ast.ToolDef) (Tool, error) {
	t, err := p.materializeUnvalidated(def)
	if err != nil {
		return nil, err
	}
	if len(def.Schema) == 0 {
		return t, nil
	}
	schema, err := compileSchema(def.Name, def.Schema)
	if err != nil {
		return nil, err
	}
	return &schemaValidatedTool{Tool: t, schema: schema}, nil
}

func (p *Provider) materializeUnvalidated(def *ast.ToolDef) (Tool, error) {
	switch def.Kind {
	case ast.ToolRefBuiltin:
		p.mu.RLock()
		fn, ok := p.builtins[def.Module+"."+def.Function]
		p.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("tool: %w: builtin %s.%s", errs.ErrLoadFailed, def.Module, def.Function)
		}
		return &builtinTool{name: def.Name, fn: fn}, nil

	case ast.ToolRefDirect:
		p.mu.RLock()
		fn, ok := p.directs[def.ImportPath]
		p.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("tool: %w: direct callable %s not registered", errs.ErrLoadFailed, def.ImportPath)
		}
		return &directTool{name: def.Name, fn: fn}, nil

	case ast.ToolRefRemote:
		switch def.Transport {
		case "stdio", "http", "sse":
			return &remoteTool{name: def.Name, def: def}, nil
		default:
			return nil, fmt.Errorf("tool: %w: transport %q not supported", errs.ErrLoadFailed, def.Transport)
		}

	default:
		return nil, fmt.Errorf("tool: %w: unknown tool kind", errs.ErrLoadFailed)
	}
}
