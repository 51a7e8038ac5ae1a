// Command streetrace wires the supervisor, workload manager, tool
// provider, and LLM client together for a single-process run. The CLI
// surface itself (flag parsing, REPL, slash commands) is treated as an
// external concern; this glue only exposes the pieces an external front
// end needs — version, workload discovery, and one RunTurn call — as
// plain functions, grounded on goadesign-goa-ai/cmd/demo's minimal
// main.go shape (register a runtime, run one turn, print the result).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/streetrace-ai/streetrace-sub005/errs"
	"github.com/streetrace-ai/streetrace-sub005/eventbus"
	"github.com/streetrace-ai/streetrace-sub005/llm"
	"github.com/streetrace-ai/streetrace-sub005/llm/provider"
	"github.com/streetrace-ai/streetrace-sub005/runtime"
	"github.com/streetrace-ai/streetrace-sub005/session"
	"github.com/streetrace-ai/streetrace-sub005/tool"
	"github.com/streetrace-ai/streetrace-sub005/tool/builtin"
	"github.com/streetrace-ai/streetrace-sub005/workload"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("config", "error", err)
		os.Exit(1)
	}

	sup, err := buildSupervisor(cfg)
	if err != nil {
		logger.Error("startup", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	result, err := sup.RunTurn(ctx, runtime.TurnRequest{
		App:      "streetrace",
		User:     cfg.User,
		Workload: cfg.Workload,
		Prompt:   cfg.Prompt,
	})
	if err != nil {
		logger.Error("turn failed", "workload", cfg.Workload, "error", err)
		os.Exit(1)
	}
	fmt.Println(result.FinalText)
}

// config is the minimal set of inputs an external CLI front end would
// gather before calling buildSupervisor; here it's read straight from
// the environment since the flag surface itself is out of scope.
type config struct {
	Provider        string
	APIKey          string
	Model           string
	WorkDir         string
	SessionRoot     string
	Workload        string
	Prompt          string
	User            string
	CacheSize       int
	TokensPerMinute int
}

func loadConfig() (*config, error) {
	cfg := &config{
		Provider:        envOr("STREETRACE_PROVIDER", "anthropic"),
		APIKey:          os.Getenv("STREETRACE_API_KEY"),
		Model:           envOr("STREETRACE_MODEL", "claude-sonnet-4-20250514"),
		WorkDir:         envOr("STREETRACE_WORKDIR", "."),
		SessionRoot:     envOr("STREETRACE_SESSION_ROOT", ".streetrace/sessions"),
		Workload:        os.Getenv("STREETRACE_WORKLOAD"),
		Prompt:          os.Getenv("STREETRACE_PROMPT"),
		User:            envOr("STREETRACE_USER", "local"),
		CacheSize:       100,
		TokensPerMinute: 60000,
	}
	if v := os.Getenv("STREETRACE_TOKENS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("cmd/streetrace: %w: STREETRACE_TOKENS_PER_MINUTE: %w", errs.ErrLoadFailed, err)
		}
		cfg.TokensPerMinute = n
	}
	if cfg.Workload == "" {
		return nil, fmt.Errorf("cmd/streetrace: %w: STREETRACE_WORKLOAD not set", errs.ErrLoadFailed)
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// buildSupervisor assembles the LLM client (retry-wrapped), tool
// provider (built-ins registered), workload manager (all three loaders
// rooted at WorkDir), session store, compactor, and event bus into one
// Supervisor.
func buildSupervisor(cfg *config) (*runtime.Supervisor, error) {
	model, err := buildModel(cfg)
	if err != nil {
		return nil, err
	}

	tools := tool.NewProvider()
	fileset := &builtin.FileSet{WorkDir: cfg.WorkDir}
	tools.RegisterBuiltin("builtin", "read_file", fileset.ReadFile)
	tools.RegisterBuiltin("builtin", "write_file", fileset.WriteFile)
	tools.RegisterBuiltin("builtin", "write_json_file", fileset.WriteJSONFile)
	tools.RegisterBuiltin("builtin", "create_directory", fileset.CreateDirectory)
	tools.RegisterBuiltin("builtin", "append_to_file", fileset.AppendToFile)
	tools.RegisterBuiltin("builtin", "list_directory", fileset.ListDirectory)
	tools.RegisterBuiltin("builtin", "find_in_files", fileset.FindInFiles)
	tools.RegisterBuiltin("builtin", "apply_unified_patch", fileset.ApplyPatch)

	mgr, err := workload.NewManager([]string{cfg.WorkDir}, cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	sessions, err := session.NewFileStore(cfg.SessionRoot)
	if err != nil {
		return nil, err
	}

	bus := eventbus.New()

	return &runtime.Supervisor{
		Workloads: mgr,
		Tools:     tools,
		Model:     model,
		Sessions:  sessions,
		Compactor: &session.Compactor{Counter: model},
		Bus:       bus,
	}, nil
}

func buildModel(cfg *config) (llm.Client, error) {
	var (
		base llm.Client
		err  error
	)
	switch cfg.Provider {
	case "anthropic":
		base, err = provider.NewAnthropicFromAPIKey(cfg.APIKey, cfg.Model)
	case "openai":
		base, err = provider.NewOpenAIFromAPIKey(cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("cmd/streetrace: %w: unknown provider %q", errs.ErrLoadFailed, cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("cmd/streetrace: building %s client: %w", cfg.Provider, err)
	}
	limited := llm.NewRateLimitedClient(base, cfg.TokensPerMinute)
	return llm.NewRetryingClient(limited), nil
}
