// Package llm defines the provider-neutral model interface every runtime
// turn calls through: a Complete/Stream Client plus the message, tool, and
// usage types adapters translate to and from a concrete provider SDK.
// Modeled on goadesign-goa-ai's runtime/agent/model package, trimmed to the
// text-and-tool-call surface a DSL-driven agent turn actually exercises
// (no multimodal documents/citations, which no SPEC_FULL.md component uses).
package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// Role identifies the speaker of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn in the conversation transcript passed to a provider.
type Message struct {
	Role Role
	// Text is the plain-text content of the message.
	Text string
	// ToolCallID correlates a RoleTool message with the ToolCall.ID that
	// requested it.
	ToolCallID string
	// ToolCalls carries tool invocations requested by the assistant in this
	// message, when Role is RoleAssistant.
	ToolCalls []ToolCall
}

// ToolDefinition describes one tool available to the model for this call.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema any
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID      string
	Name    string
	Payload json.RawMessage
}

// Usage tracks token counts and, when the provider SDK exposes pricing,
// an estimated cost for a single call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	// CostUSD is nil when no cost was computed. None of the provider
	// adapters in this module sets it, so it is always nil; AgentLoop
	// forwards it unchanged in its usage event and emits no separate
	// warning for a missing cost.
	CostUSD *float64
}

// Request captures the inputs to one model invocation.
type Request struct {
	Model       string
	Messages    []Message
	Tools       []ToolDefinition
	Temperature float64
	MaxTokens   int
}

// Response is the result of a non-streaming Complete call.
type Response struct {
	Text      string
	ToolCalls []ToolCall
	Usage     Usage
	StopReason string
}

// Chunk is one incremental event from a Stream call.
type Chunk struct {
	TextDelta string
	ToolCall  *ToolCall
	Done      bool
	StopReason string
}

// Streamer delivers incremental output from a streaming call. Callers drain
// Recv until it returns (Chunk{Done: true}, nil) or an error, then Close.
type Streamer interface {
	Recv() (Chunk, error)
	Close() error
}

// Client is the provider-neutral model interface every agent turn calls
// through.
type Client interface {
	// Complete performs a single non-streaming invocation.
	Complete(ctx context.Context, req Request) (Response, error)
	// Stream performs a streaming invocation. Streaming calls bypass the
	// retry wrapper entirely.
	Stream(ctx context.Context, req Request) (Streamer, error)
	// EstimateTokenCount returns an approximate token count for text under
	// this provider's tokenizer, used by the compaction policy to decide
	// when a session's history exceeds max_input_tokens.
	EstimateTokenCount(text string) int
}

// ErrRateLimited is wrapped by provider adapters when the underlying SDK
// reports a 429/throttling response; the Anthropic and OpenAI adapters
// also wrap it for any 5xx status so that RetryingClient retries those.
var ErrRateLimited = errors.New("llm: rate limited")
