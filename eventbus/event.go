// Package eventbus routes runtime events from workload producers (agents,
// the tool provider, the compaction policy, the supervisor) to UI renderers
// and observers without either side knowing about the other. Grounded on
// goadesign-goa-ai's runtime/agent/hooks.Bus, adapted from synchronous
// fail-fast fan-out to a per-subscriber buffered fan-out with no
// back-pressure: a slow subscriber only delays its own delivery, it never
// blocks the publisher or peer subscribers.
package eventbus

import "time"

// Kind identifies the category of an Event.
type Kind string

const (
	KindTurnStarted        Kind = "turn-started"
	KindTurnCompleted      Kind = "turn-completed"
	KindLLMCall            Kind = "llm-call"
	KindLLMResponse        Kind = "llm-response"
	KindUsage              Kind = "usage"
	KindToolCall           Kind = "tool-call"
	KindToolResponse       Kind = "tool-response"
	KindHistoryCompaction  Kind = "history-compaction"
	KindGuardrailWarn      Kind = "guardrail-warn"
	KindBlockedInput       Kind = "blocked-input"
	KindRetryInput         Kind = "retry-input"
	KindCancelled          Kind = "cancelled"
	KindError              Kind = "error"
	KindInfo               Kind = "info"
	KindFlowResult         Kind = "flow-result"
	KindEscalation         Kind = "escalation"
)

// Event is one runtime occurrence published to the bus. Payload carries
// kind-specific structured data (e.g. *HistoryCompactionPayload for
// KindHistoryCompaction); renderers type-switch on Kind to decode it.
type Event struct {
	Kind      Kind
	Workload  string
	Agent     string
	RunID     string
	Timestamp time.Time
	Payload   any
}

// HistoryCompactionPayload is the Payload of a KindHistoryCompaction event.
type HistoryCompactionPayload struct {
	Strategy        string
	OriginalTokens  int
	CompactedTokens int
	MessagesRemoved int
}

// UsagePayload is the Payload of a KindUsage event.
type UsagePayload struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	CostUSD          *float64
}

// ToolResponsePayload is the Payload of a KindToolResponse event.
type ToolResponsePayload struct {
	ToolName string
	Success  bool
	Error    string
}

// FlowResultPayload is the Payload of a KindFlowResult event: the explicit
// `return` value of a compiled-DSL flow.
type FlowResultPayload struct {
	Flow   string
	Result any
}

// EscalationPayload is the Payload of a KindEscalation event: a workload
// signalling its parent supervisor that it cannot resolve the turn itself.
type EscalationPayload struct {
	Reason string
}
