// Package errs defines the StreetRace error taxonomy shared across the DSL
// compiler, the workload runtime, and the tool provider. Each distinct
// failure kind gets a sentinel or typed error so callers can branch on
// errors.Is/errors.As instead of inspecting message text.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors for runtime compile/load failures. These are
// surfaced as a clear user-visible message and are never retried.
var (
	// ErrAgentNotFound indicates a workload name could not be resolved by
	// any loader known to the workload manager.
	ErrAgentNotFound = errors.New("agent not found")
	// ErrCircularReference indicates a cyclic $ref chain while resolving a
	// declarative spec, or a cyclic delegate graph while compiling the DSL.
	ErrCircularReference = errors.New("circular reference")
	// ErrLoadFailed indicates a workload source (file, directory, or URL)
	// could not be read or parsed into a definition.
	ErrLoadFailed = errors.New("load failed")
)

// Sentinel errors for session/compaction interactions.
var (
	// ErrSessionNotFound indicates no session exists for the given key.
	ErrSessionNotFound = errors.New("session not found")
	// ErrEmptyHistory is returned by a manual /compact when the session has
	// no events to compact; it is not a failure, just a no-op signal.
	ErrEmptyHistory = errors.New("no history")
)

// Sentinel errors surfaced by the cancellation machinery. This
// error propagates without being caught except by the supervisor.
var ErrCancelled = errors.New("workflow cancelled")

// Guardrail errors. Exactly one of these replaces the
// exception-for-control-flow style of the source: the runtime dispatches on
// type/value instead of unwinding an exception stack.
var (
	// ErrRetryInput signals that the guardrail pipeline wants the agent
	// turn restarted with a modified message. Carry the replacement message
	// via RetryInputError.
	ErrRetryInput = errors.New("retry-input")
)

// BlockedInputError reports that a guardrail's "block" action stopped the
// current turn before the model was invoked.
type BlockedInputError struct {
	Guardrail string
	Reason    string
}

func (e *BlockedInputError) Error() string {
	return fmt.Sprintf("blocked-input: guardrail %q: %s", e.Guardrail, e.Reason)
}

// RetryInputError carries the replacement message for a guardrail "retry"
// action. errors.Is(err, ErrRetryInput) matches this type.
type RetryInputError struct {
	Guardrail      string
	ReplacementMsg string
}

func (e *RetryInputError) Error() string {
	return fmt.Sprintf("retry-input: guardrail %q requested retry", e.Guardrail)
}

func (e *RetryInputError) Is(target error) bool { return target == ErrRetryInput }

// ToolFailureError wraps a tool-call failure. Tool failures are
// not fatal: the runtime captures them in the tool-response event and
// delivers the error text back to the model so it may recover.
type ToolFailureError struct {
	ToolName string
	Cause    error
}

func (e *ToolFailureError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.ToolName, e.Cause)
}

func (e *ToolFailureError) Unwrap() error { return e.Cause }

// PathSafetyError reports that a path argument resolved outside the
// declared working directory.
type PathSafetyError struct {
	Path    string
	WorkDir string
}

func (e *PathSafetyError) Error() string {
	return fmt.Sprintf("path %q resolves outside the allowed working directory %q", e.Path, e.WorkDir)
}

// CLISafetyError reports that a CLI command was classified RISKY and
// refused before execution.
type CLISafetyError struct {
	Command string
	Reason  string
}

func (e *CLISafetyError) Error() string {
	return fmt.Sprintf("command %q refused: %s", e.Command, e.Reason)
}

// JSONParseError reports that a structured-output response could not be
// parsed as JSON after recursive JSON-string normalization.
type JSONParseError struct {
	Cause error
}

func (e *JSONParseError) Error() string {
	return fmt.Sprintf("json-parse-error: %v", e.Cause)
}

func (e *JSONParseError) Unwrap() error { return e.Cause }

// SchemaValidationError reports that a structured output failed JSON Schema
// validation. Messages carries one entry per failing field.
type SchemaValidationError struct {
	Messages []string
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("schema-validation-error: %d field violation(s)", len(e.Messages))
}

// LLMFatalError wraps a non-retryable provider error (context-length, auth,
// schema violation from the provider itself).
type LLMFatalError struct {
	Provider string
	Cause    error
}

func (e *LLMFatalError) Error() string {
	return fmt.Sprintf("llm fatal error from %s: %v", e.Provider, e.Cause)
}

func (e *LLMFatalError) Unwrap() error { return e.Cause }

// TransientError marks a provider error as retryable (rate limit, 5xx).
// The retry wrapper type-switches on this to decide whether to back off
// and retry or reraise immediately.
type TransientError struct {
	Cause error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient llm error: %v", e.Cause) }

func (e *TransientError) Unwrap() error { return e.Cause }

// MergeConflictError reports that two parallel branches wrote the same
// variable name and the runtime could not apply last-writer-wins.
type MergeConflictError struct {
	Name string
}

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("parallel merge conflict: both branches assigned %q", e.Name)
}
