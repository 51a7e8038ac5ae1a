// Package session defines the durable conversation log every workload turn
// appends to: an ordered, append-only sequence of Events keyed by
// (app, user, session-id) and persisted one JSON file per session.
// Grounded on goadesign-goa-ai's runtime/agent/session package — its
// Store/Session separation and clone-on-read discipline are kept, but the
// payload changes from run-lifecycle metadata to an append-only event log,
// and the backing store becomes a one-file-per-session filesystem layout
// rather than an in-memory map, per the source system's persistence model.
package session

import (
	"time"

	"github.com/streetrace-ai/streetrace-sub005/errs"
)

// Key identifies a session by application, user, and session id.
type Key struct {
	App string
	User string
	ID   string
}

// Part is a marker interface for the three kinds of event content a
// message can carry: plain text, a function (tool) call, or a function
// (tool) response.
type Part interface{ isPart() }

// TextPart is human-readable text content.
type TextPart struct {
	Text string `json:"text"`
}

func (TextPart) isPart() {}

// FunctionCallPart is a tool invocation requested by the model.
type FunctionCallPart struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
	ID   string         `json:"id,omitempty"`
}

func (FunctionCallPart) isPart() {}

// FunctionResponsePart is the result of a tool invocation.
type FunctionResponsePart struct {
	Name     string `json:"name"`
	Response any    `json:"response,omitempty"`
	ID       string `json:"id,omitempty"`
}

func (FunctionResponsePart) isPart() {}

// Content is the role-tagged, ordered part list of an Event.
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Actions carries optional control flags attached to an Event.
type Actions struct {
	Escalate bool `json:"escalate,omitempty"`
}

// Event is one entry in a session's append-only log.
type Event struct {
	Author    string     `json:"author"`
	Content   *Content   `json:"content,omitempty"`
	Actions   *Actions   `json:"actions,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// Session is the in-memory, read-only view of a persisted event log.
// Callers obtain one from a Store and never mutate it directly; all writes
// go through Store.Append so every backing store observes and persists the
// same ordering.
type Session struct {
	Key    Key
	Events []Event
}

// Clone returns a defensive copy so callers cannot mutate a Store's
// internal state through a returned Session.
func (s Session) Clone() Session {
	out := Session{Key: s.Key, Events: make([]Event, len(s.Events))}
	copy(out.Events, s.Events)
	return out
}

// ErrSessionNotFound indicates no session exists for a given Key.
var ErrSessionNotFound = errs.ErrSessionNotFound

// ErrEmptyHistory indicates a manual compaction was requested against a
// session with no events; this is a no-op, not a failure.
var ErrEmptyHistory = errs.ErrEmptyHistory
