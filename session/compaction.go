package session

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/streetrace-ai/streetrace-sub005/eventbus"
)

// Policy selects how a session's history is shrunk once it exceeds a
// model's declared max input tokens.
type Policy string

const (
	PolicyTruncate  Policy = "truncate"
	PolicySummarize Policy = "summarize"
)

// compactionTargetRatio is the fraction of max_input_tokens a compaction
// pass brings the session back under.
const compactionTargetRatio = 0.8

// TokenCounter estimates the token count of arbitrary text, satisfied by
// llm.Client.EstimateTokenCount.
type TokenCounter interface {
	EstimateTokenCount(text string) int
}

// Summarizer produces a structured summary of the events being dropped,
// satisfied by an llm.Client.Complete call wired to a canned summarization
// prompt.
type Summarizer func(ctx context.Context, dropped []Event) (string, error)

// Compactor applies a Policy to a Session once its token count crosses a
// model's max_input_tokens.
type Compactor struct {
	Counter    TokenCounter
	Summarizer Summarizer
}

// Compact shrinks sess's event log per policy if its estimated token count
// exceeds maxInputTokens, returning the resulting events and a telemetry
// payload describing what changed. Callers persist the returned events via
// Store.Replace and publish the payload on the event bus, as the runtime
// supervisor does after an agent turn.
func (c *Compactor) Compact(ctx context.Context, sess Session, policy Policy, maxInputTokens int) ([]Event, *eventbus.HistoryCompactionPayload, error) {
	original := c.estimateTotal(sess.Events)
	if maxInputTokens <= 0 || original <= maxInputTokens {
		return sess.Events, nil, nil
	}
	return c.compact(ctx, sess.Events, policy, original, maxInputTokens)
}

// ManualCompact forces a summarize pass regardless of token count, the
// behavior backing a user-issued "/compact" command. Returns ErrEmptyHistory
// without changing any state if sess has no events.
func (c *Compactor) ManualCompact(ctx context.Context, sess Session) ([]Event, *eventbus.HistoryCompactionPayload, error) {
	if len(sess.Events) == 0 {
		return nil, nil, ErrEmptyHistory
	}
	original := c.estimateTotal(sess.Events)
	return c.compact(ctx, sess.Events, PolicySummarize, original, 0)
}

func (c *Compactor) compact(ctx context.Context, events []Event, policy Policy, original, maxInputTokens int) ([]Event, *eventbus.HistoryCompactionPayload, error) {
	target := maxInputTokens
	if target <= 0 {
		target = original
	}
	budget := int(float64(target) * compactionTargetRatio)

	systemIdx := -1
	for i, e := range events {
		if e.Author == "system" {
			systemIdx = i
			break
		}
	}

	keep, dropped := Truncate(events, c.Counter, systemIdx, budget)
	if len(dropped) == 0 {
		return events, nil, nil
	}

	switch policy {
	case PolicyTruncate:
		compacted := keep
		return compacted, &eventbus.HistoryCompactionPayload{
			Strategy:        string(PolicyTruncate),
			OriginalTokens:  original,
			CompactedTokens: c.estimateTotal(compacted),
			MessagesRemoved: len(dropped),
		}, nil

	case PolicySummarize:
		if c.Summarizer == nil {
			return nil, nil, fmt.Errorf("session: summarize policy requires a Summarizer")
		}
		summary, err := c.Summarizer(ctx, dropped)
		if err != nil {
			return nil, nil, fmt.Errorf("session: summarizing dropped events: %w", err)
		}
		synthetic := Event{
			Author:    "system",
			Content:   &Content{Role: "system", Parts: []Part{TextPart{Text: summary}}},
			Timestamp: compactionTimestamp(keep),
		}
		compacted := append([]Event{synthetic}, keep...)
		return compacted, &eventbus.HistoryCompactionPayload{
			Strategy:        string(PolicySummarize),
			OriginalTokens:  original,
			CompactedTokens: c.estimateTotal(compacted),
			MessagesRemoved: len(dropped),
		}, nil

	default:
		return nil, nil, fmt.Errorf("session: unknown compaction policy %q", policy)
	}
}

// truncationUnit is one or two events that must be kept or dropped
// together: a lone event, or a FunctionCallPart event paired with its
// matching FunctionResponsePart event.
type truncationUnit struct {
	indices []int
	last    int
	cost    int
}

// functionPartIdentity reports the part ID and whether e is a function
// call or a function response, for pairing purposes; ok is false for
// events that carry neither (plain text, or an untagged part).
func functionPartIdentity(e Event) (id string, isCall, ok bool) {
	if e.Content == nil {
		return "", false, false
	}
	for _, p := range e.Content.Parts {
		switch v := p.(type) {
		case FunctionCallPart:
			if v.ID != "" {
				return v.ID, true, true
			}
		case FunctionResponsePart:
			if v.ID != "" {
				return v.ID, false, true
			}
		}
	}
	return "", false, false
}

// Truncate preserves the event at systemIdx (if >= 0, typically the
// system instruction) and as many of the most recent events as fit
// within budget tokens, dropping the rest — grounded on the ordering
// invariant that a tool-call event and its matching tool-response event
// stay adjacent and in order: a budget cut never separates them, since
// they are always kept or dropped as one unit.
func Truncate(events []Event, counter TokenCounter, systemIdx, budget int) (keep, dropped []Event) {
	cost := func(e Event) int {
		if e.Content == nil {
			return 0
		}
		total := 0
		for _, p := range e.Content.Parts {
			if tp, ok := p.(TextPart); ok {
				total += counter.EstimateTokenCount(tp.Text)
			}
		}
		return total
	}

	pendingCall := make(map[string]int)
	used := make([]bool, len(events))
	var units []truncationUnit

	for i, e := range events {
		if i == systemIdx {
			used[i] = true
			continue
		}
		id, isCall, ok := functionPartIdentity(e)
		if !ok {
			continue
		}
		if isCall {
			pendingCall[id] = i
			continue
		}
		if callIdx, found := pendingCall[id]; found {
			delete(pendingCall, id)
			used[callIdx] = true
			used[i] = true
			units = append(units, truncationUnit{
				indices: []int{callIdx, i},
				last:    i,
				cost:    cost(events[callIdx]) + cost(events[i]),
			})
		}
	}
	for i, e := range events {
		if i == systemIdx || used[i] {
			continue
		}
		units = append(units, truncationUnit{indices: []int{i}, last: i, cost: cost(e)})
	}
	sort.Slice(units, func(a, b int) bool { return units[a].last < units[b].last })

	systemCost := 0
	if systemIdx >= 0 {
		systemCost = cost(events[systemIdx])
	}

	keptUnits := 0
	usedBudget := systemCost
	cut := len(units)
	for i := len(units) - 1; i >= 0; i-- {
		if usedBudget+units[i].cost > budget && keptUnits > 0 {
			cut = i + 1
			break
		}
		usedBudget += units[i].cost
		keptUnits++
		cut = i
	}

	keptSet := make(map[int]bool, len(events))
	if systemIdx >= 0 {
		keptSet[systemIdx] = true
	}
	for _, u := range units[cut:] {
		for _, idx := range u.indices {
			keptSet[idx] = true
		}
	}

	for i, e := range events {
		if keptSet[i] {
			keep = append(keep, e)
		} else {
			dropped = append(dropped, e)
		}
	}
	return keep, dropped
}

func (c *Compactor) estimateEvent(e Event) int {
	if e.Content == nil {
		return 0
	}
	total := 0
	for _, p := range e.Content.Parts {
		if tp, ok := p.(TextPart); ok {
			total += c.Counter.EstimateTokenCount(tp.Text)
		}
	}
	return total
}

func (c *Compactor) estimateTotal(events []Event) int {
	total := 0
	for _, e := range events {
		total += c.estimateEvent(e)
	}
	return total
}

func compactionTimestamp(keep []Event) time.Time {
	if len(keep) > 0 {
		return keep[0].Timestamp
	}
	return time.Now()
}
