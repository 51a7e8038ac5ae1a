package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type charCounter struct{}

func (charCounter) EstimateTokenCount(text string) int { return len(text) }

func textEvent(author, text string) Event {
	return Event{
		Author:    author,
		Content:   &Content{Role: author, Parts: []Part{TextPart{Text: text}}},
		Timestamp: time.Now(),
	}
}

func callEvent(id, name string) Event {
	return Event{
		Author:    "assistant",
		Content:   &Content{Role: "assistant", Parts: []Part{FunctionCallPart{Name: name, ID: id}}},
		Timestamp: time.Now(),
	}
}

func responseEvent(id, name, text string) Event {
	return Event{
		Author:    "tool",
		Content:   &Content{Role: "tool", Parts: []Part{FunctionResponsePart{Name: name, Response: text, ID: id}}},
		Timestamp: time.Now(),
	}
}

func TestTruncate_NeverSplitsAFunctionCallResponsePair(t *testing.T) {
	t.Parallel()

	events := []Event{
		textEvent("system", "be helpful"),     // 0: system, always kept
		textEvent("user", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"), // 1: old filler, pushed out
		callEvent("call-1", "read_file"),      // 2: call, paired with 3
		responseEvent("call-1", "read_file", "contents"), // 3: its matching response
		textEvent("assistant", "done"),        // 4: most recent
	}

	// charCounter counts only text parts, so the call (2) and its response
	// (3) cost nothing. The budget covers the system message, the tail
	// event and a sliver more: the 40-char filler (1) is dropped and the
	// pair is kept whole.
	budget := len(events[0].Content.Parts[0].(TextPart).Text) +
		len(events[4].Content.Parts[0].(TextPart).Text) +
		5 // a sliver more than system plus tail, far short of the filler

	keep, dropped := Truncate(events, charCounter{}, 0, budget)

	hasCall, hasResponse := false, false
	for _, e := range keep {
		if e.Content == nil {
			continue
		}
		for _, p := range e.Content.Parts {
			switch p.(type) {
			case FunctionCallPart:
				hasCall = true
			case FunctionResponsePart:
				hasResponse = true
			}
		}
	}
	require.Equal(t, hasCall, hasResponse, "a function call and its response must be kept or dropped together")

	// The system message is always kept.
	require.Contains(t, keep, events[0])
	require.NotEmpty(t, dropped)
}

func TestTruncate_KeepsEverythingWhenBudgetIsGenerous(t *testing.T) {
	t.Parallel()

	events := []Event{
		textEvent("user", "hi"),
		callEvent("call-1", "read_file"),
		responseEvent("call-1", "read_file", "contents"),
		textEvent("assistant", "done"),
	}

	keep, dropped := Truncate(events, charCounter{}, -1, 10_000)
	require.Equal(t, events, keep)
	require.Empty(t, dropped)
}
