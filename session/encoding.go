package session

import (
	"encoding/json"
	"fmt"
)

// sessionDoc is the on-disk envelope for a session file.
type sessionDoc struct {
	Events []eventDoc `json:"events"`
}

type eventDoc struct {
	Author    string      `json:"author"`
	Content   *contentDoc `json:"content,omitempty"`
	Actions   *Actions    `json:"actions,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type contentDoc struct {
	Role  string    `json:"role"`
	Parts []partDoc `json:"parts"`
}

// partDoc tags a Part with its kind so decodeParts can reconstruct the
// concrete type.
type partDoc struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

func encodeEvents(events []Event) []eventDoc {
	docs := make([]eventDoc, len(events))
	for i, e := range events {
		docs[i] = eventDoc{
			Author:    e.Author,
			Actions:   e.Actions,
			Timestamp: e.Timestamp.Format(timeLayout),
		}
		if e.Content != nil {
			docs[i].Content = &contentDoc{Role: e.Content.Role, Parts: encodeParts(e.Content.Parts)}
		}
	}
	return docs
}

func encodeParts(parts []Part) []partDoc {
	docs := make([]partDoc, 0, len(parts))
	for _, p := range parts {
		var kind string
		switch p.(type) {
		case TextPart:
			kind = "text"
		case FunctionCallPart:
			kind = "function_call"
		case FunctionResponsePart:
			kind = "function_response"
		default:
			continue
		}
		data, err := json.Marshal(p)
		if err != nil {
			continue
		}
		docs = append(docs, partDoc{Kind: kind, Data: data})
	}
	return docs
}

func decodeEvents(docs []eventDoc) ([]Event, error) {
	events := make([]Event, len(docs))
	for i, d := range docs {
		ts, err := parseTime(d.Timestamp)
		if err != nil {
			return nil, err
		}
		events[i] = Event{Author: d.Author, Actions: d.Actions, Timestamp: ts}
		if d.Content != nil {
			parts, err := decodeParts(d.Content.Parts)
			if err != nil {
				return nil, err
			}
			events[i].Content = &Content{Role: d.Content.Role, Parts: parts}
		}
	}
	return events, nil
}

func decodeParts(docs []partDoc) ([]Part, error) {
	parts := make([]Part, 0, len(docs))
	for _, d := range docs {
		var part Part
		switch d.Kind {
		case "text":
			var p TextPart
			if err := json.Unmarshal(d.Data, &p); err != nil {
				return nil, err
			}
			part = p
		case "function_call":
			var p FunctionCallPart
			if err := json.Unmarshal(d.Data, &p); err != nil {
				return nil, err
			}
			part = p
		case "function_response":
			var p FunctionResponsePart
			if err := json.Unmarshal(d.Data, &p); err != nil {
				return nil, err
			}
			part = p
		default:
			return nil, fmt.Errorf("session: unknown part kind %q", d.Kind)
		}
		parts = append(parts, part)
	}
	return parts, nil
}
