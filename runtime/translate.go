package runtime

import (
	"encoding/json"
	"time"

	"github.com/streetrace-ai/streetrace-sub005/llm"
	"github.com/streetrace-ai/streetrace-sub005/session"
)

// eventsToMessages flattens a session's prior events into the provider-
// neutral llm.Message list a model call expects, translating each
// session.Part kind into the corresponding llm.Role/ToolCall shape.
func eventsToMessages(events []session.Event) []llm.Message {
	var messages []llm.Message
	for _, e := range events {
		if e.Content == nil {
			continue
		}
		role := sessionRoleToLLMRole(e.Content.Role)
		for _, part := range e.Content.Parts {
			switch p := part.(type) {
			case session.TextPart:
				messages = append(messages, llm.Message{Role: role, Text: p.Text})
			case session.FunctionCallPart:
				payload, _ := json.Marshal(p.Args)
				messages = append(messages, llm.Message{
					Role:      llm.RoleAssistant,
					ToolCalls: []llm.ToolCall{{ID: p.ID, Name: p.Name, Payload: payload}},
				})
			case session.FunctionResponsePart:
				payload, _ := json.Marshal(p.Response)
				messages = append(messages, llm.Message{
					Role:       llm.RoleTool,
					ToolCallID: p.ID,
					Text:       string(payload),
				})
			}
		}
	}
	return messages
}

func sessionRoleToLLMRole(role string) llm.Role {
	switch role {
	case "user":
		return llm.RoleUser
	case "system":
		return llm.RoleSystem
	case "tool":
		return llm.RoleTool
	default:
		return llm.RoleAssistant
	}
}

func userEvent(text string) session.Event {
	return session.Event{
		Author:    "user",
		Content:   &session.Content{Role: "user", Parts: []session.Part{session.TextPart{Text: text}}},
		Timestamp: time.Now(),
	}
}

func assistantTextEvent(text string) session.Event {
	return session.Event{
		Author:    "assistant",
		Content:   &session.Content{Role: "assistant", Parts: []session.Part{session.TextPart{Text: text}}},
		Timestamp: time.Now(),
	}
}

func toolEvent(name, id string, response any) session.Event {
	return session.Event{
		Author: "tool",
		Content: &session.Content{
			Role:  "tool",
			Parts: []session.Part{session.FunctionResponsePart{Name: name, Response: response, ID: id}},
		},
		Timestamp: time.Now(),
	}
}

func assistantToolCallMessage(resp llm.Response) llm.Message {
	return llm.Message{Role: llm.RoleAssistant, Text: resp.Text, ToolCalls: resp.ToolCalls}
}

func toolResultMessage(call llm.ToolCall, result any) llm.Message {
	payload, _ := json.Marshal(result)
	return llm.Message{Role: llm.RoleTool, ToolCallID: call.ID, Text: string(payload)}
}

func decodeToolArgs(payload json.RawMessage) map[string]any {
	args := make(map[string]any)
	if len(payload) == 0 {
		return args
	}
	_ = json.Unmarshal(payload, &args)
	return args
}
