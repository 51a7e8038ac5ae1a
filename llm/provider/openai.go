package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/streetrace-ai/streetrace-sub005/llm"
)

// ChatCompletionsClient captures the subset of the openai-go client used by
// OpenAI, mirroring the narrow-interface-over-SDK pattern the Anthropic and
// Bedrock adapters use so callers can substitute a fake in tests.
type ChatCompletionsClient interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAIOptions configures an OpenAI-backed llm.Client.
type OpenAIOptions struct {
	DefaultModel string
	Temperature  float64
}

// OpenAI implements llm.Client over the Chat Completions API.
type OpenAI struct {
	chat ChatCompletionsClient
	opts OpenAIOptions
}

// NewOpenAI builds a Client from an already-configured Chat Completions
// service.
func NewOpenAI(chat ChatCompletionsClient, opts OpenAIOptions) (*OpenAI, error) {
	if chat == nil {
		return nil, errors.New("openai: chat completions client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errors.New("openai: default model is required")
	}
	return &OpenAI{chat: chat, opts: opts}, nil
}

// NewOpenAIFromAPIKey constructs a Client using openai-go's default HTTP
// client, authenticated with apiKey.
func NewOpenAIFromAPIKey(apiKey, defaultModel string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	c := openai.NewClient(option.WithAPIKey(apiKey))
	return NewOpenAI(&c.Chat.Completions, OpenAIOptions{DefaultModel: defaultModel})
}

func (o *OpenAI) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	params, err := o.prepareParams(req)
	if err != nil {
		return llm.Response{}, err
	}
	resp, err := o.chat.New(ctx, *params)
	if err != nil {
		if isOpenAIRateLimited(err) {
			return llm.Response{}, fmt.Errorf("%w: %w", llm.ErrRateLimited, err)
		}
		return llm.Response{}, fmt.Errorf("openai chat completions: %w", err)
	}
	return translateOpenAIResponse(resp), nil
}

// Stream is not implemented by the OpenAI adapter yet; no SPEC_FULL.md
// component currently requests streaming turns from this provider.
func (o *OpenAI) Stream(ctx context.Context, req llm.Request) (llm.Streamer, error) {
	return nil, errors.New("openai: streaming not implemented")
}

func (o *OpenAI) EstimateTokenCount(text string) int {
	return llm.EstimateTokenCount(text)
}

func (o *OpenAI) prepareParams(req llm.Request) (*openai.ChatCompletionNewParams, error) {
	modelID := req.Model
	if modelID == "" {
		modelID = o.opts.DefaultModel
	}
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Text))
		case llm.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Text))
		case llm.RoleTool:
			messages = append(messages, openai.ToolMessage(m.Text, m.ToolCallID))
		default:
			messages = append(messages, openai.UserMessage(m.Text))
		}
	}
	params := &openai.ChatCompletionNewParams{
		Model:    modelID,
		Messages: messages,
	}
	if temp := req.Temperature; temp > 0 {
		params.Temperature = openai.Float(temp)
	} else if o.opts.Temperature > 0 {
		params.Temperature = openai.Float(o.opts.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if len(req.Tools) > 0 {
		tools := make([]openai.ChatCompletionToolParam, 0, len(req.Tools))
		for _, t := range req.Tools {
			tools = append(tools, openai.ChatCompletionToolParam{
				Function: openai.FunctionDefinitionParam{
					Name:        t.Name,
					Description: openai.String(t.Description),
					Parameters:  openai.FunctionParameters(toParamMap(t.InputSchema)),
				},
			})
		}
		params.Tools = tools
	}
	return params, nil
}

func toParamMap(schema any) map[string]any {
	if m, ok := schema.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func translateOpenAIResponse(resp *openai.ChatCompletion) llm.Response {
	var out llm.Response
	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		out.Text = choice.Message.Content
		out.StopReason = string(choice.FinishReason)
		for _, call := range choice.Message.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
				ID:      call.ID,
				Name:    call.Function.Name,
				Payload: []byte(call.Function.Arguments),
			})
		}
	}
	out.Usage = llm.Usage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	return out
}

func isOpenAIRateLimited(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}
