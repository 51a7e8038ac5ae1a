// Package provider adapts llm.Client to concrete model SDKs: Anthropic
// Claude, OpenAI Chat Completions, and AWS Bedrock Converse. Each adapter
// mirrors goadesign-goa-ai's runtime/agent/model/{anthropic,openai,bedrock}
// packages: a narrow interface capturing only the SDK surface the adapter
// calls (so callers can substitute a fake in tests), an Options struct, and
// constructors: New/NewFromAPIKey for Anthropic and OpenAI, NewBedrock for
// Bedrock.
package provider

import (
	"context"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/streetrace-ai/streetrace-sub005/llm"
)

// AnthropicMessagesClient captures the subset of the Anthropic SDK used by
// Anthropic. Satisfied by *sdk.MessageService.
type AnthropicMessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// AnthropicOptions configures an Anthropic-backed llm.Client.
type AnthropicOptions struct {
	DefaultModel string
	MaxTokens    int
	Temperature  float64
}

// Anthropic implements llm.Client over the Anthropic Messages API.
type Anthropic struct {
	msg   AnthropicMessagesClient
	opts  AnthropicOptions
}

// NewAnthropic builds a Client from an already-configured Messages service.
func NewAnthropic(msg AnthropicMessagesClient, opts AnthropicOptions) (*Anthropic, error) {
	if msg == nil {
		return nil, errors.New("anthropic: messages client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errors.New("anthropic: default model is required")
	}
	return &Anthropic{msg: msg, opts: opts}, nil
}

// NewAnthropicFromAPIKey constructs a Client using the SDK's default HTTP
// client, authenticated with apiKey.
func NewAnthropicFromAPIKey(apiKey, defaultModel string) (*Anthropic, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	c := sdk.NewClient(option.WithAPIKey(apiKey))
	return NewAnthropic(&c.Messages, AnthropicOptions{DefaultModel: defaultModel})
}

func (a *Anthropic) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	params, err := a.prepareParams(req)
	if err != nil {
		return llm.Response{}, err
	}
	msg, err := a.msg.New(ctx, *params)
	if err != nil {
		if isAnthropicRateLimited(err) {
			return llm.Response{}, fmt.Errorf("%w: %w", llm.ErrRateLimited, err)
		}
		return llm.Response{}, fmt.Errorf("anthropic messages.new: %w", err)
	}
	return translateAnthropicResponse(msg), nil
}

// Stream is not implemented by the Anthropic adapter yet; no SPEC_FULL.md
// component currently requests streaming turns from this provider.
func (a *Anthropic) Stream(ctx context.Context, req llm.Request) (llm.Streamer, error) {
	return nil, errors.New("anthropic: streaming not implemented")
}

func (a *Anthropic) EstimateTokenCount(text string) int {
	return llm.EstimateTokenCount(text)
}

func (a *Anthropic) prepareParams(req llm.Request) (*sdk.MessageNewParams, error) {
	modelID := req.Model
	if modelID == "" {
		modelID = a.opts.DefaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = a.opts.MaxTokens
	}
	if maxTokens <= 0 {
		return nil, errors.New("anthropic: max_tokens must be positive")
	}

	msgs := make([]sdk.MessageParam, 0, len(req.Messages))
	var system []sdk.TextBlockParam
	for _, m := range req.Messages {
		if m.Role == llm.RoleSystem {
			if m.Text != "" {
				system = append(system, sdk.TextBlockParam{Text: m.Text})
			}
			continue
		}
		role := sdk.MessageParamRoleUser
		if m.Role == llm.RoleAssistant {
			role = sdk.MessageParamRoleAssistant
		}
		msgs = append(msgs, sdk.MessageParam{
			Role:    role,
			Content: []sdk.ContentBlockParamUnion{sdk.NewTextBlock(m.Text)},
		})
	}

	params := &sdk.MessageNewParams{
		Model:     sdk.Model(modelID),
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
	}
	if len(system) > 0 {
		params.System = system
	}
	if temp := req.Temperature; temp > 0 {
		params.Temperature = sdk.Float(temp)
	} else if a.opts.Temperature > 0 {
		params.Temperature = sdk.Float(a.opts.Temperature)
	}
	if len(req.Tools) > 0 {
		tools := make([]sdk.ToolUnionParam, 0, len(req.Tools))
		for _, t := range req.Tools {
			tools = append(tools, sdk.ToolUnionParamOfTool(sdk.ToolInputSchemaParam{}, t.Name))
		}
		params.Tools = tools
	}
	return params, nil
}

func translateAnthropicResponse(msg *sdk.Message) llm.Response {
	var resp llm.Response
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			resp.Text += block.Text
		case "tool_use":
			payload, _ := block.Input.MarshalJSON()
			resp.ToolCalls = append(resp.ToolCalls, llm.ToolCall{
				ID:      block.ID,
				Name:    block.Name,
				Payload: payload,
			})
		}
	}
	resp.StopReason = string(msg.StopReason)
	resp.Usage = llm.Usage{
		PromptTokens:     int(msg.Usage.InputTokens),
		CompletionTokens: int(msg.Usage.OutputTokens),
		TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
	}
	return resp
}

func isAnthropicRateLimited(err error) bool {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}
