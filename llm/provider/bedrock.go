package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	smithy "github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/streetrace-ai/streetrace-sub005/llm"
)

// BedrockRuntimeClient mirrors the subset of the AWS Bedrock runtime client
// required by Bedrock. Satisfied by *bedrockruntime.Client.
type BedrockRuntimeClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockOptions configures a Bedrock-backed llm.Client.
type BedrockOptions struct {
	DefaultModel string
	MaxTokens    int
	Temperature  float32
}

// Bedrock implements llm.Client over the AWS Bedrock Converse API.
type Bedrock struct {
	runtime BedrockRuntimeClient
	opts    BedrockOptions
}

// NewBedrock builds a Client from an already-configured runtime client.
func NewBedrock(runtime BedrockRuntimeClient, opts BedrockOptions) (*Bedrock, error) {
	if runtime == nil {
		return nil, errors.New("bedrock: runtime client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errors.New("bedrock: default model is required")
	}
	return &Bedrock{runtime: runtime, opts: opts}, nil
}

func (b *Bedrock) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	input := b.buildConverseInput(req)
	output, err := b.runtime.Converse(ctx, input)
	if err != nil {
		if isBedrockRateLimited(err) {
			return llm.Response{}, fmt.Errorf("%w: %w", llm.ErrRateLimited, err)
		}
		return llm.Response{}, fmt.Errorf("bedrock converse: %w", err)
	}
	return translateBedrockResponse(output), nil
}

// Stream is not implemented by the Bedrock adapter yet; no SPEC_FULL.md
// component currently requests streaming turns from this provider.
func (b *Bedrock) Stream(ctx context.Context, req llm.Request) (llm.Streamer, error) {
	return nil, errors.New("bedrock: streaming not implemented")
}

func (b *Bedrock) EstimateTokenCount(text string) int {
	return llm.EstimateTokenCount(text)
}

func (b *Bedrock) buildConverseInput(req llm.Request) *bedrockruntime.ConverseInput {
	modelID := req.Model
	if modelID == "" {
		modelID = b.opts.DefaultModel
	}
	var system []brtypes.SystemContentBlock
	messages := make([]brtypes.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == llm.RoleSystem {
			if m.Text != "" {
				system = append(system, &brtypes.SystemContentBlockMemberText{Value: m.Text})
			}
			continue
		}
		role := brtypes.ConversationRoleUser
		if m.Role == llm.RoleAssistant {
			role = brtypes.ConversationRoleAssistant
		}
		var blocks []brtypes.ContentBlock
		if m.Text != "" {
			blocks = append(blocks, &brtypes.ContentBlockMemberText{Value: m.Text})
		}
		messages = append(messages, brtypes.Message{Role: role, Content: blocks})
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(modelID),
		Messages: messages,
	}
	if len(system) > 0 {
		input.System = system
	}
	if len(req.Tools) > 0 {
		input.ToolConfig = b.buildToolConfig(req.Tools)
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = b.opts.MaxTokens
	}
	temp := req.Temperature
	var cfg brtypes.InferenceConfiguration
	hasCfg := false
	if maxTokens > 0 {
		mt := int32(maxTokens)
		cfg.MaxTokens = &mt
		hasCfg = true
	}
	if t := float32(temp); t > 0 {
		cfg.Temperature = &t
		hasCfg = true
	} else if b.opts.Temperature > 0 {
		t := b.opts.Temperature
		cfg.Temperature = &t
		hasCfg = true
	}
	if hasCfg {
		input.InferenceConfig = &cfg
	}
	return input
}

func (b *Bedrock) buildToolConfig(defs []llm.ToolDefinition) *brtypes.ToolConfiguration {
	toolList := make([]brtypes.Tool, 0, len(defs))
	for _, d := range defs {
		spec := brtypes.ToolSpecification{
			Name:        aws.String(d.Name),
			Description: aws.String(d.Description),
		}
		toolList = append(toolList, &brtypes.ToolMemberToolSpec{Value: spec})
	}
	return &brtypes.ToolConfiguration{Tools: toolList}
}

func translateBedrockResponse(output *bedrockruntime.ConverseOutput) llm.Response {
	var resp llm.Response
	if msg, ok := output.Output.(*brtypes.ConverseOutputMemberMessage); ok {
		for _, block := range msg.Value.Content {
			switch v := block.(type) {
			case *brtypes.ContentBlockMemberText:
				resp.Text += v.Value
			case *brtypes.ContentBlockMemberToolUse:
				name := ""
				if v.Value.Name != nil {
					name = *v.Value.Name
				}
				id := ""
				if v.Value.ToolUseId != nil {
					id = *v.Value.ToolUseId
				}
				resp.ToolCalls = append(resp.ToolCalls, llm.ToolCall{Name: name, ID: id})
			}
		}
	}
	if usage := output.Usage; usage != nil {
		resp.Usage = llm.Usage{
			PromptTokens:     int(ptrValue(usage.InputTokens)),
			CompletionTokens: int(ptrValue(usage.OutputTokens)),
			TotalTokens:      int(ptrValue(usage.TotalTokens)),
		}
	}
	resp.StopReason = string(output.StopReason)
	return resp
}

func ptrValue(p *int32) int32 {
	if p == nil {
		return 0
	}
	return *p
}

func isBedrockRateLimited(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException":
			return true
		}
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 429 {
		return true
	}
	return false
}
