package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/fenrirlabs/agentcore/internal/protocol"
	"github.com/fenrirlabs/agentcore/internal/tools"
)

// AnthropicClient implements ModelClient using Anthropic's Messages API.
//
// Maps to: Anthropic Messages API (similar to OpenAI but with differences)
type AnthropicClient struct {
	client anthropic.Client
}

// NewAnthropicClient creates an Anthropic client.
func NewAnthropicClient() *AnthropicClient {
	return &AnthropicClient{client: anthropic.NewClient(option.WithAPIKey(os.Getenv("ANTHROPIC_API_KEY")))}
}

func (c *AnthropicClient) Call(ctx context.Context, req Request) (Response, error) {
	params, err := c.buildParams(req)
	if err != nil {
		return Response{}, err
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return Response{}, classifyAnthropicError(err)
	}

	items, finish := c.parseResponse(resp)
	return Response{
		Items:        items,
		FinishReason: finish,
		TokenUsage: protocol.TokenUsage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
			TotalTokens:  int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}, nil
}

// Stream uses the Anthropic SDK's own streaming accumulator: the Messages
// wire format carries content-block deltas rather than the Responses-API
// SSE shape decoded in sse.go, so there is no shared decoder to reuse here.
func (c *AnthropicClient) Stream(ctx context.Context, req Request, handler StreamHandler) (Response, error) {
	params, err := c.buildParams(req)
	if err != nil {
		return Response{}, err
	}

	stream := c.client.Messages.NewStreaming(ctx, params)
	var acc anthropic.Message
	for stream.Next() {
		event := stream.Current()
		if err := acc.Accumulate(event); err != nil {
			return Response{}, protocol.NewCoreError(protocol.ErrStreamProtocol, "accumulating anthropic stream", err)
		}

		switch delta := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if text := delta.Delta.Text; text != "" {
				if err := handler(StreamEvent{Type: StreamEventTextDelta, Delta: text}); err != nil {
					return Response{}, err
				}
			}
			if thinking := delta.Delta.Thinking; thinking != "" {
				if err := handler(StreamEvent{Type: StreamEventReasoningDelta, Delta: thinking}); err != nil {
					return Response{}, err
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return Response{}, classifyAnthropicError(err)
	}

	items, finish := c.parseResponse(&acc)
	usage := protocol.TokenUsage{
		InputTokens:  int(acc.Usage.InputTokens),
		OutputTokens: int(acc.Usage.OutputTokens),
		TotalTokens:  int(acc.Usage.InputTokens + acc.Usage.OutputTokens),
	}
	if err := handler(StreamEvent{Type: StreamEventCompleted, TokenUsage: &usage}); err != nil {
		return Response{}, err
	}

	return Response{Items: items, FinishReason: finish, TokenUsage: usage}, nil
}

func (c *AnthropicClient) Compact(ctx context.Context, req CompactRequest) (CompactResponse, error) {
	resp, err := c.Call(ctx, Request{
		ModelConfig:      req.ModelConfig,
		History:          req.History,
		BaseInstructions: req.Instructions,
	})
	if err != nil {
		return CompactResponse{}, err
	}
	return CompactResponse{Items: resp.Items, TokenUsage: resp.TokenUsage}, nil
}

func (c *AnthropicClient) buildParams(req Request) (anthropic.MessageNewParams, error) {
	messages, err := c.buildMessages(req.History)
	if err != nil {
		return anthropic.MessageNewParams{}, fmt.Errorf("failed to build messages: %w", err)
	}

	params := anthropic.MessageNewParams{
		Model:     selectAnthropicModel(req.ModelConfig.Model),
		MaxTokens: int64(req.ModelConfig.MaxTokens),
		System:    c.buildSystemBlocks(req),
		Messages:  messages,
	}
	if req.ModelConfig.Temperature > 0 {
		params.Temperature = anthropic.Float(req.ModelConfig.Temperature)
	}
	if len(req.ToolSpecs) > 0 {
		params.Tools = c.buildToolDefinitions(req.ToolSpecs)
	}
	return params, nil
}

// selectAnthropicModel maps a configured model name to the SDK's Model type,
// falling back to passing the string through unchanged for any model the
// SDK constant set does not yet know about.
func selectAnthropicModel(modelName string) anthropic.Model {
	if modelName == "" {
		return anthropic.ModelClaude3_7Sonnet20250219
	}
	return anthropic.Model(modelName)
}

// buildSystemBlocks creates system message blocks with prompt caching
// enabled for the base and user instruction tiers.
func (c *AnthropicClient) buildSystemBlocks(req Request) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	if req.BaseInstructions != "" {
		blocks = append(blocks, anthropic.TextBlockParam{
			Text:         req.BaseInstructions,
			CacheControl: anthropic.CacheControlEphemeralParam{TTL: anthropic.CacheControlEphemeralTTLTTL5m},
		})
	}
	if req.UserInstructions != "" {
		blocks = append(blocks, anthropic.TextBlockParam{
			Text:         req.UserInstructions,
			CacheControl: anthropic.CacheControlEphemeralParam{TTL: anthropic.CacheControlEphemeralTTLTTL5m},
		})
	}
	return blocks
}

// buildMessages converts protocol.ResponseItem history to Anthropic's
// message format.
//
// Key differences from OpenAI:
//  1. Tool calls are content blocks, not separate from assistant messages
//  2. Tool results go in user messages, not tool messages
//  3. System prompt is separate from messages
func (c *AnthropicClient) buildMessages(history []protocol.ResponseItem) ([]anthropic.MessageParam, error) {
	messages := make([]anthropic.MessageParam, 0, len(history))

	i := 0
	for i < len(history) {
		item := history[i]

		switch item.Type {
		case protocol.ItemMessage:
			role := anthropic.MessageParamRoleUser
			if item.Role == "assistant" {
				role = anthropic.MessageParamRoleAssistant
			}
			messages = append(messages, anthropic.MessageParam{
				Role: role,
				Content: []anthropic.ContentBlockParamUnion{{
					OfText: &anthropic.TextBlockParam{Text: item.PlainText()},
				}},
			})
			i++

		case protocol.ItemFunctionCall:
			content := make([]anthropic.ContentBlockParamUnion, 0)
			j := i
			for j < len(history) && history[j].Type == protocol.ItemFunctionCall {
				tc := history[j]
				var inputMap map[string]interface{}
				if err := json.Unmarshal([]byte(tc.Arguments), &inputMap); err != nil {
					return nil, fmt.Errorf("failed to parse tool arguments: %w", err)
				}
				content = append(content, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{ID: tc.CallID, Name: tc.Name, Input: inputMap},
				})
				j++
			}
			if len(content) > 0 {
				messages = append(messages, anthropic.MessageParam{Role: anthropic.MessageParamRoleAssistant, Content: content})
			}
			i = j

		case protocol.ItemFunctionCallOutput:
			isError := item.Output != nil && item.Output.Success != nil && !*item.Output.Success
			outputText := ""
			if item.Output != nil {
				outputText = item.Output.Content
			}
			messages = append(messages, anthropic.MessageParam{
				Role: anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{{
					OfToolResult: &anthropic.ToolResultBlockParam{
						ToolUseID: item.CallID,
						Content: []anthropic.ToolResultBlockParamContentUnion{{
							OfText: &anthropic.TextBlockParam{Text: outputText},
						}},
						IsError: anthropic.Bool(isError),
					},
				}},
			})
			i++

		default:
			i++
		}
	}

	return messages, nil
}

// buildToolDefinitions converts ToolSpecs to Anthropic tool definitions.
func (c *AnthropicClient) buildToolDefinitions(specs []tools.ToolSpec) []anthropic.ToolUnionParam {
	toolDefs := make([]anthropic.ToolUnionParam, 0, len(specs))

	for _, spec := range specs {
		properties := make(map[string]interface{})
		required := make([]string, 0)

		for _, p := range spec.Parameters {
			prop := map[string]interface{}{"type": p.Type, "description": p.Description}
			if p.Items != nil {
				prop["items"] = p.Items
			}
			properties[p.Name] = prop
			if p.Required {
				required = append(required, p.Name)
			}
		}

		inputSchema := anthropic.ToolInputSchemaParam{Properties: properties}
		if len(required) > 0 {
			inputSchema.Required = required
		}

		toolDefs = append(toolDefs, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        spec.Name,
				Description: anthropic.String(spec.Description),
				InputSchema: inputSchema,
			},
		})
	}

	return toolDefs
}

// parseResponse converts an Anthropic message into protocol.ResponseItems.
func (c *AnthropicClient) parseResponse(response *anthropic.Message) ([]protocol.ResponseItem, string) {
	items := make([]protocol.ResponseItem, 0, len(response.Content))
	finish := FinishReasonStop

	for _, block := range response.Content {
		switch block.Type {
		case "text":
			text := block.AsText()
			if text.Text != "" {
				items = append(items, protocol.ResponseItem{
					Type:    protocol.ItemMessage,
					Role:    "assistant",
					Content: []protocol.ContentPart{{Type: "output_text", Text: text.Text}},
				})
			}
		case "tool_use":
			tool := block.AsToolUse()
			finish = FinishReasonToolCalls
			argsJSON, err := json.Marshal(tool.Input)
			if err != nil {
				argsJSON = []byte("{}")
			}
			items = append(items, protocol.ResponseItem{
				Type:      protocol.ItemFunctionCall,
				CallID:    tool.ID,
				Name:      tool.Name,
				Arguments: string(argsJSON),
			})
		}
	}

	if len(items) == 0 {
		items = append(items, protocol.ResponseItem{Type: protocol.ItemMessage, Role: "assistant"})
	}

	switch response.StopReason {
	case anthropic.StopReasonEndTurn, anthropic.StopReasonStopSequence:
		finish = FinishReasonStop
	case anthropic.StopReasonToolUse:
		finish = FinishReasonToolCalls
	case anthropic.StopReasonMaxTokens:
		finish = FinishReasonLength
	}

	return items, finish
}

// classifyAnthropicError categorizes an Anthropic API error using the HTTP
// status code when available, falling back to message-based heuristics.
func classifyAnthropicError(err error) error {
	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "context_length") || strings.Contains(errMsg, "too many tokens") {
		return protocol.NewCoreError(protocol.ErrConfiguration, "context window exceeded", err)
	}

	if apiErr, ok := err.(*anthropic.Error); ok {
		return classifyByStatusCode(apiErr.StatusCode, err)
	}

	if strings.Contains(errMsg, "rate_limit") || strings.Contains(errMsg, "rate limit") {
		return protocol.NewCoreError(protocol.ErrRateLimited, "rate limited", err)
	}
	return protocol.NewCoreError(protocol.ErrTransport, "anthropic API error", err)
}
