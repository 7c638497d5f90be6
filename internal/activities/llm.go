// Package activities contains Temporal activity implementations.
//
// Corresponds to: codex-rs/core/src/codex.rs try_run_sampling_request
package activities

import (
	"context"
	"encoding/json"

	"github.com/fenrirlabs/agentcore/internal/instructions"
	"github.com/fenrirlabs/agentcore/internal/llm"
	"github.com/fenrirlabs/agentcore/internal/models"
	"github.com/fenrirlabs/agentcore/internal/protocol"
	"github.com/fenrirlabs/agentcore/internal/tools"
)

// LLMActivityInput is the input for the LLM activity.
//
// Maps to: codex-rs/core/src/codex.rs try_run_sampling_request input
type LLMActivityInput struct {
	History     []protocol.ResponseItem `json:"history"`
	ModelConfig llm.ModelConfig         `json:"model_config"`
	ToolSpecs   []tools.ToolSpec        `json:"tool_specs"`

	// Instructions hierarchy (maps to Codex 3-tier system). DeveloperInstructions
	// has no dedicated slot in llm.Request, so ExecuteLLMCall folds it into
	// BaseInstructions before building the provider request.
	BaseInstructions      string `json:"base_instructions,omitempty"`
	DeveloperInstructions string `json:"developer_instructions,omitempty"`
	UserInstructions      string `json:"user_instructions,omitempty"`

	// FinalOutputJSONSchema, when set, is sent as text.format in the
	// provider request and used to re-validate the final assistant message
	// locally once the response arrives.
	FinalOutputJSONSchema json.RawMessage `json:"final_output_json_schema,omitempty"`
}

// LLMActivityOutput is the output from the LLM activity.
// Items contains all response items (assistant messages + function calls),
// matching Codex's SamplingRequestResult.
//
// Maps to: codex-rs/core/src/codex.rs SamplingRequestResult
type LLMActivityOutput struct {
	Items        []protocol.ResponseItem `json:"items"`
	FinishReason string                  `json:"finish_reason"`
	TokenUsage   protocol.TokenUsage     `json:"token_usage"`

	// ResponseID chains subsequent OpenAI Responses API turns.
	ResponseID string `json:"response_id,omitempty"`
}

// LLMActivities contains LLM-related activities.
type LLMActivities struct {
	client llm.ModelClient
}

// NewLLMActivities creates a new LLMActivities instance.
func NewLLMActivities(client llm.ModelClient) *LLMActivities {
	return &LLMActivities{client: client}
}

// ExecuteLLMCall executes an LLM call and returns the complete response.
//
// Maps to: codex-rs/core/src/codex.rs try_run_sampling_request
func (a *LLMActivities) ExecuteLLMCall(ctx context.Context, input LLMActivityInput) (LLMActivityOutput, error) {
	baseInstructions := input.BaseInstructions
	if input.DeveloperInstructions != "" {
		if baseInstructions != "" {
			baseInstructions += "\n\n" + input.DeveloperInstructions
		} else {
			baseInstructions = input.DeveloperInstructions
		}
	}

	request := llm.Request{
		ModelConfig:           input.ModelConfig,
		History:               input.History,
		ToolSpecs:             input.ToolSpecs,
		BaseInstructions:      baseInstructions,
		UserInstructions:      input.UserInstructions,
		FinalOutputJSONSchema: input.FinalOutputJSONSchema,
	}

	response, err := a.client.Call(ctx, request)
	if err != nil {
		return LLMActivityOutput{}, models.ClassifyCoreError(err)
	}

	if len(input.FinalOutputJSONSchema) > 0 {
		if final := lastAssistantText(response.Items); final != "" {
			if err := llm.ValidateFinalOutput(json.RawMessage(input.FinalOutputJSONSchema), final); err != nil {
				return LLMActivityOutput{}, models.NewFatalError(err.Error())
			}
		}
	}

	return LLMActivityOutput{
		Items:        response.Items,
		FinishReason: response.FinishReason,
		TokenUsage:   response.TokenUsage,
		ResponseID:   response.ResponseID,
	}, nil
}

// lastAssistantText returns the plain text of the last assistant message in
// items, or "" if none is present.
func lastAssistantText(items []protocol.ResponseItem) string {
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].Type == protocol.ItemMessage && items[i].Role == "assistant" {
			return items[i].PlainText()
		}
	}
	return ""
}

// CompactActivityInput is the input for the compact activity.
//
// Maps to: codex-rs/core/src/compact.rs compact operation input
type CompactActivityInput struct {
	ModelConfig  llm.ModelConfig         `json:"model_config"`
	Input        []protocol.ResponseItem `json:"input"`
	Instructions string                  `json:"instructions,omitempty"`
}

// CompactActivityOutput is the output from the compact activity.
//
// Maps to: codex-rs/core/src/compact.rs compact operation output
type CompactActivityOutput struct {
	Items      []protocol.ResponseItem `json:"items"`
	TokenUsage protocol.TokenUsage     `json:"token_usage"`
}

// ExecuteCompact performs context compaction via the LLM provider's Compact
// method; both the OpenAI and Anthropic clients implement it as an ordinary
// model call that summarizes the given history.
//
// Maps to: codex-rs/core/src/compact.rs compact operation
func (a *LLMActivities) ExecuteCompact(ctx context.Context, input CompactActivityInput) (CompactActivityOutput, error) {
	resp, err := a.client.Compact(ctx, llm.CompactRequest{
		ModelConfig:  input.ModelConfig,
		History:      input.Input,
		Instructions: input.Instructions,
	})
	if err != nil {
		return CompactActivityOutput{}, models.ClassifyCoreError(err)
	}

	return CompactActivityOutput{
		Items:      resp.Items,
		TokenUsage: resp.TokenUsage,
	}, nil
}

// SuggestionInput is the input for the GenerateSuggestions activity.
type SuggestionInput struct {
	UserMessage      string          `json:"user_message"`
	AssistantMessage string          `json:"assistant_message"`
	ToolSummaries    []string        `json:"tool_summaries,omitempty"`
	ModelConfig      llm.ModelConfig `json:"model_config"`
}

// SuggestionOutput is the output from the GenerateSuggestions activity.
type SuggestionOutput struct {
	Suggestion string `json:"suggestion"` // Single suggestion or empty string
}

// GenerateSuggestions calls a cheap/fast LLM to generate a single prompt
// suggestion after a turn completes. Best-effort: any error returns empty.
func (a *LLMActivities) GenerateSuggestions(ctx context.Context, input SuggestionInput) (SuggestionOutput, error) {
	userContent := instructions.BuildSuggestionInput(
		input.UserMessage, input.AssistantMessage, input.ToolSummaries)

	request := llm.Request{
		History: []protocol.ResponseItem{
			{
				Type:    protocol.ItemMessage,
				Role:    "user",
				Content: []protocol.ContentPart{{Type: "input_text", Text: userContent}},
			},
		},
		ModelConfig:      input.ModelConfig,
		BaseInstructions: instructions.SuggestionSystemPrompt,
	}

	response, err := a.client.Call(ctx, request)
	if err != nil {
		// Best-effort: return empty on any error
		return SuggestionOutput{}, nil
	}

	// Extract the first assistant message content
	for _, item := range response.Items {
		if item.Type == protocol.ItemMessage && item.Role == "assistant" {
			if text := item.PlainText(); text != "" {
				suggestion := instructions.ParseSuggestionResponse(text)
				return SuggestionOutput{Suggestion: suggestion}, nil
			}
		}
	}

	return SuggestionOutput{}, nil
}

// EstimateContextUsage estimates if we're approaching context window limits.
func (a *LLMActivities) EstimateContextUsage(ctx context.Context, history []protocol.ResponseItem, contextWindow int) (float64, error) {
	totalChars := 0
	for _, item := range history {
		totalChars += len(item.PlainText())
		totalChars += len(item.Arguments)
		totalChars += len(item.Name)
		if item.Output != nil {
			totalChars += len(item.Output.Content)
		}
	}

	estimatedTokens := totalChars / 4
	usage := float64(estimatedTokens) / float64(contextWindow)
	return usage, nil
}
