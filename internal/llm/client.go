// Package llm talks to model providers: it shapes a turn's conversation
// history and tool specs into a provider request, decodes the streamed
// response, and classifies provider failures for the caller's retry policy.
//
// Corresponds to: codex-rs/core/src/client.rs
package llm

import (
	"context"
	"fmt"

	"github.com/fenrirlabs/agentcore/internal/protocol"
	"github.com/fenrirlabs/agentcore/internal/tools"
)

// ModelConfig selects a provider, model, and sampling parameters for one call.
//
// Maps to: codex-rs/core/src/model_family.rs ModelFamily + client config
type ModelConfig struct {
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	Effort      string  `json:"effort,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`

	// ContextWindow is the provider's advertised context size, used for
	// EstimateContextUsage and auto-compaction decisions.
	ContextWindow int `json:"context_window,omitempty"`

	// PreviousResponseID chains to a prior OpenAI Responses API turn for
	// incremental sends instead of resending full history.
	PreviousResponseID string `json:"previous_response_id,omitempty"`
}

// Request is everything needed to shape one model turn.
//
// Maps to: codex-rs/core/src/client_common.rs Prompt
type Request struct {
	ModelConfig ModelConfig              `json:"model_config"`
	History     []protocol.ResponseItem  `json:"history"`
	ToolSpecs   []tools.ToolSpec         `json:"tool_specs"`

	BaseInstructions string `json:"base_instructions,omitempty"`
	UserInstructions string `json:"user_instructions,omitempty"`

	// ParallelToolCalls false forces single-tool-call-per-turn semantics.
	ParallelToolCalls bool `json:"parallel_tool_calls"`

	// FinalOutputJSONSchema, when set, constrains the final assistant
	// message to the given JSON schema.
	FinalOutputJSONSchema []byte `json:"final_output_json_schema,omitempty"`
}

// Response is a complete model turn result.
//
// Maps to: codex-rs/core/src/codex.rs SamplingRequestResult
type Response struct {
	Items        []protocol.ResponseItem  `json:"items"`
	FinishReason string                   `json:"finish_reason"`
	TokenUsage   protocol.TokenUsage      `json:"token_usage"`
	RateLimits   *protocol.RateLimitSnapshot `json:"rate_limits,omitempty"`

	// ResponseID chains subsequent OpenAI Responses API turns via
	// ModelConfig.PreviousResponseID.
	ResponseID string `json:"response_id,omitempty"`
}

const (
	FinishReasonStop      = "stop"
	FinishReasonToolCalls = "tool_calls"
	FinishReasonLength    = "length"
)

// StreamEventType discriminates events produced while decoding a streamed
// response.
type StreamEventType string

const (
	StreamEventTextDelta      StreamEventType = "text_delta"
	StreamEventReasoningDelta StreamEventType = "reasoning_delta"
	StreamEventItemDone       StreamEventType = "item_done"
	StreamEventCompleted      StreamEventType = "completed"
)

// StreamEvent is one decoded SSE event from a streaming model call.
type StreamEvent struct {
	Type       StreamEventType
	Delta      string
	Item       *protocol.ResponseItem
	TokenUsage *protocol.TokenUsage
	RateLimits *protocol.RateLimitSnapshot
	ResponseID string
}

// StreamHandler receives decoded stream events as they arrive. Returning an
// error aborts the stream.
type StreamHandler func(StreamEvent) error

// ModelClient is implemented by each provider adapter.
//
// Maps to: codex-rs/core/src/client.rs ModelClient trait
type ModelClient interface {
	// Call performs a complete, non-streaming turn.
	Call(ctx context.Context, req Request) (Response, error)

	// Stream performs a turn, invoking handler for every decoded event as
	// it arrives, and returns the aggregated final Response.
	Stream(ctx context.Context, req Request, handler StreamHandler) (Response, error)

	// Compact asks the provider to summarize older conversation history.
	Compact(ctx context.Context, req CompactRequest) (CompactResponse, error)
}

// CompactRequest asks a provider to summarize older conversation history.
//
// Maps to: codex-rs/core/src/compact.rs CompactRequest
type CompactRequest struct {
	ModelConfig  ModelConfig             `json:"model_config"`
	History      []protocol.ResponseItem `json:"history"`
	Instructions string                  `json:"instructions,omitempty"`
}

// CompactResponse carries the generated summary as a replacement history.
//
// Maps to: codex-rs/core/src/compact.rs CompactResponse
type CompactResponse struct {
	Items      []protocol.ResponseItem `json:"items"`
	TokenUsage protocol.TokenUsage     `json:"token_usage"`
}

// classifyByStatusCode maps an HTTP status code to a protocol.CoreError.
// Shared by all provider error classifiers.
func classifyByStatusCode(statusCode int, err error) *protocol.CoreError {
	kind := protocol.ClassifyHTTPStatus(statusCode)
	return protocol.NewCoreError(kind, fmt.Sprintf("provider returned %d", statusCode), err)
}
