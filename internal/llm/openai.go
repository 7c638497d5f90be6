package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fenrirlabs/agentcore/internal/protocol"
	"github.com/fenrirlabs/agentcore/internal/tools"
)

// idleTimeout bounds how long a streaming call may go without receiving any
// SSE frame before it is treated as a stalled connection.
const idleTimeout = 60 * time.Second

// OpenAIClient implements ModelClient against the Responses API.
//
// Maps to: codex-rs/core/src/client.rs OpenAI implementation
//
// Unlike the Chat Completions adapter this descends from, streaming is
// decoded by hand (sse.go) rather than through an SDK's own streaming
// iterator: the idle-timeout and retry-with-backoff behavior needed here
// has to observe raw frame arrival, which a higher-level iterator hides.
type OpenAIClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewOpenAIClient creates an OpenAI client reading its key from the
// environment and defaulting to the public API base URL (overridable for
// Azure OpenAI / OSS-compatible gateways via OPENAI_BASE_URL).
func NewOpenAIClient() *OpenAIClient {
	baseURL := os.Getenv("OPENAI_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIClient{
		apiKey:  os.Getenv("OPENAI_API_KEY"),
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Minute},
	}
}

type responsesRequestBody struct {
	Model              string          `json:"model"`
	Input              []responsesItem `json:"input"`
	Instructions       string          `json:"instructions,omitempty"`
	Tools              []responsesTool `json:"tools,omitempty"`
	ParallelToolCalls  bool            `json:"parallel_tool_calls"`
	PreviousResponseID string          `json:"previous_response_id,omitempty"`
	Stream             bool            `json:"stream"`
	Reasoning          *struct {
		Effort string `json:"effort,omitempty"`
	} `json:"reasoning,omitempty"`
	Text *struct {
		Format json.RawMessage `json:"format,omitempty"`
	} `json:"text,omitempty"`
}

type responsesItem struct {
	Type      string                  `json:"type"`
	Role      string                  `json:"role,omitempty"`
	Content   []protocol.ContentPart  `json:"content,omitempty"`
	Name      string                  `json:"name,omitempty"`
	Arguments string                  `json:"arguments,omitempty"`
	CallID    string                  `json:"call_id,omitempty"`
	Output    string                  `json:"output,omitempty"`
}

type responsesTool struct {
	Type        string                 `json:"type"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters"`
}

func (c *OpenAIClient) buildBody(req Request, stream bool) responsesRequestBody {
	items := make([]responsesItem, 0, len(req.History))
	for _, h := range req.History {
		items = append(items, responseItemToWire(h))
	}

	body := responsesRequestBody{
		Model:              req.ModelConfig.Model,
		Input:              items,
		Instructions:       req.BaseInstructions,
		ParallelToolCalls:  req.ParallelToolCalls,
		PreviousResponseID: req.ModelConfig.PreviousResponseID,
		Stream:             stream,
	}
	if req.ModelConfig.Effort != "" {
		body.Reasoning = &struct {
			Effort string `json:"effort,omitempty"`
		}{Effort: req.ModelConfig.Effort}
	}
	if len(req.FinalOutputJSONSchema) > 0 {
		body.Text = &struct {
			Format json.RawMessage `json:"format,omitempty"`
		}{Format: req.FinalOutputJSONSchema}
	}
	for _, spec := range req.ToolSpecs {
		body.Tools = append(body.Tools, buildResponsesTool(spec))
	}
	return body
}

func buildResponsesTool(spec tools.ToolSpec) responsesTool {
	properties := make(map[string]interface{}, len(spec.Parameters))
	required := make([]string, 0)
	for _, p := range spec.Parameters {
		properties[p.Name] = map[string]interface{}{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return responsesTool{
		Type:        "function",
		Name:        spec.Name,
		Description: spec.Description,
		Parameters: map[string]interface{}{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}

func responseItemToWire(item protocol.ResponseItem) responsesItem {
	switch item.Type {
	case protocol.ItemFunctionCall:
		return responsesItem{Type: "function_call", Name: item.Name, Arguments: item.Arguments, CallID: item.CallID}
	case protocol.ItemFunctionCallOutput:
		output := ""
		if item.Output != nil {
			output = item.Output.Content
		}
		return responsesItem{Type: "function_call_output", CallID: item.CallID, Output: output}
	default:
		return responsesItem{Type: "message", Role: item.Role, Content: item.Content}
	}
}

func (c *OpenAIClient) newHTTPRequest(ctx context.Context, body responsesRequestBody) (*http.Request, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body.Stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	return req, nil
}

// Call performs a non-streaming Responses API request.
func (c *OpenAIClient) Call(ctx context.Context, req Request) (Response, error) {
	httpReq, err := c.newHTTPRequest(ctx, c.buildBody(req, false))
	if err != nil {
		return Response{}, err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, protocol.NewCoreError(protocol.ErrTransport, "openai request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, protocol.NewCoreError(protocol.ErrTransport, "reading openai response", err)
	}
	if resp.StatusCode >= 300 {
		return Response{}, classifyByStatusCode(resp.StatusCode, fmt.Errorf("%s", string(data)))
	}

	var parsed struct {
		ID     string `json:"id"`
		Output []struct {
			Type      string `json:"type"`
			Role      string `json:"role,omitempty"`
			Name      string `json:"name,omitempty"`
			Arguments string `json:"arguments,omitempty"`
			CallID    string `json:"call_id,omitempty"`
			Content   []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content,omitempty"`
		} `json:"output"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Response{}, protocol.NewCoreError(protocol.ErrStreamProtocol, "malformed openai response body", err)
	}

	items := make([]protocol.ResponseItem, 0, len(parsed.Output))
	finish := FinishReasonStop
	for _, o := range parsed.Output {
		switch o.Type {
		case "function_call":
			items = append(items, protocol.ResponseItem{Type: protocol.ItemFunctionCall, Name: o.Name, Arguments: o.Arguments, CallID: o.CallID})
			finish = FinishReasonToolCalls
		default:
			parts := make([]protocol.ContentPart, 0, len(o.Content))
			for _, c := range o.Content {
				parts = append(parts, protocol.ContentPart{Type: c.Type, Text: c.Text})
			}
			items = append(items, protocol.ResponseItem{Type: protocol.ItemMessage, Role: o.Role, Content: parts})
		}
	}

	return Response{
		Items:        items,
		FinishReason: finish,
		ResponseID:   parsed.ID,
		TokenUsage: protocol.TokenUsage{
			InputTokens:  parsed.Usage.InputTokens,
			OutputTokens: parsed.Usage.OutputTokens,
			TotalTokens:  parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		},
	}, nil
}

// Stream performs a streaming Responses API request, decoding SSE frames as
// they arrive and enforcing idleTimeout between frames.
func (c *OpenAIClient) Stream(ctx context.Context, req Request, handler StreamHandler) (Response, error) {
	httpReq, err := c.newHTTPRequest(ctx, c.buildBody(req, true))
	if err != nil {
		return Response{}, err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, protocol.NewCoreError(protocol.ErrTransport, "openai stream request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return Response{}, classifyByStatusCode(resp.StatusCode, fmt.Errorf("%s", string(data)))
	}

	var items []protocol.ResponseItem
	finish := FinishReasonStop
	reader := newIdleTimeoutReader(ctx, resp.Body, idleTimeout)

	responseID, usage, err := decodeResponsesStream(reader, func(ev StreamEvent) error {
		if ev.Type == StreamEventItemDone && ev.Item != nil {
			items = append(items, *ev.Item)
			if ev.Item.IsToolCall() {
				finish = FinishReasonToolCalls
			}
		}
		return handler(ev)
	})
	if err != nil {
		return Response{}, err
	}

	return Response{
		Items:        items,
		FinishReason: finish,
		ResponseID:   responseID,
		TokenUsage:   usage,
	}, nil
}

// Compact asks the model to summarize older history into a single message.
func (c *OpenAIClient) Compact(ctx context.Context, req CompactRequest) (CompactResponse, error) {
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
