package llm

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fenrirlabs/agentcore/internal/protocol"
)

// sseFrame is one "event: ...\ndata: ...\n\n" block off the wire.
type sseFrame struct {
	event string
	data  string
}

// scanSSE reads frames from r, calling handle for each. It stops at EOF or
// the first handler error. Lines are split on bufio.ScanLines; when a frame
// carries several "data:" lines they are joined with newlines, as the SSE
// format defines.
func scanSSE(r io.Reader, handle func(sseFrame) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var frame sseFrame
	var dataLines []string
	flush := func() error {
		if frame.event == "" && len(dataLines) == 0 {
			return nil
		}
		frame.data = strings.Join(dataLines, "\n")
		err := handle(frame)
		frame = sseFrame{}
		dataLines = dataLines[:0]
		return err
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if err := flush(); err != nil {
				return err
			}
		case strings.HasPrefix(line, "event:"):
			frame.event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case strings.HasPrefix(line, ":"):
			// comment / keep-alive ping, ignore
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading SSE stream: %w", err)
	}
	return flush()
}

// responsesStreamEvent is the Responses-API-shaped wire event. Only the
// fields this client needs are decoded; everything else is ignored.
type responsesStreamEvent struct {
	Type     string `json:"type"`
	Delta    string `json:"delta,omitempty"`
	ItemID   string `json:"item_id,omitempty"`
	Response *struct {
		ID    string `json:"id"`
		Usage *struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
			CachedInput  int `json:"input_tokens_details.cached_tokens,omitempty"`
		} `json:"usage,omitempty"`
	} `json:"response,omitempty"`
	Item *struct {
		Type      string `json:"type"`
		Role      string `json:"role,omitempty"`
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
		CallID    string `json:"call_id,omitempty"`
		Content   []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content,omitempty"`
	} `json:"item,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code,omitempty"`
	} `json:"error,omitempty"`
}

// decodeResponsesStream decodes an SSE body into StreamEvents, following the
// Responses API event vocabulary: response.output_text.delta,
// response.reasoning_summary_text.delta, response.output_item.done,
// response.completed, error.
func decodeResponsesStream(r io.Reader, handler StreamHandler) (responseID string, usage protocol.TokenUsage, err error) {
	err = scanSSE(r, func(f sseFrame) error {
		if f.data == "" || f.data == "[DONE]" {
			return nil
		}
		var ev responsesStreamEvent
		if jsonErr := json.Unmarshal([]byte(f.data), &ev); jsonErr != nil {
			return protocol.NewCoreError(protocol.ErrStreamProtocol, "malformed SSE data frame", jsonErr)
		}

		switch ev.Type {
		case "response.output_text.delta":
			return handler(StreamEvent{Type: StreamEventTextDelta, Delta: ev.Delta})

		case "response.reasoning_summary_text.delta":
			return handler(StreamEvent{Type: StreamEventReasoningDelta, Delta: ev.Delta})

		case "response.output_item.done":
			if ev.Item == nil {
				return nil
			}
			item := responsesItemToResponseItem(*ev.Item)
			return handler(StreamEvent{Type: StreamEventItemDone, Item: &item})

		case "response.completed":
			if ev.Response != nil {
				responseID = ev.Response.ID
				if ev.Response.Usage != nil {
					usage.InputTokens = ev.Response.Usage.InputTokens
					usage.OutputTokens = ev.Response.Usage.OutputTokens
					usage.TotalTokens = usage.InputTokens + usage.OutputTokens
				}
			}
			return handler(StreamEvent{Type: StreamEventCompleted, ResponseID: responseID, TokenUsage: &usage})

		case "error":
			msg := "stream error"
			if ev.Error != nil {
				msg = ev.Error.Message
			}
			return protocol.NewCoreError(protocol.ErrStreamProtocol, msg, nil)

		default:
			// Unrecognized event types (response.created, response.in_progress,
			// ping, etc.) are expected and ignored.
			return nil
		}
	})
	return responseID, usage, err
}

func responsesItemToResponseItem(item struct {
	Type      string `json:"type"`
	Role      string `json:"role,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	CallID    string `json:"call_id,omitempty"`
	Content   []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content,omitempty"`
}) protocol.ResponseItem {
	switch item.Type {
	case "function_call":
		return protocol.ResponseItem{
			Type:      protocol.ItemFunctionCall,
			Name:      item.Name,
			Arguments: item.Arguments,
			CallID:    item.CallID,
		}
	case "reasoning":
		return protocol.ResponseItem{Type: protocol.ItemReasoning}
	default: // "message"
		parts := make([]protocol.ContentPart, 0, len(item.Content))
		for _, c := range item.Content {
			parts = append(parts, protocol.ContentPart{Type: c.Type, Text: c.Text})
		}
		return protocol.ResponseItem{Type: protocol.ItemMessage, Role: item.Role, Content: parts}
	}
}
