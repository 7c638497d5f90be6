package protocol

import "encoding/json"

// ResponseItemType discriminates the tagged ResponseItem union.
type ResponseItemType string

const (
	ItemMessage            ResponseItemType = "message"
	ItemReasoning          ResponseItemType = "reasoning"
	ItemFunctionCall       ResponseItemType = "function_call"
	ItemFunctionCallOutput ResponseItemType = "function_call_output"
	ItemCustomToolCall     ResponseItemType = "custom_tool_call"
	ItemCustomToolCallOut  ResponseItemType = "custom_tool_call_output"
	ItemLocalShellCall     ResponseItemType = "local_shell_call"
	ItemWebSearchCall      ResponseItemType = "web_search_call"
	ItemOther              ResponseItemType = "other" // never serialized; filtered at every boundary

	// The following are turn-lifecycle bookkeeping markers used by the
	// Temporal workflow's in-memory history to delimit turns and record
	// model switches. Like ItemOther, they are never sent to a provider or
	// written to a rollout file; GetForPrompt/compaction filter them out
	// before a ResponseItem slice crosses either boundary.
	ItemTurnStarted  ResponseItemType = "turn_started"
	ItemTurnComplete ResponseItemType = "turn_complete"
	ItemModelSwitch  ResponseItemType = "model_switch"
)

// ContentPart is one part of a Message's content array.
type ContentPart struct {
	Type string `json:"type"` // "input_text" | "output_text" | "input_image"
	Text string `json:"text,omitempty"`
}

// FunctionCallOutputPayload deserializes from either a bare JSON string or
// {content, success}, but always serializes as a bare string (wire contract,
// spec §3 and §4.A).
type FunctionCallOutputPayload struct {
	Content string `json:"content"`
	Success *bool  `json:"success,omitempty"`
}

// MarshalJSON always emits a bare string, discarding Success metadata.
func (p FunctionCallOutputPayload) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Content)
}

// UnmarshalJSON accepts either a bare string or {content, success}.
func (p *FunctionCallOutputPayload) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		p.Content = s
		p.Success = nil
		return nil
	}
	var obj struct {
		Content string `json:"content"`
		Success *bool  `json:"success,omitempty"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	p.Content = obj.Content
	p.Success = obj.Success
	return nil
}

// ResponseItem is a tagged union of everything that can flow between the
// conversation core and the model: messages, reasoning, tool calls/outputs.
//
// Maps to: codex-rs/protocol/src/models.rs ResponseItem
type ResponseItem struct {
	Type ResponseItemType `json:"type"`

	// Message
	Role    string        `json:"role,omitempty"` // "user" | "assistant" | "system"
	Content []ContentPart `json:"content,omitempty"`

	// Reasoning
	Summary          []string `json:"summary,omitempty"`
	ReasoningContent string   `json:"reasoning_content,omitempty"`
	EncryptedContent string   `json:"encrypted_content,omitempty"`

	// FunctionCall / CustomToolCall / LocalShellCall
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	CallID    string `json:"call_id,omitempty"`

	// FunctionCallOutput / CustomToolCallOutput
	Output *FunctionCallOutputPayload `json:"output,omitempty"`

	// WebSearchCall
	Query string `json:"query,omitempty"`

	// Internal bookkeeping, not part of the wire contract but convenient for
	// in-process history ordering (never serialized onto the wire; rollout
	// persistence re-derives ordering from file position instead).
	Seq    int    `json:"-"`
	TurnID string `json:"-"`
}

// IsToolCall reports whether this item represents an invocable tool call.
func (r ResponseItem) IsToolCall() bool {
	switch r.Type {
	case ItemFunctionCall, ItemCustomToolCall, ItemLocalShellCall:
		return true
	default:
		return false
	}
}

// PlainText concatenates all output_text/input_text content parts.
func (r ResponseItem) PlainText() string {
	var out string
	for _, c := range r.Content {
		out += c.Text
	}
	return out
}
