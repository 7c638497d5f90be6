package protocol

// EventMsgType discriminates the tagged EventMsg union.
type EventMsgType string

const (
	EventSessionConfigured        EventMsgType = "session_configured"
	EventTaskStarted              EventMsgType = "task_started"
	EventTaskComplete             EventMsgType = "task_complete"
	EventAgentMessageDelta        EventMsgType = "agent_message_delta"
	EventAgentReasoningDelta      EventMsgType = "agent_reasoning_delta"
	EventAgentReasoningSectionBrk EventMsgType = "agent_reasoning_section_break"
	EventAgentMessage             EventMsgType = "agent_message"
	EventAgentReasoning           EventMsgType = "agent_reasoning"
	EventExecCommandBegin         EventMsgType = "exec_command_begin"
	EventExecCommandEnd           EventMsgType = "exec_command_end"
	EventExecCommandOutputDelta   EventMsgType = "exec_command_output_delta"
	EventPatchApplyBegin          EventMsgType = "patch_apply_begin"
	EventPatchApplyEnd            EventMsgType = "patch_apply_end"
	EventMcpToolCallBegin         EventMsgType = "mcp_tool_call_begin"
	EventMcpToolCallEnd           EventMsgType = "mcp_tool_call_end"
	EventWebSearchCallBegin       EventMsgType = "web_search_call_begin"
	EventExecApprovalRequest      EventMsgType = "exec_approval_request"
	EventApplyPatchApprovalReq    EventMsgType = "apply_patch_approval_request"
	EventTokenCount               EventMsgType = "token_count"
	EventRateLimits               EventMsgType = "rate_limits"
	EventError                    EventMsgType = "error"
	EventBackgroundEvent          EventMsgType = "background_event"
	EventShutdownComplete         EventMsgType = "shutdown_complete"
)

// TokenUsage is a single request's token accounting.
//
// Maps to: codex-rs/protocol/src/protocol.rs TokenUsage
type TokenUsage struct {
	InputTokens              int `json:"input_tokens"`
	CachedInputTokens        int `json:"cached_input_tokens,omitempty"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
	OutputTokens             int `json:"output_tokens"`
	ReasoningTokens          int `json:"reasoning_tokens,omitempty"`
	TotalTokens              int `json:"total_tokens"`
}

// RateLimitSnapshot reports provider-reported rate-limit headroom.
type RateLimitSnapshot struct {
	PrimaryUsedPercent   float64 `json:"primary_used_percent"`
	SecondaryUsedPercent float64 `json:"secondary_used_percent,omitempty"`
	ResetsInSeconds      int64   `json:"resets_in_seconds,omitempty"`
}

// EventMsg is the tagged payload carried by an Event.
//
// Maps to: codex-rs/protocol/src/protocol.rs EventMsg
type EventMsg struct {
	Type EventMsgType `json:"type"`

	// Deltas / completed text items
	Delta   string `json:"delta,omitempty"`
	Message string `json:"message,omitempty"` // AgentMessage / BackgroundEvent / Error

	// Reasoning
	ReasoningSummary []string `json:"reasoning_summary,omitempty"`

	// Exec lifecycle
	CallID     string   `json:"call_id,omitempty"`
	Command    []string `json:"command,omitempty"`
	Cwd        string   `json:"cwd,omitempty"`
	ExitCode   *int     `json:"exit_code,omitempty"`
	Output     string   `json:"output,omitempty"`
	DurationMs int64    `json:"duration_ms,omitempty"`

	// Patch lifecycle
	Changes map[string]string `json:"changes,omitempty"` // path -> change kind ("add"|"update"|"delete")

	// MCP lifecycle
	Server   string `json:"server,omitempty"`
	ToolName string `json:"tool_name,omitempty"`

	// Approval requests
	Arguments string `json:"arguments,omitempty"`
	Reason    string `json:"reason,omitempty"`

	// Accounting
	TokenUsage *TokenUsage        `json:"token_usage,omitempty"`
	RateLimits *RateLimitSnapshot `json:"rate_limits,omitempty"`

	// TaskComplete
	LastAgentMessage string `json:"last_agent_message,omitempty"`
}

// Event is the outbound envelope: every Event carries the id of the
// Submission that produced it.
//
// Maps to: codex-rs/protocol/src/protocol.rs Event
type Event struct {
	ID  string   `json:"id"`
	Msg EventMsg `json:"msg"`
}
