package protocol

import "time"

// RolloutItemType discriminates the tagged RolloutItem union.
type RolloutItemType string

const (
	RolloutSessionMeta   RolloutItemType = "session_meta"
	RolloutResponseItem  RolloutItemType = "response_item"
	RolloutEventMsg      RolloutItemType = "event_msg"
	RolloutTurnContext   RolloutItemType = "turn_context"
	RolloutCompacted     RolloutItemType = "compacted"
)

// GitInfo captures the repo state at session start, best-effort.
type GitInfo struct {
	Branch string `json:"branch,omitempty"`
	Commit string `json:"commit,omitempty"`
	Repo   string `json:"repo,omitempty"`
}

// SessionMeta is always the first line of a rollout file.
//
// Maps to: codex-rs/protocol/src/protocol.rs SessionMeta
type SessionMeta struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Cwd          string    `json:"cwd"`
	Originator   string    `json:"originator"`
	CLIVersion   string    `json:"cli_version"`
	Instructions string    `json:"instructions,omitempty"`
	Git          *GitInfo  `json:"git,omitempty"`
}

// TurnContextSnapshot records the turn-level configuration active when it
// was recorded, so resumed conversations can reconstruct it.
type TurnContextSnapshot struct {
	Model          string         `json:"model"`
	Effort         string         `json:"effort,omitempty"`
	Cwd            string         `json:"cwd"`
	ApprovalPolicy AskForApproval `json:"approval_policy"`
	SandboxPolicy  *SandboxPolicy `json:"sandbox_policy,omitempty"`
}

// CompactedSummary replaces older turns with a model-generated summary.
type CompactedSummary struct {
	Summary        string `json:"summary"`
	ReplacedTurns  int    `json:"replaced_turns"`
}

// RolloutItem is a tagged union of everything durable about a conversation.
//
// Maps to: codex-rs/protocol/src/protocol.rs RolloutItem
type RolloutItem struct {
	Type RolloutItemType `json:"type"`

	SessionMeta  *SessionMeta         `json:"session_meta,omitempty"`
	ResponseItem *ResponseItem        `json:"response_item,omitempty"`
	EventMsg     *EventMsg            `json:"event_msg,omitempty"`
	TurnContext  *TurnContextSnapshot `json:"turn_context,omitempty"`
	Compacted    *CompactedSummary    `json:"compacted,omitempty"`
}

// RolloutLine is one physical JSONL line: {timestamp, item}.
//
// Maps to: codex-rs/protocol/src/protocol.rs RolloutLine
type RolloutLine struct {
	Timestamp time.Time   `json:"timestamp"`
	Item      RolloutItem `json:"item"`
}
