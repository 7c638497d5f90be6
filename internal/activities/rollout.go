package activities

import (
	"context"
	"time"

	"github.com/fenrirlabs/agentcore/internal/models"
	"github.com/fenrirlabs/agentcore/internal/protocol"
	"github.com/fenrirlabs/agentcore/internal/rollout"
)

// RolloutActivities contains the rollout-recorder activities: appending
// durable items to a conversation's JSONL file, flushing, shutting down, and
// reading history/listings back. A single Manager is shared across calls so
// repeated RecordItems activities against the same conversation reuse one
// writer goroutine instead of reopening the file each time.
//
// Maps to: codex-rs/core/src/rollout/recorder.rs (recorder as a dedicated
// single-writer task)
type RolloutActivities struct {
	manager *rollout.Manager
}

// NewRolloutActivities creates a new RolloutActivities instance rooted at
// codexHome.
func NewRolloutActivities(codexHome string) *RolloutActivities {
	return &RolloutActivities{manager: rollout.NewManager(codexHome)}
}

// StartRolloutInput opens (or reuses) the rollout file for a conversation.
type StartRolloutInput struct {
	StartedAt time.Time            `json:"started_at"`
	Meta      protocol.SessionMeta `json:"meta"`
}

// StartRollout ensures a Recorder is open for the conversation and that its
// SessionMeta line has been written.
//
// Maps to: spec §4.G recorder construction
func (a *RolloutActivities) StartRollout(ctx context.Context, input StartRolloutInput) error {
	if input.Meta.ID == "" {
		return models.NewFatalError("rollout: session meta id is required")
	}
	_, err := a.manager.Ensure(input.StartedAt, input.Meta)
	if err != nil {
		return models.NewTransientError(err.Error())
	}
	return nil
}

// RecordItemsInput is the input to the RecordItems activity.
type RecordItemsInput struct {
	ConversationID string                  `json:"conversation_id"`
	At             time.Time               `json:"at"`
	Items          []protocol.RolloutItem  `json:"items"`
}

// RecordItems appends items to the conversation's rollout file, dropping
// anything the persistence policy filters out.
//
// Maps to: spec §4.G record_items
func (a *RolloutActivities) RecordItems(ctx context.Context, input RecordItemsInput) error {
	rec, ok := a.manager.Get(input.ConversationID)
	if !ok {
		return models.NewFatalError("rollout: no open recorder for conversation " + input.ConversationID)
	}
	if err := rec.RecordItems(input.At, input.Items); err != nil {
		return models.NewTransientError(err.Error())
	}
	return nil
}

// FlushRolloutInput is the input to the FlushRollout activity.
type FlushRolloutInput struct {
	ConversationID string `json:"conversation_id"`
}

// FlushRollout blocks until every write enqueued so far for the conversation
// has been appended to disk. It does not fsync.
//
// Maps to: spec §4.G flush()
func (a *RolloutActivities) FlushRollout(ctx context.Context, input FlushRolloutInput) error {
	rec, ok := a.manager.Get(input.ConversationID)
	if !ok {
		return nil
	}
	if err := rec.Flush(); err != nil {
		return models.NewTransientError(err.Error())
	}
	return nil
}

// ShutdownRolloutInput is the input to the ShutdownRollout activity.
type ShutdownRolloutInput struct {
	ConversationID string `json:"conversation_id"`
}

// ShutdownRollout flushes and closes the conversation's rollout file.
func (a *RolloutActivities) ShutdownRollout(ctx context.Context, input ShutdownRolloutInput) error {
	if err := a.manager.Close(input.ConversationID); err != nil {
		return models.NewTransientError(err.Error())
	}
	return nil
}

// GetRolloutHistoryInput is the input to the GetRolloutHistory activity.
type GetRolloutHistoryInput struct {
	Path string `json:"path"`
}

// GetRolloutHistory replays a rollout file and returns the reconstructed
// conversation history, for resuming a conversation.
//
// Maps to: spec §4.G get_rollout_history
func (a *RolloutActivities) GetRolloutHistory(ctx context.Context, input GetRolloutHistoryInput) (*rollout.History, error) {
	h, err := rollout.LoadHistory(input.Path)
	if err != nil {
		return nil, models.NewFatalError(err.Error())
	}
	return h, nil
}

// ListConversationsInput is the input to the ListConversations activity.
type ListConversationsInput struct {
	CodexHome string `json:"codex_home"`
	Cursor    string `json:"cursor,omitempty"`
	PageSize  int    `json:"page_size,omitempty"`
}

// ListConversations returns one page of the conversation listing, most
// recent first.
//
// Maps to: spec §4.G listing
func (a *RolloutActivities) ListConversations(ctx context.Context, input ListConversationsInput) (rollout.Page, error) {
	page, err := rollout.List(input.CodexHome, input.Cursor, input.PageSize)
	if err != nil {
		return rollout.Page{}, models.NewTransientError(err.Error())
	}
	return page, nil
}
