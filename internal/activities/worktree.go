package activities

import (
	"context"

	"github.com/fenrirlabs/agentcore/internal/models"
	"github.com/fenrirlabs/agentcore/internal/worktree"
)

// WorktreeActivities contains the git worktree lifecycle activities: create
// (or reuse) a per-conversation worktree before the first turn runs, and
// remove it once the conversation is torn down.
//
// Maps to: spec §4.J git worktree helper
type WorktreeActivities struct{}

// NewWorktreeActivities creates a new WorktreeActivities instance.
func NewWorktreeActivities() *WorktreeActivities {
	return &WorktreeActivities{}
}

// EnsureWorktreeInput names the repository and conversation a worktree is
// being created for.
type EnsureWorktreeInput struct {
	RepoRoot       string `json:"repo_root"`
	ConversationID string `json:"conversation_id"`
}

// EnsureWorktreeOutput returns the absolute path of the created/reused worktree.
type EnsureWorktreeOutput struct {
	Path string `json:"path"`
}

// EnsureWorktree creates (or reuses) the worktree for a conversation.
//
// Maps to: spec §4.J create(repo_root, conversation_id)
func (a *WorktreeActivities) EnsureWorktree(ctx context.Context, input EnsureWorktreeInput) (EnsureWorktreeOutput, error) {
	if input.RepoRoot == "" {
		return EnsureWorktreeOutput{}, models.NewFatalError("worktree: repo_root is required")
	}
	if input.ConversationID == "" {
		return EnsureWorktreeOutput{}, models.NewFatalError("worktree: conversation_id is required")
	}

	mgr := worktree.NewManager(input.RepoRoot)
	path, err := mgr.Create(ctx, input.ConversationID)
	if err != nil {
		return EnsureWorktreeOutput{}, models.NewTransientError(err.Error())
	}
	return EnsureWorktreeOutput{Path: path}, nil
}

// RemoveWorktreeInput names the repository and conversation whose worktree
// should be torn down.
type RemoveWorktreeInput struct {
	RepoRoot       string `json:"repo_root"`
	ConversationID string `json:"conversation_id"`
}

// RemoveWorktree force-removes the conversation's worktree and prunes stale
// git metadata.
//
// Maps to: spec §4.J remove()
func (a *WorktreeActivities) RemoveWorktree(ctx context.Context, input RemoveWorktreeInput) error {
	if input.RepoRoot == "" || input.ConversationID == "" {
		return nil
	}
	mgr := worktree.NewManager(input.RepoRoot)
	if err := mgr.Remove(ctx, input.ConversationID); err != nil {
		return models.NewTransientError(err.Error())
	}
	return nil
}
