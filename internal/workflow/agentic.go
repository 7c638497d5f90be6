// Package workflow contains Temporal workflow definitions.
//
// agentic.go is the workflow entry point and outer multi-turn loop: it
// starts a session, restores it across ContinueAsNew, and drives turns via
// runAgenticTurn (turn.go) under a single LoopControl instance shared with
// the query/update handlers (handlers.go).
//
// Corresponds to: codex-rs/core/src/codex.rs (run_turn, run_sampling_request)
package workflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/workflow"

	"github.com/fenrirlabs/agentcore/internal/history"
	"github.com/fenrirlabs/agentcore/internal/instructions"
	"github.com/fenrirlabs/agentcore/internal/protocol"
)

// IdleTimeout is how long the workflow waits for user input before triggering ContinueAsNew.
const IdleTimeout = 24 * time.Hour

// maxIterationsBeforeCAN is the total iteration count across all turns in a
// single workflow run before triggering ContinueAsNew to keep history bounded.
const maxIterationsBeforeCAN = 100

// maxRepeatToolCalls is the number of consecutive identical tool call batches
// before the turn is ended early to prevent tight loops.
const maxRepeatToolCalls = 3

// AgenticWorkflow is the main durable agentic loop.
//
// Maps to: codex-rs/core/src/codex.rs run_turn
func AgenticWorkflow(ctx workflow.Context, input WorkflowInput) (WorkflowResult, error) {
	state := SessionState{
		ConversationID: input.ConversationID,
		History:        history.NewInMemoryHistory(),
		Config:         input.Config,
		MaxIterations:  20,
		IterationCount: 0,
	}

	// Resolve the model profile before anything that depends on it
	// (tool specs, instructions, ApprovalGate construction in runAgenticTurn).
	state.resolveProfile()

	state.ToolSpecs = buildToolSpecs(input.Config.Tools, state.ResolvedProfile)

	// Create (or reuse) the conversation's git worktree and redirect Cwd to
	// it before anything reads Cwd (instructions, environment context).
	state.resolveWorktree(ctx)

	// Load worker-side AGENTS.md and merge all instruction sources, unless
	// HarnessWorkflow already assembled BaseInstructions for us.
	if state.Config.BaseInstructions == "" {
		state.resolveInstructions(ctx)
	}

	// Exec policy rules may already be assembled by HarnessWorkflow and
	// carried in Config; otherwise load them from the worker filesystem.
	state.ExecPolicyRules = state.Config.ExecPolicyRules
	if state.ExecPolicyRules == "" {
		state.loadExecPolicy(ctx)
	}

	// Merge any .mcp.toml/.mcp.local.toml overlays discovered under Cwd into
	// Config.McpServers before connecting, so a project can ship server
	// definitions without every caller repeating them in session config.
	state.loadMcpOverlays(ctx)

	// Connect configured MCP servers and merge their tools into ToolSpecs.
	if err := state.initMcpServers(ctx); err != nil {
		workflow.GetLogger(ctx).Warn("MCP server initialization failed, continuing without", "error", err)
	}

	// Generate initial turn ID
	turnID := generateTurnID(ctx)
	state.CurrentTurnID = turnID

	// Add initial TurnStarted marker
	if err := state.History.AddItem(protocol.ResponseItem{
		Type:   protocol.ItemTurnStarted,
		TurnID: turnID,
	}); err != nil {
		return WorkflowResult{}, fmt.Errorf("failed to add turn started: %w", err)
	}

	// Add environment context as the first user message
	if state.Config.Cwd != "" {
		envCtx := instructions.BuildEnvironmentContext(state.Config.Cwd, "")
		if err := state.History.AddItem(protocol.ResponseItem{
			Type:    protocol.ItemMessage,
			Role:    "user",
			Content: []protocol.ContentPart{{Type: "input_text", Text: envCtx}},
			TurnID:  turnID,
		}); err != nil {
			return WorkflowResult{}, fmt.Errorf("failed to add environment context: %w", err)
		}
	}

	// Add initial user message to history
	if err := state.History.AddItem(protocol.ResponseItem{
		Type:    protocol.ItemMessage,
		Role:    "user",
		Content: []protocol.ContentPart{{Type: "input_text", Text: input.UserMessage}},
		TurnID:  turnID,
	}); err != nil {
		return WorkflowResult{}, fmt.Errorf("failed to add user message: %w", err)
	}

	ctrl := &LoopControl{}
	state.registerHandlers(ctx, ctrl)

	// Mark that we have pending input for the first turn
	ctrl.SetPendingUserInput(turnID)

	return state.runMultiTurnLoop(ctx, ctrl)
}

// AgenticWorkflowContinued handles ContinueAsNew.
func AgenticWorkflowContinued(ctx workflow.Context, state SessionState) (WorkflowResult, error) {
	// Restore History interface from serialized HistoryItems
	state.initHistory()

	ctrl := &LoopControl{}
	state.registerHandlers(ctx, ctrl)
	return state.runMultiTurnLoop(ctx, ctrl)
}

// generateTurnID derives a deterministic turn ID from workflow time via
// SideEffect so replay stays consistent.
func generateTurnID(ctx workflow.Context) string {
	var nanos int64
	encoded := workflow.SideEffect(ctx, func(ctx workflow.Context) interface{} {
		return workflow.Now(ctx).UnixNano()
	})
	_ = encoded.Get(&nanos)
	return fmt.Sprintf("turn-%d", nanos)
}

// runMultiTurnLoop is the outer loop that waits for user input between turns.
func (s *SessionState) runMultiTurnLoop(ctx workflow.Context, ctrl *LoopControl) (WorkflowResult, error) {
	logger := workflow.GetLogger(ctx)

	for {
		// Wait for pending user input (first turn has it set already)
		if !ctrl.HasPendingWork() {
			ctrl.SetPhase(PhaseWaitingForInput)
			ctrl.ClearToolsInFlight()
			logger.Info("Waiting for user input or shutdown")
			timedOut, err := ctrl.WaitForInput(ctx)
			if err != nil {
				return WorkflowResult{}, fmt.Errorf("await failed: %w", err)
			}
			if timedOut {
				logger.Info("Idle timeout reached, triggering ContinueAsNew")
				return s.continueAsNew(ctx, ctrl)
			}
		}

		// Check for shutdown
		if ctrl.IsShutdown() {
			logger.Info("Shutdown requested, completing workflow")
			return WorkflowResult{
				ConversationID:    s.ConversationID,
				TotalIterations:   s.IterationCount,
				TotalTokens:       s.TotalTokens,
				ToolCallsExecuted: s.ToolCallsExecuted,
				EndReason:         "shutdown",
			}, nil
		}

		// A manual /compact with no new user message: compact in place and
		// go back to waiting rather than starting a turn with nothing to say.
		if !ctrl.HasPendingUserInput() && ctrl.IsCompactRequested() {
			if err := s.performCompaction(ctx, ctrl); err != nil {
				logger.Warn("Manual compaction failed", "error", err)
			}
			ctrl.ClearCompactRequested()
			continue
		}

		// Reset per-turn flags and start a fresh turn
		ctrl.StartTurn()
		s.CurrentTurnID = ctrl.CurrentTurnID()
		s.IterationCount = 0

		// Run the agentic turn
		done, err := s.runAgenticTurn(ctx, ctrl)
		if err != nil {
			return WorkflowResult{}, err
		}

		if done {
			// ContinueAsNew was triggered
			return s.continueAsNew(ctx, ctrl)
		}

		// Accumulate iterations for CAN threshold across turns.
		s.TotalIterationsForCAN += s.IterationCount
		if s.TotalIterationsForCAN >= maxIterationsBeforeCAN {
			logger.Info("Total iterations across turns reached CAN threshold",
				"total", s.TotalIterationsForCAN)
			return s.continueAsNew(ctx, ctrl)
		}

		// Turn complete — add TurnComplete marker (unless interrupted, which already added it)
		if !ctrl.IsInterrupted() {
			_ = s.History.AddItem(protocol.ResponseItem{
				Type:   protocol.ItemTurnComplete,
				TurnID: s.CurrentTurnID,
			})
		}

		ctrl.SetPhase(PhaseWaitingForInput)
		ctrl.ClearToolsInFlight()
		logger.Info("Turn complete, waiting for next input", "turn_id", s.CurrentTurnID)
	}
}

// awaitWithIdleTimeout waits for condition or idle timeout.
// Returns (timedOut, error).
func awaitWithIdleTimeout(ctx workflow.Context, condition func() bool) (bool, error) {
	ok, err := workflow.AwaitWithTimeout(ctx, IdleTimeout, condition)
	if err != nil {
		return false, err
	}
	return !ok, nil // ok=false means timed out
}

// continueAsNew prepares state and triggers ContinueAsNew.
func (s *SessionState) continueAsNew(ctx workflow.Context, ctrl *LoopControl) (WorkflowResult, error) {
	ctrl.SetDraining()

	// Wait for all update handlers to finish before ContinueAsNew
	_ = workflow.Await(ctx, func() bool {
		return workflow.AllHandlersFinished(ctx)
	})

	s.syncHistoryItems()
	return WorkflowResult{}, workflow.NewContinueAsNewError(ctx, "AgenticWorkflowContinued", *s)
}
