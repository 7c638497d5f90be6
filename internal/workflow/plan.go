// Package workflow contains Temporal workflow definitions.
//
// plan.go handles interception of update_plan tool calls: the LLM submits a
// step list to track its own progress, which is recorded on SessionState and
// surfaced to CLI pollers via TurnStatus rather than dispatched as an activity.
//
// Maps to: codex-rs/core/src/plan_tool.rs
package workflow

import (
	"encoding/json"
	"fmt"

	"go.temporal.io/sdk/workflow"

	"github.com/fenrirlabs/agentcore/internal/protocol"
)

// updatePlanArgs is the raw argument shape of the update_plan tool call.
type updatePlanArgs struct {
	Explanation string     `json:"explanation,omitempty"`
	Plan        []PlanStep `json:"plan"`
}

// handleUpdatePlan intercepts an update_plan tool call, replaces the
// session's current plan, and returns an acknowledgement function_call_output.
//
// Maps to: codex-rs/core/src/plan_tool.rs handle_update_plan
func (s *SessionState) handleUpdatePlan(ctx workflow.Context, fc protocol.ResponseItem) (protocol.ResponseItem, error) {
	logger := workflow.GetLogger(ctx)

	var args updatePlanArgs
	if err := json.Unmarshal([]byte(fc.Arguments), &args); err != nil {
		falseVal := false
		return protocol.ResponseItem{
			Type:   protocol.ItemFunctionCallOutput,
			CallID: fc.CallID,
			Output: &protocol.FunctionCallOutputPayload{
				Content: fmt.Sprintf("invalid update_plan arguments: %v", err),
				Success: &falseVal,
			},
		}, nil
	}

	s.Plan = &Plan{Explanation: args.Explanation, Steps: args.Plan}
	logger.Info("Plan updated", "step_count", len(args.Plan))

	trueVal := true
	return protocol.ResponseItem{
		Type:   protocol.ItemFunctionCallOutput,
		CallID: fc.CallID,
		Output: &protocol.FunctionCallOutputPayload{
			Content: "Plan updated.",
			Success: &trueVal,
		},
	}, nil
}
