// Package workflow contains Temporal workflow definitions.
//
// approval.go classifies tool calls against the configured approval policy
// and applies the user's approve/deny decision to a pending batch.
//
// Maps to: Codex AskForApproval policy check before tool dispatch
package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/fenrirlabs/agentcore/internal/execpolicy"
	"github.com/fenrirlabs/agentcore/internal/models"
	"github.com/fenrirlabs/agentcore/internal/protocol"
	"github.com/fenrirlabs/agentcore/internal/tools"
)

// ApprovalGate classifies tool calls against an approval mode and an exec
// policy, and applies the user's decision to a pending batch once collected.
type ApprovalGate struct {
	mode      models.ApprovalMode
	policyMgr *execpolicy.ExecPolicyManager
}

// NewApprovalGate builds a gate from the session's approval mode and the raw
// exec policy rules source loaded at session init (may be empty).
func NewApprovalGate(mode models.ApprovalMode, policyRules string) *ApprovalGate {
	gate := &ApprovalGate{mode: mode}
	if policyRules != "" {
		if mgr, err := execpolicy.LoadExecPolicyFromSource(policyRules); err == nil {
			gate.policyMgr = mgr
		}
	}
	return gate
}

// Classify determines which tool calls need user approval.
//
// Returns:
//   - pending: tools needing approval (shown to user)
//   - forbidden: function_call_output items for tools denied outright
func (g *ApprovalGate) Classify(functionCalls []protocol.ResponseItem) (pending []PendingApproval, forbidden []protocol.ResponseItem) {
	// Empty/unset mode or "never" → auto-approve all (backward compat)
	if g.mode == "" || g.mode == models.ApprovalNever {
		return nil, nil
	}

	for _, fc := range functionCalls {
		req, reason := g.evaluateToolApproval(fc.Name, fc.Arguments)
		switch req {
		case tools.ApprovalSkip:
			continue // auto-approved
		case tools.ApprovalNeeded:
			pending = append(pending, PendingApproval{
				CallID:    fc.CallID,
				ToolName:  fc.Name,
				Arguments: fc.Arguments,
				Reason:    reason,
			})
		case tools.ApprovalForbidden:
			msg := "This command is forbidden by exec policy."
			if reason != "" {
				msg = fmt.Sprintf("Forbidden: %s", reason)
			}
			forbidden = append(forbidden, denialOutput(fc.CallID, msg))
		}
	}
	return pending, forbidden
}

// evaluateToolApproval determines the approval requirement for a single tool call.
func (g *ApprovalGate) evaluateToolApproval(toolName, arguments string) (tools.ExecApprovalRequirement, string) {
	switch toolName {
	case "read_file", "list_dir", "grep_files", "request_user_input", "update_plan":
		return tools.ApprovalSkip, "" // Read-only / workflow-intercepted tools always safe

	case "create_session", "wait_session", "cancel_session":
		return tools.ApprovalSkip, "" // subsession lifecycle is workflow-intercepted, not a mutating action

	case "shell":
		return g.evaluateShellApproval(arguments)

	case "write_file", "apply_patch":
		if g.mode == models.ApprovalNever {
			return tools.ApprovalSkip, ""
		}
		return tools.ApprovalNeeded, "mutating file operation"

	default:
		if g.mode == models.ApprovalNever {
			return tools.ApprovalSkip, ""
		}
		return tools.ApprovalNeeded, "unknown tool"
	}
}

// evaluateShellApproval evaluates a shell tool call through the exec policy engine.
func (g *ApprovalGate) evaluateShellApproval(arguments string) (tools.ExecApprovalRequirement, string) {
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return tools.ApprovalNeeded, "cannot parse arguments"
	}
	cmd, ok := args["command"].(string)
	if !ok || cmd == "" {
		return tools.ApprovalNeeded, "missing command"
	}

	if g.policyMgr != nil {
		eval := g.policyMgr.GetEvaluation([]string{"bash", "-c", cmd}, string(g.mode))
		return decisionToApprovalReq(eval.Decision), eval.Justification
	}

	// Fallback to heuristic when no exec policy rules were loaded.
	if g.mode == models.ApprovalNever || g.mode == "" {
		return tools.ApprovalSkip, ""
	}
	if g.mode == models.ApprovalOnFailure {
		return tools.ApprovalSkip, "" // runs in sandbox; failures escalate later
	}
	mgr := execpolicy.NewExecPolicyManager(execpolicy.NewPolicy())
	return mgr.EvaluateShellCommand(cmd, string(g.mode)), ""
}

// decisionToApprovalReq maps a policy Decision to ExecApprovalRequirement.
func decisionToApprovalReq(d execpolicy.Decision) tools.ExecApprovalRequirement {
	switch d {
	case execpolicy.DecisionAllow:
		return tools.ApprovalSkip
	case execpolicy.DecisionPrompt:
		return tools.ApprovalNeeded
	case execpolicy.DecisionForbidden:
		return tools.ApprovalForbidden
	default:
		return tools.ApprovalNeeded
	}
}

// ApplyDecision filters function calls based on the approval response.
// Returns approved function calls and denied result items for history.
func (g *ApprovalGate) ApplyDecision(functionCalls []protocol.ResponseItem, resp *ApprovalResponse) (approved []protocol.ResponseItem, denied []protocol.ResponseItem) {
	if resp == nil {
		return functionCalls, nil
	}

	deniedSet := make(map[string]bool, len(resp.Denied))
	for _, id := range resp.Denied {
		deniedSet[id] = true
	}

	for _, fc := range functionCalls {
		if deniedSet[fc.CallID] {
			denied = append(denied, denialOutput(fc.CallID, "User denied execution of this tool call."))
		} else {
			approved = append(approved, fc)
		}
	}
	return approved, denied
}

// denialOutput builds a failed function_call_output item for a denied or
// forbidden tool call.
func denialOutput(callID, message string) protocol.ResponseItem {
	falseVal := false
	return protocol.ResponseItem{
		Type:   protocol.ItemFunctionCallOutput,
		CallID: callID,
		Output: &protocol.FunctionCallOutputPayload{
			Content: message,
			Success: &falseVal,
		},
	}
}
