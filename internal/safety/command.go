package safety

import (
	"strings"

	"github.com/fenrirlabs/agentcore/internal/command_safety"
	"github.com/fenrirlabs/agentcore/internal/execpolicy"
	"github.com/fenrirlabs/agentcore/internal/protocol"
	"github.com/fenrirlabs/agentcore/internal/tools"
)

// CommandRequest is the full set of inputs the decision table needs to
// evaluate a candidate command.
//
// Maps to: codex-rs/core/src/safety.rs assess_command_safety inputs
type CommandRequest struct {
	Command              []string
	Approval             protocol.AskForApproval
	Sandbox              *protocol.SandboxPolicy
	SandboxAvailable     bool
	EscalatedPermissions bool
	Justification        string
}

// TrustedCommands is a per-session set of commands the user has already
// approved, keyed by their joined argv. Membership exempts a command from
// AskUser under UnlessTrusted and from the dangerous-command override.
type TrustedCommands struct {
	set map[string]bool
}

// NewTrustedCommands creates an empty trusted-command set.
func NewTrustedCommands() *TrustedCommands {
	return &TrustedCommands{set: make(map[string]bool)}
}

// Approve records a command as trusted for the rest of the session.
func (t *TrustedCommands) Approve(cmd []string) {
	t.set[trustKey(cmd)] = true
}

// Contains reports whether a command was previously approved.
func (t *TrustedCommands) Contains(cmd []string) bool {
	return t.set[trustKey(cmd)]
}

func trustKey(cmd []string) string {
	return strings.Join(cmd, "\x00")
}

// Gate evaluates commands and patches against the safety decision table,
// layering the exec policy engine's explicit rules over the command-safety
// heuristics and the approval/sandbox policy.
//
// Maps to: codex-rs/core/src/safety.rs
type Gate struct {
	policy  *execpolicy.ExecPolicyManager
	trusted *TrustedCommands
}

// NewGate creates a decision gate. policy may be nil, in which case every
// command falls through to the command-safety heuristic fallback.
func NewGate(policy *execpolicy.ExecPolicyManager, trusted *TrustedCommands) *Gate {
	if trusted == nil {
		trusted = NewTrustedCommands()
	}
	return &Gate{policy: policy, trusted: trusted}
}

// Trusted exposes the gate's per-session trusted-command set so the caller
// can record an approval after the user grants one.
func (g *Gate) Trusted() *TrustedCommands { return g.trusted }

// EvaluateCommand runs a candidate command through the full decision table.
//
// Maps to: spec §4.F command decision table
func (g *Gate) EvaluateCommand(req CommandRequest) (Decision, error) {
	if req.EscalatedPermissions && req.Approval != protocol.ApprovalOnRequest {
		return Decision{}, tools.NewValidationError("with_escalated_permissions is only admissible under the on_request approval policy")
	}

	dangerous := command_safety.CommandMightBeDangerous(req.Command)
	preApprovedExact := g.trusted.Contains(req.Command)

	if dangerous && !preApprovedExact {
		return Decision{Outcome: OutcomeAskUser, Reason: "command matches a dangerous pattern", Dangerous: true}, nil
	}

	trusted, reason := g.classify(req.Command, preApprovedExact)

	outcome := g.decide(req.Approval, req.Sandbox, req.SandboxAvailable, trusted)
	return Decision{Outcome: outcome, Reason: reason, Dangerous: dangerous}, nil
}

// classify layers the exec policy engine's explicit rules over the
// command-safety heuristic: an explicit Forbidden or Allow rule overrides
// the heuristic; an unmatched command falls back to IsKnownSafeCommand.
func (g *Gate) classify(cmd []string, preApprovedExact bool) (trusted bool, reason string) {
	if preApprovedExact {
		return true, "previously approved this session"
	}

	if g.policy != nil {
		eval := g.policy.GetEvaluation(cmd, "unless-trusted")
		if !eval.UsedFallback {
			switch eval.Decision {
			case execpolicy.DecisionForbidden:
				return false, firstNonEmpty(eval.Justification, "forbidden by exec policy rule")
			case execpolicy.DecisionAllow:
				return true, firstNonEmpty(eval.Justification, "allowed by exec policy rule")
			case execpolicy.DecisionPrompt:
				return false, firstNonEmpty(eval.Justification, "exec policy rule requires approval")
			}
		}
	}

	if command_safety.IsKnownSafeCommand(cmd) {
		return true, "known-safe command"
	}
	return false, "untrusted command"
}

// decide implements the spec §4.F decision table given whether the command
// is already known to be trusted.
func (g *Gate) decide(approval protocol.AskForApproval, sandbox *protocol.SandboxPolicy, sandboxAvailable, trusted bool) Outcome {
	fullAccess := sandbox == nil || sandbox.Mode == protocol.SandboxDangerFullAccess

	switch approval {
	case protocol.ApprovalUnlessTrusted:
		if trusted {
			return OutcomeAutoApproveNoSandbox
		}
		return OutcomeAskUser

	case protocol.ApprovalOnRequest:
		if fullAccess {
			return OutcomeAutoApproveNoSandbox
		}
		if trusted {
			return OutcomeAutoApproveNoSandbox
		}
		if sandboxAvailable {
			return OutcomeAutoApproveSandboxed
		}
		return OutcomeAskUser

	case protocol.ApprovalOnFailure:
		if trusted {
			return OutcomeAutoApproveNoSandbox
		}
		if sandboxAvailable {
			return OutcomeAutoApproveSandboxed
		}
		return OutcomeAskUser

	case protocol.ApprovalNever:
		if fullAccess {
			return OutcomeAutoApproveNoSandbox
		}
		if trusted {
			return OutcomeAutoApproveNoSandbox
		}
		if sandboxAvailable {
			return OutcomeAutoApproveSandboxed
		}
		return OutcomeReject

	default:
		return OutcomeAskUser
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
