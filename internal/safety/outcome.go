// Package safety implements the decision table that turns a candidate
// command or patch, the active approval/sandbox policy, and what is known
// about the command, into an action: run unsandboxed, run sandboxed, ask
// the user, or refuse outright.
//
// Maps to: codex-rs/core/src/safety.rs
package safety

// Outcome is the result of running a command decision through the table.
type Outcome int

const (
	// OutcomeAutoApproveNoSandbox runs the command directly, bypassing any
	// platform sandbox, because it is trusted.
	OutcomeAutoApproveNoSandbox Outcome = iota
	// OutcomeAutoApproveSandboxed runs the command wrapped in the platform
	// sandbox without asking the user first.
	OutcomeAutoApproveSandboxed
	// OutcomeAskUser must not run until the user approves it.
	OutcomeAskUser
	// OutcomeReject refuses the command outright.
	OutcomeReject
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAutoApproveNoSandbox:
		return "auto_approve_no_sandbox"
	case OutcomeAutoApproveSandboxed:
		return "auto_approve_sandboxed"
	case OutcomeAskUser:
		return "ask_user"
	case OutcomeReject:
		return "reject"
	default:
		return "unknown"
	}
}

// Decision is the full result of evaluating a command: the outcome plus the
// reasoning behind it, suitable for surfacing in an approval prompt or log line.
type Decision struct {
	Outcome   Outcome
	Reason    string
	Dangerous bool
}

// NeedsApproval reports whether the caller must block on a user decision
// before the command can run.
func (d Decision) NeedsApproval() bool {
	return d.Outcome == OutcomeAskUser
}

// Allowed reports whether the command may run without further confirmation,
// either sandboxed or not.
func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAutoApproveNoSandbox || d.Outcome == OutcomeAutoApproveSandboxed
}
