package safety

import (
	"path/filepath"
	"strings"

	"github.com/fenrirlabs/agentcore/internal/protocol"
	"github.com/fenrirlabs/agentcore/internal/sandbox"
)

// PatchRequest is the input to the patch decision rule.
//
// Maps to: spec §4.F patch decision
type PatchRequest struct {
	ChangePaths      []string
	Cwd              string
	Approval         protocol.AskForApproval
	Sandbox          *protocol.SandboxPolicy
	SandboxAvailable bool
}

// EvaluatePatch runs a candidate patch through the patch decision rule:
// reject empty patches; always ask under UnlessTrusted; auto-approve when
// every change path stays within the derived writable roots and a sandbox
// is available (or full access is granted); otherwise ask, or reject
// outright under Never when a change path escapes the writable roots.
func EvaluatePatch(req PatchRequest) Decision {
	if len(req.ChangePaths) == 0 {
		return Decision{Outcome: OutcomeReject, Reason: "empty patch"}
	}

	if req.Approval == protocol.ApprovalUnlessTrusted {
		return Decision{Outcome: OutcomeAskUser, Reason: "patches always require approval under unless_trusted"}
	}

	constrained := isPatchConstrainedToWritableRoots(req.ChangePaths, req.Sandbox, req.Cwd)
	fullAccess := req.Sandbox == nil || req.Sandbox.Mode == protocol.SandboxDangerFullAccess

	if constrained && (fullAccess || req.SandboxAvailable) {
		return Decision{Outcome: OutcomeAutoApproveNoSandbox, Reason: "patch constrained to writable roots"}
	}

	if !constrained && req.Approval == protocol.ApprovalNever {
		return Decision{Outcome: OutcomeReject, Reason: "writing outside of the project; rejected by user approval settings"}
	}

	return Decision{Outcome: OutcomeAskUser, Reason: "patch touches paths outside the sandboxed writable roots"}
}

// isPatchConstrainedToWritableRoots reports whether every change path is a
// descendant of a derived writable root after canonicalization, excluding
// any .git directory beneath a root.
//
// Maps to: spec §4.C is_write_patch_constrained_to_writable_paths
func isPatchConstrainedToWritableRoots(paths []string, policy *protocol.SandboxPolicy, cwd string) bool {
	if policy != nil && policy.Mode == protocol.SandboxDangerFullAccess {
		return true
	}

	roots := sandbox.DeriveWritableRoots(policy, cwd)

	for _, p := range paths {
		clean := canonicalize(p, cwd)
		if strings.Contains(clean, "/.git/") || strings.HasSuffix(clean, "/.git") {
			return false
		}
		if !sandbox.IsPathWithinRoots(clean, roots) {
			return false
		}
	}
	return true
}

func canonicalize(path, cwd string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(cwd, path)
	}
	return filepath.Clean(path)
}
