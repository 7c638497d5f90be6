// Package sandbox provides OS-level sandboxing for command execution: it
// wraps a command so it runs under Seatbelt (macOS), Landlock+seccomp via an
// external helper (Linux), or an AppContainer (Windows).
//
// Maps to: codex-rs/core/src/sandbox/
package sandbox

import (
	"fmt"

	"github.com/fenrirlabs/agentcore/internal/protocol"
)

// CommandSpec describes a command to be executed.
type CommandSpec struct {
	Program string
	Args    []string
	Cwd     string
}

// ExecEnv is the transformed execution environment after sandbox wrapping.
type ExecEnv struct {
	Command []string          // full command to execute (may include sandbox wrapper)
	Cwd     string
	Env     map[string]string // additional environment variables, merged over the parent env
}

// SandboxManager is the interface for platform-specific sandbox implementations.
//
// Maps to: codex-rs/core/src/sandbox/ trait, spec SandboxLauncher
type SandboxManager interface {
	// Transform wraps the command with sandbox restrictions. If policy is
	// nil or DangerFullAccess, returns the original command unchanged.
	Transform(spec CommandSpec, policy *protocol.SandboxPolicy) (*ExecEnv, error)

	// Available returns true if the sandbox implementation is available on
	// the current platform.
	Available() bool

	// Name identifies the backend for the CODEX_SANDBOX env marker
	// ("seatbelt" | "landlock" | "windows_appcontainer" | "none").
	Name() string
}

// DeriveWritableRoots returns the writable roots for WorkspaceWrite mode:
// the cwd followed by policy.WritableRoots, with empty and duplicate entries
// dropped (nil for any other mode). Paths are used as given, without
// canonicalization. /tmp and $TMPDIR are not part of the result (the Linux
// and macOS backends add them unless the policy excludes them), and .git
// directories inside a root are not excluded from writability.
//
// Maps to: codex-rs/core/src/sandbox/policy.rs get_writable_roots_with_cwd
func DeriveWritableRoots(policy *protocol.SandboxPolicy, cwd string) []string {
	if policy == nil || policy.Mode != protocol.SandboxWorkspaceWrite {
		return nil
	}

	roots := make([]string, 0, len(policy.WritableRoots)+1)
	seen := map[string]bool{}
	add := func(p string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		roots = append(roots, p)
	}

	add(cwd)
	for _, r := range policy.WritableRoots {
		add(r)
	}
	return roots
}

// IsPathWithinRoots reports whether path is contained in (or equal to) one
// of roots. Used to decide whether a patch write needs approval (spec §4.F).
func IsPathWithinRoots(path string, roots []string) bool {
	for _, root := range roots {
		if path == root {
			return true
		}
		if len(path) > len(root) && path[:len(root)] == root && path[len(root)] == '/' {
			return true
		}
	}
	return false
}

// ErrUnsupportedMode is returned by a backend asked to honor a mode it has
// no implementation for.
func ErrUnsupportedMode(mode protocol.SandboxMode) error {
	return fmt.Errorf("unsupported sandbox mode: %s", mode)
}
