//go:build linux

package sandbox

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/fenrirlabs/agentcore/internal/protocol"
)

// linuxSandboxHelperEnv names the environment variable carrying the path to
// the external helper binary that applies Landlock + seccomp filters. The
// helper is a required, separately-built component (spec §6.2: "the helper
// binary path is a required parameter"), not something this package execs
// a kernel syscall to implement directly.
const linuxSandboxHelperEnv = "CODEX_LINUX_SANDBOX_EXE"

// LinuxSandbox invokes an external linux-sandbox helper process that applies
// Landlock filesystem rules and a seccomp syscall filter before exec'ing
// the target command.
//
// Maps to: codex-rs/core/src/sandbox/linux.rs (helper-process invocation)
type LinuxSandbox struct {
	// HelperPath overrides the helper binary location; defaults to
	// CODEX_LINUX_SANDBOX_EXE or a PATH lookup of "codex-linux-sandbox".
	HelperPath string
}

func (l *LinuxSandbox) resolveHelper() (string, error) {
	if l.HelperPath != "" {
		return l.HelperPath, nil
	}
	if p := os.Getenv(linuxSandboxHelperEnv); p != "" {
		return p, nil
	}
	return exec.LookPath("codex-linux-sandbox")
}

// Available returns true if the helper binary can be located.
func (l *LinuxSandbox) Available() bool {
	_, err := l.resolveHelper()
	return err == nil
}

func (l *LinuxSandbox) Name() string { return "landlock" }

// Transform wraps the command with the Landlock/seccomp helper. The helper
// is invoked as:
//
//	<helper> [--ro-root|--writable-root PATH]... [--network] -- PROGRAM ARGS...
func (l *LinuxSandbox) Transform(spec CommandSpec, policy *protocol.SandboxPolicy) (*ExecEnv, error) {
	if policy == nil || policy.HasFullAccess() {
		return &ExecEnv{
			Command: append([]string{spec.Program}, spec.Args...),
			Cwd:     spec.Cwd,
		}, nil
	}

	helper, err := l.resolveHelper()
	if err != nil {
		return nil, fmt.Errorf("linux sandbox helper not available: %w", err)
	}

	cmd, err := buildLandlockCommand(helper, spec, policy)
	if err != nil {
		return nil, err
	}

	env := map[string]string{"CODEX_SANDBOX": "landlock"}
	if !policy.NetworkAccess {
		env["CODEX_SANDBOX_NETWORK_DISABLED"] = "1"
	}

	return &ExecEnv{Command: cmd, Cwd: spec.Cwd, Env: env}, nil
}

func buildLandlockCommand(helper string, spec CommandSpec, policy *protocol.SandboxPolicy) ([]string, error) {
	cmd := []string{helper}

	switch policy.Mode {
	case protocol.SandboxReadOnly:
		cmd = append(cmd, "--ro-root", "/")

	case protocol.SandboxWorkspaceWrite:
		cmd = append(cmd, "--ro-root", "/")
		for _, root := range DeriveWritableRoots(policy, spec.Cwd) {
			cmd = append(cmd, "--writable-root", root)
		}
		if !policy.ExcludeSlashTmp {
			cmd = append(cmd, "--writable-root", "/tmp")
		}
		if tmp := os.Getenv("TMPDIR"); tmp != "" && !policy.ExcludeTmpdirEnvVar {
			cmd = append(cmd, "--writable-root", tmp)
		}

	default:
		return nil, ErrUnsupportedMode(policy.Mode)
	}

	if policy.NetworkAccess {
		cmd = append(cmd, "--network")
	}

	cmd = append(cmd, "--")
	cmd = append(cmd, spec.Program)
	cmd = append(cmd, spec.Args...)
	return cmd, nil
}

// BuildLandlockCommand is exported for testing.
func BuildLandlockCommand(helper string, spec CommandSpec, policy *protocol.SandboxPolicy) ([]string, error) {
	return buildLandlockCommand(helper, spec, policy)
}
