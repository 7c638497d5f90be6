//go:build darwin

package sandbox

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/fenrirlabs/agentcore/internal/protocol"
)

// SeatbeltSandbox uses macOS Seatbelt (sandbox-exec) for sandboxing.
//
// Maps to: codex-rs/core/src/sandbox/seatbelt.rs
type SeatbeltSandbox struct{}

// Available returns true if sandbox-exec is available on the system.
func (s *SeatbeltSandbox) Available() bool {
	_, err := exec.LookPath("/usr/bin/sandbox-exec")
	return err == nil
}

func (s *SeatbeltSandbox) Name() string { return "seatbelt" }

// Transform wraps the command with sandbox-exec and a generated SBPL policy.
func (s *SeatbeltSandbox) Transform(spec CommandSpec, policy *protocol.SandboxPolicy) (*ExecEnv, error) {
	if policy == nil || policy.HasFullAccess() {
		return &ExecEnv{
			Command: append([]string{spec.Program}, spec.Args...),
			Cwd:     spec.Cwd,
		}, nil
	}

	sbpl, err := generateSBPL(policy, spec.Cwd)
	if err != nil {
		return nil, err
	}

	cmd := []string{"/usr/bin/sandbox-exec", "-p", sbpl, "--", spec.Program}
	cmd = append(cmd, spec.Args...)

	env := map[string]string{"CODEX_SANDBOX": "seatbelt"}
	if !policy.NetworkAccess {
		env["CODEX_SANDBOX_NETWORK_DISABLED"] = "1"
	}

	return &ExecEnv{Command: cmd, Cwd: spec.Cwd, Env: env}, nil
}

// generateSBPL generates a Seatbelt Profile Language policy string for the
// given policy and working directory.
//
// Maps to: codex-rs/core/src/sandbox/seatbelt.rs generate_sbpl
func generateSBPL(policy *protocol.SandboxPolicy, cwd string) (string, error) {
	var sb strings.Builder
	sb.WriteString("(version 1)\n")
	sb.WriteString("(deny default)\n")
	sb.WriteString("(allow process-exec)\n")
	sb.WriteString("(allow process-fork)\n")
	sb.WriteString("(allow sysctl-read)\n")
	sb.WriteString("(allow file-read*)\n")
	sb.WriteString("(allow mach-lookup)\n")

	switch policy.Mode {
	case protocol.SandboxReadOnly:
		if !policy.ExcludeSlashTmp {
			sb.WriteString("(allow file-write* (subpath \"/private/tmp\"))\n")
			sb.WriteString("(allow file-write* (subpath \"/tmp\"))\n")
		}
		sb.WriteString("(allow file-write* (subpath \"/dev\"))\n")

	case protocol.SandboxWorkspaceWrite:
		if !policy.ExcludeSlashTmp {
			sb.WriteString("(allow file-write* (subpath \"/private/tmp\"))\n")
			sb.WriteString("(allow file-write* (subpath \"/tmp\"))\n")
		}
		sb.WriteString("(allow file-write* (subpath \"/dev\"))\n")
		if tmp := os.Getenv("TMPDIR"); tmp != "" && !policy.ExcludeTmpdirEnvVar {
			sb.WriteString(fmt.Sprintf("(allow file-write* (subpath %q))\n", tmp))
		}
		for _, root := range DeriveWritableRoots(policy, cwd) {
			sb.WriteString(fmt.Sprintf("(allow file-write* (subpath %q))\n", root))
		}

	default:
		return "", ErrUnsupportedMode(policy.Mode)
	}

	if policy.NetworkAccess {
		sb.WriteString("(allow network*)\n")
	} else {
		sb.WriteString("(deny network*)\n")
	}

	return sb.String(), nil
}

// GenerateSBPL is exported for testing.
func GenerateSBPL(policy *protocol.SandboxPolicy, cwd string) (string, error) {
	return generateSBPL(policy, cwd)
}
