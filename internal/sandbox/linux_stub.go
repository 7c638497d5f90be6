//go:build !linux

package sandbox

import "github.com/fenrirlabs/agentcore/internal/protocol"

// LinuxSandbox is a stub for non-linux platforms.
type LinuxSandbox struct {
	HelperPath string
}

func (l *LinuxSandbox) Available() bool { return false }

func (l *LinuxSandbox) Name() string { return "landlock" }

func (l *LinuxSandbox) Transform(spec CommandSpec, policy *protocol.SandboxPolicy) (*ExecEnv, error) {
	return &ExecEnv{
		Command: append([]string{spec.Program}, spec.Args...),
		Cwd:     spec.Cwd,
	}, nil
}
