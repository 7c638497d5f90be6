package sandbox

import "github.com/fenrirlabs/agentcore/internal/protocol"

// NoopSandbox is a no-op sandbox that passes through commands unchanged.
// Used when sandbox policy is DangerFullAccess or when no platform backend
// is available.
type NoopSandbox struct{}

func (n *NoopSandbox) Transform(spec CommandSpec, policy *protocol.SandboxPolicy) (*ExecEnv, error) {
	return &ExecEnv{
		Command: append([]string{spec.Program}, spec.Args...),
		Cwd:     spec.Cwd,
	}, nil
}

func (n *NoopSandbox) Available() bool { return true }

func (n *NoopSandbox) Name() string { return "none" }
