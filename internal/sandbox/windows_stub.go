//go:build !windows

package sandbox

import "github.com/fenrirlabs/agentcore/internal/protocol"

// WindowsSandbox is a stub for non-windows platforms.
type WindowsSandbox struct{}

func (w *WindowsSandbox) Available() bool { return false }

func (w *WindowsSandbox) Name() string { return "windows_appcontainer" }

func (w *WindowsSandbox) Transform(spec CommandSpec, policy *protocol.SandboxPolicy) (*ExecEnv, error) {
	return &ExecEnv{
		Command: append([]string{spec.Program}, spec.Args...),
		Cwd:     spec.Cwd,
	}, nil
}
