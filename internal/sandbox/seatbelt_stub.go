//go:build !darwin

package sandbox

import "github.com/fenrirlabs/agentcore/internal/protocol"

// SeatbeltSandbox is a stub for non-darwin platforms.
type SeatbeltSandbox struct{}

func (s *SeatbeltSandbox) Available() bool { return false }

func (s *SeatbeltSandbox) Name() string { return "seatbelt" }

func (s *SeatbeltSandbox) Transform(spec CommandSpec, policy *protocol.SandboxPolicy) (*ExecEnv, error) {
	return &ExecEnv{
		Command: append([]string{spec.Program}, spec.Args...),
		Cwd:     spec.Cwd,
	}, nil
}
