package safety

import (
	"testing"

	"github.com/fenrirlabs/agentcore/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_UnlessTrusted_KnownSafeAutoApproves(t *testing.T) {
	g := NewGate(nil, nil)
	d, err := g.EvaluateCommand(CommandRequest{
		Command:  []string{"ls", "-la"},
		Approval: protocol.ApprovalUnlessTrusted,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAutoApproveNoSandbox, d.Outcome)
}

func TestGate_UnlessTrusted_UntrustedAsksUser(t *testing.T) {
	g := NewGate(nil, nil)
	d, err := g.EvaluateCommand(CommandRequest{
		Command:  []string{"./run-something-unusual.sh"},
		Approval: protocol.ApprovalUnlessTrusted,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAskUser, d.Outcome)
}

func TestGate_OnRequest_DangerFullAccessAlwaysApproves(t *testing.T) {
	g := NewGate(nil, nil)
	d, err := g.EvaluateCommand(CommandRequest{
		Command:  []string{"./weird-script.sh"},
		Approval: protocol.ApprovalOnRequest,
		Sandbox:  &protocol.SandboxPolicy{Mode: protocol.SandboxDangerFullAccess},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAutoApproveNoSandbox, d.Outcome)
}

func TestGate_OnRequest_UntrustedSandboxedWithSandboxAvailable(t *testing.T) {
	g := NewGate(nil, nil)
	d, err := g.EvaluateCommand(CommandRequest{
		Command:          []string{"./weird-script.sh"},
		Approval:         protocol.ApprovalOnRequest,
		Sandbox:          &protocol.SandboxPolicy{Mode: protocol.SandboxWorkspaceWrite},
		SandboxAvailable: true,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAutoApproveSandboxed, d.Outcome)
}

func TestGate_OnRequest_UntrustedSandboxedNoSandboxAsksUser(t *testing.T) {
	g := NewGate(nil, nil)
	d, err := g.EvaluateCommand(CommandRequest{
		Command:          []string{"./weird-script.sh"},
		Approval:         protocol.ApprovalOnRequest,
		Sandbox:          &protocol.SandboxPolicy{Mode: protocol.SandboxWorkspaceWrite},
		SandboxAvailable: false,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAskUser, d.Outcome)
}

func TestGate_Never_DangerFullAccessAlwaysApproves(t *testing.T) {
	g := NewGate(nil, nil)
	d, err := g.EvaluateCommand(CommandRequest{
		Command:  []string{"./weird-script.sh"},
		Approval: protocol.ApprovalNever,
		Sandbox:  &protocol.SandboxPolicy{Mode: protocol.SandboxDangerFullAccess},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAutoApproveNoSandbox, d.Outcome)
}

func TestGate_Never_UntrustedSandboxedNoSandboxRejects(t *testing.T) {
	g := NewGate(nil, nil)
	d, err := g.EvaluateCommand(CommandRequest{
		Command:          []string{"./weird-script.sh"},
		Approval:         protocol.ApprovalNever,
		Sandbox:          &protocol.SandboxPolicy{Mode: protocol.SandboxReadOnly},
		SandboxAvailable: false,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeReject, d.Outcome)
}

func TestGate_DangerousCommandForcesAskUser(t *testing.T) {
	g := NewGate(nil, nil)
	d, err := g.EvaluateCommand(CommandRequest{
		Command:  []string{"rm", "-rf", "."},
		Approval: protocol.ApprovalNever,
		Sandbox:  &protocol.SandboxPolicy{Mode: protocol.SandboxDangerFullAccess},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAskUser, d.Outcome)
	assert.True(t, d.Dangerous)
}

func TestGate_DangerousCommandExemptWhenTrusted(t *testing.T) {
	trusted := NewTrustedCommands()
	cmd := []string{"rm", "-rf", "build/"}
	trusted.Approve(cmd)

	g := NewGate(nil, trusted)
	d, err := g.EvaluateCommand(CommandRequest{
		Command:  cmd,
		Approval: protocol.ApprovalUnlessTrusted,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAutoApproveNoSandbox, d.Outcome)
}

func TestGate_EscalatedPermissions_RejectedOutsideOnRequest(t *testing.T) {
	g := NewGate(nil, nil)
	_, err := g.EvaluateCommand(CommandRequest{
		Command:              []string{"ls"},
		Approval:             protocol.ApprovalUnlessTrusted,
		EscalatedPermissions: true,
	})
	require.Error(t, err)
}

func TestTrustedCommands_ApproveAndContains(t *testing.T) {
	trusted := NewTrustedCommands()
	assert.False(t, trusted.Contains([]string{"echo", "hi"}))
	trusted.Approve([]string{"echo", "hi"})
	assert.True(t, trusted.Contains([]string{"echo", "hi"}))
	assert.False(t, trusted.Contains([]string{"echo", "bye"}))
}
