package tools

func init() {
	RegisterSpec(SpecEntry{Name: "unified_exec", Constructor: NewUnifiedExecToolSpec})
}

// DefaultUnifiedExecTimeoutMs covers max yield (30s) + overhead.
const DefaultUnifiedExecTimeoutMs = 45_000

// NewUnifiedExecToolSpec creates the specification for the unified_exec
// tool: a resume-or-start PTY tool. The first call with no session_id
// starts a new PTY shell; subsequent calls with a session_id feed input
// into the existing session and poll for output.
//
// Maps to: codex-rs/core/src/tools/spec.rs create_exec_command_tool /
// create_write_stdin_tool, merged per the unified_exec contract.
func NewUnifiedExecToolSpec() ToolSpec {
	params := []ToolParameter{
		{
			Name:        "session_id",
			Type:        "number",
			Description: "Identifier of an existing session to resume. Omit to start a new PTY.",
			Required:    false,
		},
		{
			Name:        "cmd",
			Type:        "string",
			Description: "Shell command to execute. Required when starting a new session.",
			Required:    false,
		},
		{
			Name:        "workdir",
			Type:        "string",
			Description: "Optional working directory for a new session; defaults to the turn cwd.",
			Required:    false,
		},
		{
			Name:        "tty",
			Type:        "boolean",
			Description: "Whether a new session runs in a PTY (interactive) or pipes. Defaults to false.",
			Required:    false,
		},
		{
			Name:        "chars",
			Type:        "string",
			Description: "Bytes to write to stdin when resuming a session (may be empty to poll for output).",
			Required:    false,
		},
		{
			Name:        "yield_time_ms",
			Type:        "number",
			Description: "How long to wait (in milliseconds) for output before yielding. Defaults to 10000 for new sessions, 250 for resumed writes. Range: 250-30000.",
			Required:    false,
		},
		{
			Name:        "max_output_tokens",
			Type:        "number",
			Description: "Maximum number of tokens to return. Excess output will be truncated.",
			Required:    false,
		},
	}
	params = append(params, approvalParameters(false)...)

	return ToolSpec{
		Name: "unified_exec",
		Description: `Runs a command in a PTY, or resumes an existing session.
- Omit session_id to start a new PTY shell; the response returns a session_id if the process is still running after the yield window.
- Pass session_id (from a previous call) with chars to feed stdin into a running session and poll for new output.
- Send empty chars with a short yield_time_ms to poll a session without sending input.
- Output beyond 16 KiB is middle-truncated with a "...N tokens truncated..." marker.`,
		Parameters:       params,
		DefaultTimeoutMs: DefaultUnifiedExecTimeoutMs,
	}
}
