package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/fenrirlabs/agentcore/internal/ptysession"
	"github.com/fenrirlabs/agentcore/internal/tools"
)

const (
	defaultUnifiedExecStartTimeout  = 10 * time.Second
	defaultUnifiedExecResumeTimeout = 250 * time.Millisecond
	minUnifiedExecTimeout           = 250 * time.Millisecond
	maxUnifiedExecTimeout           = 30 * time.Second
)

// UnifiedExecTool resumes or starts a PTY session.
//
// Maps to: codex-rs/core/src/unified_exec/mod.rs UnifiedExecHandler
type UnifiedExecTool struct {
	sessions *ptysession.Manager
}

// NewUnifiedExecTool creates a new unified_exec handler backed by a
// per-conversation session manager.
func NewUnifiedExecTool(sessions *ptysession.Manager) *UnifiedExecTool {
	return &UnifiedExecTool{sessions: sessions}
}

func (t *UnifiedExecTool) Name() string { return "unified_exec" }

func (t *UnifiedExecTool) Kind() tools.ToolKind { return tools.ToolKindFunction }

// IsMutating is conservative: a resumed session may have mutated state via
// earlier writes, and a new session's command is unknown ahead of parsing.
func (t *UnifiedExecTool) IsMutating(invocation *tools.ToolInvocation) bool { return true }

func (t *UnifiedExecTool) Handle(_ context.Context, invocation *tools.ToolInvocation) (*tools.ToolOutput, error) {
	if sessionIDArg, ok := invocation.Arguments["session_id"]; ok {
		id, err := toSessionID(sessionIDArg)
		if err != nil {
			return nil, err
		}
		return t.resume(id, invocation)
	}
	return t.start(invocation)
}

func (t *UnifiedExecTool) start(invocation *tools.ToolInvocation) (*tools.ToolOutput, error) {
	cmdArg, ok := invocation.Arguments["cmd"]
	if !ok {
		return nil, tools.NewValidationError("missing required argument: cmd (required when starting a new session)")
	}
	cmd, ok := cmdArg.(string)
	if !ok || cmd == "" {
		return nil, tools.NewValidationError("cmd must be a non-empty string")
	}

	workdir := invocation.Cwd
	if wd, ok := invocation.Arguments["workdir"]; ok {
		if s, ok := wd.(string); ok && s != "" {
			workdir = s
		}
	}

	tty := false
	if v, ok := invocation.Arguments["tty"]; ok {
		if b, ok := v.(bool); ok {
			tty = b
		}
	}

	timeout := clampTimeout(invocation.Arguments, defaultUnifiedExecStartTimeout)

	result, err := t.sessions.Exec(ptysession.SessionOpts{
		Command: []string{"bash", "-lc", cmd},
		Cwd:     workdir,
		TTY:     tty,
	}, timeout, invocation.Heartbeat)
	if err != nil {
		success := false
		return &tools.ToolOutput{Content: err.Error(), Success: &success}, nil
	}

	return execResultToOutput(result), nil
}

func (t *UnifiedExecTool) resume(id ptysession.SessionID, invocation *tools.ToolInvocation) (*tools.ToolOutput, error) {
	var chars []byte
	if v, ok := invocation.Arguments["chars"]; ok {
		if s, ok := v.(string); ok {
			chars = []byte(s)
		}
	}

	defaultTimeout := defaultUnifiedExecResumeTimeout
	timeout := clampTimeout(invocation.Arguments, defaultTimeout)

	result, err := t.sessions.Write(id, chars, timeout, invocation.Heartbeat)
	if err != nil {
		success := false
		return &tools.ToolOutput{Content: err.Error(), Success: &success}, nil
	}

	return execResultToOutput(result), nil
}

func execResultToOutput(result ptysession.ExecResult) *tools.ToolOutput {
	content := formatExecResult(result)
	success := result.ExitCode == nil || *result.ExitCode == 0
	return &tools.ToolOutput{Content: content, Success: &success}
}

func formatExecResult(result ptysession.ExecResult) string {
	out := string(result.Output)
	if result.SessionID != nil {
		out += "\n[session_id: " + strconv.FormatInt(int64(*result.SessionID), 10) + "]"
	}
	if result.ExitCode != nil {
		out += "\n[exit_code: " + strconv.Itoa(*result.ExitCode) + "]"
	}
	return out
}

func toSessionID(v interface{}) (ptysession.SessionID, error) {
	switch n := v.(type) {
	case float64:
		return ptysession.SessionID(int64(n)), nil
	case int:
		return ptysession.SessionID(int64(n)), nil
	case int64:
		return ptysession.SessionID(n), nil
	default:
		return 0, tools.NewValidationError("session_id must be a number")
	}
}

func clampTimeout(args map[string]interface{}, def time.Duration) time.Duration {
	v, ok := args["yield_time_ms"]
	if !ok {
		return def
	}
	var ms float64
	switch n := v.(type) {
	case float64:
		ms = n
	case int:
		ms = float64(n)
	default:
		return def
	}
	timeout := time.Duration(ms) * time.Millisecond
	if timeout < minUnifiedExecTimeout {
		timeout = minUnifiedExecTimeout
	}
	if timeout > maxUnifiedExecTimeout {
		timeout = maxUnifiedExecTimeout
	}
	return timeout
}
