package activities

import (
	"context"
	"errors"

	"github.com/fenrirlabs/agentcore/internal/mcp"
	"github.com/fenrirlabs/agentcore/internal/models"
	"github.com/fenrirlabs/agentcore/internal/tools"
)

// ToolActivityInput is the input for tool execution.
//
// Maps to: codex-rs/core/src/tools/context.rs ToolInvocation fields
type ToolActivityInput struct {
	CallID    string                 `json:"call_id"`
	ToolName  string                 `json:"tool_name"`
	Arguments map[string]interface{} `json:"arguments"`
	Cwd       string                 `json:"cwd,omitempty"`

	// SandboxPolicy, if set, restricts the execution environment for this call.
	SandboxPolicy *tools.SandboxPolicyRef `json:"sandbox_policy,omitempty"`

	// EnvPolicy, if set, filters environment variables before execution.
	EnvPolicy *tools.EnvPolicyRef `json:"env_policy,omitempty"`

	// McpToolRef, if set, routes this call through the MCP store instead of
	// the built-in tool registry.
	McpToolRef *tools.McpToolRef `json:"mcp_tool_ref,omitempty"`

	// SessionID identifies the workflow session for MCP store lookup.
	SessionID string `json:"session_id,omitempty"`

	// McpServers carries the session's MCP server configs for auto-reconnect
	// after a worker restart drops the McpStore entry for this session.
	McpServers map[string]mcp.McpServerConfig `json:"mcp_servers,omitempty"`
}

// ToolActivityOutput is the output from tool execution.
// Only returned on successful activity completion. Infrastructure errors
// are returned as temporal.ApplicationError (retryable or non-retryable).
//
// Maps to: codex-rs/core/src/tools/router.rs ToolOutput + call_id
type ToolActivityOutput struct {
	CallID  string `json:"call_id"`
	Content string `json:"content,omitempty"`
	Success *bool  `json:"success,omitempty"`
}

// ToolActivities contains tool-related activities.
type ToolActivities struct {
	registry *tools.ToolRegistry
	mcpStore *mcp.McpStore
}

// NewToolActivities creates a new ToolActivities instance. mcpStore may be nil
// if no "mcp" handler is registered in registry (MCP support disabled).
func NewToolActivities(registry *tools.ToolRegistry, mcpStore *mcp.McpStore) *ToolActivities {
	return &ToolActivities{registry: registry, mcpStore: mcpStore}
}

// ExecuteTool executes a single tool call. Calls whose ToolName was minted
// from an MCP server (McpToolRef set) are routed to the "mcp" handler;
// everything else dispatches by ToolName through the registry directly.
//
// Error handling:
//   - Tool not found → non-retryable ApplicationError (ToolNotFound)
//   - Handler validation error → non-retryable ApplicationError (ToolValidation)
//   - Handler timeout → retryable ApplicationError (ToolTimeout)
//   - Handler transient error (tools.NewTransientError) → retryable ApplicationError (Transient)
//   - Tool runs but fails (e.g., command exits non-zero) → successful return with Success=false
//   - Tool runs successfully → successful return with Success=true
//
// Maps to: codex-rs/core/src/tools/router.rs ToolRouter.dispatch()
func (a *ToolActivities) ExecuteTool(ctx context.Context, input ToolActivityInput) (ToolActivityOutput, error) {
	handlerName := input.ToolName
	if input.McpToolRef != nil {
		handlerName = "mcp"
	}

	handler, err := a.registry.GetHandler(handlerName)
	if err != nil {
		return ToolActivityOutput{}, models.NewToolNotFoundError(input.ToolName)
	}

	invocation := &tools.ToolInvocation{
		CallID:        input.CallID,
		ToolName:      input.ToolName,
		Arguments:     input.Arguments,
		Cwd:           input.Cwd,
		SandboxPolicy: input.SandboxPolicy,
		EnvPolicy:     input.EnvPolicy,
		McpToolRef:    input.McpToolRef,
		SessionID:     input.SessionID,
	}
	if input.McpServers != nil {
		invocation.McpServers = input.McpServers
	}

	output, err := handler.Handle(ctx, invocation)
	if err != nil {
		return ToolActivityOutput{}, classifyHandlerError(input.ToolName, err)
	}

	return ToolActivityOutput{
		CallID:  input.CallID,
		Content: output.Content,
		Success: output.Success,
	}, nil
}

// classifyHandlerError converts a handler error into the appropriate
// temporal.ApplicationError based on the error context.
//
// Deadline-exceeded errors become retryable ToolTimeout errors, and errors
// a handler wrapped with tools.NewTransientError become retryable Transient
// errors. Every other handler error is non-retryable: it represents a
// validation failure (missing args, bad types) that won't resolve on retry.
func classifyHandlerError(toolName string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.NewToolTimeoutError(toolName, err)
	}
	if tools.IsTransientError(err) {
		return models.WrapActivityError(models.NewTransientError(err.Error()))
	}

	// Default: treat handler errors as validation/execution errors (non-retryable).
	// The same invalid input will produce the same error on retry.
	return models.NewToolValidationError(toolName, err)
}
