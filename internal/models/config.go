package models

import (
	"encoding/json"

	"github.com/fenrirlabs/agentcore/internal/llm"
	"github.com/fenrirlabs/agentcore/internal/mcp"
	"github.com/fenrirlabs/agentcore/internal/protocol"
)

// DefaultModelConfig returns a sensible default configuration.
func DefaultModelConfig() llm.ModelConfig {
	return llm.ModelConfig{
		Provider:      "openai",
		Model:         "gpt-4o-mini",
		Temperature:   0.7,
		MaxTokens:     4096,
		ContextWindow: 128000,
	}
}

// WebSearchMode is carried in the session configuration; no request builder
// reads it, so it does not expose a provider-native web_search tool.
//
// Maps to: codex-rs/core/src/openai_tools.rs web search tool config
type WebSearchMode string

const (
	WebSearchDisabled WebSearchMode = ""
	WebSearchEnabled  WebSearchMode = "enabled"
)

// ShellToolType selects how command execution is exposed to the model.
//
// Maps to: codex-rs/core/src/openai_tools.rs ConfigShellToolType
type ShellToolType string

const (
	// ShellToolDefault exposes the provider's preferred shape for the
	// active model family (e.g. the native local_shell tool for Responses
	// API models that support it).
	ShellToolDefault ShellToolType = ""
	// ShellToolShellCommand forces the generic function-call shaped shell
	// tool regardless of what the model family would otherwise prefer.
	ShellToolShellCommand ShellToolType = "shell_command"
	// ShellToolDisabled removes command execution entirely.
	ShellToolDisabled ShellToolType = "disabled"
)

// ToolsConfig configures which tools are enabled for a session.
//
// Maps to: codex-rs/core/src/codex.rs SessionConfiguration (tools config part)
type ToolsConfig struct {
	ShellType ShellToolType `json:"shell_type,omitempty"`

	EnableReadFile         bool `json:"enable_read_file"`
	EnableWriteFile        bool `json:"enable_write_file,omitempty"`
	EnableListDir          bool `json:"enable_list_dir,omitempty"`
	EnableGrepFiles        bool `json:"enable_grep_files,omitempty"`
	EnableApplyPatch       bool `json:"enable_apply_patch,omitempty"`
	EnableUpdatePlan       bool `json:"enable_update_plan,omitempty"`
	EnableRequestUserInput bool `json:"enable_request_user_input,omitempty"`
	EnableCollab           bool `json:"enable_collab,omitempty"`

	// EnabledTools lists extra tool names layered on top of the built-ins
	// above. It is carried in the config and copied into subagent configs;
	// tool registration does not read it.
	EnabledTools []string `json:"enabled_tools,omitempty"`

	// Disable lists built-in or MCP tool names a resolved model profile
	// wants suppressed regardless of the Enable* flags above (see
	// ResolvedProfile.Tools).
	Disable []string `json:"disable,omitempty"`
}

// DefaultToolsConfig returns default tools configuration.
func DefaultToolsConfig() ToolsConfig {
	return ToolsConfig{
		EnableReadFile:         true,
		EnableWriteFile:        true,
		EnableListDir:          true,
		EnableGrepFiles:        true,
		EnableApplyPatch:       true,
		EnableUpdatePlan:       true,
		EnableRequestUserInput: true,
		EnableCollab:           true,
	}
}

// ResolvedShellType reports which shell tool shape buildToolSpecs should
// emit, defaulting to ShellToolDefault when unset.
func (t ToolsConfig) ResolvedShellType() ShellToolType {
	if t.ShellType == "" {
		return ShellToolDefault
	}
	return t.ShellType
}

// RemoveTools disables the named tools. "collab" is a pseudo-name covering
// every subsession tool (create_session/wait_session/cancel_session) rather
// than a single literal tool, matching how subagent role overrides disable
// the whole group at once.
//
// Maps to: codex-rs/core/src/tools/spec.rs per-role tool filtering
func (t *ToolsConfig) RemoveTools(names ...string) {
	for _, name := range names {
		switch name {
		case "collab":
			t.EnableCollab = false
		case "write_file":
			t.EnableWriteFile = false
		case "read_file":
			t.EnableReadFile = false
		case "list_dir":
			t.EnableListDir = false
		case "grep_files":
			t.EnableGrepFiles = false
		case "apply_patch":
			t.EnableApplyPatch = false
		case "update_plan":
			t.EnableUpdatePlan = false
		case "request_user_input":
			t.EnableRequestUserInput = false
		case "shell", "shell_command":
			t.ShellType = ShellToolDisabled
		default:
			t.Disable = append(t.Disable, name)
		}
	}
}

// ApprovalMode is an alias for the wire-level approval policy so Temporal
// session state reuses the same tagged values the conversation core and
// rollout snapshots use.
type ApprovalMode = protocol.AskForApproval

const (
	ApprovalUnlessTrusted = protocol.ApprovalUnlessTrusted
	ApprovalOnFailure     = protocol.ApprovalOnFailure
	ApprovalOnRequest     = protocol.ApprovalOnRequest
	ApprovalNever         = protocol.ApprovalNever
)

// SessionConfiguration configures a complete agentic session.
//
// Maps to: codex-rs/core/src/codex.rs SessionConfiguration
type SessionConfiguration struct {
	// Instructions hierarchy (maps to Codex 3-tier system)
	BaseInstructions      string `json:"base_instructions,omitempty"`
	DeveloperInstructions string `json:"developer_instructions,omitempty"`
	UserInstructions      string `json:"user_instructions,omitempty"`

	// CLIProjectDocs carries AGENTS.md content the CLI already discovered on
	// the client side, used as a fallback when the worker's own filesystem
	// lookup (LoadWorkerInstructions) finds nothing.
	CLIProjectDocs string `json:"cli_project_docs,omitempty"`

	// UserPersonalInstructions are standing user preferences (e.g. from
	// ~/.codex/instructions.md) always appended to the merged user tier.
	UserPersonalInstructions string `json:"user_personal_instructions,omitempty"`

	// Model configuration
	Model llm.ModelConfig `json:"model"`

	// Tool configuration
	Tools ToolsConfig `json:"tools"`

	// McpServers are connected once at session init; the resulting tool
	// specs are merged into ToolSpecs and calls routed by McpToolLookup.
	McpServers map[string]mcp.McpServerConfig `json:"mcp_servers,omitempty"`

	WebSearchMode WebSearchMode `json:"web_search_mode,omitempty"`

	// FinalOutputJSONSchema, when set, constrains the turn's final assistant
	// message to the given JSON schema (sent as text.format in the provider
	// request and re-validated locally once the response arrives).
	FinalOutputJSONSchema json.RawMessage `json:"final_output_json_schema,omitempty"`

	// Execution context
	Cwd       string `json:"cwd,omitempty"`
	CodexHome string `json:"codex_home,omitempty"`

	// UseWorktree, when true, makes session init create (or reuse) a git
	// worktree rooted at WorktreeRepoRoot for this conversation and override
	// Cwd with its path before the first turn runs.
	UseWorktree bool `json:"use_worktree,omitempty"`

	// WorktreeRepoRoot is the git repository worktrees are created under.
	// Defaults to Cwd when empty.
	WorktreeRepoRoot string `json:"worktree_repo_root,omitempty"`

	// ExecPolicyRules is the raw source of the exec policy file loaded at
	// session init (see activities.LoadExecPolicyInput), consulted by
	// ApprovalGate to classify shell commands without a round-trip approval.
	ExecPolicyRules string `json:"exec_policy_rules,omitempty"`

	ApprovalMode ApprovalMode `json:"approval_mode,omitempty"`

	SandboxMode          string   `json:"sandbox_mode,omitempty"`
	SandboxWritableRoots []string `json:"sandbox_writable_roots,omitempty"`
	SandboxNetworkAccess bool     `json:"sandbox_network_access,omitempty"`

	// SessionTaskQueue is the Temporal task queue tool activities for this
	// session are scheduled onto, so a subagent's tools run on the same
	// worker fleet as its parent.
	SessionTaskQueue string `json:"session_task_queue,omitempty"`

	AutoCompactTokenLimit int  `json:"auto_compact_token_limit,omitempty"`
	DisableSuggestions    bool `json:"disable_suggestions,omitempty"`

	// Session metadata
	SessionSource string `json:"session_source,omitempty"` // "cli", "api", "exec"
}

// DefaultSessionConfiguration returns sensible defaults.
func DefaultSessionConfiguration() SessionConfiguration {
	return SessionConfiguration{
		Model:                 DefaultModelConfig(),
		Tools:                 DefaultToolsConfig(),
		ApprovalMode:          ApprovalUnlessTrusted,
		AutoCompactTokenLimit: 0,
	}
}
