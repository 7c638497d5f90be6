// Subsession tool specifications: create_session, wait_session,
// cancel_session. These tools are intercepted by the workflow (not
// dispatched as plain activities) since they manage child workflow
// lifecycles directly — see workflow/subagent.go handleCollabToolCall.
//
// Maps to: codex-rs/core/src/agent/collab.rs, codex-rs/core/src/agent/control.rs
package tools

func init() {
	RegisterSpec(SpecEntry{Name: "create_session", Constructor: NewCreateSessionToolSpec, Group: "subsession"})
	RegisterSpec(SpecEntry{Name: "wait_session", Constructor: NewWaitSessionToolSpec, Group: "subsession"})
	RegisterSpec(SpecEntry{Name: "cancel_session", Constructor: NewCancelSessionToolSpec, Group: "subsession"})
}

// NewCreateSessionToolSpec creates the specification for create_session.
// Spins up a child conversation with a reduced "compact subsession" system
// prompt, inheriting the parent's sandbox and approval policy (without
// escalated permissions unless explicitly configured), and returns a
// child id.
func NewCreateSessionToolSpec() ToolSpec {
	return ToolSpec{
		Name: "create_session",
		Description: "Create a new child conversation to work on a task independently. " +
			"Use this to delegate focused subtasks (code exploration, research) that can run " +
			"in parallel with your own work. The child inherits your sandbox and approval " +
			"policy but cannot request escalated permissions. Returns a session_id used with " +
			"wait_session/cancel_session.",
		Parameters: []ToolParameter{
			{
				Name:        "message",
				Type:        "string",
				Description: "The task message to give to the child conversation.",
				Required:    true,
			},
			{
				Name:        "agent_type",
				Type:        "string",
				Description: `Role for the child conversation: "default", "orchestrator", "worker", "explorer", or "planner".`,
				Required:    false,
			},
		},
	}
}

// NewWaitSessionToolSpec creates the specification for wait_session.
// Polls (async) until the named child turn completes and returns its
// final text; background progress is relayed to the parent as
// BackgroundEvent messages tagged with the child id in the meantime.
func NewWaitSessionToolSpec() ToolSpec {
	return ToolSpec{
		Name:        "wait_session",
		Description: "Wait for one or more child sessions created by create_session to finish their turn. Returns as soon as any listed session reaches a terminal state, or on timeout.",
		Parameters: []ToolParameter{
			{
				Name:        "session_ids",
				Type:        "array",
				Description: "Session ids returned by create_session to wait on.",
				Required:    true,
				Items:       map[string]interface{}{"type": "string"},
			},
			{
				Name:        "timeout_ms",
				Type:        "number",
				Description: "Maximum time to wait in milliseconds. Range: 10000-300000. Default: 30000.",
				Required:    false,
			},
		},
	}
}

// NewCancelSessionToolSpec creates the specification for cancel_session.
// Interrupts the child conversation and tears down its session state.
func NewCancelSessionToolSpec() ToolSpec {
	return ToolSpec{
		Name:        "cancel_session",
		Description: "Cancel a running child session created by create_session, whether or not it has finished.",
		Parameters: []ToolParameter{
			{
				Name:        "session_id",
				Type:        "string",
				Description: "The session id to cancel.",
				Required:    true,
			},
		},
	}
}
