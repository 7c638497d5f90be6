package tools

func init() {
	RegisterSpec(SpecEntry{Name: "web_search", Constructor: NewWebSearchToolSpec})
}

// DefaultWebSearchTimeoutMs is the default StartToCloseTimeout for web_search.
const DefaultWebSearchTimeoutMs = 30_000

// NewWebSearchToolSpec creates the specification for the web_search tool.
// Dispatched like any other function tool to the web_search handler, which
// runs the search itself; no WebSearchCallBegin event is emitted for it.
//
// Maps to: codex-rs/core/src/tools/spec.rs create_web_search_tool
func NewWebSearchToolSpec() ToolSpec {
	return ToolSpec{
		Name:        "web_search",
		Description: "Search the web for up-to-date information and return a summary of relevant results.",
		Parameters: []ToolParameter{
			{
				Name:        "query",
				Type:        "string",
				Description: "The search query.",
				Required:    true,
			},
		},
		DefaultTimeoutMs: DefaultWebSearchTimeoutMs,
	}
}
