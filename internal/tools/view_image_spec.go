package tools

func init() {
	RegisterSpec(SpecEntry{Name: "view_image", Constructor: NewViewImageToolSpec})
}

// NewViewImageToolSpec creates the specification for the view_image tool.
// Attaches a local image file to the conversation as model input.
//
// Maps to: codex-rs/core/src/tools/spec.rs create_view_image_tool
func NewViewImageToolSpec() ToolSpec {
	return ToolSpec{
		Name:        "view_image",
		Description: "Attach a local image file to the conversation so the model can see it.",
		Parameters: []ToolParameter{
			{
				Name:        "path",
				Type:        "string",
				Description: "Absolute path to the image file.",
				Required:    true,
			},
		},
		DefaultTimeoutMs: DefaultReadFileTimeoutMs,
	}
}
