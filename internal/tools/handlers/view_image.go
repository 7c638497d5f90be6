package handlers

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/fenrirlabs/agentcore/internal/tools"
)

// ViewImageTool attaches a local image file to the conversation.
// Its output content is the image encoded as a data URL, returned as the
// tool's text output like any other function call result; it is not
// converted into an input_image item.
//
// Maps to: codex-rs/core/src/tools/handlers/view_image.rs ViewImageHandler
type ViewImageTool struct{}

// NewViewImageTool creates a new view_image tool handler.
func NewViewImageTool() *ViewImageTool {
	return &ViewImageTool{}
}

func (t *ViewImageTool) Name() string { return "view_image" }

func (t *ViewImageTool) Kind() tools.ToolKind { return tools.ToolKindFunction }

func (t *ViewImageTool) IsMutating(invocation *tools.ToolInvocation) bool { return false }

func (t *ViewImageTool) Handle(_ context.Context, invocation *tools.ToolInvocation) (*tools.ToolOutput, error) {
	pathArg, ok := invocation.Arguments["path"]
	if !ok {
		return nil, tools.NewValidationError("missing required argument: path")
	}
	path, ok := pathArg.(string)
	if !ok || path == "" {
		return nil, tools.NewValidationError("path must be a non-empty string")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		success := false
		return &tools.ToolOutput{Content: fmt.Sprintf("failed to read image: %v", err), Success: &success}, nil
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))

	success := true
	return &tools.ToolOutput{Content: dataURL, Success: &success}, nil
}
