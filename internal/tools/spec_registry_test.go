package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndGet(t *testing.T) {
	// Built-in tools are registered via init(). Verify a few known entries.
	entry, ok := GetEntry("shell")
	require.True(t, ok, "shell should be registered")
	assert.Equal(t, "shell", entry.Name)
	assert.NotNil(t, entry.Constructor)

	entry, ok = GetEntry("read_file")
	require.True(t, ok)
	assert.Equal(t, "read_file", entry.Name)

	_, ok = GetEntry("nonexistent_tool")
	assert.False(t, ok, "unknown tool should not be found")
}

func TestBuildSpecs(t *testing.T) {
	specs := BuildSpecs([]string{"shell", "read_file"})
	require.Len(t, specs, 2)
	assert.Equal(t, "shell", specs[0].Name)
	assert.Equal(t, "read_file", specs[1].Name)
}

func TestBuildSpecs_WithGroup(t *testing.T) {
	specs := BuildSpecs([]string{"subsession"})
	// "subsession" expands to 3 tools
	require.Len(t, specs, 3)
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	assert.Contains(t, names, "create_session")
	assert.Contains(t, names, "wait_session")
	assert.Contains(t, names, "cancel_session")
}

func TestExpandGroups(t *testing.T) {
	expanded := ExpandGroups([]string{"shell", "subsession", "read_file"})
	// "subsession" should be replaced with its members
	assert.NotContains(t, expanded, "subsession")
	assert.Contains(t, expanded, "create_session")
	assert.Contains(t, expanded, "wait_session")
	assert.Contains(t, expanded, "shell")
	assert.Contains(t, expanded, "read_file")
}

func TestExpandGroups_NoGroups(t *testing.T) {
	expanded := ExpandGroups([]string{"shell", "read_file"})
	assert.Equal(t, []string{"shell", "read_file"}, expanded)
}

func TestDefaultEnabledTools(t *testing.T) {
	defaults := DefaultEnabledTools()
	assert.Contains(t, defaults, "shell")
	assert.Contains(t, defaults, "read_file")
	assert.Contains(t, defaults, "write_file")
	assert.Contains(t, defaults, "apply_patch")
	assert.Contains(t, defaults, "request_user_input")
	assert.Contains(t, defaults, "update_plan")

	// Every default should produce a valid spec
	specs := BuildSpecs(defaults)
	assert.Len(t, specs, len(defaults), "all defaults should resolve to specs")
}

func TestUnknownTool(t *testing.T) {
	// Unknown names should be silently skipped
	specs := BuildSpecs([]string{"shell", "does_not_exist", "read_file"})
	require.Len(t, specs, 2, "unknown tool should be skipped")
	assert.Equal(t, "shell", specs[0].Name)
	assert.Equal(t, "read_file", specs[1].Name)
}

func TestSpecEntry_ResolvedLLMName(t *testing.T) {
	t.Run("defaults to Name", func(t *testing.T) {
		e := SpecEntry{Name: "shell"}
		assert.Equal(t, "shell", e.resolvedLLMName())
	})

	t.Run("uses LLMName if set", func(t *testing.T) {
		e := SpecEntry{Name: "patch_gpt", LLMName: "apply_patch"}
		assert.Equal(t, "apply_patch", e.resolvedLLMName())
	})
}

func TestBuiltInToolsRegistered(t *testing.T) {
	// Verify all expected tools are registered after init()
	expected := []string{
		"shell",
		"read_file", "write_file", "list_dir", "grep_files",
		"apply_patch", "request_user_input", "update_plan",
		"unified_exec", "view_image", "web_search",
		"create_session", "wait_session", "cancel_session",
	}
	for _, name := range expected {
		_, ok := GetEntry(name)
		assert.True(t, ok, "%s should be registered", name)
	}
}

func TestSubsessionGroupRegistered(t *testing.T) {
	expanded := ExpandGroups([]string{"subsession"})
	assert.Len(t, expanded, 3)
	assert.Contains(t, expanded, "create_session")
	assert.Contains(t, expanded, "wait_session")
	assert.Contains(t, expanded, "cancel_session")
}
