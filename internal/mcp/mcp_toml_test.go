package mcp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestExpandVars_Simple(t *testing.T) {
	out, err := ExpandVars("/home/${USER}/bin", lookupFrom(map[string]string{"USER": "alice"}), "test")
	require.NoError(t, err)
	assert.Equal(t, "/home/alice/bin", out)
}

func TestExpandVars_WithDefault(t *testing.T) {
	out, err := ExpandVars("${REGION:-us-east}", lookupFrom(nil), "test")
	require.NoError(t, err)
	assert.Equal(t, "us-east", out)
}

func TestExpandVars_MissingErrors(t *testing.T) {
	_, err := ExpandVars("x${REQUIRED}y", lookupFrom(nil), "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "environment variable `REQUIRED` not set")
}

func TestExpandVars_Multiple(t *testing.T) {
	out, err := ExpandVars("${A}-${B}-${C:-x}", lookupFrom(map[string]string{"A": "1", "B": "2"}), "test")
	require.NoError(t, err)
	assert.Equal(t, "1-2-x", out)
}

func TestExpandVars_InvalidName(t *testing.T) {
	_, err := ExpandVars("${1BAD}", lookupFrom(nil), "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid variable name")
}

func TestExpandVars_Unterminated(t *testing.T) {
	_, err := ExpandVars("abc ${FOO", lookupFrom(nil), "test-file")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unterminated variable expansion")
	assert.Contains(t, err.Error(), "test-file")
}

func TestToMcpServerConfig_StdioOK(t *testing.T) {
	entry := McpTomlEntry{
		Command: "${HOME}/bin/svc",
		Args:    []string{"--region", "${REGION:-us-east}"},
		Env:     map[string]string{"API_KEY": "${KEY}"},
	}
	cfg, err := ToMcpServerConfig(entry, lookupFrom(map[string]string{
		"HOME": "/home/alice",
		"KEY":  "secret",
	}))
	require.NoError(t, err)
	assert.Equal(t, "/home/alice/bin/svc", cfg.Transport.Command)
	assert.Equal(t, []string{"--region", "us-east"}, cfg.Transport.Args)
	assert.Equal(t, "secret", cfg.Transport.Env["API_KEY"])
}

func TestToMcpServerConfig_RejectsNonStdio(t *testing.T) {
	for _, typ := range []string{"http", "sse", "HTTP", "SSe"} {
		entry := McpTomlEntry{Type: typ, Command: "tool"}
		_, err := ToMcpServerConfig(entry, lookupFrom(nil))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported MCP transport")
	}
}

func TestToMcpServerConfig_MissingCommandErrors(t *testing.T) {
	_, err := ToMcpServerConfig(McpTomlEntry{}, lookupFrom(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing `command`")
}

func TestToMcpServerConfig_MissingEnvVarErrors(t *testing.T) {
	entry := McpTomlEntry{Command: "tool", Args: []string{"${REQUIRED}"}}
	_, err := ToMcpServerConfig(entry, lookupFrom(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "environment variable `REQUIRED` not set")
}

func TestLoadProjectOverlays_ReadsBothFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".mcp.toml"), []byte("[mcp_servers.alpha]\ncommand = \"alpha\"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".mcp.local.toml"), []byte("[mcp_servers.beta]\ncommand = \"beta\"\n"), 0o644))

	overlays, err := LoadProjectOverlays(dir)
	require.NoError(t, err)
	require.Len(t, overlays, 2)

	assert.Equal(t, ScopeLocal, overlays[0].Scope)
	assert.Contains(t, overlays[0].Toml.McpServers, "beta")
	assert.Equal(t, ScopeProject, overlays[1].Scope)
	assert.Contains(t, overlays[1].Toml.McpServers, "alpha")
}

func TestLoadProjectOverlays_MissingFilesSkipped(t *testing.T) {
	dir := t.TempDir()
	overlays, err := LoadProjectOverlays(dir)
	require.NoError(t, err)
	assert.Empty(t, overlays)
}

func TestLoadProjectOverlays_InvalidTomlSkipped(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".mcp.toml"), []byte("not valid toml [[["), 0o644))
	overlays, err := LoadProjectOverlays(dir)
	require.NoError(t, err)
	assert.Empty(t, overlays)
}

func TestMergeProjectOverlays_LocalWinsOnCollision(t *testing.T) {
	overlays := []ProjectOverlay{
		{Scope: ScopeLocal, Toml: McpToml{McpServers: map[string]McpTomlEntry{
			"shared": {Command: "local-cmd"},
		}}},
		{Scope: ScopeProject, Toml: McpToml{McpServers: map[string]McpTomlEntry{
			"shared": {Command: "project-cmd"},
			"only":   {Command: "project-only"},
		}}},
	}

	merged, errs := MergeProjectOverlays(overlays, lookupFrom(nil))
	assert.Empty(t, errs)
	require.Contains(t, merged, "shared")
	assert.Equal(t, "local-cmd", merged["shared"].Transport.Command)
	require.Contains(t, merged, "only")
	assert.Equal(t, "project-only", merged["only"].Transport.Command)
}

func TestMergeProjectOverlays_ConversionErrorsReported(t *testing.T) {
	overlays := []ProjectOverlay{
		{Scope: ScopeProject, Toml: McpToml{McpServers: map[string]McpTomlEntry{
			"bad": {Type: "http", Command: "tool"},
		}}},
	}
	merged, errs := MergeProjectOverlays(overlays, lookupFrom(nil))
	assert.Empty(t, merged)
	require.Contains(t, errs, "bad")
	assert.Contains(t, errs["bad"], "unsupported MCP transport")
}
