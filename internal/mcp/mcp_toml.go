package mcp

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Scope identifies which overlay file an McpToml was parsed from.
//
// Maps to: codex-rs/core/src/mcp_toml.rs Scope
type Scope int

const (
	ScopeLocal Scope = iota
	ScopeProject
)

func (s Scope) String() string {
	switch s {
	case ScopeLocal:
		return "local"
	case ScopeProject:
		return "project"
	default:
		return "unknown"
	}
}

// McpToml is the top-level shape of .mcp.toml / .mcp.local.toml.
//
// Maps to: codex-rs/core/src/mcp_toml.rs McpToml
type McpToml struct {
	McpServers map[string]McpTomlEntry `toml:"mcp_servers"`
}

// McpTomlEntry is the permissive on-disk overlay entry, before variable
// expansion and transport validation.
//
// Maps to: codex-rs/core/src/mcp_toml.rs McpTomlEntry
type McpTomlEntry struct {
	Type    string            `toml:"type"`
	Command string            `toml:"command"`
	Args    []string          `toml:"args"`
	Env     map[string]string `toml:"env"`
}

// ProjectOverlay pairs a parsed overlay with the scope it came from.
type ProjectOverlay struct {
	Scope Scope
	Toml  McpToml
}

// LoadProjectOverlays reads .mcp.local.toml and .mcp.toml from projectRoot if
// they exist. Overlays are returned in precedence order: Local then Project.
// Invalid or unreadable files are skipped rather than failing the load —
// overlays are a convenience, not a required config surface.
//
// Maps to: codex-rs/core/src/mcp_toml.rs load_project_overlays
func LoadProjectOverlays(projectRoot string) ([]ProjectOverlay, error) {
	var overlays []ProjectOverlay

	for _, f := range []struct {
		name  string
		scope Scope
	}{
		{".mcp.local.toml", ScopeLocal},
		{".mcp.toml", ScopeProject},
	} {
		path := filepath.Join(projectRoot, f.name)
		contents, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			continue
		}
		var parsed McpToml
		if _, err := toml.Decode(string(contents), &parsed); err != nil {
			continue
		}
		overlays = append(overlays, ProjectOverlay{Scope: f.scope, Toml: parsed})
	}

	return overlays, nil
}

// MergeProjectOverlays converts each overlay's entries to McpServerConfig and
// merges them by server name, preferring earlier overlays in the slice (the
// caller passes Local before Project, so Local wins on name collision).
// Entries that fail conversion (unsupported transport, missing command,
// unresolved variable) are reported in the returned errors map rather than
// aborting the whole merge.
func MergeProjectOverlays(overlays []ProjectOverlay, lookup func(string) (string, bool)) (map[string]McpServerConfig, map[string]string) {
	merged := make(map[string]McpServerConfig)
	errs := make(map[string]string)

	for _, overlay := range overlays {
		for name, entry := range overlay.Toml.McpServers {
			if _, exists := merged[name]; exists {
				continue
			}
			cfg, err := ToMcpServerConfig(entry, lookup)
			if err != nil {
				errs[name] = err.Error()
				continue
			}
			merged[name] = cfg
		}
	}

	return merged, errs
}

// ToMcpServerConfig converts a permissive TOML entry to the strict
// McpServerConfig used at runtime.
//
//   - Only `stdio` (or an empty type) transport is accepted; anything else
//     is an error.
//   - Variables are expanded in command, each args element, and each env
//     value.
//   - command is required (after expansion).
//
// Maps to: codex-rs/core/src/mcp_toml.rs to_mcp_server_config
func ToMcpServerConfig(entry McpTomlEntry, lookup func(string) (string, bool)) (McpServerConfig, error) {
	if entry.Type != "" && !strings.EqualFold(entry.Type, "stdio") {
		return McpServerConfig{}, fmt.Errorf("unsupported MCP transport %q (only `stdio` supported)", entry.Type)
	}

	command, err := ExpandVars(entry.Command, lookup, "overlay:command")
	if err != nil {
		return McpServerConfig{}, err
	}
	if command == "" {
		return McpServerConfig{}, fmt.Errorf("missing `command` for stdio MCP server")
	}

	args := make([]string, 0, len(entry.Args))
	for _, a := range entry.Args {
		expanded, err := ExpandVars(a, lookup, "overlay:args")
		if err != nil {
			return McpServerConfig{}, err
		}
		args = append(args, expanded)
	}

	var env map[string]string
	if len(entry.Env) > 0 {
		env = make(map[string]string, len(entry.Env))
		for k, v := range entry.Env {
			expanded, err := ExpandVars(v, lookup, "overlay:env")
			if err != nil {
				return McpServerConfig{}, err
			}
			env[k] = expanded
		}
	}

	return McpServerConfig{
		Transport: McpServerTransportConfig{
			Command: command,
			Args:    args,
			Env:     env,
		},
	}, nil
}

// ExpandVars expands `${VAR}` and `${VAR:-default}` sequences in input.
//
//   - `${VAR}`: replaced by lookup(VAR), or an error if unset.
//   - `${VAR:-default}`: replaced by lookup(VAR) if set, else the literal
//     default (no nested expansion inside the default).
//
// Variable names must match `^[A-Za-z_][A-Za-z0-9_]*$`.
//
// Maps to: codex-rs/core/src/mcp_toml.rs expand_vars
func ExpandVars(input string, lookup func(string) (string, bool), sourceLabel string) (string, error) {
	var out strings.Builder
	out.Grow(len(input))

	i := 0
	for i < len(input) {
		if input[i] == '$' && i+1 < len(input) && input[i+1] == '{' {
			start := i + 2
			end := strings.IndexByte(input[start:], '}')
			if end == -1 {
				return "", fmt.Errorf("unterminated variable expansion starting at byte %d in %s", i, sourceLabel)
			}
			end += start

			inner := input[start:end]
			name, def, hasDefault := strings.Cut(inner, ":-")

			if !isValidVarName(name) {
				return "", fmt.Errorf("invalid variable name `%s` in %s (must match ^[A-Za-z_][A-Za-z0-9_]*$)", name, sourceLabel)
			}

			value, ok := lookup(name)
			switch {
			case ok:
				out.WriteString(value)
			case hasDefault:
				out.WriteString(def)
			default:
				return "", fmt.Errorf("environment variable `%s` not set and no default provided in %s", name, sourceLabel)
			}

			i = end + 1
			continue
		}
		out.WriteByte(input[i])
		i++
	}

	return out.String(), nil
}

func isValidVarName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		isAlpha := (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || r == '_'
		isDigit := r >= '0' && r <= '9'
		if i == 0 {
			if !isAlpha {
				return false
			}
			continue
		}
		if !isAlpha && !isDigit {
			return false
		}
	}
	return true
}

// LookupEnv adapts os.LookupEnv to the lookup signature ExpandVars/
// ToMcpServerConfig expect.
func LookupEnv(name string) (string, bool) {
	return os.LookupEnv(name)
}
