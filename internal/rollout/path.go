// Package rollout implements the durable JSON-lines conversation log: one
// file per conversation under codex_home, filtered by a persistence policy,
// with resume-by-replay and paginated listing.
//
// Maps to: codex-rs/core/src/rollout/mod.rs
package rollout

import (
	"fmt"
	"path/filepath"
	"time"
)

const sessionsDirName = "sessions"

// FilePath returns the storage path for a new rollout file:
// <codexHome>/sessions/YYYY/MM/DD/rollout-<ts>-<conversationID>.jsonl
//
// Maps to: spec §4.G storage layout
func FilePath(codexHome string, startedAt time.Time, conversationID string) string {
	ts := startedAt.UTC().Format("2006-01-02T15-04-05")
	name := fmt.Sprintf("rollout-%s-%s.jsonl", ts, conversationID)
	return filepath.Join(
		codexHome, sessionsDirName,
		fmt.Sprintf("%04d", startedAt.UTC().Year()),
		fmt.Sprintf("%02d", startedAt.UTC().Month()),
		fmt.Sprintf("%02d", startedAt.UTC().Day()),
		name,
	)
}

// SessionsRoot returns <codexHome>/sessions.
func SessionsRoot(codexHome string) string {
	return filepath.Join(codexHome, sessionsDirName)
}
