// Package worktree manages per-conversation git worktrees so a conversation
// can make filesystem changes isolated from the user's checked-out branch.
//
// Maps to: codex-rs/core/src/git_worktree.rs
package worktree

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// worktreesDirName is the directory under repo_root holding all managed worktrees.
const worktreesDirName = "codex/worktree"

// excludeEntry is appended to .git/info/exclude so the worktree tree never
// shows up as untracked in the main checkout.
const excludeEntry = "/codex/"

// Manager creates and removes git worktrees rooted at a single repository.
type Manager struct {
	// RepoRoot is the root of the git repository that owns the worktrees.
	RepoRoot string
}

// NewManager creates a Manager for the given repository root.
func NewManager(repoRoot string) *Manager {
	return &Manager{RepoRoot: repoRoot}
}

// Create ensures a worktree exists for conversationID and returns its path.
//
// Maps to: codex-rs/core/src/git_worktree.rs create
//
// Steps:
//  1. Require RepoRoot to exist; create <repo>/codex/worktree/.
//  2. Compute target = <repo>/codex/worktree/<conversation_id>.
//  3. If target is registered (git worktree list --porcelain) and present on
//     disk, reuse it. If registered but missing from disk, prune stale
//     registrations and fall through to create. If present on disk but not
//     registered, fail rather than silently adopting a foreign directory.
//  4. Otherwise `git worktree add --detach <target> HEAD`.
//  5. Append /codex/ to .git/info/exclude (idempotently).
func (m *Manager) Create(ctx context.Context, conversationID string) (string, error) {
	if _, err := os.Stat(m.RepoRoot); err != nil {
		return "", fmt.Errorf("repo_root %q does not exist: %w", m.RepoRoot, err)
	}

	worktreesDir := filepath.Join(m.RepoRoot, worktreesDirName)
	if err := os.MkdirAll(worktreesDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create worktrees directory: %w", err)
	}

	target := filepath.Join(worktreesDir, conversationID)

	registered, err := m.listRegistered(ctx)
	if err != nil {
		return "", err
	}

	_, isRegistered := registered[target]
	_, statErr := os.Stat(target)
	presentOnDisk := statErr == nil

	switch {
	case isRegistered && presentOnDisk:
		return target, nil

	case isRegistered && !presentOnDisk:
		if err := m.prune(ctx); err != nil {
			return "", err
		}

	case !isRegistered && presentOnDisk:
		return "", fmt.Errorf("worktree path %q exists but is not registered with git", target)
	}

	if err := m.add(ctx, target); err != nil {
		return "", err
	}

	if err := m.excludeFromIndex(); err != nil {
		return "", err
	}

	return target, nil
}

// Remove tears down the worktree for conversationID, forcing removal of any
// uncommitted changes, then prunes stale worktree metadata.
//
// Maps to: codex-rs/core/src/git_worktree.rs remove
func (m *Manager) Remove(ctx context.Context, conversationID string) error {
	target := filepath.Join(m.RepoRoot, worktreesDirName, conversationID)

	cmd := exec.CommandContext(ctx, "git", "worktree", "remove", "--force", target)
	cmd.Dir = m.RepoRoot
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git worktree remove failed: %w (%s)", err, strings.TrimSpace(string(out)))
	}

	return m.prune(ctx)
}

// add runs `git worktree add --detach <target> HEAD`.
func (m *Manager) add(ctx context.Context, target string) error {
	cmd := exec.CommandContext(ctx, "git", "worktree", "add", "--detach", target, "HEAD")
	cmd.Dir = m.RepoRoot
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git worktree add failed: %w (%s)", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// prune runs `git worktree prune` to drop administrative state for worktrees
// whose directory has been deleted out from under git.
func (m *Manager) prune(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "git", "worktree", "prune")
	cmd.Dir = m.RepoRoot
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git worktree prune failed: %w (%s)", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// listRegistered parses `git worktree list --porcelain` into a set of
// absolute worktree paths git currently knows about.
func (m *Manager) listRegistered(ctx context.Context) (map[string]struct{}, error) {
	cmd := exec.CommandContext(ctx, "git", "worktree", "list", "--porcelain")
	cmd.Dir = m.RepoRoot
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git worktree list failed: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}

	registered := make(map[string]struct{})
	scanner := bufio.NewScanner(&stdout)
	for scanner.Scan() {
		line := scanner.Text()
		path, ok := strings.CutPrefix(line, "worktree ")
		if !ok {
			continue
		}
		registered[path] = struct{}{}
	}
	return registered, nil
}

// excludeFromIndex appends the worktree directory to .git/info/exclude,
// idempotently (skipped if the entry is already present).
func (m *Manager) excludeFromIndex() error {
	excludePath := filepath.Join(m.RepoRoot, ".git", "info", "exclude")

	existing, err := os.ReadFile(excludePath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read %s: %w", excludePath, err)
	}
	for _, line := range strings.Split(string(existing), "\n") {
		if strings.TrimSpace(line) == excludeEntry {
			return nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(excludePath), 0o755); err != nil {
		return fmt.Errorf("failed to create .git/info: %w", err)
	}

	f, err := os.OpenFile(excludePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", excludePath, err)
	}
	defer f.Close()

	prefix := ""
	if len(existing) > 0 && !bytes.HasSuffix(existing, []byte("\n")) {
		prefix = "\n"
	}
	if _, err := f.WriteString(prefix + excludeEntry + "\n"); err != nil {
		return fmt.Errorf("failed to write %s: %w", excludePath, err)
	}
	return nil
}
