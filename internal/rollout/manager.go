package rollout

import (
	"fmt"
	"sync"
	"time"

	"github.com/fenrirlabs/agentcore/internal/protocol"
)

// Manager keeps one Recorder alive per in-flight conversation on this
// worker process, so repeated activity invocations against the same
// conversation reuse its writer goroutine and file handle instead of
// reopening the file on every call.
type Manager struct {
	mu        sync.Mutex
	codexHome string
	recorders map[string]*Recorder
}

// NewManager creates a recorder manager rooted at codexHome.
func NewManager(codexHome string) *Manager {
	return &Manager{
		codexHome: codexHome,
		recorders: make(map[string]*Recorder),
	}
}

// Ensure returns the Recorder for conversationID, creating (and writing its
// SessionMeta line) if one is not already open.
func (m *Manager) Ensure(startedAt time.Time, meta protocol.SessionMeta) (*Recorder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.recorders[meta.ID]; ok {
		return rec, nil
	}
	rec, err := NewRecorder(m.codexHome, startedAt, meta)
	if err != nil {
		return nil, err
	}
	m.recorders[meta.ID] = rec
	return rec, nil
}

// Get returns the open Recorder for conversationID, if any.
func (m *Manager) Get(conversationID string) (*Recorder, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recorders[conversationID]
	return rec, ok
}

// Close flushes and shuts down the Recorder for conversationID, removing it
// from the manager. It is a no-op if no recorder is open for that ID.
func (m *Manager) Close(conversationID string) error {
	m.mu.Lock()
	rec, ok := m.recorders[conversationID]
	delete(m.recorders, conversationID)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	if err := rec.Shutdown(); err != nil {
		return fmt.Errorf("rollout: shutdown recorder for %s: %w", conversationID, err)
	}
	return nil
}
