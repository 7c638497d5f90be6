package history

import (
	"fmt"
	"sync"

	"github.com/fenrirlabs/agentcore/internal/protocol"
)

// InMemoryHistory is a simple in-memory implementation of ContextManager.
//
// Maps to: codex-rs/core/src/state/session.rs SessionState history field
type InMemoryHistory struct {
	items []protocol.ResponseItem
	mu    sync.RWMutex
}

// NewInMemoryHistory creates a new in-memory history.
func NewInMemoryHistory() *InMemoryHistory {
	return &InMemoryHistory{
		items: make([]protocol.ResponseItem, 0),
	}
}

// isUserMessage reports whether item is a user-authored message, as opposed
// to an assistant message, tool call/output, or turn-lifecycle marker.
func isUserMessage(item protocol.ResponseItem) bool {
	return item.Type == protocol.ItemMessage && item.Role == "user"
}

// AddItem adds a new conversation item to history.
// Assigns a monotonically increasing Seq number before appending.
func (h *InMemoryHistory) AddItem(item protocol.ResponseItem) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	item.Seq = len(h.items)
	h.items = append(h.items, item)
	return nil
}

// GetForPrompt returns conversation items formatted for LLM prompt.
func (h *InMemoryHistory) GetForPrompt() ([]protocol.ResponseItem, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	result := make([]protocol.ResponseItem, len(h.items))
	copy(result, h.items)
	return result, nil
}

// EstimateTokenCount estimates the total token count using a simple heuristic.
// Uses 4 characters per token as a rough estimate.
func (h *InMemoryHistory) EstimateTokenCount() (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	totalChars := 0
	for _, item := range h.items {
		totalChars += len(item.PlainText())
		totalChars += len(item.Name)
		totalChars += len(item.Arguments)
		if item.Output != nil {
			totalChars += len(item.Output.Content)
		}
	}

	return totalChars / 4, nil
}

// DropLastNUserTurns removes the last N user turns from history.
func (h *InMemoryHistory) DropLastNUserTurns(n int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n <= 0 {
		return nil
	}

	userTurnsFound := 0
	cutIndex := len(h.items)

	for i := len(h.items) - 1; i >= 0; i-- {
		if isUserMessage(h.items[i]) {
			userTurnsFound++
			if userTurnsFound == n {
				cutIndex = i
				break
			}
		}
	}

	if userTurnsFound < n {
		return fmt.Errorf("only %d user turns found, cannot drop %d", userTurnsFound, n)
	}

	h.items = h.items[:cutIndex]
	return nil
}

// DropOldestUserTurns keeps only the last keepN user turns and their
// associated items. Everything before the Nth-from-last user message is removed.
// Returns the number of items dropped.
func (h *InMemoryHistory) DropOldestUserTurns(keepN int) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if keepN <= 0 {
		return 0, nil
	}

	// Count backwards to find the start of the Nth-from-last user message
	userCount := 0
	cutIndex := 0
	for i := len(h.items) - 1; i >= 0; i-- {
		if isUserMessage(h.items[i]) {
			userCount++
			if userCount == keepN {
				cutIndex = i
				// Include the TurnStarted marker that precedes this user message
				if cutIndex > 0 && h.items[cutIndex-1].Type == protocol.ItemTurnStarted {
					cutIndex = cutIndex - 1
				}
				break
			}
		}
	}

	if cutIndex == 0 {
		return 0, nil // nothing to drop
	}

	dropped := cutIndex
	h.items = h.items[cutIndex:]
	// Re-assign Seq numbers
	for i := range h.items {
		h.items[i].Seq = i
	}
	return dropped, nil
}

// GetItemsSince returns items with Seq > sinceSeq. compacted is true when
// the oldest retained item's Seq leaves a gap above sinceSeq, meaning items
// the caller hasn't seen yet were dropped (compaction or DropOldestUserTurns)
// and it should re-fetch the full history instead of trusting the delta.
func (h *InMemoryHistory) GetItemsSince(sinceSeq int) ([]protocol.ResponseItem, bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	compacted := len(h.items) > 0 && h.items[0].Seq > sinceSeq+1

	var result []protocol.ResponseItem
	for _, item := range h.items {
		if item.Seq > sinceSeq {
			result = append(result, item)
		}
	}
	return result, compacted, nil
}

// GetRawItems returns raw conversation items for analysis.
func (h *InMemoryHistory) GetRawItems() ([]protocol.ResponseItem, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	result := make([]protocol.ResponseItem, len(h.items))
	copy(result, h.items)
	return result, nil
}

// GetTurnCount returns the number of user turns.
func (h *InMemoryHistory) GetTurnCount() (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, item := range h.items {
		if isUserMessage(item) {
			count++
		}
	}
	return count, nil
}
