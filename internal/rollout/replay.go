package rollout

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fenrirlabs/agentcore/internal/protocol"
)

// History is the reconstructed state of a conversation read back from its
// rollout file, ready to seed a resumed conversation.
type History struct {
	Meta        protocol.SessionMeta
	Items       []protocol.RolloutItem
	TurnContext *protocol.TurnContextSnapshot
}

// LoadHistory replays a rollout file from disk and reconstructs everything
// durable about the conversation. The first line must be a SessionMeta; any
// other leading content is a corrupt file.
//
// Maps to: spec §4.G get_rollout_history
func LoadHistory(path string) (*History, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rollout: open rollout file: %w", err)
	}
	defer f.Close()

	h := &History{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	first := true
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var line protocol.RolloutLine
		if err := json.Unmarshal(raw, &line); err != nil {
			return nil, fmt.Errorf("rollout: decode line: %w", err)
		}

		if first {
			if line.Item.Type != protocol.RolloutSessionMeta || line.Item.SessionMeta == nil {
				return nil, fmt.Errorf("rollout: first line is not a session_meta item")
			}
			h.Meta = *line.Item.SessionMeta
			first = false
			continue
		}

		if line.Item.Type == protocol.RolloutTurnContext && line.Item.TurnContext != nil {
			h.TurnContext = line.Item.TurnContext
		}
		h.Items = append(h.Items, line.Item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("rollout: scan rollout file: %w", err)
	}
	if first {
		return nil, fmt.Errorf("rollout: empty rollout file")
	}
	return h, nil
}
