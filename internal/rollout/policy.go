package rollout

import "github.com/fenrirlabs/agentcore/internal/protocol"

// ephemeralEvents are not durable: they are either superseded by a later,
// complete event (deltas) or purely informational telemetry (rate limits).
var ephemeralEvents = map[protocol.EventMsgType]bool{
	protocol.EventAgentMessageDelta:        true,
	protocol.EventAgentReasoningDelta:      true,
	protocol.EventAgentReasoningSectionBrk: true,
	protocol.EventExecCommandOutputDelta:   true,
	protocol.EventRateLimits:               true,
	protocol.EventTokenCount:               true,
}

// ShouldPersist applies the persistence policy (spec §6.3) to a candidate
// item: Reasoning without encrypted content is dropped, Other is dropped,
// ephemeral event deltas/rate limits are dropped; everything else, including
// user messages and completed items, is kept.
func ShouldPersist(item protocol.RolloutItem) bool {
	switch item.Type {
	case protocol.RolloutResponseItem:
		return shouldPersistResponseItem(item.ResponseItem)
	case protocol.RolloutEventMsg:
		return shouldPersistEventMsg(item.EventMsg)
	default:
		return true
	}
}

func shouldPersistResponseItem(ri *protocol.ResponseItem) bool {
	if ri == nil {
		return false
	}
	switch ri.Type {
	case protocol.ItemOther:
		return false
	case protocol.ItemReasoning:
		return ri.EncryptedContent != ""
	default:
		return true
	}
}

func shouldPersistEventMsg(ev *protocol.EventMsg) bool {
	if ev == nil {
		return false
	}
	return !ephemeralEvents[ev.Type]
}

// IsUserMessage reports whether a response item is a user-authored message,
// the marker the listing scan looks for in a rollout file's head.
func IsUserMessage(ri *protocol.ResponseItem) bool {
	return ri != nil && ri.Type == protocol.ItemMessage && ri.Role == "user"
}
