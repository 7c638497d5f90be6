package instructions

import "strings"

// SuggestionSystemPrompt instructs a cheap/fast model to produce a single
// short follow-up prompt suggestion after a turn completes.
const SuggestionSystemPrompt = `You suggest a single short follow-up message the user could send next, based on the exchange below. Reply with only the suggestion text, no quotes, no preamble, no explanation. If nothing useful comes to mind, reply with an empty string.`

// BuildSuggestionInput assembles the user-facing content for the suggestion
// activity from the last user/assistant messages and a summary of tool
// activity in between.
func BuildSuggestionInput(userMessage, assistantMessage string, toolSummaries []string) string {
	var b strings.Builder
	if userMessage != "" {
		b.WriteString("User: ")
		b.WriteString(userMessage)
		b.WriteString("\n")
	}
	if len(toolSummaries) > 0 {
		b.WriteString("Tools used: ")
		b.WriteString(strings.Join(toolSummaries, ", "))
		b.WriteString("\n")
	}
	if assistantMessage != "" {
		b.WriteString("Assistant: ")
		b.WriteString(assistantMessage)
	}
	return b.String()
}

// ParseSuggestionResponse trims the model's raw suggestion output.
// Strips surrounding quotes the model sometimes adds despite instructions.
func ParseSuggestionResponse(content string) string {
	s := strings.TrimSpace(content)
	s = strings.Trim(s, "\"'")
	return strings.TrimSpace(s)
}

// FormatToolSummary renders a one-line summary of a tool call's outcome for
// inclusion in the suggestion prompt.
func FormatToolSummary(toolName string, success bool) string {
	if success {
		return toolName
	}
	return toolName + " (failed)"
}

// SuggestionModelForProvider picks a cheap, fast model for the suggestion
// activity based on the session's primary provider. Falls back to the
// OpenAI mini model when the provider is unrecognized.
func SuggestionModelForProvider(provider string) (model, resolvedProvider string) {
	switch provider {
	case "anthropic":
		return "claude-3-5-haiku-latest", "anthropic"
	default:
		return "gpt-4o-mini", "openai"
	}
}
