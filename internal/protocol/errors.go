package protocol

import "fmt"

// ErrorKind classifies a failure for retry/escalation decisions, generalizing
// the status-code classification used against model providers to every
// subsystem that can fail mid-turn (model calls, tool execution, sandboxing).
type ErrorKind string

const (
	// ErrConfiguration covers bad config, missing credentials, invalid
	// policy files — never retryable, always fatal to the turn.
	ErrConfiguration ErrorKind = "configuration"

	// ErrAuth covers 401/403-class provider responses.
	ErrAuth ErrorKind = "auth"

	// ErrTransport covers connection resets, DNS failures, timeouts talking
	// to a provider or MCP server — retryable with backoff.
	ErrTransport ErrorKind = "transport"

	// ErrRateLimited covers 429s — retryable with backoff honoring
	// Retry-After when present.
	ErrRateLimited ErrorKind = "rate_limited"

	// ErrStreamProtocol covers malformed SSE frames, unexpected event
	// types, a stream that ends without a terminal event.
	ErrStreamProtocol ErrorKind = "stream_protocol"

	// ErrToolInputInvalid covers a tool call whose arguments fail to
	// parse or fail schema validation — reported back to the model as a
	// function_call_output, never escalated to the user.
	ErrToolInputInvalid ErrorKind = "tool_input_invalid"

	// ErrToolFatal covers a tool handler that cannot produce any output
	// (missing binary, permission denied opening the target).
	ErrToolFatal ErrorKind = "tool_fatal"

	// ErrSandboxDenial covers a command that a sandbox backend (Seatbelt,
	// bwrap, AppContainer) refused to run; distinct from ErrToolFatal so
	// escalation logic can recognize it and offer a sandbox-disabled retry.
	ErrSandboxDenial ErrorKind = "sandbox_denial"

	// ErrApprovalRejected covers a user explicitly denying or aborting an
	// approval request.
	ErrApprovalRejected ErrorKind = "approval_rejected"

	// ErrInterrupted covers a turn cancelled by an interrupt submission.
	ErrInterrupted ErrorKind = "interrupted"
)

// Retryable reports whether the activity/operation that produced this kind
// of error should be retried by its caller's own retry policy, as opposed
// to being surfaced immediately.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrTransport, ErrRateLimited, ErrStreamProtocol:
		return true
	default:
		return false
	}
}

// CoreError is the error type threaded through activities, tool handlers,
// and the conversation driver so callers can branch on Kind without string
// matching.
type CoreError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *CoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error { return e.Cause }

// NewCoreError constructs a CoreError, optionally wrapping a cause.
func NewCoreError(kind ErrorKind, message string, cause error) *CoreError {
	return &CoreError{Kind: kind, Message: message, Cause: cause}
}

// ClassifyHTTPStatus maps a provider HTTP status code to an ErrorKind,
// generalizing the 429/408/409/4xx/5xx classification used against model
// providers so it can be reused by any HTTP-backed subsystem (MCP over
// HTTP transports, web_search).
func ClassifyHTTPStatus(statusCode int) ErrorKind {
	switch {
	case statusCode == 401 || statusCode == 403:
		return ErrAuth
	case statusCode == 429:
		return ErrRateLimited
	case statusCode == 408 || statusCode == 409:
		return ErrTransport
	case statusCode >= 400 && statusCode < 500:
		return ErrToolInputInvalid
	case statusCode >= 500:
		return ErrTransport
	default:
		return ErrToolFatal
	}
}
