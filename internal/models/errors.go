package models

import (
	"errors"
	"fmt"

	"go.temporal.io/sdk/temporal"

	"github.com/fenrirlabs/agentcore/internal/protocol"
)

// ErrorType categorizes errors for appropriate handling
//
// Maps to: codex-rs/core/src/function_tool.rs error categorization
type ErrorType int

const (
	ErrorTypeTransient       ErrorType = iota // Network, timeout → Temporal retries
	ErrorTypeContextOverflow                  // Context window exceeded → ContinueAsNew
	ErrorTypeAPILimit                         // Rate limit → surface to user
	ErrorTypeToolFailure                      // Individual tool failed → continue workflow
	ErrorTypeFatal                            // Unrecoverable → stop workflow
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	switch e {
	case ErrorTypeTransient:
		return "Transient"
	case ErrorTypeContextOverflow:
		return "ContextOverflow"
	case ErrorTypeAPILimit:
		return "APILimit"
	case ErrorTypeToolFailure:
		return "ToolFailure"
	case ErrorTypeFatal:
		return "Fatal"
	default:
		return "Unknown"
	}
}

// ActivityError represents an error from a Temporal activity with categorization
//
// Maps to: codex-rs/core/src/function_tool.rs error handling
type ActivityError struct {
	Type      ErrorType              `json:"type"`
	Retryable bool                   `json:"retryable"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *ActivityError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// NewTransientError creates a retryable transient error
func NewTransientError(message string) *ActivityError {
	return &ActivityError{
		Type:      ErrorTypeTransient,
		Retryable: true,
		Message:   message,
	}
}

// NewContextOverflowError creates a context overflow error
func NewContextOverflowError(message string) *ActivityError {
	return &ActivityError{
		Type:      ErrorTypeContextOverflow,
		Retryable: false,
		Message:   message,
	}
}

// NewAPILimitError creates an API rate limit error
func NewAPILimitError(message string) *ActivityError {
	return &ActivityError{
		Type:      ErrorTypeAPILimit,
		Retryable: true,
		Message:   message,
	}
}

// NewToolFailureError creates a tool failure error
func NewToolFailureError(message string) *ActivityError {
	return &ActivityError{
		Type:      ErrorTypeToolFailure,
		Retryable: false,
		Message:   message,
	}
}

// NewFatalError creates a fatal error
func NewFatalError(message string) *ActivityError {
	return &ActivityError{
		Type:      ErrorTypeFatal,
		Retryable: false,
		Message:   message,
	}
}

// LLM activity error types. These are the string values a workflow reads
// back via temporal.ApplicationError.Type() after errors.As, so the turn
// loop can classify a failed model call without depending on the activity
// package's internal ErrorType enum.
const (
	LLMErrTypeContextOverflow = "ContextOverflow"
	LLMErrTypeAPILimit        = "APILimit"
	LLMErrTypeFatal           = "Fatal"
	LLMErrTypeTransient       = "Transient"
)

func llmErrType(t ErrorType) string {
	switch t {
	case ErrorTypeContextOverflow:
		return LLMErrTypeContextOverflow
	case ErrorTypeAPILimit:
		return LLMErrTypeAPILimit
	case ErrorTypeFatal:
		return LLMErrTypeFatal
	default:
		return LLMErrTypeTransient
	}
}

// WrapActivityError converts an ActivityError raised inside an activity body
// into a temporal.ApplicationError so the workflow can classify it via
// errors.As + Type() instead of string-matching the message, and so
// Retryable controls the activity's retry policy (non-retryable errors are
// wrapped with NonRetryable: true).
func WrapActivityError(e *ActivityError) error {
	return temporal.NewApplicationErrorWithOptions(e.Message, llmErrType(e.Type), temporal.ApplicationErrorOptions{
		NonRetryable: !e.Retryable,
		Details:      []interface{}{e.Details},
	})
}

// ClassifyCoreError converts a protocol.CoreError (the error type returned
// by llm.ModelClient and other protocol-layer components) into a
// temporal.ApplicationError carrying the same LLMErrType* classification,
// so activities that call into the protocol layer can reuse the workflow's
// existing error-handling path instead of inventing a second one.
func ClassifyCoreError(err error) error {
	var coreErr *protocol.CoreError
	if !errors.As(err, &coreErr) {
		return err
	}

	var t string
	retryable := coreErr.Kind.Retryable()
	switch coreErr.Kind {
	case protocol.ErrRateLimited:
		t = LLMErrTypeAPILimit
		retryable = true
	case protocol.ErrConfiguration, protocol.ErrAuth:
		t = LLMErrTypeFatal
	default:
		t = LLMErrTypeTransient
	}

	return temporal.NewApplicationErrorWithOptions(coreErr.Error(), t, temporal.ApplicationErrorOptions{
		NonRetryable: !retryable,
	})
}

// ToolErrorDetails carries the reason a tool activity failed, attached to
// the temporal.ApplicationError returned by ExecuteTool so the workflow can
// report a useful function_call_output without parsing the error message.
type ToolErrorDetails struct {
	Reason string `json:"reason"`
}

const (
	toolErrTypeNotFound  = "ToolNotFound"
	toolErrTypeTimeout   = "ToolTimeout"
	toolErrTypeValidation = "ToolValidation"
)

// NewToolNotFoundError reports that no handler is registered for toolName.
func NewToolNotFoundError(toolName string) error {
	return temporal.NewApplicationErrorWithOptions(
		fmt.Sprintf("tool not found: %s", toolName),
		toolErrTypeNotFound,
		temporal.ApplicationErrorOptions{
			NonRetryable: true,
			Details:      []interface{}{ToolErrorDetails{Reason: fmt.Sprintf("no handler registered for %q", toolName)}},
		},
	)
}

// NewToolTimeoutError reports that toolName's handler exceeded its deadline.
func NewToolTimeoutError(toolName string, cause error) error {
	reason := fmt.Sprintf("%s timed out", toolName)
	if cause != nil {
		reason = fmt.Sprintf("%s: %v", reason, cause)
	}
	return temporal.NewApplicationErrorWithOptions(
		reason,
		toolErrTypeTimeout,
		temporal.ApplicationErrorOptions{
			NonRetryable: false,
			Details:      []interface{}{ToolErrorDetails{Reason: reason}},
		},
	)
}

// NewToolValidationError reports that toolName's handler rejected its
// invocation (bad arguments, precondition failure).
func NewToolValidationError(toolName string, cause error) error {
	reason := fmt.Sprintf("%s failed", toolName)
	if cause != nil {
		reason = fmt.Sprintf("%s: %v", reason, cause)
	}
	return temporal.NewApplicationErrorWithOptions(
		reason,
		toolErrTypeValidation,
		temporal.ApplicationErrorOptions{
			NonRetryable: true,
			Details:      []interface{}{ToolErrorDetails{Reason: reason}},
		},
	)
}
