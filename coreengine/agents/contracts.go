// Package agents defines the shared contracts between pipeline stages.
//
// Every stage (producer, validator, healer) reports back through a Result
// with a tagged Outcome. The orchestrator branches only on the Outcome and
// the classified error record, never on stage internals.
package agents

import (
	"fmt"
)

// =============================================================================
// OUTCOMES
// =============================================================================

// Outcome is the tagged result of one stage invocation.
type Outcome string

const (
	// OutcomeSuccess indicates the stage produced a usable payload.
	OutcomeSuccess Outcome = "success"
	// OutcomeRetry indicates a recoverable failure eligible for healing or
	// regeneration.
	OutcomeRetry Outcome = "retry"
	// OutcomeFatal indicates the stage cannot succeed on this attempt.
	OutcomeFatal Outcome = "fatal"
)

// IsSuccess returns true for a successful outcome.
func (o Outcome) IsSuccess() bool {
	return o == OutcomeSuccess
}

// OutcomeFromString parses an outcome, defaulting to fatal on unknown input.
func OutcomeFromString(s string) Outcome {
	switch Outcome(s) {
	case OutcomeSuccess, OutcomeRetry, OutcomeFatal:
		return Outcome(s)
	default:
		return OutcomeFatal
	}
}

// =============================================================================
// STAGE RESULT
// =============================================================================

// Result is the output of any stage invocation.
//
// Payload carries candidate source text for producers and the healer; it is
// empty for pure validators. Data carries stage-specific structured output
// (e.g. which healing tier produced the candidate).
type Result struct {
	Outcome  Outcome        `json:"outcome"`
	Payload  string         `json:"payload,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
	Reason   string         `json:"reason,omitempty"`
}

// NewSuccess creates a successful result carrying a payload.
func NewSuccess(payload string, warnings ...string) Result {
	return Result{
		Outcome:  OutcomeSuccess,
		Payload:  payload,
		Warnings: warnings,
	}
}

// NewRetry creates a recoverable-failure result.
func NewRetry(reason string) Result {
	return Result{
		Outcome: OutcomeRetry,
		Reason:  reason,
	}
}

// NewFatal creates a fatal result. Reason must be non-empty; Validate
// enforces this for results built by hand.
func NewFatal(reason string) Result {
	if reason == "" {
		reason = "unspecified fatal stage failure"
	}
	return Result{
		Outcome: OutcomeFatal,
		Reason:  reason,
	}
}

// Validate checks cross-field consistency.
func (r *Result) Validate() error {
	switch r.Outcome {
	case OutcomeSuccess, OutcomeRetry, OutcomeFatal:
	default:
		return fmt.Errorf("invalid outcome: %s", r.Outcome)
	}
	if r.Outcome == OutcomeFatal && r.Reason == "" {
		return fmt.Errorf("reason is required when outcome is 'fatal'")
	}
	if r.Outcome == OutcomeSuccess && r.Reason != "" {
		return fmt.Errorf("reason must be empty when outcome is 'success'")
	}
	return nil
}

// =============================================================================
// LOGGING
// =============================================================================

// Logger is the logging interface stages depend on.
type Logger interface {
	Info(msg string, fields ...any)
	Debug(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
	Bind(fields ...any) Logger
}

// NopLogger discards all log output. Useful in tests.
type NopLogger struct{}

func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
func (n NopLogger) Bind(...any) Logger { return n }
