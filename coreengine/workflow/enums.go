// Package workflow provides the per-request workflow record and its enums.
//
// Stage progression is string-based; the state machine lives in the
// orchestrator package, the record here only tracks where a request is and
// why it stopped.
package workflow

// State identifies where the state machine currently is.
type State string

const (
	StateAccepted      State = "accepted"
	StateRouted        State = "routed"
	StateProduced      State = "produced"
	StateSyntaxChecked State = "syntax_checked"
	StateExecuting     State = "executing"
	StateClassifying   State = "classifying"
	StateHealing       State = "healing"
	StateDone          State = "done"
	StateTerminal      State = "terminal"
)

// TerminalReason represents why processing terminated - exactly one per request.
type TerminalReason string

const (
	// TerminalReasonCompletedSuccessfully indicates an artifact was produced.
	TerminalReasonCompletedSuccessfully TerminalReason = "completed_successfully"
	// TerminalReasonConstraintViolation indicates parameters failed the
	// manufacturability check before production.
	TerminalReasonConstraintViolation TerminalReason = "constraint_violation"
	// TerminalReasonProducerExhausted indicates the producer stage budget ran out.
	TerminalReasonProducerExhausted TerminalReason = "producer_attempts_exhausted"
	// TerminalReasonHealExhausted indicates the heal stage budget ran out.
	TerminalReasonHealExhausted TerminalReason = "heal_attempts_exhausted"
	// TerminalReasonExecuteExhausted indicates the execute stage budget ran out.
	TerminalReasonExecuteExhausted TerminalReason = "execute_attempts_exhausted"
	// TerminalReasonNonRetryableError indicates a classified error that a
	// rewrite cannot fix.
	TerminalReasonNonRetryableError TerminalReason = "non_retryable_error"
	// TerminalReasonMaxTotalAttemptsExceeded indicates the global budget ran out.
	TerminalReasonMaxTotalAttemptsExceeded TerminalReason = "max_total_attempts_exceeded"
	// TerminalReasonCancelled indicates the caller cancelled the request.
	TerminalReasonCancelled TerminalReason = "cancelled"
)

// IsSuccess reports whether the reason is the successful terminal.
func (t TerminalReason) IsSuccess() bool {
	return t == TerminalReasonCompletedSuccessfully
}

// IsBudgetExhaustion distinguishes budget exhaustion from hard failures.
// Budget exhaustion is a first-class terminal reason of its own.
func (t TerminalReason) IsBudgetExhaustion() bool {
	switch t {
	case TerminalReasonProducerExhausted,
		TerminalReasonHealExhausted,
		TerminalReasonExecuteExhausted,
		TerminalReasonMaxTotalAttemptsExceeded:
		return true
	default:
		return false
	}
}
