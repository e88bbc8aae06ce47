package workflow

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cadamx/cadforge/coreengine/classify"
	"github.com/cadamx/cadforge/coreengine/router"
)

// Stage names used for attempt accounting.
const (
	StageProduce = "produce"
	StageHeal    = "heal"
	StageExecute = "execute"
)

// StageEvent is one entry in the workflow history.
type StageEvent struct {
	Stage   string    `json:"stage"`
	Outcome string    `json:"outcome"`
	At      time.Time `json:"at"`
}

// Context is the mutable, single-owner record threaded through one request.
//
// Exactly one orchestrator instance owns and mutates it; there are no
// concurrent writers, so no locking. The request fields (Prompt, Overrides)
// are immutable once accepted.
type Context struct {
	// Identity
	WorkflowID string             `json:"workflow_id"`
	Prompt     string             `json:"prompt"`
	Overrides  map[string]float64 `json:"overrides,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`

	// Routing (computed once, never changes mid-run)
	Route  router.Decision    `json:"route"`
	Params map[string]float64 `json:"params,omitempty"`

	// Candidate source
	Candidate       string `json:"candidate,omitempty"`
	CandidateOrigin string `json:"candidate_origin,omitempty"`

	// Bounds tracking
	StageAttempts    map[string]int `json:"stage_attempts"`
	TotalAttempts    int            `json:"total_attempts"`
	MaxStageAttempts int            `json:"max_stage_attempts"`
	MaxTotalAttempts int            `json:"max_total_attempts"`

	// Accumulated findings
	Warnings  []string          `json:"warnings,omitempty"`
	ErrorLog  []classify.Record `json:"error_log,omitempty"`
	LastError *classify.Record  `json:"last_error,omitempty"`

	// Progression
	State          State          `json:"state"`
	History        []StageEvent   `json:"history,omitempty"`
	Terminated     bool           `json:"terminated"`
	TerminalReason TerminalReason `json:"terminal_reason,omitempty"`

	// Output
	ArtifactRef string     `json:"artifact_ref,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// New creates a workflow context for an accepted request.
func New(prompt string, overrides map[string]float64, maxStageAttempts, maxTotalAttempts int) *Context {
	ov := make(map[string]float64, len(overrides))
	for k, v := range overrides {
		ov[k] = v
	}
	return &Context{
		WorkflowID:       "wf_" + uuid.New().String()[:16],
		Prompt:           prompt,
		Overrides:        ov,
		CreatedAt:        time.Now().UTC(),
		StageAttempts:    make(map[string]int),
		MaxStageAttempts: maxStageAttempts,
		MaxTotalAttempts: maxTotalAttempts,
		State:            StateAccepted,
	}
}

// Transition moves the workflow to a new state and records it.
func (c *Context) Transition(state State) {
	c.State = state
	c.History = append(c.History, StageEvent{
		Stage:   string(state),
		Outcome: "entered",
		At:      time.Now().UTC(),
	})
}

// SetCandidate installs a new candidate source. Candidates are always
// replaced whole, never mutated in place.
func (c *Context) SetCandidate(source, origin string) {
	c.Candidate = source
	c.CandidateOrigin = origin
}

// ChargeAttempt debits one unit from the global attempt budget. Every
// external-service call (producer cycle, sandbox execution, inference-tier
// heal) costs one unit.
func (c *Context) ChargeAttempt() {
	c.TotalAttempts++
}

// IncrementStageAttempt debits one unit from a per-stage budget and returns
// the new count.
func (c *Context) IncrementStageAttempt(stage string) int {
	c.StageAttempts[stage]++
	return c.StageAttempts[stage]
}

// CanContinue checks whether the workflow may issue further external calls.
// Returns false once terminated or once the global budget is spent, setting
// the terminal reason on the budget breach.
func (c *Context) CanContinue() bool {
	if c.Terminated {
		return false
	}
	if c.TotalAttempts >= c.MaxTotalAttempts {
		c.Terminate(TerminalReasonMaxTotalAttemptsExceeded)
		return false
	}
	return true
}

// StageBudgetLeft reports whether the per-stage budget allows another attempt.
func (c *Context) StageBudgetLeft(stage string) bool {
	return c.StageAttempts[stage] < c.MaxStageAttempts
}

// Terminate moves the workflow to its terminal state. The first terminal
// reason wins; later calls are ignored.
func (c *Context) Terminate(reason TerminalReason) {
	if c.Terminated {
		return
	}
	c.Terminated = true
	c.TerminalReason = reason
	now := time.Now().UTC()
	c.CompletedAt = &now
	c.Transition(StateTerminal)
}

// AddWarning appends a human-readable warning.
func (c *Context) AddWarning(w string) {
	c.Warnings = append(c.Warnings, w)
}

// RecordError appends a classified error and tracks it as the most recent.
func (c *Context) RecordError(rec classify.Record) {
	c.ErrorLog = append(c.ErrorLog, rec)
	c.LastError = &rec
}

// Result is the caller-facing outcome of one workflow.
//
// Success carries the artifact reference and accumulated warnings. Failure
// carries the final classified error, per-stage attempt counts, and the
// last candidate source for diagnostics - never raw backend error text.
type Result struct {
	WorkflowID     string           `json:"workflow_id"`
	Success        bool             `json:"success"`
	TerminalReason TerminalReason   `json:"terminal_reason"`
	ArtifactRef    string           `json:"artifact_ref,omitempty"`
	Warnings       []string         `json:"warnings,omitempty"`
	Error          *classify.Record `json:"error,omitempty"`
	ErrorSummary   string           `json:"error_summary,omitempty"`
	StageAttempts  map[string]int   `json:"stage_attempts"`
	TotalAttempts  int              `json:"total_attempts"`
	LastCandidate  string           `json:"last_candidate,omitempty"`
	Route          router.Decision  `json:"route"`
	Duration       time.Duration    `json:"duration_ms"`
}

// Result snapshots the terminal outcome. Calling it before termination is a
// programming error.
func (c *Context) Result() *Result {
	attempts := make(map[string]int, len(c.StageAttempts))
	for k, v := range c.StageAttempts {
		attempts[k] = v
	}
	res := &Result{
		WorkflowID:     c.WorkflowID,
		Success:        c.TerminalReason.IsSuccess(),
		TerminalReason: c.TerminalReason,
		ArtifactRef:    c.ArtifactRef,
		Warnings:       append([]string(nil), c.Warnings...),
		StageAttempts:  attempts,
		TotalAttempts:  c.TotalAttempts,
		Route:          c.Route,
	}
	if !res.Success {
		res.Error = c.LastError
		res.LastCandidate = c.Candidate
		if c.LastError != nil {
			res.ErrorSummary = c.LastError.Summary
		} else {
			res.ErrorSummary = fmt.Sprintf("terminated: %s", c.TerminalReason)
		}
	}
	if c.CompletedAt != nil {
		res.Duration = c.CompletedAt.Sub(c.CreatedAt)
	}
	return res
}
