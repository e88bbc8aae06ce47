// Package sandbox defines the execution-sandbox contract and its HTTP
// adapter.
//
// The sandbox is an external collaborator: it runs candidate source in
// isolation and reports success with an artifact reference or failure with
// diagnostic text. Each call is side-effect-isolated; nothing leaks between
// executions.
package sandbox

import (
	"context"
	"time"
)

// ExecResult is the sandbox's report for one execution.
type ExecResult struct {
	Success     bool          `json:"success"`
	ArtifactRef string        `json:"artifact_ref,omitempty"`
	FailureText string        `json:"failure_text,omitempty"`
	Duration    time.Duration `json:"duration_ms"`
}

// Executor runs candidate source text. Execute must return within timeout
// or report a timeout failure; an error return means the sandbox itself was
// unreachable, distinct from the candidate failing.
type Executor interface {
	Execute(ctx context.Context, source string, timeout time.Duration) (ExecResult, error)
}
