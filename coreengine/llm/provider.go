// Package llm defines the inference-service contract and its adapters.
//
// The core treats every response as untrusted text: callers are responsible
// for schema validation before acting on it.
package llm

import (
	"context"
	"fmt"
)

// Request is one inference call. Prompt content is owned by the caller; the
// provider only moves it across the wire.
type Request struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Provider is the external inference-service contract. Complete blocks until
// the service responds or ctx expires; implementations must honor ctx.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// =============================================================================
// ERRORS
// =============================================================================

// UnreachableError indicates the inference service could not be contacted.
type UnreachableError struct {
	Endpoint string
	Cause    error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("inference service unreachable at %s: %v", e.Endpoint, e.Cause)
}

func (e *UnreachableError) Unwrap() error {
	return e.Cause
}

// ModelNotFoundError indicates the requested model is not loaded.
type ModelNotFoundError struct {
	Model string
	Cause error
}

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("model %q not available: %v", e.Model, e.Cause)
}

func (e *ModelNotFoundError) Unwrap() error {
	return e.Cause
}

// TimeoutError indicates the call did not complete within its deadline.
type TimeoutError struct {
	Model string
	Cause error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("inference call to %q timed out: %v", e.Model, e.Cause)
}

func (e *TimeoutError) Unwrap() error {
	return e.Cause
}
