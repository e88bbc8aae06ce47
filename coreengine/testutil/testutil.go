// Package testutil provides mock collaborators for tests.
package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cadamx/cadforge/coreengine/llm"
	"github.com/cadamx/cadforge/coreengine/sandbox"
)

// =============================================================================
// MOCK INFERENCE PROVIDER
// =============================================================================

// ProviderCall records one Complete invocation.
type ProviderCall struct {
	Model  string
	System string
	Prompt string
}

// MockProvider implements llm.Provider for tests.
//
// Responses maps a prompt substring to a canned response; Queue, when
// non-empty, takes precedence and scripts responses in order. Err fails
// every call. All invocations are recorded.
type MockProvider struct {
	mu              sync.Mutex
	Responses       map[string]string
	Queue           []string
	DefaultResponse string
	Err             error
	Delay           time.Duration
	CallCount       int
	Calls           []ProviderCall
	CompleteFunc    func(ctx context.Context, req llm.Request) (string, error)
}

// Complete implements llm.Provider.
func (m *MockProvider) Complete(ctx context.Context, req llm.Request) (string, error) {
	m.mu.Lock()
	m.CallCount++
	m.Calls = append(m.Calls, ProviderCall{Model: req.Model, System: req.System, Prompt: req.Prompt})
	fn := m.CompleteFunc
	err := m.Err
	delay := m.Delay

	var queued string
	hasQueued := false
	if len(m.Queue) > 0 {
		queued = m.Queue[0]
		m.Queue = m.Queue[1:]
		hasQueued = true
	}
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return "", err
	}
	if hasQueued {
		return queued, nil
	}
	for substr, resp := range m.Responses {
		if strings.Contains(req.Prompt, substr) {
			return resp, nil
		}
	}
	return m.DefaultResponse, nil
}

var _ llm.Provider = (*MockProvider)(nil)

// =============================================================================
// MOCK SANDBOX
// =============================================================================

// SandboxCall records one Execute invocation.
type SandboxCall struct {
	Source  string
	Timeout time.Duration
}

// MockSandbox implements sandbox.Executor for tests.
//
// Results scripts verdicts in order, repeating the last entry once drained.
// AlwaysFail overrides everything with a scripted runtime failure.
type MockSandbox struct {
	mu          sync.Mutex
	Results     []sandbox.ExecResult
	AlwaysFail  bool
	FailureText string
	Err         error
	CallCount   int
	Calls       []SandboxCall
	ExecuteFunc func(ctx context.Context, source string, timeout time.Duration) (sandbox.ExecResult, error)
}

// Execute implements sandbox.Executor.
func (m *MockSandbox) Execute(ctx context.Context, source string, timeout time.Duration) (sandbox.ExecResult, error) {
	m.mu.Lock()
	m.CallCount++
	m.Calls = append(m.Calls, SandboxCall{Source: source, Timeout: timeout})
	fn := m.ExecuteFunc
	err := m.Err

	var res sandbox.ExecResult
	switch {
	case m.AlwaysFail:
		text := m.FailureText
		if text == "" {
			text = "RuntimeError: scripted failure"
		}
		res = sandbox.ExecResult{Success: false, FailureText: text}
	case len(m.Results) > 0:
		res = m.Results[0]
		if len(m.Results) > 1 {
			m.Results = m.Results[1:]
		}
	default:
		res = sandbox.ExecResult{Success: true, ArtifactRef: "stl://mock/output.stl"}
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, source, timeout)
	}
	if err != nil {
		return sandbox.ExecResult{}, err
	}
	return res, nil
}

var _ sandbox.Executor = (*MockSandbox)(nil)
