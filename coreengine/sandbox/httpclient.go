package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cadamx/cadforge/coreengine/observability"
)

// HTTPExecutor talks to an external runner service implementing the
// execution contract over HTTP.
type HTTPExecutor struct {
	baseURL string
	client  *http.Client
}

// NewHTTPExecutor creates an executor for the given runner base URL.
func NewHTTPExecutor(baseURL string) *HTTPExecutor {
	return &HTTPExecutor{
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

type executeRequest struct {
	Source    string `json:"source"`
	TimeoutMS int64  `json:"timeout_ms"`
}

type executeResponse struct {
	Success     bool   `json:"success"`
	ArtifactRef string `json:"artifact_ref"`
	FailureText string `json:"failure_text"`
}

// Execute posts the candidate to the runner and decodes its verdict.
// A deadline overrun is reported as a timeout failure in the result, not as
// a transport error, so the classifier sees it as a retryable condition.
func (e *HTTPExecutor) Execute(ctx context.Context, source string, timeout time.Duration) (ExecResult, error) {
	body, err := json.Marshal(executeRequest{
		Source:    source,
		TimeoutMS: timeout.Milliseconds(),
	})
	if err != nil {
		return ExecResult{}, fmt.Errorf("encode execute request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, e.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return ExecResult{}, fmt.Errorf("build execute request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := e.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded {
			observability.RecordSandboxExecution("failure")
			return ExecResult{
				Success:     false,
				FailureText: fmt.Sprintf("execution timed out after %s", timeout),
				Duration:    elapsed,
			}, nil
		}
		observability.RecordSandboxExecution("error")
		return ExecResult{}, fmt.Errorf("runner unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		observability.RecordSandboxExecution("error")
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return ExecResult{}, fmt.Errorf("runner returned %d: %s", resp.StatusCode, payload)
	}

	var decoded executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		observability.RecordSandboxExecution("error")
		return ExecResult{}, fmt.Errorf("decode runner response: %w", err)
	}

	status := "failure"
	if decoded.Success {
		status = "success"
	}
	observability.RecordSandboxExecution(status)

	return ExecResult{
		Success:     decoded.Success,
		ArtifactRef: decoded.ArtifactRef,
		FailureText: decoded.FailureText,
		Duration:    elapsed,
	}, nil
}
