package llm

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/cadamx/cadforge/coreengine/observability"
)

// OllamaProvider implements Provider against a local Ollama runtime.
type OllamaProvider struct {
	client  *api.Client
	hostURL string
}

// NewOllamaProvider creates a provider for the given host URL
// (e.g. "http://localhost:11434").
func NewOllamaProvider(hostURL string) *OllamaProvider {
	parsedURL, err := url.Parse(hostURL)
	if err != nil {
		parsedURL, _ = url.Parse("http://localhost:11434")
	}
	return &OllamaProvider{
		client:  api.NewClient(parsedURL, http.DefaultClient),
		hostURL: hostURL,
	}
}

// Complete issues one non-streaming chat call.
func (p *OllamaProvider) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]api.Message, 0, 2)
	if req.System != "" {
		messages = append(messages, api.Message{Role: "system", Content: req.System})
	}
	messages = append(messages, api.Message{Role: "user", Content: req.Prompt})

	stream := false
	chatReq := &api.ChatRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": req.Temperature,
		},
	}
	if req.MaxTokens > 0 {
		chatReq.Options["num_predict"] = req.MaxTokens
	}

	start := time.Now()
	var content strings.Builder
	err := p.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	durationMS := int(time.Since(start).Milliseconds())

	if err != nil {
		observability.RecordInferenceCall(req.Model, "error", durationMS)
		return "", p.classifyError(req.Model, err)
	}

	observability.RecordInferenceCall(req.Model, "success", durationMS)
	return content.String(), nil
}

// classifyError maps transport errors onto the package's typed errors.
func (p *OllamaProvider) classifyError(model string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Model: model, Cause: err}
	}

	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "connection refused"):
		return &UnreachableError{Endpoint: p.hostURL, Cause: err}
	case strings.Contains(errStr, "model") && strings.Contains(errStr, "not found"):
		return &ModelNotFoundError{Model: model, Cause: err}
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded"):
		return &TimeoutError{Model: model, Cause: err}
	default:
		return err
	}
}
