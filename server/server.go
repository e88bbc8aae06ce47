// Package server exposes the generation pipeline over HTTP.
//
// POST /api/generate streams workflow progress as server-sent events; the
// final event carries the terminal outcome. GET /healthz and GET /metrics
// serve liveness and Prometheus scrapes.
package server

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cadamx/cadforge/coreengine/agents"
	"github.com/cadamx/cadforge/coreengine/orchestrator"
	"github.com/cadamx/cadforge/coreengine/workflow"
	"github.com/cadamx/cadforge/eventbus"
)

// Server routes HTTP traffic to the orchestration core.
type Server struct {
	orch    *orchestrator.Orchestrator
	bus     *eventbus.Bus
	limiter *limiter
	logger  agents.Logger
	mux     *http.ServeMux
}

// New creates a Server over an orchestrator and its event bus.
func New(orch *orchestrator.Orchestrator, bus *eventbus.Bus, logger agents.Logger) *Server {
	if logger == nil {
		logger = agents.NopLogger{}
	}
	s := &Server{
		orch:    orch,
		bus:     bus,
		limiter: newLimiter(30),
		logger:  logger,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("/api/generate", s.handleGenerate)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.Handler())
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

type generateRequest struct {
	Prompt     string             `json:"prompt"`
	Parameters map[string]float64 `json:"parameters,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleGenerate runs one workflow and streams its progress. The stream
// stays open until the workflow reaches a terminal event or the client
// disconnects; disconnection cancels the workflow at its next state
// boundary.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.limiter.allow(clientKey(r)) {
		s.limiter.sweep(10 * time.Minute)
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.Prompt == "" {
		http.Error(w, "prompt is required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Mint the workflow before running it so the subscription is keyed to
	// this request's ID; concurrent requests never see each other's events.
	wf := s.orch.NewWorkflow(req.Prompt, req.Parameters)
	events, cancelSub := s.bus.Subscribe(wf.WorkflowID, 64)
	defer cancelSub()

	ctx := r.Context()
	resultCh := make(chan *workflow.Result, 1)
	go func() {
		resultCh <- s.orch.RunWorkflow(ctx, wf)
	}()

	s.logger.Info("generate_request_started",
		"workflow_id", wf.WorkflowID,
		"remote", r.RemoteAddr,
		"prompt_len", len(req.Prompt))

	done := false
	for !done {
		select {
		case <-ctx.Done():
			done = true
		case evt, open := <-events:
			if !open {
				done = true
				break
			}
			s.writeEvent(w, flusher, evt)
			if evt.IsTerminal() {
				done = true
			}
		}
	}

	// Deliver the final result record even when the terminal event was
	// dropped by a slow stream.
	res := <-resultCh
	payload, _ := json.Marshal(map[string]any{"type": "result", "result": res})
	fmt.Fprintf(w, "data: %s\n\n", payload)
	flusher.Flush()
	s.logger.Info("generate_request_finished",
		"workflow_id", res.WorkflowID,
		"terminal_reason", string(res.TerminalReason))
}

func (s *Server) writeEvent(w http.ResponseWriter, flusher http.Flusher, evt eventbus.Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		s.logger.Error("event_encode_failed", "error", err.Error())
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
	flusher.Flush()
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
