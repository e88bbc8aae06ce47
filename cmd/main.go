// CadForge Server
//
// HTTP server for the text-to-CAD orchestration core.
//
// Usage:
//
//	go run ./cmd/main.go                      # Default :8080
//	go run ./cmd/main.go -addr :9000          # Custom port
//	go run ./cmd/main.go -config config.yaml  # Config file
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cadamx/cadforge/coreengine/agents"
	"github.com/cadamx/cadforge/coreengine/config"
	"github.com/cadamx/cadforge/coreengine/healer"
	"github.com/cadamx/cadforge/coreengine/llm"
	"github.com/cadamx/cadforge/coreengine/observability"
	"github.com/cadamx/cadforge/coreengine/orchestrator"
	"github.com/cadamx/cadforge/coreengine/producer"
	"github.com/cadamx/cadforge/coreengine/sandbox"
	"github.com/cadamx/cadforge/coreengine/templates"
	"github.com/cadamx/cadforge/eventbus"
	"github.com/cadamx/cadforge/server"
)

// stdLogger implements agents.Logger using standard library log.
type stdLogger struct {
	bound []any
}

func (l *stdLogger) logf(level, msg string, fields ...any) {
	all := append(append([]any{}, l.bound...), fields...)
	log.Printf("[%s] %s %v", level, msg, all)
}

func (l *stdLogger) Debug(msg string, fields ...any) { l.logf("DEBUG", msg, fields...) }
func (l *stdLogger) Info(msg string, fields ...any)  { l.logf("INFO", msg, fields...) }
func (l *stdLogger) Warn(msg string, fields ...any)  { l.logf("WARN", msg, fields...) }
func (l *stdLogger) Error(msg string, fields ...any) { l.logf("ERROR", msg, fields...) }

func (l *stdLogger) Bind(fields ...any) agents.Logger {
	return &stdLogger{bound: append(append([]any{}, l.bound...), fields...)}
}

func main() {
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	logger := &stdLogger{}

	cfg := config.DefaultCoreConfig()
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	cfg.ApplyEnv()
	if *addr != "" {
		cfg.ListenAddr = *addr
	}

	logger.Info("cadforge_starting", "version", "1.0.0", "address", cfg.ListenAddr)

	if cfg.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracer("cadforge", cfg.OTLPEndpoint)
		if err != nil {
			log.Fatalf("Failed to init tracing: %v", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				logger.Warn("tracer_shutdown_failed", "error", err.Error())
			}
		}()
		logger.Info("tracing_initialized", "endpoint", cfg.OTLPEndpoint)
	}

	provider := llm.NewOllamaProvider(cfg.OllamaURL)
	registry := templates.NewRegistry()
	bus := eventbus.NewBus()
	defer bus.Close()

	orch := orchestrator.New(orchestrator.Deps{
		Templated:   producer.NewTemplated(registry),
		Generative:  producer.NewGenerative(provider, cfg.Models, cfg.InferenceTimeout(), logger),
		Sandbox:     sandbox.NewHTTPExecutor(cfg.RunnerURL),
		Healer:      healer.New(provider, cfg.Models.Healer, cfg.InferenceTimeout(), logger),
		Policy:      cfg.Retry,
		ExecTimeout: cfg.ExecutionTimeout(),
		Bus:         bus,
		Logger:      logger,
	})
	logger.Info("orchestrator_configured",
		"templates", len(registry.List()),
		"ollama_url", cfg.OllamaURL,
		"runner_url", cfg.RunnerURL)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.New(orch, bus, logger).Handler(),
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("cadforge_ready", "address", cfg.ListenAddr)
	fmt.Printf("\nCadForge server running on %s\n", cfg.ListenAddr)
	fmt.Println("Press Ctrl+C to stop")

	select {
	case sig := <-sigCh:
		logger.Info("shutdown_signal_received", "signal", sig.String())
	case err := <-errCh:
		log.Fatalf("Server failed: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server_shutdown_failed", "error", err.Error())
	}
	logger.Info("cadforge_stopped")
}
