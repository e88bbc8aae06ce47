// Package producer turns a routed request into candidate source text.
//
// Two independent implementations of one contract: a templated variant
// (deterministic parameter substitution) and a generative variant (three
// sequential inference stages). The orchestrator owns retries; producers
// report a single attempt's outcome.
package producer

import (
	"context"
	"fmt"

	"github.com/cadamx/cadforge/coreengine/agents"
	"github.com/cadamx/cadforge/coreengine/templates"
	"github.com/cadamx/cadforge/coreengine/workflow"
)

// Producer is the stage contract shared by both variants.
type Producer interface {
	// Produce yields one candidate attempt. Success carries source text in
	// Payload; Fatal means this attempt is unusable and the orchestrator
	// may regenerate from scratch.
	Produce(ctx context.Context, wf *workflow.Context) agents.Result

	// Name identifies the variant in logs and metrics.
	Name() string
}

// =============================================================================
// TEMPLATED PRODUCER
// =============================================================================

// Templated substitutes parameters into a vetted recipe. It cannot fail for
// syntactic reasons, only for a missing recipe or parameter, both of which
// indicate a routing bug rather than a recoverable condition.
type Templated struct {
	registry *templates.Registry
}

// NewTemplated creates the templated producer over a registry.
func NewTemplated(registry *templates.Registry) *Templated {
	return &Templated{registry: registry}
}

func (t *Templated) Name() string { return "templated" }

// Produce renders the routed recipe with the workflow's parameter set.
func (t *Templated) Produce(_ context.Context, wf *workflow.Context) agents.Result {
	source, err := t.registry.Render(wf.Route.TemplateID, wf.Params)
	if err != nil {
		return agents.NewFatal(fmt.Sprintf("template rendering failed: %v", err))
	}
	return agents.NewSuccess(source)
}
