// Package healer repairs failing candidate source.
//
// Two tiers, tried in order, first success wins: a deterministic rewrite
// table for known failure signatures, then a single inference-assisted
// rewrite. Healing never mutates the original candidate; it returns a new
// one for the orchestrator to re-submit.
package healer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cadamx/cadforge/coreengine/agents"
	"github.com/cadamx/cadforge/coreengine/classify"
	"github.com/cadamx/cadforge/coreengine/llm"
	"github.com/cadamx/cadforge/coreengine/observability"
	"github.com/cadamx/cadforge/coreengine/producer"
	"github.com/cadamx/cadforge/coreengine/syntax"
)

// Tier labels reported through Result.Data["tier"]. The orchestrator debits
// the global budget only for the inference tier.
const (
	TierDeterministic = "deterministic"
	TierInference     = "inference"
)

// Construct hints handed to the inference tier: operations the execution
// kernel rejects and their canonical replacements.
var constructHints = []string{
	"torus() does not exist; revolve a circle instead",
	"regularPolygon() does not exist; use polygon(n, diameter)",
	"revolve() takes positional arguments, not angle=",
	"loft() takes no arguments",
	"cut() requires a solid argument; use cutThruAll() for through-cuts",
	"the final shape must be assigned to a variable named result",
}

// Healer produces corrected candidates from classified failures.
type Healer struct {
	provider llm.Provider
	model    string
	timeout  time.Duration
	logger   agents.Logger
}

// New creates a Healer. A nil provider disables the inference tier, leaving
// only deterministic rewrites.
func New(provider llm.Provider, model string, timeout time.Duration, logger agents.Logger) *Healer {
	if logger == nil {
		logger = agents.NopLogger{}
	}
	return &Healer{
		provider: provider,
		model:    model,
		timeout:  timeout,
		logger:   logger,
	}
}

// HasInferenceTier reports whether tier-2 healing is available.
func (h *Healer) HasInferenceTier() bool {
	return h.provider != nil
}

// Heal attempts to repair source that failed with the given record.
// Success carries the new candidate and the tier that produced it; Fatal
// means this heal cycle is spent.
func (h *Healer) Heal(ctx context.Context, source string, rec classify.Record) agents.Result {
	if fixed, note, ok := h.applyDeterministic(source, rec); ok {
		observability.RecordHeal(TierDeterministic, "success")
		h.logger.Info("deterministic_fix_applied", "note", note, "category", string(rec.Category))
		res := agents.NewSuccess(fixed)
		res.Data = map[string]any{"tier": TierDeterministic, "note": note}
		return res
	}

	return h.healWithInference(ctx, source, rec)
}

// applyDeterministic walks the fix table. A fix applies only when its
// signature occurs in the raw failure text and the rewrite actually changes
// the source.
func (h *Healer) applyDeterministic(source string, rec classify.Record) (string, string, bool) {
	lower := strings.ToLower(rec.Raw)
	for _, f := range deterministicFixes {
		if !strings.Contains(lower, f.signature) {
			continue
		}
		fixed := f.apply(source)
		if fixed != source {
			return fixed, f.note, true
		}
	}
	return "", "", false
}

// healWithInference issues one external rewrite call. The response is
// accepted only if it re-passes the syntax validator.
func (h *Healer) healWithInference(ctx context.Context, source string, rec classify.Record) agents.Result {
	if h.provider == nil {
		observability.RecordHeal(TierInference, "unavailable")
		return agents.NewFatal("no deterministic fix matched and inference healing is disabled")
	}

	callCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	raw, err := h.provider.Complete(callCtx, llm.Request{
		Model:  h.model,
		System: healerSystemPrompt,
		Prompt: fmt.Sprintf(
			"The script below failed with a %s error:\n%s\n\nKnown pitfalls:\n- %s\n\nScript:\n```python\n%s\n```\n\nReturn the corrected script in a single fenced python code block.",
			rec.Category, rec.Raw, strings.Join(constructHints, "\n- "), source),
		Temperature: 0.2,
		MaxTokens:   2048,
	})
	if err != nil {
		observability.RecordHeal(TierInference, "error")
		res := agents.NewFatal(fmt.Sprintf("inference heal call failed: %v", err))
		res.Data = map[string]any{"tier": TierInference}
		return res
	}

	candidate := producer.FinalizeSource(producer.ExtractCode(raw))
	if check := syntax.Validate(candidate); !check.Outcome.IsSuccess() {
		observability.RecordHeal(TierInference, "rejected")
		res := agents.NewFatal(fmt.Sprintf("healed candidate rejected: %s", check.Reason))
		res.Data = map[string]any{"tier": TierInference}
		return res
	}

	observability.RecordHeal(TierInference, "success")
	res := agents.NewSuccess(candidate)
	res.Data = map[string]any{"tier": TierInference}
	return res
}

const healerSystemPrompt = `You are a CadQuery repair assistant. Fix the failing script with the smallest possible change.
Keep the overall structure, keep the result variable, keep the export call.`
