// Package orchestrator sequences the production pipeline for one request.
//
// The state machine runs
//
//	Routed -> Produced -> SyntaxChecked -> Executing ->
//	    (Done | Classifying -> Healing -> Executing) -> Terminal
//
// Every external-service call (generative production cycle, sandbox
// execution, inference-tier heal) debits the workflow's global attempt
// budget; every retry also debits its stage budget. Exhausting either
// forces Terminal(Failure), so every edge either advances toward Terminal
// or consumes finite budget - the machine cannot loop unboundedly.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cadamx/cadforge/coreengine/agents"
	"github.com/cadamx/cadforge/coreengine/classify"
	"github.com/cadamx/cadforge/coreengine/config"
	"github.com/cadamx/cadforge/coreengine/constraints"
	"github.com/cadamx/cadforge/coreengine/healer"
	"github.com/cadamx/cadforge/coreengine/observability"
	"github.com/cadamx/cadforge/coreengine/producer"
	"github.com/cadamx/cadforge/coreengine/router"
	"github.com/cadamx/cadforge/coreengine/sandbox"
	"github.com/cadamx/cadforge/coreengine/syntax"
	"github.com/cadamx/cadforge/coreengine/workflow"
	"github.com/cadamx/cadforge/eventbus"
)

var tracer = otel.Tracer("cadforge/orchestrator")

// SanityChecker is the optional post-execution geometry check. A nil checker
// accepts every artifact.
type SanityChecker interface {
	Check(ctx context.Context, artifactRef string) error
}

// Orchestrator drives one request at a time through the state machine.
// Instances share only read-only configuration and stateless tables, so any
// number may run concurrently without locking.
type Orchestrator struct {
	templated  producer.Producer
	generative producer.Producer
	sandbox    sandbox.Executor
	healer     *healer.Healer
	sanity     SanityChecker
	policy     config.RetryPolicy
	execTO     time.Duration
	bus        *eventbus.Bus
	logger     agents.Logger
}

// Deps wires an Orchestrator. Bus and Sanity are optional.
type Deps struct {
	Templated   producer.Producer
	Generative  producer.Producer
	Sandbox     sandbox.Executor
	Healer      *healer.Healer
	Sanity      SanityChecker
	Policy      config.RetryPolicy
	ExecTimeout time.Duration
	Bus         *eventbus.Bus
	Logger      agents.Logger
}

// New creates an Orchestrator.
func New(deps Deps) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = agents.NopLogger{}
	}
	return &Orchestrator{
		templated:  deps.Templated,
		generative: deps.Generative,
		sandbox:    deps.Sandbox,
		healer:     deps.Healer,
		sanity:     deps.Sanity,
		policy:     deps.Policy,
		execTO:     deps.ExecTimeout,
		bus:        deps.Bus,
		logger:     logger,
	}
}

// NewWorkflow mints the workflow record for one request. Creating the record
// separately from running it lets callers learn the workflow ID first, e.g.
// to subscribe for its events before any are published.
func (o *Orchestrator) NewWorkflow(prompt string, overrides map[string]float64) *workflow.Context {
	return workflow.New(prompt, overrides, o.policy.MaxAttemptsPerStage, o.policy.MaxTotalAttempts)
}

// Run processes one request to its terminal state and returns the
// caller-facing result. The context cancels the run at the next state
// boundary; external calls already in flight complete or time out first.
func (o *Orchestrator) Run(ctx context.Context, prompt string, overrides map[string]float64) *workflow.Result {
	return o.RunWorkflow(ctx, o.NewWorkflow(prompt, overrides))
}

// RunWorkflow drives a freshly minted workflow record to its terminal state.
func (o *Orchestrator) RunWorkflow(ctx context.Context, wf *workflow.Context) *workflow.Result {
	logger := o.logger.Bind("workflow_id", wf.WorkflowID)

	ctx, span := tracer.Start(ctx, "workflow.run",
		trace.WithAttributes(attribute.String("workflow.id", wf.WorkflowID)))
	defer span.End()

	start := time.Now()
	logger.Info("workflow_started", "prompt_len", len(wf.Prompt))
	o.publish(wf, eventbus.TypeStatus, string(workflow.StateAccepted), "request accepted")

	o.run(ctx, wf, logger)

	res := wf.Result()
	span.SetAttributes(
		attribute.String("workflow.terminal_reason", string(res.TerminalReason)),
		attribute.Int("workflow.total_attempts", res.TotalAttempts),
	)
	observability.RecordWorkflowExecution(
		string(wf.Route.Kind), string(res.TerminalReason),
		res.TotalAttempts, int(time.Since(start).Milliseconds()))

	if res.Success {
		logger.Info("workflow_completed",
			"artifact_ref", res.ArtifactRef,
			"total_attempts", res.TotalAttempts)
		evt := eventbus.NewEvent(wf.WorkflowID, eventbus.TypeComplete, string(workflow.StateDone), "workflow completed")
		evt.Payload = map[string]any{"artifact_ref": res.ArtifactRef, "warnings": res.Warnings}
		o.emit(evt)
	} else {
		logger.Warn("workflow_failed",
			"terminal_reason", string(res.TerminalReason),
			"total_attempts", res.TotalAttempts,
			"error_summary", res.ErrorSummary)
		evt := eventbus.NewEvent(wf.WorkflowID, eventbus.TypeError, string(workflow.StateTerminal), res.ErrorSummary)
		evt.Payload = map[string]any{"terminal_reason": string(res.TerminalReason)}
		o.emit(evt)
	}
	return res
}

// run walks the state machine. Terminal state is reached exactly once, via
// wf.Terminate.
func (o *Orchestrator) run(ctx context.Context, wf *workflow.Context, logger agents.Logger) {
	// --- Routed ---
	if o.cancelled(ctx, wf) {
		return
	}
	wf.Route = router.Route(wf.Prompt)
	wf.Params = router.ExtractParams(wf.Route.TemplateID, wf.Prompt, wf.Overrides)
	wf.Transition(workflow.StateRouted)
	logger.Info("request_routed",
		"kind", string(wf.Route.Kind),
		"template_id", wf.Route.TemplateID,
		"signals", len(wf.Route.Signals))
	o.publish(wf, eventbus.TypeStatus, string(workflow.StateRouted),
		fmt.Sprintf("routed to %s path", wf.Route.Kind))

	// --- Constraint gate (templated path only) ---
	if wf.Route.Kind == router.KindTemplated {
		rep := constraints.Check(wf.Route.TemplateID, wf.Params)
		for _, w := range rep.Warnings {
			wf.AddWarning(w)
		}
		if rep.Status == constraints.StatusFail {
			for _, v := range rep.Violations {
				wf.AddWarning(v)
			}
			logger.Warn("constraints_failed", "violations", len(rep.Violations))
			wf.Terminate(workflow.TerminalReasonConstraintViolation)
			return
		}
	}

	// --- Produced ---
	if !o.produce(ctx, wf, logger) {
		return
	}

	// --- SyntaxChecked (failure heals directly, skipping execution) ---
	if !o.syntaxCheck(ctx, wf, logger) {
		return
	}

	// --- Executing / Classifying / Healing ---
	o.executeLoop(ctx, wf, logger)
}

// produce runs the routed producer with producer-level retries. A Fatal
// attempt regenerates from scratch until the stage or global budget runs
// out.
func (o *Orchestrator) produce(ctx context.Context, wf *workflow.Context, logger agents.Logger) bool {
	prod := o.templated
	if wf.Route.Kind == router.KindGenerative {
		prod = o.generative
	}
	bo := o.policy.NewBackOff()

	for {
		if o.cancelled(ctx, wf) {
			return false
		}
		if !wf.StageBudgetLeft(workflow.StageProduce) {
			wf.Terminate(workflow.TerminalReasonProducerExhausted)
			return false
		}
		// Generative production is an external-service cycle; templated
		// substitution is local and free.
		if wf.Route.Kind == router.KindGenerative {
			if !wf.CanContinue() {
				return false
			}
			wf.ChargeAttempt()
		}
		attempt := wf.IncrementStageAttempt(workflow.StageProduce)

		stageStart := time.Now()
		res := o.runStage(ctx, "produce", func(c context.Context) agents.Result {
			return prod.Produce(c, wf)
		})
		observability.RecordStageExecution("produce", string(res.Outcome), int(time.Since(stageStart).Milliseconds()))

		if res.Outcome.IsSuccess() {
			wf.SetCandidate(res.Payload, prod.Name())
			for _, w := range res.Warnings {
				wf.AddWarning(w)
			}
			wf.Transition(workflow.StateProduced)
			logger.Info("candidate_produced", "producer", prod.Name(), "attempt", attempt)
			evt := eventbus.NewEvent(wf.WorkflowID, eventbus.TypeCode, string(workflow.StateProduced), "candidate produced")
			evt.Payload = map[string]any{"source": res.Payload, "origin": prod.Name()}
			o.emit(evt)
			return true
		}

		logger.Warn("producer_attempt_failed",
			"producer", prod.Name(),
			"attempt", attempt,
			"reason", res.Reason)

		// Templated production failing means the route itself is broken;
		// retrying the same substitution cannot help.
		if wf.Route.Kind == router.KindTemplated {
			wf.RecordError(classify.Classify(res.Reason))
			wf.Terminate(workflow.TerminalReasonProducerExhausted)
			return false
		}

		if !o.sleep(ctx, wf, bo.NextBackOff()) {
			return false
		}
	}
}

// syntaxCheck statically validates the candidate, healing in place of
// execution when it fails.
func (o *Orchestrator) syntaxCheck(ctx context.Context, wf *workflow.Context, logger agents.Logger) bool {
	for {
		if o.cancelled(ctx, wf) {
			return false
		}

		stageStart := time.Now()
		res := syntax.Validate(wf.Candidate)
		observability.RecordStageExecution("syntax", string(res.Outcome), int(time.Since(stageStart).Milliseconds()))

		if res.Outcome.IsSuccess() {
			wf.Transition(workflow.StateSyntaxChecked)
			logger.Debug("syntax_check_passed")
			return true
		}

		logger.Warn("syntax_check_failed", "reason", res.Reason)
		rec := classify.Classify(res.Reason)
		wf.RecordError(rec)
		observability.RecordClassifiedError(string(rec.Category), string(rec.Severity))

		if !o.heal(ctx, wf, rec, logger) {
			return false
		}
	}
}

// executeLoop hands the candidate to the sandbox and drives the
// classify/heal/re-execute cycle on failure.
func (o *Orchestrator) executeLoop(ctx context.Context, wf *workflow.Context, logger agents.Logger) {
	bo := o.policy.NewBackOff()

	for {
		if o.cancelled(ctx, wf) {
			return
		}
		if !wf.CanContinue() {
			return
		}
		if !wf.StageBudgetLeft(workflow.StageExecute) {
			wf.Terminate(workflow.TerminalReasonExecuteExhausted)
			return
		}

		wf.ChargeAttempt()
		attempt := wf.IncrementStageAttempt(workflow.StageExecute)
		wf.Transition(workflow.StateExecuting)
		o.publish(wf, eventbus.TypeStatus, string(workflow.StateExecuting),
			fmt.Sprintf("executing candidate (attempt %d)", attempt))

		stageStart := time.Now()
		execRes, err := o.sandbox.Execute(ctx, wf.Candidate, o.execTO)
		durationMS := int(time.Since(stageStart).Milliseconds())

		var failureText string
		switch {
		case err != nil:
			// Sandbox transport failure: retryable, but distinct from a
			// candidate failure.
			failureText = fmt.Sprintf("sandbox unavailable: %v", err)
			observability.RecordStageExecution("execute", string(agents.OutcomeRetry), durationMS)
		case execRes.Success:
			observability.RecordStageExecution("execute", string(agents.OutcomeSuccess), durationMS)
			if serr := o.sanityCheck(ctx, execRes.ArtifactRef); serr != nil {
				failureText = fmt.Sprintf("geometry check failed: %v", serr)
				logger.Warn("sanity_check_failed", "artifact_ref", execRes.ArtifactRef, "error", serr.Error())
			} else {
				wf.ArtifactRef = execRes.ArtifactRef
				wf.Transition(workflow.StateDone)
				logger.Info("execution_succeeded", "attempt", attempt, "artifact_ref", execRes.ArtifactRef)
				wf.Terminate(workflow.TerminalReasonCompletedSuccessfully)
				return
			}
		default:
			failureText = execRes.FailureText
			observability.RecordStageExecution("execute", string(agents.OutcomeRetry), durationMS)
		}

		// --- Classifying ---
		wf.Transition(workflow.StateClassifying)
		rec := classify.Classify(failureText)
		wf.RecordError(rec)
		observability.RecordClassifiedError(string(rec.Category), string(rec.Severity))
		logger.Warn("execution_failed",
			"attempt", attempt,
			"category", string(rec.Category),
			"severity", string(rec.Severity),
			"retryable", rec.Retryable,
			"confident", rec.Confident)

		// Non-retryable conditions bypass healing entirely; a rewrite
		// cannot fix them.
		if rec.IsCritical() {
			wf.Terminate(workflow.TerminalReasonNonRetryableError)
			return
		}

		if !o.heal(ctx, wf, rec, logger) {
			return
		}
		if !o.sleep(ctx, wf, bo.NextBackOff()) {
			return
		}
	}
}

// heal drives healing cycles until one yields a new candidate or the heal
// budget is spent. Returns false once the workflow is terminal.
func (o *Orchestrator) heal(ctx context.Context, wf *workflow.Context, rec classify.Record, logger agents.Logger) bool {
	if o.healer == nil {
		wf.Terminate(workflow.TerminalReasonHealExhausted)
		return false
	}
	for {
		if o.cancelled(ctx, wf) {
			return false
		}
		if !wf.StageBudgetLeft(workflow.StageHeal) {
			wf.Terminate(workflow.TerminalReasonHealExhausted)
			return false
		}
		if !wf.CanContinue() {
			return false
		}
		attempt := wf.IncrementStageAttempt(workflow.StageHeal)
		wf.Transition(workflow.StateHealing)
		o.publish(wf, eventbus.TypeStatus, string(workflow.StateHealing),
			fmt.Sprintf("repairing candidate (attempt %d)", attempt))

		stageStart := time.Now()
		res := o.healer.Heal(ctx, wf.Candidate, rec)
		observability.RecordStageExecution("heal", string(res.Outcome), int(time.Since(stageStart).Milliseconds()))

		tier, _ := res.Data["tier"].(string)
		if tier == healer.TierInference {
			// Only the inference tier consumed an external call.
			wf.ChargeAttempt()
		}

		if res.Outcome.IsSuccess() {
			wf.SetCandidate(res.Payload, "healer_"+tier)
			for _, w := range res.Warnings {
				wf.AddWarning(w)
			}
			logger.Info("candidate_healed", "attempt", attempt, "tier", tier)
			evt := eventbus.NewEvent(wf.WorkflowID, eventbus.TypeCode, string(workflow.StateHealing), "candidate repaired")
			evt.Payload = map[string]any{"source": res.Payload, "origin": "healer_" + tier}
			o.emit(evt)
			return true
		}

		logger.Warn("heal_cycle_failed", "attempt", attempt, "reason", res.Reason)

		// A heal cycle that cannot even call out will never progress;
		// spending the rest of the budget on identical cycles is pointless.
		if tier == "" && o.healerDisabled() {
			wf.Terminate(workflow.TerminalReasonHealExhausted)
			return false
		}
	}
}

// healerDisabled reports whether the inference tier is unavailable, leaving
// only deterministic rewrites.
func (o *Orchestrator) healerDisabled() bool {
	return o.healer == nil || !o.healer.HasInferenceTier()
}

// runStage wraps one stage call in a span.
func (o *Orchestrator) runStage(ctx context.Context, name string, fn func(context.Context) agents.Result) agents.Result {
	ctx, span := tracer.Start(ctx, "stage."+name)
	defer span.End()
	res := fn(ctx)
	span.SetAttributes(attribute.String("stage.outcome", string(res.Outcome)))
	return res
}

// sanityCheck runs the optional post-execution geometry check.
func (o *Orchestrator) sanityCheck(ctx context.Context, artifactRef string) error {
	if o.sanity == nil {
		return nil
	}
	return o.sanity.Check(ctx, artifactRef)
}

// cancelled checks for caller cancellation at a state boundary.
func (o *Orchestrator) cancelled(ctx context.Context, wf *workflow.Context) bool {
	select {
	case <-ctx.Done():
		wf.Terminate(workflow.TerminalReasonCancelled)
		return true
	default:
		return false
	}
}

// sleep waits out a backoff interval, aborting on cancellation. A Stop
// signal from the schedule means the budget should decide, so it is treated
// as no delay.
func (o *Orchestrator) sleep(ctx context.Context, wf *workflow.Context, d time.Duration) bool {
	if d == backoff.Stop || d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		wf.Terminate(workflow.TerminalReasonCancelled)
		return false
	case <-timer.C:
		return true
	}
}

// publish emits a plain status event when a bus is attached.
func (o *Orchestrator) publish(wf *workflow.Context, typ eventbus.Type, stage, message string) {
	if o.bus == nil {
		return
	}
	o.bus.Publish(eventbus.NewEvent(wf.WorkflowID, typ, stage, message))
}

// emit publishes a prepared event when a bus is attached.
func (o *Orchestrator) emit(evt eventbus.Event) {
	if o.bus == nil {
		return
	}
	o.bus.Publish(evt)
}
