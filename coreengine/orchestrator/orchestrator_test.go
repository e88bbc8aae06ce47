package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/cadamx/cadforge/coreengine/classify"
	"github.com/cadamx/cadforge/coreengine/config"
	"github.com/cadamx/cadforge/coreengine/healer"
	"github.com/cadamx/cadforge/coreengine/producer"
	"github.com/cadamx/cadforge/coreengine/router"
	"github.com/cadamx/cadforge/coreengine/sandbox"
	"github.com/cadamx/cadforge/coreengine/templates"
	"github.com/cadamx/cadforge/coreengine/testutil"
	"github.com/cadamx/cadforge/coreengine/workflow"
	"github.com/cadamx/cadforge/eventbus"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testPolicy() config.RetryPolicy {
	return config.RetryPolicy{
		MaxAttemptsPerStage: 3,
		MaxTotalAttempts:    10,
		BackoffInitialMS:    1,
		BackoffMaxMS:        2,
		BackoffMultiplier:   1.0,
	}
}

const analysisJSON = `{"description": "a mounting bracket", "primitives_needed": ["box"], "operations_sequence": ["extrude"], "complexity": "low"}`

const planJSON = `{"steps": ["sketch the base", "extrude to height"], "variables": {"width": 40}}`

const synthResponse = "```python\nimport cadquery as cq\n\nwidth = 40\nresult = cq.Workplane(\"XY\").box(width, width, 10)\n\ncq.exporters.export(result, \"output.stl\")\n```"

// newOrchestrator wires an orchestrator over mocks. The returned provider
// backs both the generative producer and the healer's inference tier.
func newOrchestrator(provider *testutil.MockProvider, sb *testutil.MockSandbox, bus *eventbus.Bus) *Orchestrator {
	return New(Deps{
		Templated:   producer.NewTemplated(templates.NewRegistry()),
		Generative:  producer.NewGenerative(provider, config.DefaultModelRoles(), time.Second, nil),
		Sandbox:     sb,
		Healer:      healer.New(provider, "test-model", time.Second, nil),
		Policy:      testPolicy(),
		ExecTimeout: time.Second,
		Bus:         bus,
	})
}

func TestRunTemplatedHappyPath(t *testing.T) {
	provider := &testutil.MockProvider{}
	sb := &testutil.MockSandbox{}
	o := newOrchestrator(provider, sb, nil)

	res := o.Run(context.Background(), "create a cube of size 50", nil)

	require.True(t, res.Success, res.ErrorSummary)
	assert.Equal(t, workflow.TerminalReasonCompletedSuccessfully, res.TerminalReason)
	assert.Equal(t, router.KindTemplated, res.Route.Kind)
	assert.NotEmpty(t, res.ArtifactRef)
	assert.Equal(t, 1, res.TotalAttempts, "one sandbox execution, nothing else billable")
	assert.Equal(t, 1, res.StageAttempts[workflow.StageProduce])
	assert.Equal(t, 1, res.StageAttempts[workflow.StageExecute])
	assert.Zero(t, res.StageAttempts[workflow.StageHeal])
	assert.Zero(t, provider.CallCount, "templated path makes no inference calls")
	assert.Equal(t, 1, sb.CallCount)
}

func TestRunConstraintViolationStopsBeforeProduction(t *testing.T) {
	provider := &testutil.MockProvider{}
	sb := &testutil.MockSandbox{}
	o := newOrchestrator(provider, sb, nil)

	res := o.Run(context.Background(), "create a cube of size 50", map[string]float64{"size": 600})

	require.False(t, res.Success)
	assert.Equal(t, workflow.TerminalReasonConstraintViolation, res.TerminalReason)
	assert.NotEmpty(t, res.Warnings, "violations are reported to the caller")
	assert.Zero(t, res.TotalAttempts)
	assert.Zero(t, sb.CallCount, "no candidate may be produced or executed")
	assert.Zero(t, provider.CallCount)
}

func TestRunPersistentExecutionFailureTerminates(t *testing.T) {
	provider := &testutil.MockProvider{DefaultResponse: synthResponse}
	sb := &testutil.MockSandbox{AlwaysFail: true, FailureText: "RuntimeError: scripted failure"}
	o := newOrchestrator(provider, sb, nil)

	res := o.Run(context.Background(), "create a cube of size 50", nil)

	require.False(t, res.Success)
	assert.Equal(t, workflow.TerminalReasonExecuteExhausted, res.TerminalReason)
	assert.True(t, res.TerminalReason.IsBudgetExhaustion())
	assert.Equal(t, 3, res.StageAttempts[workflow.StageExecute])
	assert.Equal(t, 3, res.StageAttempts[workflow.StageHeal])
	assert.Equal(t, 6, res.TotalAttempts, "3 executions + 3 inference heals")
	assert.LessOrEqual(t, res.TotalAttempts, testPolicy().MaxTotalAttempts)
	require.NotNil(t, res.Error)
	assert.NotEmpty(t, res.LastCandidate)
}

func TestRunNonRetryableErrorBypassesHealing(t *testing.T) {
	provider := &testutil.MockProvider{}
	sb := &testutil.MockSandbox{AlwaysFail: true, FailureText: "MemoryError"}
	o := newOrchestrator(provider, sb, nil)

	res := o.Run(context.Background(), "create a cube of size 50", nil)

	require.False(t, res.Success)
	assert.Equal(t, workflow.TerminalReasonNonRetryableError, res.TerminalReason)
	assert.Zero(t, res.StageAttempts[workflow.StageHeal], "critical errors never reach the healer")
	assert.Zero(t, provider.CallCount)
	assert.Equal(t, 1, sb.CallCount)
	assert.Equal(t, 1, res.TotalAttempts)
	require.NotNil(t, res.Error)
	assert.Equal(t, classify.CategoryMemory, res.Error.Category)
}

func TestRunDeterministicHealThenSuccess(t *testing.T) {
	hexResponse := "```python\nimport cadquery as cq\n\nresult = cq.Workplane(\"XY\").regularPolygon(6, 20).extrude(5)\n\ncq.exporters.export(result, \"output.stl\")\n```"
	provider := &testutil.MockProvider{Responses: map[string]string{
		"Design request:":     analysisJSON,
		"Design description:": planJSON,
		"Goal:":               hexResponse,
	}}
	sb := &testutil.MockSandbox{Results: []sandbox.ExecResult{
		{Success: false, FailureText: "AttributeError: 'Workplane' object has no attribute 'regularPolygon'"},
		{Success: true, ArtifactRef: "stl://mock/output.stl"},
	}}
	o := newOrchestrator(provider, sb, nil)

	res := o.Run(context.Background(), "design a hexagonal standoff", nil)

	require.True(t, res.Success, res.ErrorSummary)
	assert.Equal(t, 3, provider.CallCount, "producer stages only; the fix needed no inference")
	assert.Equal(t, 1, res.StageAttempts[workflow.StageHeal])
	assert.Equal(t, 2, res.StageAttempts[workflow.StageExecute])
	assert.Equal(t, 3, res.TotalAttempts, "1 produce cycle + 2 executions; deterministic heal is free")
	require.Len(t, sb.Calls, 2)
	assert.Contains(t, sb.Calls[1].Source, ".polygon(6, 20)")
	assert.NotContains(t, sb.Calls[1].Source, "regularPolygon")
}

func TestRunGenerativeRecoversFromMalformedResponses(t *testing.T) {
	provider := &testutil.MockProvider{Queue: []string{
		"I am sorry, I cannot produce JSON today.",
		"Still prose, still not JSON.",
		analysisJSON,
		planJSON,
		synthResponse,
	}}
	sb := &testutil.MockSandbox{}
	o := newOrchestrator(provider, sb, nil)

	res := o.Run(context.Background(), "design a mounting bracket", nil)

	require.True(t, res.Success, res.ErrorSummary)
	assert.Equal(t, 3, res.StageAttempts[workflow.StageProduce], "two malformed cycles, then a clean one")
	assert.Equal(t, 4, res.TotalAttempts, "3 produce cycles + 1 execution")
	assert.Equal(t, 5, provider.CallCount)
}

func TestRunProducerBudgetExhaustion(t *testing.T) {
	provider := &testutil.MockProvider{DefaultResponse: "never valid JSON"}
	sb := &testutil.MockSandbox{}
	o := newOrchestrator(provider, sb, nil)

	res := o.Run(context.Background(), "design a mounting bracket", nil)

	require.False(t, res.Success)
	assert.Equal(t, workflow.TerminalReasonProducerExhausted, res.TerminalReason)
	assert.Equal(t, 3, res.StageAttempts[workflow.StageProduce])
	assert.Equal(t, 3, res.TotalAttempts)
	assert.Zero(t, sb.CallCount)
}

func TestRunSyntaxFailureHealsBeforeExecution(t *testing.T) {
	brokenSynth := "```python\nimport cadquery as cq\nresult = cq.Workplane(\"XY\").box(10, 10\ncq.exporters.export(result, \"output.stl\")\n```"
	provider := &testutil.MockProvider{Responses: map[string]string{
		"Design request:":         analysisJSON,
		"Design description:":     planJSON,
		"Goal:":                   brokenSynth,
		"The script below failed": synthResponse,
	}}
	sb := &testutil.MockSandbox{}
	o := newOrchestrator(provider, sb, nil)

	res := o.Run(context.Background(), "design a mounting bracket", nil)

	require.True(t, res.Success, res.ErrorSummary)
	assert.Equal(t, 1, res.StageAttempts[workflow.StageHeal])
	assert.Equal(t, 1, sb.CallCount, "the broken candidate never reaches the sandbox")
	assert.Equal(t, 3, res.TotalAttempts, "produce cycle + inference heal + execution")
	assert.Equal(t, 4, provider.CallCount)
	assert.Contains(t, sb.Calls[0].Source, "box(width, width, 10)")
}

func TestRunCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := &testutil.MockProvider{}
	sb := &testutil.MockSandbox{}
	o := newOrchestrator(provider, sb, nil)

	res := o.Run(ctx, "create a cube of size 50", nil)

	require.False(t, res.Success)
	assert.Equal(t, workflow.TerminalReasonCancelled, res.TerminalReason)
	assert.Zero(t, res.TotalAttempts)
	assert.Zero(t, sb.CallCount)
}

func TestRunPublishesTerminalEvent(t *testing.T) {
	bus := eventbus.NewBus()
	defer bus.Close()
	ch, cancelSub := bus.Subscribe("", 64)
	defer cancelSub()

	provider := &testutil.MockProvider{}
	sb := &testutil.MockSandbox{}
	o := newOrchestrator(provider, sb, bus)

	res := o.Run(context.Background(), "create a cube of size 50", nil)
	require.True(t, res.Success)

	var sawCode, sawTerminal bool
	deadline := time.After(2 * time.Second)
	for !sawTerminal {
		select {
		case evt := <-ch:
			assert.Equal(t, res.WorkflowID, evt.WorkflowID)
			if evt.Type == eventbus.TypeCode {
				sawCode = true
			}
			if evt.IsTerminal() {
				assert.Equal(t, eventbus.TypeComplete, evt.Type)
				sawTerminal = true
			}
		case <-deadline:
			t.Fatal("terminal event never arrived")
		}
	}
	assert.True(t, sawCode, "candidate source is streamed to subscribers")
}

func TestRunSandboxTransportErrorIsRetryable(t *testing.T) {
	provider := &testutil.MockProvider{DefaultResponse: synthResponse}
	sb := &testutil.MockSandbox{}
	calls := 0
	sb.ExecuteFunc = func(ctx context.Context, source string, timeout time.Duration) (sandbox.ExecResult, error) {
		calls++
		if calls == 1 {
			return sandbox.ExecResult{}, context.DeadlineExceeded
		}
		return sandbox.ExecResult{Success: true, ArtifactRef: "stl://mock/output.stl"}, nil
	}
	o := newOrchestrator(provider, sb, nil)

	res := o.Run(context.Background(), "create a cube of size 50", nil)

	require.True(t, res.Success, res.ErrorSummary)
	assert.Equal(t, 2, res.StageAttempts[workflow.StageExecute])
}

func TestRunTimeoutClassifiesRetryable(t *testing.T) {
	provider := &testutil.MockProvider{DefaultResponse: synthResponse}
	sb := &testutil.MockSandbox{Results: []sandbox.ExecResult{
		{Success: false, FailureText: "execution timed out after 60s"},
		{Success: true, ArtifactRef: "stl://mock/output.stl"},
	}}
	o := newOrchestrator(provider, sb, nil)

	res := o.Run(context.Background(), "create a cube of size 50", nil)

	require.True(t, res.Success, res.ErrorSummary)
	assert.Equal(t, 2, res.StageAttempts[workflow.StageExecute])
}

type rejectingSanity struct{}

func (rejectingSanity) Check(_ context.Context, _ string) error {
	return assert.AnError
}

func TestRunSanityCheckFailureRetries(t *testing.T) {
	provider := &testutil.MockProvider{DefaultResponse: synthResponse}
	sb := &testutil.MockSandbox{}
	o := New(Deps{
		Templated:   producer.NewTemplated(templates.NewRegistry()),
		Generative:  producer.NewGenerative(provider, config.DefaultModelRoles(), time.Second, nil),
		Sandbox:     sb,
		Healer:      healer.New(provider, "test-model", time.Second, nil),
		Sanity:      rejectingSanity{},
		Policy:      testPolicy(),
		ExecTimeout: time.Second,
	})

	res := o.Run(context.Background(), "create a cube of size 50", nil)

	require.False(t, res.Success)
	assert.Empty(t, res.ArtifactRef, "a rejected artifact is never reported")
	assert.True(t, res.TerminalReason.IsBudgetExhaustion())
}
