package workflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadamx/cadforge/coreengine/classify"
)

func TestNewContext(t *testing.T) {
	wf := New("make a cube", map[string]float64{"size": 30}, 3, 10)

	assert.True(t, strings.HasPrefix(wf.WorkflowID, "wf_"))
	assert.Equal(t, StateAccepted, wf.State)
	assert.Equal(t, 30.0, wf.Overrides["size"])
	assert.False(t, wf.Terminated)
	assert.Zero(t, wf.TotalAttempts)
}

func TestNewContextCopiesOverrides(t *testing.T) {
	ov := map[string]float64{"size": 30}
	wf := New("make a cube", ov, 3, 10)

	ov["size"] = 99
	assert.Equal(t, 30.0, wf.Overrides["size"])
}

func TestTransitionRecordsHistory(t *testing.T) {
	wf := New("p", nil, 3, 10)

	wf.Transition(StateRouted)
	wf.Transition(StateProduced)

	assert.Equal(t, StateProduced, wf.State)
	require.Len(t, wf.History, 2)
	assert.Equal(t, string(StateRouted), wf.History[0].Stage)
}

func TestAttemptAccounting(t *testing.T) {
	wf := New("p", nil, 2, 3)

	assert.True(t, wf.StageBudgetLeft(StageProduce))
	assert.Equal(t, 1, wf.IncrementStageAttempt(StageProduce))
	assert.True(t, wf.StageBudgetLeft(StageProduce))
	assert.Equal(t, 2, wf.IncrementStageAttempt(StageProduce))
	assert.False(t, wf.StageBudgetLeft(StageProduce))

	assert.True(t, wf.StageBudgetLeft(StageHeal), "stage budgets are independent")
}

func TestCanContinueGlobalBudget(t *testing.T) {
	wf := New("p", nil, 3, 2)

	require.True(t, wf.CanContinue())
	wf.ChargeAttempt()
	require.True(t, wf.CanContinue())
	wf.ChargeAttempt()

	assert.False(t, wf.CanContinue())
	assert.True(t, wf.Terminated)
	assert.Equal(t, TerminalReasonMaxTotalAttemptsExceeded, wf.TerminalReason)
}

func TestTerminateFirstReasonWins(t *testing.T) {
	wf := New("p", nil, 3, 10)

	wf.Terminate(TerminalReasonNonRetryableError)
	wf.Terminate(TerminalReasonCancelled)

	assert.Equal(t, TerminalReasonNonRetryableError, wf.TerminalReason)
	assert.NotNil(t, wf.CompletedAt)
	assert.Equal(t, StateTerminal, wf.State)
}

func TestRecordError(t *testing.T) {
	wf := New("p", nil, 3, 10)

	wf.RecordError(classify.Classify("SyntaxError: invalid syntax"))
	wf.RecordError(classify.Classify("MemoryError"))

	require.Len(t, wf.ErrorLog, 2)
	require.NotNil(t, wf.LastError)
	assert.Equal(t, classify.CategoryMemory, wf.LastError.Category)
}

func TestResultSuccess(t *testing.T) {
	wf := New("p", nil, 3, 10)
	wf.ChargeAttempt()
	wf.ArtifactRef = "stl://bucket/wf/output.stl"
	wf.AddWarning("wall_thickness below recommended minimum")
	wf.Terminate(TerminalReasonCompletedSuccessfully)

	res := wf.Result()

	assert.True(t, res.Success)
	assert.Equal(t, "stl://bucket/wf/output.stl", res.ArtifactRef)
	assert.Equal(t, 1, res.TotalAttempts)
	assert.Len(t, res.Warnings, 1)
	assert.Nil(t, res.Error)
	assert.Empty(t, res.LastCandidate, "diagnostics belong to failures only")
}

func TestResultFailureCarriesDiagnostics(t *testing.T) {
	wf := New("p", nil, 3, 10)
	wf.SetCandidate("import cadquery as cq\nresult = broken()\n", "generative")
	wf.RecordError(classify.Classify("NameError: name 'broken' is not defined"))
	wf.Terminate(TerminalReasonHealExhausted)

	res := wf.Result()

	assert.False(t, res.Success)
	require.NotNil(t, res.Error)
	assert.Equal(t, classify.CategoryRuntime, res.Error.Category)
	assert.NotEmpty(t, res.ErrorSummary)
	assert.NotContains(t, res.ErrorSummary, "broken()", "summaries never leak raw backend text")
	assert.Contains(t, res.LastCandidate, "broken()")
}

func TestResultFailureWithoutClassifiedError(t *testing.T) {
	wf := New("p", nil, 3, 10)
	wf.Terminate(TerminalReasonConstraintViolation)

	res := wf.Result()

	assert.False(t, res.Success)
	assert.Contains(t, res.ErrorSummary, string(TerminalReasonConstraintViolation))
}

func TestTerminalReasonPredicates(t *testing.T) {
	assert.True(t, TerminalReasonCompletedSuccessfully.IsSuccess())
	assert.False(t, TerminalReasonCancelled.IsSuccess())

	assert.True(t, TerminalReasonProducerExhausted.IsBudgetExhaustion())
	assert.True(t, TerminalReasonHealExhausted.IsBudgetExhaustion())
	assert.True(t, TerminalReasonExecuteExhausted.IsBudgetExhaustion())
	assert.True(t, TerminalReasonMaxTotalAttemptsExceeded.IsBudgetExhaustion())
	assert.False(t, TerminalReasonNonRetryableError.IsBudgetExhaustion())
	assert.False(t, TerminalReasonCancelled.IsBudgetExhaustion())
}
