package healer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadamx/cadforge/coreengine/agents"
	"github.com/cadamx/cadforge/coreengine/classify"
	"github.com/cadamx/cadforge/coreengine/testutil"
)

const hexScript = `import cadquery as cq

result = cq.Workplane("XY").regularPolygon(6, 20).extrude(5)

cq.exporters.export(result, "output.stl")
`

func TestHealDeterministicPolygonFix(t *testing.T) {
	provider := &testutil.MockProvider{DefaultResponse: "should never be consulted"}
	h := New(provider, "test-model", time.Second, nil)

	rec := classify.Classify("AttributeError: 'Workplane' object has no attribute 'regularPolygon'")
	res := h.Heal(context.Background(), hexScript, rec)

	require.Equal(t, agents.OutcomeSuccess, res.Outcome)
	assert.Equal(t, TierDeterministic, res.Data["tier"])
	assert.Contains(t, res.Payload, ".polygon(6, 20)")
	assert.NotContains(t, res.Payload, "regularPolygon")
	assert.Zero(t, provider.CallCount, "tier 1 must not reach inference")
}

func TestHealDeterministicTabFix(t *testing.T) {
	h := New(nil, "", time.Second, nil)

	src := "import cadquery as cq\nfor i in range(2):\n\tx = i\nresult = x\ncq.exporters.export(result, 'o.stl')\n"
	rec := classify.Classify("TabError: inconsistent use of tabs and spaces in indentation")
	res := h.Heal(context.Background(), src, rec)

	require.Equal(t, agents.OutcomeSuccess, res.Outcome)
	assert.NotContains(t, res.Payload, "\t")
}

func TestHealDeterministicMissingImport(t *testing.T) {
	h := New(nil, "", time.Second, nil)

	src := "import cadquery as cq\nresult = cq.Workplane('XY').box(np.pi, 1, 1)\ncq.exporters.export(result, 'o.stl')\n"
	rec := classify.Classify("NameError: name 'np' is not defined")
	res := h.Heal(context.Background(), src, rec)

	require.Equal(t, agents.OutcomeSuccess, res.Outcome)
	assert.True(t, strings.HasPrefix(res.Payload, "import numpy as np\n"))
}

func TestHealNoFixForMissingModule(t *testing.T) {
	// A missing interpreter module is an environment fault the classifier
	// marks critical; no rewrite can install a package, so the fix table
	// must not claim it.
	h := New(nil, "", time.Second, nil)

	src := "import cadquery as cq\nresult = cq.Workplane('XY').box(np.pi, 1, 1)\ncq.exporters.export(result, 'o.stl')\n"
	rec := classify.Classify("ModuleNotFoundError: No module named 'numpy'")
	require.True(t, rec.IsCritical())

	res := h.Heal(context.Background(), src, rec)
	require.Equal(t, agents.OutcomeFatal, res.Outcome)
}

func TestHealFixMustChangeSource(t *testing.T) {
	// The failure text names torus but the source has no torus call, so the
	// rewrite is a no-op and must not count as a fix. With inference disabled
	// the cycle is spent.
	h := New(nil, "", time.Second, nil)

	rec := classify.Classify("AttributeError: 'Workplane' object has no attribute 'torus'")
	res := h.Heal(context.Background(), "import cadquery as cq\nresult = 1\n", rec)

	require.Equal(t, agents.OutcomeFatal, res.Outcome)
	assert.Contains(t, res.Reason, "disabled")
}

func TestHealInferenceAccepted(t *testing.T) {
	provider := &testutil.MockProvider{
		DefaultResponse: "Here you go:\n```python\nimport cadquery as cq\nresult = cq.Workplane(\"XY\").box(10, 10, 10)\ncq.exporters.export(result, \"output.stl\")\n```",
	}
	h := New(provider, "test-model", time.Second, nil)

	rec := classify.Classify("RuntimeError: kernel rejected the sketch")
	res := h.Heal(context.Background(), "import cadquery as cq\nresult = broken()\ncq.exporters.export(result, 'o.stl')\n", rec)

	require.Equal(t, agents.OutcomeSuccess, res.Outcome)
	assert.Equal(t, TierInference, res.Data["tier"])
	assert.Equal(t, 1, provider.CallCount)
	assert.Contains(t, res.Payload, "box(10, 10, 10)")
}

func TestHealInferenceRejectedCandidate(t *testing.T) {
	provider := &testutil.MockProvider{
		DefaultResponse: "```python\nresult = cq.Workplane(\"XY\").box(10\n```",
	}
	h := New(provider, "test-model", time.Second, nil)

	rec := classify.Classify("RuntimeError: kernel rejected the sketch")
	res := h.Heal(context.Background(), "whatever", rec)

	require.Equal(t, agents.OutcomeFatal, res.Outcome)
	assert.Equal(t, TierInference, res.Data["tier"], "spent inference call must be reported")
	assert.Contains(t, res.Reason, "rejected")
}

func TestHealInferenceCallError(t *testing.T) {
	provider := &testutil.MockProvider{Err: errors.New("connection refused")}
	h := New(provider, "test-model", time.Second, nil)

	rec := classify.Classify("RuntimeError: boom")
	res := h.Heal(context.Background(), "whatever", rec)

	require.Equal(t, agents.OutcomeFatal, res.Outcome)
	assert.Equal(t, TierInference, res.Data["tier"])
}

func TestHasInferenceTier(t *testing.T) {
	assert.False(t, New(nil, "", time.Second, nil).HasInferenceTier())
	assert.True(t, New(&testutil.MockProvider{}, "m", time.Second, nil).HasInferenceTier())
}
