package syntax

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cadamx/cadforge/coreengine/agents"
	"github.com/cadamx/cadforge/coreengine/classify"
)

const validScript = `import cadquery as cq

size = 50

result = cq.Workplane("XY").box(size, size, size)

cq.exporters.export(result, "output.stl")
`

func TestValidateAccepts(t *testing.T) {
	res := Validate(validScript)
	assert.Equal(t, agents.OutcomeSuccess, res.Outcome)
}

func TestValidateEmptySource(t *testing.T) {
	res := Validate("   \n  ")
	assert.Equal(t, agents.OutcomeRetry, res.Outcome)
	assert.Contains(t, res.Reason, "empty")
}

func TestValidateMissingImport(t *testing.T) {
	res := Validate("result = 1\ncq.exporters.export(result, 'o.stl')\n")
	assert.Equal(t, agents.OutcomeRetry, res.Outcome)
	assert.Contains(t, res.Reason, "cadquery")
}

func TestValidateMissingOutputConstruct(t *testing.T) {
	res := Validate("import cadquery as cq\nresult = cq.Workplane('XY').box(1, 1, 1)\n")
	assert.Equal(t, agents.OutcomeRetry, res.Outcome)
	assert.Contains(t, res.Reason, "output-producing")
}

func TestValidateUnbalancedBrackets(t *testing.T) {
	src := strings.Replace(validScript, "box(size, size, size)", "box(size, size, size", 1)
	res := Validate(src)
	assert.Equal(t, agents.OutcomeRetry, res.Outcome)
	assert.Contains(t, res.Reason, "unbalanced")
}

func TestValidateUnterminatedString(t *testing.T) {
	src := strings.Replace(validScript, `"output.stl"`, `"output.stl`, 1)
	res := Validate(src)
	assert.Equal(t, agents.OutcomeRetry, res.Outcome)
}

func TestValidateLiteralDivisionByZero(t *testing.T) {
	src := strings.Replace(validScript, "size = 50", "size = 50 / 0", 1)
	res := Validate(src)
	assert.Equal(t, agents.OutcomeRetry, res.Outcome)
	assert.Contains(t, res.Reason, "division by zero")
}

func TestValidateDivisionByNonZeroLiteralOK(t *testing.T) {
	src := strings.Replace(validScript, "size = 50", "size = 50 / 0.5", 1)
	res := Validate(src)
	assert.Equal(t, agents.OutcomeSuccess, res.Outcome)
}

func TestValidateMixedIndentation(t *testing.T) {
	src := "import cadquery as cq\nfor i in range(2):\n\tx = i\n    y = i\nresult = 1\ncq.exporters.export(result, 'o.stl')\n"
	res := Validate(src)
	assert.Equal(t, agents.OutcomeRetry, res.Outcome)
	assert.Contains(t, strings.ToLower(res.Reason), "tab")
}

func TestValidateBracketsInsideStringsIgnored(t *testing.T) {
	src := strings.Replace(validScript, `"output.stl"`, `"out)put.stl"`, 1)
	res := Validate(src)
	assert.Equal(t, agents.OutcomeSuccess, res.Outcome)
}

func TestValidateBracketsInCommentsIgnored(t *testing.T) {
	src := validScript + "# unbalanced (((\n"
	res := Validate(src)
	assert.Equal(t, agents.OutcomeSuccess, res.Outcome)
}

func TestValidateReasonsClassifyAsSyntax(t *testing.T) {
	// Every static failure must land in the syntax category so the
	// orchestrator routes it straight to the healer instead of treating it
	// as an unknown runtime fault.
	sources := map[string]string{
		"empty":          "   \n",
		"missing import": "result = 1\ncq.exporters.export(result, 'o.stl')\n",
		"unbalanced":     strings.Replace(validScript, "box(size, size, size)", "box(size, size, size", 1),
		"no output":      "import cadquery as cq\nresult = cq.Workplane('XY').box(1, 1, 1)\n",
		"div by zero":    strings.Replace(validScript, "size = 50", "size = 50 / 0", 1),
		"mixed tabs":     "import cadquery as cq\nfor i in range(2):\n\tx = i\n    y = i\ncq.exporters.export(x, 'o.stl')\n",
	}
	for name, src := range sources {
		res := Validate(src)
		assert.Equal(t, agents.OutcomeRetry, res.Outcome, name)
		rec := classify.Classify(res.Reason)
		assert.Equal(t, classify.CategorySyntax, rec.Category, "%s: %q", name, res.Reason)
		assert.True(t, rec.Retryable, name)
		assert.False(t, rec.IsCritical(), name)
	}
}

func TestValidateNeverFatal(t *testing.T) {
	for _, src := range []string{"", "garbage", "import cadquery\n(((", validScript} {
		res := Validate(src)
		assert.NotEqual(t, agents.OutcomeFatal, res.Outcome, "source %q", src)
	}
}
