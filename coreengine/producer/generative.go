package producer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cadamx/cadforge/coreengine/agents"
	"github.com/cadamx/cadforge/coreengine/config"
	"github.com/cadamx/cadforge/coreengine/llm"
	"github.com/cadamx/cadforge/coreengine/typeutil"
	"github.com/cadamx/cadforge/coreengine/workflow"
)

// designAnalysis is the schema-validated output of the architect stage.
type designAnalysis struct {
	Description        string
	PrimitivesNeeded   []string
	OperationsSequence []string
	Parameters         map[string]float64
	Complexity         string
	Reasoning          string
}

// constructionPlan is the schema-validated output of the planner stage.
type constructionPlan struct {
	Steps               []string
	Variables           map[string]float64
	Constraints         []string
	EstimatedComplexity string
}

// Generative runs the three-stage inference sub-pipeline: design analysis,
// construction planning, code synthesis. Stages run strictly sequentially;
// each consumes only the previous stage's structured output. Any
// non-conforming response fails the whole attempt, and the orchestrator
// regenerates from the analysis stage - responses are never repaired in
// place.
type Generative struct {
	provider llm.Provider
	models   config.ModelRoles
	timeout  time.Duration
	logger   agents.Logger
}

// NewGenerative creates the generative producer.
func NewGenerative(provider llm.Provider, models config.ModelRoles, timeout time.Duration, logger agents.Logger) *Generative {
	if logger == nil {
		logger = agents.NopLogger{}
	}
	return &Generative{
		provider: provider,
		models:   models,
		timeout:  timeout,
		logger:   logger,
	}
}

func (g *Generative) Name() string { return "generative" }

// Produce runs one full attempt of the sub-pipeline.
func (g *Generative) Produce(ctx context.Context, wf *workflow.Context) agents.Result {
	analysis, err := g.analyzeDesign(ctx, wf.Prompt)
	if err != nil {
		return agents.NewFatal(fmt.Sprintf("design analysis stage: %v", err))
	}
	g.logger.Debug("design_analysis_complete",
		"workflow_id", wf.WorkflowID,
		"primitives", len(analysis.PrimitivesNeeded),
		"complexity", analysis.Complexity)

	plan, err := g.planConstruction(ctx, analysis)
	if err != nil {
		return agents.NewFatal(fmt.Sprintf("construction planning stage: %v", err))
	}
	g.logger.Debug("construction_plan_complete",
		"workflow_id", wf.WorkflowID,
		"steps", len(plan.Steps))

	source, err := g.synthesizeCode(ctx, analysis, plan)
	if err != nil {
		return agents.NewFatal(fmt.Sprintf("code synthesis stage: %v", err))
	}

	return agents.NewSuccess(source)
}

// analyzeDesign asks the architect model to decompose the request.
func (g *Generative) analyzeDesign(ctx context.Context, prompt string) (*designAnalysis, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	raw, err := g.provider.Complete(callCtx, llm.Request{
		Model:       g.models.Architect,
		System:      architectSystemPrompt,
		Prompt:      fmt.Sprintf("Design request: %s\n\nRespond with the JSON object only.", prompt),
		Temperature: 0.3,
		MaxTokens:   1024,
	})
	if err != nil {
		return nil, err
	}

	obj, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	analysis := &designAnalysis{
		Description: typeutil.SafeStringDefault(obj["description"], ""),
		Complexity:  typeutil.SafeStringDefault(obj["complexity"], "medium"),
		Reasoning:   typeutil.SafeStringDefault(obj["reasoning"], ""),
	}
	if prims, ok := typeutil.SafeStringSlice(obj["primitives_needed"]); ok {
		analysis.PrimitivesNeeded = prims
	}
	if ops, ok := typeutil.SafeStringSlice(obj["operations_sequence"]); ok {
		analysis.OperationsSequence = ops
	}
	if params, ok := typeutil.SafeFloat64Map(obj["parameters"]); ok {
		analysis.Parameters = params
	}

	// Schema gate: an analysis with no description or no primitives cannot
	// seed the planner.
	if analysis.Description == "" {
		return nil, fmt.Errorf("response missing required field 'description'")
	}
	if len(analysis.PrimitivesNeeded) == 0 {
		return nil, fmt.Errorf("response missing required field 'primitives_needed'")
	}
	return analysis, nil
}

// planConstruction asks the planner model to order the build steps.
func (g *Generative) planConstruction(ctx context.Context, analysis *designAnalysis) (*constructionPlan, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	raw, err := g.provider.Complete(callCtx, llm.Request{
		Model:  g.models.Planner,
		System: plannerSystemPrompt,
		Prompt: fmt.Sprintf(
			"Design description: %s\nPrimitives: %s\nOperations: %s\n\nRespond with the JSON object only.",
			analysis.Description,
			strings.Join(analysis.PrimitivesNeeded, ", "),
			strings.Join(analysis.OperationsSequence, ", ")),
		Temperature: 0.2,
		MaxTokens:   1024,
	})
	if err != nil {
		return nil, err
	}

	obj, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	plan := &constructionPlan{
		EstimatedComplexity: typeutil.SafeStringDefault(obj["estimated_complexity"], analysis.Complexity),
	}
	if steps, ok := typeutil.SafeStringSlice(obj["steps"]); ok {
		plan.Steps = steps
	}
	if vars, ok := typeutil.SafeFloat64Map(obj["variables"]); ok {
		plan.Variables = vars
	}
	if cons, ok := typeutil.SafeStringSlice(obj["constraints"]); ok {
		plan.Constraints = cons
	}

	if len(plan.Steps) == 0 {
		return nil, fmt.Errorf("response missing required field 'steps'")
	}
	return plan, nil
}

// synthesizeCode asks the synthesizer model for the final script.
func (g *Generative) synthesizeCode(ctx context.Context, analysis *designAnalysis, plan *constructionPlan) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var vars strings.Builder
	for k, v := range plan.Variables {
		fmt.Fprintf(&vars, "%s = %g\n", k, v)
	}

	raw, err := g.provider.Complete(callCtx, llm.Request{
		Model:  g.models.Synthesizer,
		System: synthesizerSystemPrompt,
		Prompt: fmt.Sprintf(
			"Goal: %s\n\nBuild steps:\n- %s\n\nVariables:\n%s\nWrite the complete script.",
			analysis.Description,
			strings.Join(plan.Steps, "\n- "),
			vars.String()),
		Temperature: 0.1,
		MaxTokens:   2048,
	})
	if err != nil {
		return "", err
	}

	code := ExtractCode(raw)
	if code == "" {
		return "", fmt.Errorf("response contained no code")
	}
	return FinalizeSource(code), nil
}

const architectSystemPrompt = `You are a CAD design architect. Decompose the design request into a JSON object:
{"description": str, "primitives_needed": [str], "operations_sequence": [str], "parameters": {name: number}, "complexity": "low"|"medium"|"high", "reasoning": str}`

const plannerSystemPrompt = `You are a CAD construction planner. Turn the design analysis into a JSON object:
{"steps": [str], "variables": {name: number}, "constraints": [str], "estimated_complexity": str}`

const synthesizerSystemPrompt = `You are a CadQuery code generator. Produce a complete Python script using the cadquery library.
The script must assign the final shape to a variable named result and export it with cq.exporters.export(result, "output.stl").
Return the script in a single fenced python code block.`
