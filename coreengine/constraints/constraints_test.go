package constraints

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPass(t *testing.T) {
	rep := Check("cube", map[string]float64{"size": 50})

	assert.Equal(t, StatusPass, rep.Status)
	assert.Empty(t, rep.Violations)
	assert.Empty(t, rep.Warnings)
}

func TestCheckOversizeFails(t *testing.T) {
	rep := Check("cube", map[string]float64{"size": 600})

	require.Equal(t, StatusFail, rep.Status)
	assert.NotEmpty(t, rep.Violations)
}

func TestCheckNonPositiveDimensionFails(t *testing.T) {
	rep := Check("cube", map[string]float64{"size": 0})
	assert.Equal(t, StatusFail, rep.Status)
}

func TestCheckThinWallFails(t *testing.T) {
	rep := Check("honeycomb", map[string]float64{
		"panel_width": 100, "panel_height": 100, "panel_thickness": 5,
		"cell_size": 10, "wall_thickness": 0.3,
	})

	require.Equal(t, StatusFail, rep.Status)
	assert.NotEmpty(t, rep.Violations)
}

func TestCheckMarginalWallWarns(t *testing.T) {
	rep := Check("honeycomb", map[string]float64{
		"panel_width": 100, "panel_height": 100, "panel_thickness": 5,
		"cell_size": 10, "wall_thickness": 0.9,
	})

	assert.Equal(t, StatusWarn, rep.Status)
	assert.Empty(t, rep.Violations)
	assert.NotEmpty(t, rep.Warnings)
}

func TestCheckFineFeaturesAllowedBelowWallMinimum(t *testing.T) {
	// Stent struts are features, not walls; 0.5mm must pass.
	rep := Check("stent", map[string]float64{
		"diameter": 8, "length": 30, "strut_width": 0.5,
	})
	assert.NotEqual(t, StatusFail, rep.Status)

	rep = Check("stent", map[string]float64{
		"diameter": 8, "length": 30, "strut_width": 0.2,
	})
	assert.Equal(t, StatusFail, rep.Status)
}

func TestDesignRulesWarnOnly(t *testing.T) {
	// A 1.5mm splint shell prints fine but violates the design guidance;
	// that downgrades to Warn, never Fail.
	rep := Check("splint", map[string]float64{
		"length": 180, "width": 70, "thickness": 1.5,
	})

	assert.Equal(t, StatusWarn, rep.Status)
	assert.Empty(t, rep.Violations)
	assert.NotEmpty(t, rep.Warnings)
}

func TestCheckUnknownCategoryUsesGenericRulesOnly(t *testing.T) {
	rep := Check("nonesuch", map[string]float64{"size": 50})
	assert.Equal(t, StatusPass, rep.Status)
}
