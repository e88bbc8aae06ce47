package templates

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryHasAllBuiltins(t *testing.T) {
	r := NewRegistry()

	cats := r.List()
	assert.Len(t, cats, 10)
	for _, c := range []string{"cube", "heatsink", "honeycomb", "splint", "stent",
		"gripper", "lattice", "facade_pyramid", "louvre_wall", "sine_wave_fins"} {
		assert.True(t, r.Has(c), "missing recipe %q", c)
	}
}

func TestRenderCube(t *testing.T) {
	r := NewRegistry()

	source, err := r.Render("cube", map[string]float64{"size": 50})
	require.NoError(t, err)

	assert.Contains(t, source, "import cadquery as cq")
	assert.Contains(t, source, "size = 50")
	assert.Contains(t, source, "exporters.export")
	assert.NotContains(t, source, "{{", "all placeholders substituted")
}

func TestRenderFractionalParam(t *testing.T) {
	r := NewRegistry()

	source, err := r.Render("cube", map[string]float64{"size": 12.5})
	require.NoError(t, err)
	assert.Contains(t, source, "size = 12.5")
}

func TestRenderUnknownCategory(t *testing.T) {
	r := NewRegistry()

	_, err := r.Render("teapot", map[string]float64{})
	assert.Error(t, err)
}

func TestRenderMissingParam(t *testing.T) {
	r := NewRegistry()

	_, err := r.Render("cube", map[string]float64{})
	assert.Error(t, err, "missing parameter must not substitute silently")
}

func TestAllRecipesRenderWithDeclaredParams(t *testing.T) {
	r := NewRegistry()

	for _, cat := range r.List() {
		rec, ok := r.Get(cat)
		require.True(t, ok)

		params := make(map[string]float64, len(rec.Params))
		for _, p := range rec.Params {
			params[p] = 10
		}
		source, err := r.Render(cat, params)
		require.NoError(t, err, "recipe %q", cat)
		assert.True(t, strings.Contains(source, "import cadquery"), "recipe %q", cat)
		assert.True(t, strings.Contains(source, "exporters.export"), "recipe %q", cat)
	}
}

func TestRegisterValidation(t *testing.T) {
	r := NewRegistry()

	assert.Error(t, r.Register(&Recipe{Category: "", Source: "x"}))
	assert.Error(t, r.Register(&Recipe{Category: "x", Source: "   "}))
}
