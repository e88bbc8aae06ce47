package router

import (
	"regexp"
)

type paramPattern struct {
	name string
	re   *regexp.Regexp
	// param receives the first capture group parsed as a float; empty name
	// means the pattern is routing evidence only.
	param string
}

type category struct {
	name          string
	keywords      []string
	paramPatterns []paramPattern
	defaults      map[string]float64
}

// The category table is the closed set of shapes the template registry can
// produce. Order is the tie-break order for equal evidence counts.
var categories = []category{
	{
		name:     "cube",
		keywords: []string{"cube", "box", "block", "cuboid", "rectangular prism"},
		paramPatterns: []paramPattern{
			{name: "size", re: regexp.MustCompile(`size\s*(?:of\s*)?(\d+(?:\.\d+)?)`), param: "size"},
			{name: "dimension_mm", re: regexp.MustCompile(`(\d+(?:\.\d+)?)\s*mm\b`), param: "size"},
		},
		defaults: map[string]float64{"size": 20},
	},
	{
		name:     "heatsink",
		keywords: []string{"heatsink", "heat sink", "fins", "cooling", "radiator", "thermal", "cpu cooler"},
		paramPatterns: []paramPattern{
			{name: "fin_count", re: regexp.MustCompile(`(\d+)\s*fins?\b`), param: "fin_count"},
			{name: "base_size", re: regexp.MustCompile(`base\s*(?:of\s*)?(\d+(?:\.\d+)?)`), param: "base_width"},
		},
		defaults: map[string]float64{
			"base_width": 40, "base_depth": 40, "base_height": 5,
			"fin_count": 10, "fin_height": 15, "fin_thickness": 1.5,
		},
	},
	{
		name:     "honeycomb",
		keywords: []string{"honeycomb", "hexagonal", "hex cells", "cellular panel", "beehive"},
		paramPatterns: []paramPattern{
			{name: "cell_size", re: regexp.MustCompile(`cells?\s*(?:of\s*)?(\d+(?:\.\d+)?)`), param: "cell_size"},
			{name: "wall", re: regexp.MustCompile(`walls?\s*(?:of\s*)?(\d+(?:\.\d+)?)`), param: "wall_thickness"},
		},
		defaults: map[string]float64{
			"panel_width": 100, "panel_height": 100, "panel_thickness": 5,
			"cell_size": 10, "wall_thickness": 2,
		},
	},
	{
		name:     "splint",
		keywords: []string{"splint", "wrist", "brace", "orthotic", "forearm", "immobilize"},
		paramPatterns: []paramPattern{
			{name: "length", re: regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:mm)?\s*long`), param: "length"},
			{name: "thickness", re: regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:mm)?\s*thick`), param: "thickness"},
		},
		defaults: map[string]float64{"length": 180, "width": 70, "thickness": 3},
	},
	{
		name:     "stent",
		keywords: []string{"stent", "vascular", "artery", "tubular mesh", "expandable"},
		paramPatterns: []paramPattern{
			{name: "diameter", re: regexp.MustCompile(`diameter\s*(?:of\s*)?(\d+(?:\.\d+)?)`), param: "diameter"},
		},
		defaults: map[string]float64{"diameter": 8, "length": 30, "strut_width": 0.5},
	},
	{
		name:     "gripper",
		keywords: []string{"gripper", "claw", "jaws", "robotic", "end effector", "pincher"},
		paramPatterns: []paramPattern{
			{name: "jaw_length", re: regexp.MustCompile(`jaws?\s*(?:of\s*)?(\d+(?:\.\d+)?)`), param: "jaw_length"},
		},
		defaults: map[string]float64{"jaw_length": 50, "jaw_width": 15, "opening": 30},
	},
	{
		name:     "lattice",
		keywords: []string{"lattice", "gyroid", "cellular", "infill", "periodic", "scaffold"},
		paramPatterns: []paramPattern{
			{name: "cell_size", re: regexp.MustCompile(`cells?\s*(?:of\s*)?(\d+(?:\.\d+)?)`), param: "cell_size"},
		},
		defaults: map[string]float64{"size": 50, "cell_size": 10, "strut_diameter": 2},
	},
	{
		name:     "facade_pyramid",
		keywords: []string{"facade", "pyramid", "pyramids", "cladding", "tessellated"},
		paramPatterns: []paramPattern{
			{name: "pyramid_size", re: regexp.MustCompile(`pyramids?\s*(?:of\s*)?(\d+(?:\.\d+)?)`), param: "pyramid_size"},
		},
		defaults: map[string]float64{
			"panel_width": 200, "panel_height": 200, "pyramid_size": 25, "pyramid_height": 12,
		},
	},
	{
		name:     "louvre_wall",
		keywords: []string{"louvre", "louver", "slats", "shading", "blinds"},
		paramPatterns: []paramPattern{
			{name: "slat_count", re: regexp.MustCompile(`(\d+)\s*slats?\b`), param: "slat_count"},
		},
		defaults: map[string]float64{
			"wall_width": 200, "wall_height": 150, "slat_count": 12, "slat_angle": 30,
		},
	},
	{
		name:     "sine_wave_fins",
		keywords: []string{"sine", "wave", "wavy", "undulating", "rippled"},
		paramPatterns: []paramPattern{
			{name: "amplitude", re: regexp.MustCompile(`amplitude\s*(?:of\s*)?(\d+(?:\.\d+)?)`), param: "amplitude"},
		},
		defaults: map[string]float64{
			"length": 120, "fin_count": 8, "amplitude": 10, "wavelength": 40,
		},
	},
}

// Categories returns the names of all routable shape categories.
func Categories() []string {
	out := make([]string, len(categories))
	for i := range categories {
		out[i] = categories[i].name
	}
	return out
}
