package constraints

import (
	"fmt"
)

// designRule bounds one parameter for one shape category. Values outside
// [min, max] downgrade the report to Warn; they are engineering guidance,
// not hard manufacturability limits.
type designRule struct {
	param string
	min   float64
	max   float64
	note  string
}

var designRules = map[string][]designRule{
	"splint": {
		{param: "thickness", min: 2.0, max: 6.0, note: "splint shells outside 2-6mm flex or dig in"},
		{param: "length", min: 120, max: 260, note: "forearm splints are typically 120-260mm"},
	},
	"stent": {
		{param: "strut_width", min: 0.3, max: 1.2, note: "stent struts outside 0.3-1.2mm compromise expansion"},
		{param: "diameter", min: 2, max: 40, note: "vessel diameters run 2-40mm"},
	},
	"heatsink": {
		{param: "fin_thickness", min: 1.0, max: 5.0, note: "fins under 1mm warp during printing"},
		{param: "fin_count", min: 2, max: 60, note: "fin counts outside 2-60 are rarely useful"},
	},
	"honeycomb": {
		{param: "wall_thickness", min: 1.0, max: 8.0, note: "honeycomb walls under 1mm collapse"},
		{param: "cell_size", min: 3, max: 50, note: "cells outside 3-50mm defeat the purpose of the pattern"},
	},
	"gripper": {
		{param: "jaw_length", min: 20, max: 150, note: "jaws outside 20-150mm need a different mechanism"},
	},
	"lattice": {
		{param: "strut_diameter", min: 1.0, max: 10.0, note: "lattice struts under 1mm snap during handling"},
	},
	"cube": {
		{param: "size", min: 1, max: 400, note: "cubes outside 1-400mm rarely print well"},
	},
}

func applyDesignRules(category string, params map[string]float64, rep *Report) {
	for _, rule := range designRules[category] {
		v, ok := params[rule.param]
		if !ok {
			continue
		}
		if v < rule.min || v > rule.max {
			rep.warn(fmt.Sprintf("%s=%.2f outside recommended range [%.1f, %.1f]: %s",
				rule.param, v, rule.min, rule.max, rule.note))
		}
	}
}
