// Package constraints checks templated-path parameters against fixed
// manufacturability rules before any code is produced.
//
// The rule tables are immutable after process start; Check is a pure
// function safe for concurrent use.
package constraints

import (
	"fmt"
)

// Manufacturing limits for additive fabrication. Dimensions are millimeters,
// angles are degrees.
const (
	MinFeatureSize   = 0.5
	MaxModelSize     = 500.0
	MinWallThickness = 0.8
	MaxOverhangAngle = 45.0
)

// Status is the checker verdict.
type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Report is the checker output. Violations are present only when Status is
// Fail; Warnings may accompany any status.
type Report struct {
	Status     Status   `json:"status"`
	Violations []string `json:"violations,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// Parameter names treated as wall or feature thicknesses regardless of
// category.
var thicknessParams = map[string]bool{
	"thickness":       true,
	"wall_thickness":  true,
	"fin_thickness":   true,
	"panel_thickness": true,
}

// Fine features like stent struts legitimately go below wall thickness; they
// only need to clear the minimum printable feature size.
var featureParams = map[string]bool{
	"strut_width":    true,
	"strut_diameter": true,
}

// Parameter names treated as overall dimensions.
var dimensionParams = map[string]bool{
	"size":         true,
	"length":       true,
	"width":        true,
	"height":       true,
	"diameter":     true,
	"panel_width":  true,
	"panel_height": true,
	"wall_width":   true,
	"wall_height":  true,
	"base_width":   true,
	"base_depth":   true,
	"jaw_length":   true,
}

// Check validates parameters against the manufacturing limits and the
// per-category design rules. Fail means the part is guaranteed unprintable
// and the producer must not run.
func Check(category string, params map[string]float64) Report {
	rep := Report{Status: StatusPass}

	for name, v := range params {
		switch {
		case dimensionParams[name]:
			if v > MaxModelSize {
				rep.fail(fmt.Sprintf("%s %.1fmm exceeds the %.0fmm build volume", name, v, MaxModelSize))
			}
			if v <= 0 {
				rep.fail(fmt.Sprintf("%s must be positive, got %.2f", name, v))
			}
		case featureParams[name]:
			if v < MinFeatureSize {
				rep.fail(fmt.Sprintf("%s %.2fmm is below the %.1fmm minimum printable feature", name, v, MinFeatureSize))
			}
		case thicknessParams[name]:
			if v < MinFeatureSize {
				rep.fail(fmt.Sprintf("%s %.2fmm is below the %.1fmm minimum printable feature", name, v, MinFeatureSize))
			} else if v < MinWallThickness {
				rep.fail(fmt.Sprintf("%s %.2fmm is below the %.1fmm minimum wall thickness", name, v, MinWallThickness))
			} else if v < MinWallThickness*1.5 {
				rep.warn(fmt.Sprintf("%s %.2fmm is close to the minimum wall thickness", name, v))
			}
		}
	}

	applyDesignRules(category, params, &rep)
	return rep
}

func (r *Report) fail(violation string) {
	r.Status = StatusFail
	r.Violations = append(r.Violations, violation)
}

func (r *Report) warn(warning string) {
	if r.Status == StatusPass {
		r.Status = StatusWarn
	}
	r.Warnings = append(r.Warnings, warning)
}
