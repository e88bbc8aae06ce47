package router

import (
	"strconv"
	"strings"
)

// ExtractParams builds the parameter set for a templated category: the
// category defaults, overlaid with values parsed from the request text,
// overlaid with explicit caller overrides. The returned map is freshly
// allocated; the category tables are never mutated.
func ExtractParams(templateID, prompt string, overrides map[string]float64) map[string]float64 {
	params := make(map[string]float64)

	var cat *category
	for i := range categories {
		if categories[i].name == templateID {
			cat = &categories[i]
			break
		}
	}
	if cat == nil {
		for k, v := range overrides {
			params[k] = v
		}
		return params
	}

	for k, v := range cat.defaults {
		params[k] = v
	}

	lower := strings.ToLower(prompt)
	for _, pat := range cat.paramPatterns {
		if pat.param == "" {
			continue
		}
		m := pat.re.FindStringSubmatch(lower)
		if len(m) < 2 {
			continue
		}
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			params[pat.param] = v
		}
	}

	// Caller overrides win over both defaults and parsed text.
	for k, v := range overrides {
		params[k] = v
	}
	return params
}
