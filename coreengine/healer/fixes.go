package healer

import (
	"regexp"
	"strings"
)

// fix is one deterministic rewrite: when the classified failure text
// contains the signature, apply transforms the failing source. A fix that
// leaves the source unchanged did not apply.
type fix struct {
	signature string
	note      string
	apply     func(string) string
}

var (
	torusCall    = regexp.MustCompile(`\.torus\(\s*([^,()]+),\s*([^()]+)\)`)
	revolveKwarg = regexp.MustCompile(`\.revolve\(\s*angle\s*=\s*([^()]+)\)`)
	loftKwargs   = regexp.MustCompile(`\.loft\(\s*[^()]+\)`)
	cutNoArgs    = regexp.MustCompile(`\.cut\(\s*\)`)
)

// The deterministic fix table. Signatures are matched case-insensitively
// against the classified raw failure text, in order; the first fix that
// changes the source wins.
var deterministicFixes = []fix{
	{
		signature: "torus",
		note:      "replaced unsupported torus call with a revolved circle",
		apply: func(src string) string {
			return torusCall.ReplaceAllString(src,
				`.center($1, 0).circle($2).revolve(360, (0, 0, 0), (0, 1, 0))`)
		},
	},
	{
		signature: "regularpolygon",
		note:      "replaced regularPolygon with the canonical polygon call",
		apply: func(src string) string {
			return strings.ReplaceAll(src, ".regularPolygon(", ".polygon(")
		},
	},
	{
		signature: "revolve() got an unexpected keyword argument",
		note:      "converted revolve keyword argument to positional form",
		apply: func(src string) string {
			return revolveKwarg.ReplaceAllString(src, `.revolve($1)`)
		},
	},
	{
		signature: "loft() got an unexpected keyword argument",
		note:      "dropped unsupported loft arguments",
		apply: func(src string) string {
			return loftKwargs.ReplaceAllString(src, `.loft()`)
		},
	},
	{
		signature: "cut() missing 1 required positional argument",
		note:      "replaced bare cut() with cutThruAll()",
		apply: func(src string) string {
			return cutNoArgs.ReplaceAllString(src, `.cutThruAll()`)
		},
	},
	{
		signature: "name 'np' is not defined",
		note:      "added missing numpy import",
		apply:     prependImport("import numpy as np"),
	},
	{
		signature: "name 'math' is not defined",
		note:      "added missing math import",
		apply:     prependImport("import math"),
	},
	{
		signature: "name 'struct' is not defined",
		note:      "added missing struct import",
		apply:     prependImport("import struct"),
	},
	{
		signature: "taberror",
		note:      "normalized tab indentation to spaces",
		apply: func(src string) string {
			return strings.ReplaceAll(src, "\t", "    ")
		},
	},
	{
		signature: "inconsistent use of tabs",
		note:      "normalized tab indentation to spaces",
		apply: func(src string) string {
			return strings.ReplaceAll(src, "\t", "    ")
		},
	},
}

// prependImport returns a transform that inserts stmt once, above the first
// existing import.
func prependImport(stmt string) func(string) string {
	return func(src string) string {
		if strings.Contains(src, stmt) {
			return src
		}
		idx := strings.Index(src, "import ")
		if idx < 0 {
			return stmt + "\n" + src
		}
		return src[:idx] + stmt + "\n" + src[idx:]
	}
}
