// Package classify maps raw execution-failure text onto a fixed error
// taxonomy.
//
// The orchestrator branches only on the classified Record, never on raw
// backend wording. Classification is an explicit ordered rule table with an
// Unknown fallback, which keeps it testable independent of the execution
// backend's exact vocabulary.
package classify

import (
	"strings"
)

// Category is the error taxonomy.
type Category string

const (
	CategorySyntax   Category = "syntax"
	CategoryRuntime  Category = "runtime"
	CategoryImport   Category = "import"
	CategoryMemory   Category = "memory"
	CategoryGeometry Category = "geometry"
	CategoryUnknown  Category = "unknown"
)

// Severity ranks how damaging a failure is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Record is a classified failure. Only Classify constructs these.
type Record struct {
	Category  Category `json:"category"`
	Severity  Severity `json:"severity"`
	Retryable bool     `json:"retryable"`
	Raw       string   `json:"raw"`
	Summary   string   `json:"summary"`
	Confident bool     `json:"confident"`
}

// IsCritical reports whether the record must short-circuit the heal loop.
func (r Record) IsCritical() bool {
	return r.Severity == SeverityCritical || !r.Retryable
}

type rule struct {
	signatures []string
	category   Category
	severity   Severity
	retryable  bool
	summary    string
}

// Rule order matters: the first matching rule wins. Memory and import rules
// sit first because their signatures can co-occur with runtime wording.
var rules = []rule{
	{
		signatures: []string{"memoryerror", "out of memory", "recursionerror", "maximum recursion depth"},
		category:   CategoryMemory,
		severity:   SeverityCritical,
		retryable:  false,
		summary:    "execution exhausted memory or recursion limits",
	},
	{
		signatures: []string{"importerror", "modulenotfounderror", "no module named"},
		category:   CategoryImport,
		severity:   SeverityCritical,
		retryable:  false,
		summary:    "a required module is unavailable in the execution environment",
	},
	{
		signatures: []string{"syntaxerror", "indentationerror", "taberror", "invalid syntax", "unexpected eof", "unbalanced"},
		category:   CategorySyntax,
		severity:   SeverityHigh,
		retryable:  true,
		summary:    "candidate source is not structurally valid",
	},
	{
		// Timeouts are a distinct retryable runtime condition, not a
		// service-reported failure.
		signatures: []string{"timeout", "timed out", "deadline exceeded"},
		category:   CategoryRuntime,
		severity:   SeverityMedium,
		retryable:  true,
		summary:    "execution did not complete within the allotted time",
	},
	{
		signatures: []string{"nameerror", "typeerror", "attributeerror", "valueerror", "zerodivisionerror", "indexerror", "keyerror", "has no attribute"},
		category:   CategoryRuntime,
		severity:   SeverityHigh,
		retryable:  true,
		summary:    "candidate source failed at runtime",
	},
	{
		signatures: []string{"brep", "topolog", "invalid shape", "degenerate", "null shape", "boolean operation failed", "standard_"},
		category:   CategoryGeometry,
		severity:   SeverityMedium,
		retryable:  true,
		summary:    "geometry kernel rejected the constructed shape",
	},
}

// Classify pattern-matches raw failure text against the rule table.
// Unmatched text classifies as Unknown/Medium/retryable with Confident=false.
func Classify(raw string) Record {
	lower := strings.ToLower(raw)
	for _, r := range rules {
		for _, sig := range r.signatures {
			if strings.Contains(lower, sig) {
				return Record{
					Category:  r.category,
					Severity:  r.severity,
					Retryable: r.retryable,
					Raw:       raw,
					Summary:   r.summary,
					Confident: true,
				}
			}
		}
	}
	return Record{
		Category:  CategoryUnknown,
		Severity:  SeverityMedium,
		Retryable: true,
		Raw:       raw,
		Summary:   "unrecognized execution failure",
		Confident: false,
	}
}
