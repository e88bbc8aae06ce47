// Package router decides whether a request takes the templated or the
// generative production path.
//
// Routing is deterministic and side-effect-free. A shape category is
// selected only when at least two independent signals support it: distinct
// keyword hits and category-specific parameter evidence each count as one
// signal. A single generic keyword never selects a template.
package router

import (
	"strings"
)

// Kind is the production strategy for one request.
type Kind string

const (
	// KindTemplated routes to parameter substitution into a vetted template.
	KindTemplated Kind = "templated"
	// KindGenerative routes to the multi-stage inference pipeline.
	KindGenerative Kind = "generative"
)

// MinSignals is the evidence threshold below which no template is selected.
const MinSignals = 2

// Decision is the routing outcome. Computed once per request and never
// changed mid-run.
type Decision struct {
	Kind       Kind     `json:"kind"`
	TemplateID string   `json:"template_id,omitempty"`
	Signals    []string `json:"signals,omitempty"`
}

// Route scores the request text against the category table and returns the
// production path. Ties break by table order, which keeps routing stable
// across calls.
func Route(prompt string) Decision {
	lower := strings.ToLower(prompt)

	var best *category
	var bestSignals []string

	for i := range categories {
		cat := &categories[i]
		signals := cat.signals(lower)
		if len(signals) < MinSignals {
			continue
		}
		if best == nil || len(signals) > len(bestSignals) {
			best = cat
			bestSignals = signals
		}
	}

	if best == nil {
		return Decision{Kind: KindGenerative}
	}
	return Decision{
		Kind:       KindTemplated,
		TemplateID: best.name,
		Signals:    bestSignals,
	}
}

// signals collects the independent evidence a request text offers for this
// category: one per distinct keyword present, one per matching parameter
// pattern.
func (c *category) signals(lower string) []string {
	var out []string
	for _, kw := range c.keywords {
		if containsWord(lower, kw) {
			out = append(out, "keyword:"+kw)
		}
	}
	for _, pat := range c.paramPatterns {
		if pat.re.MatchString(lower) {
			out = append(out, "param:"+pat.name)
		}
	}
	return out
}

// containsWord reports whether kw occurs in text on word boundaries.
// Multi-word keywords match as plain substrings.
func containsWord(text, kw string) bool {
	if strings.ContainsRune(kw, ' ') {
		return strings.Contains(text, kw)
	}
	idx := 0
	for {
		i := strings.Index(text[idx:], kw)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(kw)
		leftOK := start == 0 || !isWordChar(text[start-1])
		rightOK := end == len(text) || !isWordChar(text[end])
		if leftOK && rightOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}
