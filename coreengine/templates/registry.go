// Package templates holds the read-only registry of vetted CadQuery script
// recipes for the templated production path.
//
// The registry is populated once at process start and never mutated
// afterwards; the router only ever selects a key, never the content.
package templates

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"text/template"
)

// Recipe is one fixed generation recipe: a script template plus the
// parameter names it substitutes.
type Recipe struct {
	Category string
	Params   []string
	Source   string

	tmpl *template.Template
}

// Registry maps route categories to recipes.
type Registry struct {
	recipes map[string]*Recipe
	mu      sync.RWMutex
}

// NewRegistry returns a registry preloaded with the built-in recipes.
func NewRegistry() *Registry {
	r := &Registry{recipes: make(map[string]*Recipe)}
	for i := range builtinRecipes {
		// Built-in recipes are vetted at authoring time; a parse failure
		// here is a programming error.
		if err := r.Register(&builtinRecipes[i]); err != nil {
			panic(fmt.Sprintf("builtin recipe %q: %v", builtinRecipes[i].Category, err))
		}
	}
	return r
}

// Register parses and adds a recipe. Registration happens only during
// process initialization.
func (r *Registry) Register(rec *Recipe) error {
	if rec.Category == "" {
		return fmt.Errorf("recipe category is required")
	}
	if strings.TrimSpace(rec.Source) == "" {
		return fmt.Errorf("recipe source is required for %q", rec.Category)
	}
	tmpl, err := template.New(rec.Category).Option("missingkey=error").Parse(rec.Source)
	if err != nil {
		return fmt.Errorf("parse recipe %q: %w", rec.Category, err)
	}
	rec.tmpl = tmpl

	r.mu.Lock()
	defer r.mu.Unlock()
	r.recipes[rec.Category] = rec
	return nil
}

// Has checks whether a category has a recipe.
func (r *Registry) Has(category string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.recipes[category]
	return ok
}

// Get returns the recipe for a category.
func (r *Registry) Get(category string) (*Recipe, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.recipes[category]
	return rec, ok
}

// List returns all registered categories, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.recipes))
	for name := range r.recipes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Render substitutes params into the category's recipe. Missing parameters
// fall back to the recipe's declared names being required; a missing key is
// an error, not a silent default.
func (r *Registry) Render(category string, params map[string]float64) (string, error) {
	rec, ok := r.Get(category)
	if !ok {
		return "", fmt.Errorf("no recipe registered for category %q", category)
	}

	data := make(map[string]string, len(params))
	for k, v := range params {
		data[k] = formatParam(v)
	}

	var sb strings.Builder
	if err := rec.tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render recipe %q: %w", category, err)
	}
	return sb.String(), nil
}

// formatParam renders a float the way the scripts expect: integral values
// without a decimal point.
func formatParam(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}
