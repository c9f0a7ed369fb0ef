// Package answer renders grounded prompts and calls the LLM to produce the
// final answer text.
package answer

import (
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// TemplateTutor is the default grounded-tutor prompt.
const TemplateTutor = "tutor"

// defaultTemplates constrain the model to the supplied material and require
// it to call out missing information instead of inventing it.
var defaultTemplates = map[string]string{
	TemplateTutor: `You are an academic chemistry tutor.

TASK:
- Read the provided article content
- Write a clear, structured explanation (10-15 lines)
- Use ONLY the provided content
- If information is missing, explicitly say so

ARTICLE CONTENT:
{{.context}}

QUESTION:
{{.question}}`,
}

// Templates is an immutable prompt-template registry.
type Templates struct {
	parsed map[string]*template.Template
}

// DefaultTemplates returns the built-in registry.
func DefaultTemplates() *Templates {
	t, err := newTemplates(defaultTemplates)
	if err != nil {
		// Built-in templates are compile-time constants.
		panic(err)
	}
	return t
}

// LoadTemplates reads a YAML file mapping template IDs to template bodies
// and merges it over the defaults. Bodies use {{.context}} and {{.question}}
// placeholders.
func LoadTemplates(path string) (*Templates, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("answer: read templates: %w", err)
	}
	var overrides map[string]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("answer: parse templates: %w", err)
	}

	merged := make(map[string]string, len(defaultTemplates)+len(overrides))
	for id, body := range defaultTemplates {
		merged[id] = body
	}
	for id, body := range overrides {
		merged[id] = body
	}
	return newTemplates(merged)
}

func newTemplates(sources map[string]string) (*Templates, error) {
	parsed := make(map[string]*template.Template, len(sources))
	for id, body := range sources {
		t, err := template.New(id).Option("missingkey=error").Parse(body)
		if err != nil {
			return nil, fmt.Errorf("answer: template %s: %w", id, err)
		}
		parsed[id] = t
	}
	return &Templates{parsed: parsed}, nil
}

// Render interpolates vars into the identified template. Pure function of
// its inputs; no model is involved.
func (t *Templates) Render(templateID string, vars map[string]string) (string, error) {
	tmpl, ok := t.parsed[templateID]
	if !ok {
		return "", fmt.Errorf("answer: unknown template %q", templateID)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, vars); err != nil {
		return "", fmt.Errorf("answer: render %s: %w", templateID, err)
	}
	return b.String(), nil
}
