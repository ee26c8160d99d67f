package llm

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Template names used by the splitter.
const (
	TemplateSplitSystem = "split_system"
	TemplateSplitUser   = "split_user"
)

//go:embed prompts.yaml
var defaultPrompts []byte

type templateFile struct {
	Templates map[string]string `yaml:"templates"`
}

// Templates resolves named prompt templates.
type Templates struct {
	byName map[string]*template.Template
}

// LoadTemplates parses a YAML document of the form `templates: {name: body}`.
func LoadTemplates(data []byte) (*Templates, error) {
	var f templateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse prompt templates: %w", err)
	}

	t := &Templates{byName: make(map[string]*template.Template, len(f.Templates))}
	for name, body := range f.Templates {
		tmpl, err := template.New(name).Option("missingkey=error").Parse(body)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %q: %w", name, err)
		}
		t.byName[name] = tmpl
	}
	return t, nil
}

// DefaultTemplates returns the templates compiled into the binary.
func DefaultTemplates() *Templates {
	t, err := LoadTemplates(defaultPrompts)
	if err != nil {
		panic(err)
	}
	return t
}

// Render executes the named template with vars.
func (t *Templates) Render(name string, vars map[string]any) (string, error) {
	tmpl, ok := t.byName[name]
	if !ok {
		return "", fmt.Errorf("template %q: %w", name, ErrUnknownTemplate)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, vars); err != nil {
		return "", fmt.Errorf("failed to render template %q: %w", name, err)
	}
	return strings.TrimSpace(b.String()), nil
}
