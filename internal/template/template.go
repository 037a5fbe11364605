package template

import (
	"fmt"

	"github.com/flosch/pongo2/v6"
)

// Renderer is the templating capability: given a template source and a
// mapping of names to values, produce the rendered text.
type Renderer interface {
	Render(source string, content map[string]any) (string, error)
}

// jinja renders with pongo2, which implements the jinja2 syntax used by
// the module template files (the .jinja2 units).
type jinja struct{}

// New returns the default Renderer. Autoescaping is switched off: the
// rendered output is arbitrary text, not HTML.
func New() Renderer {
	pongo2.SetAutoescape(false)
	return jinja{}
}

// Render parses source and executes it against content. Both a template
// that does not parse and one that fails during execution are errors;
// names missing from content render as empty text.
func (jinja) Render(source string, content map[string]any) (string, error) {
	tpl, err := pongo2.FromString(source)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	out, err := tpl.Execute(pongo2.Context(content))
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return out, nil
}
