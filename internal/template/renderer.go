// Package template renders notification message bodies. Templates use
// {name} placeholders substituted from a variable map at send time.
package template

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"fieldline/internal/logging"
	"fieldline/internal/services"
)

// Renderer substitutes placeholder tokens in template bodies.
type Renderer struct {
	logger *slog.Logger
}

// NewRenderer constructs a renderer. A nil logger falls back to a
// no-op logger.
func NewRenderer(logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Renderer{logger: logger}
}

// Render substitutes every {name} token in body with the matching value
// from vars. A token with no matching variable renders as the empty
// string and is logged as a warning; rendering still succeeds. An
// opening brace with no closing brace is a validation error.
func (r *Renderer) Render(body string, vars map[string]string) (string, error) {
	var out strings.Builder
	out.Grow(len(body))

	rest := body
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			out.WriteString(rest)
			break
		}
		out.WriteString(rest[:open])
		rest = rest[open+1:]

		closing := strings.IndexByte(rest, '}')
		if closing < 0 {
			return "", services.Wrap(services.ErrValidation, "template", "render", "unterminated placeholder", nil)
		}
		name := rest[:closing]
		rest = rest[closing+1:]

		value, ok := vars[name]
		if !ok {
			r.logger.Warn("template variable missing",
				logging.String("variable", name))
		}
		out.WriteString(value)
	}
	return out.String(), nil
}

// Variables returns the placeholder names found in body in order of
// first appearance, without duplicates.
func Variables(body string) ([]string, error) {
	var names []string
	seen := make(map[string]struct{})

	rest := body
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			return names, nil
		}
		rest = rest[open+1:]
		closing := strings.IndexByte(rest, '}')
		if closing < 0 {
			return nil, services.Wrap(services.ErrValidation, "template", "scan variables", "unterminated placeholder", nil)
		}
		name := rest[:closing]
		rest = rest[closing+1:]
		if _, dup := seen[name]; !dup {
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
}

// Validate compares the placeholders found in body against the declared
// variable list. Mismatches are warnings, not errors: templates with
// undeclared placeholders still render, but the discrepancy is worth
// surfacing at save time. A malformed body is an error.
func (r *Renderer) Validate(body string, declared []string) ([]string, error) {
	found, err := Variables(body)
	if err != nil {
		return nil, err
	}

	declaredSet := make(map[string]struct{}, len(declared))
	for _, name := range declared {
		declaredSet[name] = struct{}{}
	}
	foundSet := make(map[string]struct{}, len(found))
	for _, name := range found {
		foundSet[name] = struct{}{}
	}

	var warnings []string
	for _, name := range found {
		if _, ok := declaredSet[name]; !ok {
			warnings = append(warnings, fmt.Sprintf("placeholder {%s} is not declared", name))
		}
	}
	undeclared := make([]string, 0, len(declared))
	for name := range declaredSet {
		if _, ok := foundSet[name]; !ok {
			undeclared = append(undeclared, name)
		}
	}
	sort.Strings(undeclared)
	for _, name := range undeclared {
		warnings = append(warnings, fmt.Sprintf("declared variable %q never appears in the body", name))
	}
	return warnings, nil
}
