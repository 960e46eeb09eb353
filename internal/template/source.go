package template

import (
	"context"
	"fmt"
	"log/slog"

	"fieldline/internal/logging"
	"fieldline/internal/services"
	"fieldline/internal/store"
)

// Store is the subset of template persistence the source depends on.
type Store interface {
	ActiveTemplate(ctx context.Context, key, languageCode string) (*store.Template, error)
	SaveTemplate(ctx context.Context, tmpl *store.Template) error
}

// Source resolves the active template for a key and language, falling
// back to the organization default language when no localized version
// exists.
type Source struct {
	store           Store
	defaultLanguage string
	renderer        *Renderer
	logger          *slog.Logger
}

// NewSource constructs a template source backed by persistent storage.
func NewSource(st Store, defaultLanguage string, renderer *Renderer, logger *slog.Logger) *Source {
	if logger == nil {
		logger = logging.NewNop()
	}
	if renderer == nil {
		renderer = NewRenderer(logger)
	}
	return &Source{
		store:           st,
		defaultLanguage: defaultLanguage,
		renderer:        renderer,
		logger:          logger,
	}
}

// Save validates and persists one template version. A structurally
// invalid body (unterminated placeholder) is rejected; mismatches
// between the declared variables and the placeholders actually found
// are logged as warnings and the save proceeds.
func (s *Source) Save(ctx context.Context, tmpl *store.Template) error {
	if tmpl == nil {
		return services.Wrap(services.ErrValidation, "template", "save", "template is nil", nil)
	}
	warnings, err := s.renderer.Validate(tmpl.Body, tmpl.Variables)
	if err != nil {
		return err
	}
	for _, warning := range warnings {
		s.logger.Warn("template declaration mismatch",
			logging.String("template", tmpl.Key),
			logging.String("language", tmpl.LanguageCode),
			logging.String("detail", warning))
	}
	return s.store.SaveTemplate(ctx, tmpl)
}

// Resolve returns the active template for key in languageCode. When the
// requested language has no active version the default language is
// tried, with a warning. When neither exists the result is ErrNotFound.
func (s *Source) Resolve(ctx context.Context, key, languageCode string) (*store.Template, error) {
	tmpl, err := s.store.ActiveTemplate(ctx, key, languageCode)
	if err != nil {
		return nil, err
	}
	if tmpl != nil {
		return tmpl, nil
	}

	if languageCode != s.defaultLanguage {
		tmpl, err = s.store.ActiveTemplate(ctx, key, s.defaultLanguage)
		if err != nil {
			return nil, err
		}
		if tmpl != nil {
			s.logger.Warn("template missing for language, using default",
				logging.String("template", key),
				logging.String("requested", languageCode),
				logging.String("fallback", s.defaultLanguage))
			return tmpl, nil
		}
	}

	return nil, services.Wrap(services.ErrNotFound, "template", "resolve",
		fmt.Sprintf("no active template %q for %q or %q", key, languageCode, s.defaultLanguage), nil)
}

// RenderFor resolves the template and renders it with vars in one call.
// The returned language is the one the template was actually served in,
// which may differ from the requested language after fallback.
func (s *Source) RenderFor(ctx context.Context, key, languageCode string, vars map[string]string) (string, string, error) {
	tmpl, err := s.Resolve(ctx, key, languageCode)
	if err != nil {
		return "", "", err
	}
	body, err := s.renderer.Render(tmpl.Body, vars)
	if err != nil {
		return "", "", err
	}
	return body, tmpl.LanguageCode, nil
}
