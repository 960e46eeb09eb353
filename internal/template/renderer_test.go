package template_test

import (
	"context"
	"errors"
	"testing"

	"fieldline/internal/services"
	"fieldline/internal/store"
	"fieldline/internal/template"
	"fieldline/internal/testsupport"
)

func TestRender(t *testing.T) {
	r := template.NewRenderer(nil)

	tests := []struct {
		name string
		body string
		vars map[string]string
		want string
	}{
		{
			name: "single placeholder",
			body: "Hi {name}!",
			vars: map[string]string{"name": "Maria"},
			want: "Hi Maria!",
		},
		{
			name: "repeated placeholder",
			body: "{name}, your appointment is confirmed. See you soon, {name}.",
			vars: map[string]string{"name": "Sam"},
			want: "Sam, your appointment is confirmed. See you soon, Sam.",
		},
		{
			name: "missing variable renders empty",
			body: "Hi {name}, your job is {status}.",
			vars: map[string]string{"name": "Maria"},
			want: "Hi Maria, your job is .",
		},
		{
			name: "no placeholders",
			body: "Plain text message.",
			vars: nil,
			want: "Plain text message.",
		},
		{
			name: "adjacent placeholders",
			body: "{greeting}{name}",
			vars: map[string]string{"greeting": "Hola ", "name": "Luis"},
			want: "Hola Luis",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Render(tt.body, tt.vars)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if got != tt.want {
				t.Errorf("Render = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderUnterminatedPlaceholder(t *testing.T) {
	r := template.NewRenderer(nil)
	_, err := r.Render("Hi {name", map[string]string{"name": "Maria"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestVariables(t *testing.T) {
	names, err := template.Variables("Hi {name}, {name} at {time}.")
	if err != nil {
		t.Fatalf("Variables: %v", err)
	}
	if len(names) != 2 || names[0] != "name" || names[1] != "time" {
		t.Fatalf("names = %v", names)
	}
}

func TestValidateWarnings(t *testing.T) {
	r := template.NewRenderer(nil)

	warnings, err := r.Validate("Hi {name}, see you at {time}.", []string{"name", "address"})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(warnings) != 2 {
		t.Fatalf("warnings = %v, want 2", warnings)
	}

	warnings, err = r.Validate("Hi {name}.", []string{"name"})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("warnings = %v, want none", warnings)
	}
}

func TestSourceResolveFallback(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	en := &store.Template{
		Key:          "follow_up",
		LanguageCode: "en",
		Version:      1,
		Body:         "How did we do, {name}?",
		Variables:    []string{"name"},
		IsActive:     true,
	}
	if err := st.SaveTemplate(ctx, en); err != nil {
		t.Fatalf("SaveTemplate: %v", err)
	}

	source := template.NewSource(st, "en", nil, nil)

	direct, err := source.Resolve(ctx, "follow_up", "en")
	if err != nil {
		t.Fatalf("Resolve en: %v", err)
	}
	if direct.LanguageCode != "en" {
		t.Errorf("language = %q, want en", direct.LanguageCode)
	}

	fallback, err := source.Resolve(ctx, "follow_up", "es")
	if err != nil {
		t.Fatalf("Resolve es: %v", err)
	}
	if fallback.LanguageCode != "en" {
		t.Errorf("fallback language = %q, want en", fallback.LanguageCode)
	}

	_, err = source.Resolve(ctx, "no_such_template", "es")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSourceRenderFor(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	es := &store.Template{
		Key:          "emergency_customer",
		LanguageCode: "es",
		Version:      1,
		Body:         "Hola {name}, un técnico está en camino.",
		Variables:    []string{"name"},
		IsActive:     true,
	}
	if err := st.SaveTemplate(ctx, es); err != nil {
		t.Fatalf("SaveTemplate: %v", err)
	}

	source := template.NewSource(st, "en", nil, nil)
	body, language, err := source.RenderFor(ctx, "emergency_customer", "es", map[string]string{"name": "Luis"})
	if err != nil {
		t.Fatalf("RenderFor: %v", err)
	}
	if body != "Hola Luis, un técnico está en camino." {
		t.Errorf("body = %q", body)
	}
	if language != "es" {
		t.Errorf("language = %q, want es", language)
	}
}

func TestSourceSaveRejectsUnterminatedBody(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	source := template.NewSource(st, "en", nil, nil)
	err := source.Save(ctx, &store.Template{
		Key:          "survey",
		LanguageCode: "en",
		Version:      1,
		Body:         "Rate your service with {business_name",
		IsActive:     true,
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}

	tmpl, err := st.ActiveTemplate(ctx, "survey", "en")
	if err != nil {
		t.Fatalf("ActiveTemplate: %v", err)
	}
	if tmpl != nil {
		t.Fatal("invalid template must not be persisted")
	}
}

func TestSourceSaveWarnOnlyMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	// Undeclared placeholder and an unused declared variable: both are
	// warnings, the save still goes through.
	source := template.NewSource(st, "en", nil, nil)
	err := source.Save(ctx, &store.Template{
		Key:          "follow_up",
		LanguageCode: "en",
		Version:      1,
		Body:         "How did we do, {name}?",
		Variables:    []string{"address"},
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	tmpl, err := st.ActiveTemplate(ctx, "follow_up", "en")
	if err != nil {
		t.Fatalf("ActiveTemplate: %v", err)
	}
	if tmpl == nil {
		t.Fatal("template should have been persisted despite warnings")
	}
}
