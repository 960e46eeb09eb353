// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"fieldline/internal/config"
)

// ConfigOption mutates a test configuration before validation.
type ConfigOption func(*config.Config)

// WithIndustry sets the organization industry code.
func WithIndustry(code string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Organization.IndustryCode = code
	}
}

// WithDefaultLanguage sets the organization default language.
func WithDefaultLanguage(lang string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Organization.DefaultLanguage = lang
	}
}

// WithMaxRetries sets the dispatch retry budget.
func WithMaxRetries(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Dispatch.MaxRetries = n
	}
}

// NewConfig returns a validated configuration rooted in a temp directory.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	defaults := config.Default()
	cfg := &defaults
	cfg.Storage.DataDir = filepath.Join(t.TempDir(), "fieldline")
	cfg.Organization.ID = "org-test"
	cfg.Organization.BusinessName = "Test Mechanical"
	cfg.Organization.IndustryCode = "hvac"
	cfg.Organization.ContactPhone = "+15550100"
	cfg.Organization.TechnicianPhone = "+15550101"

	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate test config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("prepare test directories: %v", err)
	}
	return cfg
}
