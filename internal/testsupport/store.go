package testsupport

import (
	"testing"

	"fieldline/internal/config"
	"fieldline/internal/store"
)

// MustOpenStore opens a store for tests and closes it on cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return st
}
