package testsupport

import (
	"testing"

	"bobbin/internal/config"
	"bobbin/internal/pairs"
)

// MustOpenPairs opens the pair registry for tests and registers cleanup.
func MustOpenPairs(t testing.TB, cfg *config.Config) *pairs.Store {
	t.Helper()

	store, err := pairs.OpenFromConfig(cfg)
	if err != nil {
		t.Fatalf("pairs.OpenFromConfig: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
