package testsupport

import (
	"testing"

	"veil/internal/config"
	"veil/internal/logging"
	"veil/internal/scorestore"
)

// MustOpenStore opens a score store for the given config and registers
// cleanup with the test.
func MustOpenStore(t testing.TB, cfg *config.Config) *scorestore.Store {
	t.Helper()

	store, err := scorestore.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("open score store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close score store: %v", err)
		}
	})
	return store
}
