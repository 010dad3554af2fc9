package testutil

import (
	"path/filepath"
	"testing"

	"github.com/nhle/mail-triage/internal/processed"
)

// NewProcessedStore creates a processed-UID store on a throwaway SQLite
// database with all migrations applied. It automatically closes the store
// when the test completes.
func NewProcessedStore(t *testing.T) *processed.Store {
	t.Helper()

	s, err := processed.NewStore(filepath.Join(t.TempDir(), "processed.db"))
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}
