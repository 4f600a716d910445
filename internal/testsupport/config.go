package testsupport

import (
	"path/filepath"
	"testing"

	"tarkeep/internal/config"
)

// NewConfig returns a validated configuration rooted in a temp
// directory. Override fields on the result before use when a test
// needs non-default quotas or patterns.
func NewConfig(t testing.TB) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DestinationDir = filepath.Join(base, "dest")
	cfg.Paths.LogDir = cfg.Paths.DestinationDir
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}
