package logging

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewWritesRotatedLogFile(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sub := Component(logger, "recall")
	sub.Info().Msg("hello")

	if _, err := os.Stat(filepath.Join(dir, ".daemon", "logs", "daemon.log")); err != nil {
		t.Fatalf("expected log file to exist: %v", err)
	}
}
