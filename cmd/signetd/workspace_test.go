package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveAgentsDirFlagWins(t *testing.T) {
	t.Setenv("SIGNET_AGENTS_DIR", "/tmp/from-env")
	got, err := resolveAgentsDir("/tmp/from-flag")
	if err != nil {
		t.Fatalf("resolveAgentsDir: %v", err)
	}
	want, _ := filepath.Abs("/tmp/from-flag")
	if got != want {
		t.Errorf("resolveAgentsDir(flag) = %q, want %q", got, want)
	}
}

func TestResolveAgentsDirEnvFallback(t *testing.T) {
	t.Setenv("SIGNET_AGENTS_DIR", "/tmp/from-env")
	got, err := resolveAgentsDir("")
	if err != nil {
		t.Fatalf("resolveAgentsDir: %v", err)
	}
	want, _ := filepath.Abs("/tmp/from-env")
	if got != want {
		t.Errorf("resolveAgentsDir(env) = %q, want %q", got, want)
	}
}

func TestResolveAgentsDirDefaultsToCwd(t *testing.T) {
	t.Setenv("SIGNET_AGENTS_DIR", "")
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("os.Getwd: %v", err)
	}
	got, err := resolveAgentsDir("")
	if err != nil {
		t.Fatalf("resolveAgentsDir: %v", err)
	}
	want := filepath.Join(cwd, defaultAgentsDirName)
	if got != want {
		t.Errorf("resolveAgentsDir() = %q, want %q", got, want)
	}
}
