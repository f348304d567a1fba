package main

import (
	"fmt"
	"os"
	"path/filepath"
)

const defaultAgentsDirName = ".signet"

// resolveAgentsDir picks the agents directory: an explicit flag wins, then
// SIGNET_AGENTS_DIR, then a .signet directory under the current working
// directory.
func resolveAgentsDir(flagValue string) (string, error) {
	if flagValue != "" {
		return filepath.Abs(flagValue)
	}
	if env := os.Getenv("SIGNET_AGENTS_DIR"); env != "" {
		return filepath.Abs(env)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve working directory: %w", err)
	}
	return filepath.Join(cwd, defaultAgentsDirName), nil
}
