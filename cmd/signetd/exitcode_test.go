package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/signet-ai/signet/internal/daemon"
)

func TestExitCodeForLockHeld(t *testing.T) {
	err := fmt.Errorf("acquire lock: %w", daemon.ErrLockHeld)
	if got := exitCodeFor(err); got != 2 {
		t.Errorf("exitCodeFor(lock held) = %d, want 2", got)
	}
}

func TestExitCodeForOtherError(t *testing.T) {
	if got := exitCodeFor(errors.New("boom")); got != 1 {
		t.Errorf("exitCodeFor(other) = %d, want 1", got)
	}
}
