package main

import (
	"errors"

	"github.com/signet-ai/signet/internal/daemon"
)

// exitCodeFor maps a fatal startup/shutdown error to the daemon's exit
// code contract: 0 is reserved for a clean run (never reaches here), 2
// is lock contention, 1 is everything else (schema failure, port bind
// failure, and any other startup error).
func exitCodeFor(err error) int {
	if errors.Is(err, daemon.ErrLockHeld) {
		return 2
	}
	return 1
}
