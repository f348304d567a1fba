package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLockHeld means another daemon already owns the workspace lock.
// Startup code maps this to exit code 2 per the lock-contention contract.
var ErrLockHeld = fmt.Errorf("daemon lock already held")

// Lock guards one workspace's daemon.lock file so only one daemon
// process can own a given agents directory at a time.
type Lock struct {
	flock *flock.Flock
	path  string
}

// Acquire tries to take the exclusive daemon lock for agentsDir. It
// returns ErrLockHeld (not a startup failure) if another process already
// holds it.
func Acquire(agentsDir string) (*Lock, error) {
	if err := os.MkdirAll(agentsDir, 0o750); err != nil {
		return nil, fmt.Errorf("create agents directory: %w", err)
	}
	path := filepath.Join(agentsDir, "daemon.lock")
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !locked {
		return nil, ErrLockHeld
	}
	return &Lock{flock: fl, path: path}, nil
}

func (l *Lock) Release() error {
	return l.flock.Unlock()
}
