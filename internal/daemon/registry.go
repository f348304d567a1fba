package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// RegistryEntry is one running daemon's published identity, so other
// processes (CLI commands, a second daemon invocation) can find it
// without scanning the filesystem.
type RegistryEntry struct {
	WorkspacePath string    `json:"workspace_path"`
	AgentsDir     string    `json:"agents_dir"`
	HTTPAddr      string    `json:"http_addr"`
	PID           int       `json:"pid"`
	Version       string    `json:"version"`
	StartedAt     time.Time `json:"started_at"`
}

// Registry manages the global daemon registry file at ~/.signet/registry.json.
type Registry struct {
	path     string
	lockPath string
	mu       sync.Mutex // in-process mutex; the file lock covers cross-process
}

func NewRegistry() (*Registry, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home directory: %w", err)
	}
	dir := filepath.Join(home, ".signet")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create signet directory: %w", err)
	}
	return &Registry{
		path:     filepath.Join(dir, "registry.json"),
		lockPath: filepath.Join(dir, "registry.lock"),
	}, nil
}

func (r *Registry) withFileLock(fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fl := flock.New(r.lockPath)
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("acquire registry lock: %w", err)
	}
	defer func() { _ = fl.Unlock() }()

	return fn()
}

func (r *Registry) readEntriesLocked() ([]RegistryEntry, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RegistryEntry{}, nil
		}
		return nil, fmt.Errorf("read registry: %w", err)
	}
	var entries []RegistryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		// A corrupted registry just means daemons need rediscovering.
		return []RegistryEntry{}, nil
	}
	return entries, nil
}

func (r *Registry) writeEntriesLocked(entries []RegistryEntry) error {
	if entries == nil {
		entries = []RegistryEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, "registry-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp registry file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp registry file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("sync temp registry file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp registry file: %w", err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp registry file: %w", err)
	}
	return nil
}

// Register publishes (or replaces) one daemon's registry entry.
func (r *Registry) Register(entry RegistryEntry) error {
	return r.withFileLock(func() error {
		entries, err := r.readEntriesLocked()
		if err != nil {
			return err
		}
		filtered := entries[:0:0]
		for _, e := range entries {
			if e.WorkspacePath != entry.WorkspacePath && e.PID != entry.PID {
				filtered = append(filtered, e)
			}
		}
		filtered = append(filtered, entry)
		return r.writeEntriesLocked(filtered)
	})
}

// Unregister removes a daemon's entry on clean shutdown.
func (r *Registry) Unregister(workspacePath string, pid int) error {
	return r.withFileLock(func() error {
		entries, err := r.readEntriesLocked()
		if err != nil {
			return err
		}
		filtered := entries[:0:0]
		for _, e := range entries {
			if e.WorkspacePath != workspacePath && e.PID != pid {
				filtered = append(filtered, e)
			}
		}
		return r.writeEntriesLocked(filtered)
	})
}

// List returns all registered daemons, pruning entries whose process
// has died.
func (r *Registry) List() ([]RegistryEntry, error) {
	var alive []RegistryEntry
	err := r.withFileLock(func() error {
		entries, err := r.readEntriesLocked()
		if err != nil {
			return err
		}
		for _, e := range entries {
			if isProcessAlive(e.PID) {
				alive = append(alive, e)
			}
		}
		if len(alive) != len(entries) {
			if err := r.writeEntriesLocked(alive); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to prune stale registry entries: %v\n", err)
			}
		}
		return nil
	})
	return alive, err
}

// Clear removes every registry entry (used by tests).
func (r *Registry) Clear() error {
	return r.withFileLock(func() error {
		return r.writeEntriesLocked(nil)
	})
}
