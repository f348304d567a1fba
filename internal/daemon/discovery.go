package daemon

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"syscall"
	"time"
)

// DaemonInfo describes one registered daemon, merged with a liveness
// probe against its loopback HTTP address.
type DaemonInfo struct {
	WorkspacePath string
	AgentsDir     string
	HTTPAddr      string
	PID           int
	Version       string
	StartedAt     time.Time
	Alive         bool
	Error         string
}

// Discover lists every daemon published to the registry and probes each
// one's health endpoint to confirm it is actually serving.
func Discover(ctx context.Context) ([]DaemonInfo, error) {
	registry, err := NewRegistry()
	if err != nil {
		return nil, err
	}
	entries, err := registry.List()
	if err != nil {
		return nil, err
	}

	infos := make([]DaemonInfo, 0, len(entries))
	for _, e := range entries {
		infos = append(infos, probe(ctx, e))
	}
	return infos, nil
}

// FindByWorkspace returns the registered, live daemon serving
// workspacePath, if any.
func FindByWorkspace(ctx context.Context, workspacePath string) (*DaemonInfo, error) {
	infos, err := Discover(ctx)
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if info.WorkspacePath == workspacePath && info.Alive {
			return &info, nil
		}
	}
	return nil, fmt.Errorf("no running daemon for workspace: %s", workspacePath)
}

func probe(ctx context.Context, e RegistryEntry) DaemonInfo {
	info := DaemonInfo{
		WorkspacePath: e.WorkspacePath,
		AgentsDir:     e.AgentsDir,
		HTTPAddr:      e.HTTPAddr,
		PID:           e.PID,
		Version:       e.Version,
		StartedAt:     e.StartedAt,
	}

	if !isProcessAlive(e.PID) {
		info.Error = "process not running"
		return info
	}

	probeCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, fmt.Sprintf("http://%s/health", e.HTTPAddr), nil)
	if err != nil {
		info.Error = err.Error()
		return info
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		info.Error = fmt.Sprintf("health probe failed: %v", err)
		return info
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		info.Error = fmt.Sprintf("health probe returned %d", resp.StatusCode)
		return info
	}
	info.Alive = true
	return info
}

// isProcessAlive reports whether pid is a live process. Signal 0 performs
// existence/permission checks without delivering anything to the process.
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
