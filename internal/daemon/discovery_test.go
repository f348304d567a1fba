package daemon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"
)

func TestProbeAliveDaemonReportsHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	entry := RegistryEntry{
		WorkspacePath: "/tmp/ws",
		AgentsDir:     "/tmp/ws/.signet",
		HTTPAddr:      srv.Listener.Addr().String(),
		PID:           os.Getpid(),
		Version:       "test",
		StartedAt:     time.Now(),
	}

	info := probe(context.Background(), entry)
	if !info.Alive {
		t.Fatalf("expected alive daemon, got error: %s", info.Error)
	}
}

func TestProbeDeadProcessReportsNotAlive(t *testing.T) {
	entry := RegistryEntry{
		WorkspacePath: "/tmp/ws",
		PID:           1 << 30, // implausible pid
		HTTPAddr:      "127.0.0.1:1",
	}

	info := probe(context.Background(), entry)
	if info.Alive {
		t.Fatalf("expected dead process to be reported as not alive")
	}
}

func TestIsProcessAliveCurrentProcess(t *testing.T) {
	if !isProcessAlive(os.Getpid()) {
		t.Fatalf("expected current process to report alive")
	}
}
