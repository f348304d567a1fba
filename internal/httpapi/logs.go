package httpapi

import (
	"bytes"
	"net/http"
	"sync"
)

// LogHub fans the daemon's log lines out to any number of SSE
// subscribers. It implements io.Writer so it can be passed straight into
// logging.Config.ExtraWriter.
type LogHub struct {
	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

func NewLogHub() *LogHub {
	return &LogHub{subs: make(map[chan []byte]struct{})}
}

// Write satisfies io.Writer. zerolog calls this once per log line; each
// call is forwarded verbatim to every live subscriber, dropping the line
// for any subscriber whose channel is full rather than blocking logging.
func (h *LogHub) Write(p []byte) (int, error) {
	line := bytes.TrimRight(p, "\n")
	buf := make([]byte, len(line))
	copy(buf, line)

	h.mu.Lock()
	for ch := range h.subs {
		select {
		case ch <- buf:
		default:
		}
	}
	h.mu.Unlock()

	return len(p), nil
}

func (h *LogHub) subscribe() chan []byte {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *LogHub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
	close(ch)
}

// handleLogStream serves GET /api/logs/stream as server-sent events, one
// JSON log line per event.
func (s *Server) handleLogStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.Hub.subscribe()
	defer s.Hub.unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(line)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
}
