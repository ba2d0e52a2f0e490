// Package livereload implements the live-reload transport: an SSE hub plus
// an HTTP server serving the output directory. Connected clients are told to
// refresh fully or to refresh a named partial target (the stylesheet).
package livereload

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/loomkit/loom/internal/metrics"
)

// TargetCSS names the stylesheet partial-reload target.
const TargetCSS = "css"

// message is one reload notification. An empty Target means a full reload.
type message struct {
	Target string `json:"target,omitempty"`
	Hash   string `json:"hash,omitempty"`
}

// Hub manages SSE clients for reload broadcasts.
type Hub struct {
	mu       sync.RWMutex
	nextID   int
	clients  map[int]*client
	recorder *metrics.Recorder
	closed   bool
	lastHash string
}

type client struct {
	id   int
	ch   chan message
	done chan struct{}
}

// NewHub creates an empty hub. recorder may be nil.
func NewHub(recorder *metrics.Recorder) *Hub {
	return &Hub{clients: map[int]*client{}, recorder: recorder}
}

// ServeHTTP implements the SSE endpoint at /livereload.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, "livereload shutting down", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	c := &client{ch: make(chan message, 8), done: make(chan struct{})}
	h.mu.Lock()
	c.id = h.nextID
	h.nextID++
	h.clients[c.id] = c
	current := h.lastHash
	h.mu.Unlock()
	if h.recorder != nil {
		h.recorder.ClientConnected()
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(": connected\n\n"); err != nil {
		slog.Debug("livereload write", "error", err)
		return
	}
	if current != "" {
		writeEvent(bw, message{Hash: current})
	}
	if err := bw.Flush(); err == nil {
		flusher.Flush()
	}

	hb := time.NewTicker(30 * time.Second)
	defer hb.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			h.removeClient(c.id)
			return
		case <-c.done:
			return
		case <-hb.C:
			if _, err := bw.WriteString(": ping\n\n"); err == nil {
				_ = bw.Flush()
				flusher.Flush()
			} else {
				slog.Debug("livereload ping write", "error", err)
			}
		case msg := <-c.ch:
			writeEvent(bw, msg)
			if err := bw.Flush(); err == nil {
				flusher.Flush()
			} else {
				slog.Debug("livereload broadcast write", "error", err)
			}
		}
	}
}

func writeEvent(bw *bufio.Writer, msg message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	_, _ = bw.WriteString("data: ")
	_, _ = bw.Write(data)
	_, _ = bw.WriteString("\n\n")
}

func (h *Hub) removeClient(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(c.done)
		if h.recorder != nil {
			h.recorder.ClientDisconnected()
		}
	}
}

// Broadcast notifies clients to refresh. target "" means a full reload keyed
// by hash (duplicates suppressed); a named target (css) is always delivered
// since partial refreshes are idempotent and cheap.
func (h *Hub) Broadcast(target, hash string) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	if target == "" {
		if hash == "" || hash == h.lastHash {
			h.mu.Unlock()
			return
		}
		h.lastHash = hash
	}
	snapshot := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.Unlock()

	msg := message{Target: target, Hash: hash}
	dropped := 0
	for _, c := range snapshot {
		select {
		case c.ch <- msg:
		default:
			dropped++
			h.removeClient(c.id)
		}
	}
	if h.recorder != nil {
		h.recorder.Reload(target)
	}
	slog.Debug("livereload broadcast", "target", target, "hash", hash, "clients", len(snapshot), "dropped", dropped)
}

// Shutdown closes all clients and prevents future broadcasts.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = map[int]*client{}
	h.mu.Unlock()
	for _, c := range clients {
		close(c.done)
		if h.recorder != nil {
			h.recorder.ClientDisconnected()
		}
	}
}
