package livereload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/loomkit/loom/internal/metrics"
)

// Options configures the development server.
type Options struct {
	// Root is the directory served at /.
	Root string
	// Port is the listen port; 0 picks an ephemeral port.
	Port int
	// Recorder, when non-nil, exposes /metrics and instruments the hub.
	Recorder *metrics.Recorder
}

// Server is the live-reload transport: an HTTP server over the output
// directory plus the SSE hub. Owned exclusively by one instance and torn
// down via Exit; after Exit it may be initialized again for a new session.
type Server struct {
	hub *Hub
	srv *http.Server
	ln  net.Listener
}

// NewServer creates an uninitialized transport.
func NewServer() *Server {
	return &Server{}
}

// Init begins serving the output directory and accepting reload clients.
func (s *Server) Init(opts Options) error {
	if s.srv != nil {
		return errors.New("livereload: already initialized")
	}
	s.hub = NewHub(opts.Recorder)

	mux := http.NewServeMux()
	mux.Handle("/livereload", s.hub)
	mux.HandleFunc("/livereload.js", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		_, _ = w.Write([]byte(Script))
	})
	if opts.Recorder != nil {
		mux.Handle("/metrics", opts.Recorder.Handler())
	}
	mux.Handle("/", http.FileServer(http.Dir(opts.Root)))

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", opts.Port))
	if err != nil {
		return fmt.Errorf("livereload listen: %w", err)
	}
	s.ln = ln
	s.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("livereload server stopped", "error", err)
		}
	}()
	slog.Info("dev server listening", "addr", fmt.Sprintf("http://localhost:%d", s.Port()), "root", opts.Root)
	return nil
}

// Port returns the bound port, useful when Init was given port 0.
func (s *Server) Port() int {
	if s.ln == nil {
		return 0
	}
	if addr, ok := s.ln.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// Reload notifies connected clients. An empty target requests a full
// refresh; TargetCSS refreshes only the stylesheet.
func (s *Server) Reload(target, hash string) {
	if s.hub != nil {
		s.hub.Broadcast(target, hash)
	}
}

// Exit tears down all connections and stops serving. The server returns to
// its uninitialized state so a later watch session can call Init again.
func (s *Server) Exit() error {
	if s.srv == nil {
		return nil
	}
	s.hub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.srv.Shutdown(ctx)
	s.srv = nil
	s.ln = nil
	s.hub = nil
	if err != nil {
		return fmt.Errorf("livereload shutdown: %w", err)
	}
	return nil
}
