// Package feed serves the render projection of the camera state over HTTP
// and pushes every change to websocket clients.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/germanamz/camview/pkg/camera"
)

const writeTimeout = 5 * time.Second

// Source provides the latest camera state.
type Source interface {
	Snapshot() *camera.State
}

// Server serves GET /view, GET /cameras and the GET /ws push feed.
type Server struct {
	src    Source
	logger *slog.Logger

	mu      sync.Mutex
	clients map[chan struct{}]struct{}
}

// New creates a Server reading from src.
func New(src Source, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		src:     src,
		logger:  logger,
		clients: make(map[chan struct{}]struct{}),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /view", s.handleView)
	mux.HandleFunc("GET /cameras", s.handleCameras)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

// Notify tells connected websocket clients that the state changed. Clients
// that are still writing an earlier view pick up the newest one afterwards.
func (s *Server) Notify() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ch := range s.clients {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.InfoContext(ctx, "render feed listening", "addr", ln.Addr().String())

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleView(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, camera.ViewOf(s.src.Snapshot()))
}

func (s *Server) handleCameras(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, camera.ListingOf(s.src.Snapshot()))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.WarnContext(r.Context(), "websocket accept failed", "error", err)
		return
	}
	defer func() { _ = conn.CloseNow() }()

	// Clients only listen; CloseRead handles their control frames and
	// cancels ctx once they go away.
	ctx := conn.CloseRead(r.Context())

	wake := make(chan struct{}, 1)
	s.mu.Lock()
	s.clients[wake] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, wake)
		s.mu.Unlock()
	}()

	var last *camera.View
	for {
		v := camera.ViewOf(s.src.Snapshot())
		if last == nil || *last != v {
			if err := s.write(ctx, conn, v); err != nil {
				s.logger.DebugContext(ctx, "websocket client gone", "error", err)
				return
			}
			last = &v
		}

		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-wake:
		}
	}
}

func (s *Server) write(ctx context.Context, conn *websocket.Conn, v camera.View) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, v)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
