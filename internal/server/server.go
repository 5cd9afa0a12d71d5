package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jpalmerr/rsspoll/internal/store"
)

const (
	// sseWriteTimeout bounds a single SSE write so slow or disconnected
	// clients cannot pin a handler goroutine. Must be <= shutdownTimeout.
	sseWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second
)

// Server serves feed state over HTTP.
type Server struct {
	store      store.Store
	addr       string
	httpServer *http.Server
	logger     *slog.Logger

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a new [Server] listening on addr (e.g. ":8080").
//
// The server is not started until [Server.Start] is called.
func NewServer(st store.Store, addr string, logger *slog.Logger) *Server {
	return &Server{
		store:  st,
		addr:   addr,
		logger: logger,
	}
}

// Handler returns the router. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/feeds", s.handleFeeds)
	mux.HandleFunc("GET /api/feeds/{name}", s.handleFeed)
	mux.HandleFunc("GET /api/sse", s.handleSSE)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// Start binds the listener and serves in the background.
//
// Start returns once the port is bound. When ctx is cancelled the server
// shuts down gracefully. Returns an error if the address cannot be bound.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to bind to %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts derive from ctx so SSE handlers exit on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	s.logger.Info("status api listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) handleFeeds(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.GetAll())
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	st, ok := s.store.Get(name)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{
			"error": fmt.Sprintf("feed %q not found", name),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// handleSSE streams feed state updates via Server-Sent Events.
//
// Writes carry a deadline so a stalled client cannot block the handler past
// shutdown.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	// initial snapshot
	for _, st := range s.store.GetAll() {
		data, err := json.Marshal(st)
		if err != nil {
			continue
		}
		if err := writeAndFlush(data); err != nil {
			return
		}
	}

	for {
		select {
		case st, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(st)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}
		case <-r.Context().Done():
			// fires on client disconnect and on server shutdown
			return
		}
	}
}
