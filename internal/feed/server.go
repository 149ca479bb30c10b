package feed

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/zeusync/jo/internal/core/observability/log"
)

// Server exposes a Hub on /feed and a liveness probe on /healthz.
type Server struct {
	hub    *Hub
	logger log.Log

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

func NewServer(hub *Hub, logger log.Log) *Server {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Server{hub: hub, logger: logger.Named("feed-server")}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/feed", s.hub)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return ErrAlreadyRunning
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func(srv *http.Server) {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Feed server stopped", log.Error(err))
		}
	}(s.server)

	s.logger.Info("Feed server listening", log.String("addr", listener.Addr().String()))
	return nil
}

// Addr is the bound address, useful when Start was given port 0.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop disconnects clients and shuts the http server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if srv == nil {
		return ErrNotRunning
	}
	s.hub.Close()
	return srv.Shutdown(ctx)
}
