// Package server exposes the inference backend over HTTP so a browser client
// or a second commlab instance can use it with the http provider.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/san-kum/commlab/internal/logs"
	"github.com/san-kum/commlab/internal/remote"
)

type Config struct {
	Addr           string
	AllowedOrigins []string
	Logger         *slog.Logger
}

type Server struct {
	remote  remote.Inferencer
	origins map[string]struct{}
	logger  *slog.Logger
	server  *http.Server
}

func New(inf remote.Inferencer, cfg Config) (*Server, error) {
	if inf == nil {
		return nil, errors.New("server: inferencer is required")
	}
	if cfg.Addr == "" {
		return nil, errors.New("server: listen address is required")
	}

	s := &Server{
		remote:  inf,
		origins: make(map[string]struct{}, len(cfg.AllowedOrigins)),
		logger:  logs.OrDiscard(cfg.Logger),
	}
	for _, o := range cfg.AllowedOrigins {
		s.origins[o] = struct{}{}
	}

	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.registerRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the routed handler, CORS included.
func (s *Server) Handler() http.Handler { return s.server.Handler }

func (s *Server) Addr() string { return s.server.Addr }

func (s *Server) Start(wg *sync.WaitGroup, errChan chan<- error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.logger.Info("listening", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("chat server error: %w", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
