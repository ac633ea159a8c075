package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/star-randsrv/internal/logger"
	"github.com/marmos91/star-randsrv/internal/metrics"
	"github.com/marmos91/star-randsrv/internal/oprfstate"
)

// Server is the HTTP server exposing the randomness oracle's three routes
// (`/`, `/info`, `/randomness`) over the shared oprfstate.State cell.
//
// The server supports graceful shutdown with a bounded timeout.
type Server struct {
	server       *http.Server
	state        *oprfstate.State
	config       ServerConfig
	shutdownOnce sync.Once
}

// NewServer creates a new HTTP server. It is created in a stopped state;
// call Start to begin serving requests.
func NewServer(config ServerConfig, state *oprfstate.State, m *metrics.Metrics) *Server {
	config.applyDefaults()

	router := NewRouter(state, m)

	server := &http.Server{
		Addr:         config.Listen,
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return &Server{
		server: server,
		state:  state,
		config: config,
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled or the
// server fails. On cancellation it initiates graceful shutdown and returns.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "listen", s.config.Listen)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("HTTP server shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("HTTP server failed: %w", err)
	}
}

// Stop initiates graceful shutdown. It is safe to call multiple times and
// concurrently with Start.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("HTTP server shutdown initiated")
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("HTTP server shutdown error: %w", err)
			logger.Error("HTTP server shutdown error", logger.Err(err))
		} else {
			logger.Info("HTTP server stopped gracefully")
		}
	})
	return shutdownErr
}

// Addr returns the address the server is configured to listen on.
func (s *Server) Addr() string {
	return s.config.Listen
}
