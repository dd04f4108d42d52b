// Package web provides the HTTP server for the folio comment API and its
// live change feed.
package web

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/evcraddock/folio/internal/auth"
	"github.com/evcraddock/folio/internal/comment"
	"github.com/evcraddock/folio/internal/logging"
	"github.com/evcraddock/folio/internal/realtime"
)

const shutdownTimeout = 10 * time.Second

// Server is the comment API HTTP server.
type Server struct {
	cfg         Config
	commentRepo *comment.Repository
	apiKeys     *auth.APIKeyStore
	hub         *realtime.Hub
	mux         *http.ServeMux
	moderated   http.Handler
	handler     http.Handler
}

// NewServer creates a server over db. Writes are published to hub.
func NewServer(db *sql.DB, hub *realtime.Hub, cfg Config) *Server {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = realtime.DefaultPingInterval
	}

	s := &Server{
		cfg:         cfg,
		commentRepo: comment.NewRepository(db),
		apiKeys:     auth.NewAPIKeyStore(db),
		hub:         hub,
		mux:         http.NewServeMux(),
	}

	s.moderated = auth.RequireAPIKey(s.apiKeys, http.HandlerFunc(s.handleModeration))

	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle(changesPath, hub.Handler(cfg.PingInterval))
	s.mux.HandleFunc("/api/comments", s.handleAPIComments)
	s.mux.HandleFunc("/api/comments/", s.handleAPIComment)
	s.handler = logging.RequestLogger(s.mux)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe runs the HTTP server until ctx ends, then shuts down
// gracefully and closes the change feed.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	slog.Info("starting server", "addr", "http://localhost"+srv.Addr)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		// Closing the hub first sends close frames to feed clients,
		// which Shutdown does not track once hijacked.
		s.hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		return nil
	case err := <-serveErr:
		s.hub.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	}
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}
