// Package http hosts the service's single listener: the /ws socket
// endpoint plus the diagnostics surface (/stats, /healthz, /metrics).
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MaximallyHack/Maximally-Hack-sub003/config"
	wshandler "github.com/MaximallyHack/Maximally-Hack-sub003/internal/handler/ws"
	"github.com/MaximallyHack/Maximally-Hack-sub003/internal/service"
)

type Server struct {
	srv    *http.Server
	logger *slog.Logger
	g      errgroup.Group
}

func NewServer(cfg *config.Config, ws *wshandler.Handler, notifier service.Notifier, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Get("/ws", ws.ServeHTTP)
	r.Get("/healthz", handleHealthz)
	r.Get("/stats", handleStats(notifier, logger))
	r.Handle("/metrics", promhttp.Handler())

	return &Server{
		srv: &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start begins serving in the background. Errors after startup surface in
// Stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}

	s.logger.Info("http server listening", "addr", s.srv.Addr)
	s.g.Go(func() error {
		if err := s.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return err
	}
	return s.g.Wait()
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok")) //nolint:errcheck
}

func handleStats(notifier service.Notifier, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(notifier.Stats()); err != nil {
			logger.Warn("stats encode failed", "error", err)
		}
	}
}
