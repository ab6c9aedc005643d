package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/yndnr/nocsrf-go/internal/server/config"
	"github.com/yndnr/nocsrf-go/internal/telemetry/logger"
)

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	cfg        config.HTTPConfig
}

// New creates a new HTTP server from cfg.
func New(cfg config.HTTPConfig, handler http.Handler, log logger.Logger) *Server {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
	if log != nil {
		srv.ErrorLog = logger.NewStdLogger(log)
	}
	return &Server{httpServer: srv, cfg: cfg}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// ListenAndServe listens on the configured address and serves until
// Shutdown. TLS is used when a certificate and key are configured.
// http.ErrServerClosed is not reported as an error.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln, taking ownership of it.
func (s *Server) Serve(ln net.Listener) error {
	var err error
	if s.cfg.TLSEnabled() {
		err = s.httpServer.ServeTLS(ln, s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
	} else {
		err = s.httpServer.Serve(ln)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
