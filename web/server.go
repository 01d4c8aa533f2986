package web

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/netutil"
)

// prunePeriod is how often expired sessions are dropped.
const prunePeriod = time.Hour

// Server wraps the HTTP server with metrics exposure, periodic session
// pruning and graceful shutdown.
type Server struct {
	Addr    string
	Handler *Handler
	// MaxConns caps concurrent connections; 0 means unlimited.
	MaxConns        int
	Registry        *prometheus.Registry
	ShutdownTimeout time.Duration
	Logger          *slog.Logger

	srv *http.Server
}

// Run serves until ctx is cancelled, then shuts down gracefully within
// the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	s.Handler.RegisterHTTPHandlers(mux)
	if s.Registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{}))
	}

	s.srv = &http.Server{
		Addr:         s.Addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	if s.MaxConns > 0 {
		ln = netutil.LimitListener(ln, s.MaxConns)
	}

	go s.pruneSessions(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("HTTP server listening", slog.String("addr", s.Addr))
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.Logger.Info("shutting down HTTP server")
	return s.srv.Shutdown(shutdownCtx)
}

func (s *Server) pruneSessions(ctx context.Context) {
	ticker := time.NewTicker(prunePeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Handler.Sessions.Prune()
		}
	}
}
