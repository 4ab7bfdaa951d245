package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Server is the HTTP server netqualctl's daemon optionally starts to expose
// the Metrics bundle's promauto registrations for scraping. Logs through
// logrus so its log lines go through the same formatter/appenders as the
// rest of netqualctl.
type Server struct {
	addr string
	path string
	server *http.Server
}

// NewServer builds a metrics server that will serve promhttp.Handler() (the
// collectors registered with prometheus.DefaultRegisterer) at path (default
// "/metrics") once Start is called.
func NewServer(addr, path string) *Server {
	if path == "" {
		path = "/metrics"
	}
	return &Server{addr: addr, path: path}
}

// Start launches the HTTP listener in the background. It returns once the
// listener goroutine has been spawned, not once it's accepting connections.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(s.path, promhttp.Handler())

	s.server = &http.Server{
		Addr: s.addr,
		Handler: mux,
		ReadTimeout: 5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	logrus.WithFields(logrus.Fields{"addr": s.addr, "path": s.path}).Info("starting metrics server")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Error("metrics server stopped unexpectedly")
		}
	}()

	return nil
}

// Stop gracefully drains in-flight scrapes before closing the listener.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics server shutdown: %w", err)
	}

	logrus.Info("metrics server stopped")
	return nil
}
