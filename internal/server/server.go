// internal/server/server.go
package server

import (
	"context"
	"net/http"
	"time"

	"calorie-bot/internal/metrics"
	"calorie-bot/pkg/logger"
)

type Server struct {
	server *http.Server
	logger *logger.Logger
}

// NewServer serves health and metrics, plus the Stripe webhook when
// stripeWebhook is not nil.
func NewServer(port string, stripeWebhook http.HandlerFunc, logger *logger.Logger) *Server {
	mux := http.NewServeMux()

	if stripeWebhook != nil {
		mux.HandleFunc("/webhook/stripe", stripeWebhook)
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.Handle("/metrics", metrics.Handler())

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      metrics.InstrumentHandler(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		server: httpServer,
		logger: logger,
	}
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() error {
	s.logger.Infow("Starting HTTP server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}
