// Package server exposes the vendor/purchase-order resource store over HTTP,
// plus prometheus metrics and a websocket chat endpoint.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/vendor-desk-assistant/agent/contract"
	"github.com/tanpawarit/vendor-desk-assistant/pkg/metrics"
)

const shutdownTimeout = 10 * time.Second

type Config struct {
	Addr           string   `envconfig:"ADDR" default:":8080"`
	AllowedOrigins []string `split_words:"true" default:"*"`
}

type Server struct {
	cfg   Config
	store contractx.EntityStore
	chat  http.Handler
}

type Option func(*Server)

// WithChat mounts h at /chat/ws.
func WithChat(h http.Handler) Option {
	return func(s *Server) {
		s.chat = h
	}
}

func New(cfg Config, store contractx.EntityStore, opts ...Option) (*Server, error) {
	if store == nil {
		return nil, errors.New("entity store is required")
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	s := &Server{cfg: cfg, store: store}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(CORS(s.cfg.AllowedOrigins))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Vendor API is running"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Get("/vendors", s.listVendors)
	r.Post("/vendors", s.createVendor)
	r.Put("/vendors/{id}", s.updateVendor)
	r.Delete("/vendors/{id}", s.deleteVendor)

	r.Get("/pos", s.listOrders)
	r.Post("/pos", s.createOrder)
	r.Put("/pos/{id}/revise", s.reviseOrder)
	r.Put("/pos/{id}/archive", s.archiveOrder)
	r.Delete("/pos/{id}", s.deleteOrder)

	if s.chat != nil {
		r.Get("/chat/ws", s.chat.ServeHTTP)
	}

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Msg("server started")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Info().Msg("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
