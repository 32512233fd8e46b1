// Package server exposes a remote.Store over HTTP so several devices can
// sync through one host:
//
//	GET  /v1/vaults/{device}  200 container JSON, 404 when absent
//	PUT  /v1/vaults/{device}  204, 400 on a malformed container
//	GET  /healthz
//
// Requests are rate limited per client IP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/illarion/boveda/internal/logging"
	"github.com/illarion/boveda/internal/remote"
	"golang.org/x/time/rate"
)

const (
	DefaultRateLimit = 5.0
	DefaultBurst     = 20
	limiterTTL       = 10 * time.Minute
	shutdownTimeout  = 10 * time.Second
	maxBodySize      = 16 << 20
)

// Options configures a Server.
type Options struct {
	RateLimit float64 // requests per second per client, 0 for the default
	Burst     int
}

// Server serves one remote.Store.
type Server struct {
	store   remote.Store
	log     logging.Logger
	limiter *multiLimiter
}

func New(store remote.Store, opts Options, log logging.Logger) *Server {
	if opts.RateLimit <= 0 {
		opts.RateLimit = DefaultRateLimit
	}
	if opts.Burst <= 0 {
		opts.Burst = DefaultBurst
	}
	return &Server{
		store:   store,
		log:     log.With("component", "server"),
		limiter: newMultiLimiter(rate.Limit(opts.RateLimit), opts.Burst, limiterTTL),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(s.rateLimit)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Route("/v1/vaults", func(r chi.Router) {
		r.Get("/{device}", s.getVault)
		r.Put("/{device}", s.putVault)
	})
	return r
}

// Serve runs on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "sync server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
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
	s.log.Info(ctx, "shutting down sync server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
