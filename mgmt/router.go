package mgmt

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/redveil/redveil/config"
	"github.com/redveil/redveil/store"
)

// NewRouter creates a chi router with all management routes mounted
// under /api.
func NewRouter(st *store.Store, cfg *config.Config, logger *slog.Logger) chi.Router {
	h := NewHandler(st, cfg, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", h.Stats)
		r.Get("/blocked", h.ListBlocked)
		r.Post("/blocked", h.AddBlocked)
		r.Delete("/blocked/{name}", h.RemoveBlocked)
		r.Post("/hidden/clear", h.ClearHidden)
		r.Post("/hidden/clear-old", h.ClearOldHidden)
	})

	return r
}

// Serve runs the management server until ctx is cancelled, then shuts
// it down gracefully. A disabled address (empty string) returns nil
// immediately.
func Serve(ctx context.Context, addr string, st *store.Store, cfg *config.Config, logger *slog.Logger) error {
	if addr == "" {
		return nil
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(st, cfg, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errC := make(chan error, 1)
	go func() {
		logger.Info("mgmt: listening", "addr", addr)
		errC <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errC:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
