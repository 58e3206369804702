// Package api exposes the turn engine and session memory over HTTP for the
// browser front end.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/innovaplus/innova/internal/memory"
	"github.com/innovaplus/innova/internal/turn"
)

// Turns is the part of the turn engine the API drives. *turn.Engine implements it.
type Turns interface {
	Handle(ctx context.Context, message string) (*turn.Reply, error)
	ClearHistory() error
}

// NewRouter creates the chi router with all routes and middleware.
func NewRouter(turns Turns, store *memory.Store, logger *zap.Logger) *chi.Mux {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := chi.NewRouter()

	r.Use(CORS)
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))

	h := &handler{turns: turns, store: store}

	r.Get("/health", h.Health)
	r.Route("/api", func(r chi.Router) {
		r.Post("/messages", h.SendMessage)
		r.Get("/content", h.ListContent)
		r.Get("/content/{id}", h.GetContent)
		r.Get("/memory/summary", h.Summary)
		r.Delete("/memory", h.ClearMemory)
	})
	return r
}

// ShutdownTimeout bounds how long Serve waits for in-flight requests.
const ShutdownTimeout = 10 * time.Second

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}
