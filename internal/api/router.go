// Package api exposes the journal engine over HTTP.
package api

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/api/handlers"
	"github.com/Veraticus/the-books-must-balance/internal/api/middleware"
)

// shutdownTimeout bounds how long in-flight requests may run after shutdown starts.
const shutdownTimeout = 30 * time.Second

// Options configures the HTTP handler.
type Options struct {
	// Required names settings that must be present before /api/ requests
	// are served.
	Required map[string]func() bool
	Logger   *slog.Logger
}

// NewHandler builds the routed, middleware-wrapped HTTP handler.
func NewHandler(h *handlers.BatchesHandler, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sync-transactions", h.SyncTransactions)
	mux.HandleFunc("POST /api/create-journal-batch", h.CreateJournalBatch)
	mux.HandleFunc("POST /api/complete-journal-batch", h.CompleteJournalBatch)
	mux.HandleFunc("POST /api/cancel-journal-batch", h.CancelJournalBatch)
	mux.HandleFunc("GET /api/download-batch-excel", h.DownloadBatchExcel)
	mux.HandleFunc("GET /api/unmapped-programs", h.UnmappedPrograms)
	mux.HandleFunc("GET /api/batches", h.ListBatches)
	mux.HandleFunc("GET /api/pending-transactions", h.PendingTransactions)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.RequireConfig(opts.Required)(mux),
			),
		),
	)
}

// Serve runs an HTTP server on addr until ctx is canceled, then shuts it
// down gracefully. A non-nil tlsConfig serves HTTPS.
func Serve(ctx context.Context, addr string, handler http.Handler, tlsConfig *tls.Config, log *slog.Logger) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		TLSConfig:         tlsConfig,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting API server", "addr", addr, "tls", tlsConfig != nil)
		var err error
		if tlsConfig != nil {
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
