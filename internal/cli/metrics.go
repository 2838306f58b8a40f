package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	applog "bountytracker/internal/log"
	"bountytracker/internal/metrics"
)

// ServeMetrics exposes /metrics and /healthz on addr until ctx is done.
// Workers use it so their scan and export counters can be scraped.
func ServeMetrics(ctx context.Context, addr string, m *metrics.Metrics, logger *applog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Health check")
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           applog.Middleware(logger)(applog.ComponentMiddleware(applog.ComponentHTTP)(mux)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
