package display

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// AircraftSource supplies the current reportable aircraft for the REST
// surface; the orchestrator satisfies this by wrapping the radar
// tracker's Tracks().
type AircraftSource interface {
	AircraftViews() []AircraftView
}

// ViolationSource supplies the current and predicted violations for the
// REST surface; the orchestrator satisfies this by wrapping the
// violation detector.
type ViolationSource interface {
	ViolationSummary() interface{}
}

// Config is the HTTP gateway's CORS and address configuration.
type Config struct {
	Addr        string
	CORSOrigins []string
}

// DefaultConfig listens on all interfaces at port 8080 and allows CORS
// only from loopback origins.
func DefaultConfig() Config {
	return Config{
		Addr:        "0.0.0.0:8080",
		CORSOrigins: []string{"http://localhost:3000", "http://127.0.0.1:3000"},
	}
}

// NewRouter builds the chi router serving health, metrics, the aircraft
// and violation read endpoints, and the websocket push hub.
func NewRouter(cfg Config, aircraft AircraftSource, violations ViolationSource, hub *Hub, logger zerolog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(correlationIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Correlation-ID"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", healthHandler())
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/ws", hub)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/aircraft", aircraftHandler(aircraft))
		r.Get("/violations", violationsHandler(violations))
	})

	return r
}

func correlationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Correlation-ID")
		if id == "" {
			id = GetCorrelationID(r.Context())
		}
		w.Header().Set("X-Correlation-ID", id)
		next.ServeHTTP(w, r.WithContext(WithCorrelationID(r.Context(), id)))
	})
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}

func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}

func aircraftHandler(src AircraftSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, src.AircraftViews())
	}
}

func violationsHandler(src ViolationSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, src.ViolationSummary())
	}
}

// Serve starts an *http.Server on cfg.Addr with conservative timeout
// defaults and shuts it down gracefully once ctx is cancelled, via a
// paired "serve" / "watch ctx, shutdown" goroutine pair.
func Serve(ctx context.Context, cfg Config, handler http.Handler) error {
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("display: http server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
