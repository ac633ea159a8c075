package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/star-randsrv/internal/logger"
	"github.com/marmos91/star-randsrv/internal/metrics"
	"github.com/marmos91/star-randsrv/internal/oprfstate"
	"github.com/marmos91/star-randsrv/pkg/api/handlers"
)

// NewRouter builds the chi router for the three HTTP routes this service
// exposes: request IDs, real-IP extraction, structured request logging,
// panic recovery, and a request timeout.
func NewRouter(state *oprfstate.State, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(m))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	h := handlers.New(state, m)

	r.Get("/", h.Welcome)
	r.Get("/info", h.Info)
	r.Post("/randomness", h.Randomness)

	return r
}

// requestLogger logs every request at DEBUG (start) and INFO (completion),
// and records its outcome in m if non-nil.
func requestLogger(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := middleware.GetReqID(r.Context())

			logger.Debug("request started",
				logger.KeyRequestID, requestID,
				logger.KeyMethod, r.Method,
				logger.KeyPath, r.URL.Path,
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			logger.Info("request completed",
				logger.KeyRequestID, requestID,
				logger.KeyMethod, r.Method,
				logger.KeyPath, r.URL.Path,
				logger.KeyStatus, ww.Status(),
				logger.KeyDurationMs, duration.Milliseconds(),
			)

			if m != nil {
				m.ObserveRequest(r.URL.Path, r.Method, ww.Status(), duration)
			}
		})
	}
}
