// Package web exposes the screening pipeline over HTTP: batch upload
// and screening, the read-only dashboard API, CSV export and email
// drafting.
package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sentiq/screener/internal/screening"
	"github.com/sentiq/screener/internal/store"
)

// MaxBatchSize bounds how many resumes one upload request may carry.
const MaxBatchSize = 30

// Deps aggregates what the handlers need.
type Deps struct {
	Store      *store.Store
	Service    *screening.Service
	Agent      *screening.Agent
	UploadsDir string
	Logger     *zap.Logger
}

// NewRouter builds the HTTP handler tree.
func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	h := &handler{deps: deps}

	r := chi.NewRouter()
	r.Use(requestLogger(deps.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/ping", h.ping)

	r.Route("/api", func(r chi.Router) {
		r.Post("/screen/upload", h.uploadAndScreen)

		r.Route("/dashboard/candidates", func(r chi.Router) {
			r.Get("/", h.listCandidates)
			r.Delete("/", h.deleteAll)
			r.Get("/{id}", h.getCandidate)
			r.Post("/{id}/email", h.draftEmail)
		})

		r.Get("/export/candidates", h.exportCSV)
	})

	return r
}

// requestLogger logs one line per request with status and latency.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(ww, r)

			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
