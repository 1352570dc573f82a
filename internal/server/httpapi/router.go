package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes bounds request bodies; records are small JSON documents.
const maxBodyBytes = 1 << 20

type Options struct {
	Users   Users
	Records Records
	Photos  Photos
	Logger  logging.Logger

	// Registry receives the HTTP metrics and is served on /metrics.
	Registry *prometheus.Registry

	UserCacheSize int
	UserCacheTTL  time.Duration
}

// requestLogger logs one line per request at debug level, and failures at
// warn.
func requestLogger(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			args := []any{"method", r.Method, "path", r.URL.Path, "status", ww.Status(), "duration", time.Since(start)}
			if ww.Status() >= http.StatusInternalServerError {
				logger.Warn(r.Context(), "request", args...)
				return
			}
			logger.Debug(r.Context(), "request", args...)
		})
	}
}

func NewRouter(opts Options) http.Handler {
	logger := opts.Logger.With("module", "httpapi")
	h := &handler{
		users:    opts.Users,
		records:  opts.Records,
		photos:   opts.Photos,
		validate: newValidate(),
		logger:   logger,
	}
	metrics := NewMetrics(opts.Registry)
	cache := newUserCache(opts.UserCacheSize, opts.UserCacheTTL)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestSize(maxBodyBytes))
	r.Use(metrics.Middleware)
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", h.register)
		r.Post("/auth/login", h.login)

		r.Group(func(r chi.Router) {
			r.Use(requireUser(opts.Users, cache, logger))

			r.Route("/records/{type}", func(r chi.Router) {
				r.Get("/", h.listRecords)
				r.Post("/", h.createRecord)
				r.Get("/{id}", h.getRecord)
				r.Put("/{id}", h.updateRecord)
				r.Patch("/{id}", h.patchRecord)
				r.Delete("/{id}", h.deleteRecord)
			})
			r.Post("/photos/{id}/upload-url", h.photoUploadURL)
		})
	})
	return r
}
