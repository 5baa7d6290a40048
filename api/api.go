// Package api serves the reference executor's HTTP routes on chi:
//
//	POST <prefix>/run-async        accept a job, reply {"status":"accepted","job_id":...}
//	GET  <prefix>/status/{jobID}   the job's current status snapshot
//	GET  <prefix>/result/{jobID}   the job's output once done
//
// Unknown job ids answer 404 {"detail":"job not found"}.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/xraph/jobwatch/job"
)

// Enqueuer accepts a validated request and returns its handle.
// *worker.Pool implements it.
type Enqueuer interface {
	Enqueue(ctx context.Context, req job.Request) (job.Handle, error)
}

// API wires the executor routes to a store and a pool.
type API struct {
	store  job.Store
	pool   Enqueuer
	bounds job.Bounds
	prefix string
	logger *slog.Logger
}

// Option configures an API.
type Option func(*API)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) { a.logger = l }
}

// WithBounds sets the accepted target_chars range.
func WithBounds(b job.Bounds) Option {
	return func(a *API) { a.bounds = b }
}

// WithPrefix mounts the routes under prefix, e.g. "/posts".
func WithPrefix(prefix string) Option {
	return func(a *API) { a.prefix = prefix }
}

// New creates an API.
func New(store job.Store, pool Enqueuer, opts ...Option) *API {
	a := &API{
		store:  store,
		pool:   pool,
		bounds: job.DefaultBounds(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(a.requestLogger)

	routes := func(r chi.Router) {
		r.Post("/run-async", a.runAsync)
		r.Get("/status/{jobID}", a.status)
		r.Get("/result/{jobID}", a.result)
	}
	if a.prefix != "" && a.prefix != "/" {
		r.Route(a.prefix, routes)
	} else {
		routes(r)
	}
	return r
}

func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.logger.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("request_id", chimw.GetReqID(r.Context())),
		)
	})
}
