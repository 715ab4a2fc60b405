// Package httprouter serves the optional observability listener: metrics, readiness and run status.
package httprouter

import (
	"log/slog"
	"net/http"
	"slices"

	"ytmp3/internal/infrastructure/delivery/http/middleware"
	"ytmp3/internal/infrastructure/delivery/http/response"
)

// StatusProvider reports a JSON-serialisable snapshot of the current run.
type StatusProvider interface {
	Status() any
}

// Router is a ServeMux with a global middleware chain.
type Router struct {
	*http.ServeMux
	log         *slog.Logger
	globalChain []func(http.Handler) http.Handler
	metrics     http.Handler
	status      StatusProvider
}

// New creates the router. metrics and status may be nil, their routes are then not registered.
func New(log *slog.Logger, metrics http.Handler, status StatusProvider) *Router {
	r := &Router{
		ServeMux: http.NewServeMux(),
		log:      log.With(slog.String("package", "httprouter")),
		metrics:  metrics,
		status:   status,
	}

	r.SetGlobalMiddlewares()
	r.SetRoutes()

	return r
}

// Use appends middleware to the global chain.
func (r *Router) Use(middleware ...func(http.Handler) http.Handler) {
	r.globalChain = append(r.globalChain, middleware...)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var h http.Handler = r.ServeMux

	for _, mw := range slices.Backward(r.globalChain) {
		h = mw(h)
	}

	h.ServeHTTP(w, req)
}

// SetGlobalMiddlewares installs recovery, request ids and request logging.
func (r *Router) SetGlobalMiddlewares() {
	r.Use(
		middleware.Recoverer(r.log),
		middleware.RequestID,
		middleware.Logger(r.log),
	)
}

// SetRoutes registers every route.
func (r *Router) SetRoutes() {
	r.HandleFunc("GET /v1/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if r.metrics != nil {
		r.Handle("GET /metrics", r.metrics)
	}

	if r.status != nil {
		r.HandleFunc("GET /v1/status", r.Status)
	}
}

// Status writes the run snapshot.
func (r *Router) Status(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, "run status", r.status.Status(), nil)
}
