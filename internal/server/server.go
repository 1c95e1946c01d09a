// Package server assembles the HTTP handler of the bookshelf application:
// the route table, the middleware chain and the operational endpoints.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"bookshelf/internal/book"
	"bookshelf/internal/config"
	"bookshelf/internal/httpx"
	"bookshelf/internal/platform/database"
	"bookshelf/web"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const readyTimeout = 500 * time.Millisecond

// Deps are the collaborators the router needs.
type Deps struct {
	Config   config.Config
	Logger   *zap.Logger
	Books    book.Repository
	DB       database.Pinger
	Renderer book.Renderer
	// Registry receives the HTTP metrics. A fresh registry is used when nil.
	Registry *prometheus.Registry
}

// Server is the fully wired http.Handler.
type Server struct {
	handler   http.Handler
	rateLimit *httpx.RateLimitMiddleware
}

func New(deps Deps) *Server {
	cfg := deps.Config
	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	service := book.NewService(deps.Books)
	api := book.NewHTTPHandler(service, book.APIOptions{
		Strict:       cfg.StrictAPIValidation,
		ExposeErrors: !cfg.IsProduction(),
	}, deps.Logger)
	pages := book.NewWebHandler(service, deps.Renderer, deps.Logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", pages.Home)
	mux.HandleFunc("GET /books", pages.List)
	mux.HandleFunc("GET /books/new", pages.New)
	mux.HandleFunc("GET /books/{id}", pages.Show)
	mux.HandleFunc("GET /books/{id}/edit", pages.Edit)
	mux.HandleFunc("POST /books", pages.Create)
	mux.HandleFunc("PUT /books/{id}", pages.Update)
	mux.HandleFunc("DELETE /books/{id}", pages.Delete)

	mux.HandleFunc("GET /api/books", api.List)
	mux.HandleFunc("POST /api/books", api.Create)
	mux.HandleFunc("GET /api/books/{id}", api.Get)
	mux.HandleFunc("PUT /api/books/{id}", api.Update)
	mux.HandleFunc("DELETE /api/books/{id}", api.Delete)

	mux.HandleFunc("GET /health", health(cfg.Env))
	mux.HandleFunc("GET /readyz", ready(deps.DB))
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.Handle("GET /static/", http.StripPrefix("/static/", web.Static()))

	mux.HandleFunc("/", httpx.NotFound)

	metrics := httpx.NewMetrics(reg)

	mws := []httpx.Middleware{
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware(deps.Logger),
		httpx.RecoveryMiddleware(deps.Logger, !cfg.IsProduction()),
		httpx.SecurityHeadersMiddleware(cfg.EnableHSTS),
		httpx.CORSMiddleware(cfg.CORSOrigins),
		httpx.RequestSizeLimitMiddleware(cfg.MaxBodyBytes),
	}

	s := &Server{}
	if cfg.RateLimitRPS > 0 {
		s.rateLimit = httpx.NewRateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst)
		mws = append(mws, s.rateLimit.Middleware)
	}
	// Method override rewrites r.Method in place and metrics read r.Pattern
	// after routing, so both sit directly above the mux.
	mws = append(mws, httpx.MethodOverrideMiddleware, metrics.Middleware)

	s.handler = httpx.Chain(mux, mws...)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close releases background resources held by the middleware.
func (s *Server) Close() {
	if s.rateLimit != nil {
		s.rateLimit.Stop()
	}
}

type healthResponse struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	Environment string `json:"environment"`
}

func health(env string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(healthResponse{
			Status:      "OK",
			Timestamp:   time.Now().UTC().Format(time.RFC3339Nano),
			Environment: env,
		})
	}
}

func ready(db database.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}
}
