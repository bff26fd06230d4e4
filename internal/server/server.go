// Package server exposes the paste store over HTTP.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/zeybek/gopaste/internal/config"
	"github.com/zeybek/gopaste/internal/paste"
)

// Homepage is where "GET /" redirects without a configured landing page.
const Homepage = "https://github.com/zeybek/gopaste"

// Server carries the shared state of the HTTP handlers.
type Server struct {
	holder  *config.Holder
	logger  zerolog.Logger
	client  *http.Client
	version string
}

// New builds a Server around the given configuration snapshot holder.
func New(holder *config.Holder, logger zerolog.Logger, version string) *Server {
	return &Server{
		holder:  holder,
		logger:  logger,
		client:  paste.NewClient(holder.Load().Server.Timeout),
		version: version,
	}
}

// Routes assembles the HTTP surface.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.logRequests)
	r.Use(s.limitContentLength)
	r.Use(s.withGrants)

	r.Get("/", s.handleIndex)
	r.Post("/", s.handleUpload)
	r.Get("/version", s.handleVersion)
	r.Get("/list", s.handleList)
	r.Get("/{file}", s.handleServe)
	r.Delete("/{file}", s.handleDelete)
	return r
}
