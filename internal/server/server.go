package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hongminglow/citizen-portal/internal/auth"
	"github.com/hongminglow/citizen-portal/internal/config"
	"github.com/hongminglow/citizen-portal/internal/http/handlers"
	"github.com/hongminglow/citizen-portal/internal/middleware"
	"github.com/hongminglow/citizen-portal/internal/rbac"
	"github.com/hongminglow/citizen-portal/internal/storage"
)

// Services bundles the domain services shared by the HTTP layer and the seeder.
type Services struct {
	Graph     *rbac.Graph
	Hasher    *auth.BcryptHasher
	Tokens    *auth.TokenManager
	Authn     *auth.Authenticator
	Registrar *auth.Registrar
}

// NewServices builds the services from configuration.
func NewServices(cfg config.Config, store storage.Store) Services {
	graph := rbac.NewGraph(store)
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL())
	return Services{
		Graph:     graph,
		Hasher:    hasher,
		Tokens:    tokens,
		Authn:     auth.NewAuthenticator(store, hasher, tokens),
		Registrar: auth.NewRegistrar(store, graph, hasher),
	}
}

// NewHandler wires middleware and routes.
func NewHandler(cfg config.Config, store storage.Store, svc Services, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logging(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))

	handlers.NewHealthHandler(time.Now(), store, logger).Register(r)

	r.Route("/api", func(r chi.Router) {
		handlers.NewAuthHandler(svc.Authn, svc.Registrar, store, svc.Graph, logger).Register(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(svc.Authn, logger))
			handlers.NewUserHandler(store, svc.Graph, svc.Registrar, logger).Register(r)
			handlers.NewItemHandler(store, svc.Graph, logger).Register(r)
			handlers.NewRoleHandler(store, svc.Graph, logger).Register(r)
		})
	})

	return r
}

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New returns a ready server.
func New(cfg config.Config, store storage.Store, svc Services, logger *slog.Logger) *Server {
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           NewHandler(cfg, store, svc, logger),
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
