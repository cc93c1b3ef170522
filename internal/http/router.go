package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/agrichain-auth/internal/http/handlers"
	"github.com/pribylovaa/agrichain-auth/internal/http/middleware"
	"github.com/pribylovaa/agrichain-auth/internal/models"
	"github.com/pribylovaa/agrichain-auth/internal/service"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger       *slog.Logger
	Timeout      time.Duration
	BasePath     string // например, "/api"; если пустой — роуты регистрируются на корне.
	MaxBodyBytes int64
	CORSOrigins  []string

	// Metrics учитывает запросы; MetricsHandler отдаётся на /metrics. Оба опциональны.
	Metrics        middleware.HTTPObserver
	MetricsHandler http.Handler

	// Ready — проверки готовности для /healthz (пинг БД, Redis).
	Ready []func(context.Context) error
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc *service.Service, verifier middleware.TokenVerifier, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),
		middleware.RequestID(),          // до логирования
		middleware.Logging(opts.Logger), // request-scoped логгер в контекст
		middleware.Metrics(opts.Metrics),
		middleware.CORS(opts.CORSOrigins),
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout))
	}
	if opts.MaxBodyBytes > 0 {
		root.Use(middleware.BodyLimit(opts.MaxBodyBytes))
	}

	h := handlers.New(svc)

	// Служебные эндпойнты для оркестратора.
	root.Get("/livez", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	root.Get("/healthz", handlers.Ready(opts.Ready...))
	if opts.MetricsHandler != nil {
		root.Handle("/metrics", opts.MetricsHandler)
	}

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, verifier)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h, verifier)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, verifier middleware.TokenVerifier) {
	r.Get("/health", h.Health)

	// users: публичные
	r.Post("/users/signup", h.Signup)
	r.Post("/users/signin", h.Signin)
	r.Post("/users/refresh", h.Refresh)
	r.Post("/users/logout", h.Logout)

	// users: по access-токену
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(verifier))

		r.Get("/users/verify", h.Verify)
		r.Get("/users/profile", h.Profile)
		r.Put("/users/profile", h.UpdateProfile)
	})

	// admin
	r.Route("/admin", func(r chi.Router) {
		r.Use(
			middleware.Authenticate(verifier),
			middleware.RequireRole(models.RoleAdmin),
		)

		r.Get("/users", h.ListUsers)
		r.Post("/users", h.CreateUser)
		r.Get("/users/{id}", h.GetUser)
		r.Put("/users/{id}", h.UpdateUser)
		r.Delete("/users/{id}", h.DeleteUser)
		r.Get("/stats", h.Stats)
	})
}
