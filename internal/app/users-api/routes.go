// Package usersapi собирает HTTP-приложение: хранилище, сервисы, маршруты и сервер.
package usersapi

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/users-api/internal/http/handlers/auth/forgotpassword"
	"github.com/magabrotheeeer/users-api/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/users-api/internal/http/handlers/auth/logout"
	"github.com/magabrotheeeer/users-api/internal/http/handlers/auth/me"
	"github.com/magabrotheeeer/users-api/internal/http/handlers/auth/resetpassword"
	"github.com/magabrotheeeer/users-api/internal/http/handlers/auth/signup"
	"github.com/magabrotheeeer/users-api/internal/http/handlers/index/health"
	"github.com/magabrotheeeer/users-api/internal/http/handlers/index/index"
	"github.com/magabrotheeeer/users-api/internal/http/handlers/users/create"
	"github.com/magabrotheeeer/users-api/internal/http/handlers/users/list"
	"github.com/magabrotheeeer/users-api/internal/http/handlers/users/read"
	"github.com/magabrotheeeer/users-api/internal/http/handlers/users/remove"
	"github.com/magabrotheeeer/users-api/internal/http/handlers/users/update"
	"github.com/magabrotheeeer/users-api/internal/http/middlewarectx"
	"github.com/magabrotheeeer/users-api/internal/http/response"
	"github.com/magabrotheeeer/users-api/internal/metrics"
	"github.com/magabrotheeeer/users-api/internal/models"
)

// AuthService — операции авторизации, нужные маршрутам.
type AuthService interface {
	signup.Service
	login.Service
	logout.Service
	me.Service
	forgotpassword.Service
	resetpassword.Service
	middlewarectx.Authenticator
}

// UserService — CRUD пользователей.
type UserService interface {
	list.Service
	read.Service
	create.Service
	update.Service
	remove.Service
}

// Deps — зависимости маршрутов.
type Deps struct {
	Auth    AuthService
	Users   UserService
	DB      health.StateChecker
	Metrics *metrics.Metrics
	Limiter *middlewarectx.RateLimiter
	// CORSOrigin — разрешённый Origin, "*" разрешает любой.
	CORSOrigin string
	// AdminOnlyDelete ограничивает удаление пользователей ролью ADMIN.
	AdminOnlyDelete bool
	Dev             bool
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middlewarectx.RequestLogger(logger),
	)
	if deps.Metrics != nil {
		r.Use(middlewarectx.Metrics(deps.Metrics))
	}
	r.Use(
		middleware.Recoverer,
		middlewarectx.CORS(deps.CORSOrigin),
		middleware.SetHeader("X-Content-Type-Options", "nosniff"),
		middleware.SetHeader("X-Frame-Options", "SAMEORIGIN"),
		middleware.Compress(5),
	)
	if deps.Limiter != nil {
		r.Use(deps.Limiter.Middleware(logger, deps.Dev))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error(http.StatusNotFound, fmt.Sprintf("Can't find %s on this server!", r.URL.RequestURI())))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, http.StatusMethodNotAllowed)
		render.JSON(w, r, response.Error(http.StatusMethodNotAllowed, fmt.Sprintf("Method %s is not allowed on %s", r.Method, r.URL.Path)))
	})

	indexHandler := index.New()
	healthHandler := health.New(logger, deps.DB)
	r.Get("/", indexHandler.ServeHTTP)
	r.Get("/health", healthHandler.ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", indexHandler.ServeHTTP)
		r.Get("/health", healthHandler.ServeHTTP)

		// Открытые конечные точки
		r.Post("/signup", signup.New(logger, deps.Auth, deps.Dev).ServeHTTP)
		r.Post("/login", login.New(logger, deps.Auth, deps.Dev).ServeHTTP)
		r.Post("/forgotPassword", forgotpassword.New(logger, deps.Auth, deps.Dev).ServeHTTP)
		r.Patch("/resetPassword/{resetToken}", resetpassword.New(logger, deps.Auth, deps.Dev).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.Auth(logger, deps.Auth, deps.Dev))
			r.Post("/logout", logout.New(logger, deps.Auth, deps.Dev).ServeHTTP)
			r.Get("/me", me.New(logger, deps.Auth, deps.Dev).ServeHTTP)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", list.New(logger, deps.Users, deps.Dev).ServeHTTP)
			r.Post("/", create.New(logger, deps.Users, deps.Dev).ServeHTTP)
			r.Get("/{id}", read.New(logger, deps.Users, deps.Dev).ServeHTTP)
			r.Put("/{id}", update.New(logger, deps.Users, deps.Dev).ServeHTTP)

			removeHandler := http.Handler(remove.New(logger, deps.Users, deps.Dev))
			if deps.AdminOnlyDelete {
				removeHandler = chi.Chain(
					middlewarectx.Auth(logger, deps.Auth, deps.Dev),
					middlewarectx.RestrictTo(logger, deps.Dev, models.RoleAdmin),
				).Handler(removeHandler)
			}
			r.Delete("/{id}", removeHandler.ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/api-docs/*", httpSwagger.WrapHandler)
}
