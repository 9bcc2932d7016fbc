package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/transport/http/middleware"
)

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
	Readyz(w http.ResponseWriter, r *http.Request)
}

type AuthHandler interface {
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	ProviderLogin(w http.ResponseWriter, r *http.Request)
	PasswordReset(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
	Refresh(w http.ResponseWriter, r *http.Request)
	Session(w http.ResponseWriter, r *http.Request)
	Me(w http.ResponseWriter, r *http.Request)
}

type UsersHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
	SetMine(w http.ResponseWriter, r *http.Request)
	Stream(w http.ResponseWriter, r *http.Request)
}

type Deps struct {
	Health HealthHandler
	Auth   AuthHandler
	Users  UsersHandler

	AuthMW func(http.Handler) http.Handler
	// AuthRateMW guards the credential endpoints. Optional.
	AuthRateMW func(http.Handler) http.Handler

	// AllowedOrigins enables CORS with credentials for the SPA.
	AllowedOrigins []string
}

func New(deps Deps) (http.Handler, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("nil Health handler")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("nil Auth handler")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("nil Users handler")
	}
	if deps.AuthMW == nil {
		return nil, fmt.Errorf("nil Auth middleware")
	}
	rateMW := deps.AuthRateMW
	if rateMW == nil {
		rateMW = func(next http.Handler) http.Handler { return next }
	}

	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders)
	r.Use(chimw.Recoverer)
	r.Use(middleware.AccessLog)
	r.Use(middleware.Metrics)
	if len(deps.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   deps.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.HeaderXRequestID},
			ExposedHeaders:   []string{middleware.HeaderXRequestID},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/auth/v1", func(r chi.Router) {
		r.With(rateMW).Post("/register", deps.Auth.Register)
		r.With(rateMW).Post("/login", deps.Auth.Login)
		r.With(rateMW).Post("/login/{provider}", deps.Auth.ProviderLogin)
		r.With(rateMW).Post("/password/reset", deps.Auth.PasswordReset)

		r.Post("/logout", deps.Auth.Logout)
		r.Post("/refresh", deps.Auth.Refresh)
		r.Get("/session", deps.Auth.Session)
		r.With(deps.AuthMW).Get("/me", deps.Auth.Me)
	})

	r.Route("/users/v1", func(r chi.Router) {
		r.Use(deps.AuthMW)

		r.Put("/me", deps.Users.SetMine)
		r.Get("/users", deps.Users.List)
		r.Post("/users", deps.Users.Create)
		// static segment wins over {id} in chi
		r.Get("/users/stream", deps.Users.Stream)
		r.Get("/users/{id}", deps.Users.Get)
		r.Delete("/users/{id}", deps.Users.Delete)
	})

	return r, nil
}
