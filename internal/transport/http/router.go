package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-email-change/internal/config"
	"github.com/go-email-change/internal/transport/http/handler"
	appmiddleware "github.com/go-email-change/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if deps.RateLimiter == nil {
		panic("transport/http: Deps.RateLimiter is required")
	}

	healthH := handler.NewHealthHandler()
	emailH := handler.NewEmailChangeHandler(deps.EmailChange)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)

		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.Limit)
			r.Use(appmiddleware.Auth(deps.Tokens, deps.Sessions))

			r.Post("/change-email/send-otp", emailH.SendOTP)
			r.Post("/change-email/verify-otp", emailH.VerifyOTP)
		})
	})

	return r
}
