package billingapp

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/billing-backend/internal/http/handlers/auth/forgetpassword"
	"github.com/magabrotheeeer/billing-backend/internal/http/handlers/auth/signin"
	"github.com/magabrotheeeer/billing-backend/internal/http/handlers/health"
	"github.com/magabrotheeeer/billing-backend/internal/http/handlers/stripe/createsubscription"
	"github.com/magabrotheeeer/billing-backend/internal/http/handlers/stripe/processpayment"
	"github.com/magabrotheeeer/billing-backend/internal/http/handlers/stripe/validatestripe"
	stripewebhook "github.com/magabrotheeeer/billing-backend/internal/http/handlers/stripe/webhook"
	"github.com/magabrotheeeer/billing-backend/internal/http/handlers/user/profile"
	"github.com/magabrotheeeer/billing-backend/internal/http/handlers/user/signup"
	"github.com/magabrotheeeer/billing-backend/internal/http/handlers/user/update"
	"github.com/magabrotheeeer/billing-backend/internal/http/handlers/user/validatetoken"
	"github.com/magabrotheeeer/billing-backend/internal/http/middlewarectx"
	"github.com/magabrotheeeer/billing-backend/internal/lib/jwt"
	authservice "github.com/magabrotheeeer/billing-backend/internal/services/auth"
	userservice "github.com/magabrotheeeer/billing-backend/internal/services/user"
	webhookservice "github.com/magabrotheeeer/billing-backend/internal/services/webhook"
)

// EventVerifier проверяет подпись входящего события вебхука.
type EventVerifier = stripewebhook.EventVerifier

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, jwtMaker jwt.Maker,
	authService *authservice.AuthService, userService *userservice.UserService,
	webhookService *webhookservice.WebhookService, verifier EventVerifier) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	// Открытые конечные точки
	r.Post("/auth/sign-in", signin.New(logger, authService).ServeHTTP)
	r.Post("/auth/forget-password", forgetpassword.New(logger, authService).ServeHTTP)
	r.Post("/user/signup", signup.New(logger, userService).ServeHTTP)
	r.Get("/user/validate-token", validatetoken.New(logger, authService).ServeHTTP)
	r.Get("/health", health.New(logger).ServeHTTP)

	// Группа с JWT аутентификацией
	r.Group(func(r chi.Router) {
		r.Use(middlewarectx.JWTMiddleware(jwtMaker, logger))
		r.Use(middlewarectx.RateLimitMiddleware(logger))
		r.Get("/user", profile.New(logger, userService).ServeHTTP)
		r.Post("/user/update-user", update.New(logger, userService).ServeHTTP)
		r.Post("/user/stripe/create-subscription", createsubscription.New(logger, userService).ServeHTTP)
		r.Post("/user/stripe/process-payment", processpayment.New(logger, userService).ServeHTTP)
		r.Get("/stripe/stripe/validate-stripe", validatestripe.New(logger, userService).ServeHTTP)
	})

	// Webhook endpoint (без аутентификации)
	r.Post("/stripe/webhook", stripewebhook.New(logger, verifier, webhookService).ServeHTTP)

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
