// Package billingapp собирает и запускает HTTP-приложение биллингового бэкенда.
package billingapp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/billing-backend/internal/billing"
	"github.com/magabrotheeeer/billing-backend/internal/cache"
	"github.com/magabrotheeeer/billing-backend/internal/config"
	"github.com/magabrotheeeer/billing-backend/internal/lib/jwt"
	"github.com/magabrotheeeer/billing-backend/internal/lib/smtp"
	"github.com/magabrotheeeer/billing-backend/internal/migrations"
	authservice "github.com/magabrotheeeer/billing-backend/internal/services/auth"
	senderservice "github.com/magabrotheeeer/billing-backend/internal/services/sender"
	userservice "github.com/magabrotheeeer/billing-backend/internal/services/user"
	webhookservice "github.com/magabrotheeeer/billing-backend/internal/services/webhook"
	"github.com/magabrotheeeer/billing-backend/internal/storage/repository"
)

// App хранит собранный HTTP-сервер и его зависимости.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
}

// New собирает приложение: подключает хранилище, применяет миграции,
// инициализирует кеш, платёжного провайдера и сервисы, регистрирует маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.DSN())
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	billingClient := billing.NewClient(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)
	jwtMaker := jwt.NewJWTMaker(cfg.JWTToken.PrivateKey, cfg.JWTToken.TokenTTL)
	smtpTransport := smtp.NewTransport(cfg, logger)

	authService := authservice.NewAuthService(db, db, jwtMaker)
	userService := userservice.NewUserService(db, billingClient, jwtMaker, cacheRedis)
	senderService := senderservice.NewSenderService(logger, smtpTransport)
	webhookService := webhookservice.NewWebhookService(db, senderService, logger)

	router := chi.NewRouter()

	RegisterRoutes(router, logger, jwtMaker, authService, userService, webhookService, billingClient)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его при отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.db.DB.Close()
		return err
	}
}
