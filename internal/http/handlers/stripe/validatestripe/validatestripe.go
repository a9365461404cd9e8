// Package validatestripe реализует HTTP-обработчик привязки пользователя
// к клиенту платёжного провайдера.
//
// При первом вызове создаётся клиент у провайдера и сохраняется его
// идентификатор; последующие вызовы переиспользуют привязку. В любом случае
// создаётся свежий setup intent, client secret которого возвращается клиенту.
package validatestripe

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/billing-backend/internal/http/middlewarectx"
	"github.com/magabrotheeeer/billing-backend/internal/http/response"
	"github.com/magabrotheeeer/billing-backend/internal/lib/sl"
)

// Service описывает интерфейс привязки платёжного аккаунта.
type Service interface {
	ValidateBillingAccount(ctx context.Context, email string) (string, error)
}

// Handler обрабатывает HTTP-запросы привязки платёжного аккаунта.
type Handler struct {
	log         *slog.Logger
	userService Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, userService Service) *Handler {
	return &Handler{
		log:         log,
		userService: userService,
	}
}

// ServeHTTP godoc
// @Summary Привязка платёжного аккаунта
// @Description Гарантирует привязку к клиенту платёжного провайдера и возвращает client secret нового setup intent.
// @Tags Stripe
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} map[string]any "client secret setup intent"
// @Failure 401 {object} response.ErrorResponse "Пользователь не аутентифицирован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /stripe/stripe/validate-stripe [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.stripe.validatestripe"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	email, ok := r.Context().Value(middlewarectx.UserEmail).(string)
	if !ok || email == "" {
		log.Error("user identification missing")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("user identification missing"))
		return
	}

	validationID, err := h.userService.ValidateBillingAccount(r.Context(), email)
	if err != nil {
		log.Error("failed to validate billing account", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to validate billing account"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]string{
		"validationId": validationID,
	}))
}
