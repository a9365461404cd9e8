// Package createsubscription реализует HTTP-обработчик создания подписки
// через платёжного провайдера.
package createsubscription

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	"github.com/stripe/stripe-go/v82"

	"github.com/magabrotheeeer/billing-backend/internal/http/middlewarectx"
	"github.com/magabrotheeeer/billing-backend/internal/http/response"
	"github.com/magabrotheeeer/billing-backend/internal/lib/sl"
	userservice "github.com/magabrotheeeer/billing-backend/internal/services/user"
)

// Request — входные данные для создания подписки.
type Request struct {
	PaymentMethodID string `json:"paymentMethodId" validate:"required"`
	PriceID         string `json:"priceId" validate:"required"`
}

// Service описывает интерфейс создания подписки.
type Service interface {
	CreateSubscription(ctx context.Context, email, paymentMethodID, priceID string) (*stripe.Subscription, error)
}

// Handler обрабатывает HTTP-запросы создания подписки.
type Handler struct {
	log         *slog.Logger
	userService Service
	validate    *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, userService Service) *Handler {
	return &Handler{
		log:         log,
		userService: userService,
		validate:    validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создание подписки
// @Description Привязывает платёжный метод и создаёт подписку на тариф. Идентификатор подписки записывается на пользователя.
// @Tags Stripe
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param request body Request true "Платёжный метод и тариф"
// @Success 200 {object} map[string]any "Созданная подписка"
// @Failure 400 {object} response.ErrorResponse "Платёжный аккаунт не привязан"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /user/stripe/create-subscription [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.stripe.createsubscription"

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

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	subscription, err := h.userService.CreateSubscription(r.Context(), email, req.PaymentMethodID, req.PriceID)
	if err != nil {
		if errors.Is(err, userservice.ErrNoBillingAccount) {
			log.Error("billing account is not validated")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("billing account is not validated"))
			return
		}
		log.Error("failed to create subscription", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to create subscription"))
		return
	}

	log.Info("subscription created", slog.String("subscription_id", subscription.ID))
	render.JSON(w, r, response.StatusOKWithData(subscription))
}
