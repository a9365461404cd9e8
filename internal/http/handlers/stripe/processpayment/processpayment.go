// Package processpayment реализует HTTP-обработчик разового платежа
// по выбранному тарифу.
package processpayment

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

// Request — входные данные для проведения платежа.
type Request struct {
	PaymentMethodID string `json:"paymentMethodId" validate:"required"`
	PriceID         string `json:"priceId" validate:"required"`
	OrderID         string `json:"orderId" validate:"required"`
}

// Service описывает интерфейс проведения платежа.
type Service interface {
	ProcessPayment(ctx context.Context, email, paymentMethodID, priceID, orderID string) (*stripe.Invoice, error)
}

// Handler обрабатывает HTTP-запросы проведения платежа.
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
// @Summary Разовый платёж
// @Description Выставляет и оплачивает счёт по тарифу с привязкой к заказу.
// @Tags Stripe
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param request body Request true "Платёжный метод, тариф и заказ"
// @Success 200 {object} map[string]any "Оплаченный счёт"
// @Failure 400 {object} response.ErrorResponse "Платёжный аккаунт не привязан"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /user/stripe/process-payment [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.stripe.processpayment"

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

	invoice, err := h.userService.ProcessPayment(r.Context(), email, req.PaymentMethodID, req.PriceID, req.OrderID)
	if err != nil {
		if errors.Is(err, userservice.ErrNoBillingAccount) {
			log.Error("billing account is not validated")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("billing account is not validated"))
			return
		}
		log.Error("failed to process payment", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to process payment"))
		return
	}

	log.Info("payment processed", slog.String("invoice_id", invoice.ID))
	render.JSON(w, r, response.StatusOKWithData(invoice))
}
