// Package webhook реализует HTTP-обработчик входящих событий
// платёжного провайдера.
package webhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/stripe/stripe-go/v82"

	"github.com/magabrotheeeer/billing-backend/internal/http/response"
	"github.com/magabrotheeeer/billing-backend/internal/lib/sl"
)

// EventVerifier проверяет подпись события и восстанавливает его из тела запроса.
type EventVerifier interface {
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

// Service описывает интерфейс обработки событий.
type Service interface {
	ProcessEvent(ctx context.Context, event stripe.Event) error
}

// Handler обрабатывает HTTP-запросы вебхуков.
type Handler struct {
	log            *slog.Logger
	verifier       EventVerifier
	webhookService Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, verifier EventVerifier, webhookService Service) *Handler {
	return &Handler{
		log:            log,
		verifier:       verifier,
		webhookService: webhookService,
	}
}

// ServeHTTP godoc
// @Summary Вебхук платёжного провайдера
// @Description Принимает подписанные события, обновляет статусы подписок и рассылает уведомления о счетах.
// @Tags Stripe
// @Accept  json
// @Produce  json
// @Success 200 {object} map[string]bool "Подтверждение получения"
// @Failure 400 {object} response.ErrorResponse "Неверная подпись"
// @Router /stripe/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.stripe.webhook"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	event, err := h.verifier.ConstructEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		log.Error("failed to verify webhook signature", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid webhook signature"))
		return
	}

	log.Info("webhook event received", slog.String("event_type", string(event.Type)))

	if err := h.webhookService.ProcessEvent(r.Context(), event); err != nil {
		log.Error("failed to process webhook event", sl.Err(err))
	}

	render.JSON(w, r, map[string]bool{"received": true})
}
